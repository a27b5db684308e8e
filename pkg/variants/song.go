package variants

import (
	"strings"

	"github.com/zen-systems/crewforge/pkg/pipeline"
)

var worshipGenres = []string{
	"Worship (Hillsong/Bethel style)",
	"Praise (Elevation/Upbeat style)",
	"African Gospel Praise",
}

var songGenres = append(append([]string{}, worshipGenres...),
	"Blues",
	"Hip-Hop",
	"German Schlager",
	"Pop",
	"Country",
)

// genreHints are the instrumentation cues the arranger gets per genre.
var genreHints = []string{
	"Worship: atmospheric pads, delayed electric guitars, grand piano, solid bass, powerful drums.",
	"Praise: rhythmic acoustic guitar, punchy synths, clean electric guitars, driving bass and drums.",
	"African Gospel: prominent basslines, polyrhythmic percussion (djembe, congas), choir vocals, bright keys or organ, clean electric guitar lines.",
	"Blues: a 12-bar blues structure, expressive slightly overdriven electric guitar, harmonica, upright bass, a simple shuffling drum beat.",
	"Hip-Hop: a drum machine sound such as the TR-808, a prominent bassline or sampled melody, the focus on beat and rhythm.",
	"German Schlager: a strong simple 4/4 Discofox beat, synthesizer brass, accordion, clean electric guitars, a memorable synth line, an upbeat danceable mood.",
}

// songCrew holds what differs between the worship and the generic song crew.
type songCrew struct {
	name        string
	description string
	textField   string
	textLabel   string
	lyricist    *pipeline.Role
	songwriter  *pipeline.Role
	arranger    *pipeline.Role
	brief       string
	hints       int
}

func worshipSong() *Variant {
	crew := songCrew{
		name:        "worship-song",
		description: "Worship song",
		textField:   "verses",
		textLabel:   "Bible verses or quotes",
		lyricist: role(
			"Theological Lyricist & Bible Scholar",
			"Draw the core truths, emotions and imagery out of the given verses and topic as the foundation of a worship song.",
			"You hold a Master of Divinity and write for worship. You find the poetic and emotional heart of scripture.",
			toolSearch,
		),
		songwriter: role(
			"Worship Songwriter & Composer",
			"Write singable, structured worship lyrics from the concept brief.",
			"You have co-written with major worship movements and know how a simple, profound chorus carries a congregation.",
		),
		arranger: role(
			"Music Arranger & Producer",
			"Define the arrangement of the song for the chosen genre: tempo, mood, dynamics and instrumentation.",
			"You have produced in studios from Nashville to Sydney, from the driving rhythm of African Gospel to atmospheric Bethel pads.",
		),
		brief: "Analyze the following Bible verses and topic and create a Lyrical Concept Brief.\n" +
			"- Verses: \"{{ .verses }}\"\n" +
			"- Topic: \"{{ .topic }}\"\n\n" +
			"The brief must identify:\n" +
			"1. **Core Message:** the central truth or declaration.\n" +
			"2. **Key Emotions:** the feelings to convey, such as awe, gratitude, hope or repentance.\n" +
			"3. **Visual Imagery:** strong metaphors or scenes from the text.",
		hints: 3,
	}
	return &Variant{
		Name:        crew.name,
		Title:       "Worship Song",
		Description: "Lyrics and an arrangement for a worship song, combined into a prompt for a music model.",
		Fields: []Field{
			{Name: "genre", Label: "Genre", Kind: KindSelect, Options: worshipGenres, Default: worshipGenres[0], Required: true},
			{Name: "topic", Label: "Topic", Help: "For example grace, hope or God's faithfulness.", Kind: KindText},
			{Name: "verses", Label: crew.textLabel, Help: "For example Psalm 23 or John 3:16.", Kind: KindTextArea},
		},
		AtLeastOne:  []string{"topic", "verses"},
		temperature: 0.7,
		build:       crew.build,
	}
}

func song() *Variant {
	crew := songCrew{
		name:        "song",
		description: "Song",
		textField:   "text",
		textLabel:   "Inspirational text or keywords",
		lyricist: role(
			"Lyrical Concept Developer",
			"Extract the core themes, emotions and imagery of the user's text and topic as the foundation of a song.",
			"You find the poetic heart of any idea and unpack it into raw narrative and emotional material, whatever the genre.",
			toolSearch,
		),
		songwriter: role(
			"Genre-Versatile Songwriter",
			"Write structured lyrics from the concept brief that follow the conventions of {{ .genre }}.",
			"You have written hits in every genre from Country to Hip-Hop and know each one's rhyme schemes and storytelling.",
		),
		arranger: role(
			"Multi-Genre Music Arranger & Producer",
			"Define the arrangement of the song for {{ .genre }}: tempo, mood, dynamics and instrumentation.",
			"A producer with a vast sonic vocabulary, from gritty Blues to 808-driven Hip-Hop to polished Schlager.",
		),
		brief: "Analyze the following input and create a Lyrical Concept Brief.\n" +
			"- Inspirational text or keywords: \"{{ .text }}\"\n" +
			"- Topic: \"{{ .topic }}\"\n\n" +
			"The brief must identify:\n" +
			"1. **Core Message:** the central idea or story.\n" +
			"2. **Key Emotions:** the feelings to convey, such as joy, heartbreak, confidence or nostalgia.\n" +
			"3. **Key Imagery:** strong metaphors or scenes.",
		hints: len(genreHints),
	}
	return &Variant{
		Name:        crew.name,
		Title:       "Song",
		Description: "Lyrics and a genre-specific arrangement, combined into a prompt for a music model.",
		Fields: []Field{
			{Name: "genre", Label: "Genre", Kind: KindSelect, Options: songGenres, Default: "Pop", Required: true},
			{Name: "topic", Label: "Topic", Help: "For example heartbreak or a road trip.", Kind: KindText},
			{Name: "text", Label: crew.textLabel, Kind: KindTextArea},
		},
		AtLeastOne:  []string{"topic", "text"},
		temperature: 0.7,
		build:       crew.build,
	}
}

func (c songCrew) build(map[string]string) (*pipeline.Pipeline, error) {
	var hints strings.Builder
	for _, hint := range genreHints[:c.hints] {
		hints.WriteString("- ")
		hints.WriteString(hint)
		hints.WriteString("\n")
	}

	p := &pipeline.Pipeline{
		Name:        c.name,
		Description: c.description,
		Inputs:      []string{"genre", "topic", c.textField},
		Roles: map[string]*pipeline.Role{
			"lyricist":   c.lyricist,
			"songwriter": c.songwriter,
			"arranger":   c.arranger,
			"technician": role(
				"Lyria Prompt Technician",
				"Combine the lyrics and the arrangement into one precise prompt for Google's Lyria music model.",
				"You specialize in generative music models and know the descriptive keywords they respond to.",
			),
		},
		Tasks: []*pipeline.Task{
			task("lyrical-concept", "lyricist",
				c.brief,
				"A concise Lyrical Concept Brief with a section for each of the three points.",
				[]string{"topic", c.textField}),
			task("arrangement", "arranger",
				"Create a Musical Arrangement Guide for a new song.\n"+
					"- Genre: \"{{ .genre }}\"\n"+
					"- Topic: \"{{ .topic }}\"\n\n"+
					"Follow the conventions of the genre strictly. The guide must specify:\n"+
					"1. **Tempo & Rhythm:** for example \"slow and contemplative, around 68 BPM\".\n"+
					"2. **Mood & Dynamics:** the emotional arc from intro to final chorus.\n"+
					"3. **Instrumentation:** the instruments that define the genre.\n\n"+
					"Genre cues:\n"+hints.String(),
				"A Musical Arrangement Guide with sections for Tempo & Rhythm, Mood & Dynamics and Instrumentation.",
				[]string{"genre", "topic"}),
			task("song-writing", "songwriter",
				"Using the Lyrical Concept Brief, write a complete song with clearly labeled sections:\n"+
					"Verse 1, Chorus, Verse 2, Chorus, Bridge, Chorus.\n"+
					"The lyrics must be creative, heartfelt and easy to sing.",
				"A complete song with labeled sections.",
				nil, "lyrical-concept"),
			task("music-prompt", "technician",
				"Combine the final lyrics and the Musical Arrangement Guide into one detailed prompt for Google's Lyria model. "+
					"Open with the overall feel: genre, mood, tempo and key instruments. "+
					"Then walk through the lyrics section by section and describe the musical feel of each one.",
				"A single comprehensive text prompt for the Lyria music model.",
				nil, "song-writing", "arrangement"),
		},
	}
	p.Tasks[3].OutputPath = "final_lyria_prompt.txt"
	return p, nil
}
