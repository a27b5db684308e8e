package variants

import "github.com/zen-systems/crewforge/pkg/pipeline"

// FlyerTypes are the formats the flyer crew designs for.
var FlyerTypes = []string{
	"Social Media Post (Square)",
	"Poster (Portrait)",
	"Banner (Landscape)",
}

// flyerAspects maps each flyer type to an Imagen aspect ratio.
var flyerAspects = map[string]string{
	"Social Media Post (Square)": "1:1",
	"Poster (Portrait)":          "3:4",
	"Banner (Landscape)":         "16:9",
}

// AspectRatioFor returns the image aspect ratio for a flyer type, or ""
// when the type has no fixed ratio.
func AspectRatioFor(flyerType string) string {
	return flyerAspects[flyerType]
}

func flyer() *Variant {
	return &Variant{
		Name:        "flyer",
		Title:       "Flyer",
		Description: "A creative brief, visual concept, image prompt and social media copy for a flyer.",
		Fields: []Field{
			{Name: "topic", Label: "Topic", Help: "What the flyer promotes.", Kind: KindText, Required: true},
			{Name: "text", Label: "Slogan", Help: "The key text shown with the image.", Kind: KindText, Required: true},
			{Name: "flyer_type", Label: "Format", Kind: KindSelect, Options: FlyerTypes, Default: FlyerTypes[0], Required: true},
		},
		ImageTask:   "image-prompt",
		temperature: 0.8,
		derive:      deriveDate,
		build:       buildFlyer,
	}
}

// deriveDate sets the date parameter unless the caller supplied one.
func deriveDate(params map[string]string, opts Options) error {
	if params["date"] == "" {
		params["date"] = opts.now().Format("2006-01-02")
	}
	return nil
}

func buildFlyer(map[string]string) (*pipeline.Pipeline, error) {
	p := &pipeline.Pipeline{
		Name:        "flyer",
		Description: "Flyer with image prompt and social copy",
		Inputs:      []string{"topic", "text", "flyer_type", "date"},
		Roles: map[string]*pipeline.Role{
			"strategist": role(
				"Creative Brief Specialist",
				"Turn the request into a clear creative brief naming the target audience, desired emotion and core message of the flyer.",
				"You come from marketing and distill fuzzy ideas into briefs a design team can act on.",
				toolSearch,
			),
			"art-director": role(
				"Visual Concept Developer & Art Director",
				"Develop a strong visual concept from the brief: metaphor, color palette, composition and style.",
				"A seasoned art director who follows current aesthetics and translates strategy into visual language.",
				toolSearch,
			),
			"prompt-engineer": role(
				"Google Imagen Prompt Engineer",
				"Write an image generation prompt that Google's Imagen model turns into the intended visual.",
				"A technical artist who knows which words produce cinematic lighting, photorealism or a given graphic style.",
			),
			"copywriter": role(
				"Social Media Copywriter",
				"Write a short, engaging social media post that accompanies the flyer image.",
				"A viral marketing specialist who writes copy that stops the scroll and invites interaction.",
				toolSearch,
			),
		},
		Tasks: []*pipeline.Task{
			task("briefing", "strategist",
				"Analyze the following request and create a Creative Brief.\n"+
					"- Topic: \"{{ .topic }}\"\n"+
					"- Key text or slogan: \"{{ .text }}\"\n"+
					"- Flyer format: \"{{ .flyer_type }}\"\n"+
					"The current date is {{ .date }}.\n"+
					"The brief must define the Target Audience, the Desired Emotion and the Core Message.",
				"A concise creative brief.",
				[]string{"topic", "text", "flyer_type", "date"}),
			task("visual-concept", "art-director",
				"Based on the creative brief, develop the full visual concept for a {{ .flyer_type }}: "+
					"a central visual metaphor or scene, a color palette that sets the mood, composition ideas and a modern artistic style.",
				"A detailed visual concept.",
				[]string{"flyer_type"}, "briefing"),
			task("image-prompt", "prompt-engineer",
				"Combine the creative brief and the visual concept into one image generation prompt for Google's Imagen model. "+
					"Write a single descriptive paragraph covering subject, setting, lighting, colors, mood and camera settings. "+
					"Do NOT include the slogan or any other text in the image; the image is the background. "+
					"Reply with the prompt only.",
				"A single detailed paragraph containing only the image prompt.",
				nil, "briefing", "visual-concept"),
			task("social-copy", "copywriter",
				"Based on the creative brief and the visual concept, write a social media post to accompany the flyer image. The post must:\n"+
					"1. Open with a strong hook.\n"+
					"2. Work in the slogan \"{{ .text }}\" naturally.\n"+
					"3. Carry the desired emotion of the campaign.\n"+
					"4. Include 3-5 relevant hashtags.\n"+
					"5. End with a clear call to action or a question.",
				"A complete social media post including hashtags.",
				[]string{"text"}, "briefing", "visual-concept"),
		},
	}
	p.Tasks[0].SearchQuery = "{{ .topic }} target audience"
	p.Tasks[1].SearchQuery = "{{ .topic }} {{ .flyer_type }} design trends"
	p.Tasks[3].SearchQuery = "{{ .topic }} hashtags"
	p.Tasks[2].OutputPath = "flyer_image_prompt.txt"
	p.Tasks[3].OutputPath = "flyer_social_post.md"
	return p, nil
}
