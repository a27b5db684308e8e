package variants

import "github.com/zen-systems/crewforge/pkg/pipeline"

const (
	toolSearch = "web_search"
	toolScrape = "web_scrape"
)

func bibleStudy() *Variant {
	return &Variant{
		Name:        "bible-study",
		Title:       "Bible Study Guide",
		Description: "A study guide for one book of the Bible: historical background, theology, application and a final edit.",
		Fields: []Field{
			{Name: "book", Label: "Book of the Bible", Help: "For example Genesis, Ruth or Romans.", Kind: KindText, Required: true},
			{Name: "language", Label: "Language", Kind: KindSelect, Options: languages, Default: "English", Required: true},
		},
		temperature: 0.5,
		build:       buildBibleStudy,
	}
}

func buildBibleStudy(map[string]string) (*pipeline.Pipeline, error) {
	params := []string{"book", "language"}

	p := &pipeline.Pipeline{
		Name:        "bible-study",
		Description: "Bible study guide",
		Inputs:      params,
		Roles: map[string]*pipeline.Role{
			"historian": role(
				"Biblical Historian & Archaeologist",
				"Uncover the historical, cultural and archaeological setting of the book of {{ .book }} and explain it in {{ .language }}.",
				"You have spent decades on excavations across the Levant and teach ancient Near Eastern history. You make the world behind the text vivid without overstating the evidence.",
			),
			"theologian": role(
				"Exegetical Theologian",
				"Trace the major theological themes of {{ .book }} and anchor each one in key verses, writing in {{ .language }}.",
				"You read Hebrew and Greek, know the history of interpretation, and explain doctrine plainly for lay readers.",
			),
			"pastor": role(
				"Pastoral Guide & Counselor",
				"Turn the study of {{ .book }} into practical application and reflection questions in {{ .language }}.",
				"You have led small groups for many years and know how to connect scripture with everyday life, doubt and hope.",
			),
			"editor": role(
				"Senior Editor for Christian Publishing",
				"Merge the sections on {{ .book }} into one coherent, well-formatted study guide in {{ .language }}.",
				"You have edited devotional and study material for major Christian publishers. You care about flow, consistent tone and clean Markdown.",
			),
		},
		Tasks: []*pipeline.Task{
			task("historical-context", "historian",
				"Write the 'Historical Background' section of a study guide on the book of **{{ .book }}**. "+
					"Cover authorship, date, audience, the political and cultural setting and any relevant archaeology. "+
					"Your whole answer MUST be written in {{ .language }}.",
				"A Markdown section with a heading and several paragraphs on the historical background of {{ .book }}, written in {{ .language }}.",
				params),
			task("theological-analysis", "theologian",
				"Write the 'Theological Themes and Key Verses' section for **{{ .book }}**. "+
					"Identify three to five major themes and quote key verses for each from a well-known {{ .language }} translation, naming the translation. "+
					"Your whole answer MUST be written in {{ .language }}.",
				"A Markdown section listing the major themes of {{ .book }} with quoted key verses, written in {{ .language }}.",
				params),
			task("application", "pastor",
				"Write the 'Practical Application and Reflection' section for **{{ .book }}**. "+
					"Give concrete ways to apply its message today and five to seven reflection questions for individuals or groups. "+
					"Your whole answer MUST be written in {{ .language }}.",
				"A Markdown section with application points and numbered reflection questions, written in {{ .language }}.",
				params),
			task("editing", "editor",
				"Combine the historical, theological and application sections into one study guide. "+
					"Start with the title, which is the {{ .language }} translation of 'A Study Guide to the Book of {{ .book }}', as a level one heading. "+
					"Fix inconsistencies, smooth transitions and keep every section's substance. Use ## for section headings.",
				"The complete, polished study guide on {{ .book }} in Markdown, written entirely in {{ .language }}.",
				params,
				"historical-context", "theological-analysis", "application"),
		},
	}
	p.Tasks[3].OutputPath = "final_study_guide_{{ lower .language }}.md"
	return p, nil
}
