package variants

import "github.com/zen-systems/crewforge/pkg/pipeline"

func book() *Variant {
	return &Variant{
		Name:        "book",
		Title:       "Book Manuscript",
		Description: "Outline, research and first chapters of a book, edited into a manuscript.",
		Fields: []Field{
			{Name: "topic", Label: "Topic", Help: "What the book is about.", Kind: KindText, Required: true},
			{Name: "prompt", Label: "Details", Help: "Audience, tone, angle or anything else the authors should know.", Kind: KindTextArea, Required: true},
			{Name: "language", Label: "Language", Kind: KindSelect, Options: languages, Default: "English", Required: true},
		},
		temperature: 0.7,
		build:       buildBook,
	}
}

func buildBook(map[string]string) (*pipeline.Pipeline, error) {
	params := []string{"topic", "prompt", "language"}
	lang := []string{"language"}

	p := &pipeline.Pipeline{
		Name:        "book",
		Description: "Book manuscript",
		Inputs:      params,
		Roles: map[string]*pipeline.Role{
			"architect": role(
				"Chief Outline Architect",
				"Create a detailed chapter-by-chapter outline for a book of about 300 pages on the user's topic, written in {{ .language }}.",
				"A developmental editor and bestselling author who structures complex ideas into books that sell, in many languages.",
				toolSearch, toolScrape,
			),
			"researcher": role(
				"Research Specialist",
				"Gather facts, figures, examples and quotes for every chapter of the outline.",
				"A meticulous multilingual researcher with a background in library science who finds reliable sources quickly.",
				toolSearch, toolScrape,
			),
			"writer": role(
				"Narrative Crafter",
				"Write vivid, well-structured chapters in {{ .language }} from the outline and research.",
				"A ghostwriter fluent in several languages who adapts voice and style to any subject.",
				toolSearch,
			),
			"editor": role(
				"Senior Editor",
				"Polish the drafted chapters into a consistent, publish-ready manuscript in {{ .language }}.",
				"A polyglot editor from the big publishing houses with an eye for typos, rhythm and coherence.",
			),
		},
		Tasks: []*pipeline.Task{
			task("outline", "architect",
				"Create the outline for a book of about 300 pages.\n"+
					"Topic: {{ .topic }}\n"+
					"Details from the author: {{ .prompt }}\n\n"+
					"The outline MUST be written entirely in {{ .language }} and contain:\n"+
					"1. A compelling title.\n"+
					"2. A short synopsis.\n"+
					"3. The book's parts.\n"+
					"4. Every chapter of each part with a short paragraph describing its content.",
				"A detailed, multi-level book outline written in {{ .language }}.",
				params),
			task("research", "researcher",
				"Research every chapter of the outline. Sources may be in any language, but organize the notes for a writer working in {{ .language }}. "+
					"For each chapter collect key facts and figures, concrete examples or case studies, and key quotes with a faithful {{ .language }} translation when quoting another language.",
				"A research document organized by chapter, prepared for a writer working in {{ .language }}.",
				lang, "outline"),
			task("writing", "writer",
				"Using the outline and the research notes, write the first three chapters of the book in {{ .language }}. "+
					"Each chapter needs a heading, clear structure and engaging prose that follows the outline.",
				"The full text of the first three chapters in Markdown, written in {{ .language }}.",
				lang, "outline", "research"),
			task("editing", "editor",
				"Edit the drafted chapters. Correct grammar and spelling, keep style and terminology consistent with the outline, "+
					"and return the manuscript starting with the book title as a level one heading and each chapter as a level two heading.",
				"The edited, publish-ready manuscript in Markdown, written in {{ .language }}.",
				lang, "outline", "writing"),
		},
	}
	p.Tasks[0].SearchQuery = "{{ .topic }}"
	p.Tasks[1].SearchQuery = "{{ .topic }} facts statistics examples"
	p.Tasks[2].SearchQuery = "{{ .topic }}"
	p.Tasks[3].OutputPath = "book_final_output_{{ lower .language }}.md"
	return p, nil
}
