package variants

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/zen-systems/crewforge/pkg/pipeline"
)

// Newspaper scopes.
const (
	ScopeGlobal   = "Global"
	ScopeNational = "National"
	ScopeLocal    = "Local"
)

// NewsTopics are the default beats of the newsroom.
var NewsTopics = []string{
	"Top Story",
	"Business & Stock Market",
	"Sports",
	"Technology",
	"Fashion & Trends",
}

// LocalEditions are the suggested cities for a local paper.
var LocalEditions = []string{"Berlin", "Hamburg", "Munich", "Cologne", "Frankfurt"}

const defaultCountry = "Germany"

func newspaper() *Variant {
	return &Variant{
		Name:        "newspaper",
		Title:       "Newspaper",
		Description: "A wire service gathers today's news, one reporter per topic writes an article, an editor assembles the paper.",
		Fields: []Field{
			{Name: "scope", Label: "Scope", Kind: KindSelect, Options: []string{ScopeGlobal, ScopeNational, ScopeLocal}, Default: ScopeGlobal, Required: true},
			{Name: "location", Label: "Location", Help: "City for a local paper, country for a national one.", Kind: KindText},
			{Name: "topics", Label: "Topics", Help: "Comma separated.", Kind: KindMulti, Options: NewsTopics, Default: strings.Join(NewsTopics, ", "), Required: true},
		},
		temperature: 0.7,
		derive:      deriveNewspaper,
		build:       buildNewspaper,
	}
}

// SplitTopics parses a comma separated topic list, dropping blanks and
// case-insensitive duplicates.
func SplitTopics(list string) []string {
	fold := cases.Fold()
	seen := make(map[string]struct{})
	var out []string
	for _, raw := range strings.Split(list, ",") {
		topic := strings.TrimSpace(raw)
		if topic == "" {
			continue
		}
		key := fold.String(topic)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, topic)
	}
	return out
}

func deriveNewspaper(params map[string]string, opts Options) error {
	scope := cases.Title(language.Und).String(params["scope"])
	switch scope {
	case ScopeGlobal:
		params["query_location"] = "world"
	case ScopeNational:
		if params["location"] == "" {
			params["location"] = defaultCountry
		}
		params["query_location"] = params["location"]
	case ScopeLocal:
		if params["location"] == "" {
			return &InputError{Variant: "newspaper", Field: "location", Message: "is required for a local paper"}
		}
		params["query_location"] = params["location"]
	default:
		return &InputError{
			Variant: "newspaper",
			Field:   "scope",
			Message: fmt.Sprintf("must be one of %s, %s or %s", ScopeGlobal, ScopeNational, ScopeLocal),
		}
	}
	params["scope"] = scope

	topics := SplitTopics(params["topics"])
	if len(topics) == 0 {
		return &InputError{Variant: "newspaper", Field: "topics", Message: "select at least one topic"}
	}
	params["topics"] = strings.Join(topics, ", ")
	for i, topic := range topics {
		params[topicParam(i)] = topic
	}
	return deriveDate(params, opts)
}

func topicParam(i int) string {
	return fmt.Sprintf("topic_%d", i+1)
}

// topicSlug turns a topic into a task id fragment.
func topicSlug(topic string, i int) string {
	lower := cases.Lower(language.Und).String(topic)
	var sb strings.Builder
	dash := false
	for _, r := range lower {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			dash = false
			continue
		}
		if sb.Len() > 0 && !dash {
			sb.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(sb.String(), "-")
	if slug == "" {
		return fmt.Sprintf("topic-%d", i+1)
	}
	return slug
}

func buildNewspaper(params map[string]string) (*pipeline.Pipeline, error) {
	topics := SplitTopics(params["topics"])
	if len(topics) == 0 {
		return nil, &InputError{Variant: "newspaper", Field: "topics", Message: "select at least one topic"}
	}

	p := &pipeline.Pipeline{
		Name:        "newspaper",
		Description: "Newspaper",
		Inputs:      []string{"scope", "query_location", "date"},
		Roles: map[string]*pipeline.Role{
			"editor": role(
				"Managing Editor",
				"Oversee a {{ .scope }} newspaper and make sure every article is relevant, accurate and well written.",
				"Decades at major news outlets made you the final word on a story. You hold the team to strict journalistic standards.",
			),
			"wire": role(
				"News Wire Service",
				"Scan the web for the latest, most significant stories and deliver raw, verifiable headlines and facts.",
				"The digital equivalent of a wire agency, first to know about any breaking event. You find information; you do not write articles.",
				toolSearch,
			),
		},
		Tasks: []*pipeline.Task{
			task("fetch-news", "wire",
				"Fetch the most recent and significant news for a {{ .scope }} newspaper focused on {{ .query_location }}. "+
					"The current date is {{ .date }}; the information must be as current as possible. "+
					"Cover general news, politics, business, technology, sports and culture. "+
					"List the key headlines with their source and a short summary of each story for the reporters to build on.",
				"A structured list of current stories, each with a headline, a source URL and a one-sentence summary.",
				[]string{"scope", "query_location", "date"}),
		},
	}
	p.Tasks[0].SearchQuery = "latest news {{ .query_location }} {{ .date }}"

	reports := make([]string, 0, len(topics))
	used := make(map[string]bool)
	for i, topic := range topics {
		key := topicParam(i)
		base := topicSlug(topic, i)
		slug := base
		for n := 2; used[slug]; n++ {
			slug = fmt.Sprintf("%s-%d", base, n)
		}
		used[slug] = true
		roleKey := "reporter-" + slug
		taskID := "report-" + slug

		p.Inputs = append(p.Inputs, key)
		p.Roles[roleKey] = role(
			"{{ title ."+key+" }} Reporter",
			"Write accurate, engaging articles on {{ ."+key+" }} for a {{ .scope }} audience.",
			"A seasoned journalist specialized in {{ ."+key+" }}. You know the key players and trends and turn wire copy into clear, compelling stories.",
			toolSearch,
		)
		t := task(taskID, roleKey,
			"Using the news wire data, pick the single most important story for your beat: '{{ ."+key+" }}'. "+
				"Write a concise news article on it for a {{ .scope }} newspaper. The article MUST include:\n"+
				"1. A catchy but informative headline.\n"+
				"2. A byline naming your role, for example \"By the {{ title ."+key+" }} Reporter\".\n"+
				"3. A body of 2-3 paragraphs covering who, what, when, where and why.\n"+
				"Stay objective and base the article strictly on the wire data.",
			"A news article with headline, byline and a 2-3 paragraph body.",
			[]string{key, "scope"}, "fetch-news")
		t.SearchQuery = "{{ ." + key + " }} news {{ .query_location }}"
		p.Tasks = append(p.Tasks, t)
		reports = append(reports, taskID)
	}

	editing := task("editing", "editor",
		"Review all articles from the reporters and assemble them into one newspaper in Markdown. "+
			"Start with a main title for the paper as a level one heading, dated {{ .date }}. "+
			"Present each article under its own section heading such as \"## Top Story\" or \"## Business\". "+
			"Check the formatting and make the paper read as a whole.",
		"A single well-formatted Markdown document containing the complete newspaper.",
		[]string{"date"}, reports...)
	editing.OutputPath = "final_newspaper.md"
	p.Tasks = append(p.Tasks, editing)
	return p, nil
}
