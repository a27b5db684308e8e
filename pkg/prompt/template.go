// Package prompt renders task descriptions from named string parameters.
package prompt

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrMissingParameter is matched by every MissingParameterError.
var ErrMissingParameter = errors.New("missing parameter")

// MissingParameterError reports a parameter the caller did not supply.
type MissingParameterError struct {
	Name string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing parameter %q", e.Name)
}

func (e *MissingParameterError) Is(target error) bool {
	return target == ErrMissingParameter
}

// Template describes one task prompt.
type Template struct {
	Description    string   `yaml:"description"`
	ExpectedOutput string   `yaml:"expected_output"`
	Params         []string `yaml:"params,omitempty"`
}

// Rendered is a template with every parameter substituted.
type Rendered struct {
	Description    string
	ExpectedOutput string
}

// String joins description and expected output into a single prompt body.
func (r Rendered) String() string {
	if r.ExpectedOutput == "" {
		return r.Description
	}
	return r.Description + "\n\nExpected output: " + r.ExpectedOutput
}

// Render substitutes params into both template strings.
// Every name in t.Params must be present in params.
func (t Template) Render(params map[string]string) (Rendered, error) {
	for _, name := range t.Params {
		if _, ok := params[name]; !ok {
			return Rendered{}, &MissingParameterError{Name: name}
		}
	}

	desc, err := RenderString(t.Description, params)
	if err != nil {
		return Rendered{}, fmt.Errorf("description: %w", err)
	}
	expected, err := RenderString(t.ExpectedOutput, params)
	if err != nil {
		return Rendered{}, fmt.Errorf("expected output: %w", err)
	}
	return Rendered{Description: desc, ExpectedOutput: expected}, nil
}

// Validate parses both template strings without executing them.
func (t Template) Validate() error {
	if strings.TrimSpace(t.Description) == "" {
		return fmt.Errorf("description is required")
	}
	if _, err := parse(t.Description); err != nil {
		return fmt.Errorf("description: %w", err)
	}
	if _, err := parse(t.ExpectedOutput); err != nil {
		return fmt.Errorf("expected output: %w", err)
	}
	return nil
}

// RenderString renders a single template string against params.
// A reference to an absent key fails with a MissingParameterError.
func RenderString(text string, params map[string]string) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}
	tmpl, err := parse(text)
	if err != nil {
		return "", err
	}

	data := make(map[string]string, len(params))
	for k, v := range params {
		data[k] = v
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		if name, ok := missingKey(err); ok {
			return "", &MissingParameterError{Name: name}
		}
		return "", err
	}
	return sb.String(), nil
}

// Keys returns the sorted parameter names of params.
func Keys(params map[string]string) []string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func parse(text string) (*template.Template, error) {
	return template.New("prompt").
		Option("missingkey=error").
		Funcs(funcs()).
		Parse(text)
}

func funcs() template.FuncMap {
	lower := cases.Lower(language.Und)
	upper := cases.Upper(language.Und)
	title := cases.Title(language.Und)
	return template.FuncMap{
		"lower": lower.String,
		"upper": upper.String,
		"title": title.String,
	}
}

// missingKey extracts the key name from text/template's
// `map has no entry for key "x"` error.
func missingKey(err error) (string, bool) {
	msg := err.Error()
	const marker = "map has no entry for key "
	idx := strings.Index(msg, marker)
	if idx < 0 {
		return "", false
	}
	name := strings.Trim(msg[idx+len(marker):], "\" ")
	return name, true
}
