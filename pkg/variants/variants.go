// Package variants holds the built-in crews: each variant turns a handful of
// form fields into a ready-to-run pipeline.
package variants

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zen-systems/crewforge/pkg/pipeline"
)

// ErrUnknownVariant is returned by Lookup for names not in the catalog.
var ErrUnknownVariant = errors.New("unknown variant")

// InputError reports a form field the user left empty or filled with an
// unsupported value.
type InputError struct {
	Variant string
	Field   string
	Message string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Variant, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Variant, e.Field, e.Message)
}

// FieldKind tells a form how to render a field.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindTextArea FieldKind = "textarea"
	KindSelect   FieldKind = "select"
	KindMulti    FieldKind = "multi"
)

// Field is one form input of a variant.
type Field struct {
	Name     string
	Label    string
	Help     string
	Kind     FieldKind
	Options  []string
	Default  string
	Required bool
}

// Options adjusts how a variant builds its pipeline.
type Options struct {
	// Now supplies the current date for prompts that mention it.
	Now time.Time
	// Temperature overrides the variant's sampling temperature.
	Temperature *float64
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

// Job is a built pipeline together with the parameters it runs with.
type Job struct {
	Variant  *Variant
	Pipeline *pipeline.Pipeline
	Params   map[string]string
}

// Variant is one entry of the catalog.
type Variant struct {
	Name        string
	Title       string
	Description string
	Fields      []Field

	// AtLeastOne lists fields of which at least one must be non-empty.
	AtLeastOne []string

	// ImageTask names the task whose text is an image-model prompt.
	ImageTask string

	temperature float64
	derive      func(params map[string]string, opts Options) error
	build       func(params map[string]string) (*pipeline.Pipeline, error)
}

// Field returns the named field.
func (v *Variant) Field(name string) (Field, bool) {
	for _, f := range v.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Resolve trims the user's input, fills defaults and derived parameters,
// and rejects empty required fields.
func (v *Variant) Resolve(input map[string]string, opts Options) (map[string]string, error) {
	params := make(map[string]string, len(input)+len(v.Fields))
	for k, val := range input {
		params[k] = strings.TrimSpace(val)
	}

	for _, f := range v.Fields {
		val, ok := params[f.Name]
		if !ok {
			val = f.Default
			params[f.Name] = val
		}
		if f.Required && val == "" {
			return nil, &InputError{Variant: v.Name, Field: f.Name, Message: "is required"}
		}
		if f.Kind == KindSelect && val != "" {
			option, ok := matchOption(f.Options, val)
			if !ok {
				return nil, &InputError{
					Variant: v.Name,
					Field:   f.Name,
					Message: fmt.Sprintf("must be one of %s", strings.Join(f.Options, ", ")),
				}
			}
			params[f.Name] = option
		}
	}

	if len(v.AtLeastOne) > 0 {
		found := false
		for _, name := range v.AtLeastOne {
			if params[name] != "" {
				found = true
				break
			}
		}
		if !found {
			return nil, &InputError{
				Variant: v.Name,
				Message: fmt.Sprintf("at least one of %s is required", strings.Join(v.AtLeastOne, ", ")),
			}
		}
	}

	if v.derive != nil {
		if err := v.derive(params, opts); err != nil {
			return nil, err
		}
	}
	return params, nil
}

// Build creates the variant's pipeline for params already passed through
// Resolve.
func (v *Variant) Build(params map[string]string, opts Options) (*pipeline.Pipeline, error) {
	p, err := v.build(params)
	if err != nil {
		return nil, err
	}
	temp := v.temperature
	if opts.Temperature != nil {
		temp = *opts.Temperature
	}
	p.Temperature = &temp
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("variant %s: %w", v.Name, err)
	}
	return p, nil
}

// Prepare resolves input and builds the pipeline in one step.
func (v *Variant) Prepare(input map[string]string, opts Options) (*Job, error) {
	params, err := v.Resolve(input, opts)
	if err != nil {
		return nil, err
	}
	p, err := v.Build(params, opts)
	if err != nil {
		return nil, err
	}
	return &Job{Variant: v, Pipeline: p, Params: params}, nil
}

// Catalog returns every built-in variant sorted by name.
func Catalog() []*Variant {
	all := []*Variant{
		bibleStudy(),
		book(),
		worshipSong(),
		song(),
		flyer(),
		newspaper(),
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

// Lookup returns the variant with the given name.
func Lookup(name string) (*Variant, error) {
	for _, v := range Catalog() {
		if v.Name == name {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownVariant, name)
}

// Names lists the catalog's variant names.
func Names() []string {
	all := Catalog()
	names := make([]string, 0, len(all))
	for _, v := range all {
		names = append(names, v.Name)
	}
	return names
}

// matchOption returns the option equal to val ignoring case.
func matchOption(options []string, val string) (string, bool) {
	for _, opt := range options {
		if strings.EqualFold(opt, val) {
			return opt, true
		}
	}
	return "", false
}

func task(id, role, description, expected string, params []string, deps ...string) *pipeline.Task {
	t := &pipeline.Task{ID: id, Role: role, DependsOn: deps}
	t.Template.Description = description
	t.Template.ExpectedOutput = expected
	t.Template.Params = params
	return t
}

func role(name, objective, persona string, tools ...string) *pipeline.Role {
	return &pipeline.Role{Name: name, Objective: objective, Persona: persona, Tools: tools}
}

var languages = []string{"English", "German", "French", "Spanish", "Italian", "Portuguese", "Swahili"}
