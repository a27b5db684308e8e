package pipeline

import "github.com/zen-systems/crewforge/pkg/prompt"

// Task is one model invocation in a pipeline.
type Task struct {
	ID        string          `yaml:"id"`
	Role      string          `yaml:"role"`
	Template  prompt.Template `yaml:",inline"`
	DependsOn []string        `yaml:"depends_on,omitempty"`

	// OutputPath, when set, names the file the task's text is written to.
	// It is rendered with the run parameters.
	OutputPath string `yaml:"output,omitempty"`

	// SearchQuery is passed to every tool of the task's role.
	SearchQuery string `yaml:"search_query,omitempty"`
}
