package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/zen-systems/crewforge/pkg/adapter"
)

// ErrInvalidPipeline is wrapped by every validation failure.
var ErrInvalidPipeline = errors.New("invalid pipeline")

// Pipeline is an ordered set of tasks and the roles that perform them.
// Tasks run in declared order, which must be a topological order of
// their dependencies.
type Pipeline struct {
	Name           string           `yaml:"name"`
	Description    string           `yaml:"description"`
	Inputs         []string         `yaml:"inputs,omitempty"`
	Roles          map[string]*Role `yaml:"roles"`
	Tasks          []*Task          `yaml:"tasks"`
	DefaultAdapter string           `yaml:"default_adapter,omitempty"`
	DefaultModel   string           `yaml:"default_model,omitempty"`
	Temperature    *float64         `yaml:"temperature,omitempty"`

	Adapters map[string]adapter.Adapter `yaml:"-"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidPipeline, fmt.Sprintf(format, args...))
}

// Validate checks the pipeline definition. A task may only depend on tasks
// declared before it.
func (p *Pipeline) Validate() error {
	if p == nil {
		return invalid("pipeline is nil")
	}
	if p.Name == "" {
		return invalid("pipeline name is required")
	}
	if len(p.Tasks) == 0 {
		return invalid("pipeline must define at least one task")
	}

	for key, role := range p.Roles {
		if err := role.Validate(); err != nil {
			return invalid("role %s: %v", key, err)
		}
	}

	declared := make(map[string]int, len(p.Tasks))
	for i, task := range p.Tasks {
		if task == nil {
			return invalid("task %d is nil", i)
		}
		if task.ID == "" {
			return invalid("task %d has no id", i)
		}
		if _, ok := declared[task.ID]; ok {
			return invalid("duplicate task id: %s", task.ID)
		}
		if _, ok := p.Roles[task.Role]; !ok {
			return invalid("task %s references unknown role %q", task.ID, task.Role)
		}
		if err := task.Template.Validate(); err != nil {
			return invalid("task %s: %v", task.ID, err)
		}

		seenDeps := make(map[string]struct{}, len(task.DependsOn))
		for _, dep := range task.DependsOn {
			if dep == task.ID {
				return invalid("task %s depends on itself", task.ID)
			}
			if _, ok := seenDeps[dep]; ok {
				return invalid("task %s lists dependency %s twice", task.ID, dep)
			}
			seenDeps[dep] = struct{}{}
			if _, ok := declared[dep]; !ok {
				if p.hasTask(dep) {
					return invalid("task %s depends on %s, which is declared later", task.ID, dep)
				}
				return invalid("task %s depends on unknown task %s", task.ID, dep)
			}
		}
		declared[task.ID] = i
	}

	return nil
}

func (p *Pipeline) hasTask(id string) bool {
	_, ok := p.Task(id)
	return ok
}

// Task returns the task with the given id.
func (p *Pipeline) Task(id string) (*Task, bool) {
	for _, task := range p.Tasks {
		if task != nil && task.ID == id {
			return task, true
		}
	}
	return nil, false
}

// Order returns the task ids in execution order.
func (p *Pipeline) Order() []string {
	ids := make([]string, 0, len(p.Tasks))
	for _, task := range p.Tasks {
		ids = append(ids, task.ID)
	}
	return ids
}

// Terminal returns the last declared task, whose text is the run's result.
func (p *Pipeline) Terminal() *Task {
	if len(p.Tasks) == 0 {
		return nil
	}
	return p.Tasks[len(p.Tasks)-1]
}

// RequiredParams returns every parameter name the pipeline declares,
// either as an input or as a task template parameter.
func (p *Pipeline) RequiredParams() []string {
	seen := make(map[string]struct{})
	for _, name := range p.Inputs {
		seen[name] = struct{}{}
	}
	for _, task := range p.Tasks {
		for _, name := range task.Template.Params {
			seen[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		if strings.TrimSpace(name) != "" {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
