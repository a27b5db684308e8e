package pipeline

import (
	"fmt"
	"strings"

	"github.com/zen-systems/crewforge/pkg/prompt"
)

// Role is the persona a task is performed under. Fields may reference run
// parameters with template syntax.
type Role struct {
	Name        string   `yaml:"name"`
	Objective   string   `yaml:"objective"`
	Persona     string   `yaml:"persona"`
	Tools       []string `yaml:"tools,omitempty"`
	Adapter     string   `yaml:"adapter,omitempty"`
	Model       string   `yaml:"model,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty"`
}

// NewRole creates a validated role.
func NewRole(name, objective, persona string, tools ...string) (*Role, error) {
	r := &Role{Name: name, Objective: objective, Persona: persona, Tools: tools}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks that the role has a name, objective and persona.
func (r *Role) Validate() error {
	if r == nil {
		return fmt.Errorf("role is nil")
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("role name is required")
	}
	if strings.TrimSpace(r.Objective) == "" {
		return fmt.Errorf("role %s must have an objective", r.Name)
	}
	if strings.TrimSpace(r.Persona) == "" {
		return fmt.Errorf("role %s must have a persona", r.Name)
	}
	return nil
}

// SystemPrompt renders the role into the system message sent with every
// task performed under it.
func (r *Role) SystemPrompt(params map[string]string) (string, error) {
	name, err := prompt.RenderString(r.Name, params)
	if err != nil {
		return "", fmt.Errorf("role name: %w", err)
	}
	persona, err := prompt.RenderString(r.Persona, params)
	if err != nil {
		return "", fmt.Errorf("role %s persona: %w", r.Name, err)
	}
	objective, err := prompt.RenderString(r.Objective, params)
	if err != nil {
		return "", fmt.Errorf("role %s objective: %w", r.Name, err)
	}
	return fmt.Sprintf("You are %s. %s\nYour personal goal is: %s",
		name, strings.TrimSpace(persona), strings.TrimSpace(objective)), nil
}
