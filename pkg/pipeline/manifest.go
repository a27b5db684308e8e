package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadManifest reads a pipeline definition from a YAML file.
func LoadManifest(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseManifest(data)
}

// ParseManifest decodes a YAML pipeline definition. Roles without a name
// take their map key.
func ParseManifest(data []byte) (*Pipeline, error) {
	var pipeline Pipeline
	if err := yaml.Unmarshal(data, &pipeline); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	for key, role := range pipeline.Roles {
		if role == nil {
			return nil, invalid("role %s is empty", key)
		}
		if role.Name == "" {
			role.Name = key
		}
	}

	return &pipeline, nil
}
