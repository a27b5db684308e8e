package pipeline

import (
	"os"
	"path/filepath"
	"testing"
)

const songManifest = `name: worship-song
description: Song writing crew
inputs: [genre, topic]
default_adapter: mock
temperature: 0.7

roles:
  lyricist:
    objective: Write lyrics about {{ .topic }}
    persona: A gifted songwriter.
  producer:
    name: Music Producer
    objective: Describe a {{ .genre }} arrangement
    persona: A producer with a feel for {{ .genre }}.
    tools: [web_search]

tasks:
  - id: lyrical-concept
    role: lyricist
    description: Develop a lyrical concept about {{ .topic }}.
    expected_output: A short concept.
    params: [topic]
  - id: arrangement
    role: producer
    description: Plan a {{ .genre }} arrangement.
    expected_output: Instrumentation notes.
    search_query: "{{ .genre }} worship arrangement"
  - id: music-prompt
    role: producer
    description: Combine lyrics and arrangement into one music prompt.
    expected_output: A single prompt.
    depends_on: [lyrical-concept, arrangement]
    output: final_lyria_prompt.txt
`

func TestLoadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	if err := os.WriteFile(path, []byte(songManifest), 0644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	p, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	if p.Roles["lyricist"].Name != "lyricist" {
		t.Fatalf("role name should default to its key, got %q", p.Roles["lyricist"].Name)
	}
	if p.Roles["producer"].Name != "Music Producer" {
		t.Fatalf("explicit role name lost")
	}
	if p.Temperature == nil || *p.Temperature != 0.7 {
		t.Fatalf("temperature not decoded")
	}

	last := p.Terminal()
	if last.ID != "music-prompt" || last.OutputPath != "final_lyria_prompt.txt" {
		t.Fatalf("unexpected terminal task %+v", last)
	}
	if len(last.DependsOn) != 2 {
		t.Fatalf("unexpected dependencies %v", last.DependsOn)
	}
	if p.Tasks[0].Template.Description != "Develop a lyrical concept about {{ .topic }}." {
		t.Fatalf("inline template not decoded: %+v", p.Tasks[0].Template)
	}
	if p.Tasks[1].SearchQuery != "{{ .genre }} worship arrangement" {
		t.Fatalf("search query not decoded")
	}
}

func TestParseManifestRejectsOutOfOrderDependency(t *testing.T) {
	p, err := ParseManifest([]byte(`name: bad
roles:
  w: {objective: o, persona: p}
tasks:
  - id: a
    role: w
    description: first
    depends_on: [b]
  - id: b
    role: w
    description: second
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := p.Validate(); err == nil {
		t.Fatalf("expected validation error for later-declared dependency")
	}
}

func TestParseManifestInvalidYAML(t *testing.T) {
	if _, err := ParseManifest([]byte("name: [unclosed")); err == nil {
		t.Fatalf("expected parse error")
	}
}
