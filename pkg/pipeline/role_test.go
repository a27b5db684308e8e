package pipeline

import (
	"errors"
	"strings"
	"testing"

	"github.com/zen-systems/crewforge/pkg/prompt"
)

func TestNewRole(t *testing.T) {
	if _, err := NewRole("", "goal", "persona"); err == nil {
		t.Fatalf("expected name error")
	}
	if _, err := NewRole("Editor", "", "persona"); err == nil {
		t.Fatalf("expected objective error")
	}
	if _, err := NewRole("Editor", "goal", " "); err == nil {
		t.Fatalf("expected persona error")
	}

	r, err := NewRole("Researcher", "Find sources", "Thorough.", "web_search")
	if err != nil {
		t.Fatalf("new role: %v", err)
	}
	if len(r.Tools) != 1 || r.Tools[0] != "web_search" {
		t.Fatalf("unexpected tools %v", r.Tools)
	}
}

func TestSystemPrompt(t *testing.T) {
	r := &Role{
		Name:      "{{ title .topic }} Reporter",
		Objective: "Cover {{ .topic }} for {{ .location }}.",
		Persona:   "A seasoned journalist.\n",
	}

	got, err := r.SystemPrompt(map[string]string{"topic": "sports", "location": "München"})
	if err != nil {
		t.Fatalf("system prompt: %v", err)
	}
	want := "You are Sports Reporter. A seasoned journalist.\nYour personal goal is: Cover sports for München."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	_, err = r.SystemPrompt(map[string]string{"topic": "sports"})
	if !errors.Is(err, prompt.ErrMissingParameter) || !strings.Contains(err.Error(), "location") {
		t.Fatalf("expected missing location, got %v", err)
	}
}
