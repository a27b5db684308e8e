package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolve(t *testing.T) {
	aliases := &ModelAliases{
		Aliases: map[string]string{
			"fast":    "gemini/gemini-2.5-flash",
			"quality": "claude-sonnet-4-20250514",
		},
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"resolve known alias", "fast", "gemini/gemini-2.5-flash"},
		{"resolve another alias", "quality", "claude-sonnet-4-20250514"},
		{"unknown alias returns input unchanged", "unknown-model", "unknown-model"},
		{"canonical model returns unchanged", "gpt-4o", "gpt-4o"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := aliases.Resolve(tt.input)
			if result != tt.expected {
				t.Errorf("Resolve(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestResolve_NilAliases(t *testing.T) {
	var aliases *ModelAliases
	if result := aliases.Resolve("fast"); result != "fast" {
		t.Errorf("Resolve on nil should return input, got %q", result)
	}
}

func TestResolveRef(t *testing.T) {
	aliases := DefaultAliases()

	tests := []struct {
		ref            string
		defaultAdapter string
		want           Target
	}{
		{"gemini/gemini-2.5-flash", "", Target{"google", "gemini-2.5-flash"}},
		{"fast", "", Target{"google", "gemini-2.5-flash"}},
		{"fallback", "", Target{"openrouter", "google/gemini-2.5-flash"}},
		{"openrouter/anthropic/claude-sonnet-4", "", Target{"openrouter", "anthropic/claude-sonnet-4"}},
		{"deepseek-chat", "", Target{"deepseek", "deepseek-chat"}},
		{"gpt-4o", "", Target{"openai", "gpt-4o"}},
		{"my-finetune", "openai", Target{"openai", "my-finetune"}},
		{"offline", "", Target{"mock", "mock-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := aliases.ResolveRef(tt.ref, tt.defaultAdapter)
			if err != nil {
				t.Fatalf("ResolveRef(%q) error = %v", tt.ref, err)
			}
			if got != tt.want {
				t.Errorf("ResolveRef(%q) = %v, want %v", tt.ref, got, tt.want)
			}
		})
	}

	if _, err := aliases.ResolveRef("mystery-model", ""); err == nil {
		t.Error("expected error for unknown model without default adapter")
	}
	if _, err := aliases.ResolveRef("  ", "openai"); err == nil {
		t.Error("expected error for empty reference")
	}
}

func TestValidateModel(t *testing.T) {
	aliases := DefaultAliases()

	if err := aliases.ValidateModel("google", "gemini-2.5-pro"); err != nil {
		t.Errorf("ValidateModel() unexpected error: %v", err)
	}
	if err := aliases.ValidateModel("google", "gpt-4o"); err == nil {
		t.Error("expected error for model outside provider list")
	}
	if err := aliases.ValidateModel("nope", "x"); err == nil {
		t.Error("expected error for unknown adapter")
	}

	var nilAliases *ModelAliases
	if err := nilAliases.ValidateModel("google", "anything"); err != nil {
		t.Errorf("nil aliases should skip validation, got %v", err)
	}
}

func TestDefaultAliasesResolveToKnownModels(t *testing.T) {
	aliases := DefaultAliases()
	for alias := range aliases.ListAliases() {
		target, err := aliases.ResolveRef(alias, "")
		if err != nil {
			t.Errorf("alias %s: %v", alias, err)
			continue
		}
		if err := aliases.ValidateModel(target.Adapter, target.Model); err != nil {
			t.Errorf("alias %s: %v", alias, err)
		}
	}
}

func TestListProviders(t *testing.T) {
	got := DefaultAliases().ListProviders()
	if len(got) == 0 || got[0] != "anthropic" {
		t.Fatalf("expected sorted providers, got %v", got)
	}
	if models := DefaultAliases().GetProviderModels("deepseek"); len(models) != 2 {
		t.Fatalf("unexpected deepseek models %v", models)
	}
}

func TestLoadAliases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	content := `aliases:
  house: gemini/gemini-2.5-pro
providers:
  google:
    - gemini-2.5-pro
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	aliases, err := LoadAliases(path)
	if err != nil {
		t.Fatalf("LoadAliases() error = %v", err)
	}
	if !aliases.IsAlias("house") {
		t.Error("expected house alias")
	}
	target, err := aliases.ResolveRef("house", "")
	if err != nil || target.Adapter != "google" {
		t.Fatalf("unexpected target %v (%v)", target, err)
	}
}

func TestLoadAliasesWithFallback(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)

	aliases, err := LoadAliasesWithFallback()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !aliases.IsAlias("fast") {
		t.Fatal("expected built-in catalog without a user file")
	}

	dir := filepath.Join(home, ".crewforge")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "models.yaml"), []byte("aliases:\n  mine: mock/mock-1\n"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	aliases, err = LoadAliasesWithFallback()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !aliases.IsAlias("mine") || aliases.IsAlias("fast") {
		t.Fatal("expected user catalog to replace built-in one")
	}
}
