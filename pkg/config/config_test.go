package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

var keyVars = []string{
	"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY",
	"DEEPSEEK_API_KEY", "OPENROUTER_API_KEY", "SERPER_API_KEY", "TAVILY_API_KEY",
	"OLLAMA_HOST", "GOOGLE_CLOUD_PROJECT",
}

func clearKeys(t *testing.T) {
	t.Helper()
	for _, v := range keyVars {
		t.Setenv(v, "")
	}
}

func TestConfigIgnoresFileAPIKeys(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)
	clearKeys(t)

	configDir := filepath.Join(home, ".crewforge")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	data := []byte("api_keys:\n  anthropic: file-ant\n  openai: file-openai\nadapter: google\nmodel: gemini-2.5-flash\ntemperature: 0.4\nimage:\n  project: my-project\n  aspect_ratio: \"1:1\"\n")
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), data, 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadFrom(configDir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AnthropicAPIKey != "" || cfg.OpenAIAPIKey != "" {
		t.Fatalf("expected file API keys to be ignored")
	}
	if cfg.Defaults.Adapter != "google" || cfg.Defaults.Model != "gemini-2.5-flash" {
		t.Fatalf("expected file defaults, got %+v", cfg.Defaults)
	}
	if cfg.Defaults.Temperature == nil || *cfg.Defaults.Temperature != 0.4 {
		t.Fatalf("expected temperature default")
	}
	if cfg.GoogleCloudProject != "my-project" {
		t.Fatalf("expected project from file, got %q", cfg.GoogleCloudProject)
	}
}

func TestConfigUsesEnvAPIKeys(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)
	clearKeys(t)

	t.Setenv("ANTHROPIC_API_KEY", "env-ant")
	t.Setenv("OPENAI_API_KEY", "env-openai")
	t.Setenv("GOOGLE_API_KEY", "env-google")
	t.Setenv("DEEPSEEK_API_KEY", "env-deepseek")
	t.Setenv("SERPER_API_KEY", "env-serper")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "env-project")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AnthropicAPIKey != "env-ant" || cfg.OpenAIAPIKey != "env-openai" || cfg.GoogleAPIKey != "env-google" || cfg.DeepSeekAPIKey != "env-deepseek" {
		t.Fatalf("expected env API keys to be used")
	}
	if cfg.APIKey("serper") != "env-serper" || cfg.GoogleCloudProject != "env-project" {
		t.Fatalf("expected tool keys from env")
	}
}

func TestGeminiKeyTakesPrecedence(t *testing.T) {
	setHomeEnv(t, t.TempDir())
	clearKeys(t)
	t.Setenv("GEMINI_API_KEY", "gemini")
	t.Setenv("GOOGLE_API_KEY", "google")

	cfg, err := loadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GoogleAPIKey != "gemini" {
		t.Fatalf("expected GEMINI_API_KEY, got %q", cfg.GoogleAPIKey)
	}
}

func TestRequireAdapter(t *testing.T) {
	cfg := &Config{OpenAIAPIKey: "k"}

	if err := cfg.RequireAdapter("openai"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.RequireAdapter("mock"); err != nil {
		t.Fatalf("mock needs no key: %v", err)
	}
	err := cfg.RequireAdapter("google")
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	if err == nil || !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Fatalf("error should name the variable: %v", err)
	}
	if err := cfg.RequireAdapter("bogus"); err == nil || errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected unknown adapter error, got %v", err)
	}

	got := cfg.AvailableAdapters()
	want := []string{"mock", "ollama", "openai"}
	if len(got) != len(want) {
		t.Fatalf("AvailableAdapters() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("AvailableAdapters() = %v, want %v", got, want)
		}
	}
}

func TestLoadDotenvDoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("SERPER_API_KEY=from-file\nTAVILY_API_KEY=tavily-file\n"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("SERPER_API_KEY", "from-env")
	t.Setenv("TAVILY_API_KEY", "")
	os.Unsetenv("TAVILY_API_KEY")

	if err := LoadDotenv(path); err != nil {
		t.Fatalf("LoadDotenv() error = %v", err)
	}
	if got := os.Getenv("SERPER_API_KEY"); got != "from-env" {
		t.Fatalf("existing variable overridden: %q", got)
	}
	if got := os.Getenv("TAVILY_API_KEY"); got != "tavily-file" {
		t.Fatalf("expected value from .env, got %q", got)
	}

	if err := LoadDotenv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}
}

func TestInvalidConfigFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("adapter: [oops"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := loadFrom(dir); err == nil {
		t.Fatal("expected parse error")
	}
}

func setHomeEnv(t *testing.T, home string) {
	t.Helper()
	t.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}
}
