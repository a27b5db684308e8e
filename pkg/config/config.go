package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingCredentials is returned when a provider is selected but its
// API key is not set in the environment.
var ErrMissingCredentials = errors.New("missing credentials")

// Config holds the application configuration. Secrets come only from the
// environment; config.yaml carries non-secret defaults.
type Config struct {
	AnthropicAPIKey    string
	OpenAIAPIKey       string
	GoogleAPIKey       string
	DeepSeekAPIKey     string
	OpenRouterAPIKey   string
	SerperAPIKey       string
	TavilyAPIKey       string
	OllamaHost         string
	GoogleCloudProject string

	Defaults  Defaults
	ConfigDir string
}

// Defaults represents the structure of ~/.crewforge/config.yaml.
type Defaults struct {
	Adapter     string       `yaml:"adapter,omitempty"`
	Model       string       `yaml:"model,omitempty"`
	Temperature *float64     `yaml:"temperature,omitempty"`
	OutputDir   string       `yaml:"output_dir,omitempty"`
	EvidenceDir string       `yaml:"evidence_dir,omitempty"`
	Search      SearchConfig `yaml:"search,omitempty"`
	Image       ImageConfig  `yaml:"image,omitempty"`
	Server      ServerConfig `yaml:"server,omitempty"`
}

// SearchConfig selects the web search provider.
type SearchConfig struct {
	Provider   string `yaml:"provider,omitempty"`
	MaxResults int    `yaml:"max_results,omitempty"`
}

// ImageConfig configures image generation on Vertex AI.
type ImageConfig struct {
	Project     string `yaml:"project,omitempty"`
	Location    string `yaml:"location,omitempty"`
	Model       string `yaml:"model,omitempty"`
	AspectRatio string `yaml:"aspect_ratio,omitempty"`
}

// ServerConfig configures the form server.
type ServerConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// adapterEnv maps adapter names to the variable holding their key.
var adapterEnv = map[string]string{
	"anthropic":  "ANTHROPIC_API_KEY",
	"openai":     "OPENAI_API_KEY",
	"google":     "GEMINI_API_KEY",
	"deepseek":   "DEEPSEEK_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
	"serper":     "SERPER_API_KEY",
	"tavily":     "TAVILY_API_KEY",
}

// Load reads .env from the working directory, then the config file, then
// the environment. Variables already set are never overridden by .env.
func Load() (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	if err := LoadDotenv(".env"); err != nil {
		return nil, err
	}
	return loadFrom(configDir)
}

// LoadDotenv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func LoadDotenv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func loadFrom(configDir string) (*Config, error) {
	defaults, err := loadDefaults(filepath.Join(configDir, "config.yaml"))
	if err != nil {
		return nil, err
	}

	google := os.Getenv("GEMINI_API_KEY")
	if google == "" {
		google = os.Getenv("GOOGLE_API_KEY")
	}

	cfg := &Config{
		AnthropicAPIKey:    os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		GoogleAPIKey:       google,
		DeepSeekAPIKey:     os.Getenv("DEEPSEEK_API_KEY"),
		OpenRouterAPIKey:   os.Getenv("OPENROUTER_API_KEY"),
		SerperAPIKey:       os.Getenv("SERPER_API_KEY"),
		TavilyAPIKey:       os.Getenv("TAVILY_API_KEY"),
		OllamaHost:         os.Getenv("OLLAMA_HOST"),
		GoogleCloudProject: getEnvOrDefault("GOOGLE_CLOUD_PROJECT", defaults.Image.Project),
		Defaults:           *defaults,
		ConfigDir:          configDir,
	}
	return cfg, nil
}

// APIKey returns the configured key for an adapter or tool provider.
func (c *Config) APIKey(name string) string {
	switch name {
	case "anthropic":
		return c.AnthropicAPIKey
	case "openai":
		return c.OpenAIAPIKey
	case "google":
		return c.GoogleAPIKey
	case "deepseek":
		return c.DeepSeekAPIKey
	case "openrouter":
		return c.OpenRouterAPIKey
	case "serper":
		return c.SerperAPIKey
	case "tavily":
		return c.TavilyAPIKey
	default:
		return ""
	}
}

// HasAdapter returns true if the adapter can be constructed. Ollama and
// mock need no key.
func (c *Config) HasAdapter(name string) bool {
	switch name {
	case "ollama", "mock":
		return true
	default:
		return c.APIKey(name) != ""
	}
}

// RequireAdapter returns ErrMissingCredentials naming the variable to set
// when the adapter has no key.
func (c *Config) RequireAdapter(name string) error {
	if c.HasAdapter(name) {
		return nil
	}
	env, ok := adapterEnv[name]
	if !ok {
		return fmt.Errorf("unknown adapter %q", name)
	}
	return fmt.Errorf("%w: %s is not set", ErrMissingCredentials, env)
}

// AvailableAdapters lists the model adapters that can be constructed.
func (c *Config) AvailableAdapters() []string {
	var out []string
	for _, name := range []string{"anthropic", "openai", "google", "deepseek", "openrouter", "ollama", "mock"} {
		if c.HasAdapter(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// loadDefaults reads the config file, returning empty defaults if not found.
func loadDefaults(path string) (*Defaults, error) {
	defaults := &Defaults{}

	data, err := os.ReadFile(path)
	if err != nil {
		return defaults, nil
	}
	if err := yaml.Unmarshal(data, defaults); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return defaults, nil
}

// getEnvOrDefault returns the environment variable value if set,
// otherwise returns the default value.
func getEnvOrDefault(envVar, defaultValue string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultValue
}

func getConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".crewforge"), nil
}
