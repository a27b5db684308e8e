package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ModelAliases manages model alias resolution and validation. Alias
// targets may be plain model names or provider/model references.
type ModelAliases struct {
	Aliases   map[string]string   `yaml:"aliases"`
	Providers map[string][]string `yaml:"providers"`
}

// Target is a resolved adapter and model pair.
type Target struct {
	Adapter string
	Model   string
}

func (t Target) String() string {
	return t.Adapter + "/" + t.Model
}

// providerPrefixes maps the prefixes accepted in provider/model references
// to adapter names.
var providerPrefixes = map[string]string{
	"anthropic":  "anthropic",
	"openai":     "openai",
	"google":     "google",
	"gemini":     "google",
	"deepseek":   "deepseek",
	"openrouter": "openrouter",
	"ollama":     "ollama",
	"mock":       "mock",
}

// LoadAliases reads model aliases from a YAML file.
func LoadAliases(path string) (*ModelAliases, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var aliases ModelAliases
	if err := yaml.Unmarshal(data, &aliases); err != nil {
		return nil, err
	}

	if aliases.Aliases == nil {
		aliases.Aliases = make(map[string]string)
	}
	if aliases.Providers == nil {
		aliases.Providers = make(map[string][]string)
	}

	return &aliases, nil
}

// LoadAliasesWithFallback loads ~/.crewforge/models.yaml, falling back to
// the built-in catalog when the file does not exist.
func LoadAliasesWithFallback() (*ModelAliases, error) {
	home, err := os.UserHomeDir()
	if err == nil {
		userPath := filepath.Join(home, ".crewforge", "models.yaml")
		if _, err := os.Stat(userPath); err == nil {
			return LoadAliases(userPath)
		}
	}
	return DefaultAliases(), nil
}

// Resolve returns the canonical model name for an alias.
// If the input is not an alias, it returns the input unchanged.
func (a *ModelAliases) Resolve(modelOrAlias string) string {
	if a == nil || a.Aliases == nil {
		return modelOrAlias
	}
	if canonical, ok := a.Aliases[modelOrAlias]; ok {
		return canonical
	}
	return modelOrAlias
}

// IsAlias returns true if the given string is a known alias.
func (a *ModelAliases) IsAlias(name string) bool {
	if a == nil || a.Aliases == nil {
		return false
	}
	_, ok := a.Aliases[name]
	return ok
}

// ResolveRef turns an alias, a provider/model reference or a bare model
// name into a Target. Bare names are looked up in the provider lists and
// otherwise bound to defaultAdapter.
func (a *ModelAliases) ResolveRef(ref, defaultAdapter string) (Target, error) {
	ref = strings.TrimSpace(a.Resolve(strings.TrimSpace(ref)))
	if ref == "" {
		return Target{}, fmt.Errorf("model reference is empty")
	}

	if prefix, rest, ok := strings.Cut(ref, "/"); ok {
		if adapter, known := providerPrefixes[strings.ToLower(prefix)]; known && rest != "" {
			return Target{Adapter: adapter, Model: rest}, nil
		}
	}

	if provider := a.GetProviderForModel(ref); provider != "" {
		return Target{Adapter: provider, Model: ref}, nil
	}
	if defaultAdapter != "" {
		return Target{Adapter: defaultAdapter, Model: ref}, nil
	}
	return Target{}, fmt.Errorf("cannot determine provider for model %q", ref)
}

// ValidateModel checks if a model exists in the provider's list.
// Returns nil if valid, or an error describing the problem.
func (a *ModelAliases) ValidateModel(adapter, model string) error {
	if a == nil || a.Providers == nil {
		return nil
	}

	models, ok := a.Providers[adapter]
	if !ok {
		return fmt.Errorf("unknown adapter %q", adapter)
	}

	for _, m := range models {
		if m == model {
			return nil
		}
	}

	return fmt.Errorf("model %q not in %s provider list", model, adapter)
}

// ListAliases returns a copy of the aliases map.
func (a *ModelAliases) ListAliases() map[string]string {
	if a == nil || a.Aliases == nil {
		return make(map[string]string)
	}
	result := make(map[string]string, len(a.Aliases))
	for k, v := range a.Aliases {
		result[k] = v
	}
	return result
}

// ListProviders returns a sorted list of provider names.
func (a *ModelAliases) ListProviders() []string {
	if a == nil || a.Providers == nil {
		return nil
	}
	providers := make([]string, 0, len(a.Providers))
	for p := range a.Providers {
		providers = append(providers, p)
	}
	sort.Strings(providers)
	return providers
}

// GetProviderModels returns the models for a given provider.
func (a *ModelAliases) GetProviderModels(provider string) []string {
	if a == nil || a.Providers == nil {
		return nil
	}
	return a.Providers[provider]
}

// GetProviderForModel returns the provider name for a canonical model.
// Providers are searched in sorted order so the answer is stable.
func (a *ModelAliases) GetProviderForModel(model string) string {
	for _, provider := range a.ListProviders() {
		for _, m := range a.Providers[provider] {
			if m == model {
				return provider
			}
		}
	}
	return ""
}

// DefaultAliases returns the built-in model catalog.
func DefaultAliases() *ModelAliases {
	return &ModelAliases{
		Aliases: map[string]string{
			"fast":     "gemini/gemini-2.5-flash",
			"lite":     "gemini/gemini-2.0-flash-lite",
			"quality":  "gemini/gemini-2.5-pro",
			"claude":   "anthropic/claude-sonnet-4-20250514",
			"gpt":      "openai/gpt-4o",
			"cheap":    "deepseek/deepseek-chat",
			"reason":   "deepseek/deepseek-reasoner",
			"local":    "ollama/llama3.1",
			"offline":  "mock/mock-1",
			"fallback": "openrouter/google/gemini-2.5-flash",
		},
		Providers: map[string][]string{
			"anthropic": {"claude-sonnet-4-20250514", "claude-opus-4-20250514"},
			"openai":    {"gpt-4o", "gpt-4o-mini", "gpt-4.1"},
			"google": {
				"gemini-2.5-pro",
				"gemini-2.5-flash",
				"gemini-2.5-flash-lite-preview-06-17",
				"gemini-2.0-flash",
				"gemini-2.0-flash-001",
				"gemini-2.0-flash-lite",
				"gemini-2.0-flash-lite-001",
				"gemini-2.0-flash-exp",
			},
			"deepseek":   {"deepseek-chat", "deepseek-reasoner"},
			"openrouter": {"openai/gpt-4o", "google/gemini-2.5-flash", "anthropic/claude-sonnet-4"},
			"ollama":     {"llama3.1", "mistral", "qwen2.5"},
			"mock":       {"mock-1"},
		},
	}
}
