package studio

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/zen-systems/crewforge/pkg/adapter"
	"github.com/zen-systems/crewforge/pkg/config"
	"github.com/zen-systems/crewforge/pkg/tool"
)

// CreateAdapters constructs every adapter whose credentials are present.
// Ollama and mock are always available.
func CreateAdapters(ctx context.Context, cfg *config.Config) (map[string]adapter.Adapter, error) {
	adapters := make(map[string]adapter.Adapter)

	if cfg.AnthropicAPIKey != "" {
		a, err := adapter.NewAnthropicAdapter(cfg.AnthropicAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create anthropic adapter: %w", err)
		}
		adapters["anthropic"] = a
	}

	if cfg.OpenAIAPIKey != "" {
		a, err := adapter.NewOpenAIAdapter(cfg.OpenAIAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai adapter: %w", err)
		}
		adapters["openai"] = a
	}

	if cfg.GoogleAPIKey != "" {
		a, err := adapter.NewGoogleAdapter(ctx, cfg.GoogleAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create google adapter: %w", err)
		}
		adapters["google"] = a
	}

	if cfg.DeepSeekAPIKey != "" {
		a, err := adapter.NewDeepSeekAdapter(cfg.DeepSeekAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create deepseek adapter: %w", err)
		}
		adapters["deepseek"] = a
	}

	if cfg.OpenRouterAPIKey != "" {
		a, err := adapter.NewOpenRouterAdapter(cfg.OpenRouterAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create openrouter adapter: %w", err)
		}
		adapters["openrouter"] = a
	}

	adapters["ollama"] = adapter.NewOllamaAdapter(cfg.OllamaHost)
	adapters["mock"] = adapter.NewMockAdapter()

	return adapters, nil
}

// SelectTarget resolves the adapter and model to run with. ref may be an
// alias, a provider/model reference or a bare model; when empty the
// configured default is used, then the first keyed provider.
func SelectTarget(cfg *config.Config, ref string, adapters map[string]adapter.Adapter) (config.Target, error) {
	aliases, err := config.LoadAliasesWithFallback()
	if err != nil {
		return config.Target{}, err
	}

	if strings.TrimSpace(ref) == "" {
		ref = cfg.Defaults.Model
	}
	defaultAdapter := cfg.Defaults.Adapter

	if ref != "" {
		target, err := aliases.ResolveRef(ref, defaultAdapter)
		if err != nil {
			return config.Target{}, err
		}
		return target, nil
	}

	if defaultAdapter == "" {
		for _, name := range adapterPreference {
			if _, ok := adapters[name]; ok {
				defaultAdapter = name
				break
			}
		}
	}
	if defaultAdapter == "" {
		return config.Target{}, fmt.Errorf("%w: set one of GEMINI_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY, DEEPSEEK_API_KEY or OPENROUTER_API_KEY, or pass --model ollama/<model>",
			config.ErrMissingCredentials)
	}

	target := config.Target{Adapter: defaultAdapter}
	if models := aliases.GetProviderModels(defaultAdapter); len(models) > 0 {
		target.Model = models[0]
	}
	return target, nil
}

// CreateTools builds the web tools from the configured search provider.
// Without a search key no tools are available and tasks run without
// research notes.
func CreateTools(cfg *config.Config, logger *zap.Logger) map[string]tool.Tool {
	if logger == nil {
		logger = zap.NewNop()
	}

	provider := strings.ToLower(cfg.Defaults.Search.Provider)
	if provider == "" {
		provider = "serper"
		if cfg.SerperAPIKey == "" && cfg.TavilyAPIKey != "" {
			provider = "tavily"
		}
	}

	var searcher tool.Searcher
	switch provider {
	case "serper":
		if cfg.SerperAPIKey != "" {
			searcher = tool.NewSerperSearcher(cfg.SerperAPIKey, tool.WithSerperMaxResults(cfg.Defaults.Search.MaxResults))
		}
	case "tavily":
		if cfg.TavilyAPIKey != "" {
			searcher = tool.NewTavilySearcher(cfg.TavilyAPIKey, tool.WithTavilyMaxResults(cfg.Defaults.Search.MaxResults))
		}
	default:
		logger.Warn("unknown search provider", zap.String("provider", provider))
	}

	tools := make(map[string]tool.Tool)
	if searcher == nil {
		logger.Info("web search disabled", zap.String("provider", provider))
		return tools
	}
	for _, t := range []tool.Tool{tool.NewSearchTool(searcher), tool.NewScrapeTool(searcher)} {
		tools[t.Name()] = t
	}
	return tools
}
