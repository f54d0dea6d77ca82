package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"go.uber.org/zap"

	"toolgate/internal/domain"
)

// Factory builds live eino chat models from chain entries. Credentials
// come from the resolver's environment variables at call time, so a key
// exported after process start is picked up.
type Factory struct {
	resolver *EnvResolver
	logger   *zap.Logger
}

func NewFactory(resolver *EnvResolver, logger *zap.Logger) *Factory {
	if resolver == nil {
		panic("llm.NewFactory requires a resolver")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{
		resolver: resolver,
		logger:   logger.Named("llm"),
	}
}

func (f *Factory) NewChatModel(ctx context.Context, config domain.ModelConfig, temperature *float32) (model.ToolCallingChatModel, error) {
	env, ok := f.resolver.settings(config.Provider)
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", config.Provider)
	}

	apiKey := strings.TrimSpace(f.resolver.lookup(env.APIKeyEnv))
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in env var %s", env.APIKeyEnv)
	}

	cfg := &openai.ChatModelConfig{
		Model:       config.Model,
		APIKey:      apiKey,
		Temperature: temperature,
	}

	switch config.Provider {
	case "openai":
		if env.BaseURL != "" {
			cfg.BaseURL = env.BaseURL
		}
	case "azure":
		endpoint := strings.TrimSpace(f.resolver.lookup(env.EndpointEnv))
		if endpoint == "" {
			return nil, fmt.Errorf("endpoint not found in env var %s", env.EndpointEnv)
		}
		cfg.ByAzure = true
		cfg.BaseURL = endpoint
		cfg.APIVersion = env.APIVersion
	default:
		return nil, fmt.Errorf("unsupported provider: %s", config.Provider)
	}

	return openai.NewChatModel(ctx, cfg)
}

var _ domain.ChatModelFactory = (*Factory)(nil)
