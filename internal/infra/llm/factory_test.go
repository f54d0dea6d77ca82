package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"toolgate/internal/domain"
)

func TestFactoryUnknownProvider(t *testing.T) {
	resolver := NewEnvResolver(nil).WithLookup(lookupFrom(nil))
	factory := NewFactory(resolver, nil)

	_, err := factory.NewChatModel(context.Background(), domain.ModelConfig{Provider: "mystery", Model: "m"}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown provider")
}

func TestFactoryMissingAPIKey(t *testing.T) {
	resolver := NewEnvResolver(nil).WithLookup(lookupFrom(nil))
	factory := NewFactory(resolver, nil)

	_, err := factory.NewChatModel(context.Background(), domain.ModelConfig{Provider: "openai", Model: "gpt-4o"}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestFactoryAzureMissingEndpoint(t *testing.T) {
	resolver := NewEnvResolver(nil).WithLookup(lookupFrom(map[string]string{
		"AZURE_OPENAI_API_KEY": "azure-key",
	}))
	factory := NewFactory(resolver, nil)

	_, err := factory.NewChatModel(context.Background(), domain.ModelConfig{Provider: "azure", Model: "gpt-4.1"}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "AZURE_OPENAI_ENDPOINT")
}

func TestFactoryBuildsOpenAIModel(t *testing.T) {
	resolver := NewEnvResolver(nil).WithLookup(lookupFrom(map[string]string{
		"OPENAI_API_KEY": "sk-test",
	}))
	factory := NewFactory(resolver, nil)

	temperature := float32(0.2)
	chatModel, err := factory.NewChatModel(context.Background(), domain.ModelConfig{Provider: "openai", Model: "gpt-4o"}, &temperature)
	require.NoError(t, err)
	require.NotNil(t, chatModel)
}

func TestFactoryBuildsAzureModel(t *testing.T) {
	resolver := NewEnvResolver(nil).WithLookup(lookupFrom(map[string]string{
		"AZURE_OPENAI_API_KEY":  "azure-key",
		"AZURE_OPENAI_ENDPOINT": "https://example.openai.azure.com",
	}))
	factory := NewFactory(resolver, nil)

	chatModel, err := factory.NewChatModel(context.Background(), domain.ModelConfig{Provider: "azure", Model: "gpt-4.1"}, nil)
	require.NoError(t, err)
	require.NotNil(t, chatModel)
}
