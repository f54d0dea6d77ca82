package app

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"

	"toolgate/internal/domain"
	"toolgate/internal/infra/fallback"
)

type staticResolver struct{}

func (staticResolver) Configured(string) bool      { return true }
func (staticResolver) MissingHint([]string) string { return "set OPENAI_API_KEY" }

type scriptedModel struct {
	key string
	err error
}

func (m *scriptedModel) Generate(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage("answer from "+m.key, nil), nil
}

func (m *scriptedModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func (m *scriptedModel) WithTools([]*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

// scriptedFactory returns a model whose Generate outcome is keyed by the
// chain entry being built.
type scriptedFactory struct {
	errs map[string]error
}

func (f *scriptedFactory) NewChatModel(_ context.Context, config domain.ModelConfig, _ *float32) (model.ToolCallingChatModel, error) {
	return &scriptedModel{key: config.Key(), err: f.errs[config.Key()]}, nil
}

var invokerChain = []domain.ModelConfig{
	{Provider: "openai", Model: "gpt-4o", Description: "OpenAI GPT-4o"},
	{Provider: "openai", Model: "gpt-4o-mini", Description: "OpenAI GPT-4o Mini"},
}

func newInvokerUnderTest(t *testing.T, errs map[string]error, chain []domain.ModelConfig) *Invoker {
	t.Helper()
	manager := fallback.NewManager(staticResolver{}, &scriptedFactory{errs: errs}, fallback.Options{
		Chain: chain,
	})
	return NewInvoker(manager, nil)
}

func TestInvokerReturnsFirstSuccess(t *testing.T) {
	invoker := newInvokerUnderTest(t, nil, invokerChain)

	response, config, err := invoker.Invoke(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	require.Equal(t, "openai/gpt-4o", config.Key())
	require.Equal(t, "answer from openai/gpt-4o", response.Content)
}

func TestInvokerFailsOverOnTransientError(t *testing.T) {
	invoker := newInvokerUnderTest(t, map[string]error{
		"openai/gpt-4o": errors.New("429 too many requests"),
	}, invokerChain)

	response, config, err := invoker.Invoke(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	require.Equal(t, "openai/gpt-4o-mini", config.Key())
	require.Equal(t, "answer from openai/gpt-4o-mini", response.Content)
}

func TestInvokerSurfacesNonTransientError(t *testing.T) {
	invoker := newInvokerUnderTest(t, map[string]error{
		"openai/gpt-4o": errors.New("ValueError: bad input"),
	}, invokerChain)

	_, _, err := invoker.Invoke(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "OpenAI GPT-4o")
	require.Contains(t, err.Error(), "ValueError: bad input")
}

func TestInvokerStopsWhenChainExhausted(t *testing.T) {
	invoker := newInvokerUnderTest(t, map[string]error{
		"openai/gpt-4o":      errors.New("429 too many requests"),
		"openai/gpt-4o-mini": errors.New("model not found"),
	}, invokerChain)

	_, _, err := invoker.Invoke(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "OpenAI GPT-4o Mini")
	require.Contains(t, err.Error(), "model not found")

	code, ok := domain.CodeFrom(err)
	require.True(t, ok)
	require.Equal(t, domain.CodeUnavailable, code)
}
