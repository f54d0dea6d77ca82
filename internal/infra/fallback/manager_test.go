package fallback

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"

	"toolgate/internal/domain"
)

type fakeResolver struct {
	configured map[string]bool
	hint       string
}

func (r *fakeResolver) Configured(provider string) bool {
	return r.configured[provider]
}

func (r *fakeResolver) MissingHint([]string) string {
	return r.hint
}

type fakeChatModel struct {
	key string
}

func (m *fakeChatModel) Generate(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
	return schema.AssistantMessage("hello from "+m.key, nil), nil
}

func (m *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func (m *fakeChatModel) WithTools([]*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

type fakeModelFactory struct {
	built []domain.ModelConfig
	err   error
}

func (f *fakeModelFactory) NewChatModel(_ context.Context, config domain.ModelConfig, _ *float32) (model.ToolCallingChatModel, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.built = append(f.built, config)
	return &fakeChatModel{key: config.Key()}, nil
}

type captureMetrics struct {
	domain.NopMetrics
	exhaustions int
	failures    []string
	selections  []string
}

func (m *captureMetrics) ObserveChainExhaustion() {
	m.exhaustions++
}

func (m *captureMetrics) ObserveModelFailure(provider, model string) {
	m.failures = append(m.failures, provider+"/"+model)
}

func (m *captureMetrics) ObserveModelSelection(provider, model string) {
	m.selections = append(m.selections, provider+"/"+model)
}

var testChain = []domain.ModelConfig{
	{Provider: "openai", Model: "gpt-4o", Description: "OpenAI GPT-4o"},
	{Provider: "openai", Model: "gpt-4o-mini", Description: "OpenAI GPT-4o Mini"},
	{Provider: "anthropic", Model: "claude-sonnet", Description: "Anthropic Claude Sonnet"},
}

func newTestManager(t *testing.T, configured map[string]bool) (*Manager, *fakeModelFactory, *captureMetrics) {
	t.Helper()
	factory := &fakeModelFactory{}
	metrics := &captureMetrics{}
	manager := NewManager(
		&fakeResolver{configured: configured, hint: "set OPENAI_API_KEY"},
		factory,
		Options{Chain: testChain, Metrics: metrics},
	)
	return manager, factory, metrics
}

func TestManagerSelectsHighestPriorityConfiguredModel(t *testing.T) {
	manager, factory, _ := newTestManager(t, map[string]bool{"openai": true})

	chatModel, config, err := manager.GetModel(context.Background())
	require.NoError(t, err)
	require.NotNil(t, chatModel)
	require.Equal(t, "openai/gpt-4o", config.Key())
	require.Len(t, factory.built, 1)

	status := manager.Status()
	require.Equal(t, "OpenAI GPT-4o", status.Current)
	require.Equal(t, []string{"OpenAI GPT-4o", "OpenAI GPT-4o Mini"}, status.Available)
}

func TestManagerSkipsUnconfiguredProviders(t *testing.T) {
	manager, _, _ := newTestManager(t, map[string]bool{"anthropic": true})

	_, config, err := manager.GetModel(context.Background())
	require.NoError(t, err)
	require.Equal(t, "anthropic/claude-sonnet", config.Key())
}

func TestManagerFailsOverOnTransientError(t *testing.T) {
	manager, _, metrics := newTestManager(t, map[string]bool{"openai": true})

	_, config, err := manager.GetModel(context.Background())
	require.NoError(t, err)
	require.Equal(t, "openai/gpt-4o", config.Key())

	require.True(t, manager.HandleError(errors.New("429 too many requests")))
	require.Equal(t, []string{"openai/gpt-4o"}, metrics.failures)

	_, config, err = manager.GetModel(context.Background())
	require.NoError(t, err)
	require.Equal(t, "openai/gpt-4o-mini", config.Key())
}

func TestManagerLeavesStateUntouchedOnNonTransientError(t *testing.T) {
	manager, _, _ := newTestManager(t, map[string]bool{"openai": true})

	_, _, err := manager.GetModel(context.Background())
	require.NoError(t, err)

	require.False(t, manager.HandleError(errors.New("ValueError: bad input")))
	status := manager.Status()
	require.Empty(t, status.FailedKeys)

	_, config, err := manager.GetModel(context.Background())
	require.NoError(t, err)
	require.Equal(t, "openai/gpt-4o", config.Key())
}

func TestManagerAutoResetsAfterExhaustion(t *testing.T) {
	manager, _, metrics := newTestManager(t, map[string]bool{"openai": true, "anthropic": true})

	for i := 0; i < len(testChain); i++ {
		_, _, err := manager.GetModel(context.Background())
		require.NoError(t, err)
		manager.HandleError(errors.New("rate limit exceeded"))
	}
	require.Len(t, manager.Available(), 0)

	_, config, err := manager.GetModel(context.Background())
	require.NoError(t, err)
	require.Equal(t, "openai/gpt-4o", config.Key())
	require.Equal(t, 1, metrics.exhaustions)
	require.Empty(t, manager.Status().FailedKeys)
}

func TestManagerFatalWhenNoCredentials(t *testing.T) {
	manager, _, _ := newTestManager(t, map[string]bool{})

	_, _, err := manager.GetModel(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrNoModelsAvailable)
	require.Contains(t, err.Error(), "set OPENAI_API_KEY")

	code, ok := domain.CodeFrom(err)
	require.True(t, ok)
	require.Equal(t, domain.CodeFailedPrecond, code)
}

func TestManagerPropagatesFactoryError(t *testing.T) {
	factory := &fakeModelFactory{err: errors.New("bad endpoint")}
	manager := NewManager(
		&fakeResolver{configured: map[string]bool{"openai": true}},
		factory,
		Options{Chain: testChain},
	)

	_, _, err := manager.GetModel(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "create model OpenAI GPT-4o")

	code, ok := domain.CodeFrom(err)
	require.True(t, ok)
	require.Equal(t, domain.CodeInternal, code)
}

func TestManagerResetClearsFailures(t *testing.T) {
	manager, _, _ := newTestManager(t, map[string]bool{"openai": true})

	_, _, err := manager.GetModel(context.Background())
	require.NoError(t, err)
	require.True(t, manager.HandleError(errors.New("quota exceeded")))
	require.NotEmpty(t, manager.Status().FailedKeys)

	manager.Reset()
	status := manager.Status()
	require.Empty(t, status.FailedKeys)
	require.Empty(t, status.Current)
}

func TestManagerMarkFailedExplicitConfig(t *testing.T) {
	manager, _, _ := newTestManager(t, map[string]bool{"openai": true})

	manager.MarkFailed(&testChain[0])
	_, config, err := manager.GetModel(context.Background())
	require.NoError(t, err)
	require.Equal(t, "openai/gpt-4o-mini", config.Key())
}

func TestManagerDefaultsChainWhenEmpty(t *testing.T) {
	manager := NewManager(
		&fakeResolver{configured: map[string]bool{}},
		&fakeModelFactory{},
		Options{},
	)
	require.Equal(t, len(domain.DefaultFallbackChain), manager.Status().ChainLength)
}

func TestTransientClassification(t *testing.T) {
	manager, _, _ := newTestManager(t, map[string]bool{"openai": true})

	cases := []struct {
		text      string
		transient bool
	}{
		{"Error code: 429 - Requests to the ChatCompletions_Create Operation have exceeded token rate limit", true},
		{"RESOURCE_EXHAUSTED: quota exceeded for tokens per minute", true},
		{"The model `gpt-4.1` has been decommissioned", true},
		{"model not found", true},
		{"404 page not found", true},
		{"the engine is currently unavailable", true},
		{"this model version is deprecated", true},
		{"feature not supported by this deployment", true},
		{"Too Many Requests", true},
		{"ValueError: bad input", false},
		{"connection refused", false},
		{"invalid request payload", false},
		{"context canceled", false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.transient, manager.isTransient(errors.New(tc.text)), "text: %s", tc.text)
	}
}

// Walks the documented failover sequence: rate limit fails over, a
// non-transient error surfaces without state change, a decommissioned
// model marks the last usable entry failed, and the next selection
// auto-resets back to the top of the chain.
func TestManagerFailoverScenario(t *testing.T) {
	manager, _, metrics := newTestManager(t, map[string]bool{"openai": true})

	_, config, err := manager.GetModel(context.Background())
	require.NoError(t, err)
	require.Equal(t, "openai/gpt-4o", config.Key())

	require.True(t, manager.HandleError(errors.New("429: rate limit exceeded")))

	_, config, err = manager.GetModel(context.Background())
	require.NoError(t, err)
	require.Equal(t, "openai/gpt-4o-mini", config.Key())

	require.False(t, manager.HandleError(errors.New("ValueError: bad input")))
	require.Equal(t, []string{"openai/gpt-4o"}, manager.Status().FailedKeys)

	_, config, err = manager.GetModel(context.Background())
	require.NoError(t, err)
	require.Equal(t, "openai/gpt-4o-mini", config.Key())

	// Last usable model is gone; nothing remains to fall back to.
	require.False(t, manager.HandleError(fmt.Errorf("the model `gpt-4o-mini` was not found (404)")))
	require.Empty(t, manager.Available())

	_, config, err = manager.GetModel(context.Background())
	require.NoError(t, err)
	require.Equal(t, "openai/gpt-4o", config.Key())
	require.Equal(t, 1, metrics.exhaustions)
}
