package fallback

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"go.uber.org/zap"

	"toolgate/internal/domain"
	"toolgate/internal/infra/telemetry"
)

// transientIndicators is matched case-insensitively against provider
// error text. A hit means the error justifies failing over to the next
// model instead of surfacing to the user.
var transientIndicators = []string{
	// Rate limits
	"429",
	"413",
	"rate_limit",
	"rate limit",
	"quota",
	"too many requests",
	"resource_exhausted",
	"tokens per",
	// Model unavailability
	"model_decommissioned",
	"decommissioned",
	"model not found",
	"not_found",
	"404",
	"does not exist",
	"is not found",
	"unavailable",
	"deprecated",
	"not supported",
}

// Manager selects the highest-priority usable model from an ordered
// chain and classifies runtime errors into "fail over" vs "fatal". It
// never retries internally; the bounded retry loop is the caller's job.
//
// Manager holds no internal lock. Callers sharing one instance across
// goroutines must synchronize externally.
type Manager struct {
	chain       []domain.ModelConfig
	creds       domain.CredentialResolver
	factory     domain.ChatModelFactory
	temperature *float32
	logger      *zap.Logger
	metrics     domain.Metrics

	failed  map[string]struct{}
	current *domain.ModelConfig
}

// Options configures a Manager.
type Options struct {
	Chain       []domain.ModelConfig
	Temperature *float32
	Logger      *zap.Logger
	Metrics     domain.Metrics
}

// NewManager constructs a Manager. A nil or empty chain falls back to
// domain.DefaultFallbackChain.
func NewManager(creds domain.CredentialResolver, factory domain.ChatModelFactory, opts Options) *Manager {
	if creds == nil {
		panic("fallback.NewManager requires a credential resolver")
	}
	if factory == nil {
		panic("fallback.NewManager requires a chat model factory")
	}
	chain := opts.Chain
	if len(chain) == 0 {
		chain = domain.DefaultFallbackChain
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = domain.NopMetrics{}
	}
	return &Manager{
		chain:       chain,
		creds:       creds,
		factory:     factory,
		temperature: opts.Temperature,
		logger:      logger.Named("fallback"),
		metrics:     metrics,
		failed:      make(map[string]struct{}),
	}
}

// Available returns chain entries that are configured and not failed,
// in priority order.
func (m *Manager) Available() []domain.ModelConfig {
	out := make([]domain.ModelConfig, 0, len(m.chain))
	for _, config := range m.chain {
		if !m.creds.Configured(config.Provider) {
			continue
		}
		if _, failed := m.failed[config.Key()]; failed {
			continue
		}
		out = append(out, config)
	}
	return out
}

// GetModel returns a live model for the best available chain entry.
// When every available entry has failed, the failure set is cleared once
// and selection recomputed; if the chain is still empty the error names
// the missing credentials and is fatal, not retryable.
func (m *Manager) GetModel(ctx context.Context) (model.ToolCallingChatModel, domain.ModelConfig, error) {
	available := m.Available()

	if len(available) == 0 {
		m.logger.Warn("all models failed, resetting failure state",
			telemetry.EventField(telemetry.EventChainReset),
		)
		m.metrics.ObserveChainExhaustion()
		clear(m.failed)
		available = m.Available()
	}

	if len(available) == 0 {
		hint := m.creds.MissingHint(m.providers())
		return nil, domain.ModelConfig{}, domain.E(domain.CodeFailedPrecond, "fallback.get_model",
			fmt.Sprintf("no completion models available: %s", hint), domain.ErrNoModelsAvailable)
	}

	config := available[0]
	chatModel, err := m.factory.NewChatModel(ctx, config, m.temperature)
	if err != nil {
		return nil, domain.ModelConfig{}, domain.E(domain.CodeInternal, "fallback.get_model",
			fmt.Sprintf("create model %s", config.Description), err)
	}

	m.current = &config
	m.metrics.ObserveModelSelection(config.Provider, config.Model)
	m.logger.Info("using model",
		telemetry.EventField(telemetry.EventModelSelected),
		telemetry.ProviderField(config.Provider),
		telemetry.ModelField(config.Model),
		zap.String("description", config.Description),
	)
	return chatModel, config, nil
}

// HandleError classifies an error from model invocation. A transient
// provider error marks the current model failed and returns true iff
// another available model remains. Anything else leaves state untouched
// and returns false.
func (m *Manager) HandleError(err error) bool {
	if err == nil || !m.isTransient(err) {
		return false
	}

	m.markFailed()
	remaining := len(m.Available())
	if remaining > 0 {
		m.logger.Info("model error detected, falling back",
			zap.Int("remaining", remaining),
		)
		return true
	}
	m.logger.Warn("model error detected, no fallback models available")
	return false
}

// MarkFailed records config (or the current model when nil) as failed.
func (m *Manager) MarkFailed(config *domain.ModelConfig) {
	if config == nil {
		config = m.current
	}
	if config == nil {
		return
	}
	m.failed[config.Key()] = struct{}{}
	m.metrics.ObserveModelFailure(config.Provider, config.Model)
	m.logger.Warn("marking model as failed",
		telemetry.EventField(telemetry.EventModelFailed),
		telemetry.ProviderField(config.Provider),
		telemetry.ModelField(config.Model),
		zap.String("description", config.Description),
	)
}

// Reset clears all failure state.
func (m *Manager) Reset() {
	clear(m.failed)
	m.current = nil
}

// Status reports the manager's current view of the chain.
func (m *Manager) Status() domain.FallbackStatus {
	status := domain.FallbackStatus{
		FailedKeys:  make([]string, 0, len(m.failed)),
		ChainLength: len(m.chain),
	}
	if m.current != nil {
		status.Current = m.current.Description
	}
	for _, config := range m.chain {
		if _, failed := m.failed[config.Key()]; failed {
			status.FailedKeys = append(status.FailedKeys, config.Key())
		}
	}
	for _, config := range m.Available() {
		status.Available = append(status.Available, config.Description)
	}
	return status
}

func (m *Manager) markFailed() {
	m.MarkFailed(nil)
}

func (m *Manager) isTransient(err error) bool {
	text := strings.ToLower(err.Error())
	for _, indicator := range transientIndicators {
		if strings.Contains(text, indicator) {
			return true
		}
	}
	return false
}

func (m *Manager) providers() []string {
	seen := make(map[string]struct{}, len(m.chain))
	out := make([]string, 0, len(m.chain))
	for _, config := range m.chain {
		if _, ok := seen[config.Provider]; ok {
			continue
		}
		seen[config.Provider] = struct{}{}
		out = append(out, config.Provider)
	}
	return out
}
