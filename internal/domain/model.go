package domain

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
)

// ModelConfig describes one completion backend in the fallback chain.
// Static for the process lifetime.
type ModelConfig struct {
	Provider    string `json:"provider"`
	Model       string `json:"model"`
	Description string `json:"description"`
}

// Key returns the stable identity used for failure tracking.
func (c ModelConfig) Key() string {
	return fmt.Sprintf("%s/%s", c.Provider, c.Model)
}

// DefaultFallbackChain is tried in order when the configuration does not
// override the chain.
var DefaultFallbackChain = []ModelConfig{
	{Provider: "azure", Model: "gpt-4.1", Description: "Azure GPT-4.1"},
	{Provider: "azure", Model: "gpt-4.1-mini", Description: "Azure GPT-4.1 Mini"},
}

// CredentialResolver reports whether a provider has usable credentials.
type CredentialResolver interface {
	Configured(provider string) bool
	// MissingHint names what must be set for the given providers, for
	// inclusion in exhaustion errors.
	MissingHint(providers []string) string
}

// ChatModelFactory builds a live chat model bound to credentials and
// temperature. Temperature may be nil to use the provider default.
type ChatModelFactory interface {
	NewChatModel(ctx context.Context, config ModelConfig, temperature *float32) (model.ToolCallingChatModel, error)
}

// FallbackStatus is a point-in-time snapshot of the fallback manager.
type FallbackStatus struct {
	Current     string   `json:"current,omitempty"`
	FailedKeys  []string `json:"failedKeys"`
	Available   []string `json:"available"`
	ChainLength int      `json:"chainLength"`
}
