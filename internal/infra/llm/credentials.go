package llm

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"toolgate/internal/domain"
)

// ProviderEnv names the environment variables holding one provider's
// credentials, plus static connection settings.
type ProviderEnv struct {
	APIKeyEnv   string `json:"apiKeyEnv"`
	EndpointEnv string `json:"endpointEnv,omitempty"`
	BaseURL     string `json:"baseURL,omitempty"`
	APIVersion  string `json:"apiVersion,omitempty"`
}

// DefaultProviderEnv covers the providers the factory knows out of the
// box; configuration may override or extend it.
var DefaultProviderEnv = map[string]ProviderEnv{
	"azure": {
		APIKeyEnv:   "AZURE_OPENAI_API_KEY",
		EndpointEnv: "AZURE_OPENAI_ENDPOINT",
		APIVersion:  "2024-10-21",
	},
	"openai": {
		APIKeyEnv: "OPENAI_API_KEY",
	},
}

// EnvResolver reports provider availability from environment variables.
type EnvResolver struct {
	providers map[string]ProviderEnv
	lookup    func(string) string
}

// NewEnvResolver builds a resolver over the given provider settings.
// Providers absent from the map fall back to DefaultProviderEnv.
func NewEnvResolver(providers map[string]ProviderEnv) *EnvResolver {
	merged := make(map[string]ProviderEnv, len(DefaultProviderEnv)+len(providers))
	for name, env := range DefaultProviderEnv {
		merged[name] = env
	}
	for name, env := range providers {
		merged[name] = env
	}
	return &EnvResolver{
		providers: merged,
		lookup:    os.Getenv,
	}
}

// WithLookup overrides environment lookup. For tests.
func (r *EnvResolver) WithLookup(lookup func(string) string) *EnvResolver {
	r.lookup = lookup
	return r
}

func (r *EnvResolver) settings(provider string) (ProviderEnv, bool) {
	env, ok := r.providers[provider]
	return env, ok
}

// Configured reports whether every required variable for the provider is
// set and non-empty.
func (r *EnvResolver) Configured(provider string) bool {
	env, ok := r.providers[provider]
	if !ok || env.APIKeyEnv == "" {
		return false
	}
	if strings.TrimSpace(r.lookup(env.APIKeyEnv)) == "" {
		return false
	}
	if env.EndpointEnv != "" && strings.TrimSpace(r.lookup(env.EndpointEnv)) == "" {
		return false
	}
	return true
}

// MissingHint names the variables that must be set for the given
// providers, for inclusion in exhaustion errors.
func (r *EnvResolver) MissingHint(providers []string) string {
	missing := make([]string, 0, len(providers)*2)
	for _, provider := range providers {
		env, ok := r.providers[provider]
		if !ok {
			missing = append(missing, fmt.Sprintf("unknown provider %q", provider))
			continue
		}
		if env.APIKeyEnv != "" && strings.TrimSpace(r.lookup(env.APIKeyEnv)) == "" {
			missing = append(missing, env.APIKeyEnv)
		}
		if env.EndpointEnv != "" && strings.TrimSpace(r.lookup(env.EndpointEnv)) == "" {
			missing = append(missing, env.EndpointEnv)
		}
	}
	if len(missing) == 0 {
		return "no providers configured"
	}
	sort.Strings(missing)
	return "set " + strings.Join(missing, ", ")
}

var _ domain.CredentialResolver = (*EnvResolver)(nil)
