package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"toolgate/internal/domain"
	"toolgate/internal/infra/llm"
)

// Config is the loaded, validated configuration.
type Config struct {
	Servers       []domain.ServerSpec
	CallTimeout   time.Duration
	Temperature   float32
	Chain         []domain.ModelConfig
	Providers     map[string]llm.ProviderEnv
	Observability domain.ObservabilityConfig
	JournalPath   string
}

type rawConfig struct {
	Servers            []rawServerSpec           `mapstructure:"servers"`
	CallTimeoutSeconds int                       `mapstructure:"callTimeoutSeconds"`
	Temperature        float64                   `mapstructure:"temperature"`
	Models             []rawModelConfig          `mapstructure:"models"`
	Providers          map[string]rawProviderEnv `mapstructure:"providers"`
	Observability      rawObservabilityConfig    `mapstructure:"observability"`
	JournalPath        string                    `mapstructure:"journalPath"`
}

type rawServerSpec struct {
	Name      string            `mapstructure:"name"`
	Transport string            `mapstructure:"transport"`
	Cmd       []string          `mapstructure:"cmd"`
	Env       map[string]string `mapstructure:"env"`
	Cwd       string            `mapstructure:"cwd"`
	Endpoint  string            `mapstructure:"endpoint"`
	Headers   map[string]string `mapstructure:"headers"`
}

type rawModelConfig struct {
	Provider    string `mapstructure:"provider"`
	Model       string `mapstructure:"model"`
	Description string `mapstructure:"description"`
}

type rawProviderEnv struct {
	APIKeyEnv   string `mapstructure:"apiKeyEnv"`
	EndpointEnv string `mapstructure:"endpointEnv"`
	BaseURL     string `mapstructure:"baseURL"`
	APIVersion  string `mapstructure:"apiVersion"`
}

type rawObservabilityConfig struct {
	ListenAddress string `mapstructure:"listenAddress"`
}

// Loader reads and validates configuration files.
type Loader struct {
	logger *zap.Logger
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger.Named("config")}
}

func newConfigViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("callTimeoutSeconds", domain.DefaultCallTimeoutSeconds)
	v.SetDefault("temperature", domain.DefaultTemperature)
	v.SetDefault("observability.listenAddress", domain.DefaultObservabilityListenAddress)
	return v
}

// Load reads the config file at path. A missing file yields the defaults.
func (l *Loader) Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Debug("config file missing, using defaults", zap.String("path", path))
			return l.LoadBytes(nil)
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := l.LoadBytes(data)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadBytes parses and validates YAML configuration.
func (l *Loader) LoadBytes(data []byte) (Config, error) {
	v := newConfigViper()
	if len(data) > 0 {
		if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	// viper lowercases nested map keys, which would corrupt per-server
	// env var names. Decode the servers section straight from the YAML.
	if len(data) > 0 {
		var servers struct {
			Servers []rawServerSpec `yaml:"servers"`
		}
		if err := yaml.Unmarshal(data, &servers); err != nil {
			return Config{}, fmt.Errorf("parse servers: %w", err)
		}
		raw.Servers = servers.Servers
	}
	return buildConfig(raw)
}

func buildConfig(raw rawConfig) (Config, error) {
	cfg := Config{
		CallTimeout: time.Duration(raw.CallTimeoutSeconds) * time.Second,
		Temperature: float32(raw.Temperature),
		Observability: domain.ObservabilityConfig{
			ListenAddress: raw.Observability.ListenAddress,
		},
		JournalPath: strings.TrimSpace(raw.JournalPath),
	}
	if cfg.CallTimeout <= 0 {
		return Config{}, fmt.Errorf("callTimeoutSeconds must be positive")
	}

	seen := make(map[string]struct{}, len(raw.Servers))
	for i, server := range raw.Servers {
		spec, err := buildServerSpec(server)
		if err != nil {
			return Config{}, fmt.Errorf("servers[%d]: %w", i, err)
		}
		if _, dup := seen[string(spec.Name)]; dup {
			return Config{}, fmt.Errorf("servers[%d]: duplicate name %q", i, spec.Name)
		}
		seen[string(spec.Name)] = struct{}{}
		cfg.Servers = append(cfg.Servers, spec)
	}

	for i, entry := range raw.Models {
		provider := strings.TrimSpace(entry.Provider)
		modelID := strings.TrimSpace(entry.Model)
		if provider == "" || modelID == "" {
			return Config{}, fmt.Errorf("models[%d]: provider and model are required", i)
		}
		description := strings.TrimSpace(entry.Description)
		if description == "" {
			description = provider + " " + modelID
		}
		cfg.Chain = append(cfg.Chain, domain.ModelConfig{
			Provider:    provider,
			Model:       modelID,
			Description: description,
		})
	}
	if len(cfg.Chain) == 0 {
		cfg.Chain = domain.DefaultFallbackChain
	}

	if len(raw.Providers) > 0 {
		cfg.Providers = make(map[string]llm.ProviderEnv, len(raw.Providers))
		for name, env := range raw.Providers {
			if strings.TrimSpace(env.APIKeyEnv) == "" {
				return Config{}, fmt.Errorf("providers.%s: apiKeyEnv is required", name)
			}
			cfg.Providers[name] = llm.ProviderEnv{
				APIKeyEnv:   env.APIKeyEnv,
				EndpointEnv: env.EndpointEnv,
				BaseURL:     env.BaseURL,
				APIVersion:  env.APIVersion,
			}
		}
	}

	return cfg, nil
}

func buildServerSpec(raw rawServerSpec) (domain.ServerSpec, error) {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return domain.ServerSpec{}, fmt.Errorf("name is required")
	}

	transport := domain.TransportKind(strings.TrimSpace(raw.Transport))
	switch transport {
	case domain.TransportCommand:
		if len(raw.Cmd) == 0 {
			return domain.ServerSpec{}, fmt.Errorf("server %s: command transport requires cmd", name)
		}
	case domain.TransportStreamable:
		if strings.TrimSpace(raw.Endpoint) == "" {
			return domain.ServerSpec{}, fmt.Errorf("server %s: streamable transport requires endpoint", name)
		}
	case "":
		return domain.ServerSpec{}, fmt.Errorf("server %s: transport is required", name)
	default:
		return domain.ServerSpec{}, fmt.Errorf("server %s: unknown transport %q", name, transport)
	}

	return domain.ServerSpec{
		Name:      domain.ServerType(name),
		Transport: transport,
		Cmd:       raw.Cmd,
		Env:       raw.Env,
		Cwd:       raw.Cwd,
		Endpoint:  raw.Endpoint,
		Headers:   raw.Headers,
	}, nil
}
