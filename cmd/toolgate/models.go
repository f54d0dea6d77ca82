package main

import (
	"github.com/spf13/cobra"

	"toolgate/internal/infra/fallback"
	"toolgate/internal/infra/llm"
)

func newModelsCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Show the fallback chain and which models are usable",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			resolver := llm.NewEnvResolver(cfg.Providers)
			temperature := cfg.Temperature
			manager := fallback.NewManager(resolver, llm.NewFactory(resolver, opts.logger), fallback.Options{
				Chain:       cfg.Chain,
				Temperature: &temperature,
				Logger:      opts.logger,
			})

			status := manager.Status()
			if err := printFallbackStatus(status, opts); err != nil {
				return err
			}
			if len(status.Available) == 0 {
				return exitSilent(3)
			}
			return nil
		},
	}
	return cmd
}
