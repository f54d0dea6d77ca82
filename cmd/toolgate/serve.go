package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"toolgate/internal/app"
	"toolgate/internal/infra/config"
	"toolgate/internal/infra/telemetry"
)

func newServeCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the access layer with metrics, health and config reload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			provider, err := config.NewProvider(ctx, opts.configPath, opts.logger)
			if err != nil {
				return err
			}
			cfg := provider.Snapshot()

			application, err := app.New(ctx, cfg, opts.logger)
			if err != nil {
				return err
			}
			defer application.Close(context.Background())

			updates := provider.Watch(ctx)
			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case update := <-updates:
						application.ApplyConfig(update.Config)
						opts.logger.Info("applied reloaded configuration",
							zap.Uint64("revision", update.Revision))
					}
				}
			}()

			return telemetry.StartHTTPServer(ctx, telemetry.HTTPServerOptions{
				Addr:     cfg.Observability.ListenAddress,
				Registry: application.Registry,
				Healthz:  application.Health,
			}, opts.logger)
		},
	}
	return cmd
}
