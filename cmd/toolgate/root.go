package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"toolgate/internal/app"
	"toolgate/internal/infra/config"
)

type cliOptions struct {
	configPath string
	logLevel   string
	jsonLogs   bool
	jsonOutput bool
	yamlOutput bool
	logger     *zap.Logger
}

func newRootCommand() *cobra.Command {
	opts := cliOptions{
		configPath: "toolgate.yaml",
		logLevel:   "warn",
		logger:     zap.NewNop(),
	}

	root := &cobra.Command{
		Use:   "toolgate",
		Short: "Resilient gateway to external tool servers and completion models",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			applyRootFlagBindings(cmd, &opts)
			logger, err := app.NewLogger(opts.logLevel, opts.jsonLogs)
			if err != nil {
				return err
			}
			opts.logger = logger
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = opts.logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", opts.configPath, "path to config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", opts.logLevel, "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&opts.jsonLogs, "log-json", false, "emit logs as JSON")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output JSON")
	root.PersistentFlags().BoolVar(&opts.yamlOutput, "yaml", false, "output YAML")

	root.AddCommand(
		newCallCmd(&opts),
		newToolsCmd(&opts),
		newModelsCmd(&opts),
		newChatCmd(&opts),
		newHistoryCmd(&opts),
		newServeCmd(&opts),
	)

	return root
}

func applyRootFlagBindings(cmd *cobra.Command, opts *cliOptions) {
	flags := cmd.Flags()
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "config":
			opts.configPath, _ = flags.GetString("config")
		case "log-level":
			opts.logLevel, _ = flags.GetString("log-level")
		case "log-json":
			opts.jsonLogs, _ = flags.GetBool("log-json")
		case "json":
			opts.jsonOutput, _ = flags.GetBool("json")
		case "yaml":
			opts.yamlOutput, _ = flags.GetBool("yaml")
		}
	})
}

func loadConfig(opts *cliOptions) (config.Config, error) {
	loader := config.NewLoader(opts.logger)
	return loader.Load(opts.configPath)
}
