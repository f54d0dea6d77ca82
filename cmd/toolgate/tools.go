package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"toolgate/internal/domain"
	"toolgate/internal/infra/mcpclient"
)

func newToolsCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools <server>",
		Short: "List tools advertised by a configured server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			serverType := domain.ServerType(args[0])
			var spec *domain.ServerSpec
			for i := range cfg.Servers {
				if cfg.Servers[i].Name == serverType {
					spec = &cfg.Servers[i]
					break
				}
			}
			if spec == nil {
				return fmt.Errorf("%w: %s", domain.ErrUnknownServerType, serverType)
			}

			client := mcpclient.New(*spec, opts.logger)
			if err := client.Connect(cmd.Context()); err != nil {
				return err
			}
			defer func() { _ = client.Disconnect(cmd.Context()) }()

			tools, err := client.ListTools(cmd.Context())
			if err != nil {
				return err
			}
			return printToolInfos(serverType, tools, opts)
		},
	}
	return cmd
}
