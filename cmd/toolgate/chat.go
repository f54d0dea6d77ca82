package main

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/spf13/cobra"

	"toolgate/internal/app"
)

func newChatCmd(opts *cliOptions) *cobra.Command {
	var systemPrompt string

	cmd := &cobra.Command{
		Use:   "chat <prompt>...",
		Short: "Send a prompt through the fallback chain",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			application, err := app.New(cmd.Context(), cfg, opts.logger)
			if err != nil {
				return err
			}
			defer application.Close(cmd.Context())

			var messages []*schema.Message
			if strings.TrimSpace(systemPrompt) != "" {
				messages = append(messages, schema.SystemMessage(systemPrompt))
			}
			messages = append(messages, schema.UserMessage(strings.Join(args, " ")))

			invoker := app.NewInvoker(application.Models, opts.logger)
			response, config, err := invoker.Invoke(cmd.Context(), messages)
			if err != nil {
				return err
			}

			if opts.jsonOutput || opts.yamlOutput {
				return writeStructured(opts, map[string]any{
					"model":   config.Description,
					"content": response.Content,
				})
			}
			fmt.Println(response.Content)
			return nil
		},
	}

	cmd.Flags().StringVar(&systemPrompt, "system", "", "system prompt")
	return cmd
}
