package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"toolgate/internal/app"
	"toolgate/internal/domain"
)

func newCallCmd(opts *cliOptions) *cobra.Command {
	var (
		argPairs []string
		argsJSON string
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "call <server> <tool>",
		Short: "Invoke a tool on a configured server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			callArgs, err := buildCallArgs(argPairs, argsJSON)
			if err != nil {
				return err
			}

			application, err := app.New(cmd.Context(), cfg, opts.logger)
			if err != nil {
				return err
			}
			defer application.Close(cmd.Context())

			result, err := application.Pool.Call(cmd.Context(), domain.ServerType(args[0]), args[1], callArgs, timeout)
			if err != nil {
				return err
			}
			if err := printToolResult(result, opts); err != nil {
				return err
			}
			if result.IsError {
				return exitSilent(2)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&argPairs, "arg", nil, "tool argument as key=value (repeatable)")
	cmd.Flags().StringVar(&argsJSON, "args-json", "", "tool arguments as a JSON object")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "per-call timeout (default from config)")
	return cmd
}

func buildCallArgs(pairs []string, argsJSON string) (map[string]any, error) {
	out := make(map[string]any)
	if strings.TrimSpace(argsJSON) != "" {
		if err := json.Unmarshal([]byte(argsJSON), &out); err != nil {
			return nil, fmt.Errorf("parse --args-json: %w", err)
		}
	}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid --arg %q, expected key=value", pair)
		}
		// Values that parse as JSON keep their type; everything else is a string.
		var parsed any
		if err := json.Unmarshal([]byte(value), &parsed); err == nil {
			out[key] = parsed
			continue
		}
		out[key] = value
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
