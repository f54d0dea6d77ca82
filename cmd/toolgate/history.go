package main

import (
	"errors"

	"github.com/spf13/cobra"

	"toolgate/internal/infra/journal"
)

func newHistoryCmd(opts *cliOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent journaled tool calls, newest first",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cfg.JournalPath == "" {
				return errors.New("journaling is disabled: set journalPath in the config")
			}

			store, err := journal.Open(cfg.JournalPath, opts.logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			records, err := store.Recent(limit)
			if err != nil {
				return err
			}
			return printCallRecords(records, opts)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of records")
	return cmd
}
