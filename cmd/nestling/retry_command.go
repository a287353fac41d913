package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nestling/internal/pipeline"
)

func newRetryCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Resubmit failed or cancelled uploads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cmdCtx.openStore()
			if err != nil {
				return err
			}
			entries, err := store.List(cmd.Context())
			closeErr := store.Close()
			if err != nil {
				return fmt.Errorf("list retry entries: %w", err)
			}
			if closeErr != nil {
				return closeErr
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No pending retries.")
				return nil
			}

			items := make([]pipeline.RawItem, 0, len(entries))
			for _, entry := range entries {
				items = append(items, entry.RawItem())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Retrying %d upload(s)...\n", len(items))
			return runBatch(cmd, cmdCtx, items)
		},
	}
}
