package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"bpmsync/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent playback rate adjustments from the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Journal.Enabled {
				return errors.New("adjustment journal disabled: set [journal] enabled = true")
			}
			store, err := journal.Open(cfg.Journal.Path)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No adjustments recorded")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					strconv.FormatInt(entry.ID, 10),
					entry.At.Local().Format("2006-01-02 15:04:05"),
					formatBPM(entry.ReferenceBPM),
					formatBPM(entry.ObservedBPM),
					strconv.FormatFloat(entry.PreviousRate, 'f', 4, 64),
					strconv.FormatFloat(entry.TargetRate, 'f', 4, 64),
					strconv.FormatFloat(entry.Drift*100, 'f', 2, 64) + "%",
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Time", "Reference", "Observed", "From", "To", "Drift"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show (0 for all)")
	return cmd
}
