package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bpmsync/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run preflight checks against the configuration and player",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			results := preflight.RunAll(cmd.Context(), cfg)
			rows := make([][]string, 0, len(results))
			for _, result := range results {
				rows = append(rows, []string{result.Name, checkStatus(result, colorize), result.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, rows, nil))

			failed := preflight.Failed(results)
			if len(failed) == 0 {
				fmt.Fprintln(out, "All required checks passed")
				return nil
			}
			names := make([]string, 0, len(failed))
			for _, result := range failed {
				names = append(names, result.Name)
			}
			return fmt.Errorf("%d check(s) failed: %s", len(failed), strings.Join(names, ", "))
		},
	}
}

func checkStatus(result preflight.Result, colorize bool) string {
	label, color := "FAIL", ansiRed
	switch {
	case result.Passed:
		label, color = "OK", ansiGreen
	case result.Optional:
		label, color = "WARN", ansiYellow
	}
	if colorize {
		return color + label + ansiReset
	}
	return label
}
