package main

import (
	"github.com/spf13/cobra"

	"bpmsync/internal/daemonrun"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var diagnostic bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the sync daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:   logLevel,
				Diagnostic: diagnostic,
			})
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&diagnostic, "diagnostic", false, "Also write a debug-level JSON log under <log_dir>/debug")
	return cmd
}
