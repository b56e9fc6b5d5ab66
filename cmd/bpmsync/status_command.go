package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"bpmsync/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the running daemon's sync state",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return wrapAPIError(err)
			}
			out := cmd.OutOrStdout()
			renderDaemonStatus(out, status, shouldColorize(out))
			return nil
		},
	}
}

func newResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear the reference tempo; the next observed tempo becomes the new reference",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			resp, err := client.Reset(cmd.Context())
			if err != nil {
				return wrapAPIError(err)
			}
			out := cmd.OutOrStdout()
			if resp.PreviousReferenceBPM > 0 {
				fmt.Fprintf(out, "Reference tempo cleared (was %s BPM)\n", formatBPM(resp.PreviousReferenceBPM))
			} else {
				fmt.Fprintln(out, "Reference tempo cleared (none was set)")
			}
			return nil
		},
	}
}

func renderDaemonStatus(out io.Writer, status *api.DaemonStatus, colorize bool) {
	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	if status.Running {
		fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, "Stopped", colorize))
	}
	watcherKind := statusOK
	if !status.Watcher.Running {
		watcherKind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Watcher", watcherKind,
		fmt.Sprintf("%s (%s)", status.Watcher.Dir, strings.Join(status.Watcher.Files, ", ")), colorize))
	fmt.Fprintln(out, renderStatusLine("Player", statusInfo, status.PlayerURL, colorize))
	if status.JournalPath != "" {
		fmt.Fprintln(out, renderStatusLine("Journal", statusInfo, status.JournalPath, colorize))
	}
	fmt.Fprintln(out)

	sync := status.Sync
	for _, line := range renderSectionHeader("Sync", colorize) {
		fmt.Fprintln(out, line)
	}
	stateMessage := stateLabel(sync.State)
	if sync.LastError != "" {
		stateMessage = fmt.Sprintf("%s (last error: %s)", stateMessage, sync.LastError)
	}
	fmt.Fprintln(out, renderStatusLine("State", syncStateKind(sync.State), stateMessage, colorize))
	fmt.Fprintln(out, renderStatusLine("Reference", statusInfo, bpmOrDash(sync.ReferenceBPM), colorize))
	fmt.Fprintln(out, renderStatusLine("Observed", statusInfo, bpmOrDash(sync.ObservedBPM), colorize))
	fmt.Fprintln(out, renderStatusLine("Player rate", statusInfo, rateOrDash(sync.PlayerRate), colorize))
	fmt.Fprintln(out, renderStatusLine("Adjustments", statusInfo, strconv.Itoa(sync.Adjustments), colorize))
	fmt.Fprintln(out)

	fmt.Fprintln(out, renderFieldsTable(status.Fields, sync.TempoField))
}

func renderFieldsTable(fields map[string]string, tempoField string) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		label := name
		if name == tempoField {
			label += " *"
		}
		rows = append(rows, []string{label, fields[name]})
	}
	return renderTable([]string{"Field", "Value"}, rows, nil)
}

func formatBPM(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64)
}

func bpmOrDash(value float64) string {
	if value <= 0 {
		return "-"
	}
	return formatBPM(value) + " BPM"
}

func rateOrDash(value float64) string {
	if value <= 0 {
		return "-"
	}
	return strconv.FormatFloat(value, 'f', 4, 64)
}
