package main

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"bpmsync/internal/logging"
	"bpmsync/internal/watcher"
)

func newParseCommand(ctx *commandContext) *cobra.Command {
	var render bool

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a status file with its configured template without touching the player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			templates, err := cfg.CompileTemplates()
			if err != nil {
				return err
			}
			w, err := watcher.New(cfg.Paths.WatchDir, templates, nil, logging.NewNop(), watcher.WithEncoding(cfg.Watch.Encoding))
			if err != nil {
				return err
			}

			name := filepath.Base(args[0])
			fields, err := w.Extract(name)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if render {
				fmt.Fprintln(out, templates[name].Render(fields))
				return nil
			}

			names := make([]string, 0, len(fields))
			for field := range fields {
				names = append(names, field)
			}
			sort.Strings(names)
			rows := make([][]string, 0, len(names))
			for _, field := range names {
				rows = append(rows, []string{field, fmt.Sprintf("%q", fields[field])})
			}
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))
			fmt.Fprintf(out, "%d field(s) extracted from %s; tempo field %s = %s\n",
				len(fields), name, cfg.Sync.TempoField, fieldValue(fields, cfg.Sync.TempoField))
			return nil
		},
	}

	cmd.Flags().BoolVar(&render, "render", false, "Print the template rendered with the extracted values instead of a table")
	return cmd
}

func fieldValue(fields map[string]string, name string) string {
	value, ok := fields[name]
	if !ok || value == "" {
		return "(missing)"
	}
	return fmt.Sprintf("%q", value)
}
