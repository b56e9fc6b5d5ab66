package preflight

import (
	"context"

	"bpmsync/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Optional results do not count as failures.
	Optional bool
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Watch directory", cfg.Paths.WatchDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckTemplates(cfg),
	}
	results = append(results, CheckStatusFiles(cfg)...)
	results = append(results, CheckPlayer(ctx, cfg.Player.URL, cfg.Player.Password, cfg.RequestTimeout()))
	return results
}

// Failed returns the required checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed && !result.Optional {
			failed = append(failed, result)
		}
	}
	return failed
}
