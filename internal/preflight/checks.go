package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"bpmsync/internal/config"
	"bpmsync/internal/vlc"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckTemplates verifies that every template compiles and that the tempo
// field is declared by at least one of them.
func CheckTemplates(cfg *config.Config) Result {
	const name = "Templates"

	compiled, err := cfg.CompileTemplates()
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	field := cfg.Sync.TempoField
	for _, filename := range cfg.TemplateFiles() {
		if compiled[filename].Has(field) {
			return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d file(s); %s from %s", len(compiled), field, filename)}
		}
	}
	return Result{Name: name, Detail: fmt.Sprintf("no template declares %%%s%%", field)}
}

// CheckStatusFiles reports, for each registered file, whether it is present
// and matches its template. Missing files are optional: the DJ software may
// not have written them yet.
func CheckStatusFiles(cfg *config.Config) []Result {
	compiled, err := cfg.CompileTemplates()
	if err != nil {
		return nil
	}
	results := make([]Result, 0, len(compiled))
	for _, filename := range cfg.TemplateFiles() {
		name := "Status file " + filename
		path := filepath.Join(cfg.Paths.WatchDir, filename)
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				results = append(results, Result{Name: name, Optional: true, Detail: "not written yet"})
				continue
			}
			results = append(results, Result{Name: name, Optional: true, Detail: fmt.Sprintf("unreadable (%v)", err)})
			continue
		}
		fields, err := compiled[filename].Parse(strings.TrimSpace(string(data)))
		if err != nil {
			results = append(results, Result{Name: name, Optional: true, Detail: "does not match template"})
			continue
		}
		results = append(results, Result{Name: name, Passed: true, Optional: true, Detail: fmt.Sprintf("%d field(s) extracted", len(fields))})
	}
	return results
}

// CheckPlayer verifies that the VLC HTTP interface answers status queries
// with the configured password.
func CheckPlayer(ctx context.Context, baseURL, password string, timeout time.Duration) Result {
	const name = "VLC"

	if strings.TrimSpace(baseURL) == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	if timeout <= 0 {
		timeout = vlc.DefaultTimeout
	}

	client := vlc.New(baseURL, password, vlc.WithTimeout(timeout))
	status, err := client.GetStatus(ctx)
	if err != nil {
		return Result{Name: name, Detail: summarizePlayerError(err)}
	}
	state := status.State
	if state == "" {
		state = "unknown"
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("reachable (%s, rate %.3f)", state, status.Rate)}
}

func summarizePlayerError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "status query timed out (VLC unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "status query timed out (VLC unreachable)"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return "connection failed (is the VLC HTTP interface enabled?)"
	}
	if errors.Is(err, vlc.ErrUnexpectedStatus) && strings.Contains(err.Error(), "401") {
		return "auth failed (check player password)"
	}
	return err.Error()
}
