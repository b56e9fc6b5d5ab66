package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteStatusFile writes content to name inside dir, creating dir as needed,
// and returns the full path.
func WriteStatusFile(t testing.TB, dir, name, content string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
