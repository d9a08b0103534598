package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates a file with the provided payload, creating parent
// directories as needed, and returns its absolute path.
func WriteFile(t testing.TB, dir, name string, payload []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
