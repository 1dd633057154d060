package docstats

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

type mockCounter struct {
	calls   atomic.Int32
	countFn func(ctx context.Context, text string) (int, error)
}

func (m *mockCounter) CountTokens(ctx context.Context, text string) (int, error) {
	m.calls.Add(1)
	if m.countFn != nil {
		return m.countFn(ctx, text)
	}
	return len(text), nil
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}
