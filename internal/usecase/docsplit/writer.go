package docsplit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/aerolab/internal/fsutil"
)

const fileExt = ".txt"

// Writer saves entities as <Name>.txt files.
type Writer struct {
	logger *zap.Logger
}

// NewWriter creates a Writer.
func NewWriter(logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{logger: logger}
}

// Write creates dir and writes one file per entity, skipping entities with
// no content. It returns the number of files written.
func (w *Writer) Write(dir string, entities []Entity) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create output dir: %w", err)
	}
	written := 0
	for _, e := range entities {
		content := e.Content()
		if strings.TrimSpace(content) == "" {
			w.logger.Debug("skipping empty entity", zap.String("name", e.Name))
			continue
		}
		path := filepath.Join(dir, e.Name+fileExt)
		if err := fsutil.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", e.Name, err)
		}
		w.logger.Debug("saved entity", zap.String("file", e.Name+fileExt), zap.String("kind", string(e.Kind)))
		written++
	}
	return written, nil
}
