package docindex

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aerolab/internal/domain/document"
)

// docNamespace seeds name-based document IDs so re-indexing the same file
// overwrites its parent record instead of adding a new one.
var docNamespace = uuid.MustParse("6f0c8a52-3a5e-4c1e-9d0b-a3e0d7f2b611")

// DocumentID returns the stable ID of a documentation file.
func DocumentID(fullName string) string {
	return uuid.NewSHA1(docNamespace, []byte(fullName)).String()
}

// LoadDocuments reads every *.txt file in dir, in name order. Files with only
// whitespace are skipped with a warning.
func LoadDocuments(dir string, logger *zap.Logger) ([]document.Document, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("docs dir: %w", err)
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	sort.Strings(paths)

	docs := make([]document.Document, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		content := strings.TrimSpace(string(data))
		if content == "" {
			logger.Warn("skipping empty file", zap.String("path", path))
			continue
		}

		meta := document.ParseFilename(path)
		meta.Source = path
		doc, err := document.New(DocumentID(meta.FullName), content, meta)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
