// Package docsplit cuts a reStructuredText API reference dump into one text
// file per class, nested class, documented method and function.
package docsplit

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Defaults for the CLI.
const (
	DefaultInput     = "aerosandbox_docs.txt"
	DefaultOutputDir = "clean_docs"
)

// Service splits documentation dumps.
type Service struct {
	writer *Writer
	logger *zap.Logger
}

// New creates a docsplit service.
func New(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{writer: NewWriter(logger), logger: logger}
}

// Split reads in, extracts its entities and writes them to outDir.
func (s *Service) Split(ctx context.Context, in, outDir string) (Report, error) {
	f, err := os.Open(in)
	if err != nil {
		return Report{}, fmt.Errorf("input file: %w", err)
	}
	defer f.Close()

	tokens, err := Tokenize(f)
	if err != nil {
		return Report{}, err
	}
	root, warnings := BuildTree(tokens)
	for _, w := range warnings {
		s.logger.Warn("unparsable directive", zap.Int("line", w.Line), zap.String("reason", w.Message))
	}

	entities, rep := Extract(root)
	rep.Warnings = warnings
	for _, name := range rep.Skipped {
		s.logger.Warn("skipping duplicate", zap.String("name", name))
	}

	if err := ctx.Err(); err != nil {
		return rep, err
	}
	rep.Written, err = s.writer.Write(outDir, entities)
	if err != nil {
		return rep, err
	}

	s.logger.Info("split finished",
		zap.String("input", in),
		zap.String("output", outDir),
		zap.Int("classes", rep.Classes),
		zap.Int("nested_classes", rep.NestedClasses),
		zap.Int("methods", rep.Methods),
		zap.Int("functions", rep.Functions),
		zap.Int("duplicates", rep.Duplicates),
	)
	return rep, nil
}
