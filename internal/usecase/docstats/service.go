// Package docstats measures the token length of split documentation files.
package docstats

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// DefaultConcurrency bounds parallel CountTokens calls.
const DefaultConcurrency = 8

// FileCount is the token count of one file.
type FileCount struct {
	Name   string
	Tokens int
}

// Summary aggregates token counts.
type Summary struct {
	Documents int
	Total     int
	Mean      float64
	Min       int
	Max       int
}

// Summarize computes the aggregates of counts. Empty input gives a zero Summary.
func Summarize(counts []int) Summary {
	if len(counts) == 0 {
		return Summary{}
	}
	s := Summary{Documents: len(counts), Min: slices.Min(counts), Max: slices.Max(counts)}
	for _, c := range counts {
		s.Total += c
	}
	s.Mean = float64(s.Total) / float64(len(counts))
	return s
}

// String renders the console report.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total documents processed: %d\n", s.Documents)
	fmt.Fprintf(&b, "Total tokens across all documents: %d\n", s.Total)
	fmt.Fprintf(&b, "Average tokens per document: %.2f\n", s.Mean)
	fmt.Fprintf(&b, "Min tokens: %d\n", s.Min)
	fmt.Fprintf(&b, "Max tokens: %d", s.Max)
	return b.String()
}

// Legend renders the short block drawn on the histogram.
func (s Summary) Legend() []string {
	return []string{
		fmt.Sprintf("Total Docs: %d", s.Documents),
		"Total Tokens: " + humanize.Comma(int64(s.Total)),
		fmt.Sprintf("Mean: %.1f", s.Mean),
		fmt.Sprintf("Min: %d", s.Min),
		fmt.Sprintf("Max: %d", s.Max),
	}
}

// Stats is the outcome of Analyze. Files holds the counted files in name
// order; Failed lists files whose count failed.
type Stats struct {
	Files  []FileCount
	Failed []string
	Summary
}

// Counts returns the token counts in file order.
func (s Stats) Counts() []int {
	out := make([]int, len(s.Files))
	for i, f := range s.Files {
		out[i] = f.Tokens
	}
	return out
}

// Service counts tokens for documentation files.
type Service struct {
	counter     TokenCounter
	concurrency int
	logger      *zap.Logger
}

// New creates a docstats service.
func New(counter TokenCounter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{counter: counter, concurrency: DefaultConcurrency, logger: logger}
}

// WithConcurrency sets how many files are counted at once.
func (s *Service) WithConcurrency(n int) *Service {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// Analyze counts tokens for every *.txt file in dir. A file that cannot be
// read or counted is logged and left out of the statistics.
func (s *Service) Analyze(ctx context.Context, dir string) (Stats, error) {
	if _, err := os.Stat(dir); err != nil {
		return Stats{}, fmt.Errorf("docs dir: %w", err)
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return Stats{}, fmt.Errorf("list %s: %w", dir, err)
	}
	sort.Strings(paths)

	type outcome struct {
		tokens int
		err    error
	}
	outcomes := make([]outcome, len(paths))

	p := pool.New().WithMaxGoroutines(s.concurrency)
	for i, path := range paths {
		p.Go(func() {
			n, err := s.countFile(ctx, path)
			outcomes[i] = outcome{tokens: n, err: err}
		})
	}
	p.Wait()

	var st Stats
	for i, path := range paths {
		name := filepath.Base(path)
		if err := outcomes[i].err; err != nil {
			s.logger.Warn("token count failed", zap.String("file", name), zap.Error(err))
			st.Failed = append(st.Failed, name)
			continue
		}
		s.logger.Debug("counted tokens", zap.String("file", name), zap.Int("tokens", outcomes[i].tokens))
		st.Files = append(st.Files, FileCount{Name: name, Tokens: outcomes[i].tokens})
	}
	st.Summary = Summarize(st.Counts())
	return st, nil
}

func (s *Service) countFile(ctx context.Context, path string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read: %w", err)
	}
	return s.counter.CountTokens(ctx, string(data))
}
