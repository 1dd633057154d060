package embedding

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aerolab/internal/domain"
	"github.com/kailas-cloud/aerolab/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	os.Exit(m.Run())
}

type mockEmbedder struct {
	result     domain.EmbeddingResult
	err        error
	batchErr   error
	batchCalls int
	batchSizes []int
	lastTask   domain.TaskType
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return m.result, m.err
}

func (m *mockEmbedder) EmbedTask(_ context.Context, texts []string, task domain.TaskType) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	m.batchSizes = append(m.batchSizes, len(texts))
	m.lastTask = task
	if m.batchErr != nil {
		return domain.BatchEmbeddingResult{}, m.batchErr
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = m.result.Embedding
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: m.result.PromptTokens * len(texts),
		TotalTokens:  m.result.TotalTokens * len(texts),
	}, nil
}

// plainEmbedder has no batch path.
type plainEmbedder struct {
	calls int
}

func (p *plainEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	p.calls++
	return domain.EmbeddingResult{Embedding: []float32{1}, TotalTokens: 3}, nil
}

func TestBudgetedEmbedder_Embed(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	p := NewBudgetedEmbedder(inner, "test", "test-model", nil, zap.NewNop())

	result, err := p.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 {
		t.Fatalf("expected 3 dimensions, got %d", len(result.Embedding))
	}
}

func TestBudgetedEmbedder_EmbedError(t *testing.T) {
	inner := &mockEmbedder{err: domain.ErrEmbeddingProviderError}
	p := NewBudgetedEmbedder(inner, "test", "m", nil, zap.NewNop())

	if _, err := p.Embed(context.Background(), "hello"); !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestBudgetedEmbedder_BudgetRejection(t *testing.T) {
	bt := NewBudgetTracker("test", 10, 0, BudgetActionReject, zap.NewNop())
	bt.Record(10)
	inner := &mockEmbedder{}
	p := NewBudgetedEmbedder(inner, "test", "m", bt, zap.NewNop())

	if _, err := p.Embed(context.Background(), "hello"); !errors.Is(err, domain.ErrEmbeddingQuotaExceeded) {
		t.Fatalf("Embed: expected quota error, got %v", err)
	}
	_, err := p.EmbedTask(context.Background(), []string{"a", "b"}, domain.TaskRetrievalDocument)
	if !errors.Is(err, domain.ErrEmbeddingQuotaExceeded) {
		t.Fatalf("EmbedTask: expected quota error, got %v", err)
	}
	if inner.batchCalls != 0 {
		t.Errorf("provider must not be called over budget, got %d calls", inner.batchCalls)
	}
}

func TestBudgetedEmbedder_RecordsReportedTokens(t *testing.T) {
	bt := NewBudgetTracker("test-reported", 1000, 5000, BudgetActionReject, zap.NewNop())
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}, TotalTokens: 50}}
	p := NewBudgetedEmbedder(inner, "test-reported", "m", bt, zap.NewNop())

	if _, err := p.Embed(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	if bt.Usage(WindowDay).Used != 50 {
		t.Errorf("daily used = %d, want 50", bt.Usage(WindowDay).Used)
	}
	gauge := metrics.EmbeddingBudgetTokensRemaining.WithLabelValues("test-reported", "daily")
	if got := testutil.ToFloat64(gauge); got != 950 {
		t.Errorf("daily remaining gauge = %v, want 950", got)
	}
}

func TestBudgetedEmbedder_EstimatesWhenUnreported(t *testing.T) {
	bt := NewBudgetTracker("test-estimate", 0, 0, BudgetActionWarn, zap.NewNop())
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	p := NewBudgetedEmbedder(inner, "test-estimate", "m", bt, zap.NewNop())

	texts := []string{strings.Repeat("x", 8), strings.Repeat("y", 9)}
	if _, err := p.EmbedTask(context.Background(), texts, domain.TaskRetrievalQuery); err != nil {
		t.Fatal(err)
	}
	// 8 chars -> 2 tokens, 9 chars -> 3 tokens
	if bt.Usage(WindowDay).Used != 5 {
		t.Errorf("daily used = %d, want 5", bt.Usage(WindowDay).Used)
	}
	if inner.lastTask != domain.TaskRetrievalQuery {
		t.Errorf("task not forwarded: %q", inner.lastTask)
	}
}

func TestBudgetedEmbedder_EmbedTaskChunks(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1, 2}, TotalTokens: 1}}
	p := NewBudgetedEmbedder(inner, "test", "m", nil, zap.NewNop()).WithMaxBatchSize(2)

	res, err := p.EmbedTask(context.Background(), []string{"a", "b", "c", "d", "e"}, domain.TaskRetrievalDocument)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Embeddings) != 5 {
		t.Fatalf("got %d embeddings, want 5", len(res.Embeddings))
	}
	if res.TotalTokens != 5 {
		t.Errorf("total tokens = %d, want 5", res.TotalTokens)
	}
	want := []int{2, 2, 1}
	if len(inner.batchSizes) != len(want) {
		t.Fatalf("batch sizes = %v, want %v", inner.batchSizes, want)
	}
	for i := range want {
		if inner.batchSizes[i] != want[i] {
			t.Fatalf("batch sizes = %v, want %v", inner.batchSizes, want)
		}
	}
}

func TestBudgetedEmbedder_EmbedTaskStopsWhenBudgetRunsOut(t *testing.T) {
	bt := NewBudgetTracker("test-stop", 2, 0, BudgetActionReject, zap.NewNop())
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}, TotalTokens: 1}}
	p := NewBudgetedEmbedder(inner, "test-stop", "m", bt, zap.NewNop()).WithMaxBatchSize(2)

	_, err := p.EmbedTask(context.Background(), []string{"a", "b", "c"}, domain.TaskRetrievalDocument)
	if !errors.Is(err, domain.ErrEmbeddingQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
	if inner.batchCalls != 1 {
		t.Errorf("expected the second chunk to be refused, got %d calls", inner.batchCalls)
	}
}

func TestBudgetedEmbedder_EmbedTaskInnerError(t *testing.T) {
	inner := &mockEmbedder{batchErr: domain.ErrRateLimited}
	p := NewBudgetedEmbedder(inner, "test", "m", nil, zap.NewNop())

	_, err := p.EmbedTask(context.Background(), []string{"a"}, domain.TaskRetrievalDocument)
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}

func TestBudgetedEmbedder_EmbedTaskEmpty(t *testing.T) {
	inner := &mockEmbedder{}
	p := NewBudgetedEmbedder(inner, "test", "m", nil, zap.NewNop())

	res, err := p.EmbedTask(context.Background(), nil, domain.TaskRetrievalDocument)
	if err != nil {
		t.Fatal(err)
	}
	if res.Embeddings != nil || inner.batchCalls != 0 {
		t.Errorf("empty input must not reach the provider")
	}
}

func TestBudgetedEmbedder_FallbackToSingle(t *testing.T) {
	inner := &plainEmbedder{}
	p := NewBudgetedEmbedder(inner, "test", "m", nil, zap.NewNop())

	res, err := p.EmbedTask(context.Background(), []string{"a", "b", "c"}, domain.TaskRetrievalDocument)
	if err != nil {
		t.Fatal(err)
	}
	if inner.calls != 3 || len(res.Embeddings) != 3 || res.TotalTokens != 9 {
		t.Errorf("fallback: calls=%d embeddings=%d tokens=%d", inner.calls, len(res.Embeddings), res.TotalTokens)
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		texts []string
		want  int64
	}{
		{nil, 0},
		{[]string{""}, 0},
		{[]string{"abc"}, 1},
		{[]string{"abcd"}, 1},
		{[]string{"abcde", "a"}, 3},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.texts...); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.texts, got, tt.want)
		}
	}
}
