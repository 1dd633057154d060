// Package embedding guards embedding providers with a token budget.
package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/aerolab/internal/domain"
)

// DefaultKeyPrefix namespaces persisted budget counters.
const DefaultKeyPrefix = "aerolab:"

// persistTimeout bounds the write-behind of one Record call.
const persistTimeout = 2 * time.Second

// BudgetAction defines behavior when the token budget is exhausted.
type BudgetAction string

const (
	// BudgetActionWarn logs a warning but lets the request through.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject blocks the request.
	BudgetActionReject BudgetAction = "reject"
)

// Window is a budget period. Periods follow the UTC calendar.
type Window string

// Budget windows. The names appear in persisted keys and metric labels.
const (
	WindowDay   Window = "daily"
	WindowMonth Window = "monthly"
)

// Windows lists every budget window, shortest first.
var Windows = []Window{WindowDay, WindowMonth}

// Start returns the beginning of the window containing t.
func (w Window) Start(t time.Time) time.Time {
	t = t.UTC()
	if w == WindowMonth {
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (w Window) layout() string {
	if w == WindowMonth {
		return "2006-01"
	}
	return "2006-01-02"
}

// Usage is the state of one window. A zero Limit is unlimited.
type Usage struct {
	Limit int64
	Used  int64
	Start time.Time
}

// Remaining returns tokens left in the window, -1 if unlimited.
func (u Usage) Remaining() int64 {
	if u.Limit <= 0 {
		return -1
	}
	return max(u.Limit-u.Used, 0)
}

// Exhausted reports whether a limited window has been spent.
func (u Usage) Exhausted() bool {
	return u.Limit > 0 && u.Used >= u.Limit
}

// BudgetStore persists budget counters.
type BudgetStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

// BudgetTracker counts embedding tokens per window. Check reads memory
// only; Record updates memory first and then writes behind to the store.
type BudgetTracker struct {
	mu        sync.Mutex
	provider  string
	keyPrefix string
	action    BudgetAction
	windows   map[Window]*Usage
	store     BudgetStore
	now       func() time.Time
	logger    *zap.Logger
}

// NewBudgetTracker creates a tracker. A zero limit is unlimited.
func NewBudgetTracker(
	provider string, dailyLimit, monthlyLimit int64,
	action BudgetAction, logger *zap.Logger,
) *BudgetTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &BudgetTracker{
		provider:  provider,
		keyPrefix: DefaultKeyPrefix,
		action:    action,
		windows: map[Window]*Usage{
			WindowDay:   {Limit: dailyLimit},
			WindowMonth: {Limit: monthlyLimit},
		},
		now:    time.Now,
		logger: logger,
	}
	b.resetWindows(b.now())
	return b
}

// WithKeyPrefix overrides the namespace of persisted counters. Call it
// before WithStore.
func (b *BudgetTracker) WithKeyPrefix(prefix string) *BudgetTracker {
	b.keyPrefix = prefix
	return b
}

// WithClock replaces the time source and restarts the windows from it.
func (b *BudgetTracker) WithClock(now func() time.Time) *BudgetTracker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
	b.resetWindows(now())
	return b
}

// WithStore attaches a persistence store and loads the current counters.
// A failed load leaves the counter at zero.
func (b *BudgetTracker) WithStore(ctx context.Context, store BudgetStore) *BudgetTracker {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.store = store
	for _, w := range Windows {
		u := b.windows[w]
		key := b.key(w, u.Start)
		used, err := store.Get(ctx, key)
		if err != nil {
			b.logger.Warn("Failed to load budget counter", zap.String("key", key), zap.Error(err))
			continue
		}
		u.Used = used
	}
	b.logger.Debug("Budget loaded from store",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.windows[WindowDay].Used),
		zap.Int64("monthly_used", b.windows[WindowMonth].Used),
	)
	return b
}

func (b *BudgetTracker) key(w Window, start time.Time) string {
	return fmt.Sprintf("%sbudget:%s:%s:%s", b.keyPrefix, b.provider, w, start.Format(w.layout()))
}

// Provider returns the provider the budget belongs to.
func (b *BudgetTracker) Provider() string { return b.provider }

// Usage returns a snapshot of one window.
func (b *BudgetTracker) Usage(w Window) Usage {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollover(b.now())
	if u, ok := b.windows[w]; ok {
		return *u
	}
	return Usage{}
}

// Check reports whether a new request is allowed. With BudgetActionWarn a
// spent budget is only logged.
func (b *BudgetTracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollover(b.now())

	for _, w := range Windows {
		u := b.windows[w]
		if !u.Exhausted() {
			continue
		}
		if b.action == BudgetActionReject {
			return fmt.Errorf("%s budget of %d tokens spent: %w", w, u.Limit, domain.ErrEmbeddingQuotaExceeded)
		}
		b.logger.Warn("Token budget exceeded",
			zap.String("provider", b.provider),
			zap.String("window", string(w)),
			zap.Int64("used", u.Used),
			zap.Int64("limit", u.Limit),
		)
		return nil
	}
	return nil
}

// Record registers consumed tokens after a request.
func (b *BudgetTracker) Record(tokens int64) {
	b.mu.Lock()
	b.rollover(b.now())
	keys := make([]string, 0, len(Windows))
	for _, w := range Windows {
		u := b.windows[w]
		u.Used += tokens
		keys = append(keys, b.key(w, u.Start))
	}
	store := b.store
	b.mu.Unlock()

	if store == nil {
		return
	}

	// Store writes must not inherit the caller's cancellation.
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	for _, key := range keys {
		if err := store.IncrBy(ctx, key, tokens); err != nil {
			b.logger.Warn("Failed to persist budget counter", zap.String("key", key), zap.Error(err))
		}
	}
}

func (b *BudgetTracker) resetWindows(now time.Time) {
	for w, u := range b.windows {
		u.Used = 0
		u.Start = w.Start(now)
	}
}

// rollover zeroes every window whose period has ended.
func (b *BudgetTracker) rollover(now time.Time) {
	for w, u := range b.windows {
		if start := w.Start(now); start.After(u.Start) {
			u.Used = 0
			u.Start = start
		}
	}
}
