package budget

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/kailas-cloud/aerolab/internal/db"
)

type kv struct {
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
}

func newKV() *kv {
	return &kv{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *kv) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *kv) IncrBy(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	cur, err := m.Get(ctx, key)
	if errors.Is(err, db.ErrKeyNotFound) {
		cur, err = []byte("0"), nil
		m.ttls[key] = ttl
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(string(cur), 10, 64)
	if err != nil {
		return 0, err
	}
	n += delta
	m.data[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

func TestStore_IncrBy(t *testing.T) {
	ctx := context.Background()
	kv := newKV()
	s := New(kv, time.Hour, 2*time.Hour)

	for _, n := range []int64{5, 7} {
		if err := s.IncrBy(ctx, "aerolab:budget:gemini:daily:2026-03-09", n); err != nil {
			t.Fatalf("IncrBy: %v", err)
		}
	}
	got, err := s.Get(ctx, "aerolab:budget:gemini:daily:2026-03-09")
	if err != nil {
		t.Fatal(err)
	}
	if got != 12 {
		t.Errorf("got %d, want 12", got)
	}
	if ttl := kv.ttls["aerolab:budget:gemini:daily:2026-03-09"]; ttl != time.Hour {
		t.Errorf("daily ttl = %v", ttl)
	}

	if err := s.IncrBy(ctx, "aerolab:budget:gemini:monthly:2026-03", 3); err != nil {
		t.Fatal(err)
	}
	if ttl := kv.ttls["aerolab:budget:gemini:monthly:2026-03"]; ttl != 2*time.Hour {
		t.Errorf("monthly ttl = %v", ttl)
	}
}

func TestStore_GetMissingIsZero(t *testing.T) {
	got, err := New(newKV(), 0, 0).Get(context.Background(), "missing")
	if err != nil || got != 0 {
		t.Fatalf("got %d, %v", got, err)
	}
}

func TestStore_Errors(t *testing.T) {
	ctx := context.Background()

	bad := newKV()
	bad.data["k"] = []byte("not a number")
	if _, err := New(bad, 0, 0).Get(ctx, "k"); err == nil {
		t.Error("expected parse error")
	}

	down := newKV()
	down.getErr = errors.New("connection refused")
	if err := New(down, 0, 0).IncrBy(ctx, "k", 1); err == nil {
		t.Error("expected error from a failing store")
	}
}

func TestNew_DefaultTTLs(t *testing.T) {
	s := New(newKV(), 0, -1)
	if s.dailyTTL != DefaultDailyTTL || s.monthTTL != DefaultMonthlyTTL {
		t.Errorf("ttls = %v, %v", s.dailyTTL, s.monthTTL)
	}
}
