// Package usage reports embedding token consumption against the budget.
package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/kailas-cloud/aerolab/internal/usecase/embedding"
)

// Period is the aggregation granularity.
type Period string

// Aggregation periods.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodTotal Period = "total"
)

// ParsePeriod maps a query value to a Period. Empty means month.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "":
		return PeriodMonth, nil
	case PeriodDay, PeriodMonth, PeriodTotal:
		return Period(s), nil
	}
	return "", fmt.Errorf("unknown usage period %q (want day, month or total)", s)
}

// Report is an embedding usage snapshot. Remaining is -1 when the period
// has no limit; Start, End and ResetsAt are zero for PeriodTotal.
type Report struct {
	Provider  string    `json:"provider"`
	Period    Period    `json:"period"`
	Start     time.Time `json:"period_start,omitzero"`
	End       time.Time `json:"period_end,omitzero"`
	Limit     int64     `json:"tokens_limit"`
	Used      int64     `json:"tokens_used"`
	Remaining int64     `json:"tokens_remaining"`
	Exhausted bool      `json:"exhausted"`
	ResetsAt  time.Time `json:"resets_at,omitzero"`
}

// String renders the report for the terminal.
func (r Report) String() string {
	limit, remaining := "unlimited", "unlimited"
	if r.Limit > 0 {
		limit = humanize.Comma(r.Limit)
		remaining = humanize.Comma(r.Remaining)
	}
	s := fmt.Sprintf("%s used %s of %s tokens (%s left)",
		r.Period, humanize.Comma(r.Used), limit, remaining)
	if !r.ResetsAt.IsZero() {
		s += ", resets " + humanize.Time(r.ResetsAt)
	}
	if r.Exhausted {
		s += " [exhausted]"
	}
	return s
}

// Service handles usage reporting.
type Service struct {
	br  BudgetReader
	now func() time.Time
}

// New creates a Service. br can be nil (no embedder configured).
func New(br BudgetReader) *Service {
	return &Service{br: br, now: time.Now}
}

// GetReport builds a usage report for the given period.
func (s *Service) GetReport(_ context.Context, period Period) Report {
	now := s.now().UTC()
	r := Report{Period: period, Remaining: -1}

	var w embedding.Window
	switch period {
	case PeriodDay:
		w = embedding.WindowDay
		r.Start = w.Start(now)
		r.End = r.Start.AddDate(0, 0, 1)
	case PeriodMonth:
		w = embedding.WindowMonth
		r.Start = w.Start(now)
		r.End = r.Start.AddDate(0, 1, 0)
	default:
		// counters are kept per month at most, so total mirrors the month
		// without period boundaries
		r.Period = PeriodTotal
		w = embedding.WindowMonth
	}

	if s.br != nil {
		r.Provider = s.br.Provider()
		u := s.br.Usage(w)
		r.Limit, r.Used, r.Remaining = u.Limit, u.Used, u.Remaining()
		r.Exhausted = u.Exhausted()
	}
	if r.Limit > 0 {
		r.ResetsAt = r.End
	}
	return r
}
