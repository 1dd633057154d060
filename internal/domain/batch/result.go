// Package batch reports per-item outcomes of bulk operations such as
// documentation ingestion.
package batch

import "errors"

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of processing one item in a batch operation.
type Result struct {
	id     string
	label  string
	status ItemStatus
	parts  int
	err    error
}

// NewOK records a processed item and how many parts (chunks) it produced.
func NewOK(id, label string, parts int) Result {
	return Result{id: id, label: label, status: StatusOK, parts: parts}
}

// NewError records a failed item.
func NewError(id, label string, err error) Result {
	return Result{id: id, label: label, status: StatusError, err: err}
}

// ID returns the item identifier.
func (r Result) ID() string { return r.id }

// Label is a human-readable name for the item, e.g. its file name.
func (r Result) Label() string { return r.label }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Parts returns the number of parts written for a successful item.
func (r Result) Parts() int { return r.parts }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Summary aggregates a batch.
type Summary struct {
	Items  int
	OK     int
	Failed int
	Parts  int
}

// Summarize counts outcomes across results.
func Summarize(results []Result) Summary {
	s := Summary{Items: len(results)}
	for _, r := range results {
		if r.status == StatusOK {
			s.OK++
			s.Parts += r.parts
			continue
		}
		s.Failed++
	}
	return s
}

// Join combines the errors of failed items, or returns nil when all succeeded.
func Join(results []Result) error {
	var errs []error
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
		}
	}
	return errors.Join(errs...)
}
