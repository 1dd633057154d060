package health

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/iter"
)

// Status is the overall verdict.
type Status string

const (
	// Healthy means every component answered.
	Healthy Status = "healthy"
	// Degraded means an optional component failed.
	Degraded Status = "degraded"
	// Unhealthy means the database is unreachable.
	Unhealthy Status = "unhealthy"
)

// CheckResult is one component's outcome.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// DefaultTimeout bounds each component check.
const DefaultTimeout = 2 * time.Second

// DatabaseComponent names the store in reports.
const DatabaseComponent = "database"

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

type component struct {
	name     string
	check    func(context.Context) error
	critical bool
}

// Service probes the database and any optional components concurrently.
type Service struct {
	components []component
	timeout    time.Duration
}

// New creates a Service around the database, the only critical component.
func New(db DBPinger) *Service {
	return &Service{
		components: []component{{name: DatabaseComponent, check: db.Ping, critical: true}},
		timeout:    DefaultTimeout,
	}
}

// With registers an optional component. A nil checker is ignored.
func (s *Service) With(name string, c Checker) *Service {
	if c != nil {
		s.components = append(s.components, component{name: name, check: c.HealthCheck})
	}
	return s
}

// Check runs every probe and folds the outcomes into one status.
func (s *Service) Check(ctx context.Context) Report {
	// iter.Map alone caps workers at GOMAXPROCS; every check gets its own.
	mapper := iter.Mapper[component, bool]{MaxGoroutines: len(s.components)}
	failed := mapper.Map(s.components, func(c *component) bool {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return c.check(cctx) != nil
	})

	r := Report{Status: Healthy, Checks: make(map[string]CheckResult, len(s.components))}
	for i, c := range s.components {
		if !failed[i] {
			r.Checks[c.name] = CheckOK
			continue
		}
		r.Checks[c.name] = CheckError
		switch {
		case c.critical:
			r.Status = Unhealthy
		case r.Status == Healthy:
			r.Status = Degraded
		}
	}
	return r
}
