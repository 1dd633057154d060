// Package health reports whether the store and the optional documentation
// components answer.
package health

import "context"

// DBPinger is satisfied by db.Store.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// Checker is an optional component such as the parent-document store or the
// embedding provider.
type Checker interface {
	HealthCheck(ctx context.Context) error
}
