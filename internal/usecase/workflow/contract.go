package workflow

import (
	"context"

	engine "github.com/kailas-cloud/aerolab/internal/usecase/experiment"
)

// Runner executes a composed experiment.
type Runner interface {
	Run(ctx context.Context, req engine.Request) (engine.Outcome, error)
}
