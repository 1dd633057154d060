package experiment

import (
	"context"

	"github.com/kailas-cloud/aerolab/internal/domain/flight"
	"github.com/kailas-cloud/aerolab/internal/domain/geometry"
	"github.com/kailas-cloud/aerolab/internal/repository/planefile"
	"github.com/kailas-cloud/aerolab/internal/usecase/vlm"
)

// PlaneRepo owns the airplane and operating-point files an experiment reads
// and rewrites.
type PlaneRepo interface {
	Reset() error
	Load() (planefile.AirplaneFile, geometry.Airplane, flight.OperatingPoint, error)
	Save(base planefile.AirplaneFile, plane geometry.Airplane, op flight.OperatingPoint) error
}

// Solver evaluates aerodynamic coefficients for one design.
type Solver interface {
	Run(ctx context.Context, airplane *geometry.Airplane, op flight.OperatingPoint) (vlm.Result, error)
}

// SolverFactory builds a solver for the lattice resolution an experiment asks for.
type SolverFactory func(res vlm.Resolution) Solver
