package experiment

import (
	"context"
	"math"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/kailas-cloud/aerolab/internal/domain/flight"
	"github.com/kailas-cloud/aerolab/internal/domain/geometry"
	"github.com/kailas-cloud/aerolab/internal/repository/planefile"
	"github.com/kailas-cloud/aerolab/internal/usecase/vlm"
)

// mockSolver stands in for the lattice solver with a closed-form lift and
// drag model: CL = 0.1·alpha, CD = 0.01 + CL²/(π·AR).
type mockSolver struct {
	calls atomic.Int64
	runFn func(a *geometry.Airplane, op flight.OperatingPoint) (vlm.Result, error)
}

func (m *mockSolver) Run(_ context.Context, a *geometry.Airplane, op flight.OperatingPoint) (vlm.Result, error) {
	m.calls.Add(1)
	if m.runFn != nil {
		return m.runFn(a, op)
	}
	return linearAero(a, op), nil
}

func linearAero(a *geometry.Airplane, op flight.OperatingPoint) vlm.Result {
	cl := 0.1 * op.Alpha
	ar := a.Wings[0].AspectRatio()
	return vlm.Result{CL: cl, CD: 0.01 + cl*cl/(math.Pi*ar)}
}

type fixture struct {
	svc    *Service
	solver *mockSolver
	planes *planefile.Repo
	dir    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	planes := planefile.New(filepath.Join(dir, "plane-definition"))
	solver := &mockSolver{}
	svc := New(planes, nil).WithSolverFactory(func(vlm.Resolution) Solver { return solver })
	return &fixture{svc: svc, solver: solver, planes: planes, dir: dir}
}

func (f *fixture) request(id string) Request {
	return Request{
		ID:         id,
		OutputPath: filepath.Join(f.dir, "experiment-results", "experiment.md"),
		Reset:      true,
	}
}
