package experiment

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	exp "github.com/kailas-cloud/aerolab/internal/domain/experiment"
	"github.com/kailas-cloud/aerolab/internal/domain/flight"
	"github.com/kailas-cloud/aerolab/internal/domain/geometry"
	"github.com/kailas-cloud/aerolab/internal/usecase/vlm"
)

func writeSpec(t *testing.T, dir string, s exp.Spec) string {
	t.Helper()
	path := filepath.Join(dir, "experiments", s.ID+".yaml")
	if err := exp.SaveSpec(path, s); err != nil {
		t.Fatalf("save spec: %v", err)
	}
	return path
}

func TestRun_ReferenceExperiment(t *testing.T) {
	f := newFixture(t)
	req := f.request("default")

	out, err := f.svc.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// CL == 1 with CL = 0.1·alpha pins alpha at 10
	if math.Abs(out.Alpha-10) > 1e-2 {
		t.Errorf("alpha = %g, want ~10", out.Alpha)
	}
	if math.Abs(out.Aero.CL-1) > 1e-3 {
		t.Errorf("CL = %g, want ~1", out.Aero.CL)
	}
	// the rectangular start already holds area and taper
	if math.Abs(out.Area-2) > 1e-3 {
		t.Errorf("area = %g, want ~2", out.Area)
	}
	for i, d := range geometry.Diff(out.Chords) {
		if d > 1e-3 {
			t.Errorf("chord_diffs[%d] = %g, want <= 0", i, d)
		}
	}
	if out.MaxViolation > 1e-2 {
		t.Errorf("max violation %g", out.MaxViolation)
	}
	if out.Method == "" || out.Evaluations == 0 {
		t.Errorf("method %q evaluations %d", out.Method, out.Evaluations)
	}
	if len(out.Constraints) != 4 || math.Abs(out.Constraints[1].Target[0]-2) > 1e-9 {
		t.Errorf("area target should be the initial area, got %+v", out.Constraints[1])
	}

	// optimum is written back to the plane files
	_, _, op, err := f.planes.Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if math.Abs(op.Alpha-out.Alpha) > 1e-9 {
		t.Errorf("saved alpha = %g, want %g", op.Alpha, out.Alpha)
	}

	report, err := os.ReadFile(req.OutputPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	for _, want := range []string{"# Experiment: default", "## Constraints", "| CL | `==` |", "CDi (theory)", "default_plot.png"} {
		if !strings.Contains(string(report), want) {
			t.Errorf("report missing %q", want)
		}
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(req.OutputPath), "default_plot.png")); err != nil {
		t.Errorf("plot not written: %v", err)
	}
}

func TestRun_SpecFile(t *testing.T) {
	f := newFixture(t)
	spec := exp.Spec{
		ID:          "alpha-only",
		Variables:   []exp.Variable{{Name: exp.VarAlpha, Init: exp.Float(12), Lower: exp.Float(0), Upper: exp.Float(30)}},
		Constraints: []exp.Constraint{{Quantity: exp.QtyCL, Op: exp.OpEq, Value: exp.Float(0.5)}},
		Objective:   exp.Objective{Quantity: exp.QtyCD, Sense: exp.Minimize},
	}
	req := f.request(spec.ID)
	req.SpecPath = writeSpec(t, f.dir, spec)

	out, err := f.svc.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(out.Alpha-5) > 1e-2 {
		t.Errorf("alpha = %g, want ~5", out.Alpha)
	}
	if len(out.Variables) != 1 || len(out.Variables[0].Values) != 1 {
		t.Fatalf("variables = %+v", out.Variables)
	}
	// chords are not free, so they stay rectangular
	for i, c := range out.Chords {
		if c != 1 {
			t.Errorf("chord[%d] = %g, want 1", i, c)
		}
	}
	if _, err := os.Stat(req.PlotPath()); err != nil {
		t.Errorf("plot not written: %v", err)
	}
}

func TestRun_MaximizeHitsBound(t *testing.T) {
	f := newFixture(t)
	spec := exp.Spec{
		ID:        "max-alpha",
		Variables: []exp.Variable{{Name: exp.VarAlpha, Lower: exp.Float(0), Upper: exp.Float(8)}},
		Objective: exp.Objective{Quantity: exp.QtyCL, Sense: exp.Maximize},
	}
	req := f.request(spec.ID)
	req.SpecPath = writeSpec(t, f.dir, spec)

	out, err := f.svc.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(out.Alpha-8) > 1e-2 {
		t.Errorf("alpha = %g, want ~8 (upper bound)", out.Alpha)
	}
}

func TestRun_SolverError(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("singular")
	f.solver.runFn = func(a *geometry.Airplane, op flight.OperatingPoint) (vlm.Result, error) {
		if f.solver.calls.Load() > 3 {
			return vlm.Result{}, boom
		}
		return linearAero(a, op), nil
	}

	_, err := f.svc.Run(context.Background(), f.request("broken"))
	if !errors.Is(err, boom) {
		t.Fatalf("expected solver error, got %v", err)
	}
	if _, statErr := os.Stat(f.request("broken").OutputPath); !os.IsNotExist(statErr) {
		t.Error("no report should be written after a failed solve")
	}
}

func TestRun_SurvivesIsolatedSolverFailure(t *testing.T) {
	f := newFixture(t)
	f.solver.runFn = func(a *geometry.Airplane, op flight.OperatingPoint) (vlm.Result, error) {
		if f.solver.calls.Load() == 5 {
			return vlm.Result{}, errors.New("singular")
		}
		return linearAero(a, op), nil
	}

	req := f.request("flaky")
	if _, err := f.svc.Run(context.Background(), req); err != nil {
		t.Fatalf("one failed evaluation must not abort the run: %v", err)
	}
	if _, err := os.Stat(req.OutputPath); err != nil {
		t.Errorf("report not written: %v", err)
	}
}

func TestProblem_EvalFailureIsNotSticky(t *testing.T) {
	plane, err := geometry.MakePlane(geometry.WingParams{
		Span:           8,
		YsOverHalfSpan: []float64{0, 1},
		Chords:         []float64{1, 1},
		Twists:         []float64{0, 0},
	})
	if err != nil {
		t.Fatal(err)
	}
	solver := &mockSolver{runFn: func(a *geometry.Airplane, op flight.OperatingPoint) (vlm.Result, error) {
		if op.Velocity <= 0 {
			return vlm.Result{}, flight.ErrInvalidOperatingPoint
		}
		return linearAero(a, op), nil
	}}
	spec := exp.Spec{
		Variables: []exp.Variable{{Name: exp.VarVelocity}},
		Objective: exp.Objective{Quantity: exp.QtyCD, Sense: exp.Minimize},
	}
	p, err := newProblem(context.Background(), solver, design{plane: plane, op: flight.DefaultOperatingPoint()}, spec)
	if err != nil {
		t.Fatal(err)
	}

	if got := p.eval([]float64{-1}); got != failValue {
		t.Errorf("eval at negative velocity = %g, want failValue", got)
	}
	if got := p.eval([]float64{10}); got == failValue || p.err != nil {
		t.Errorf("eval after a failure = %g (err %v), want a real value", got, p.err)
	}

	for range maxFailStreak {
		p.eval([]float64{-1})
	}
	if !errors.Is(p.err, flight.ErrInvalidOperatingPoint) {
		t.Errorf("a failure streak should stop the run, err = %v", p.err)
	}
}

func TestProblem_EvalStopsOnCancel(t *testing.T) {
	plane, err := geometry.MakePlane(geometry.WingParams{
		Span:           8,
		YsOverHalfSpan: []float64{0, 1},
		Chords:         []float64{1, 1},
		Twists:         []float64{0, 0},
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	solver := &mockSolver{}
	spec := exp.Spec{
		Variables: []exp.Variable{{Name: exp.VarAlpha}},
		Objective: exp.Objective{Quantity: exp.QtyCD, Sense: exp.Minimize},
	}
	p, err := newProblem(ctx, solver, design{plane: plane, op: flight.DefaultOperatingPoint()}, spec)
	if err != nil {
		t.Fatal(err)
	}
	cancel()
	solver.runFn = func(*geometry.Airplane, flight.OperatingPoint) (vlm.Result, error) {
		return vlm.Result{}, context.Canceled
	}

	p.eval([]float64{3})
	if !errors.Is(p.err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", p.err)
	}
}

func TestRun_Canceled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.svc.Run(ctx, f.request("canceled")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRun_InvalidSpecFile(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("variables:\n  - name: wingspan\nobjective:\n  quantity: CD\n  sense: minimize\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	req := f.request("bad")
	req.SpecPath = path

	if _, err := f.svc.Run(context.Background(), req); !errors.Is(err, exp.ErrInvalidSpec) {
		t.Fatalf("expected ErrInvalidSpec, got %v", err)
	}
	if f.solver.calls.Load() != 0 {
		t.Error("solver should not run for an invalid spec")
	}
}

func TestRequest_Defaults(t *testing.T) {
	r := Request{}.withDefaults()
	if r.ID != DefaultID || r.OutputPath != DefaultOutputPath {
		t.Errorf("defaults = %+v", r)
	}
	if got := (Request{ID: "abc", OutputPath: "out/x.md"}).PlotPath(); got != filepath.Join("out", "abc_plot.png") {
		t.Errorf("PlotPath() = %q", got)
	}
	if got := (Request{}).PlotPath(); got != filepath.Join("experiment-results", "default_plot.png") {
		t.Errorf("default PlotPath() = %q", got)
	}
}

func TestViolation(t *testing.T) {
	tests := []struct {
		op   string
		v, t float64
		want float64
	}{
		{exp.OpEq, 1.5, 1, 0.5},
		{exp.OpEq, 0.5, 1, -0.5},
		{exp.OpLe, 0.5, 1, 0},
		{exp.OpLe, 1.5, 1, 0.5},
		{exp.OpGe, 1.5, 1, 0},
		{exp.OpGe, 0.25, 1, 0.75},
	}
	for _, tt := range tests {
		if got := violation(tt.op, tt.v, tt.t); got != tt.want {
			t.Errorf("violation(%s, %g, %g) = %g, want %g", tt.op, tt.v, tt.t, got, tt.want)
		}
	}
}

func TestEllipticChords(t *testing.T) {
	c := EllipticChords([]float64{0, 0.5, 1}, 0.25)
	c0 := 0.5 / math.Pi
	if math.Abs(c[0]-c0) > 1e-12 {
		t.Errorf("root chord = %g, want %g", c[0], c0)
	}
	if math.Abs(c[1]-c0*math.Sqrt(0.75)) > 1e-12 {
		t.Errorf("mid chord = %g", c[1])
	}
	if c[2] != 0 {
		t.Errorf("tip chord = %g, want 0", c[2])
	}
	if EllipticChords(nil, 1) != nil {
		t.Error("expected nil for no stations")
	}
}

func TestProblem_ApplyKeepsChordFraction(t *testing.T) {
	plane := geometry.Airplane{Wings: []geometry.Wing{{
		Symmetric: true,
		XSecs: []geometry.XSec{
			{LeadingEdge: geometry.V(-0.25, 0, 0), Chord: 1},
			{LeadingEdge: geometry.V(-0.25, 1, 0), Chord: 1},
		},
	}}}
	spec := exp.Spec{
		Variables: []exp.Variable{{Name: exp.VarChords}, {Name: exp.VarVelocity}},
		Objective: exp.Objective{Quantity: exp.QtyCD, Sense: exp.Minimize},
	}
	p, err := newProblem(context.Background(), &mockSolver{}, design{plane: plane, op: flight.DefaultOperatingPoint()}, spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.dim != 3 {
		t.Fatalf("dim = %d, want 3", p.dim)
	}
	if x := p.initialX(); x[0] != 1 || x[1] != 1 || x[2] != 1 {
		t.Errorf("initialX = %v", x)
	}

	d := p.apply([]float64{2, 0.5, 7})
	if le := d.wing().XSecs[0].LeadingEdge.X; le != -0.5 {
		t.Errorf("root LE x = %g, want -0.5", le)
	}
	if le := d.wing().XSecs[1].LeadingEdge.X; le != -0.125 {
		t.Errorf("tip LE x = %g, want -0.125", le)
	}
	if d.op.Velocity != 7 {
		t.Errorf("velocity = %g, want 7", d.op.Velocity)
	}
	if plane.Wings[0].XSecs[0].Chord != 1 {
		t.Error("apply must not modify the base design")
	}
}

func TestWithSettings(t *testing.T) {
	svc := New(nil, nil).WithSettings(Settings{Chordwise: 4, PenaltyRounds: 2})
	if got := svc.resolution(exp.Analysis{}); got.Chordwise != 4 || got.Spanwise != DefaultSpanwise {
		t.Errorf("resolution = %+v", got)
	}
	if got := svc.resolution(exp.Analysis{Chordwise: 12}); got.Chordwise != 12 {
		t.Errorf("spec analysis should win, got %+v", got)
	}
	if got := svc.maxIterations(exp.Analysis{}); got != DefaultMaxIterations {
		t.Errorf("maxIterations = %d", got)
	}
	if w := svc.settings.weights(); len(w) != 2 || w[1] != 1e2 {
		t.Errorf("weights = %v", w)
	}
	if w := (Settings{PenaltyRounds: 99}).weights(); len(w) != len(penaltyWeights) {
		t.Errorf("weights past the schedule = %v", w)
	}
}
