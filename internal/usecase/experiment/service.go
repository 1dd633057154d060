// Package experiment runs declarative optimization experiments against the
// plane files: it binds the free variables, minimizes a penalized objective
// with gonum, writes the optimum back and reports on it.
package experiment

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"

	exp "github.com/kailas-cloud/aerolab/internal/domain/experiment"
	"github.com/kailas-cloud/aerolab/internal/usecase/vlm"
)

// Defaults for Request and the optimizer.
const (
	DefaultID            = "default"
	DefaultOutputPath    = "./experiment-results/experiment.md"
	DefaultMaxIterations = 200
	DefaultChordwise     = 8
	DefaultSpanwise      = 1

	// Tolerance on the largest constraint violation for a run to count as feasible.
	FeasibilityTolerance = 1e-4
)

// penaltyWeights is the outer schedule. Each stage restarts the inner
// solve from the previous optimum.
var penaltyWeights = []float64{1e1, 1e2, 1e3, 1e4, 1e5}

// Settings are the fallbacks used when an experiment document leaves its
// analysis section empty, plus optimizer limits.
type Settings struct {
	Chordwise          int
	Spanwise           int
	MaxIterations      int
	PenaltyRounds      int // at most len(penaltyWeights)
	MaxFuncEvaluations int // 0 means unlimited
}

// DefaultSettings mirror the experiment template.
func DefaultSettings() Settings {
	return Settings{
		Chordwise:     DefaultChordwise,
		Spanwise:      DefaultSpanwise,
		MaxIterations: DefaultMaxIterations,
		PenaltyRounds: len(penaltyWeights),
	}
}

func (st Settings) weights() []float64 {
	if st.PenaltyRounds <= 0 || st.PenaltyRounds > len(penaltyWeights) {
		return penaltyWeights
	}
	return penaltyWeights[:st.PenaltyRounds]
}

// Request selects an experiment and where its report goes.
type Request struct {
	ID         string
	SpecPath   string // empty runs the reference experiment
	OutputPath string
	Reset      bool
}

func (r Request) withDefaults() Request {
	if r.ID == "" {
		r.ID = DefaultID
	}
	if r.OutputPath == "" {
		r.OutputPath = DefaultOutputPath
	}
	return r
}

// PlotPath is <dir(output)>/<id>_plot.png.
func (r Request) PlotPath() string {
	r = r.withDefaults()
	return filepath.Join(filepath.Dir(r.OutputPath), r.ID+"_plot.png")
}

// Service runs experiments.
type Service struct {
	planes    PlaneRepo
	newSolver SolverFactory
	observer  vlm.Observer
	settings  Settings
	logger    *zap.Logger
}

// New creates a Service that solves with the vortex-lattice method.
func New(planes PlaneRepo, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{planes: planes, settings: DefaultSettings(), logger: logger}
	s.newSolver = s.vlmSolver
	return s
}

// WithSolverFactory replaces the aerodynamic solver.
func (s *Service) WithSolverFactory(f SolverFactory) *Service {
	s.newSolver = f
	return s
}

// WithSettings replaces the analysis fallbacks and optimizer limits. Zero
// fields keep their defaults.
func (s *Service) WithSettings(st Settings) *Service {
	d := DefaultSettings()
	if st.Chordwise <= 0 {
		st.Chordwise = d.Chordwise
	}
	if st.Spanwise <= 0 {
		st.Spanwise = d.Spanwise
	}
	if st.MaxIterations <= 0 {
		st.MaxIterations = d.MaxIterations
	}
	if st.PenaltyRounds <= 0 {
		st.PenaltyRounds = d.PenaltyRounds
	}
	s.settings = st
	return s
}

// WithObserver attaches a solve observer to the default solver.
func (s *Service) WithObserver(o vlm.Observer) *Service {
	s.observer = o
	return s
}

func (s *Service) vlmSolver(res vlm.Resolution) Solver {
	solver := vlm.New(res)
	if s.observer != nil {
		solver = solver.WithObserver(s.observer)
	}
	return solver
}

// Run executes one experiment end to end.
func (s *Service) Run(ctx context.Context, req Request) (Outcome, error) {
	req = req.withDefaults()

	spec := exp.Reference()
	if req.SpecPath != "" {
		loaded, err := exp.LoadSpec(req.SpecPath)
		if err != nil {
			return Outcome{}, err
		}
		spec = loaded
	}
	if err := spec.Validate(); err != nil {
		return Outcome{}, err
	}

	if req.Reset {
		if err := s.planes.Reset(); err != nil {
			return Outcome{}, err
		}
	}
	base, plane, op, err := s.planes.Load()
	if err != nil {
		return Outcome{}, err
	}

	logger := s.logger.With(zap.String("experiment", req.ID))
	logger.Info("experiment started",
		zap.Int("variables", len(spec.Variables)),
		zap.Int("constraints", len(spec.Constraints)),
		zap.String("objective", spec.Objective.Sense+" "+spec.Objective.Quantity),
	)

	solver := s.newSolver(s.resolution(spec.Analysis))
	p, err := newProblem(ctx, solver, design{plane: plane, op: op}, spec)
	if err != nil {
		return Outcome{}, err
	}
	x, method, err := s.minimize(ctx, p, s.maxIterations(spec.Analysis), logger)
	if err != nil {
		return Outcome{}, err
	}

	best := p.apply(x)
	aero, err := solver.Run(ctx, &best.plane, best.op)
	if err != nil {
		return Outcome{}, fmt.Errorf("evaluate optimum: %w", err)
	}
	out := newOutcome(req, spec, p, x, best, aero)
	out.Method = method
	out.Evaluations = p.evals

	if err := s.planes.Save(base, best.plane, best.op); err != nil {
		return Outcome{}, err
	}
	if err := WriteReport(req.OutputPath, out); err != nil {
		return Outcome{}, err
	}
	if err := SaveChordPlot(out.PlotPath, out); err != nil {
		return Outcome{}, err
	}

	logger.Info("experiment finished",
		zap.String("method", method),
		zap.Int("evaluations", p.evals),
		zap.Float64("objective", out.Objective),
		zap.Float64("max_violation", out.MaxViolation),
		zap.String("report", req.OutputPath),
	)
	if !out.Feasible() {
		logger.Warn("optimum violates constraints", zap.Float64("max_violation", out.MaxViolation))
	}
	return out, nil
}

func (s *Service) resolution(a exp.Analysis) vlm.Resolution {
	res := vlm.DefaultResolution()
	res.Chordwise, res.Spanwise = s.settings.Chordwise, s.settings.Spanwise
	if a.Chordwise > 0 {
		res.Chordwise = a.Chordwise
	}
	if a.Spanwise > 0 {
		res.Spanwise = a.Spanwise
	}
	return res
}

func (s *Service) maxIterations(a exp.Analysis) int {
	if a.MaxIterations > 0 {
		return a.MaxIterations
	}
	return s.settings.MaxIterations
}

// minimize runs the penalty schedule. Each stage uses BFGS with a
// finite-difference gradient and falls back to Nelder-Mead when the line
// search breaks down.
func (s *Service) minimize(ctx context.Context, p *problem, iters int, logger *zap.Logger) ([]float64, string, error) {
	prob := optimize.Problem{
		Func: p.eval,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, p.eval, x, &fd.Settings{Formula: fd.Central})
		},
		Status: func() (optimize.Status, error) {
			if p.err != nil {
				return optimize.Failure, p.err
			}
			if err := ctx.Err(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}
	settings := &optimize.Settings{MajorIterations: iters, FuncEvaluations: s.settings.MaxFuncEvaluations}

	x := p.initialX()
	method := "BFGS"
	for stage, mu := range s.settings.weights() {
		p.mu = mu
		res, err := optimize.Minimize(prob, x, settings, &optimize.BFGS{})
		if abort := p.abortErr(ctx); abort != nil {
			return nil, "", abort
		}
		if !usable(res, err) {
			logger.Warn("bfgs failed, falling back to nelder-mead", zap.Int("stage", stage), zap.Error(err))
			method = "Nelder-Mead"
			res, err = optimize.Minimize(optimize.Problem{Func: p.eval, Status: prob.Status}, x,
				&optimize.Settings{MajorIterations: iters * len(x), FuncEvaluations: s.settings.MaxFuncEvaluations},
				&optimize.NelderMead{})
			if abort := p.abortErr(ctx); abort != nil {
				return nil, "", abort
			}
			if !usable(res, err) {
				return nil, "", fmt.Errorf("optimize: %w", err)
			}
		}
		x = res.X

		q, qerr := p.quantities(p.apply(x))
		if qerr != nil {
			return nil, "", fmt.Errorf("evaluate stage %d: %w", stage, qerr)
		}
		worst := p.maxViolation(x, q)
		logger.Debug("penalty stage done",
			zap.Int("stage", stage),
			zap.Float64("weight", mu),
			zap.Float64("objective", p.objective(q)),
			zap.Float64("max_violation", worst),
			zap.Int("iterations", res.MajorIterations),
		)
		if worst < FeasibilityTolerance && stage > 0 {
			break
		}
	}
	return x, method, nil
}

func (p *problem) abortErr(ctx context.Context) error {
	if p.err != nil {
		return fmt.Errorf("solve: %w", p.err)
	}
	return ctx.Err()
}

// usable accepts results that stopped on an evaluation or iteration limit.
func usable(res *optimize.Result, err error) bool {
	if res == nil || len(res.X) == 0 {
		return false
	}
	if err == nil {
		return true
	}
	switch res.Status {
	case optimize.IterationLimit, optimize.FunctionEvaluationLimit, optimize.RuntimeLimit:
		return true
	}
	return false
}

var _ Solver = (*vlm.Solver)(nil)
