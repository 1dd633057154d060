// Package airplane builds airplanes from per-station wing definitions, saves
// them, and runs quick aerodynamic analyses on saved planes.
package airplane

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/aerolab/internal/domain"
	"github.com/kailas-cloud/aerolab/internal/domain/flight"
	"github.com/kailas-cloud/aerolab/internal/domain/geometry"
	logpkg "github.com/kailas-cloud/aerolab/internal/logger"
	"github.com/kailas-cloud/aerolab/internal/usecase/vlm"
)

// DefaultOutputFilename is used when a definition names no file.
const DefaultOutputFilename = "airplane.json"

const fileSuffix = ".json"

// Definition is a wing described by per-station arrays plus where to save it.
type Definition struct {
	Span               float64
	YsOverHalfSpan     []float64
	Chords             []float64
	Twists             []float64
	Offsets            []float64
	HeaveDisplacements []float64
	TwistDisplacements []float64
	OutputFilename     string
}

// Range is an inclusive min/max pair.
type Range struct {
	Min, Max float64
}

func rangeOf(vs []float64) Range {
	return Range{Min: slices.Min(vs), Max: slices.Max(vs)}
}

// Summary describes a created airplane.
type Summary struct {
	Path      string
	Span      float64
	Stations  int
	Chord     Range
	Twist     Range
	Heave     *Range
	TwistDisp *Range
}

// String renders the success report.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Airplane successfully created and saved!\n\n")
	fmt.Fprintf(&b, "Output file: %s\n", s.Path)
	fmt.Fprintf(&b, "Wing span: %g m\n", s.Span)
	fmt.Fprintf(&b, "Number of cross-sections: %d\n", s.Stations)
	fmt.Fprintf(&b, "Chord range: %.3f - %.3f m\n", s.Chord.Min, s.Chord.Max)
	fmt.Fprintf(&b, "Twist range: %.1f - %.1f deg", s.Twist.Min, s.Twist.Max)
	if s.Heave != nil {
		fmt.Fprintf(&b, "\nHeave displacement range: %.3f - %.3f m", s.Heave.Min, s.Heave.Max)
	}
	if s.TwistDisp != nil {
		fmt.Fprintf(&b, "\nTwist displacement range: %.1f - %.1f deg", s.TwistDisp.Min, s.TwistDisp.Max)
	}
	return b.String()
}

// ErrorText renders a Create failure the way tool callers expect: length
// problems as "Error: ...", anything else as "Error creating airplane: ...".
func ErrorText(err error) string {
	var le *geometry.LengthError
	if errors.As(err, &le) {
		return "Error: " + le.Error()
	}
	return "Error creating airplane: " + err.Error()
}

// Service creates and analyzes airplanes.
type Service struct {
	store    Store
	dir      string
	observer vlm.Observer
	logger   *zap.Logger
}

// New creates a Service. Relative output filenames resolve against dir.
func New(store Store, dir string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, dir: dir, logger: logger}
}

// WithObserver attaches a solve observer to analyses.
func (s *Service) WithObserver(o vlm.Observer) *Service {
	s.observer = o
	return s
}

// OutputPath resolves the file a definition will be written to.
func (s *Service) OutputPath(filename string) (string, error) {
	if filename == "" {
		filename = DefaultOutputFilename
	}
	if !strings.HasSuffix(filename, fileSuffix) {
		filename += fileSuffix
	}
	return s.resolve(filename)
}

// resolve maps a filename into the service directory. Absolute names and
// names that climb out of the directory are rejected.
func (s *Service) resolve(name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %q must be relative to the airplane directory", domain.ErrInvalidInput, name)
	}
	root, err := filepath.Abs(s.dir)
	if err != nil {
		return "", fmt.Errorf("resolve airplane directory: %w", err)
	}
	path := filepath.Join(root, name)
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q is outside the airplane directory", domain.ErrInvalidInput, name)
	}
	return path, nil
}

// Create validates def, builds the airplane and saves it.
func (s *Service) Create(ctx context.Context, def Definition) (Summary, error) {
	params := geometry.WingParams{
		Span:               def.Span,
		YsOverHalfSpan:     def.YsOverHalfSpan,
		Chords:             def.Chords,
		Twists:             def.Twists,
		Offsets:            def.Offsets,
		HeaveDisplacements: def.HeaveDisplacements,
		TwistDisplacements: def.TwistDisplacements,
	}
	plane, err := geometry.MakePlane(params)
	if err != nil {
		return Summary{}, err
	}

	path, err := s.OutputPath(def.OutputFilename)
	if err != nil {
		return Summary{}, err
	}
	if err := s.store.Save(path, &plane); err != nil {
		return Summary{}, err
	}

	sum := Summary{
		Path:     path,
		Span:     def.Span,
		Stations: len(def.YsOverHalfSpan),
		Chord:    rangeOf(def.Chords),
		Twist:    rangeOf(def.Twists),
	}
	if def.HeaveDisplacements != nil {
		r := rangeOf(def.HeaveDisplacements)
		sum.Heave = &r
	}
	if def.TwistDisplacements != nil {
		r := rangeOf(def.TwistDisplacements)
		sum.TwistDisp = &r
	}

	logpkg.FromContext(ctx, s.logger).Info("airplane created",
		zap.String("path", path),
		zap.Int("stations", sum.Stations),
		zap.Float64("span", def.Span),
	)
	return sum, nil
}

// AnalyzeRequest selects a saved airplane and the condition to analyze it at.
type AnalyzeRequest struct {
	Path       string
	Velocity   float64
	Alpha      float64
	Resolution vlm.Resolution
}

// DefaultAnalyzeRequest is 10 m/s at 5° with a one-by-one lattice.
func DefaultAnalyzeRequest(path string) AnalyzeRequest {
	return AnalyzeRequest{
		Path:       path,
		Velocity:   10,
		Alpha:      5,
		Resolution: vlm.Resolution{Chordwise: 1, Spanwise: 1},
	}
}

// Analysis reports the first wing's planform and the solved coefficients.
type Analysis struct {
	Path     string
	Chords   []float64
	Stations []float64
	Area     float64
	Span     float64
	Aero     vlm.Result
}

// String renders the analysis report.
func (a Analysis) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Chord distribution (m): %s\n", formatFloats(a.Chords))
	fmt.Fprintf(&b, "Section y-locations (m): %s\n", formatFloats(a.Stations))
	fmt.Fprintf(&b, "Wing area (m^2): %g\n", a.Area)
	fmt.Fprintf(&b, "Wing span (m): %g\n", a.Span)
	fmt.Fprintf(&b, "CL: %.4f\nCD: %.5f\nCm: %.4f\nL/D: %.2f", a.Aero.CL, a.Aero.CD, a.Aero.Cm, a.Aero.LiftToDrag())
	return b.String()
}

func formatFloats(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Analyze loads a saved airplane and runs the vortex-lattice solver on it.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (Analysis, error) {
	name := req.Path
	if name == "" {
		name = DefaultOutputFilename
	}
	path, err := s.resolve(name)
	if err != nil {
		return Analysis{}, err
	}
	plane, err := s.store.Load(path)
	if err != nil {
		return Analysis{}, err
	}
	if len(plane.Wings) == 0 {
		return Analysis{}, vlm.ErrNoPanels
	}

	op := flight.OperatingPoint{Velocity: req.Velocity, Alpha: req.Alpha}
	if err := op.Validate(); err != nil {
		return Analysis{}, err
	}

	solver := vlm.New(req.Resolution)
	if s.observer != nil {
		solver = solver.WithObserver(s.observer)
	}
	aero, err := solver.Run(ctx, &plane, op)
	if err != nil {
		return Analysis{}, fmt.Errorf("analyze %s: %w", path, err)
	}

	logpkg.FromContext(ctx, s.logger).Debug("airplane analyzed", zap.String("path", path))

	w := &plane.Wings[0]
	return Analysis{
		Path:     path,
		Chords:   w.Chords(),
		Stations: w.Stations(),
		Area:     w.Area(),
		Span:     w.Span(),
		Aero:     aero,
	}, nil
}
