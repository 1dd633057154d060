package experiment

import (
	"math"

	exp "github.com/kailas-cloud/aerolab/internal/domain/experiment"
	"github.com/kailas-cloud/aerolab/internal/usecase/vlm"
)

// VariableValue is the optimized value of one bound variable.
type VariableValue struct {
	exp.Variable
	Values []float64
}

// ConstraintValue pairs a constraint with what the optimum achieved.
type ConstraintValue struct {
	exp.Constraint
	Target    []float64
	Achieved  []float64
	Violation float64
}

// Satisfied reports whether the violation is within FeasibilityTolerance.
func (c ConstraintValue) Satisfied() bool { return c.Violation < FeasibilityTolerance }

// Outcome is everything a finished experiment reports.
type Outcome struct {
	ID          string
	Spec        exp.Spec
	Method      string
	Evaluations int

	Variables    []VariableValue
	Constraints  []ConstraintValue
	Objective    float64 // unsigned value of the objective quantity
	MaxViolation float64

	Aero        vlm.Result
	Alpha       float64
	Velocity    float64
	Area        float64
	Span        float64
	AspectRatio float64
	Stations    []float64
	Chords      []float64
	Twists      []float64

	ReportPath string
	PlotPath   string
}

func newOutcome(req Request, spec exp.Spec, p *problem, x []float64, best design, aero vlm.Result) Outcome {
	q := collect(best, aero)
	w := best.wing()
	out := Outcome{
		ID:          req.ID,
		Spec:        spec,
		Objective:   q[spec.Objective.Quantity][0],
		Aero:        aero,
		Alpha:       best.op.Alpha,
		Velocity:    best.op.Velocity,
		Area:        w.Area(),
		Span:        w.Span(),
		AspectRatio: w.AspectRatio(),
		Stations:    w.Stations(),
		Chords:      w.Chords(),
		Twists:      w.Twists(),
		ReportPath:  req.OutputPath,
		PlotPath:    req.PlotPath(),
	}
	out.MaxViolation = p.maxViolation(x, q)

	for i, s := range p.slots {
		vals := make([]float64, s.size)
		copy(vals, x[s.offset:s.offset+s.size])
		out.Variables = append(out.Variables, VariableValue{Variable: spec.Variables[i], Values: vals})
	}
	for i, c := range spec.Constraints {
		cv := ConstraintValue{Constraint: c, Target: p.targets[i], Achieved: q[c.Quantity]}
		for j, v := range cv.Achieved {
			cv.Violation = math.Max(cv.Violation, math.Abs(violation(c.Op, v, target(cv.Target, j))))
		}
		out.Constraints = append(out.Constraints, cv)
	}
	return out
}

// Feasible reports whether every constraint and bound holds within tolerance.
func (o Outcome) Feasible() bool { return o.MaxViolation < FeasibilityTolerance }

// EllipticChords is the elliptic chord distribution over the given stations
// with the same total (mirrored) area: c(y) = c0·sqrt(1 - (y/ymax)²),
// c0 = 2·area / (π·ymax).
func EllipticChords(stations []float64, area float64) []float64 {
	if len(stations) == 0 {
		return nil
	}
	ymax := stations[len(stations)-1]
	out := make([]float64, len(stations))
	if ymax <= 0 {
		return out
	}
	c0 := 2 * area / (math.Pi * ymax)
	for i, y := range stations {
		r := y / ymax
		out[i] = c0 * math.Sqrt(math.Max(0, 1-r*r))
	}
	return out
}

// InducedDragTheory is CL²/(π·AR), the elliptic-loading minimum.
func (o Outcome) InducedDragTheory() float64 {
	if o.AspectRatio == 0 {
		return 0
	}
	return o.Aero.CL * o.Aero.CL / (math.Pi * o.AspectRatio)
}
