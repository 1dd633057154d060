package experiment

import (
	"context"
	"fmt"
	"math"

	exp "github.com/kailas-cloud/aerolab/internal/domain/experiment"
	"github.com/kailas-cloud/aerolab/internal/domain/flight"
	"github.com/kailas-cloud/aerolab/internal/domain/geometry"
	"github.com/kailas-cloud/aerolab/internal/usecase/vlm"
)

// failValue stands in for the objective when the solver cannot evaluate a
// design. It is finite so line searches back off instead of diverging.
const failValue = 1e10

// maxFailStreak is how many evaluations in a row may fail before the run
// gives up on the solver.
const maxFailStreak = 50

// design is one candidate airplane plus the condition it flies at.
type design struct {
	plane geometry.Airplane
	op    flight.OperatingPoint
}

func (d design) wing() *geometry.Wing { return &d.plane.Wings[0] }

// slot maps one bound variable onto a range of the optimizer's x vector.
type slot struct {
	name   string
	offset int
	size   int
	lower  *float64
	upper  *float64
}

// quantities holds every evaluated quantity; scalars have length one.
type quantities map[string][]float64

// problem turns a spec into a penalized scalar function of x.
type problem struct {
	ctx    context.Context
	solver Solver
	base   design
	xFrac  []float64 // leading-edge x as a fraction of chord, per station
	slots  []slot
	dim    int
	spec   exp.Spec

	targets [][]float64
	mu      float64
	evals   int
	streak  int   // consecutive failed evaluations
	err     error // set once the run must stop
}

func newProblem(ctx context.Context, solver Solver, base design, spec exp.Spec) (*problem, error) {
	if len(base.plane.Wings) == 0 {
		return nil, fmt.Errorf("%w: airplane has no wings", vlm.ErrNoPanels)
	}
	w := base.wing()
	n := len(w.XSecs)

	p := &problem{ctx: ctx, solver: solver, base: base, spec: spec, mu: 1}
	p.xFrac = make([]float64, n)
	for i, x := range w.XSecs {
		if x.Chord != 0 {
			p.xFrac[i] = x.LeadingEdge.X / x.Chord
		}
	}

	for _, v := range spec.Variables {
		size := 1
		if v.Name == exp.VarChords || v.Name == exp.VarTwists {
			size = n
		}
		p.slots = append(p.slots, slot{name: v.Name, offset: p.dim, size: size, lower: v.Lower, upper: v.Upper})
		p.dim += size
	}
	if p.dim == 0 {
		return nil, fmt.Errorf("%w: no variables to optimize", exp.ErrInvalidSpec)
	}

	initial, err := p.quantities(base)
	if err != nil {
		return nil, fmt.Errorf("evaluate initial design: %w", err)
	}
	p.targets = make([][]float64, len(spec.Constraints))
	for i, c := range spec.Constraints {
		if c.Value != nil {
			p.targets[i] = []float64{*c.Value}
			continue
		}
		p.targets[i] = initial[c.Quantity]
	}
	return p, nil
}

// initialX reads the starting point from the base design, overridden by each
// variable's Init.
func (p *problem) initialX() []float64 {
	x := make([]float64, p.dim)
	w := p.base.wing()
	for i, s := range p.slots {
		init := p.spec.Variables[i].Init
		for j := 0; j < s.size; j++ {
			var v float64
			switch s.name {
			case exp.VarChords:
				v = w.XSecs[j].Chord
			case exp.VarTwists:
				v = w.XSecs[j].Twist
			case exp.VarAlpha:
				v = p.base.op.Alpha
			case exp.VarVelocity:
				v = p.base.op.Velocity
			}
			if init != nil {
				v = *init
			}
			x[s.offset+j] = v
		}
	}
	return x
}

// apply writes x onto a copy of the base design. Leading edges keep their
// chord-relative x position when chords change.
func (p *problem) apply(x []float64) design {
	d := design{plane: p.base.plane.Clone(), op: p.base.op}
	w := d.wing()
	for _, s := range p.slots {
		vals := x[s.offset : s.offset+s.size]
		switch s.name {
		case exp.VarChords:
			for j, c := range vals {
				w.XSecs[j].Chord = c
				w.XSecs[j].LeadingEdge.X = p.xFrac[j] * c
			}
		case exp.VarTwists:
			for j, t := range vals {
				w.XSecs[j].Twist = t
			}
		case exp.VarAlpha:
			d.op.Alpha = vals[0]
		case exp.VarVelocity:
			d.op.Velocity = vals[0]
		}
	}
	return d
}

func (p *problem) quantities(d design) (quantities, error) {
	aero, err := p.solver.Run(p.ctx, &d.plane, d.op)
	if err != nil {
		return nil, err
	}
	return collect(d, aero), nil
}

func collect(d design, aero vlm.Result) quantities {
	w := d.wing()
	chords, twists := w.Chords(), w.Twists()
	return quantities{
		exp.QtyCL:          {aero.CL},
		exp.QtyCD:          {aero.CD},
		exp.QtyCY:          {aero.CY},
		exp.QtyCm:          {aero.Cm},
		exp.QtyLOverD:      {aero.LiftToDrag()},
		exp.QtyWingArea:    {w.Area()},
		exp.QtySpan:        {w.Span()},
		exp.QtyAspectRatio: {w.AspectRatio()},
		exp.QtyAlpha:       {d.op.Alpha},
		exp.QtyVelocity:    {d.op.Velocity},
		exp.QtyChords:      chords,
		exp.QtyTwists:      twists,
		exp.QtyChordDiffs:  geometry.Diff(chords),
		exp.QtyTwistDiffs:  geometry.Diff(twists),
	}
}

// objective is the signed objective: maximized quantities are negated.
func (p *problem) objective(q quantities) float64 {
	v := q[p.spec.Objective.Quantity][0]
	if p.spec.Objective.Sense == exp.Maximize {
		return -v
	}
	return v
}

// violation is how far v is from satisfying op against target t; zero
// when satisfied.
func violation(op string, v, t float64) float64 {
	switch op {
	case exp.OpLe:
		return math.Max(0, v-t)
	case exp.OpGe:
		return math.Max(0, t-v)
	default:
		return v - t
	}
}

func target(ts []float64, i int) float64 {
	if len(ts) == 1 {
		return ts[0]
	}
	return ts[i]
}

// penalty sums squared constraint and bound violations.
func (p *problem) penalty(x []float64, q quantities) float64 {
	var sum float64
	for i, c := range p.spec.Constraints {
		for j, v := range q[c.Quantity] {
			r := violation(c.Op, v, target(p.targets[i], j))
			sum += r * r
		}
	}
	for _, s := range p.slots {
		for _, v := range x[s.offset : s.offset+s.size] {
			if s.lower != nil && v < *s.lower {
				sum += (*s.lower - v) * (*s.lower - v)
			}
			if s.upper != nil && v > *s.upper {
				sum += (v - *s.upper) * (v - *s.upper)
			}
		}
	}
	return sum
}

// eval is the function handed to the optimizer at the current penalty weight.
func (p *problem) eval(x []float64) float64 {
	if p.err != nil {
		return failValue
	}
	p.evals++
	q, err := p.quantities(p.apply(x))
	if err != nil {
		p.streak++
		switch {
		case p.ctx.Err() != nil:
			p.err = p.ctx.Err()
		case p.streak >= maxFailStreak:
			p.err = fmt.Errorf("%d evaluations failed in a row: %w", p.streak, err)
		}
		return failValue
	}
	p.streak = 0
	f := p.objective(q) + p.mu*p.penalty(x, q)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return failValue
	}
	return f
}

// maxViolation is the largest constraint or bound violation at x.
func (p *problem) maxViolation(x []float64, q quantities) float64 {
	var worst float64
	for i, c := range p.spec.Constraints {
		for j, v := range q[c.Quantity] {
			worst = math.Max(worst, math.Abs(violation(c.Op, v, target(p.targets[i], j))))
		}
	}
	for _, s := range p.slots {
		for _, v := range x[s.offset : s.offset+s.size] {
			if s.lower != nil {
				worst = math.Max(worst, *s.lower-v)
			}
			if s.upper != nil {
				worst = math.Max(worst, v-*s.upper)
			}
		}
	}
	return worst
}
