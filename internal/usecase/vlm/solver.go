// Package vlm is a horseshoe vortex-lattice solver for thin lifting surfaces.
package vlm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/kailas-cloud/aerolab/internal/domain/flight"
	"github.com/kailas-cloud/aerolab/internal/domain/geometry"
)

var (
	// ErrNoPanels signals an airplane without lifting surfaces.
	ErrNoPanels = errors.New("airplane has no panels")
	// ErrSingular signals an unsolvable influence matrix.
	ErrSingular = errors.New("singular influence matrix")
)

// Resolution controls the lattice density per wing section.
type Resolution struct {
	Chordwise        int
	Spanwise         int
	ChordwiseSpacing Spacing
}

// DefaultResolution matches the experiment defaults: one spanwise strip per
// section, eight cosine-spaced chordwise panels.
func DefaultResolution() Resolution {
	return Resolution{Chordwise: 8, Spanwise: 1, ChordwiseSpacing: SpacingCosine}
}

func (r Resolution) withDefaults() Resolution {
	if r.Chordwise <= 0 {
		r.Chordwise = 1
	}
	if r.Spanwise <= 0 {
		r.Spanwise = 1
	}
	return r
}

// Result holds forces in wind axes, moments in body axes and the raw lattice.
type Result struct {
	CL, CD, CY float64
	Cl, Cm, Cn float64
	L, D, Y    float64 // N
	Force      geometry.Vec3
	Moment     geometry.Vec3
	Panels     []Panel
	Gamma      []float64
}

// LiftToDrag returns L/D, or zero when drag vanishes.
func (r Result) LiftToDrag() float64 {
	if r.CD == 0 {
		return 0
	}
	return r.CL / r.CD
}

// Observer is notified after every solve.
type Observer interface {
	ObserveSolve(panels int, elapsed time.Duration, err error)
}

// Solver runs vortex-lattice analyses.
type Solver struct {
	res      Resolution
	observer Observer
}

// New creates a solver with the given lattice resolution.
func New(res Resolution) *Solver {
	return &Solver{res: res.withDefaults()}
}

// WithObserver attaches a solve observer (metrics).
func (s *Solver) WithObserver(o Observer) *Solver {
	s.observer = o
	return s
}

// Resolution returns the configured resolution.
func (s *Solver) Resolution() Resolution { return s.res }

// Run solves for circulation and integrates forces with Kutta-Joukowski.
func (s *Solver) Run(ctx context.Context, airplane *geometry.Airplane, op flight.OperatingPoint) (Result, error) {
	start := time.Now()
	res, n, err := s.run(ctx, airplane, op)
	if s.observer != nil {
		s.observer.ObserveSolve(n, time.Since(start), err)
	}
	return res, err
}

func (s *Solver) run(ctx context.Context, airplane *geometry.Airplane, op flight.OperatingPoint) (Result, int, error) {
	if err := op.Validate(); err != nil {
		return Result{}, 0, err
	}
	panels := Mesh(airplane, s.res)
	n := len(panels)
	if n == 0 {
		return Result{}, 0, ErrNoPanels
	}
	if err := ctx.Err(); err != nil {
		return Result{}, n, fmt.Errorf("vlm: %w", err)
	}

	vinf := op.Freestream()
	wake := vinf.Normalize()
	omega := op.Rates()
	ref := airplane.XyzRef
	local := func(p geometry.Vec3) geometry.Vec3 {
		return vinf.Sub(omega.Cross(p.Sub(ref)))
	}

	aic := mat.NewDense(n, n, nil)
	rhs := mat.NewVecDense(n, nil)
	for i, pi := range panels {
		for j, pj := range panels {
			v := horseshoeVelocity(pi.Collocation, pj.VortexLeft, pj.VortexRight, wake)
			aic.Set(i, j, v.Dot(pi.Normal))
		}
		rhs.SetVec(i, -local(pi.Collocation).Dot(pi.Normal))
	}

	var gamma mat.VecDense
	if err := gamma.SolveVec(aic, rhs); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return Result{}, n, fmt.Errorf("%w: %v", ErrSingular, err)
		}
		// ill-conditioned but solved
	}
	if err := ctx.Err(); err != nil {
		return Result{}, n, fmt.Errorf("vlm: %w", err)
	}

	rho := op.Atmosphere.Density()
	g := make([]float64, n)
	var force, moment geometry.Vec3
	for i, pi := range panels {
		g[i] = gamma.AtVec(i)
		center := pi.BoundCenter()
		vel := local(center)
		for j, pj := range panels {
			vel = vel.Add(horseshoeVelocity(center, pj.VortexLeft, pj.VortexRight, wake).Scale(gamma.AtVec(j)))
		}
		f := vel.Cross(pi.Bound()).Scale(rho * g[i])
		force = force.Add(f)
		moment = moment.Add(center.Sub(ref).Cross(f))
	}

	q := op.DynamicPressure()
	sref, cref, bref := airplane.SRef(), airplane.CRef(), airplane.BRef()
	qs := q * sref

	lift := force.Dot(op.LiftDirection())
	drag := force.Dot(op.DragDirection())
	side := force.Dot(op.SideDirection())

	out := Result{
		L: lift, D: drag, Y: side,
		Force:  force,
		Moment: moment,
		Panels: panels,
		Gamma:  g,
	}
	if qs > 0 {
		out.CL = lift / qs
		out.CD = drag / qs
		out.CY = side / qs
		if bref > 0 {
			out.Cl = -moment.X / (qs * bref)
			out.Cn = -moment.Z / (qs * bref)
		}
		if cref > 0 {
			out.Cm = moment.Y / (qs * cref)
		}
	}
	return out, n, nil
}
