package geometry

import (
	"errors"
	"fmt"
)

// Defaults applied by MakeWing when optional parameters are omitted.
const (
	DefaultXRefOverChord = 0.33
	DefaultAirfoil       = "dae11"
	DefaultColor         = "black"
	DefaultPlaneName     = "Aerostructures Test"
	DefaultWingName      = "Main Wing"
	MinStations          = 2
)

var (
	// ErrInvalidSpan signals a non-positive span.
	ErrInvalidSpan = errors.New("span must be greater than 0")
	// ErrTooFewStations signals fewer than MinStations cross-sections.
	ErrTooFewStations = errors.New("too few stations")
	// ErrLengthMismatch signals parallel arrays of different lengths.
	ErrLengthMismatch = errors.New("array length mismatch")
)

// LengthError describes which parallel array has the wrong length.
type LengthError struct {
	Field    string // empty when the three required arrays disagree
	Stations int
	Got      []int
}

func (e *LengthError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf(
			"ys_over_half_span, chords, and twists must have the same length. Got %d, %d, %d respectively.",
			e.Got[0], e.Got[1], e.Got[2],
		)
	}
	return fmt.Sprintf("%s must have the same length as ys_over_half_span (%d). Got %d.",
		e.Field, e.Stations, e.Got[0])
}

func (e *LengthError) Unwrap() error { return ErrLengthMismatch }

// WingParams describes a wing by per-station arrays. Stations are normalized
// by half-span. Optional arrays may be nil.
type WingParams struct {
	Name               string
	Span               float64
	YsOverHalfSpan     []float64
	Chords             []float64
	Twists             []float64 // degrees
	Offsets            []float64 // LE x offsets, default -chord/4
	HeaveDisplacements []float64 // z displacement of the shear center
	TwistDisplacements []float64 // degrees, about the shear center
	XRefOverChord      *float64  // shear center location, default 0.33
	Airfoil            string
	Color              string
}

// Validate checks span and array lengths.
func (p WingParams) Validate() error {
	if !(p.Span > 0) {
		return fmt.Errorf("%w, got %g", ErrInvalidSpan, p.Span)
	}
	n := len(p.YsOverHalfSpan)
	if len(p.Chords) != n || len(p.Twists) != n {
		return &LengthError{Stations: n, Got: []int{n, len(p.Chords), len(p.Twists)}}
	}
	if n < MinStations {
		return fmt.Errorf("%w: need at least %d, got %d", ErrTooFewStations, MinStations, n)
	}
	optional := []struct {
		name string
		vals []float64
	}{
		{"offsets", p.Offsets},
		{"heave_displacements", p.HeaveDisplacements},
		{"twist_displacements", p.TwistDisplacements},
	}
	for _, o := range optional {
		if o.vals != nil && len(o.vals) != n {
			return &LengthError{Field: o.name, Stations: n, Got: []int{len(o.vals)}}
		}
	}
	return nil
}

// MakeWing builds a symmetric wing. Each station's leading edge is the
// reference offset [-c·xref, y·span/2, 0] rotated by the total twist about
// the span axis, then translated by [offset + c·xref, 0, heave].
func MakeWing(p WingParams) (Wing, error) {
	if err := p.Validate(); err != nil {
		return Wing{}, err
	}

	n := len(p.YsOverHalfSpan)
	xref := DefaultXRefOverChord
	if p.XRefOverChord != nil {
		xref = *p.XRefOverChord
	}
	airfoil := p.Airfoil
	if airfoil == "" {
		airfoil = DefaultAirfoil
	}
	color := p.Color
	if color == "" {
		color = DefaultColor
	}
	name := p.Name
	if name == "" {
		name = DefaultWingName
	}

	xsecs := make([]XSec, n)
	for i := range n {
		c := p.Chords[i]
		offset := -c / 4
		if p.Offsets != nil {
			offset = p.Offsets[i]
		}
		var heave, twistDisp float64
		if p.HeaveDisplacements != nil {
			heave = p.HeaveDisplacements[i]
		}
		if p.TwistDisplacements != nil {
			twistDisp = p.TwistDisplacements[i]
		}
		twist := p.Twists[i] + twistDisp

		le := Vec3{X: -c * xref, Y: p.YsOverHalfSpan[i] * p.Span / 2}.
			RotateY(Radians(twist)).
			Add(Vec3{X: offset + c*xref, Z: heave})

		xsecs[i] = XSec{
			LeadingEdge: le,
			Chord:       c,
			Twist:       twist,
			Airfoil:     airfoil,
		}
	}

	return Wing{Name: name, XSecs: xsecs, Symmetric: true, Color: color}, nil
}

// MakePlane wraps MakeWing into a single-wing airplane referenced at the origin.
func MakePlane(p WingParams) (Airplane, error) {
	w, err := MakeWing(p)
	if err != nil {
		return Airplane{}, err
	}
	return Airplane{Name: DefaultPlaneName, Wings: []Wing{w}}, nil
}
