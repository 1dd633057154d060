package geometry

import (
	"math"
)

// XSec is a spanwise slice of a wing.
type XSec struct {
	LeadingEdge Vec3    `json:"xyz_le"`
	Chord       float64 `json:"chord"`
	Twist       float64 `json:"twist"` // degrees, positive nose up
	Airfoil     string  `json:"airfoil"`
}

// TrailingEdge returns the trailing-edge point: the chord vector rotated by twist.
func (x XSec) TrailingEdge() Vec3 {
	return x.LeadingEdge.Add(Vec3{X: x.Chord}.RotateY(Radians(x.Twist)))
}

// PointAt returns the point at fraction f of the chord line (0 = LE, 1 = TE).
func (x XSec) PointAt(f float64) Vec3 {
	return x.LeadingEdge.Lerp(x.TrailingEdge(), f)
}

// QuarterChord returns the quarter-chord point.
func (x XSec) QuarterChord() Vec3 { return x.PointAt(0.25) }

// Wing is a lifting surface described by an ordered list of cross-sections.
// A symmetric wing is mirrored across the xz plane.
type Wing struct {
	Name      string `json:"name"`
	XSecs     []XSec `json:"xsecs"`
	Symmetric bool   `json:"symmetric"`
	Color     string `json:"color,omitempty"`
}

// Chords returns the chord of every cross-section.
func (w *Wing) Chords() []float64 {
	out := make([]float64, len(w.XSecs))
	for i, x := range w.XSecs {
		out[i] = x.Chord
	}
	return out
}

// Twists returns the twist of every cross-section in degrees.
func (w *Wing) Twists() []float64 {
	out := make([]float64, len(w.XSecs))
	for i, x := range w.XSecs {
		out[i] = x.Twist
	}
	return out
}

// Stations returns the y coordinate of every leading edge.
func (w *Wing) Stations() []float64 {
	out := make([]float64, len(w.XSecs))
	for i, x := range w.XSecs {
		out[i] = x.LeadingEdge.Y
	}
	return out
}

// Area returns the planform area. Each section contributes the mean of its
// chords times the yz distance between quarter-chord points.
func (w *Wing) Area() float64 {
	var area float64
	for i := 0; i+1 < len(w.XSecs); i++ {
		a, b := w.XSecs[i], w.XSecs[i+1]
		area += (a.Chord + b.Chord) / 2 * yzDistance(a.QuarterChord(), b.QuarterChord())
	}
	if w.Symmetric {
		area *= 2
	}
	return area
}

// Span returns the tip-to-tip span measured along the quarter-chord line in
// the yz plane.
func (w *Wing) Span() float64 {
	var span float64
	for i := 0; i+1 < len(w.XSecs); i++ {
		span += yzDistance(w.XSecs[i].QuarterChord(), w.XSecs[i+1].QuarterChord())
	}
	if w.Symmetric {
		span *= 2
	}
	return span
}

// AspectRatio returns span²/area.
func (w *Wing) AspectRatio() float64 {
	area := w.Area()
	if area == 0 {
		return 0
	}
	s := w.Span()
	return s * s / area
}

// MeanGeometricChord returns area/span.
func (w *Wing) MeanGeometricChord() float64 {
	s := w.Span()
	if s == 0 {
		return 0
	}
	return w.Area() / s
}

// Clone returns a deep copy.
func (w *Wing) Clone() Wing {
	c := *w
	c.XSecs = append([]XSec(nil), w.XSecs...)
	return c
}

func yzDistance(a, b Vec3) float64 {
	return math.Hypot(b.Y-a.Y, b.Z-a.Z)
}

// Airplane is a named collection of wings with a moment reference point.
type Airplane struct {
	Name   string `json:"name"`
	XyzRef Vec3   `json:"xyz_ref"`
	Wings  []Wing `json:"wings"`
}

// SRef returns the reference area: the first wing's area.
func (a *Airplane) SRef() float64 {
	if len(a.Wings) == 0 {
		return 1
	}
	return a.Wings[0].Area()
}

// CRef returns the reference chord: the first wing's mean geometric chord.
func (a *Airplane) CRef() float64 {
	if len(a.Wings) == 0 {
		return 1
	}
	return a.Wings[0].MeanGeometricChord()
}

// BRef returns the reference span: the first wing's span.
func (a *Airplane) BRef() float64 {
	if len(a.Wings) == 0 {
		return 1
	}
	return a.Wings[0].Span()
}

// Clone returns a deep copy.
func (a *Airplane) Clone() Airplane {
	c := *a
	c.Wings = make([]Wing, len(a.Wings))
	for i := range a.Wings {
		c.Wings[i] = a.Wings[i].Clone()
	}
	return c
}
