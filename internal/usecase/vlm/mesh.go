package vlm

import (
	"math"

	"github.com/kailas-cloud/aerolab/internal/domain/geometry"
)

// Panel is one quadrilateral of the lattice with its horseshoe vortex.
// Left and right refer to smaller and larger y, so every bound vortex runs
// toward +y.
type Panel struct {
	FrontLeft, FrontRight geometry.Vec3
	BackLeft, BackRight   geometry.Vec3

	VortexLeft, VortexRight geometry.Vec3 // bound vortex at quarter panel chord
	Collocation             geometry.Vec3 // three-quarter panel chord, mid span
	Normal                  geometry.Vec3
	Area                    float64
	Wing                    int
}

// BoundCenter returns the midpoint of the bound vortex.
func (p Panel) BoundCenter() geometry.Vec3 {
	return p.VortexLeft.Lerp(p.VortexRight, 0.5)
}

// Bound returns the bound vortex vector.
func (p Panel) Bound() geometry.Vec3 {
	return p.VortexRight.Sub(p.VortexLeft)
}

// Spacing selects how chordwise panel edges are distributed.
type Spacing int

// Chordwise spacing options.
const (
	SpacingCosine Spacing = iota
	SpacingUniform
)

func chordFractions(n int, s Spacing) []float64 {
	out := make([]float64, n+1)
	for k := range out {
		t := float64(k) / float64(n)
		if s == SpacingCosine {
			out[k] = (1 - math.Cos(math.Pi*t)) / 2
		} else {
			out[k] = t
		}
	}
	return out
}

func newPanel(fl, fr, bl, br geometry.Vec3, wing int) Panel {
	vl := fl.Lerp(bl, 0.25)
	vr := fr.Lerp(br, 0.25)
	cl := fl.Lerp(bl, 0.75)
	cr := fr.Lerp(br, 0.75)

	cross := br.Sub(fl).Cross(fr.Sub(bl))
	return Panel{
		FrontLeft: fl, FrontRight: fr, BackLeft: bl, BackRight: br,
		VortexLeft:  vl,
		VortexRight: vr,
		Collocation: cl.Lerp(cr, 0.5),
		Normal:      cross.Normalize(),
		Area:        cross.Norm() / 2,
		Wing:        wing,
	}
}

// meshWing discretizes a wing into panels. Symmetric wings get a mirrored copy.
func meshWing(w *geometry.Wing, index int, res Resolution) []Panel {
	fracs := chordFractions(res.Chordwise, res.ChordwiseSpacing)
	var panels []Panel

	for i := 0; i+1 < len(w.XSecs); i++ {
		a, b := w.XSecs[i], w.XSecs[i+1]
		for s := range res.Spanwise {
			ta := float64(s) / float64(res.Spanwise)
			tb := float64(s+1) / float64(res.Spanwise)
			for c := range res.Chordwise {
				fa, fb := fracs[c], fracs[c+1]
				point := func(t, f float64) geometry.Vec3 {
					return a.PointAt(f).Lerp(b.PointAt(f), t)
				}
				fl, fr := point(ta, fa), point(tb, fa)
				bl, br := point(ta, fb), point(tb, fb)

				// Keep left at the smaller y even if stations run outboard to inboard.
				if fr.Y < fl.Y {
					fl, fr = fr, fl
					bl, br = br, bl
				}
				panels = append(panels, newPanel(fl, fr, bl, br, index))

				if w.Symmetric {
					panels = append(panels, newPanel(
						fr.MirrorY(), fl.MirrorY(), br.MirrorY(), bl.MirrorY(), index,
					))
				}
			}
		}
	}
	return panels
}

// Mesh discretizes every wing of the airplane.
func Mesh(a *geometry.Airplane, res Resolution) []Panel {
	var panels []Panel
	for i := range a.Wings {
		panels = append(panels, meshWing(&a.Wings[i], i, res)...)
	}
	return panels
}
