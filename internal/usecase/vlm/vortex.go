package vlm

import (
	"math"

	"github.com/kailas-cloud/aerolab/internal/domain/geometry"
)

const (
	fourPi = 4 * math.Pi
	// Points closer to a filament than this (relative) are treated as on it.
	coreRatio = 1e-10
)

// segmentVelocity is the velocity induced at p by a unit-strength straight
// vortex filament from a to b.
func segmentVelocity(p, a, b geometry.Vec3) geometry.Vec3 {
	r1 := p.Sub(a)
	r2 := p.Sub(b)
	n1, n2 := r1.Norm(), r2.Norm()
	if n1 == 0 || n2 == 0 {
		return geometry.Vec3{}
	}
	cross := r1.Cross(r2)
	cross2 := cross.Dot(cross)
	if cross2 <= coreRatio*n1*n1*n2*n2 {
		return geometry.Vec3{}
	}
	r0 := b.Sub(a)
	k := r0.Dot(r1.Scale(1/n1).Sub(r2.Scale(1/n2))) / (fourPi * cross2)
	return cross.Scale(k)
}

// semiInfiniteVelocity is the velocity induced at p by a unit-strength vortex
// starting at a and running to infinity along unit direction u.
func semiInfiniteVelocity(p, a, u geometry.Vec3) geometry.Vec3 {
	r := p.Sub(a)
	n := r.Norm()
	if n == 0 {
		return geometry.Vec3{}
	}
	cross := u.Cross(r)
	cross2 := cross.Dot(cross)
	if cross2 <= coreRatio*n*n {
		return geometry.Vec3{}
	}
	k := (1 + u.Dot(r)/n) / (fourPi * cross2)
	return cross.Scale(k)
}

// horseshoeVelocity is the velocity induced at p by a unit horseshoe: a
// trailing leg arriving from downstream at left, the bound segment from left
// to right, and a trailing leg leaving right downstream along u.
func horseshoeVelocity(p, left, right, u geometry.Vec3) geometry.Vec3 {
	v := segmentVelocity(p, left, right)
	v = v.Add(semiInfiniteVelocity(p, right, u))
	v = v.Sub(semiInfiniteVelocity(p, left, u))
	return v
}
