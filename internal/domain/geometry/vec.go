// Package geometry models lifting-surface geometry: cross-sections, wings and
// airplanes, in geometry axes (x aft, y right, z up, meters and degrees).
package geometry

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Vec3 is a point or direction in geometry axes.
type Vec3 r3.Vec

// spanAxis is the rotation axis for twist.
var spanAxis = r3.Vec{Y: 1}

// V constructs a Vec3.
func V(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func (v Vec3) vec() r3.Vec { return r3.Vec(v) }

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3(r3.Add(v.vec(), o.vec())) }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3(r3.Sub(v.vec(), o.vec())) }

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3(r3.Scale(s, v.vec())) }

// Dot returns the scalar product.
func (v Vec3) Dot(o Vec3) float64 { return r3.Dot(v.vec(), o.vec()) }

// Cross returns the vector product v x o.
func (v Vec3) Cross(o Vec3) Vec3 { return Vec3(r3.Cross(v.vec(), o.vec())) }

// Norm returns the Euclidean length.
func (v Vec3) Norm() float64 { return r3.Norm(v.vec()) }

// Normalize returns the unit vector along v, or the zero vector.
func (v Vec3) Normalize() Vec3 {
	if v == (Vec3{}) {
		return Vec3{}
	}
	return Vec3(r3.Unit(v.vec()))
}

// RotateY turns v about the span (y) axis by angle radians. Positive angles
// pitch the nose up: a point ahead of the origin (negative x) moves to
// positive z.
func (v Vec3) RotateY(angle float64) Vec3 {
	return Vec3(r3.NewRotation(angle, spanAxis).Rotate(v.vec()))
}

// Lerp interpolates between v (t=0) and o (t=1).
func (v Vec3) Lerp(o Vec3, t float64) Vec3 {
	return v.Add(o.Sub(v).Scale(t))
}

// MirrorY reflects the point across the xz plane.
func (v Vec3) MirrorY() Vec3 { return Vec3{v.X, -v.Y, v.Z} }

// Array returns the components as a fixed array.
func (v Vec3) Array() [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

// Radians converts degrees to radians.
func Radians(deg float64) float64 { return deg * math.Pi / 180 }

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 { return rad * 180 / math.Pi }

// MarshalJSON encodes the vector as a three-element array.
func (v Vec3) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Array())
}

// UnmarshalJSON decodes a three-element array.
func (v *Vec3) UnmarshalJSON(data []byte) error {
	var arr []float64
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("decode vec3: %w", err)
	}
	if len(arr) != 3 {
		return fmt.Errorf("decode vec3: expected 3 components, got %d", len(arr))
	}
	*v = Vec3{arr[0], arr[1], arr[2]}
	return nil
}
