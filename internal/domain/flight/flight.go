// Package flight describes flight conditions: the standard atmosphere and the
// operating point handed to aerodynamic analyses.
package flight

import (
	"errors"
	"fmt"
	"math"

	"github.com/kailas-cloud/aerolab/internal/domain/geometry"
)

// ISA constants.
const (
	seaLevelTemperature = 288.15   // K
	seaLevelPressure    = 101325.0 // Pa
	lapseRate           = 0.0065   // K/m
	tropopause          = 11000.0  // m
	gasConstant         = 287.05287
	gravity             = 9.80665
	heatRatio           = 1.4
)

// ErrInvalidOperatingPoint signals a condition the solvers cannot use.
var ErrInvalidOperatingPoint = errors.New("invalid operating point")

// Atmosphere is the International Standard Atmosphere at a geometric altitude.
type Atmosphere struct {
	Altitude float64 `json:"altitude" yaml:"altitude"` // m
}

// Temperature returns static temperature in K.
func (a Atmosphere) Temperature() float64 {
	if a.Altitude <= tropopause {
		return seaLevelTemperature - lapseRate*a.Altitude
	}
	return seaLevelTemperature - lapseRate*tropopause
}

// Pressure returns static pressure in Pa.
func (a Atmosphere) Pressure() float64 {
	exp := gravity / (gasConstant * lapseRate)
	if a.Altitude <= tropopause {
		return seaLevelPressure * math.Pow(a.Temperature()/seaLevelTemperature, exp)
	}
	tTrop := seaLevelTemperature - lapseRate*tropopause
	pTrop := seaLevelPressure * math.Pow(tTrop/seaLevelTemperature, exp)
	return pTrop * math.Exp(-gravity/(gasConstant*tTrop)*(a.Altitude-tropopause))
}

// Density returns air density in kg/m³.
func (a Atmosphere) Density() float64 {
	return a.Pressure() / (gasConstant * a.Temperature())
}

// SpeedOfSound returns the speed of sound in m/s.
func (a Atmosphere) SpeedOfSound() float64 {
	return math.Sqrt(heatRatio * gasConstant * a.Temperature())
}

// OperatingPoint is a flight condition. Angles are degrees, rates rad/s.
type OperatingPoint struct {
	Atmosphere Atmosphere `json:"atmosphere"`
	Velocity   float64    `json:"velocity"`
	Alpha      float64    `json:"alpha"`
	Beta       float64    `json:"beta"`
	P          float64    `json:"p"`
	Q          float64    `json:"q"`
	R          float64    `json:"r"`
}

// DefaultOperatingPoint is sea level, unit velocity, 5° angle of attack.
func DefaultOperatingPoint() OperatingPoint {
	return OperatingPoint{Velocity: 1, Alpha: 5}
}

// Validate rejects conditions with no dynamic pressure.
func (op OperatingPoint) Validate() error {
	if !(op.Velocity > 0) {
		return fmt.Errorf("%w: velocity must be positive, got %g", ErrInvalidOperatingPoint, op.Velocity)
	}
	if op.Atmosphere.Altitude < -1000 || op.Atmosphere.Altitude > 20000 {
		return fmt.Errorf("%w: altitude %g m outside the modeled atmosphere", ErrInvalidOperatingPoint, op.Atmosphere.Altitude)
	}
	return nil
}

// Freestream returns the freestream velocity vector in geometry axes
// (x aft, y right, z up).
func (op OperatingPoint) Freestream() geometry.Vec3 {
	sa, ca := math.Sincos(geometry.Radians(op.Alpha))
	sb, cb := math.Sincos(geometry.Radians(op.Beta))
	return geometry.Vec3{
		X: op.Velocity * ca * cb,
		Y: -op.Velocity * sb,
		Z: op.Velocity * sa * cb,
	}
}

// Rates returns the body angular velocity in geometry axes. Geometry axes
// flip x and z relative to body axes.
func (op OperatingPoint) Rates() geometry.Vec3 {
	return geometry.Vec3{X: -op.P, Y: op.Q, Z: -op.R}
}

// DynamicPressure returns ½ρV².
func (op OperatingPoint) DynamicPressure() float64 {
	return 0.5 * op.Atmosphere.Density() * op.Velocity * op.Velocity
}

// Mach returns the freestream Mach number.
func (op OperatingPoint) Mach() float64 {
	return op.Velocity / op.Atmosphere.SpeedOfSound()
}

// LiftDirection is the unit vector perpendicular to the freestream in the
// symmetry plane, positive up.
func (op OperatingPoint) LiftDirection() geometry.Vec3 {
	sa, ca := math.Sincos(geometry.Radians(op.Alpha))
	return geometry.Vec3{X: -sa, Z: ca}
}

// DragDirection is the unit vector along the freestream.
func (op OperatingPoint) DragDirection() geometry.Vec3 {
	return op.Freestream().Normalize()
}

// SideDirection completes the wind frame, positive to the right.
func (op OperatingPoint) SideDirection() geometry.Vec3 {
	return op.LiftDirection().Cross(op.DragDirection()).Normalize()
}
