package planefile

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/aerolab/internal/domain/flight"
	"github.com/kailas-cloud/aerolab/internal/fsutil"
)

const operatingPointHeader = `---------------------------------------------------
AeroSandbox Operating Point Definition
Defines flight conditions for aerodynamic analysis
---------------------------------------------------`

// OperatingPointFile is the operating-point.yaml document.
type OperatingPointFile struct {
	Atmosphere struct {
		Altitude float64 `yaml:"altitude"`
	} `yaml:"atmosphere"`
	Velocity float64 `yaml:"velocity"`
	Alpha    float64 `yaml:"alpha"`
	Beta     float64 `yaml:"beta"`
	P        float64 `yaml:"p"`
	Q        float64 `yaml:"q"`
	R        float64 `yaml:"r"`
}

// DefaultOperatingPoint returns the file form of flight.DefaultOperatingPoint.
func DefaultOperatingPoint() OperatingPointFile {
	return FromOperatingPoint(flight.DefaultOperatingPoint())
}

// FromOperatingPoint converts a flight condition into its file form.
func FromOperatingPoint(op flight.OperatingPoint) OperatingPointFile {
	var f OperatingPointFile
	f.Atmosphere.Altitude = op.Atmosphere.Altitude
	f.Velocity = op.Velocity
	f.Alpha = op.Alpha
	f.Beta = op.Beta
	f.P, f.Q, f.R = op.P, op.Q, op.R
	return f
}

// ToOperatingPoint converts the file into a validated flight condition.
func ToOperatingPoint(f OperatingPointFile) (flight.OperatingPoint, error) {
	op := flight.OperatingPoint{
		Atmosphere: flight.Atmosphere{Altitude: f.Atmosphere.Altitude},
		Velocity:   f.Velocity,
		Alpha:      f.Alpha,
		Beta:       f.Beta,
		P:          f.P,
		Q:          f.Q,
		R:          f.R,
	}
	if err := op.Validate(); err != nil {
		return flight.OperatingPoint{}, err
	}
	return op, nil
}

// ReadOperatingPoint loads an operating-point file.
func ReadOperatingPoint(path string) (OperatingPointFile, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return OperatingPointFile{}, fmt.Errorf("read operating point: %w", err)
	}
	var f OperatingPointFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return OperatingPointFile{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return f, nil
}

// MarshalOperatingPoint renders the file with its header and unit comments.
func MarshalOperatingPoint(f OperatingPointFile) ([]byte, error) {
	atmosphere := newMapping()
	atmosphere.add("altitude", num(f.Atmosphere.Altitude), "meters above sea level")

	root := newMapping()
	root.add("atmosphere", atmosphere.node, "")
	root.add("velocity", num(f.Velocity), "m/s (or non-dimensional)")
	root.add("alpha", num(f.Alpha), "Angle of attack (degrees)")
	root.add("beta", num(f.Beta), "Sideslip angle (degrees)")
	p := root.add("p", num(f.P), "Roll rate")
	p.HeadComment = "Angular rates (rad/s)"
	root.add("q", num(f.Q), "Pitch rate")
	root.add("r", num(f.R), "Yaw rate")

	data, err := encodeDocument(operatingPointHeader, root.node)
	if err != nil {
		return nil, fmt.Errorf("encode operating point: %w", err)
	}
	return data, nil
}

// WriteOperatingPoint writes f to path.
func WriteOperatingPoint(path string, f OperatingPointFile) error {
	data, err := MarshalOperatingPoint(f)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, data, 0o644)
}
