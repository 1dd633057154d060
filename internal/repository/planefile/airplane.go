// Package planefile reads and writes the human-editable plane definition:
// airplane.yaml (wing stations as parallel arrays) and operating-point.yaml.
package planefile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/aerolab/internal/domain/geometry"
	"github.com/kailas-cloud/aerolab/internal/fsutil"
)

// File names inside the plane directory.
const (
	AirplaneFileName       = "airplane.yaml"
	OperatingPointFileName = "operating-point.yaml"
)

// DefaultStations is the station count of the reference rectangular wing.
const DefaultStations = 16

// ErrInvalidFile signals a plane file whose arrays disagree.
var ErrInvalidFile = errors.New("invalid plane file")

const airplaneHeader = `---------------------------------------------------
AeroSandbox Airplane Definition
Initial rectangular wing (uniform chord distribution)
Matches the setup from elliptical-wing.py example
---------------------------------------------------`

// WingFile holds one wing as parallel per-station arrays. XLe is a fraction
// of the local chord; YLe and ZLe are absolute.
type WingFile struct {
	Name    string    `yaml:"name"`
	XLe     []float64 `yaml:"x_le"`
	YLe     []float64 `yaml:"y_le"`
	ZLe     []float64 `yaml:"z_le"`
	Chord   []float64 `yaml:"chord"`
	Twist   []float64 `yaml:"twist"`
	Airfoil []string  `yaml:"airfoil"`
}

// AirplaneFile is the airplane.yaml document.
type AirplaneFile struct {
	Name   string     `yaml:"name"`
	XyzRef [3]float64 `yaml:"xyz_ref"`
	Wing   WingFile   `yaml:"wing"`
}

// Stations returns the number of cross-sections.
func (f AirplaneFile) Stations() int { return len(f.Wing.Chord) }

// Validate checks that every station array has the same length.
func (f AirplaneFile) Validate() error {
	w := f.Wing
	n := len(w.Chord)
	if n < geometry.MinStations {
		return fmt.Errorf("%w: need at least %d stations, got %d", ErrInvalidFile, geometry.MinStations, n)
	}
	lengths := map[string]int{
		"x_le":    len(w.XLe),
		"y_le":    len(w.YLe),
		"z_le":    len(w.ZLe),
		"twist":   len(w.Twist),
		"airfoil": len(w.Airfoil),
	}
	for _, name := range []string{"x_le", "y_le", "z_le", "twist", "airfoil"} {
		if lengths[name] != n {
			return fmt.Errorf("%w: wing.%s has %d entries, wing.chord has %d", ErrInvalidFile, name, lengths[name], n)
		}
	}
	return nil
}

// DefaultAirplane is the untwisted rectangular wing the elliptical-wing
// experiment starts from.
func DefaultAirplane() AirplaneFile {
	n := DefaultStations
	w := WingFile{
		Name:    "main_wing",
		XLe:     make([]float64, n),
		YLe:     geometry.SinSpace(0, 1, n, true),
		ZLe:     make([]float64, n),
		Chord:   make([]float64, n),
		Twist:   make([]float64, n),
		Airfoil: make([]string, n),
	}
	for i := range n {
		w.Chord[i] = 1
		w.XLe[i] = -0.25
		w.Airfoil[i] = "naca0012"
	}
	return AirplaneFile{Name: "RectangularWing", Wing: w}
}

// ReadAirplane loads and validates an airplane file.
func ReadAirplane(path string) (AirplaneFile, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return AirplaneFile{}, fmt.Errorf("read airplane: %w", err)
	}
	var f AirplaneFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return AirplaneFile{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := f.Validate(); err != nil {
		return AirplaneFile{}, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// MarshalAirplane renders the file with its header and unit comments.
func MarshalAirplane(f AirplaneFile) ([]byte, error) {
	wing := newMapping()
	wing.add("name", str(f.Wing.Name), "")
	wing.add("x_le", floats(f.Wing.XLe), "fraction of local chord, multiplied by chord when building")
	wing.add("y_le", floats(f.Wing.YLe), "m")
	wing.add("z_le", floats(f.Wing.ZLe), "m")
	wing.add("chord", floats(f.Wing.Chord), "m")
	wing.add("twist", floats(f.Wing.Twist), "degrees")
	wing.add("airfoil", strs(f.Wing.Airfoil), "")

	root := newMapping()
	root.add("name", str(f.Name), "")
	root.add("xyz_ref", floats(f.XyzRef[:]), "moment reference point, m")
	root.add("wing", wing.node, "")

	data, err := encodeDocument(airplaneHeader, root.node)
	if err != nil {
		return nil, fmt.Errorf("encode airplane: %w", err)
	}
	return data, nil
}

// WriteAirplane validates f and writes it to path.
func WriteAirplane(path string, f AirplaneFile) error {
	if err := f.Validate(); err != nil {
		return err
	}
	data, err := MarshalAirplane(f)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, data, 0o644)
}

// ToAirplane builds the symmetric single-wing airplane the file describes.
func ToAirplane(f AirplaneFile) (geometry.Airplane, error) {
	if err := f.Validate(); err != nil {
		return geometry.Airplane{}, err
	}
	w := f.Wing
	xsecs := make([]geometry.XSec, len(w.Chord))
	for i := range xsecs {
		xsecs[i] = geometry.XSec{
			LeadingEdge: geometry.V(w.XLe[i]*w.Chord[i], w.YLe[i], w.ZLe[i]),
			Chord:       w.Chord[i],
			Twist:       w.Twist[i],
			Airfoil:     w.Airfoil[i],
		}
	}
	return geometry.Airplane{
		Name:   f.Name,
		XyzRef: geometry.V(f.XyzRef[0], f.XyzRef[1], f.XyzRef[2]),
		Wings:  []geometry.Wing{{Name: w.Name, XSecs: xsecs, Symmetric: true}},
	}, nil
}

// FromAirplane copies the first wing of a (typically optimized) airplane
// back into f. Station count must match.
func FromAirplane(f AirplaneFile, a geometry.Airplane) (AirplaneFile, error) {
	if len(a.Wings) == 0 {
		return f, fmt.Errorf("%w: airplane has no wings", ErrInvalidFile)
	}
	xsecs := a.Wings[0].XSecs
	if len(xsecs) != f.Stations() {
		return f, fmt.Errorf("%w: airplane has %d stations, file has %d", ErrInvalidFile, len(xsecs), f.Stations())
	}
	out := f
	out.Wing.XLe = make([]float64, len(xsecs))
	out.Wing.YLe = make([]float64, len(xsecs))
	out.Wing.ZLe = make([]float64, len(xsecs))
	out.Wing.Chord = make([]float64, len(xsecs))
	out.Wing.Twist = make([]float64, len(xsecs))
	for i, x := range xsecs {
		if x.Chord != 0 {
			out.Wing.XLe[i] = x.LeadingEdge.X / x.Chord
		} else {
			out.Wing.XLe[i] = f.Wing.XLe[i]
		}
		out.Wing.YLe[i] = x.LeadingEdge.Y
		out.Wing.ZLe[i] = x.LeadingEdge.Z
		out.Wing.Chord[i] = x.Chord
		out.Wing.Twist[i] = x.Twist
	}
	return out, nil
}
