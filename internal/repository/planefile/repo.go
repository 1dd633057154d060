package planefile

import (
	"fmt"
	"path/filepath"

	"github.com/kailas-cloud/aerolab/internal/domain/flight"
	"github.com/kailas-cloud/aerolab/internal/domain/geometry"
)

// Repo owns the two plane files inside one directory.
type Repo struct {
	dir string
}

// New creates a repository rooted at dir.
func New(dir string) *Repo {
	return &Repo{dir: dir}
}

// AirplanePath returns the airplane.yaml path.
func (r *Repo) AirplanePath() string { return filepath.Join(r.dir, AirplaneFileName) }

// OperatingPointPath returns the operating-point.yaml path.
func (r *Repo) OperatingPointPath() string { return filepath.Join(r.dir, OperatingPointFileName) }

// Reset overwrites both files with the defaults.
func (r *Repo) Reset() error {
	if err := WriteAirplane(r.AirplanePath(), DefaultAirplane()); err != nil {
		return fmt.Errorf("reset airplane: %w", err)
	}
	if err := WriteOperatingPoint(r.OperatingPointPath(), DefaultOperatingPoint()); err != nil {
		return fmt.Errorf("reset operating point: %w", err)
	}
	return nil
}

// Load reads both files and converts them to domain objects. The raw
// airplane file is returned too so callers can write changes back.
func (r *Repo) Load() (AirplaneFile, geometry.Airplane, flight.OperatingPoint, error) {
	af, err := ReadAirplane(r.AirplanePath())
	if err != nil {
		return AirplaneFile{}, geometry.Airplane{}, flight.OperatingPoint{}, err
	}
	plane, err := ToAirplane(af)
	if err != nil {
		return AirplaneFile{}, geometry.Airplane{}, flight.OperatingPoint{}, err
	}
	of, err := ReadOperatingPoint(r.OperatingPointPath())
	if err != nil {
		return AirplaneFile{}, geometry.Airplane{}, flight.OperatingPoint{}, err
	}
	op, err := ToOperatingPoint(of)
	if err != nil {
		return AirplaneFile{}, geometry.Airplane{}, flight.OperatingPoint{}, fmt.Errorf("%s: %w", r.OperatingPointPath(), err)
	}
	return af, plane, op, nil
}

// Save writes an optimized airplane and operating point back, keeping the
// names and airfoils of the existing airplane file.
func (r *Repo) Save(base AirplaneFile, plane geometry.Airplane, op flight.OperatingPoint) error {
	af, err := FromAirplane(base, plane)
	if err != nil {
		return err
	}
	if err := WriteAirplane(r.AirplanePath(), af); err != nil {
		return err
	}
	return WriteOperatingPoint(r.OperatingPointPath(), FromOperatingPoint(op))
}
