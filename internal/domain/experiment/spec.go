// Package experiment defines the declarative optimization experiment: which
// design values are free, which quantities are constrained, and what is
// minimized. Documents are validated against a JSON Schema derived from
// these types before a fixed engine interprets them.
package experiment

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrInvalidSpec signals a document that fails schema or semantic checks.
	ErrInvalidSpec = errors.New("invalid experiment spec")
	// ErrEmptySpec signals a generated document with nothing in it.
	ErrEmptySpec = errors.New("empty experiment spec")
)

// Variable names the engine knows how to free.
const (
	VarChords   = "chords"
	VarTwists   = "twists"
	VarAlpha    = "alpha"
	VarVelocity = "velocity"
)

// Quantities that constraints and objectives can reference.
const (
	QtyCL          = "CL"
	QtyCD          = "CD"
	QtyCY          = "CY"
	QtyCm          = "Cm"
	QtyLOverD      = "L_over_D"
	QtyWingArea    = "wing_area"
	QtySpan        = "span"
	QtyAspectRatio = "aspect_ratio"
	QtyAlpha       = "alpha"
	QtyVelocity    = "velocity"
	QtyChords      = "chords"
	QtyTwists      = "twists"
	QtyChordDiffs  = "chord_diffs"
	QtyTwistDiffs  = "twist_diffs"
)

// Comparison operators.
const (
	OpEq = "=="
	OpLe = "<="
	OpGe = ">="
)

// Objective senses.
const (
	Minimize = "minimize"
	Maximize = "maximize"
)

// VariableNames lists every accepted variable name.
var VariableNames = []string{VarChords, VarTwists, VarAlpha, VarVelocity}

// Quantities lists every accepted quantity.
var Quantities = []string{
	QtyCL, QtyCD, QtyCY, QtyCm, QtyLOverD,
	QtyWingArea, QtySpan, QtyAspectRatio,
	QtyAlpha, QtyVelocity,
	QtyChords, QtyTwists, QtyChordDiffs, QtyTwistDiffs,
}

// Operators lists every accepted comparison.
var Operators = []string{OpEq, OpLe, OpGe}

// Senses lists every accepted objective sense.
var Senses = []string{Minimize, Maximize}

// IsVector reports whether a quantity is evaluated per station.
func IsVector(quantity string) bool {
	switch quantity {
	case QtyChords, QtyTwists, QtyChordDiffs, QtyTwistDiffs:
		return true
	}
	return false
}

// Variable frees one design value. Vector variables (chords, twists) free
// every station; a scalar Init applies to all of them.
type Variable struct {
	Name  string   `json:"name" yaml:"name" jsonschema:"design value to free: chords, twists, alpha or velocity"`
	Init  *float64 `json:"init,omitempty" yaml:"init,omitempty" jsonschema:"initial guess; omit to start from the current design"`
	Lower *float64 `json:"lower,omitempty" yaml:"lower,omitempty" jsonschema:"lower bound, inclusive"`
	Upper *float64 `json:"upper,omitempty" yaml:"upper,omitempty" jsonschema:"upper bound, inclusive"`
}

// Constraint compares a quantity against a value. Vector quantities are
// compared elementwise.
type Constraint struct {
	Quantity string   `json:"quantity" yaml:"quantity" jsonschema:"quantity to constrain"`
	Op       string   `json:"op" yaml:"op" jsonschema:"comparison: ==, <= or >="`
	Value    *float64 `json:"value,omitempty" yaml:"value,omitempty" jsonschema:"target value; omit to hold the quantity at its initial value"`
}

// Objective is the scalar quantity to optimize.
type Objective struct {
	Quantity string `json:"quantity" yaml:"quantity" jsonschema:"scalar quantity to optimize"`
	Sense    string `json:"sense" yaml:"sense" jsonschema:"minimize or maximize"`
}

// VariableSet is the answer to the variable-selection prompt.
type VariableSet struct {
	Variables []Variable `json:"variables" yaml:"variables" jsonschema:"optimization variables"`
}

// ConstraintSet is the answer to the constraints-and-objective prompt.
type ConstraintSet struct {
	Constraints []Constraint `json:"constraints" yaml:"constraints" jsonschema:"constraints applied to the design"`
	Objective   Objective    `json:"objective" yaml:"objective" jsonschema:"the objective to optimize"`
}

// Analysis holds solver settings for an experiment.
type Analysis struct {
	Chordwise     int `json:"chordwise,omitempty" yaml:"chordwise,omitempty"`
	Spanwise      int `json:"spanwise,omitempty" yaml:"spanwise,omitempty"`
	MaxIterations int `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty"`
}

// Spec is a complete experiment document.
type Spec struct {
	ID          string       `json:"id,omitempty" yaml:"id,omitempty"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Variables   []Variable   `json:"variables" yaml:"variables"`
	Constraints []Constraint `json:"constraints" yaml:"constraints"`
	Objective   Objective    `json:"objective" yaml:"objective"`
	Analysis    Analysis     `json:"analysis,omitzero" yaml:"analysis,omitempty"`
}

// Compose merges the two generated halves onto a template. Template
// variables, constraints and objective are replaced, other fields kept.
func Compose(template Spec, vars VariableSet, cons ConstraintSet) Spec {
	out := template
	out.Variables = slices.Clone(vars.Variables)
	out.Constraints = slices.Clone(cons.Constraints)
	out.Objective = cons.Objective
	return out
}

// Variable returns the variable with the given name.
func (s Spec) Variable(name string) (Variable, bool) {
	for _, v := range s.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}

// Validate runs the semantic checks that a schema cannot express.
func (s Spec) Validate() error {
	if err := validateVariables(s.Variables); err != nil {
		return err
	}
	if err := validateConstraints(s.Constraints); err != nil {
		return err
	}
	return validateObjective(s.Objective)
}

// Validate checks a generated variable set.
func (vs VariableSet) Validate() error {
	if len(vs.Variables) == 0 {
		return ErrEmptySpec
	}
	return validateVariables(vs.Variables)
}

// Validate checks a generated constraint set.
func (cs ConstraintSet) Validate() error {
	if len(cs.Constraints) == 0 && cs.Objective.Quantity == "" {
		return ErrEmptySpec
	}
	if err := validateConstraints(cs.Constraints); err != nil {
		return err
	}
	return validateObjective(cs.Objective)
}

func validateVariables(vars []Variable) error {
	if len(vars) == 0 {
		return fmt.Errorf("%w: at least one variable is required", ErrInvalidSpec)
	}
	seen := make(map[string]bool, len(vars))
	for i, v := range vars {
		if !slices.Contains(VariableNames, v.Name) {
			return fmt.Errorf("%w: variables[%d]: unknown variable %q", ErrInvalidSpec, i, v.Name)
		}
		if seen[v.Name] {
			return fmt.Errorf("%w: variables[%d]: duplicate variable %q", ErrInvalidSpec, i, v.Name)
		}
		seen[v.Name] = true
		if v.Lower != nil && v.Upper != nil && *v.Lower > *v.Upper {
			return fmt.Errorf("%w: variables[%d]: lower bound %g above upper bound %g",
				ErrInvalidSpec, i, *v.Lower, *v.Upper)
		}
		if v.Init != nil {
			if v.Lower != nil && *v.Init < *v.Lower || v.Upper != nil && *v.Init > *v.Upper {
				return fmt.Errorf("%w: variables[%d]: init %g outside bounds", ErrInvalidSpec, i, *v.Init)
			}
		}
	}
	return nil
}

func validateConstraints(cons []Constraint) error {
	for i, c := range cons {
		if !slices.Contains(Quantities, c.Quantity) {
			return fmt.Errorf("%w: constraints[%d]: unknown quantity %q", ErrInvalidSpec, i, c.Quantity)
		}
		if !slices.Contains(Operators, c.Op) {
			return fmt.Errorf("%w: constraints[%d]: unknown operator %q", ErrInvalidSpec, i, c.Op)
		}
	}
	return nil
}

func validateObjective(o Objective) error {
	if o.Quantity == "" {
		return fmt.Errorf("%w: objective quantity is required", ErrInvalidSpec)
	}
	if !slices.Contains(Quantities, o.Quantity) || IsVector(o.Quantity) {
		return fmt.Errorf("%w: objective must be a scalar quantity, got %q", ErrInvalidSpec, o.Quantity)
	}
	if !slices.Contains(Senses, o.Sense) {
		return fmt.Errorf("%w: objective sense must be minimize or maximize, got %q", ErrInvalidSpec, o.Sense)
	}
	return nil
}

// Float returns a pointer to v, for building documents in code.
func Float(v float64) *float64 { return &v }

// Reference is the experiment from the elliptical-wing study: free chords and
// alpha, hold area, force a tapering planform and CL = 1, minimize CD.
func Reference() Spec {
	return Spec{
		ID:          "elliptical-wing",
		Description: "Minimize induced drag at CL = 1 with fixed wing area and monotonically decreasing chords.",
		Variables: []Variable{
			{Name: VarChords},
			{Name: VarAlpha, Init: Float(5), Lower: Float(0), Upper: Float(30)},
		},
		Constraints: []Constraint{
			{Quantity: QtyChords, Op: OpGe, Value: Float(0)},
			{Quantity: QtyWingArea, Op: OpEq},
			{Quantity: QtyChordDiffs, Op: OpLe, Value: Float(0)},
			{Quantity: QtyCL, Op: OpEq, Value: Float(1)},
		},
		Objective: Objective{Quantity: QtyCD, Sense: Minimize},
	}
}
