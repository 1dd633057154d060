package experiment

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kailas-cloud/aerolab/internal/fsutil"
)

// Markdown renders the experiment report.
func (o Outcome) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Experiment: %s\n\n", o.ID)
	if o.Spec.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", o.Spec.Description)
	}
	status := "feasible"
	if !o.Feasible() {
		status = fmt.Sprintf("infeasible (max violation %.3g)", o.MaxViolation)
	}
	fmt.Fprintf(&b, "Solved with %s in %d evaluations, %s.\n\n", o.Method, o.Evaluations, status)

	b.WriteString("## Variables\n\n| Name | Lower | Upper | Optimized |\n|---|---|---|---|\n")
	for _, v := range o.Variables {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", v.Name, optional(v.Lower), optional(v.Upper), formatValues(v.Values))
	}

	b.WriteString("\n## Constraints\n\n| Quantity | Op | Target | Achieved | OK |\n|---|---|---|---|---|\n")
	for _, c := range o.Constraints {
		ok := "yes"
		if !c.Satisfied() {
			ok = "no"
		}
		target := formatValues(c.Target)
		if c.Value == nil {
			target += " (initial)"
		}
		fmt.Fprintf(&b, "| %s | `%s` | %s | %s | %s |\n", c.Quantity, c.Op, target, formatValues(c.Achieved), ok)
	}

	fmt.Fprintf(&b, "\n## Objective\n\n%s `%s` = %.6g\n", o.Spec.Objective.Sense, o.Spec.Objective.Quantity, o.Objective)

	b.WriteString("\n## Aerodynamics\n\n| Quantity | Value |\n|---|---|\n")
	rows := []struct {
		name string
		v    float64
	}{
		{"CL", o.Aero.CL},
		{"CD", o.Aero.CD},
		{"Cm", o.Aero.Cm},
		{"L/D", o.Aero.LiftToDrag()},
		{"alpha (deg)", o.Alpha},
		{"velocity (m/s)", o.Velocity},
		{"wing area (m^2)", o.Area},
		{"span (m)", o.Span},
		{"aspect ratio", o.AspectRatio},
	}
	for _, r := range rows {
		fmt.Fprintf(&b, "| %s | %.5g |\n", r.name, r.v)
	}

	ellipse := EllipticChords(o.Stations, o.Area)
	b.WriteString("\n## Chord distribution\n\n| y (m) | chord (m) | elliptic (m) | twist (deg) |\n|---|---|---|---|\n")
	for i, y := range o.Stations {
		fmt.Fprintf(&b, "| %.4f | %.4f | %.4f | %.3f |\n", y, o.Chords[i], ellipse[i], o.Twists[i])
	}

	b.WriteString("\n## Elliptic reference\n\n")
	fmt.Fprintf(&b, "CDi (theory)   : %.4f\n\n", o.InducedDragTheory())
	fmt.Fprintf(&b, "CDi (computed) : %.4f\n", o.Aero.CD)
	if o.PlotPath != "" {
		fmt.Fprintf(&b, "\n![Chord distribution](%s)\n", filepath.Base(o.PlotPath))
	}
	return b.String()
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *v)
}

func formatValues(vs []float64) string {
	switch len(vs) {
	case 0:
		return "-"
	case 1:
		return fmt.Sprintf("%.5g", vs[0])
	}
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprintf("%.4g", v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// WriteReport writes the Markdown report.
func WriteReport(path string, o Outcome) error {
	if err := fsutil.WriteFileAtomic(path, []byte(o.Markdown()), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
