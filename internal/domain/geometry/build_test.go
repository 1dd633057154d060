package geometry

import (
	"errors"
	"math"
	"strings"
	"testing"
)

const eps = 1e-12

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestMakeWing_UntwistedStations(t *testing.T) {
	w, err := MakeWing(WingParams{
		Span:           4,
		YsOverHalfSpan: []float64{0, 1},
		Chords:         []float64{1, 1},
		Twists:         []float64{0, 0},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.XSecs) != 2 {
		t.Fatalf("expected 2 xsecs, got %d", len(w.XSecs))
	}

	root, tip := w.XSecs[0].LeadingEdge, w.XSecs[1].LeadingEdge
	if !near(root.Y, 0, eps) {
		t.Errorf("root y = %g, want 0", root.Y)
	}
	if !near(tip.Y, 2, eps) {
		t.Errorf("tip y = %g, want half span 2", tip.Y)
	}
	if !near(root.X, tip.X, eps) || !near(root.Z, tip.Z, eps) {
		t.Errorf("untwisted stations differ in x/z: root=%+v tip=%+v", root, tip)
	}
	if !near(root.X, -0.25, eps) {
		t.Errorf("default offset should put LE at -c/4, got %g", root.X)
	}
	if !w.Symmetric {
		t.Error("wing must be symmetric")
	}
	if w.XSecs[0].Airfoil != DefaultAirfoil {
		t.Errorf("airfoil = %q, want %q", w.XSecs[0].Airfoil, DefaultAirfoil)
	}
}

func TestMakeWing_TwistSignDrivesLeadingEdgeZ(t *testing.T) {
	tests := []struct {
		name  string
		twist float64
		sign  float64
	}{
		{"nose up", 5, 1},
		{"nose down", -5, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := MakeWing(WingParams{
				Span:           2,
				YsOverHalfSpan: []float64{0, 1},
				Chords:         []float64{1, 1},
				Twists:         []float64{0, tt.twist},
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			z := w.XSecs[1].LeadingEdge.Z
			if z*tt.sign <= 0 {
				t.Errorf("twist %g gave LE z = %g, want sign %g", tt.twist, z, tt.sign)
			}
			if !near(w.XSecs[0].LeadingEdge.Z, 0, eps) {
				t.Errorf("untwisted root moved: z=%g", w.XSecs[0].LeadingEdge.Z)
			}
		})
	}
}

func TestMakeWing_TwistDisplacementAddsToTwist(t *testing.T) {
	w, err := MakeWing(WingParams{
		Span:               2,
		YsOverHalfSpan:     []float64{0, 1},
		Chords:             []float64{1, 0.5},
		Twists:             []float64{1, 2},
		TwistDisplacements: []float64{0.5, -1},
		HeaveDisplacements: []float64{0, 0.1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := w.XSecs[0].Twist; !near(got, 1.5, eps) {
		t.Errorf("root twist = %g, want 1.5", got)
	}
	if got := w.XSecs[1].Twist; !near(got, 1, eps) {
		t.Errorf("tip twist = %g, want 1", got)
	}

	// Heave translates after the rotation.
	c, xref, th := 0.5, DefaultXRefOverChord, Radians(1)
	wantZ := c*xref*math.Sin(th) + 0.1
	if got := w.XSecs[1].LeadingEdge.Z; !near(got, wantZ, 1e-12) {
		t.Errorf("tip z = %g, want %g", got, wantZ)
	}
}

func TestMakeWing_ShearCenterStaysFixedUnderTwist(t *testing.T) {
	// Twisting about the shear center must not move it.
	w, err := MakeWing(WingParams{
		Span:           2,
		YsOverHalfSpan: []float64{0, 1},
		Chords:         []float64{2, 2},
		Twists:         []float64{0, 10},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, x := range w.XSecs {
		sc := x.PointAt(DefaultXRefOverChord)
		if !near(sc.X, -0.5+2*DefaultXRefOverChord, 1e-12) || !near(sc.Z, 0, 1e-12) {
			t.Errorf("xsec %d shear center moved to %+v", i, sc)
		}
	}
}

func TestMakeWing_ShearCenterAtLeadingEdge(t *testing.T) {
	xref := 0.0
	w, err := MakeWing(WingParams{
		Span:           2,
		YsOverHalfSpan: []float64{0, 1},
		Chords:         []float64{1, 1},
		Twists:         []float64{0, 20},
		Offsets:        []float64{0, 0},
		XRefOverChord:  &xref,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Twisting about the leading edge leaves it in place.
	le := w.XSecs[1].LeadingEdge
	if !near(le.X, 0, 1e-12) || !near(le.Z, 0, 1e-12) {
		t.Errorf("tip leading edge moved to %+v", le)
	}
}

func TestVec3_RotateY(t *testing.T) {
	got := V(-1, 2, 0).RotateY(math.Pi / 2)
	if !near(got.X, 0, 1e-12) || !near(got.Y, 2, 1e-12) || !near(got.Z, 1, 1e-12) {
		t.Errorf("nose-up quarter turn = %+v, want (0, 2, 1)", got)
	}
	if got := V(3, 4, 0).Normalize(); !near(got.Norm(), 1, eps) {
		t.Errorf("|unit| = %g", got.Norm())
	}
	if got := (Vec3{}).Normalize(); got != (Vec3{}) {
		t.Errorf("zero vector normalized to %+v", got)
	}
}

func TestWingParams_Validate(t *testing.T) {
	base := func() WingParams {
		return WingParams{
			Span:           1,
			YsOverHalfSpan: []float64{0, 0.5, 1},
			Chords:         []float64{1, 1, 1},
			Twists:         []float64{0, 0, 0},
		}
	}
	tests := []struct {
		name    string
		mutate  func(*WingParams)
		wantErr error
		wantMsg string
	}{
		{"zero span", func(p *WingParams) { p.Span = 0 }, ErrInvalidSpan, ""},
		{"nan span", func(p *WingParams) { p.Span = math.NaN() }, ErrInvalidSpan, ""},
		{
			"short chords",
			func(p *WingParams) { p.Chords = []float64{1, 1} },
			ErrLengthMismatch,
			"ys_over_half_span, chords, and twists must have the same length. Got 3, 2, 3 respectively.",
		},
		{
			"offsets length",
			func(p *WingParams) { p.Offsets = []float64{0} },
			ErrLengthMismatch,
			"offsets must have the same length as ys_over_half_span (3). Got 1.",
		},
		{
			"single station",
			func(p *WingParams) {
				p.YsOverHalfSpan, p.Chords, p.Twists = []float64{0}, []float64{1}, []float64{0}
			},
			ErrTooFewStations,
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base()
			tt.mutate(&p)
			err := p.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && err.Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestMakePlane_Defaults(t *testing.T) {
	p, err := MakePlane(WingParams{
		Span:           2,
		YsOverHalfSpan: []float64{0, 1},
		Chords:         []float64{1, 1},
		Twists:         []float64{0, 0},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != DefaultPlaneName {
		t.Errorf("name = %q", p.Name)
	}
	if p.XyzRef != (Vec3{}) {
		t.Errorf("xyz_ref = %+v, want origin", p.XyzRef)
	}
	if len(p.Wings) != 1 {
		t.Fatalf("expected one wing, got %d", len(p.Wings))
	}
}

func TestWing_AreaSpanAspectRatio(t *testing.T) {
	w, err := MakeWing(WingParams{
		Span:           8,
		YsOverHalfSpan: []float64{0, 0.5, 1},
		Chords:         []float64{1, 1, 1},
		Twists:         []float64{0, 0, 0},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := w.Area(); !near(got, 8, 1e-12) {
		t.Errorf("Area() = %g, want 8", got)
	}
	if got := w.Span(); !near(got, 8, 1e-12) {
		t.Errorf("Span() = %g, want 8", got)
	}
	if got := w.AspectRatio(); !near(got, 8, 1e-12) {
		t.Errorf("AspectRatio() = %g, want 8", got)
	}
	if got := w.MeanGeometricChord(); !near(got, 1, 1e-12) {
		t.Errorf("MeanGeometricChord() = %g, want 1", got)
	}
}

func TestSinSpace(t *testing.T) {
	fwd := SinSpace(0, 1, 16, false)
	rev := SinSpace(0, 1, 16, true)
	for _, xs := range [][]float64{fwd, rev} {
		if xs[0] != 0 || xs[len(xs)-1] != 1 {
			t.Fatalf("endpoints = %g..%g, want 0..1", xs[0], xs[len(xs)-1])
		}
		for i := 1; i < len(xs); i++ {
			if xs[i] <= xs[i-1] {
				t.Fatalf("not increasing at %d: %v", i, xs)
			}
		}
	}
	// reverse bunches points at the tip
	if rev[15]-rev[14] >= rev[1]-rev[0] {
		t.Errorf("reverse spacing should be finest near stop: %v", rev)
	}
	if fwd[1]-fwd[0] >= fwd[15]-fwd[14] {
		t.Errorf("default spacing should be finest near start: %v", fwd)
	}
}

func TestLengthError_Text(t *testing.T) {
	err := (&LengthError{Field: "twist_displacements", Stations: 4, Got: []int{2}}).Error()
	if !strings.HasPrefix(err, "twist_displacements must have the same length") {
		t.Errorf("unexpected text %q", err)
	}
}
