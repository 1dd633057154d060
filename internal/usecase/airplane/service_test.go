package airplane

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/aerolab/internal/domain"
	"github.com/kailas-cloud/aerolab/internal/domain/geometry"
	"github.com/kailas-cloud/aerolab/internal/usecase/vlm"
)

func validDefinition() Definition {
	return Definition{
		Span:           2,
		YsOverHalfSpan: []float64{0, 0.5, 1},
		Chords:         []float64{0.3, 0.25, 0.1},
		Twists:         []float64{2, 1, -1},
	}
}

func TestCreate_SavesAndSummarizes(t *testing.T) {
	dir := t.TempDir()
	var savedPath string
	var saved *geometry.Airplane
	store := &mockStore{saveFn: func(path string, a *geometry.Airplane) error {
		savedPath, saved = path, a
		return nil
	}}
	svc := New(store, dir, nil)

	def := validDefinition()
	def.OutputFilename = "wing"
	def.HeaveDisplacements = []float64{0, 0.01, 0.05}

	sum, err := svc.Create(context.Background(), def)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(dir, "wing.json"); savedPath != want || sum.Path != want {
		t.Errorf("path = %q (saved %q), want %q", sum.Path, savedPath, want)
	}
	if saved == nil || saved.Name != geometry.DefaultPlaneName || len(saved.Wings[0].XSecs) != 3 {
		t.Fatalf("saved airplane = %+v", saved)
	}
	if sum.Stations != 3 || sum.Chord != (Range{0.1, 0.3}) || sum.Twist != (Range{-1, 2}) {
		t.Errorf("summary = %+v", sum)
	}
	if sum.TwistDisp != nil || sum.Heave == nil || sum.Heave.Max != 0.05 {
		t.Errorf("optional ranges = %+v / %+v", sum.Heave, sum.TwistDisp)
	}
}

func TestSummary_String(t *testing.T) {
	sum := Summary{
		Path:     "/tmp/airplane.json",
		Span:     2,
		Stations: 3,
		Chord:    Range{0.1, 0.3},
		Twist:    Range{-1, 2},
		Heave:    &Range{0, 0.05},
	}
	want := "Airplane successfully created and saved!\n\n" +
		"Output file: /tmp/airplane.json\n" +
		"Wing span: 2 m\n" +
		"Number of cross-sections: 3\n" +
		"Chord range: 0.100 - 0.300 m\n" +
		"Twist range: -1.0 - 2.0 deg\n" +
		"Heave displacement range: 0.000 - 0.050 m"
	if got := sum.String(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestCreate_ValidationMessages(t *testing.T) {
	svc := New(&mockStore{}, t.TempDir(), nil)

	tests := []struct {
		name string
		mut  func(*Definition)
		want string
	}{
		{
			name: "required arrays disagree",
			mut:  func(d *Definition) { d.Chords = d.Chords[:2] },
			want: "Error: ys_over_half_span, chords, and twists must have the same length. Got 3, 2, 3 respectively.",
		},
		{
			name: "offsets",
			mut:  func(d *Definition) { d.Offsets = []float64{0} },
			want: "Error: offsets must have the same length as ys_over_half_span (3). Got 1.",
		},
		{
			name: "twist displacements",
			mut:  func(d *Definition) { d.TwistDisplacements = []float64{0, 1} },
			want: "Error: twist_displacements must have the same length as ys_over_half_span (3). Got 2.",
		},
		{
			name: "span",
			mut:  func(d *Definition) { d.Span = 0 },
			want: "Error creating airplane: span must be greater than 0, got 0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := validDefinition()
			tt.mut(&def)
			_, err := svc.Create(context.Background(), def)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := ErrorText(err); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCreate_StoreError(t *testing.T) {
	svc := New(&mockStore{saveFn: func(string, *geometry.Airplane) error {
		return errors.New("disk full")
	}}, t.TempDir(), nil)

	_, err := svc.Create(context.Background(), validDefinition())
	if err == nil || !strings.HasPrefix(ErrorText(err), "Error creating airplane: disk full") {
		t.Fatalf("got %v", err)
	}
}

func TestOutputPath(t *testing.T) {
	svc := New(&mockStore{}, "/data", nil)
	tests := map[string]string{
		"":                "/data/airplane.json",
		"glider":          "/data/glider.json",
		"glider.json":     "/data/glider.json",
		"runs/../g2":      "/data/g2.json",
	}
	for in, want := range tests {
		got, err := svc.OutputPath(in)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("OutputPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOutputPath_StaysInDir(t *testing.T) {
	svc := New(&mockStore{}, "/data", nil)
	for _, in := range []string{"../escaped", "../../etc/plane", "runs/../../x.json", "/abs/plane.json"} {
		if _, err := svc.OutputPath(in); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("OutputPath(%q) = %v, want ErrInvalidInput", in, err)
		}
	}
}

func TestCreate_RejectsEscapingFilename(t *testing.T) {
	root := t.TempDir()
	saved := false
	store := &mockStore{saveFn: func(string, *geometry.Airplane) error {
		saved = true
		return nil
	}}
	svc := New(store, filepath.Join(root, "planes"), nil)

	for _, name := range []string{"../../escaped", filepath.Join(root, "abs")} {
		def := validDefinition()
		def.OutputFilename = name
		if _, err := svc.Create(context.Background(), def); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("Create(%q) = %v, want ErrInvalidInput", name, err)
		}
	}
	if saved {
		t.Error("nothing may be written outside the airplane directory")
	}
}

func TestAnalyze_RejectsEscapingPath(t *testing.T) {
	loaded := false
	store := &mockStore{loadFn: func(string) (geometry.Airplane, error) {
		loaded = true
		return geometry.Airplane{}, nil
	}}
	svc := New(store, t.TempDir(), nil)

	for _, p := range []string{"../secret.json", "/etc/passwd"} {
		if _, err := svc.Analyze(context.Background(), DefaultAnalyzeRequest(p)); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("Analyze(%q) = %v, want ErrInvalidInput", p, err)
		}
	}
	if loaded {
		t.Error("store must not be read outside the airplane directory")
	}
}

type countingObserver struct{ solves int }

func (c *countingObserver) ObserveSolve(int, time.Duration, error) { c.solves++ }

func TestAnalyze(t *testing.T) {
	plane, err := geometry.MakePlane(geometry.WingParams{
		Span:           8,
		YsOverHalfSpan: []float64{0, 0.5, 1},
		Chords:         []float64{1, 1, 1},
		Twists:         []float64{0, 0, 0},
	})
	if err != nil {
		t.Fatal(err)
	}
	var loaded string
	store := &mockStore{loadFn: func(path string) (geometry.Airplane, error) {
		loaded = path
		return plane, nil
	}}
	obs := &countingObserver{}
	svc := New(store, "/planes", nil).WithObserver(obs)

	a, err := svc.Analyze(context.Background(), DefaultAnalyzeRequest("wing.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded != "/planes/wing.json" {
		t.Errorf("loaded %q", loaded)
	}
	if a.Aero.CL <= 0 || a.Aero.CD <= 0 {
		t.Errorf("expected positive CL and CD at 5°, got %+v", a.Aero)
	}
	if len(a.Chords) != 3 || a.Stations[2] != 4 {
		t.Errorf("chords %v stations %v", a.Chords, a.Stations)
	}
	if obs.solves != 1 {
		t.Errorf("observer saw %d solves", obs.solves)
	}
	if !strings.Contains(a.String(), "Wing span (m): 8") {
		t.Errorf("report:\n%s", a.String())
	}
}

func TestAnalyze_Errors(t *testing.T) {
	empty := New(&mockStore{}, t.TempDir(), nil)
	if _, err := empty.Analyze(context.Background(), DefaultAnalyzeRequest("x.json")); !errors.Is(err, vlm.ErrNoPanels) {
		t.Errorf("expected ErrNoPanels, got %v", err)
	}

	failing := New(&mockStore{loadFn: func(string) (geometry.Airplane, error) {
		return geometry.Airplane{}, errors.New("boom")
	}}, t.TempDir(), nil)
	if _, err := failing.Analyze(context.Background(), DefaultAnalyzeRequest("x.json")); err == nil {
		t.Error("expected load error")
	}
}
