package airplane

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kailas-cloud/aerolab/internal/domain/geometry"
)

func testPlane(t *testing.T) geometry.Airplane {
	t.Helper()
	a, err := geometry.MakePlane(geometry.WingParams{
		Span:           2,
		YsOverHalfSpan: []float64{0, 0.5, 1},
		Chords:         []float64{0.3, 0.25, 0.1},
		Twists:         []float64{2, 1, -1},
	})
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "plane.json")
	s := New()
	want := testPlane(t)

	if err := s.Save(path, &want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got.Name != want.Name || len(got.Wings) != 1 {
		t.Fatalf("got %+v", got)
	}
	gw, ww := got.Wings[0], want.Wings[0]
	if len(gw.XSecs) != len(ww.XSecs) || !gw.Symmetric {
		t.Fatalf("wing = %+v", gw)
	}
	for i := range ww.XSecs {
		if gw.XSecs[i] != ww.XSecs[i] {
			t.Errorf("xsec %d = %+v, want %+v", i, gw.XSecs[i], ww.XSecs[i])
		}
	}
	if got.SRef() != want.SRef() {
		t.Errorf("area changed: %g vs %g", got.SRef(), want.SRef())
	}
}

func TestStore_LoadRejectsForeignDocuments(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		body string
		want error
	}{
		{"wrong format", `{"format":"other","version":1}`, ErrUnknownFormat},
		{"future version", `{"format":"aerolab.airplane","version":99}`, ErrUnsupportedVersion},
		{"zero version", `{"format":"aerolab.airplane"}`, ErrUnsupportedVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := New().Load(path); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStore_LoadMissing(t *testing.T) {
	_, err := New().Load(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}
