package docsplit

import (
	"reflect"
	"strings"
	"testing"
)

func extractSource(t *testing.T, lines ...string) ([]Entity, Report) {
	t.Helper()
	tokens, err := Tokenize(strings.NewReader(strings.Join(lines, "\n")))
	if err != nil {
		t.Fatal(err)
	}
	root, _ := BuildTree(tokens)
	return Extract(root)
}

func entityByName(entities []Entity, name string) (Entity, bool) {
	for _, e := range entities {
		if e.Name == name {
			return e, true
		}
	}
	return Entity{}, false
}

func TestExtract_Fixture(t *testing.T) {
	root, _ := BuildTree(loadFixture(t))
	entities, rep := Extract(root)

	var names []string
	for _, e := range entities {
		names = append(names, e.Name)
	}
	want := []string{"Airplane", "Airplane.draw", "Airplane.Results", "cosspace"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("entities = %v, want %v", names, want)
	}

	overview := strings.Join([]string{
		".. py:class:: Airplane(name = 'Untitled', xyz_ref = None, wings = None)",
		"",
		"   Bases: AeroSandboxObject",
		"",
		"   Definition for an airplane.",
		"",
		"   :param name: Name of the airplane.",
		"   .. py:attribute:: name",
		"      :type: str",
		"",
		"      The airplane name.",
		"",
		"   .. py:method:: Airplane.draw(backend = 'pyvista')",
		"   .. py:method:: Airplane.is_entirely_symmetric()",
	}, "\n")
	if got := entities[0].Content(); got != overview {
		t.Errorf("overview:\n%s\n--- want ---\n%s", got, overview)
	}

	draw := entities[1]
	if draw.Kind != EntityMethod || draw.Parent != "Airplane" {
		t.Errorf("draw = %+v", draw)
	}
	if !strings.HasPrefix(draw.Content(), ".. py:method:: Airplane.draw(backend = 'pyvista')\n\n   :return: The figure object") {
		t.Errorf("draw content:\n%s", draw.Content())
	}

	results := entities[2]
	if results.Kind != EntityNestedClass {
		t.Errorf("Results kind = %s", results.Kind)
	}
	if got := results.Content(); got != ".. py:class:: Results\n\n   Container for analysis results.\n" {
		t.Errorf("nested content = %q", got)
	}

	if !strings.Contains(entities[3].Content(), "Returns cosine-spaced points.") {
		t.Errorf("function content = %q", entities[3].Content())
	}
	if strings.Contains(entities[3].Content(), "dropped") {
		t.Error("lines of the unparsable class leaked into the function")
	}

	wantReport := Report{
		Classes: 1, NestedClasses: 1, Methods: 1, Functions: 1,
		Duplicates: 2, Skipped: []string{"Airplane", "cosspace"},
	}
	if !reflect.DeepEqual(rep, wantReport) {
		t.Errorf("report = %+v, want %+v", rep, wantReport)
	}
}

func TestExtract_ClassWithNestedClassAndMethod(t *testing.T) {
	entities, _ := extractSource(t,
		".. py:class:: Wing(xsecs)",
		"",
		"   .. py:class:: Section",
		"",
		"      A spanwise section.",
		"",
		"   .. py:method:: area()",
		"",
		"      :returns:",
		"",
		"      The planform area in square meters.",
		"",
		"   .. py:method:: span()",
		"",
	)
	if len(entities) != 3 {
		t.Fatalf("expected class, nested class and method, got %d entities", len(entities))
	}
	kinds := map[EntityKind]string{}
	for _, e := range entities {
		kinds[e.Kind] = e.Name
	}
	if kinds[EntityClass] != "Wing" || kinds[EntityNestedClass] != "Wing.Section" || kinds[EntityMethod] != "Wing.area" {
		t.Errorf("entities = %v", kinds)
	}
	if _, ok := entityByName(entities, "Wing.span"); ok {
		t.Error("a signature-only method must not get its own file")
	}
}

func TestExtract_DuplicatesKeepFirst(t *testing.T) {
	entities, rep := extractSource(t,
		".. py:function:: sinspace(n)",
		"   First.",
		".. py:function:: sinspace(n)",
		"   Second.",
		".. py:class:: Wing",
		"   One.",
		".. py:class:: Wing",
		"   Two.",
	)
	if len(entities) != 2 {
		t.Fatalf("got %d entities", len(entities))
	}
	fn, _ := entityByName(entities, "sinspace")
	if !strings.Contains(fn.Content(), "First.") {
		t.Errorf("first function lost: %q", fn.Content())
	}
	cls, _ := entityByName(entities, "Wing")
	if !strings.Contains(cls.Content(), "One.") {
		t.Errorf("first class lost: %q", cls.Content())
	}
	if rep.Duplicates != 2 || !reflect.DeepEqual(rep.Skipped, []string{"sinspace", "Wing"}) {
		t.Errorf("report = %+v", rep)
	}
}

func TestExtract_AttributeFiltering(t *testing.T) {
	entities, _ := extractSource(t,
		".. py:class:: Opti",
		"   :param category: Variables to freeze.",
		"   :param verbose:",
		"   :param cache:",
		"      Continuation that describes cache.",
		"   .. py:attribute:: x",
		"      :value: 0",
		"   .. py:property:: y",
		"      :type: float",
		"",
		"      The y coordinate.",
		"   .. py:property:: z",
		"      :type: float",
		"   .. py:class:: Inner",
		"      .. py:attribute:: bare",
		"         :type: int",
		"      .. py:property:: span",
		"         :type: float",
		"      .. py:attribute:: kept",
		"",
		"         Described.",
	)
	cls, _ := entityByName(entities, "Opti")
	content := cls.Content()
	for _, want := range []string{":param category:", ":param cache:", "Continuation", "py:property:: y", "The y coordinate.", "py:property:: z"} {
		if !strings.Contains(content, want) {
			t.Errorf("overview missing %q:\n%s", want, content)
		}
	}
	for _, unwanted := range []string{":param verbose:", "py:attribute:: x", ":value: 0", "Inner"} {
		if strings.Contains(content, unwanted) {
			t.Errorf("overview should not contain %q:\n%s", unwanted, content)
		}
	}

	inner, ok := entityByName(entities, "Opti.Inner")
	if !ok {
		t.Fatal("nested class missing")
	}
	if strings.Contains(inner.Content(), "bare") || !strings.Contains(inner.Content(), "kept") ||
		!strings.Contains(inner.Content(), "py:property:: span") {
		t.Errorf("nested content = %q", inner.Content())
	}
}

func TestShouldCreateMethod(t *testing.T) {
	tests := []struct {
		name string
		body []string
		want bool
	}{
		{"signature only", nil, false},
		{"blank body", []string{"", ""}, false},
		{"bare return", []string{"      :return:", "      :rtype: float"}, false},
		{"text before return", []string{"      Computes lift.", "      :return:"}, true},
		{"inline return", []string{"      :returns: The lift in newtons."}, true},
		{"return described below", []string{"      :yields:", "", "      Each station."}, true},
		{"text without return", []string{"      Draws the wing."}, true},
		{"params only", []string{"      :param x: a value", "      :type x: float"}, false},
		{"nested directive", []string{"      .. py:attribute:: cached"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := make([]Token, len(tt.body))
			for i, l := range tt.body {
				body[i] = classify(i+2, l)
			}
			if got := shouldCreateMethod(body); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQualifySignature(t *testing.T) {
	got := qualifySignature("   .. py:method:: area_projected(type = 'XY')", "Fuselage")
	if got != "   .. py:method:: Fuselage.area_projected(type = 'XY')" {
		t.Errorf("got %q", got)
	}
	if got := qualifySignature("   .. py:method:: no_parens", "Fuselage"); got != "   .. py:method:: no_parens" {
		t.Errorf("line without parentheses changed: %q", got)
	}
}

func TestDedent(t *testing.T) {
	got := Dedent([]string{"   .. py:method:: f()", "", "      body", "  \t", "         deeper"})
	want := []string{".. py:method:: f()", "", "   body", "", "      deeper"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}
