package docsplit

import (
	"os"
	"strings"
	"testing"
)

func loadFixture(t *testing.T) []Token {
	t.Helper()
	f, err := os.Open("testdata/sample_docs.txt")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	tokens, err := Tokenize(f)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	return tokens
}

func TestTokenize_Fixture(t *testing.T) {
	tokens := loadFixture(t)

	tests := []struct {
		line      int
		kind      Kind
		depth     int
		directive string
		name      string
		payload   string
	}{
		{line: 2, kind: KindBlank},
		{line: 3, kind: KindDirective, directive: DirClass, name: "Airplane",
			payload: "Airplane(name = 'Untitled', xyz_ref = None, wings = None)"},
		{line: 5, kind: KindText, depth: 3},
		{line: 9, kind: KindField, depth: 3, directive: FieldParam, name: "name", payload: "Name of the airplane."},
		{line: 10, kind: KindField, depth: 3, directive: FieldParam, name: "xyz_ref"},
		{line: 13, kind: KindField, depth: 6, directive: FieldType, payload: "list"},
		{line: 27, kind: KindDirective, depth: 3, directive: DirMethod, name: "draw", payload: "draw(backend = 'pyvista')"},
		{line: 29, kind: KindField, depth: 6, directive: FieldReturn, payload: "The figure object, which can be shown"},
		{line: 30, kind: KindText, depth: 15},
		{line: 39, kind: KindDirective, directive: DirClass, payload: "(broken)"},
	}
	for _, tt := range tests {
		tok := tokens[tt.line-1]
		if tok.Line != tt.line {
			t.Fatalf("token %d has line %d", tt.line-1, tok.Line)
		}
		if tok.Kind != tt.kind || tok.Depth != tt.depth || tok.Directive != tt.directive ||
			tok.Name != tt.name || tok.Payload != tt.payload {
			t.Errorf("line %d: got %s depth=%d directive=%q name=%q payload=%q",
				tt.line, tok.Kind, tok.Depth, tok.Directive, tok.Name, tok.Payload)
		}
	}
}

func TestTokenize_CRLF(t *testing.T) {
	tokens, err := Tokenize(strings.NewReader(".. py:function:: f(x)\r\n   body\r\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(tokens) != 2 || tokens[0].Payload != "f(x)" || tokens[1].Text != "   body" {
		t.Errorf("tokens = %+v", tokens)
	}
}

func TestClassify_FieldWithoutSpace(t *testing.T) {
	tok := classify(1, "      :param x:the x value")
	if tok.Kind != KindField || tok.Name != "x" || tok.Payload != "the x value" {
		t.Errorf("got %+v", tok)
	}
}
