package docsplit

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Kind classifies a line of the documentation dump.
type Kind int

// Token kinds.
const (
	KindBlank Kind = iota
	KindText
	KindDirective
	KindField
)

func (k Kind) String() string {
	switch k {
	case KindBlank:
		return "blank"
	case KindText:
		return "text"
	case KindDirective:
		return "directive"
	case KindField:
		return "field"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Directive names with special handling.
const (
	DirClass     = "class"
	DirFunction  = "function"
	DirMethod    = "method"
	DirAttribute = "attribute"
	DirProperty  = "property"
)

// Field names with special handling.
const (
	FieldParam   = "param"
	FieldType    = "type"
	FieldReturn  = "return"
	FieldReturns = "returns"
	FieldYield   = "yield"
	FieldYields  = "yields"
)

// Token is one classified input line.
//
// For a directive ".. py:method:: area(type = 'XY')" Directive is "method",
// Name is "area" and Payload is "area(type = 'XY')". For a field
// ":param span: Wing span." Directive is "param", Name is "span" and
// Payload is "Wing span.". Text is always the raw line.
type Token struct {
	Line      int
	Depth     int
	Kind      Kind
	Directive string
	Name      string
	Payload   string
	Text      string
}

var (
	directiveRe = regexp.MustCompile(`^\.\.\s+py:(\w+)::\s*(.*)$`)
	nameRe      = regexp.MustCompile(`^\w+`)
	fieldRe     = regexp.MustCompile(`^:(\w+)(?:\s+([^:]*?))?:\s*(.*)$`)
)

const maxLineBytes = 4 << 20

// Tokenize classifies every line of r. Depth is the count of leading
// whitespace characters.
func Tokenize(r io.Reader) ([]Token, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	var tokens []Token
	for n := 1; sc.Scan(); n++ {
		tokens = append(tokens, classify(n, strings.TrimRight(sc.Text(), "\r")))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read docs: %w", err)
	}
	return tokens, nil
}

func classify(n int, line string) Token {
	trimmed := strings.TrimSpace(line)
	tok := Token{Line: n, Text: line}
	if trimmed == "" {
		tok.Kind = KindBlank
		return tok
	}
	tok.Depth = len(line) - len(strings.TrimLeft(line, " \t"))

	if m := directiveRe.FindStringSubmatch(trimmed); m != nil {
		tok.Kind = KindDirective
		tok.Directive = m[1]
		tok.Payload = m[2]
		tok.Name = nameRe.FindString(m[2])
		return tok
	}
	if strings.HasPrefix(trimmed, ":") {
		tok.Kind = KindField
		if m := fieldRe.FindStringSubmatch(trimmed); m != nil {
			tok.Directive = m[1]
			tok.Name = strings.TrimSpace(m[2])
			tok.Payload = strings.TrimSpace(m[3])
		}
		return tok
	}
	tok.Kind = KindText
	return tok
}
