package docsplit

import (
	"fmt"
	"regexp"
	"strings"
)

// EntityKind is what an output file documents.
type EntityKind string

// Entity kinds.
const (
	EntityClass       EntityKind = "class"
	EntityNestedClass EntityKind = "nested_class"
	EntityMethod      EntityKind = "method"
	EntityFunction    EntityKind = "function"
)

// Entity is one output file: Name.txt holding Lines.
type Entity struct {
	Name   string
	Kind   EntityKind
	Parent string
	Lines  []string
}

// Content returns the dedented file body.
func (e Entity) Content() string {
	return strings.Join(Dedent(e.Lines), "\n")
}

// Report counts what a split produced.
type Report struct {
	Classes       int
	NestedClasses int
	Methods       int
	Functions     int
	Duplicates    int
	Written       int
	Skipped       []string
	Warnings      []Warning
}

func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total classes saved: %d\n", r.Classes)
	fmt.Fprintf(&b, "Total nested classes saved: %d\n", r.NestedClasses)
	fmt.Fprintf(&b, "Total methods saved: %d\n", r.Methods)
	fmt.Fprintf(&b, "Total functions saved: %d", r.Functions)
	if r.Duplicates > 0 {
		fmt.Fprintf(&b, "\nDuplicates skipped: %d", r.Duplicates)
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintf(&b, "\nWarnings: %d", len(r.Warnings))
	}
	return b.String()
}

var methodSigRe = regexp.MustCompile(`^(\s*\.\.\s+py:method::\s+)(\w+)(\(.*)$`)

// Extract turns the entity tree into output files. Within a class, methods
// are reduced to qualified signatures in the overview and get their own
// entity when they carry documentation; nested classes move to their own
// entity; attributes and parameters without a description are dropped. The
// first entity with a given output name wins.
func Extract(root *Node) ([]Entity, Report) {
	x := &extractor{seen: map[string]bool{}}
	for _, n := range root.Children {
		switch n.Token.Directive {
		case DirClass:
			x.class(n)
		case DirFunction:
			x.function(n)
		}
	}
	return x.entities, x.report
}

type extractor struct {
	entities []Entity
	report   Report
	seen     map[string]bool
}

// claim reserves an output name, recording a duplicate when it is taken.
func (x *extractor) claim(name string) bool {
	if x.seen[name] {
		x.report.Duplicates++
		x.report.Skipped = append(x.report.Skipped, name)
		return false
	}
	x.seen[name] = true
	return true
}

func (x *extractor) function(n *Node) {
	name := n.Token.Name
	if !x.claim(name) {
		return
	}
	x.entities = append(x.entities, Entity{Name: name, Kind: EntityFunction, Lines: n.Lines()})
	x.report.Functions++
}

func (x *extractor) class(n *Node) {
	cls := n.Token.Name
	if !x.claim(cls) {
		return
	}

	overview := []string{n.Token.Text}
	var (
		methods []Entity
		nested  []*Node
	)
	for _, c := range n.Children {
		t := c.Token
		switch {
		case isClass(t):
			nested = append(nested, c)
		case t.Kind == KindDirective && t.Directive == DirMethod && t.Name != "":
			sig := qualifySignature(t.Text, cls)
			overview = append(overview, sig)
			body := collect(c.Children, &nested)
			if !shouldCreateMethod(body) {
				continue
			}
			lines := make([]string, 0, len(body)+1)
			lines = append(lines, sig)
			for _, bt := range body {
				lines = append(lines, bt.Text)
			}
			methods = append(methods, Entity{Name: cls + "." + t.Name, Kind: EntityMethod, Parent: cls, Lines: lines})
		case describable(t) && !hasDescription(c):
			// dropped with its metadata
		default:
			for _, ct := range collect([]*Node{c}, &nested) {
				overview = append(overview, ct.Text)
			}
		}
	}

	x.entities = append(x.entities, Entity{Name: cls, Kind: EntityClass, Lines: overview})
	x.report.Classes++

	for _, m := range methods {
		if x.claim(m.Name) {
			x.entities = append(x.entities, m)
			x.report.Methods++
		}
	}
	for _, nc := range nested {
		if nc.Token.Name == "" {
			continue
		}
		name := cls + "." + nc.Token.Name
		if !x.claim(name) {
			continue
		}
		x.entities = append(x.entities, Entity{Name: name, Kind: EntityNestedClass, Parent: cls, Lines: filtered(nc)})
		x.report.NestedClasses++
	}
}

func isClass(t Token) bool {
	return t.Kind == KindDirective && t.Directive == DirClass
}

// collect flattens nodes in input order, moving class directives to nested.
func collect(nodes []*Node, nested *[]*Node) []Token {
	var out []Token
	var visit func(n *Node)
	visit = func(n *Node) {
		if isClass(n.Token) {
			*nested = append(*nested, n)
			return
		}
		out = append(out, n.Token)
		for _, c := range n.Children {
			visit(c)
		}
	}
	for _, n := range nodes {
		visit(n)
	}
	return out
}

// filtered returns the lines of n without undescribed attributes and
// parameters, at any depth.
func filtered(n *Node) []string {
	var out []string
	var visit func(n *Node)
	visit = func(n *Node) {
		if describable(n.Token) && !hasDescription(n) {
			return
		}
		out = append(out, n.Token.Text)
		for _, c := range n.Children {
			visit(c)
		}
	}
	visit(n)
	return out
}

// describable tokens are kept only when they explain themselves. Properties
// are always kept.
func describable(t Token) bool {
	switch t.Kind {
	case KindDirective:
		return t.Directive == DirAttribute
	case KindField:
		return t.Directive == FieldParam
	}
	return false
}

// hasDescription reports text beyond :type:/:value: metadata. A parameter
// may also describe itself inline.
func hasDescription(n *Node) bool {
	if n.Token.Kind == KindField && n.Token.Payload != "" {
		return true
	}
	for _, t := range n.descendants() {
		if t.Kind == KindText {
			return true
		}
	}
	return false
}

func isReturnField(t Token) bool {
	if t.Kind != KindField {
		return false
	}
	switch t.Directive {
	case FieldReturn, FieldReturns, FieldYield, FieldYields:
		return true
	}
	return false
}

// shouldCreateMethod holds when the body has text before its return field,
// or a return field that is described inline or by the text after it.
func shouldCreateMethod(body []Token) bool {
	for i, t := range body {
		switch {
		case t.Kind == KindBlank:
		case isReturnField(t):
			if t.Payload != "" {
				return true
			}
			for _, next := range body[i+1:] {
				switch next.Kind {
				case KindBlank:
					continue
				case KindText:
					return true
				}
				return false
			}
			return false
		case t.Kind == KindField:
		default:
			return true
		}
	}
	return false
}

// qualifySignature rewrites ".. py:method:: area(" as ".. py:method:: Wing.area(".
func qualifySignature(line, cls string) string {
	m := methodSigRe.FindStringSubmatch(line)
	if m == nil {
		return line
	}
	return m[1] + cls + "." + m[2] + m[3]
}

// Dedent removes the smallest indentation shared by the non-blank lines.
// Blank lines become empty.
func Dedent(lines []string) []string {
	indent := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if d := len(l) - len(strings.TrimLeft(l, " \t")); indent < 0 || d < indent {
			indent = d
		}
	}

	out := make([]string, len(lines))
	for i, l := range lines {
		switch {
		case strings.TrimSpace(l) == "":
			out[i] = ""
		case indent > 0 && strings.TrimSpace(l[:indent]) == "":
			out[i] = l[indent:]
		default:
			out[i] = l
		}
	}
	return out
}
