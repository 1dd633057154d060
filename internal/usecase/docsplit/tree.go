package docsplit

import "fmt"

// Node is a token with the tokens nested under it.
type Node struct {
	Token    Token
	Children []*Node
}

// Warning reports an input line that could not be used.
type Warning struct {
	Line    int
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s", w.Line, w.Message)
}

// BuildTree nests tokens by indentation. The root's children are the
// top-level entities: column-0 class and function directives. Directives
// and fields open nodes; text closes deeper nodes and attaches to the
// deepest open node with a smaller depth; blank lines attach to the current
// node. Lines before the first entity, and the lines of an entity whose
// name cannot be parsed, are dropped.
func BuildTree(tokens []Token) (*Node, []Warning) {
	root := &Node{Token: Token{Depth: -1}}
	var (
		stack    []*Node
		warnings []Warning
	)

	for _, tok := range tokens {
		if isEntityStart(tok) {
			if tok.Name == "" {
				warnings = append(warnings, Warning{
					Line:    tok.Line,
					Message: fmt.Sprintf("could not extract %s name", tok.Directive),
				})
				stack = nil
				continue
			}
			entity := &Node{Token: tok}
			root.Children = append(root.Children, entity)
			stack = []*Node{entity}
			continue
		}
		if len(stack) == 0 {
			continue
		}

		n := &Node{Token: tok}
		if tok.Kind == KindBlank {
			top := stack[len(stack)-1]
			top.Children = append(top.Children, n)
			continue
		}

		// The entity itself is never closed by its own lines.
		for len(stack) > 1 && stack[len(stack)-1].Token.Depth >= tok.Depth {
			stack = stack[:len(stack)-1]
		}
		top := stack[len(stack)-1]
		top.Children = append(top.Children, n)
		if tok.Kind == KindDirective || tok.Kind == KindField {
			stack = append(stack, n)
		}
	}
	return root, warnings
}

func isEntityStart(tok Token) bool {
	return tok.Kind == KindDirective && tok.Depth == 0 &&
		(tok.Directive == DirClass || tok.Directive == DirFunction)
}

// Lines returns the raw lines of n and its descendants in input order.
func (n *Node) Lines() []string {
	var out []string
	n.walk(func(t Token) { out = append(out, t.Text) })
	return out
}

func (n *Node) walk(fn func(Token)) {
	fn(n.Token)
	for _, c := range n.Children {
		c.walk(fn)
	}
}

// descendants returns the tokens under n in input order, excluding n.
func (n *Node) descendants() []Token {
	var out []Token
	for _, c := range n.Children {
		c.walk(func(t Token) { out = append(out, t) })
	}
	return out
}
