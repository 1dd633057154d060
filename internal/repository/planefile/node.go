package planefile

import (
	"bytes"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

func str(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

// num renders floats so they always resolve back as floats ("1.0", not "1").
func num(v float64) *yaml.Node {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEIN") {
		s += ".0"
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: s}
}

func floats(vs []float64) *yaml.Node {
	n := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, v := range vs {
		n.Content = append(n.Content, num(v))
	}
	return n
}

func strs(vs []string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, v := range vs {
		n.Content = append(n.Content, str(v))
	}
	return n
}

type mapping struct{ node *yaml.Node }

func newMapping() mapping {
	return mapping{node: &yaml.Node{Kind: yaml.MappingNode}}
}

func (m mapping) add(key string, value *yaml.Node, comment string) *yaml.Node {
	k := str(key)
	value.LineComment = comment
	m.node.Content = append(m.node.Content, k, value)
	return k
}

func encodeDocument(header string, root *yaml.Node) ([]byte, error) {
	doc := &yaml.Node{Kind: yaml.DocumentNode, HeadComment: header, Content: []*yaml.Node{root}}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
