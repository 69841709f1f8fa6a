package reference

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse decodes a reference template from YAML or JSON. The document must be
// a sequence; items that are not mappings are skipped.
//
// yaml.Node is used instead of map decoding so that mapping keys keep their
// document order.
func Parse(data []byte) (Template, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse reference template: %w", err)
	}

	if doc.Kind == 0 {
		return Template{}, nil
	}

	root := resolve(&doc)
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return Template{}, nil
		}
		root = resolve(root.Content[0])
	}
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return Template{}, nil
	}
	if root.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("reference template must be a sequence of sections, got %s", kindName(root.Kind))
	}

	tmpl := make(Template, 0, len(root.Content))
	for _, item := range root.Content {
		item = resolve(item)
		if item.Kind != yaml.MappingNode {
			continue
		}
		tmpl = append(tmpl, Section{Entries: decodeMapping(item), text: nodeText(item)})
	}
	return tmpl, nil
}

// LoadTemplateFile reads and decodes a reference template file.
func LoadTemplateFile(path string) (Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference template %s: %w", path, err)
	}
	return Parse(data)
}

func decodeValue(n *yaml.Node) Value {
	n = resolve(n)
	switch n.Kind {
	case yaml.MappingNode:
		return decodeMapping(n)
	case yaml.SequenceNode:
		list := make(ListValue, 0, len(n.Content))
		for _, item := range n.Content {
			item = resolve(item)
			// Nested structures inside a list have no meaning for extraction.
			if item.Kind != yaml.ScalarNode {
				continue
			}
			list = append(list, item.Value)
		}
		return list
	default:
		return ScalarValue(n.Value)
	}
}

func decodeMapping(n *yaml.Node) MapValue {
	m := make(MapValue, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := resolve(n.Content[i])
		m = append(m, Entry{
			Key:   key.Value,
			Value: decodeValue(n.Content[i+1]),
		})
	}
	return m
}

// nodeText renders a section the way Section.Text does, but from the
// document itself so that mappings and lists nested inside lists are part of
// the text searched for section markers.
func nodeText(n *yaml.Node) string {
	var b strings.Builder
	writeNode(&b, n)
	return b.String()
}

func writeNode(b *strings.Builder, n *yaml.Node) {
	n = resolve(n)
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			b.WriteString(resolve(n.Content[i]).Value)
			b.WriteString(": ")
			writeNode(b, n.Content[i+1])
			b.WriteString("\n")
		}
	case yaml.SequenceNode:
		for i, item := range n.Content {
			if i > 0 {
				b.WriteString(", ")
			}
			if item = resolve(item); item.Kind == yaml.ScalarNode {
				b.WriteString(item.Value)
				continue
			}
			b.WriteString("[")
			writeNode(b, item)
			b.WriteString("]")
		}
	case yaml.ScalarNode:
		b.WriteString(n.Value)
	}
}

func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.SequenceNode:
		return "sequence"
	default:
		return "unknown node"
	}
}
