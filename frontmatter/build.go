package frontmatter

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Field is a single ordered front-matter entry.
type Field struct {
	Key   string
	Value any
}

// Fields preserves the order keys are written in.
type Fields []Field

// Add appends a key/value pair.
func (f *Fields) Add(key string, value any) {
	*f = append(*f, Field{Key: key, Value: value})
}

// FromMap orders the entries of m: the keys named in first come first, in
// that order, and the rest follow sorted. Keys absent from m are skipped.
func FromMap(m map[string]any, first ...string) Fields {
	fields := make(Fields, 0, len(m))
	placed := make(map[string]bool, len(first))
	for _, k := range first {
		if v, ok := m[k]; ok && !placed[k] {
			fields.Add(k, v)
			placed[k] = true
		}
	}
	rest := make([]string, 0, len(m))
	for k := range m {
		if !placed[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		fields.Add(k, m[k])
	}
	return fields
}

// Build renders fields as a delimited YAML block. Strings are double quoted
// and string lists use flow style, e.g. tags: ["go", "web"].
func Build(fields Fields) ([]byte, error) {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range fields {
		val, err := valueNode(f.Value)
		if err != nil {
			return nil, fmt.Errorf("frontmatter field %q: %w", f.Key, err)
		}
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Key},
			val,
		)
	}

	var buf bytes.Buffer
	buf.WriteString(Delimiter + "\n")
	if len(fields) > 0 {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("encode frontmatter: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode frontmatter: %w", err)
		}
	}
	buf.WriteString(Delimiter + "\n")
	return buf.Bytes(), nil
}

// Compose prepends a block built from fields to body, separated by a blank line.
func Compose(fields Fields, body string) ([]byte, error) {
	block, err := Build(fields)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Write(block)
	buf.WriteString("\n")
	buf.WriteString(body)
	if len(body) > 0 && body[len(body)-1] != '\n' {
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

func valueNode(v any) (*yaml.Node, error) {
	switch t := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case string:
		return quoted(t), nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(t)}, nil
	case int:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(t)}, nil
	case int64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(t, 10)}, nil
	case float64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(t, 'f', -1, 64)}, nil
	case time.Time:
		return quoted(t.Format(time.RFC3339)), nil
	case []string:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, s := range t {
			seq.Content = append(seq.Content, quoted(s))
		}
		return seq, nil
	case []any:
		if allScalars(t) {
			seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
			for _, item := range t {
				n, err := valueNode(item)
				if err != nil {
					return nil, err
				}
				seq.Content = append(seq.Content, n)
			}
			return seq, nil
		}
	}
	n := &yaml.Node{}
	if err := n.Encode(v); err != nil {
		return nil, err
	}
	return n, nil
}

func quoted(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s, Style: yaml.DoubleQuotedStyle}
}

func allScalars(items []any) bool {
	for _, item := range items {
		switch item.(type) {
		case string, bool, int, int64, float64, nil:
		default:
			return false
		}
	}
	return true
}
