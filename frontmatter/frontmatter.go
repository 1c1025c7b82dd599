// Package frontmatter splits content documents into a metadata block and a
// Markdown body, and renders metadata back into a front-matter block.
package frontmatter

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

// Delimiter is the sentinel line that opens and closes a YAML block.
const Delimiter = "---"

// yamlFormat decodes blocks as YAML 1.2, so unquoted words such as no, on
// and y stay strings. The library default follows YAML 1.1 and turns them
// into booleans.
var yamlFormat = frontmatter.NewFormat(Delimiter, Delimiter, yaml.Unmarshal)

// Document is the result of splitting a source file.
type Document struct {
	Fields map[string]any
	Body   string
	// Err is set when a metadata block was present but could not be decoded.
	// Fields is empty in that case and Body holds the text after the block.
	Err error
}

// Parse splits src into its metadata block and body. It never fails: a
// document without a block yields empty Fields and the whole text as Body,
// and a malformed block yields empty Fields with Err set.
func Parse(src []byte) Document {
	var raw map[string]any
	body, err := frontmatter.Parse(bytes.NewReader(src), &raw, yamlFormat)
	if err != nil {
		return Document{
			Fields: map[string]any{},
			Body:   trimLeadingNewlines(stripBlock(string(src))),
			Err:    fmt.Errorf("parse frontmatter: %w", err),
		}
	}
	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		fields[k] = normalize(v)
	}
	return Document{
		Fields: fields,
		Body:   trimLeadingNewlines(string(body)),
	}
}

// HasBlock reports whether text opens with a front-matter delimiter line.
func HasBlock(text string) bool {
	line, _, _ := strings.Cut(strings.TrimPrefix(text, "\ufeff"), "\n")
	return strings.TrimSpace(line) == Delimiter
}

// stripBlock drops a leading delimited block when one can be located by
// line scanning alone. Used when the block itself failed to decode.
func stripBlock(text string) string {
	if !HasBlock(text) {
		return text
	}
	lines := strings.SplitAfter(text, "\n")
	offset := len(lines[0])
	for _, line := range lines[1:] {
		offset += len(line)
		if strings.TrimSpace(line) == Delimiter {
			return text[offset:]
		}
	}
	return text
}

func trimLeadingNewlines(s string) string {
	return strings.TrimLeft(s, "\r\n")
}

// normalize converts YAML-decoded values into JSON-friendly shapes:
// map[interface{}]interface{} becomes map[string]any, recursively.
func normalize(v any) any {
	switch t := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}
