package enrich

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ExtractJSON returns the first balanced object (open == '{') or array
// (open == '[') in raw. Brackets inside JSON strings are ignored.
func ExtractJSON(raw string, open byte) (string, bool) {
	var closer byte
	switch open {
	case '{':
		closer = '}'
	case '[':
		closer = ']'
	default:
		return "", false
	}

	for start := strings.IndexByte(raw, open); start >= 0; {
		if end, ok := balancedEnd(raw[start:], open, closer); ok {
			return raw[start : start+end+1], true
		}
		next := strings.IndexByte(raw[start+1:], open)
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// balancedEnd returns the index of the bracket closing s[0].
func balancedEnd(s string, open, closer byte) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func mustCompile(name, src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(name+".json", strings.NewReader(src)); err != nil {
		panic(fmt.Sprintf("enrich: schema %s: %v", name, err))
	}
	schema, err := compiler.Compile(name + ".json")
	if err != nil {
		panic(fmt.Sprintf("enrich: schema %s: %v", name, err))
	}
	return schema
}

// decodeReply extracts the first JSON value opened by open from raw, checks
// it against schema and decodes it into target. It reports false on any
// failure so callers can fall back.
func decodeReply(raw string, open byte, schema *jsonschema.Schema, target any) bool {
	fragment, ok := ExtractJSON(raw, open)
	if !ok {
		return false
	}
	dec := json.NewDecoder(strings.NewReader(fragment))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return false
	}
	if err := schema.Validate(doc); err != nil {
		return false
	}
	return json.Unmarshal([]byte(fragment), target) == nil
}
