package content

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// value wraps a decoded front-matter value with lenient accessors. Hand
// written documents mix quoted and unquoted scalars, so every accessor
// accepts the shapes a YAML decoder can produce for it.
type value struct {
	raw any
}

func (v value) empty() bool {
	switch t := v.raw.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}

func (v value) String() string {
	switch t := v.raw.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format(dateLayout)
		}
		return t.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// Bool reports the boolean reading of v, or def when v is not a boolean.
func (v value) Bool(def bool) bool {
	switch t := v.raw.(type) {
	case bool:
		return t
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			return b
		}
	}
	return def
}

func (v value) Int() (int, bool) {
	switch t := v.raw.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case uint64:
		return int(t), true
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(t), "%"))
		return n, err == nil
	}
	return 0, false
}

// Strings accepts a sequence or a comma separated string.
func (v value) Strings() []string {
	var out []string
	switch t := v.raw.(type) {
	case []any:
		for _, item := range t {
			if s := strings.TrimSpace(value{item}.String()); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case string:
		out = SplitList(t)
	}
	return out
}

// SplitList splits a comma separated list, dropping blank entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// decode converts v into a typed target by way of JSON.
func (v value) decode(target any) error {
	data, err := json.Marshal(jsonSafe(v.raw))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

// decodeList decodes each element of a sequence independently so one
// malformed entry does not discard its siblings.
func decodeList[T any](v value) []T {
	items, ok := v.raw.([]any)
	if !ok {
		if v.empty() {
			return nil
		}
		items = []any{v.raw}
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		var t T
		if err := (value{item}).decode(&t); err == nil {
			out = append(out, t)
		}
	}
	return out
}

// jsonSafe rewrites values encoding/json cannot represent as the field
// types expect them, such as timestamps inside nested maps.
func jsonSafe(v any) any {
	switch t := v.(type) {
	case time.Time:
		return value{t}.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = jsonSafe(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = jsonSafe(val)
		}
		return out
	default:
		return v
	}
}

// TagList decodes from either a JSON array of strings or a comma separated
// string, the two shapes editors send tags in.
type TagList []string

func (t *TagList) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = SplitList(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("tags: want a string or a list of strings")
	}
	*t = value{list}.Strings()
	return nil
}
