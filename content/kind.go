package content

import (
	"errors"
	"fmt"
	"strings"
)

// Kind selects one of the four content categories.
type Kind string

const (
	KindPost     Kind = "post"
	KindEvent    Kind = "event"
	KindCreative Kind = "creative"
	KindTask     Kind = "task"
)

// ErrUnknownKind is returned by ParseKind for unrecognized names.
var ErrUnknownKind = errors.New("unknown content kind")

var kindDirs = map[Kind]string{
	KindPost:     "posts",
	KindEvent:    "events",
	KindCreative: "creative",
	KindTask:     "tasks",
}

// Kinds returns every kind in display order.
func Kinds() []Kind {
	return []Kind{KindPost, KindEvent, KindCreative, KindTask}
}

// Dir returns the storage directory name for k.
func (k Kind) Dir() string {
	return kindDirs[k]
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := kindDirs[k]
	return ok
}

// ParseKind accepts a kind name or its directory name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k, dir := range kindDirs {
		if name == string(k) || name == dir {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// KindForCategory maps an editor category to the kind whose directory a
// document is saved into. Anything unrecognized is a post.
func KindForCategory(category string) Kind {
	switch strings.TrimSpace(category) {
	case "Events":
		return KindEvent
	case "Creative":
		return KindCreative
	case "Tasks":
		return KindTask
	default:
		return KindPost
	}
}
