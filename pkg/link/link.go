// Package link models the edges between stored documents. A StorageLink is a
// concrete, tagged edge attached to a stored object; a QueryLink is a
// traversal pattern whose components may be wildcards.
package link

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// WildcardToken is the wire form of a wildcard component.
const WildcardToken = "_"

const delimiter = ","

// ErrLinkShape is matched by every ShapeError.
var ErrLinkShape = errors.New("link: invalid shape")

// ShapeError reports an invalid link component.
type ShapeError struct {
	Component string
	Reason    string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("link: invalid %s: %s", e.Component, e.Reason)
}

func (e *ShapeError) Is(target error) bool {
	return target == ErrLinkShape
}

// Component is either a concrete trimmed value or the wildcard.
type Component struct {
	value    string
	wildcard bool
}

// Concrete wraps a value. The value is trimmed; validation happens in the
// link constructors.
func Concrete(v string) Component {
	return Component{value: strings.TrimSpace(v)}
}

// Wildcard matches any value.
func Wildcard() Component {
	return Component{wildcard: true}
}

// IsWildcard reports whether c matches any value.
func (c Component) IsWildcard() bool { return c.wildcard }

// Value returns the concrete value; ok is false for the wildcard.
func (c Component) Value() (string, bool) {
	if c.wildcard {
		return "", false
	}
	return c.value, true
}

// Matches reports whether v satisfies c.
func (c Component) Matches(v string) bool {
	return c.wildcard || c.value == v
}

func (c Component) String() string {
	if c.wildcard {
		return WildcardToken
	}
	return c.value
}

// escape renders c as one percent-encoded component. A concrete value equal
// to the wildcard token is fully encoded so the two never collide.
func (c Component) escape() string {
	if c.wildcard {
		return WildcardToken
	}
	if c.value == WildcardToken {
		return "%5F"
	}
	return url.PathEscape(c.value)
}

func parseComponent(raw string) (Component, error) {
	if raw == WildcardToken {
		return Wildcard(), nil
	}
	v, err := url.PathUnescape(raw)
	if err != nil {
		return Component{}, err
	}
	return Component{value: v}, nil
}

func requireConcrete(name string, c Component) error {
	if c.wildcard {
		return nil
	}
	if c.value == "" {
		return &ShapeError{Component: name, Reason: "blank value"}
	}
	return nil
}

func joinTransport(parts ...Component) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = p.escape()
	}
	return strings.Join(escaped, delimiter)
}

func splitTransport(segment string) ([]Component, error) {
	raw := strings.Split(segment, delimiter)
	if len(raw) != 3 {
		return nil, &ShapeError{Component: "segment", Reason: fmt.Sprintf("expected 3 components, got %d", len(raw))}
	}
	out := make([]Component, len(raw))
	for i, r := range raw {
		c, err := parseComponent(r)
		if err != nil {
			return nil, &ShapeError{Component: "segment", Reason: err.Error()}
		}
		out[i] = c
	}
	return out, nil
}
