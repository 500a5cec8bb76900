package rewrite

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrInvalidPattern is returned for source patterns or destination
	// templates that cannot be parsed.
	ErrInvalidPattern = errors.New("invalid pattern")
	// ErrCaptureMismatch is returned when a destination references a capture
	// the source pattern does not define.
	ErrCaptureMismatch = errors.New("destination references unknown capture")
	// ErrShadowed is returned when an earlier rule matches every path a
	// later rule matches, leaving the later rule unreachable.
	ErrShadowed = errors.New("rule shadows a later rule")
)

var captureName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Pattern is a path template made of literal segments followed by an
// optional variadic capture that matches one or more segments.
type Pattern struct {
	Segments []string
	Capture  string
}

// ParsePattern parses the "/literal/:name+" syntax.
func ParsePattern(s string) (Pattern, error) {
	if !strings.HasPrefix(s, "/") {
		return Pattern{}, fmt.Errorf("%w: %q must start with /", ErrInvalidPattern, s)
	}
	var p Pattern
	if s == "/" {
		return p, nil
	}
	parts := strings.Split(s[1:], "/")
	for i, part := range parts {
		if part == "" {
			return Pattern{}, fmt.Errorf("%w: %q has an empty segment", ErrInvalidPattern, s)
		}
		if !strings.HasPrefix(part, ":") {
			p.Segments = append(p.Segments, part)
			continue
		}
		if i != len(parts)-1 {
			return Pattern{}, fmt.Errorf("%w: %q capture must be the last segment", ErrInvalidPattern, s)
		}
		name := strings.TrimSuffix(part[1:], "+")
		if name == part[1:] {
			return Pattern{}, fmt.Errorf("%w: %q capture must be variadic (:name+)", ErrInvalidPattern, s)
		}
		if !captureName.MatchString(name) {
			return Pattern{}, fmt.Errorf("%w: %q has invalid capture name %q", ErrInvalidPattern, s, name)
		}
		p.Capture = name
	}
	return p, nil
}

// String renders the pattern back into "/literal/:name+" syntax.
func (p Pattern) String() string {
	var b strings.Builder
	for _, seg := range p.Segments {
		b.WriteByte('/')
		b.WriteString(seg)
	}
	if p.Capture != "" {
		b.WriteString("/:")
		b.WriteString(p.Capture)
		b.WriteByte('+')
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}

// Match tests an escaped request path against the pattern and returns the
// captured segments. A single trailing slash is ignored for matching but
// kept on the capture as a final empty segment.
func (p Pattern) Match(path string) ([]string, bool) {
	if !strings.HasPrefix(path, "/") {
		return nil, false
	}
	slash := false
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
		slash = true
	}
	var parts []string
	if path != "/" {
		parts = strings.Split(path[1:], "/")
	}

	if len(parts) < len(p.Segments) {
		return nil, false
	}
	for i, seg := range p.Segments {
		if parts[i] != seg {
			return nil, false
		}
	}

	rest := parts[len(p.Segments):]
	if p.Capture == "" {
		return nil, len(rest) == 0
	}
	if len(rest) == 0 || strings.Join(rest, "") == "" {
		return nil, false
	}
	if slash {
		rest = append(rest, "")
	}
	return rest, true
}

// covers reports whether every path matching q also matches p, so that q
// placed after p could never be selected.
func (p Pattern) covers(q Pattern) bool {
	if len(p.Segments) > len(q.Segments) {
		return false
	}
	for i, seg := range p.Segments {
		if q.Segments[i] != seg {
			return false
		}
	}
	if len(p.Segments) == len(q.Segments) {
		return (p.Capture == "") == (q.Capture == "")
	}
	// q's extra literal segments can only be taken by a capture on p.
	return p.Capture != ""
}
