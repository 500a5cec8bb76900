package rewrite

import (
	"fmt"
	"regexp"
	"strings"
)

var captureRef = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)\+`)

type templatePart struct {
	Literal string
	Capture string
}

// Template is a destination URL or path with capture references.
type Template struct {
	Parts    []templatePart
	External bool
}

// ParseTemplate parses a destination such as "https://z1.example/:path+" or
// "/_next/:path+". Absolute http(s) URLs are external; anything else must be
// a local path starting with "/".
func ParseTemplate(s string) (Template, error) {
	var t Template
	switch {
	case strings.HasPrefix(s, "http://"), strings.HasPrefix(s, "https://"):
		t.External = true
	case strings.HasPrefix(s, "/"):
	default:
		return Template{}, fmt.Errorf("%w: destination %q must be an absolute URL or start with /", ErrInvalidPattern, s)
	}

	last := 0
	for _, m := range captureRef.FindAllStringSubmatchIndex(s, -1) {
		if m[0] > last {
			t.Parts = append(t.Parts, templatePart{Literal: s[last:m[0]]})
		}
		t.Parts = append(t.Parts, templatePart{Capture: s[m[2]:m[3]]})
		last = m[1]
	}
	if last < len(s) {
		t.Parts = append(t.Parts, templatePart{Literal: s[last:]})
	}
	return t, nil
}

// Captures lists the capture names the template references, in order.
func (t Template) Captures() []string {
	var names []string
	for _, p := range t.Parts {
		if p.Capture != "" {
			names = append(names, p.Capture)
		}
	}
	return names
}

// Expand substitutes captured values into the template.
func (t Template) Expand(values map[string]string) string {
	var b strings.Builder
	for _, p := range t.Parts {
		if p.Capture != "" {
			b.WriteString(values[p.Capture])
			continue
		}
		b.WriteString(p.Literal)
	}
	return b.String()
}

// String renders the template in ":name+" syntax.
func (t Template) String() string {
	var b strings.Builder
	for _, p := range t.Parts {
		if p.Capture != "" {
			b.WriteString(":" + p.Capture + "+")
			continue
		}
		b.WriteString(p.Literal)
	}
	return b.String()
}
