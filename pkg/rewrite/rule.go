package rewrite

import (
	"fmt"
	"strings"
)

// Rule maps a source path pattern to a destination template.
type Rule struct {
	Source      Pattern
	Destination Template
}

// NewRule parses source and destination and checks that every capture the
// destination references is defined by the source.
func NewRule(source, destination string) (Rule, error) {
	src, err := ParsePattern(source)
	if err != nil {
		return Rule{}, err
	}
	dst, err := ParseTemplate(destination)
	if err != nil {
		return Rule{}, err
	}
	r := Rule{Source: src, Destination: dst}
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// Validate checks the capture invariant.
func (r Rule) Validate() error {
	for _, name := range r.Destination.Captures() {
		if name != r.Source.Capture {
			return fmt.Errorf("%w: %q in %s -> %s", ErrCaptureMismatch, name, r.Source, r.Destination)
		}
	}
	return nil
}

// Apply returns the expanded destination when path matches the source.
func (r Rule) Apply(path string) (string, bool) {
	captured, ok := r.Source.Match(path)
	if !ok {
		return "", false
	}
	values := map[string]string{}
	if r.Source.Capture != "" {
		values[r.Source.Capture] = strings.Join(captured, "/")
	}
	return r.Destination.Expand(values), true
}

func (r Rule) String() string {
	return r.Source.String() + " -> " + r.Destination.String()
}

// Table is an ordered list of rules; the first match wins.
type Table []Rule

// Match is the outcome of matching a path against a table.
type Match struct {
	Index       int
	Rule        Rule
	Destination string
}

// Match returns the first rule matching path.
func (t Table) Match(path string) (Match, bool) {
	for i, r := range t {
		if dest, ok := r.Apply(path); ok {
			return Match{Index: i, Rule: r, Destination: dest}, true
		}
	}
	return Match{}, false
}

// Validate checks every rule's capture invariant and that no rule is made
// unreachable by an earlier one. A more specific rule may precede a more
// general one; order settles the paths they share.
func (t Table) Validate() error {
	for i, r := range t {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
		for j := i + 1; j < len(t); j++ {
			if r.Source.covers(t[j].Source) {
				return fmt.Errorf("%w: rule %d (%s) and rule %d (%s)", ErrShadowed, i, r.Source, j, t[j].Source)
			}
		}
	}
	return nil
}
