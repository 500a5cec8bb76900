package zone

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
)

// Zone is an independently deployed application surfaced under /{Name}.
type Zone struct {
	Name    string
	BaseURL string
}

// Policy selects how a zone's base URL is resolved.
type Policy string

const (
	// PolicyEnv reads candidate environment variables and falls back to a default.
	PolicyEnv Policy = "env"
	// PolicyStatic uses a fixed URL and ignores the environment.
	PolicyStatic Policy = "static"
)

// Destination describes where a zone's base URL comes from.
type Destination struct {
	Policy     Policy
	Candidates []string
	Default    string
}

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// ValidateName reports whether name can be used as a single path segment.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("invalid zone name %q: must be a single lowercase path segment", name)
	}
	return nil
}

// ValidateBaseURL reports whether raw is an absolute http(s) URL with a host.
func ValidateBaseURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid base URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid base URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid base URL %q: missing host", raw)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("invalid base URL %q: query and fragment are not allowed", raw)
	}
	return nil
}

// Env looks up a variable, reporting whether it was set.
type Env func(key string) (string, bool)

// OSEnv reads the process environment.
func OSEnv() Env {
	return os.LookupEnv
}

// MapEnv serves lookups from a fixed map.
func MapEnv(m map[string]string) Env {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

// Resolver derives zone base URLs from an injected environment.
type Resolver struct {
	env Env
}

// NewResolver creates a resolver reading from env. A nil env reads nothing.
func NewResolver(env Env) *Resolver {
	if env == nil {
		env = MapEnv(nil)
	}
	return &Resolver{env: env}
}

// Resolve returns the first candidate variable holding a valid absolute URL,
// or fallback when none does. The result never ends in a slash.
func (r *Resolver) Resolve(candidates []string, fallback string) string {
	for _, name := range candidates {
		v, ok := r.env(name)
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		if v == "" || ValidateBaseURL(v) != nil {
			continue
		}
		return trimSlash(v)
	}
	return trimSlash(strings.TrimSpace(fallback))
}

// ResolveZone builds the immutable Zone for name from its destination.
func (r *Resolver) ResolveZone(name string, dest Destination) Zone {
	var base string
	switch dest.Policy {
	case PolicyStatic:
		base = trimSlash(strings.TrimSpace(dest.Default))
	default:
		base = r.Resolve(dest.Candidates, dest.Default)
	}
	return Zone{Name: name, BaseURL: base}
}

func trimSlash(s string) string {
	return strings.TrimRight(s, "/")
}
