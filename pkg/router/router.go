package router

import (
	"fmt"
	"net/url"

	"github.com/multizone/pkg/logger"
	"github.com/multizone/pkg/rewrite"
)

// Decision is the outcome of resolving a request path
type Decision struct {
	Matched  bool
	Zone     string
	Index    int
	Rule     rewrite.Rule
	Internal bool
	// URL is the forward target for external decisions. For internal
	// decisions only Path, RawPath and RawQuery are set.
	URL *url.URL
}

// Router resolves request paths against an ordered, immutable rule table.
// It is safe for concurrent use.
type Router struct {
	table  rewrite.Table
	zones  []string
	logger *logger.Logger
}

// NewRouter creates a router from routes, in order. The table is validated
// once here and never changes afterwards.
func NewRouter(logger *logger.Logger, routes ...Route) (*Router, error) {
	r := &Router{
		table:  make(rewrite.Table, 0, len(routes)),
		zones:  make([]string, 0, len(routes)),
		logger: logger,
	}
	for _, route := range routes {
		r.table = append(r.table, route.Rule)
		r.zones = append(r.zones, route.Zone)
	}
	if err := r.table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rewrite table: %w", err)
	}
	for i, rule := range r.table {
		r.logger.Info("Added route %d for zone %s: %s", i, r.zones[i], rule)
	}
	return r, nil
}

// Table returns a copy of the rule table
func (r *Router) Table() rewrite.Table {
	out := make(rewrite.Table, len(r.table))
	copy(out, r.table)
	return out
}

// ResolveDestination matches an escaped request path and builds the forward
// target, carrying rawQuery over. An unmatched path yields a Decision with
// Matched false and no error.
func (r *Router) ResolveDestination(escapedPath, rawQuery string) (Decision, error) {
	m, ok := r.table.Match(escapedPath)
	if !ok {
		r.logger.Debug("No route matched path %s", escapedPath)
		return Decision{}, nil
	}

	target, err := url.Parse(m.Destination)
	if err != nil {
		return Decision{}, fmt.Errorf("route %d produced invalid destination %q: %w", m.Index, m.Destination, err)
	}
	target.RawQuery = mergeQuery(target.RawQuery, rawQuery)

	d := Decision{
		Matched:  true,
		Zone:     r.zones[m.Index],
		Index:    m.Index,
		Rule:     m.Rule,
		Internal: !m.Rule.Destination.External,
		URL:      target,
	}
	r.logger.Debug("Path %s matched route %d (%s) -> %s", escapedPath, m.Index, m.Rule.Source, target)
	return d, nil
}

func mergeQuery(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "&" + b
	}
}
