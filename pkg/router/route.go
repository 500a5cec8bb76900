package router

import (
	"github.com/multizone/pkg/rewrite"
	"github.com/multizone/pkg/zone"
)

// Route is a rewrite rule tagged with the zone it serves
type Route struct {
	Zone string
	Rule rewrite.Rule
}

// ZoneRoutes builds the forwarding routes for zones, one rule triple per zone
func ZoneRoutes(zones ...zone.Zone) ([]Route, error) {
	table, err := rewrite.Build(zones...)
	if err != nil {
		return nil, err
	}
	routes := make([]Route, 0, len(table))
	for i, rule := range table {
		routes = append(routes, Route{Zone: zones[i/3].Name, Rule: rule})
	}
	return routes, nil
}

// AssetRoute builds the internal asset rewrite a zone applies to its own requests
func AssetRoute(zoneName, assetPrefix, assetRoot string) (Route, error) {
	rule, err := rewrite.AssetRule(assetPrefix, assetRoot)
	if err != nil {
		return Route{}, err
	}
	return Route{Zone: zoneName, Rule: rule}, nil
}
