package rewrite

import (
	"fmt"
	"strings"

	"github.com/multizone/pkg/zone"
)

// StaticSuffix is appended to a zone name to form its static asset prefix.
const StaticSuffix = "-static"

// captureAll is the capture name used by generated rules.
const captureAll = "path"

// ZoneRules returns the three forwarding rules for z, in order: the bare
// root alias, the deep path alias and the static asset alias.
func ZoneRules(z zone.Zone) Table {
	base := strings.TrimRight(z.BaseURL, "/")
	static := z.Name + StaticSuffix
	return Table{
		{
			Source:      Pattern{Segments: []string{z.Name}},
			Destination: Template{External: true, Parts: []templatePart{{Literal: base + "/"}}},
		},
		{
			Source: Pattern{Segments: []string{z.Name}, Capture: captureAll},
			Destination: Template{External: true, Parts: []templatePart{
				{Literal: base + "/"},
				{Capture: captureAll},
			}},
		},
		{
			Source: Pattern{Segments: []string{static}, Capture: captureAll},
			Destination: Template{External: true, Parts: []templatePart{
				{Literal: base + "/" + static + "/"},
				{Capture: captureAll},
			}},
		},
	}
}

// Build concatenates the rule triples of each zone, in zone order, and
// rejects tables whose rules could shadow each other.
func Build(zones ...zone.Zone) (Table, error) {
	table := make(Table, 0, 3*len(zones))
	for _, z := range zones {
		if err := zone.ValidateName(z.Name); err != nil {
			return nil, err
		}
		if err := zone.ValidateBaseURL(z.BaseURL); err != nil {
			return nil, fmt.Errorf("zone %s: %w", z.Name, err)
		}
		table = append(table, ZoneRules(z)...)
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// AssetRule maps assets requested under an external prefix back to the
// app's own asset root, e.g. /zone-one-static/_next/:path+ -> /_next/:path+.
func AssetRule(assetPrefix, assetRoot string) (Rule, error) {
	prefix := "/" + strings.Trim(assetPrefix, "/")
	root := strings.Trim(assetRoot, "/")
	if prefix == "/" || root == "" {
		return Rule{}, fmt.Errorf("%w: asset prefix and root are required", ErrInvalidPattern)
	}
	return NewRule(prefix+"/"+root+"/:"+captureAll+"+", "/"+root+"/:"+captureAll+"+")
}
