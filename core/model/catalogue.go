package model

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// builtinTelescopes holds the profiles shipped with the planner.
var builtinTelescopes = map[string]TelescopeProfile{
	"WHT": {
		Name: "WHT", Mount: MountAltAz,
		LowestAlt: 12, HighestAlt: 89.5, VignettingAlt: 0, ZenithBand: 87,
	},
	"INT": {
		Name: "INT", Mount: MountEquatorialSplineEastWest,
		LowestAlt: 20, HighestAlt: 90, VignettingAlt: 25,
		EastLimit: []LimitPoint{{X: -30, MinAlt: 33}, {X: 0, MinAlt: 25}, {X: 40, MinAlt: 20}, {X: 90, MinAlt: 20}},
		WestLimit: []LimitPoint{{X: -30, MinAlt: 30}, {X: 0, MinAlt: 22}, {X: 40, MinAlt: 25}, {X: 90, MinAlt: 28}},
	},
	"NOT": {
		Name: "NOT", Mount: MountAltAz,
		LowestAlt: 6, HighestAlt: 89, ZenithBand: 88, VignettingAlt: 18,
		Limit: []LimitPoint{{X: 0, MinAlt: 6}, {X: 150, MinAlt: 6}, {X: 180, MinAlt: 15}, {X: 210, MinAlt: 6}, {X: 360, MinAlt: 6}},
	},
	"LT": {
		Name: "LT", Mount: MountAltAz,
		LowestAlt: 25, HighestAlt: 88, ZenithBand: 86,
	},
	"generic-altaz": {
		Name: "generic-altaz", Mount: MountAltAz,
		LowestAlt: 20, HighestAlt: 90,
	},
	"generic-equatorial": {
		Name: "generic-equatorial", Mount: MountEquatorialSimple,
		LowestAlt: 15, HighestAlt: 90,
		Limit: []LimitPoint{{X: -90, MinAlt: 30}, {X: -30, MinAlt: 20}, {X: 90, MinAlt: 15}},
	},
}

// Lookup returns a compiled copy of the named built-in telescope profile.
func Lookup(name string) (TelescopeProfile, error) {
	p, ok := builtinTelescopes[name]
	if !ok {
		for k, v := range builtinTelescopes {
			if strings.EqualFold(k, name) {
				p, ok = v, true
				break
			}
		}
	}
	if !ok {
		return TelescopeProfile{}, fmt.Errorf("%w: %s", ErrUnknownTelescope, name)
	}
	if err := p.Compile(); err != nil {
		return TelescopeProfile{}, err
	}
	return p, nil
}

// TelescopeNames lists the built-in telescope names in sorted order.
func TelescopeNames() []string {
	names := make([]string, 0, len(builtinTelescopes))
	for k := range builtinTelescopes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// DecodeCatalogue reads a YAML list of telescope profiles and compiles each
// of them.
func DecodeCatalogue(r io.Reader) (map[string]TelescopeProfile, error) {
	var list []TelescopeProfile
	if err := yaml.NewDecoder(r).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode catalogue: %w", err)
	}
	out := make(map[string]TelescopeProfile, len(list))
	for _, p := range list {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: profile without name", ErrInvalidProfile)
		}
		if err := p.Compile(); err != nil {
			return nil, fmt.Errorf("telescope %s: %w", p.Name, err)
		}
		out[p.Name] = p
	}
	return out, nil
}
