// Package instrumentmode holds the catalog of built-in instrument-mode
// profiles (spec.md §3). The catalog is shipped as an embedded YAML
// asset decoded with gopkg.in/yaml.v3 — the one concrete home this
// expansion gives the teacher repo's otherwise-unused YAML dependency
// (SPEC_FULL.md §6).
package instrumentmode

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/midigurdy/core/internal/state"
)

//go:embed profiles.yaml
var embeddedCatalog []byte

type profileDoc struct {
	Name              string `yaml:"name"`
	StringCount       int    `yaml:"string_count"`
	Mod1KeyMode       string `yaml:"mod1_key_mode"`
	Mod2KeyMode       string `yaml:"mod2_key_mode"`
	WrapPresets       bool   `yaml:"wrap_presets"`
	WrapGroups        bool   `yaml:"wrap_groups"`
	StringGroupByType bool   `yaml:"string_group_by_type"`
}

type catalogDoc struct {
	Profiles []profileDoc `yaml:"profiles"`
}

// Catalog is a named lookup table of instrument-mode profiles.
type Catalog struct {
	byName map[string]state.InstrumentModeProfile
	order  []string
}

// Load decodes the embedded catalog. It is exported as a function
// rather than a package-level var so callers decide when the (cheap,
// deterministic) decode happens, and so tests can call it freely.
func Load() (*Catalog, error) {
	var doc catalogDoc

	if err := yaml.Unmarshal(embeddedCatalog, &doc); err != nil {
		return nil, fmt.Errorf("instrumentmode: decode embedded catalog: %w", err)
	}

	c := &Catalog{byName: make(map[string]state.InstrumentModeProfile, len(doc.Profiles))}

	for _, p := range doc.Profiles {
		profile := state.InstrumentModeProfile{
			Name:              p.Name,
			StringCount:       p.StringCount,
			Mod1KeyMode:       state.ModKeyMode(p.Mod1KeyMode),
			Mod2KeyMode:       state.ModKeyMode(p.Mod2KeyMode),
			WrapPresets:       p.WrapPresets,
			WrapGroups:        p.WrapGroups,
			StringGroupByType: p.StringGroupByType,
		}
		c.byName[p.Name] = profile
		c.order = append(c.order, p.Name)
	}

	return c, nil
}

// Get returns the named profile, if known.
func (c *Catalog) Get(name string) (state.InstrumentModeProfile, bool) {
	p, ok := c.byName[name]
	return p, ok
}

// Names returns all known profile names in catalog order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.order...)
}
