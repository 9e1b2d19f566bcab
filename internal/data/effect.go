package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EffectEntry lists the cosmetic effects a resolution kind requests on its
// terminal step. Paths are opaque to the core and only forwarded to the host.
type EffectEntry struct {
	Kind            string   `yaml:"kind"`
	DeathEffect     string   `yaml:"death_effect"`     // spawned on living targets
	DustEffect      string   `yaml:"dust_effect"`      // spawned on non-living targets
	ReactionEffects []string `yaml:"reaction_effects"` // initiator moan/laugh set, one picked on a successful roll
	EffectScale     float64  `yaml:"effect_scale"`     // multiplied by target scale
	TransferScale   float64  `yaml:"transfer_scale"`   // loot scale multiplier for the inventory transfer
	Silent          bool     `yaml:"silent"`           // mute death screams
}

// EffectTable provides lookup of resolution effects by kind.
type EffectTable struct {
	entries map[string]*EffectEntry
}

// LoadEffectTable loads effect_list.yaml.
func LoadEffectTable(path string) (*EffectTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read effect list: %w", err)
	}
	return ParseEffectTable(raw)
}

// ParseEffectTable parses effect_list.yaml content.
func ParseEffectTable(raw []byte) (*EffectTable, error) {
	var entries []EffectEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse effect list: %w", err)
	}
	t := &EffectTable{
		entries: make(map[string]*EffectEntry, len(entries)),
	}
	for i := range entries {
		e := &entries[i]
		if e.Kind == "" {
			return nil, fmt.Errorf("effect list entry %d: missing kind", i)
		}
		if e.EffectScale == 0 {
			e.EffectScale = 1
		}
		if e.TransferScale == 0 {
			e.TransferScale = 1
		}
		t.entries[e.Kind] = e
	}
	return t, nil
}

// Get returns the effects for kind, or nil if none.
func (t *EffectTable) Get(kind string) *EffectEntry {
	return t.entries[kind]
}

// Count returns the total number of effect sets loaded.
func (t *EffectTable) Count() int {
	return len(t.entries)
}
