package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// InteractionEntry tunes one holder/held interaction kind (grab, hug).
type InteractionEntry struct {
	Kind             string  `yaml:"kind"`
	AttachNode       string  `yaml:"attach_node"`        // skeleton node the held entity is pinned to
	CrawlNode        string  `yaml:"crawl_node"`         // alternate node, empty = same as attach_node
	MinSizeRatio     float64 `yaml:"min_size_ratio"`     // holder/held scale below this cancels the interaction
	MaxSizeRatio     float64 `yaml:"max_size_ratio"`     // size steal stops at this ratio (hug)
	MinHolderStamina float64 `yaml:"min_holder_stamina"` // holder too tired below this
	DrainRate        float64 `yaml:"drain_rate"`         // base stamina drain per second, fed to the drain script
	HandoffHealth    float64 `yaml:"handoff_health"`     // held health at or below this hands off to resolution (0 = off)
	HandoffScale     float64 `yaml:"handoff_scale"`      // held scale at or below this hands off to resolution (0 = off)
	Handoff          string  `yaml:"handoff"`            // resolution kind receiving the handoff
	HostileOnStart   bool    `yaml:"hostile_on_start"`
	Note             string  `yaml:"note"`
}

// InteractionTable provides lookup of interaction tuning by kind.
type InteractionTable struct {
	entries map[string]*InteractionEntry
}

// LoadInteractionTable loads interaction_list.yaml.
func LoadInteractionTable(path string) (*InteractionTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read interaction list: %w", err)
	}
	return ParseInteractionTable(raw)
}

// ParseInteractionTable parses interaction_list.yaml content.
func ParseInteractionTable(raw []byte) (*InteractionTable, error) {
	var entries []InteractionEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse interaction list: %w", err)
	}
	t := &InteractionTable{
		entries: make(map[string]*InteractionEntry, len(entries)),
	}
	for i := range entries {
		e := &entries[i]
		if e.Kind == "" {
			return nil, fmt.Errorf("interaction list entry %d: missing kind", i)
		}
		if e.AttachNode == "" {
			return nil, fmt.Errorf("interaction %s: missing attach_node", e.Kind)
		}
		if e.CrawlNode == "" {
			e.CrawlNode = e.AttachNode
		}
		t.entries[e.Kind] = e
	}
	return t, nil
}

// Get returns the tuning for kind, or nil if none.
func (t *InteractionTable) Get(kind string) *InteractionEntry {
	return t.entries[kind]
}

// Count returns the total number of interaction kinds loaded.
func (t *InteractionTable) Count() int {
	return len(t.entries)
}
