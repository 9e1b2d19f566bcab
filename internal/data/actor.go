package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ActorTemplate holds static data for a sandbox actor type loaded from YAML.
type ActorTemplate struct {
	Name      string                `yaml:"name"`
	Scale     float64               `yaml:"scale"`
	Health    float64               `yaml:"health"`
	Stamina   float64               `yaml:"stamina"`
	Living    bool                  `yaml:"living"`
	Essential bool                  `yaml:"essential"`
	Flying    bool                  `yaml:"flying"`
	Ethereal  bool                  `yaml:"ethereal"`
	Items     int                   `yaml:"items"`
	Nodes     map[string][3]float64 `yaml:"nodes"` // node name → offset from root at scale 1
}

// SpawnEntry defines how many actors of a template to place.
type SpawnEntry struct {
	Name    string  `yaml:"name"`
	Count   int     `yaml:"count"`
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
	Z       float64 `yaml:"z"`
	RandomX float64 `yaml:"randomx"`
	RandomY float64 `yaml:"randomy"`
}

type actorListFile struct {
	Actors []ActorTemplate `yaml:"actors"`
	Spawns []SpawnEntry    `yaml:"spawns"`
}

// ActorTable holds sandbox actor templates indexed by name, plus the spawn list.
type ActorTable struct {
	templates map[string]*ActorTemplate
	spawns    []SpawnEntry
}

// LoadActorTable loads actor templates and spawns from a YAML file.
func LoadActorTable(path string) (*ActorTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read actor_list: %w", err)
	}
	return ParseActorTable(raw)
}

// ParseActorTable parses actor_list YAML.
func ParseActorTable(raw []byte) (*ActorTable, error) {
	var f actorListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse actor_list: %w", err)
	}
	t := &ActorTable{
		templates: make(map[string]*ActorTemplate, len(f.Actors)),
		spawns:    f.Spawns,
	}
	for i := range f.Actors {
		a := &f.Actors[i]
		if a.Scale <= 0 {
			a.Scale = 1
		}
		t.templates[a.Name] = a
	}
	for _, s := range f.Spawns {
		if t.templates[s.Name] == nil {
			return nil, fmt.Errorf("actor_list: spawn references unknown actor %q", s.Name)
		}
	}
	return t, nil
}

// Get returns the template by name, or nil if not found.
func (t *ActorTable) Get(name string) *ActorTemplate {
	return t.templates[name]
}

// Names returns template names in sorted order.
func (t *ActorTable) Names() []string {
	names := make([]string, 0, len(t.templates))
	for n := range t.templates {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Spawns returns the spawn list.
func (t *ActorTable) Spawns() []SpawnEntry { return t.spawns }

// Count returns the total number of templates loaded.
func (t *ActorTable) Count() int {
	return len(t.templates)
}
