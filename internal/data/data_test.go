package data

import "testing"

const interactionYAML = `
- kind: grab
  attach_node: AnimObjectA
  min_size_ratio: 3.5
  min_holder_stamina: 2
  drain_rate: 0.6
  handoff_health: 1
  handoff: crush
- kind: hug
  attach_node: AnimObjectB
  crawl_node: AnimObjectA
  min_size_ratio: 0.9
  max_size_ratio: 4.0
  handoff_scale: 0.04
  handoff: shrink
`

func TestParseInteractionTable(t *testing.T) {
	tbl, err := ParseInteractionTable([]byte(interactionYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tbl.Count() != 2 {
		t.Fatalf("Count = %d, want 2", tbl.Count())
	}
	grab := tbl.Get("grab")
	if grab == nil || grab.AttachNode != "AnimObjectA" || grab.CrawlNode != "AnimObjectA" {
		t.Fatalf("grab = %+v", grab)
	}
	if grab.Handoff != "crush" || grab.HandoffHealth != 1 {
		t.Fatalf("grab handoff = %q/%v", grab.Handoff, grab.HandoffHealth)
	}
	if hug := tbl.Get("hug"); hug == nil || hug.CrawlNode != "AnimObjectA" || hug.HandoffScale != 0.04 {
		t.Fatalf("hug = %+v", hug)
	}
	if tbl.Get("vore") != nil {
		t.Fatal("unknown kind must return nil")
	}
}

func TestParseInteractionTableRejectsMissingNode(t *testing.T) {
	if _, err := ParseInteractionTable([]byte("- kind: grab\n")); err == nil {
		t.Fatal("expected error for entry without attach_node")
	}
	if _, err := ParseInteractionTable([]byte("- attach_node: X\n")); err == nil {
		t.Fatal("expected error for entry without kind")
	}
}

func TestParseEffectTableDefaults(t *testing.T) {
	tbl, err := ParseEffectTable([]byte(`
- kind: crush
  death_effect: GTS/Damage/Crush.nif
  reaction_effects: [moan, laugh]
- kind: shrink
  effect_scale: 10
  transfer_scale: 0.5
  silent: true
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	crush := tbl.Get("crush")
	if crush.EffectScale != 1 || crush.TransferScale != 1 || len(crush.ReactionEffects) != 2 {
		t.Fatalf("crush = %+v", crush)
	}
	shrink := tbl.Get("shrink")
	if shrink.EffectScale != 10 || shrink.TransferScale != 0.5 || !shrink.Silent {
		t.Fatalf("shrink = %+v", shrink)
	}
}

func TestShippedTablesLoad(t *testing.T) {
	const dir = "../../data/yaml/"
	it, err := LoadInteractionTable(dir + "interaction_list.yaml")
	if err != nil {
		t.Fatal(err)
	}
	for _, kind := range []string{"grab", "hug"} {
		if it.Get(kind) == nil {
			t.Fatalf("shipped interaction list lacks %s", kind)
		}
	}
	et, err := LoadEffectTable(dir + "effect_list.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if et.Get("crush") == nil || et.Get("shrink") == nil {
		t.Fatal("shipped effect list incomplete")
	}
	at, err := LoadActorTable(dir + "actor_list.yaml")
	if err != nil {
		t.Fatal(err)
	}
	g := at.Get("Giantess")
	if g == nil || g.Nodes[it.Get("grab").AttachNode] == ([3]float64{}) {
		t.Fatal("giantess lacks the grab attach node")
	}
	if len(at.Spawns()) == 0 || at.Count() != len(at.Names()) {
		t.Fatal("actor table spawns or names inconsistent")
	}
}

func TestParseActorTableRejectsUnknownSpawn(t *testing.T) {
	raw := []byte(`
actors:
  - name: Bandit
spawns:
  - name: Troll
    count: 1
`)
	if _, err := ParseActorTable(raw); err == nil {
		t.Fatal("spawn of an unknown actor accepted")
	}
	at, err := ParseActorTable([]byte("actors:\n  - name: Bandit\n"))
	if err != nil {
		t.Fatal(err)
	}
	if at.Get("Bandit").Scale != 1 {
		t.Fatal("missing scale not defaulted to 1")
	}
}
