package world

import (
	"math/rand"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gtsplugin/sizecore/internal/data"
	"github.com/gtsplugin/sizecore/internal/host"
	"go.uber.org/zap/zaptest"
)

var (
	giant = &data.ActorTemplate{
		Name: "Giant", Scale: 10, Health: 500, Stamina: 100, Living: true, Items: 2,
		Nodes: map[string][3]float64{"hand": {1, 0, 2}},
	}
	small = &data.ActorTemplate{Name: "Small", Scale: 1, Health: 40, Stamina: 50, Living: true, Items: 3}
	ghost = &data.ActorTemplate{Name: "Ghost", Scale: 1, Health: 10, Ethereal: true, Flying: true}
)

func newTestState(t *testing.T) *State {
	t.Helper()
	s := NewState(NewClock(), zaptest.NewLogger(t))
	s.Record = true
	return s
}

func mustLookup(t *testing.T, s *State, tmpl *data.ActorTemplate, pos mgl64.Vec3) host.Entity {
	t.Helper()
	e, ok := s.Lookup(s.Spawn(tmpl, pos))
	if !ok {
		t.Fatal("spawned actor does not resolve")
	}
	return e
}

func TestAttachPointScalesWithHolder(t *testing.T) {
	s := newTestState(t)
	g := mustLookup(t, s, giant, mgl64.Vec3{100, 0, 0})

	p, ok := s.AttachPoint(g, "hand")
	if !ok {
		t.Fatal("hand node missing")
	}
	if !p.ApproxEqual(mgl64.Vec3{110, 0, 20}) {
		t.Fatalf("attach point = %v", p)
	}
	if _, ok := s.AttachPoint(g, "tail"); ok {
		t.Fatal("unknown node resolved")
	}
}

func TestModAttributeClampsAndKills(t *testing.T) {
	s := newTestState(t)
	e := mustLookup(t, s, small, mgl64.Vec3{})
	s.Clock().Advance(time.Second)

	s.ModAttribute(e, host.AttrStamina, 500)
	if got := s.Attribute(e, host.AttrStamina); got != 50 {
		t.Fatalf("stamina = %v, want clamped to 50", got)
	}
	s.ModAttribute(e, host.AttrHealth, -100)
	a, _ := s.Actor(e.ID())
	if !e.Dead() || a.Health != 0 || a.DiedAt != time.Second {
		t.Fatalf("actor = %+v, want dead at 1s", a)
	}
	s.ModAttribute(e, host.AttrScale, -5)
	if s.Scale(e) != 0 {
		t.Fatal("scale went negative")
	}
	if s.CommandCount(CmdModAttribute) != 3 {
		t.Fatalf("mod commands = %d", s.CommandCount(CmdModAttribute))
	}
}

func TestKillRecordsKiller(t *testing.T) {
	s := newTestState(t)
	g, e := mustLookup(t, s, giant, mgl64.Vec3{}), mustLookup(t, s, small, mgl64.Vec3{})

	s.Kill(g, e, true)
	a, _ := s.Actor(e.ID())
	if !a.Dead || a.Killer != g.ID() || !a.Silenced {
		t.Fatalf("actor = %+v", a)
	}
	cmds := s.CommandsOf(CmdKill)
	if len(cmds) != 1 || cmds[0].Other != g.ID() || !cmds[0].Flag {
		t.Fatalf("kill commands = %+v", cmds)
	}
}

func TestTransferInventory(t *testing.T) {
	s := newTestState(t)
	g, e := mustLookup(t, s, giant, mgl64.Vec3{}), mustLookup(t, s, small, mgl64.Vec3{})

	s.TransferInventory(e, g, 0.5)
	gi, _ := s.Inventory(g.ID())
	ei, _ := s.Inventory(e.ID())
	if ei.Size() != 0 {
		t.Fatal("source not emptied")
	}
	if it := gi.FindByName("Small loot"); it == nil || it.Count != 2 {
		t.Fatalf("transferred stack = %+v, want 2", it)
	}
	if gi.Total() != 4 {
		t.Fatalf("giant total = %d", gi.Total())
	}
}

func TestTransferKeepsOneItemPerStack(t *testing.T) {
	src, dst := NewInventory(), NewInventory()
	src.AddItem("coin", 1)
	src.AddItem("gem", 10)
	if moved := src.TransferAll(dst, 0.1); moved != 2 {
		t.Fatalf("moved = %d, want 2", moved)
	}
}

func TestCapabilitiesAndGates(t *testing.T) {
	s := newTestState(t)
	g, e, gh := mustLookup(t, s, giant, mgl64.Vec3{}), mustLookup(t, s, small, mgl64.Vec3{}), mustLookup(t, s, ghost, mgl64.Vec3{})

	if !s.Has(gh, host.CapFlying) || !s.Has(gh, host.CapEthereal) || s.Has(gh, host.CapLiving) {
		t.Fatal("ghost capabilities wrong")
	}
	if !s.Has(e, host.CapLiving) {
		t.Fatal("small should be living")
	}
	if !s.InteractionPermitted("grab", g, e) {
		t.Fatal("idle holder refused")
	}
	s.SetBusy(g.ID(), true)
	if s.InteractionPermitted("grab", g, e) {
		t.Fatal("busy holder permitted")
	}
	s.SetBusy(g.ID(), false)
	s.Permit = func(kind string, _, _ host.Entity) bool { return kind == "hug" }
	if s.InteractionPermitted("grab", g, e) || !s.InteractionPermitted("hug", g, e) {
		t.Fatal("Permit hook ignored")
	}
}

func TestCorpsesAreReapedAfterCorpseTime(t *testing.T) {
	s := newTestState(t)
	s.CorpseTime = 2 * time.Second
	e := mustLookup(t, s, small, mgl64.Vec3{})
	s.Kill(nil, e, false)

	s.Clock().Advance(time.Second)
	if s.ReapCorpses() != 0 {
		t.Fatal("corpse reaped early")
	}
	s.Clock().Advance(time.Second)
	if s.ReapCorpses() != 1 {
		t.Fatal("corpse not queued")
	}
	if s.ReapCorpses() != 0 {
		t.Fatal("corpse queued twice")
	}
	if _, ok := s.Lookup(e.ID()); !ok {
		t.Fatal("queued corpse should resolve until flush")
	}
	gone := s.Flush()
	if len(gone) != 1 || gone[0] != e.ID() {
		t.Fatalf("flushed = %v", gone)
	}
	if _, ok := s.Lookup(e.ID()); ok {
		t.Fatal("stale id resolves after flush")
	}
	if s.Count() != 0 {
		t.Fatalf("count = %d", s.Count())
	}
}

func TestNearbyAndCensus(t *testing.T) {
	s := newTestState(t)
	g := mustLookup(t, s, giant, mgl64.Vec3{})
	near := mustLookup(t, s, small, mgl64.Vec3{30, 40, 0})
	mustLookup(t, s, small, mgl64.Vec3{90, 0, 0})
	dead := mustLookup(t, s, small, mgl64.Vec3{10, 0, 0})
	s.Kill(g, dead, false)

	got := s.Nearby(g.ID(), 50)
	if len(got) != 1 || got[0] != near.ID() {
		t.Fatalf("nearby = %v, want only %s", got, near.ID())
	}

	s.Teleport(near, mgl64.Vec3{1, 1, 1}, true)
	s.ForceHostility(near, g)
	c := s.Census()
	if c.Living != 3 || c.Dead != 1 || c.Held != 1 || c.Hostile != 1 {
		t.Fatalf("census = %+v", c)
	}
	s.ClearTransient(near)
	if s.Census().Held != 0 {
		t.Fatal("ClearTransient kept physics suppressed")
	}
}

func TestSpawnAll(t *testing.T) {
	raw := []byte(`
actors:
  - name: Small
    scale: 1
    health: 10
spawns:
  - name: Small
    count: 5
    randomx: 10
    randomy: 10
`)
	table, err := data.ParseActorTable(raw)
	if err != nil {
		t.Fatal(err)
	}
	s := newTestState(t)
	if n := s.SpawnAll(table, rand.New(rand.NewSource(1))); n != 5 {
		t.Fatalf("spawned %d", n)
	}
	if len(s.Living()) != 5 {
		t.Fatal("living count mismatch")
	}
}

func TestClock(t *testing.T) {
	c := NewClock()
	if step := c.Advance(10 * time.Millisecond); step != 10*time.Millisecond {
		t.Fatalf("step = %v", step)
	}
	c.SetScale(2)
	c.Advance(10 * time.Millisecond)
	if c.Now() != 30*time.Millisecond {
		t.Fatalf("now = %v", c.Now())
	}
	c.Pause()
	if c.Advance(time.Second) != 0 || c.Now() != 30*time.Millisecond {
		t.Fatal("paused clock moved")
	}
	c.Resume()
	c.SetScale(0)
	if !c.Paused() {
		t.Fatal("zero scale should pause")
	}
}
