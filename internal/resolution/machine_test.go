package resolution

import (
	"math/rand"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gtsplugin/sizecore/internal/core/ecs"
	"github.com/gtsplugin/sizecore/internal/core/event"
	"github.com/gtsplugin/sizecore/internal/data"
	"github.com/gtsplugin/sizecore/internal/host"
	"github.com/gtsplugin/sizecore/internal/task"
	"github.com/gtsplugin/sizecore/internal/world"
	"go.uber.org/zap/zaptest"
)

type fixedChance float64

func (f fixedChance) ReactionChance(string, float64) float64 { return float64(f) }

var (
	giantess = &data.ActorTemplate{Name: "Giantess", Scale: 10, Health: 500, Stamina: 200, Living: true, Items: 2}
	bandit   = &data.ActorTemplate{Name: "Bandit", Scale: 1, Health: 50, Stamina: 100, Living: true, Items: 3}
	dragon   = &data.ActorTemplate{Name: "Dragon", Scale: 3, Health: 900, Living: true, Flying: true}
	ghost    = &data.ActorTemplate{Name: "Ghost", Scale: 1, Health: 40, Ethereal: true}
	jarl     = &data.ActorTemplate{Name: "Jarl", Scale: 1, Health: 80, Living: true, Essential: true}
)

type fixture struct {
	w     *world.State
	sched *task.Scheduler
	bus   *event.Bus
	m     *Machine
}

func newFixture(t *testing.T, v func(*data.EffectTable) Variant, chance float64, delay time.Duration) *fixture {
	t.Helper()
	effects, err := data.ParseEffectTable([]byte(`
- kind: crush
  death_effect: fx/blood_explosion.nif
  dust_effect: fx/dust.nif
  reaction_effects: [sfx/laugh.wav]
  transfer_scale: 0.5
- kind: shrink
  death_effect: fx/shrink_poof.nif
  silent: true
`))
	if err != nil {
		t.Fatal(err)
	}
	log := zaptest.NewLogger(t)
	w := world.NewState(world.NewClock(), log)
	w.Record = true
	sched := task.NewScheduler(w, log)
	bus := event.NewBus()
	m := NewMachine(v(effects), Deps{
		Host:      w,
		Scheduler: sched,
		Formulas:  fixedChance(chance),
		Bus:       bus,
		Rand:      rand.New(rand.NewSource(1)),
		Delay:     delay,
		Log:       log,
	})
	return &fixture{w: w, sched: sched, bus: bus, m: m}
}

func (f *fixture) spawn(t *testing.T, tmpl *data.ActorTemplate) host.Entity {
	t.Helper()
	id := f.w.Spawn(tmpl, mgl64.Vec3{})
	e, ok := f.w.Lookup(id)
	if !ok {
		t.Fatalf("spawned %s does not resolve", tmpl.Name)
	}
	return e
}

func TestBeginTwiceKeepsOneRecord(t *testing.T) {
	f := newFixture(t, Crush, 0, 0)
	g, b := f.spawn(t, giantess), f.spawn(t, bandit)

	if !f.m.Begin(g, b) {
		t.Fatal("first Begin rejected")
	}
	if f.m.Begin(g, b) {
		t.Fatal("second Begin accepted")
	}
	if f.m.Len() != 1 {
		t.Fatalf("Len = %d, want 1", f.m.Len())
	}

	for i := 0; i < 3; i++ {
		f.m.Update()
	}
	if n := f.w.CommandCount(world.CmdKill); n != 1 {
		t.Fatalf("kills = %d, want 1", n)
	}
}

func TestLifecycle(t *testing.T) {
	f := newFixture(t, Crush, 0, 0)
	g, b := f.spawn(t, giantess), f.spawn(t, bandit)
	f.m.Begin(g, b)

	f.m.Update()
	if st, _ := f.m.State(b.ID()); st != Resolving {
		t.Fatalf("state = %s, want resolving", st)
	}
	if f.w.CommandCount(world.CmdClearTransient) != 1 {
		t.Fatal("precondition fix-up not applied")
	}
	if f.w.CommandCount(world.CmdKill) != 0 {
		t.Fatal("killed before Resolved")
	}
	if f.m.CanBegin(g, b) {
		t.Fatal("CanBegin true while resolving")
	}

	f.m.Update()
	if st, _ := f.m.State(b.ID()); st != Resolved {
		t.Fatalf("state = %s, want resolved", st)
	}
	kills := f.w.CommandsOf(world.CmdKill)
	if len(kills) != 1 || kills[0].Actor != b.ID() || kills[0].Other != g.ID() {
		t.Fatalf("kill commands = %+v", kills)
	}
	fx := f.w.CommandsOf(world.CmdSpawnEffect)
	if len(fx) != 1 || fx[0].Text != "fx/blood_explosion.nif" {
		t.Fatalf("effects = %+v", fx)
	}
	hostile := f.w.CommandsOf(world.CmdForceHostility)
	if len(hostile) != 1 || hostile[0].Actor != b.ID() || hostile[0].Other != g.ID() {
		t.Fatalf("hostility = %+v", hostile)
	}
	if f.m.CanBegin(g, b) {
		t.Fatal("CanBegin true before reap")
	}

	// Inventory transfer runs as a one-shot frame task.
	if !f.sched.Has(task.Key{Subsystem: "crush.transfer", Entity: b.ID()}) {
		t.Fatal("transfer task not scheduled")
	}
	f.sched.Tick(task.PhaseFrame)
	inv, _ := f.w.Inventory(g.ID())
	if inv.Total() != 2+2 { // own loot plus half of 3, rounded
		t.Fatalf("initiator items = %d, want 4", inv.Total())
	}
	if f.sched.Len() != 0 {
		t.Fatal("transfer task not removed")
	}

	f.m.Update()
	if f.m.Pending(b.ID()) {
		t.Fatal("resolved record not reaped")
	}
	if f.m.CanBegin(g, b) {
		t.Fatal("reaped corpse can be resolved again")
	}
	f.m.ResetEntity(b.ID())
	if !f.m.CanBegin(g, b) {
		t.Fatal("CanBegin false after the corpse was forgotten")
	}
}

func TestCorpseIsNotResolvedTwice(t *testing.T) {
	f := newFixture(t, Crush, 0, 0)
	g, b := f.spawn(t, giantess), f.spawn(t, bandit)
	var reported int
	event.Subscribe(f.bus, func(event.KillReported) { reported++ })

	for round := 0; round < 2; round++ {
		f.m.Begin(g, b)
		for i := 0; i < 3; i++ {
			f.m.Update()
		}
	}
	f.bus.SwapBuffers()
	f.bus.DispatchAll()
	if n := f.w.CommandCount(world.CmdKill); n != 1 {
		t.Fatalf("kills = %d, want 1", n)
	}
	if reported != 1 {
		t.Fatalf("KillReported = %d, want 1", reported)
	}

	// a corpse killed some other way is still a valid target
	other := f.spawn(t, bandit)
	f.w.Kill(nil, other, true)
	if !f.m.CanBegin(g, other) {
		t.Fatal("corpse not killed by this machine rejected")
	}
}

func TestGateRejections(t *testing.T) {
	cases := []struct {
		name    string
		variant func(*data.EffectTable) Variant
		target  *data.ActorTemplate
		want    bool
	}{
		{"crush bandit", Crush, bandit, true},
		{"crush flying", Crush, dragon, false},
		{"crush ethereal", Crush, ghost, true},
		{"crush essential", Crush, jarl, false},
		{"shrink bandit", Shrink, bandit, true},
		{"shrink flying", Shrink, dragon, false},
		{"shrink ethereal", Shrink, ghost, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.variant, 0, 0)
			g, target := f.spawn(t, giantess), f.spawn(t, tc.target)
			if got := f.m.CanBegin(g, target); got != tc.want {
				t.Fatalf("CanBegin = %v, want %v", got, tc.want)
			}
			if got := f.m.Begin(g, target); got != tc.want {
				t.Fatalf("Begin = %v, want %v", got, tc.want)
			}
		})
	}

	f := newFixture(t, Crush, 0, 0)
	g := f.spawn(t, giantess)
	if f.m.CanBegin(g, g) {
		t.Fatal("self resolution allowed")
	}
	if f.m.CanBegin(nil, g) {
		t.Fatal("nil initiator allowed")
	}
}

func TestStaleTargetIsReaped(t *testing.T) {
	f := newFixture(t, Crush, 0, 0)
	g, b := f.spawn(t, giantess), f.spawn(t, bandit)
	f.m.Begin(g, b)

	f.w.Despawn(b.ID())
	f.w.Flush()

	f.m.Update()
	if f.m.Len() != 0 {
		t.Fatal("stale record kept")
	}
	if f.w.CommandCount(world.CmdKill) != 0 || f.w.CommandCount(world.CmdClearTransient) != 0 {
		t.Fatal("side effects on a stale target")
	}
}

func TestDelayGatesTransitions(t *testing.T) {
	f := newFixture(t, Shrink, 0, 10*time.Millisecond)
	g, b := f.spawn(t, giantess), f.spawn(t, bandit)
	f.m.Begin(g, b)

	f.m.Update()
	if st, _ := f.m.State(b.ID()); st != Healthy {
		t.Fatalf("advanced before delay: %s", st)
	}
	f.w.Clock().Advance(10 * time.Millisecond)
	f.m.Update()
	if st, _ := f.m.State(b.ID()); st != Resolving {
		t.Fatalf("state = %s, want resolving", st)
	}
	f.m.Update()
	if st, _ := f.m.State(b.ID()); st != Resolving {
		t.Fatalf("second transition ignored the delay: %s", st)
	}
	f.w.Clock().Advance(10 * time.Millisecond)
	f.m.Update()
	kills := f.w.CommandsOf(world.CmdKill)
	if len(kills) != 1 || !kills[0].Flag {
		t.Fatalf("want one silent kill, got %+v", kills)
	}
}

func TestPausedClockHoldsRecords(t *testing.T) {
	f := newFixture(t, Crush, 0, 10*time.Millisecond)
	g, b := f.spawn(t, giantess), f.spawn(t, bandit)
	f.m.Begin(g, b)

	f.w.Clock().Pause()
	for i := 0; i < 10; i++ {
		f.w.Clock().Advance(time.Second)
		f.m.Update()
	}
	if st, _ := f.m.State(b.ID()); st != Healthy {
		t.Fatalf("advanced on a paused clock: %s", st)
	}
}

func TestReactionRoll(t *testing.T) {
	f := newFixture(t, Crush, 1, 0)
	g, b := f.spawn(t, giantess), f.spawn(t, bandit)
	f.m.Begin(g, b)
	f.m.Update()
	f.m.Update()

	var onInitiator int
	for _, c := range f.w.CommandsOf(world.CmdSpawnEffect) {
		if c.Actor == g.ID() && c.Text == "sfx/laugh.wav" {
			onInitiator++
		}
	}
	if onInitiator != 1 {
		t.Fatalf("reaction effects = %d, want 1", onInitiator)
	}

	// Shrink has no reaction set; chance 1 must still spawn nothing extra.
	f2 := newFixture(t, Shrink, 1, 0)
	g2, b2 := f2.spawn(t, giantess), f2.spawn(t, ghost)
	f2.m.variant.Exempt = nil
	f2.m.Begin(g2, b2)
	f2.m.Update()
	f2.m.Update()
	fx := f2.w.CommandsOf(world.CmdSpawnEffect)
	if len(fx) != 0 {
		// ghost is not living and shrink has no dust effect
		t.Fatalf("effects = %+v, want none", fx)
	}
}

func TestKillReportedEvent(t *testing.T) {
	f := newFixture(t, Crush, 0, 0)
	var got []event.KillReported
	event.Subscribe(f.bus, func(ev event.KillReported) { got = append(got, ev) })

	g, b := f.spawn(t, giantess), f.spawn(t, bandit)
	f.m.Begin(g, b)
	f.m.Update()
	f.m.Update()

	f.bus.SwapBuffers()
	f.bus.DispatchAll()
	if len(got) != 1 {
		t.Fatalf("events = %d, want 1", len(got))
	}
	ev := got[0]
	if ev.Kind != "crush" || ev.InitiatorName != "Giantess" || ev.TargetName != "Bandit" {
		t.Fatalf("event = %+v", ev)
	}
}

func TestResetEntity(t *testing.T) {
	f := newFixture(t, Crush, 0, 0)
	g := f.spawn(t, giantess)
	b1, b2 := f.spawn(t, bandit), f.spawn(t, bandit)
	other := f.spawn(t, giantess)
	f.m.Begin(g, b1)
	f.m.Begin(other, b2)

	f.m.ResetEntity(g.ID())
	if f.m.Pending(b1.ID()) {
		t.Fatal("record with despawned initiator kept")
	}
	if !f.m.Pending(b2.ID()) {
		t.Fatal("unrelated record dropped")
	}

	// Re-begin after a reset must not double-step the target.
	f.m.Begin(g, b1)
	f.m.Update()
	if st, _ := f.m.State(b1.ID()); st != Resolving {
		t.Fatalf("state = %s, want resolving", st)
	}

	f.m.Reset()
	if f.m.Len() != 0 {
		t.Fatal("Reset left records")
	}
	var zero ecs.EntityID
	if f.m.Pending(zero) {
		t.Fatal("zero id pending")
	}
}
