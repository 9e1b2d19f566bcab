package system

import (
	"context"
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/gtsplugin/sizecore/internal/core/ecs"
	"github.com/gtsplugin/sizecore/internal/core/event"
	"github.com/gtsplugin/sizecore/internal/data"
	"github.com/gtsplugin/sizecore/internal/persist"
	"github.com/gtsplugin/sizecore/internal/report"
	"github.com/gtsplugin/sizecore/internal/world"
	"go.uber.org/zap/zaptest"
)

type countingActions struct{ reqs []Request }

func (c *countingActions) Apply(req Request) bool {
	c.reqs = append(c.reqs, req)
	return true
}

func TestInputSystemCapsPerTick(t *testing.T) {
	in := make(chan Request, 10)
	for i := 0; i < 5; i++ {
		in <- Request{Op: "grab"}
	}
	acts := &countingActions{}
	sys := NewInputSystem(in, acts, 3, zaptest.NewLogger(t))

	sys.Update(0)
	if len(acts.reqs) != 3 {
		t.Fatalf("applied %d, want 3", len(acts.reqs))
	}
	sys.Update(0)
	sys.Update(0)
	if len(acts.reqs) != 5 {
		t.Fatalf("applied %d, want 5", len(acts.reqs))
	}
}

type flakyLedger struct {
	fail    bool
	batches [][]persist.KillEntry
}

func (f *flakyLedger) Write(_ context.Context, entries []persist.KillEntry) error {
	if f.fail {
		return errors.New("connection refused")
	}
	f.batches = append(f.batches, append([]persist.KillEntry(nil), entries...))
	return nil
}

func TestPersistenceFlushesOnInterval(t *testing.T) {
	bus := event.NewBus()
	ledger := &flakyLedger{}
	sid := uuid.New()
	sys := NewPersistenceSystem(bus, ledger, sid, zaptest.NewLogger(t), 3)

	event.Emit(bus, event.KillReported{Kind: "crush", Initiator: 1, Target: 2, TargetName: "Bandit"})
	bus.SwapBuffers()
	bus.DispatchAll()
	if sys.Pending() != 1 {
		t.Fatalf("pending = %d", sys.Pending())
	}

	sys.Update(0)
	sys.Update(0)
	if len(ledger.batches) != 0 {
		t.Fatal("flushed before the interval")
	}
	sys.Update(0)
	if len(ledger.batches) != 1 || ledger.batches[0][0].SessionID != sid {
		t.Fatalf("batches = %+v", ledger.batches)
	}
	if sys.Written() != 1 || sys.Pending() != 0 {
		t.Fatalf("written %d pending %d", sys.Written(), sys.Pending())
	}
}

func TestPersistenceKeepsBatchOnFailure(t *testing.T) {
	bus := event.NewBus()
	ledger := &flakyLedger{fail: true}
	sys := NewPersistenceSystem(bus, ledger, uuid.New(), zaptest.NewLogger(t), 1)

	event.Emit(bus, event.KillReported{Kind: "shrink"})
	bus.SwapBuffers()
	bus.DispatchAll()
	sys.Flush()
	if sys.Pending() != 1 {
		t.Fatal("failed batch dropped")
	}
	ledger.fail = false
	sys.Flush()
	if sys.Pending() != 0 || len(ledger.batches) != 1 {
		t.Fatal("retry did not write the batch")
	}
}

type despawnLog struct{ ids []ecs.EntityID }

func (d *despawnLog) Despawn(id ecs.EntityID) { d.ids = append(d.ids, id) }

func TestCleanupFansOutDespawns(t *testing.T) {
	ws := world.NewState(world.NewClock(), zaptest.NewLogger(t))
	ws.CorpseTime = 0
	tmpl := &data.ActorTemplate{Name: "Bandit", Scale: 1, Health: 10}
	a := ws.Spawn(tmpl, mgl64.Vec3{})
	b := ws.Spawn(tmpl, mgl64.Vec3{})
	e, _ := ws.Lookup(a)
	ws.Kill(nil, e, false)
	ws.Despawn(b)

	log := &despawnLog{}
	NewCleanupSystem(ws, log).Update(0)
	if len(log.ids) != 2 {
		t.Fatalf("despawned %v, want both", log.ids)
	}
	if ws.Count() != 0 {
		t.Fatal("actors left after cleanup")
	}
}

func TestReportSystemNotifiesInOutput(t *testing.T) {
	ws := world.NewState(world.NewClock(), zaptest.NewLogger(t))
	tmpl := &data.ActorTemplate{Name: "Giantess", Scale: 10, Health: 10}
	g := ws.Spawn(tmpl, mgl64.Vec3{})
	bus := event.NewBus()
	sys := NewReportSystem(bus, ws, report.New("en"))

	event.Emit(bus, event.KillReported{Kind: "crush", InitiatorName: "Giantess", TargetName: "Bandit"})
	event.Emit(bus, event.InteractionEnded{Kind: "grab", Holder: g, Held: 99, Reason: event.EndEscaped})
	event.Emit(bus, event.InteractionEnded{Kind: "grab", Holder: g, Reason: event.EndStale})
	bus.SwapBuffers()
	bus.DispatchAll()
	if len(ws.Notes()) != 0 {
		t.Fatal("notified before the output phase")
	}

	sys.Update(0)
	notes := ws.Notes()
	// event types are delivered in no fixed order relative to each other
	want := map[string]bool{"Giantess crushed Bandit": true, "someone escaped from Giantess": true}
	if len(notes) != len(want) {
		t.Fatalf("notes = %q", notes)
	}
	for _, n := range notes {
		if !want[n] {
			t.Fatalf("unexpected note %q", n)
		}
	}
	if sys.Kills("crush") != 1 || sys.Summary() != "1 crushed, 0 shrunk" {
		t.Fatalf("summary = %q", sys.Summary())
	}
}
