package interaction

import (
	"github.com/gtsplugin/sizecore/internal/core/ecs"
	"github.com/gtsplugin/sizecore/internal/core/event"
	"github.com/gtsplugin/sizecore/internal/host"
	"github.com/gtsplugin/sizecore/internal/scripting"
	"github.com/gtsplugin/sizecore/internal/task"
)

const grabCrush = "grab.crush"

// Grab holds one entity in a holder's hand. It is only touched from the
// simulation goroutine.
type Grab struct {
	*Registry
}

func NewGrab(d Deps) *Grab {
	return &Grab{Registry: newRegistry("grab", false, d, grabCrush)}
}

// Struggle rolls an escape attempt for the entity held by holder. The link is
// released when the held entity breaks free.
func (g *Grab) Struggle(holder ecs.EntityID) bool {
	link := g.current(holder)
	if link == nil || g.formula == nil {
		return false
	}
	giant, ok := link.Holder.Get(g.host)
	if !ok {
		return false
	}
	tiny, ok := link.Held.Get(g.host)
	if !ok {
		return false
	}
	escaped := g.formula.Escaped(scripting.EscapeContext{
		HolderScale: g.host.Scale(giant),
		HeldScale:   g.host.Scale(tiny),
		Strength:    link.Strength,
		HolderRoll:  g.rng.Float64(),
		HeldRoll:    g.rng.Float64(),
	})
	if !escaped {
		return false
	}
	return g.end(holder, nil, event.EndEscaped)
}

// Squeeze is a hand attack on the held entity. Damage is scaled by size and
// grip strength; a follow-up on the next frame hands the victim to the crush
// resolution once its health is at or below the handoff threshold.
func (g *Grab) Squeeze(holder ecs.EntityID, damage float64) bool {
	link := g.current(holder)
	if link == nil {
		return false
	}
	giant, ok := link.Holder.Get(g.host)
	if !ok {
		return false
	}
	tiny, ok := link.Held.Get(g.host)
	if !ok || tiny.Dead() {
		return false
	}

	g.host.ForceHostility(tiny, giant)
	if g.formula != nil {
		damage = g.formula.SqueezeDamage(scripting.SqueezeContext{
			Damage:    damage,
			SizeRatio: host.SizeRatio(g.host, giant, tiny),
			Strength:  link.Strength,
		})
	}
	g.host.ModAttribute(tiny, host.AttrHealth, -damage)

	threshold := g.tuning.HandoffHealth
	if threshold <= 0 {
		threshold = 1
	}
	g.sched.RunOnce(task.For(grabCrush, holder), func(*task.Context) {
		if g.current(holder) != link {
			return
		}
		victim, ok := link.Held.Get(g.host)
		if !ok {
			return
		}
		if victim.Dead() || g.host.Attribute(victim, host.AttrHealth) <= threshold {
			g.handOff(holder)
		}
	})
	return true
}
