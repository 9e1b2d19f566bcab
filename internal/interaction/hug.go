package interaction

import (
	"time"

	"github.com/gtsplugin/sizecore/internal/core/ecs"
	"github.com/gtsplugin/sizecore/internal/host"
	"github.com/gtsplugin/sizecore/internal/scripting"
	"github.com/gtsplugin/sizecore/internal/task"
)

const hugShrink = "hug.shrink"

// Hug holds one entity against a holder's chest. Its link table is
// mutex-guarded so the input path can Drop a hug off the simulation goroutine.
type Hug struct {
	*Registry
	shrinkFor time.Duration
}

func NewHug(d Deps, shrinkFor time.Duration) *Hug {
	if shrinkFor <= 0 {
		shrinkFor = 2 * time.Second
	}
	return &Hug{
		Registry:  newRegistry("hug", true, d, hugShrink),
		shrinkFor: shrinkFor,
	}
}

// ShrinkHeld starts stealing size from the hugged entity for a fixed span of
// simulation time. The steal stops early once the size ratio reaches the
// tuning maximum; the attach loop hands off to shrink-to-nothing when the
// held scale falls to the handoff threshold.
func (h *Hug) ShrinkHeld(holder ecs.EntityID) bool {
	link := h.current(holder)
	if link == nil || h.formula == nil {
		return false
	}
	h.sched.RunFor(task.For(hugShrink, holder), task.PhaseFrame, h.shrinkFor, func(ctx *task.Context) bool {
		if h.current(holder) != link {
			return false
		}
		giant, ok := link.Holder.Get(h.host)
		if !ok {
			return false
		}
		tiny, ok := link.Held.Get(h.host)
		if !ok {
			return false
		}
		ratio := host.SizeRatio(h.host, giant, tiny)
		if h.tuning.MaxSizeRatio > 0 && ratio >= h.tuning.MaxSizeRatio {
			return false
		}
		if ctx.Delta <= 0 {
			return true
		}
		steal := h.formula.HugSteal(scripting.StealContext{
			SizeRatio:   ratio,
			HolderScale: h.host.Scale(giant),
			HeldScale:   h.host.Scale(tiny),
			Delta:       ctx.Delta.Seconds(),
		})
		if steal.HeldScale > 0 {
			h.host.ModAttribute(tiny, host.AttrScale, -steal.HeldScale)
		}
		if steal.HolderScale > 0 {
			h.host.ModAttribute(giant, host.AttrScale, steal.HolderScale)
		}
		if steal.HeldStamina > 0 {
			h.host.ModAttribute(tiny, host.AttrStamina, -steal.HeldStamina)
		}
		if steal.HolderStamina > 0 {
			h.host.ModAttribute(giant, host.AttrStamina, -steal.HolderStamina)
		}
		return true
	})
	return true
}

// Shrinking reports whether a steal task is running for holder.
func (h *Hug) Shrinking(holder ecs.EntityID) bool {
	return h.sched.Has(task.For(hugShrink, holder))
}
