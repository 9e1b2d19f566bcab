// Package interaction keeps the holder→held links for grabs and hugs and runs
// the attach loop that pins each held entity to its holder every physics
// sub-step.
package interaction

import (
	"math/rand"
	"sync"
	"time"

	"github.com/gtsplugin/sizecore/internal/core/ecs"
	"github.com/gtsplugin/sizecore/internal/core/event"
	"github.com/gtsplugin/sizecore/internal/data"
	"github.com/gtsplugin/sizecore/internal/host"
	"github.com/gtsplugin/sizecore/internal/scripting"
	"github.com/gtsplugin/sizecore/internal/task"
	"go.uber.org/zap"
)

// State of a holder in one registry.
type State int

const (
	Idle       State = iota
	Attempting       // link recorded, attach loop not yet run
	Attached         // attach loop has pinned the held entity at least once
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Attempting:
		return "attempting"
	case Attached:
		return "attached"
	}
	return "unknown"
}

// Formulas are the scripted numbers the attach loop and the supplemental
// operations consume. *scripting.Engine implements it.
type Formulas interface {
	AttachDrain(ctx scripting.DrainContext) scripting.DrainResult
	HugSteal(ctx scripting.StealContext) scripting.StealResult
	Escaped(ctx scripting.EscapeContext) bool
	SqueezeDamage(ctx scripting.SqueezeContext) float64
}

// Finisher receives a handoff when a held entity reaches its terminal
// condition. *resolution.Machine implements it.
type Finisher interface {
	Begin(initiator, target host.Entity) bool
}

// Link is one holder→held relation.
type Link struct {
	Holder   host.Ref
	Held     host.Ref
	Strength float64
	State    State
	Since    time.Duration
}

// Deps are the collaborators a registry needs.
type Deps struct {
	Host        host.Host
	Scheduler   *task.Scheduler
	Tuning      *data.InteractionEntry
	Formulas    Formulas
	Handoff     Finisher   // optional
	Bus         *event.Bus // optional
	AttachPhase task.Phase
	Rand        *rand.Rand
	Log         *zap.Logger
}

// Registry is the shared core of Grab and Hug.
type Registry struct {
	kind    string
	host    host.Host
	sched   *task.Scheduler
	tuning  data.InteractionEntry
	formula Formulas
	handoff Finisher
	bus     *event.Bus
	phase   task.Phase
	rng     *rand.Rand
	log     *zap.Logger

	// guarded registries take mu around every map access; the map may
	// then be mutated from an input goroutine through Drop.
	guarded bool
	mu      sync.RWMutex
	links   map[ecs.EntityID]*Link

	// subsystems cancelled alongside the attach loop on release
	extra []string
}

func newRegistry(kind string, guarded bool, d Deps, extra ...string) *Registry {
	tuning := data.InteractionEntry{Kind: kind}
	if d.Tuning != nil {
		tuning = *d.Tuning
	}
	rng := d.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Registry{
		kind:    kind,
		host:    d.Host,
		sched:   d.Scheduler,
		tuning:  tuning,
		formula: d.Formulas,
		handoff: d.Handoff,
		bus:     d.Bus,
		phase:   d.AttachPhase,
		rng:     rng,
		log:     d.Log.With(zap.String("interaction", kind)),
		guarded: guarded,
		links:   make(map[ecs.EntityID]*Link, 16),
		extra:   extra,
	}
}

func (r *Registry) lock() {
	if r.guarded {
		r.mu.Lock()
	}
}

func (r *Registry) unlock() {
	if r.guarded {
		r.mu.Unlock()
	}
}

func (r *Registry) rlock() {
	if r.guarded {
		r.mu.RLock()
	}
}

func (r *Registry) runlock() {
	if r.guarded {
		r.mu.RUnlock()
	}
}

// Kind returns "grab" or "hug".
func (r *Registry) Kind() string { return r.kind }

func (r *Registry) attachKey(holder ecs.EntityID) task.Key {
	return task.For(r.kind+".attach", holder)
}

// Begin links held to holder, replacing any previous link of holder, and
// starts the attach loop. Returns false for self-links or dead parties.
func (r *Registry) Begin(holder, held host.Entity, strength float64) bool {
	if holder == nil || held == nil || holder.ID() == held.ID() {
		return false
	}
	if holder.Dead() || held.Dead() {
		return false
	}
	if strength <= 0 {
		strength = 1
	}
	hid := holder.ID()
	link := &Link{
		Holder:   host.RefOf(holder),
		Held:     host.RefOf(held),
		Strength: strength,
		State:    Attempting,
		Since:    r.host.Now(),
	}
	r.lock()
	prev := r.links[hid]
	r.links[hid] = link
	r.unlock()
	if prev != nil && prev.Held.ID() != held.ID() {
		r.unpin(prev.Held)
	}

	if r.tuning.HostileOnStart {
		r.host.ForceHostility(held, holder)
	}
	r.sched.Register(r.attachKey(hid), r.phase, r.attachLoop(hid, link))
	if r.bus != nil {
		event.Emit(r.bus, event.InteractionStarted{Kind: r.kind, Holder: hid, Held: held.ID()})
	}
	r.log.Debug("interaction begun",
		zap.String("holder", holder.DisplayName()),
		zap.String("held", held.DisplayName()),
		zap.Float64("strength", strength),
	)
	return true
}

// Release removes the link of holder and cancels its tasks.
func (r *Registry) Release(holder ecs.EntityID) bool {
	return r.end(holder, nil, event.EndReleased)
}

// Drop removes the link of holder without touching the scheduler. It is the
// only operation safe to call off the simulation goroutine, and only on a
// guarded registry; the attach loop notices the missing link and stops on
// its next invocation.
func (r *Registry) Drop(holder ecs.EntityID) bool {
	r.lock()
	defer r.unlock()
	if _, ok := r.links[holder]; !ok {
		return false
	}
	delete(r.links, holder)
	return true
}

// Held resolves the entity holder is holding.
func (r *Registry) Held(holder ecs.EntityID) (host.Entity, bool) {
	link, ok := r.Link(holder)
	if !ok {
		return nil, false
	}
	return link.Held.Get(r.host)
}

// Link returns a copy of the link of holder.
func (r *Registry) Link(holder ecs.EntityID) (Link, bool) {
	r.rlock()
	defer r.runlock()
	l, ok := r.links[holder]
	if !ok {
		return Link{}, false
	}
	return *l, true
}

// State returns the state of holder; Idle when it holds nothing.
func (r *Registry) State(holder ecs.EntityID) State {
	r.rlock()
	defer r.runlock()
	if l, ok := r.links[holder]; ok {
		return l.State
	}
	return Idle
}

// HolderOf returns the holder currently holding held.
func (r *Registry) HolderOf(held ecs.EntityID) (ecs.EntityID, bool) {
	r.rlock()
	defer r.runlock()
	for hid, l := range r.links {
		if l.Held.ID() == held {
			return hid, true
		}
	}
	return 0, false
}

// Len returns the number of links.
func (r *Registry) Len() int {
	r.rlock()
	defer r.runlock()
	return len(r.links)
}

// Holders returns every holder id in no fixed order.
func (r *Registry) Holders() []ecs.EntityID {
	r.rlock()
	defer r.runlock()
	ids := make([]ecs.EntityID, 0, len(r.links))
	for hid := range r.links {
		ids = append(ids, hid)
	}
	return ids
}

// Reset drops every link, cancels every loop and lifts the held entities'
// physics suppression.
func (r *Registry) Reset() {
	r.lock()
	gone := make(map[ecs.EntityID]host.Ref, len(r.links))
	for hid, l := range r.links {
		gone[hid] = l.Held
	}
	clear(r.links)
	r.unlock()
	for hid, held := range gone {
		r.cancelTasks(hid)
		r.unpin(held)
	}
}

// ResetEntity drops every link where id is the holder or the held entity.
func (r *Registry) ResetEntity(id ecs.EntityID) {
	gone := make(map[ecs.EntityID]host.Ref)
	r.lock()
	for hid, l := range r.links {
		if hid == id || l.Held.ID() == id {
			delete(r.links, hid)
			gone[hid] = l.Held
		}
	}
	r.unlock()
	for hid, held := range gone {
		r.cancelTasks(hid)
		r.unpin(held)
	}
}

// MoveLoops moves every attach loop to phase, e.g. from physics to frame
// while the host suspends physics. New loops start on the same phase.
func (r *Registry) MoveLoops(phase task.Phase) {
	r.phase = phase
	for _, hid := range r.Holders() {
		r.sched.ChangePhase(r.attachKey(hid), phase)
	}
}

func (r *Registry) cancelTasks(holder ecs.EntityID) {
	r.sched.Cancel(r.attachKey(holder))
	for _, sub := range r.extra {
		r.sched.Cancel(task.For(sub, holder))
	}
}

// unpin lifts the physics suppression the attach loop put on held. A held
// entity that no longer resolves is skipped.
func (r *Registry) unpin(held host.Ref) {
	if e, ok := held.Get(r.host); ok {
		r.host.ClearTransient(e)
	}
}

// end removes the link of holder when it is still want (nil = any link) and
// reports the reason. Tasks are cancelled unless the caller is the loop
// itself, which stops by returning false. Every end except a handoff unpins
// the held entity; the resolution takes over its flags otherwise.
func (r *Registry) end(holder ecs.EntityID, want *Link, reason event.EndReason) bool {
	r.lock()
	l, ok := r.links[holder]
	if ok && (want == nil || l == want) {
		delete(r.links, holder)
	} else {
		ok = false
	}
	r.unlock()
	if !ok {
		return false
	}
	if want == nil {
		r.cancelTasks(holder)
	} else {
		for _, sub := range r.extra {
			r.sched.Cancel(task.For(sub, holder))
		}
	}
	r.ended(holder, l, reason)
	return true
}

func (r *Registry) ended(holder ecs.EntityID, l *Link, reason event.EndReason) {
	if reason != event.EndHandedOff {
		r.unpin(l.Held)
	}
	if r.bus != nil {
		event.Emit(r.bus, event.InteractionEnded{Kind: r.kind, Holder: holder, Held: l.Held.ID(), Reason: reason})
	}
	r.log.Debug("interaction ended",
		zap.Stringer("holder", holder),
		zap.Stringer("held", l.Held.ID()),
		zap.Stringer("reason", reason),
	)
}

// current returns the live link pointer of holder.
func (r *Registry) current(holder ecs.EntityID) *Link {
	r.rlock()
	defer r.runlock()
	return r.links[holder]
}

// permitted runs the host gate and the tuning gates.
func (r *Registry) permitted(holder, held host.Entity) bool {
	if holder.Dead() || held.Dead() {
		return false
	}
	if !r.host.InteractionPermitted(r.kind, holder, held) {
		return false
	}
	if r.tuning.MinHolderStamina > 0 && r.host.Attribute(holder, host.AttrStamina) < r.tuning.MinHolderStamina {
		return false
	}
	if r.tuning.MinSizeRatio > 0 && host.SizeRatio(r.host, holder, held) < r.tuning.MinSizeRatio {
		return false
	}
	return true
}

// handoffReady reports whether held has reached the terminal condition.
func (r *Registry) handoffReady(held host.Entity) bool {
	if r.tuning.HandoffHealth > 0 && r.host.Attribute(held, host.AttrHealth) <= r.tuning.HandoffHealth {
		return true
	}
	if r.tuning.HandoffScale > 0 && r.host.Scale(held) <= r.tuning.HandoffScale {
		return true
	}
	return false
}

func (r *Registry) attachLoop(holderID ecs.EntityID, link *Link) task.Body {
	return func(ctx *task.Context) bool {
		if cur := r.current(holderID); cur != link {
			if cur == nil {
				// dropped from the input side; finish the release here
				for _, sub := range r.extra {
					r.sched.Cancel(task.For(sub, holderID))
				}
				r.ended(holderID, link, event.EndReleased)
			}
			return false
		}
		holder, ok := link.Holder.Get(r.host)
		if !ok {
			r.end(holderID, link, event.EndStale)
			return false
		}
		held, ok := link.Held.Get(r.host)
		if !ok {
			r.end(holderID, link, event.EndStale)
			return false
		}
		if !r.permitted(holder, held) {
			// a victim killed in hand still finishes through its resolution
			if held.Dead() && r.tryHandoff(holderID, link, holder, held) {
				return false
			}
			r.end(holderID, link, event.EndGated)
			return false
		}

		point, ok := r.host.AttachPoint(holder, r.tuning.AttachNode)
		if !ok {
			r.end(holderID, link, event.EndGated)
			return false
		}
		r.host.Teleport(held, point, true)
		if link.State == Attempting {
			r.lock()
			link.State = Attached
			r.unlock()
		}

		if r.formula != nil && ctx.Delta > 0 {
			drain := r.formula.AttachDrain(scripting.DrainContext{
				Kind:      r.kind,
				SizeRatio: host.SizeRatio(r.host, holder, held),
				Strength:  link.Strength,
				DrainRate: r.tuning.DrainRate,
				Delta:     ctx.Delta.Seconds(),
				Ally:      !r.tuning.HostileOnStart,
			})
			if drain.Holder > 0 {
				r.host.ModAttribute(holder, host.AttrStamina, -drain.Holder)
			}
			if drain.Held > 0 {
				r.host.ModAttribute(held, host.AttrStamina, -drain.Held)
			}
		}

		return !r.tryHandoff(holderID, link, holder, held)
	}
}

// tryHandoff passes held to the terminal resolution when it is ready and the
// resolution accepts it, ending the link.
func (r *Registry) tryHandoff(holderID ecs.EntityID, link *Link, holder, held host.Entity) bool {
	if r.handoff == nil || !r.handoffReady(held) {
		return false
	}
	if !r.handoff.Begin(holder, held) {
		return false
	}
	r.end(holderID, link, event.EndHandedOff)
	return true
}

// handOff begins the terminal resolution for the link of holder and releases
// it. Used by follow-up tasks outside the attach loop.
func (r *Registry) handOff(holderID ecs.EntityID) bool {
	link := r.current(holderID)
	if link == nil || r.handoff == nil {
		return false
	}
	holder, ok := link.Holder.Get(r.host)
	if !ok {
		return false
	}
	held, ok := link.Held.Get(r.host)
	if !ok {
		return false
	}
	if !r.handoff.Begin(holder, held) {
		return false
	}
	return r.end(holderID, nil, event.EndHandedOff)
}
