// Package resolution finalizes crush and shrink-to-nothing kills. A Machine
// walks each target through Healthy, Resolving and Resolved, one transition
// per frame, so the terminal side effects happen exactly once per target.
package resolution

import (
	"math/rand"
	"time"

	"github.com/gtsplugin/sizecore/internal/core/ecs"
	"github.com/gtsplugin/sizecore/internal/core/event"
	"github.com/gtsplugin/sizecore/internal/host"
	"github.com/gtsplugin/sizecore/internal/task"
	"go.uber.org/zap"
)

// State of one resolution record.
type State int

const (
	Healthy State = iota
	Resolving
	Resolved
)

func (s State) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Resolving:
		return "resolving"
	case Resolved:
		return "resolved"
	}
	return "unknown"
}

// Formulas supplies the cosmetic reaction roll.
type Formulas interface {
	ReactionChance(kind string, initiatorScale float64) float64
}

// Deps are the collaborators a Machine needs.
type Deps struct {
	Host      host.Host
	Scheduler *task.Scheduler
	Formulas  Formulas
	Bus       *event.Bus    // optional
	Rand      *rand.Rand    // nil = seeded from the clock
	Delay     time.Duration // minimum simulation time between transitions
	Log       *zap.Logger
}

type record struct {
	target    host.Ref
	initiator host.Ref
	state     State
	due       time.Duration
}

// Machine tracks pending resolutions of one kind, keyed by target.
// Not safe for concurrent use.
type Machine struct {
	variant Variant
	host    host.Host
	sched   *task.Scheduler
	formula Formulas
	bus     *event.Bus
	rng     *rand.Rand
	delay   time.Duration
	log     *zap.Logger

	records map[ecs.EntityID]*record
	order   []ecs.EntityID

	// targets this machine already killed; kept after the record is reaped
	// until the corpse is despawned
	done map[ecs.EntityID]struct{}
}

func NewMachine(v Variant, d Deps) *Machine {
	rng := d.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Machine{
		variant: v,
		host:    d.Host,
		sched:   d.Scheduler,
		formula: d.Formulas,
		bus:     d.Bus,
		rng:     rng,
		delay:   d.Delay,
		log:     d.Log.With(zap.String("resolution", v.Kind)),
		records: make(map[ecs.EntityID]*record, 16),
		done:    make(map[ecs.EntityID]struct{}, 16),
	}
}

// Kind returns the variant name.
func (m *Machine) Kind() string { return m.variant.Kind }

// CanBegin reports whether target may enter this resolution now.
func (m *Machine) CanBegin(initiator, target host.Entity) bool {
	if initiator == nil || target == nil || initiator.ID() == target.ID() {
		return false
	}
	if _, pending := m.records[target.ID()]; pending {
		return false
	}
	if _, killed := m.done[target.ID()]; killed && target.Dead() {
		return false
	}
	if m.host.IsEssential(initiator, target) {
		return false
	}
	for _, c := range m.variant.Exempt {
		if m.host.Has(target, c) {
			return false
		}
	}
	return true
}

// Begin inserts a Healthy record for target when CanBegin passes.
func (m *Machine) Begin(initiator, target host.Entity) bool {
	if !m.CanBegin(initiator, target) {
		return false
	}
	id := target.ID()
	m.records[id] = &record{
		target:    host.RefOf(target),
		initiator: host.RefOf(initiator),
		state:     Healthy,
		due:       m.host.Now() + m.delay,
	}
	m.order = append(m.order, id)
	m.log.Debug("resolution begun",
		zap.Stringer("target", id),
		zap.Stringer("initiator", initiator.ID()),
	)
	return true
}

// Update advances every record by at most one transition. Called once per
// frame.
func (m *Machine) Update() {
	if len(m.order) == 0 {
		return
	}
	now := m.host.Now()
	write := 0
	for _, id := range m.order {
		rec, ok := m.records[id]
		if !ok {
			continue
		}
		if m.step(id, rec, now) {
			m.order[write] = id
			write++
		} else {
			delete(m.records, id)
		}
	}
	m.order = m.order[:write]
}

// step returns false when the record should be reaped.
func (m *Machine) step(id ecs.EntityID, rec *record, now time.Duration) bool {
	if rec.state == Resolved {
		return false
	}
	target, ok := rec.target.Get(m.host)
	if !ok {
		m.log.Debug("resolution target gone", zap.Stringer("target", id))
		return false
	}
	initiator, ok := rec.initiator.Get(m.host)
	if !ok {
		m.log.Debug("resolution initiator gone", zap.Stringer("target", id))
		return false
	}
	if now < rec.due {
		return true
	}

	switch rec.state {
	case Healthy:
		m.host.ClearTransient(target)
		rec.state = Resolving
		rec.due = now + m.delay
	case Resolving:
		m.finish(initiator, target, now)
		m.done[id] = struct{}{}
		rec.state = Resolved
	}
	return true
}

func (m *Machine) finish(initiator, target host.Entity, now time.Duration) {
	fx := &m.variant.Effects
	m.host.ForceHostility(target, initiator)

	initScale := m.host.Scale(initiator)
	if len(fx.ReactionEffects) > 0 && m.formula != nil {
		if m.rng.Float64() < m.formula.ReactionChance(m.variant.Kind, initScale) {
			pick := fx.ReactionEffects[m.rng.Intn(len(fx.ReactionEffects))]
			m.host.SpawnEffect(initiator, pick, initScale)
		}
	}

	m.host.Kill(initiator, target, fx.Silent)

	from, to := host.RefOf(target), host.RefOf(initiator)
	scale := fx.TransferScale
	m.sched.RunOnce(task.Key{Subsystem: m.variant.Kind + ".transfer", Entity: target.ID()}, func(*task.Context) {
		src, ok := from.Get(m.host)
		if !ok {
			return
		}
		dst, ok := to.Get(m.host)
		if !ok {
			return
		}
		m.host.TransferInventory(src, dst, scale)
	})

	effect := fx.DustEffect
	if m.host.Has(target, host.CapLiving) {
		effect = fx.DeathEffect
	}
	if effect != "" {
		m.host.SpawnEffect(target, effect, fx.EffectScale*m.host.Scale(target))
	}

	if m.bus != nil {
		event.Emit(m.bus, event.KillReported{
			Kind:          m.variant.Kind,
			Initiator:     initiator.ID(),
			Target:        target.ID(),
			InitiatorName: initiator.DisplayName(),
			TargetName:    target.DisplayName(),
			At:            now,
		})
	}
	m.log.Info("resolution finished",
		zap.String("initiator", initiator.DisplayName()),
		zap.String("target", target.DisplayName()),
	)
}

// Pending reports whether id has a record that has not been reaped yet.
func (m *Machine) Pending(id ecs.EntityID) bool {
	_, ok := m.records[id]
	return ok
}

// State returns the record state of id.
func (m *Machine) State(id ecs.EntityID) (State, bool) {
	rec, ok := m.records[id]
	if !ok {
		return Healthy, false
	}
	return rec.state, true
}

// Len returns the number of records.
func (m *Machine) Len() int { return len(m.records) }

// Reset drops every record.
func (m *Machine) Reset() {
	clear(m.records)
	clear(m.done)
	m.order = m.order[:0]
}

// ResetEntity drops records naming id as target or initiator.
func (m *Machine) ResetEntity(id ecs.EntityID) {
	delete(m.done, id)
	write := 0
	for _, tid := range m.order {
		rec, ok := m.records[tid]
		if !ok {
			continue
		}
		if tid == id || rec.initiator.ID() == id {
			delete(m.records, tid)
			continue
		}
		m.order[write] = tid
		write++
	}
	m.order = m.order[:write]
}
