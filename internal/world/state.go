package world

import (
	"math/rand"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gtsplugin/sizecore/internal/component"
	"github.com/gtsplugin/sizecore/internal/core/ecs"
	"github.com/gtsplugin/sizecore/internal/data"
	"github.com/gtsplugin/sizecore/internal/host"
	"go.uber.org/zap"
)

// CommandKind names a host command received from the core.
type CommandKind int

const (
	CmdTeleport CommandKind = iota
	CmdModAttribute
	CmdForceHostility
	CmdKill
	CmdTransferInventory
	CmdSpawnEffect
	CmdClearTransient

	numCommandKinds
)

func (k CommandKind) String() string {
	switch k {
	case CmdTeleport:
		return "teleport"
	case CmdModAttribute:
		return "mod_attribute"
	case CmdForceHostility:
		return "force_hostility"
	case CmdKill:
		return "kill"
	case CmdTransferInventory:
		return "transfer_inventory"
	case CmdSpawnEffect:
		return "spawn_effect"
	case CmdClearTransient:
		return "clear_transient"
	}
	return "unknown"
}

// Command is one recorded host command.
type Command struct {
	Kind   CommandKind
	At     time.Duration
	Actor  ecs.EntityID // subject: teleported, modified, victim, source, effect anchor
	Other  ecs.EntityID // aggressor, killer or inventory destination
	Attr   host.Attribute
	Value  float64
	Text   string // effect path or notification line
	Flag   bool   // suppressPhysics or silent
	Target mgl64.Vec3
}

// Handle is the host.Entity view of a sandbox actor. A handle is only valid
// for the tick it was resolved on.
type Handle struct {
	id    ecs.EntityID
	actor *component.Actor
	body  *component.Body
}

func (h *Handle) ID() ecs.EntityID        { return h.id }
func (h *Handle) DisplayName() string     { return h.actor.Name }
func (h *Handle) Position() mgl64.Vec3    { return h.body.Position }
func (h *Handle) Dead() bool              { return h.actor.Dead }
func (h *Handle) Actor() *component.Actor { return h.actor }

// State is the in-memory host: it owns every sandbox actor and implements
// host.Host on top of the ECS stores. Accessed only from the simulation
// goroutine, except Notify which may be called from the input path.
type State struct {
	ecs     *ecs.World
	actors  *ecs.PtrComponentStore[component.Actor]
	bodies  *ecs.PtrComponentStore[component.Body]
	status  *ecs.PtrComponentStore[component.Status]
	inv     *ecs.PtrComponentStore[Inventory]
	handles *ecs.PtrComponentStore[Handle]

	grid  *AOIGrid
	clock *Clock
	log   *zap.Logger

	// Record keeps every command in Commands(); off in the soak binary.
	Record   bool
	commands []Command
	counts   [numCommandKinds]int

	noteMu sync.Mutex
	notes  []string

	// Permit, when set, overrides InteractionPermitted after the built-in checks.
	Permit func(kind string, holder, held host.Entity) bool

	// CorpseTime is how long a dead actor stays before it is despawned.
	CorpseTime time.Duration
}

var _ host.Host = (*State)(nil)

func NewState(clock *Clock, log *zap.Logger) *State {
	w := ecs.NewWorld()
	s := &State{
		ecs:        w,
		actors:     ecs.NewPtrComponentStore[component.Actor](),
		bodies:     ecs.NewPtrComponentStore[component.Body](),
		status:     ecs.NewPtrComponentStore[component.Status](),
		inv:        ecs.NewPtrComponentStore[Inventory](),
		handles:    ecs.NewPtrComponentStore[Handle](),
		grid:       NewAOIGrid(),
		clock:      clock,
		log:        log,
		CorpseTime: 5 * time.Second,
	}
	reg := w.Registry()
	reg.Register(s.actors)
	reg.Register(s.bodies)
	reg.Register(s.status)
	reg.Register(s.inv)
	reg.Register(s.handles)
	return s
}

// Clock returns the sandbox clock.
func (s *State) Clock() *Clock { return s.clock }

// Spawn creates an actor from a template at pos.
func (s *State) Spawn(tmpl *data.ActorTemplate, pos mgl64.Vec3) ecs.EntityID {
	id := s.ecs.CreateEntity()
	a := &component.Actor{
		Name:       tmpl.Name,
		Template:   tmpl.Name,
		Scale:      tmpl.Scale,
		Health:     tmpl.Health,
		MaxHealth:  tmpl.Health,
		Stamina:    tmpl.Stamina,
		MaxStamina: tmpl.Stamina,
		Living:     tmpl.Living,
		Essential:  tmpl.Essential,
		Flying:     tmpl.Flying,
		Ethereal:   tmpl.Ethereal,
	}
	b := &component.Body{
		Position: pos,
		Nodes:    make(map[string]mgl64.Vec3, len(tmpl.Nodes)),
	}
	for name, off := range tmpl.Nodes {
		b.Nodes[name] = mgl64.Vec3{off[0], off[1], off[2]}
	}
	inv := NewInventory()
	if tmpl.Items > 0 {
		inv.AddItem(tmpl.Name+" loot", tmpl.Items)
	}
	s.actors.Set(id, a)
	s.bodies.Set(id, b)
	s.status.Set(id, &component.Status{})
	s.inv.Set(id, inv)
	s.handles.Set(id, &Handle{id: id, actor: a, body: b})
	s.grid.Add(id, pos)
	return id
}

// SpawnAll places every spawn entry of the actor table, scattering positions
// by the entry's random range.
func (s *State) SpawnAll(table *data.ActorTable, rng *rand.Rand) int {
	n := 0
	for _, sp := range table.Spawns() {
		tmpl := table.Get(sp.Name)
		for i := 0; i < sp.Count; i++ {
			pos := mgl64.Vec3{sp.X, sp.Y, sp.Z}
			if sp.RandomX > 0 {
				pos[0] += (rng.Float64()*2 - 1) * sp.RandomX
			}
			if sp.RandomY > 0 {
				pos[1] += (rng.Float64()*2 - 1) * sp.RandomY
			}
			s.Spawn(tmpl, pos)
			n++
		}
	}
	return n
}

// Despawn queues id for removal at the next Flush.
func (s *State) Despawn(id ecs.EntityID) {
	if s.ecs.Alive(id) && !s.ecs.Pending(id) {
		s.ecs.MarkForDestruction(id)
	}
}

// ReapCorpses queues every actor dead for longer than CorpseTime.
func (s *State) ReapCorpses() int {
	now := s.clock.Now()
	n := 0
	s.actors.Each(func(id ecs.EntityID, a *component.Actor) {
		if a.Dead && now-a.DiedAt >= s.CorpseTime && !s.ecs.Pending(id) {
			s.ecs.MarkForDestruction(id)
			n++
		}
	})
	return n
}

// Flush destroys queued actors and returns their ids.
func (s *State) Flush() []ecs.EntityID {
	for _, id := range s.ecs.PendingIDs() {
		if b, ok := s.bodies.Get(id); ok {
			s.grid.Remove(id, b.Position)
		}
	}
	return s.ecs.FlushDestroyQueue()
}

// Clear removes every actor, as on a new game or load.
func (s *State) Clear() {
	s.ecs.Clear()
	s.grid.Clear()
}

// Count returns the number of actors, dead or alive.
func (s *State) Count() int { return s.actors.Len() }

// Actor returns the actor component of id.
func (s *State) Actor(id ecs.EntityID) (*component.Actor, bool) {
	if !s.ecs.Alive(id) {
		return nil, false
	}
	return s.actors.Get(id)
}

// Body returns the body component of id.
func (s *State) Body(id ecs.EntityID) (*component.Body, bool) {
	if !s.ecs.Alive(id) {
		return nil, false
	}
	return s.bodies.Get(id)
}

// Status returns the status component of id.
func (s *State) Status(id ecs.EntityID) (*component.Status, bool) {
	if !s.ecs.Alive(id) {
		return nil, false
	}
	return s.status.Get(id)
}

// Inventory returns the inventory of id.
func (s *State) Inventory(id ecs.EntityID) (*Inventory, bool) {
	if !s.ecs.Alive(id) {
		return nil, false
	}
	return s.inv.Get(id)
}

// SetBusy toggles the animation lock of id.
func (s *State) SetBusy(id ecs.EntityID, busy bool) {
	if st, ok := s.Status(id); ok {
		st.Busy = busy
	}
}

// Living returns the ids of every actor that is not dead, in no fixed order.
func (s *State) Living() []ecs.EntityID {
	ids := make([]ecs.EntityID, 0, s.actors.Len())
	s.actors.Each(func(id ecs.EntityID, a *component.Actor) {
		if !a.Dead {
			ids = append(ids, id)
		}
	})
	return ids
}

// Census counts actors by condition.
type Census struct {
	Living  int
	Dead    int
	Held    int // physics suppressed by an attach loop
	Hostile int
}

// Census walks every actor once.
func (s *State) Census() Census {
	var c Census
	ecs.Each3(s.actors, s.bodies, s.status, func(_ ecs.EntityID, a *component.Actor, b *component.Body, st *component.Status) {
		if a.Dead {
			c.Dead++
			return
		}
		c.Living++
		if b.Suppressed {
			c.Held++
		}
		if !st.HostileTo.IsZero() {
			c.Hostile++
		}
	})
	return c
}

// Nearby returns living actors within radius of id on the ground plane.
func (s *State) Nearby(id ecs.EntityID, radius float64) []ecs.EntityID {
	b, ok := s.Body(id)
	if !ok {
		return nil
	}
	var out []ecs.EntityID
	for _, other := range s.grid.GetNearby(b.Position) {
		if other == id {
			continue
		}
		a, ok := s.Actor(other)
		if !ok || a.Dead {
			continue
		}
		ob, _ := s.bodies.Get(other)
		d := ob.Position.Sub(b.Position)
		if d.X()*d.X()+d.Y()*d.Y() <= radius*radius {
			out = append(out, other)
		}
	}
	return out
}

// Commands returns recorded commands when Record is set.
func (s *State) Commands() []Command { return s.commands }

// CommandsOf returns the recorded commands of one kind.
func (s *State) CommandsOf(kind CommandKind) []Command {
	var out []Command
	for _, c := range s.commands {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// CommandCount returns how many commands of kind arrived since the last
// ResetCommands, whether or not Record is set.
func (s *State) CommandCount(kind CommandKind) int { return s.counts[kind] }

// ResetCommands clears the command record and counters.
func (s *State) ResetCommands() {
	s.commands = s.commands[:0]
	s.counts = [numCommandKinds]int{}
}

// Notes returns every notification line received.
func (s *State) Notes() []string {
	s.noteMu.Lock()
	defer s.noteMu.Unlock()
	return append([]string(nil), s.notes...)
}

func (s *State) record(c Command) {
	s.counts[c.Kind]++
	if !s.Record {
		return
	}
	c.At = s.clock.Now()
	s.commands = append(s.commands, c)
}

func (s *State) handle(e host.Entity) (*Handle, bool) {
	if e == nil {
		return nil, false
	}
	return s.handles.Get(e.ID())
}

// --- host.Resolver ---

func (s *State) Lookup(id ecs.EntityID) (host.Entity, bool) {
	if !s.ecs.Alive(id) {
		return nil, false
	}
	h, ok := s.handles.Get(id)
	if !ok {
		return nil, false
	}
	return h, true
}

// --- host.Poser ---

func (s *State) AttachPoint(holder host.Entity, node string) (mgl64.Vec3, bool) {
	h, ok := s.handle(holder)
	if !ok {
		return mgl64.Vec3{}, false
	}
	off, ok := h.body.Nodes[node]
	if !ok {
		return mgl64.Vec3{}, false
	}
	return h.body.Position.Add(off.Mul(h.actor.Scale)), true
}

// --- host.Sizer ---

func (s *State) Scale(e host.Entity) float64 {
	h, ok := s.handle(e)
	if !ok {
		return 0
	}
	return h.actor.Scale
}

func (s *State) Attribute(e host.Entity, attr host.Attribute) float64 {
	h, ok := s.handle(e)
	if !ok {
		return 0
	}
	switch attr {
	case host.AttrHealth:
		return h.actor.Health
	case host.AttrStamina:
		return h.actor.Stamina
	case host.AttrScale:
		return h.actor.Scale
	}
	return 0
}

// --- host.Capabilities ---

func (s *State) IsEssential(_, target host.Entity) bool {
	h, ok := s.handle(target)
	return ok && h.actor.Essential
}

func (s *State) Has(e host.Entity, c host.Capability) bool {
	h, ok := s.handle(e)
	if !ok {
		return false
	}
	switch c {
	case host.CapFlying:
		return h.actor.Flying
	case host.CapEthereal:
		return h.actor.Ethereal
	case host.CapLiving:
		return h.actor.Living
	}
	return false
}

func (s *State) InteractionPermitted(kind string, holder, held host.Entity) bool {
	st, ok := s.Status(holder.ID())
	if !ok || st.Busy {
		return false
	}
	if s.Permit != nil {
		return s.Permit(kind, holder, held)
	}
	return true
}

// --- host.Commands ---

func (s *State) Teleport(e host.Entity, point mgl64.Vec3, suppressPhysics bool) {
	h, ok := s.handle(e)
	if !ok {
		return
	}
	s.grid.Move(h.id, h.body.Position, point)
	h.body.Position = point
	h.body.Suppressed = suppressPhysics
	s.record(Command{Kind: CmdTeleport, Actor: h.id, Target: point, Flag: suppressPhysics})
}

func (s *State) ModAttribute(e host.Entity, attr host.Attribute, delta float64) {
	h, ok := s.handle(e)
	if !ok {
		return
	}
	a := h.actor
	switch attr {
	case host.AttrHealth:
		a.Health = clamp(a.Health+delta, 0, a.MaxHealth)
		if a.Health <= 0 && !a.Dead {
			a.Dead = true
			a.DiedAt = s.clock.Now()
		}
	case host.AttrStamina:
		a.Stamina = clamp(a.Stamina+delta, 0, a.MaxStamina)
	case host.AttrScale:
		a.Scale += delta
		if a.Scale < 0 {
			a.Scale = 0
		}
	}
	s.record(Command{Kind: CmdModAttribute, Actor: h.id, Attr: attr, Value: delta})
}

func (s *State) ForceHostility(victim, aggressor host.Entity) {
	h, ok := s.handle(victim)
	if !ok || aggressor == nil {
		return
	}
	if st, ok := s.status.Get(h.id); ok {
		st.HostileTo = aggressor.ID()
	}
	s.record(Command{Kind: CmdForceHostility, Actor: h.id, Other: aggressor.ID()})
}

func (s *State) Kill(killer, victim host.Entity, silent bool) {
	h, ok := s.handle(victim)
	if !ok {
		return
	}
	var kid ecs.EntityID
	if killer != nil {
		kid = killer.ID()
	}
	a := h.actor
	if !a.Dead {
		a.Dead = true
		a.DiedAt = s.clock.Now()
	}
	a.Health = 0
	a.Killer = kid
	a.Silenced = silent
	s.record(Command{Kind: CmdKill, Actor: h.id, Other: kid, Flag: silent})
}

func (s *State) TransferInventory(from, to host.Entity, scale float64) {
	src, ok := s.handle(from)
	if !ok {
		return
	}
	dst, ok := s.handle(to)
	if !ok {
		return
	}
	si, _ := s.inv.Get(src.id)
	di, _ := s.inv.Get(dst.id)
	moved := 0
	if si != nil && di != nil {
		moved = si.TransferAll(di, scale)
	}
	s.log.Debug("inventory transferred",
		zap.Stringer("from", src.id),
		zap.Stringer("to", dst.id),
		zap.Int("items", moved),
	)
	s.record(Command{Kind: CmdTransferInventory, Actor: src.id, Other: dst.id, Value: scale})
}

func (s *State) SpawnEffect(at host.Entity, effect string, scale float64) {
	h, ok := s.handle(at)
	if !ok {
		return
	}
	s.record(Command{Kind: CmdSpawnEffect, Actor: h.id, Text: effect, Value: scale})
}

func (s *State) ClearTransient(e host.Entity) {
	h, ok := s.handle(e)
	if !ok {
		return
	}
	if st, ok := s.status.Get(h.id); ok {
		st.Transient = false
	}
	h.body.Suppressed = false
	s.record(Command{Kind: CmdClearTransient, Actor: h.id})
}

// --- host.Notifier ---

func (s *State) Notify(text string) {
	s.noteMu.Lock()
	s.notes = append(s.notes, text)
	s.noteMu.Unlock()
	s.log.Info(text)
}

// --- host.Clock ---

func (s *State) Now() time.Duration { return s.clock.Now() }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if hi > 0 && v > hi {
		return hi
	}
	return v
}
