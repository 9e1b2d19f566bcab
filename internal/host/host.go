// Package host declares the collaborator interfaces the gameplay core consumes
// from the simulation that embeds it, and the fire-and-forget commands it sends
// back. Nothing here is implemented by the core; internal/world provides an
// in-memory implementation for tests and the soak binary.
package host

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gtsplugin/sizecore/internal/core/ecs"
)

// Entity is a live, resolved simulation entity. Values must not be retained
// across ticks; keep a Ref instead.
type Entity interface {
	ID() ecs.EntityID
	DisplayName() string
	Position() mgl64.Vec3
	Dead() bool
}

// Resolver backs Ref. Lookup returns false when the id is stale.
type Resolver interface {
	Lookup(id ecs.EntityID) (Entity, bool)
}

// Attribute names a numeric actor value the core may read or mutate.
type Attribute int

const (
	AttrHealth Attribute = iota
	AttrStamina
	AttrScale
)

func (a Attribute) String() string {
	switch a {
	case AttrHealth:
		return "health"
	case AttrStamina:
		return "stamina"
	case AttrScale:
		return "scale"
	}
	return "unknown"
}

// Capability is a host-reported trait that can exempt an entity from an effect.
type Capability int

const (
	CapFlying Capability = iota
	CapEthereal
	CapLiving // flesh and blood; non-living targets leave dust instead of gore
)

func (c Capability) String() string {
	switch c {
	case CapFlying:
		return "flying"
	case CapEthereal:
		return "ethereal"
	case CapLiving:
		return "living"
	}
	return "unknown"
}

// Poser answers pose-dependent queries against an entity's current skeleton.
type Poser interface {
	// AttachPoint returns the world position of the named node on holder.
	AttachPoint(holder Entity, node string) (mgl64.Vec3, bool)
}

// Sizer exposes the visual scale and attribute values of an entity.
type Sizer interface {
	Scale(e Entity) float64
	Attribute(e Entity, attr Attribute) float64
}

// Capabilities are the host predicates consulted by gates.
type Capabilities interface {
	IsEssential(initiator, target Entity) bool
	Has(e Entity, c Capability) bool
	// InteractionPermitted reports whether an active interaction of the given
	// kind may continue given current animation and condition state.
	InteractionPermitted(kind string, holder, held Entity) bool
}

// Commands are fire-and-forget requests; no result is read back.
type Commands interface {
	Teleport(e Entity, point mgl64.Vec3, suppressPhysics bool)
	ModAttribute(e Entity, attr Attribute, delta float64)
	ForceHostility(victim, aggressor Entity)
	Kill(killer, victim Entity, silent bool)
	TransferInventory(from, to Entity, scale float64)
	SpawnEffect(at Entity, effect string, scale float64)
	// ClearTransient resets short-lived flags (reanimation, being-held) on e.
	ClearTransient(e Entity)
}

// Notifier surfaces player-facing feedback lines.
type Notifier interface {
	Notify(text string)
}

// Clock reports elapsed simulation time. It stops while the host is paused
// and stretches with the host's time scale; it is never wall-clock time.
type Clock interface {
	Now() time.Duration
}

// Host bundles every collaborator the core talks to.
type Host interface {
	Resolver
	Poser
	Sizer
	Capabilities
	Commands
	Notifier
	Clock
}
