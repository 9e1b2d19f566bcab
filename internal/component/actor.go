package component

import (
	"time"

	"github.com/gtsplugin/sizecore/internal/core/ecs"
)

// Actor stores the size and vitals of a sandbox actor.
// Pure data, zero methods; all mutations happen in world.State.
type Actor struct {
	Name     string
	Template string

	Scale      float64
	Health     float64
	MaxHealth  float64
	Stamina    float64
	MaxStamina float64

	Living    bool // false for undead, golems and the like (dust instead of gore)
	Essential bool
	Flying    bool
	Ethereal  bool

	Dead     bool
	DiedAt   time.Duration // simulation time, valid when Dead
	Killer   ecs.EntityID
	Silenced bool // killed without a death cry
}
