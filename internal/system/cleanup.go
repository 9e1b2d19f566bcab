package system

import (
	"time"

	"github.com/gtsplugin/sizecore/internal/core/ecs"
	coresys "github.com/gtsplugin/sizecore/internal/core/system"
	"github.com/gtsplugin/sizecore/internal/world"
)

// Despawner receives every destroyed id so registries and tasks can forget it.
type Despawner interface {
	Despawn(id ecs.EntityID)
}

// CleanupSystem queues expired corpses, flushes the deferred destruction
// queue at frame end and fans out a despawn per destroyed actor.
// Phase 6 (Cleanup).
type CleanupSystem struct {
	world   *world.State
	despawn Despawner
}

func NewCleanupSystem(ws *world.State, despawn Despawner) *CleanupSystem {
	return &CleanupSystem{world: ws, despawn: despawn}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	s.world.ReapCorpses()
	for _, id := range s.world.Flush() {
		s.despawn.Despawn(id)
	}
}
