package component

import "github.com/gtsplugin/sizecore/internal/core/ecs"

// Status stores transient combat flags.
type Status struct {
	HostileTo ecs.EntityID // last forced aggressor, zero = none
	Transient bool         // being-held / reanimated flag cleared before a kill
	Busy      bool         // animation lock; blocks holding interactions
}
