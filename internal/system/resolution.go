package system

import (
	"time"

	coresys "github.com/gtsplugin/sizecore/internal/core/system"
	"github.com/gtsplugin/sizecore/internal/resolution"
)

// ResolutionSystem advances every resolution machine once per frame.
// Phase 3 (PostUpdate).
type ResolutionSystem struct {
	machines []*resolution.Machine
}

func NewResolutionSystem(machines ...*resolution.Machine) *ResolutionSystem {
	return &ResolutionSystem{machines: machines}
}

func (s *ResolutionSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *ResolutionSystem) Update(_ time.Duration) {
	for _, m := range s.machines {
		m.Update()
	}
}
