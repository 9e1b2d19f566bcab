package system

import "time"

// Phase defines execution ordering within a single frame.
type Phase int

const (
	PhaseInput      Phase = iota // 0: drain queued player commands
	PhasePreUpdate               // 1: deliver last frame's events
	PhaseUpdate                  // 2: frame-phase tasks
	PhasePostUpdate              // 3: resolution machines
	PhaseOutput                  // 4: notifications
	PhasePersist                 // 5: kill ledger flush
	PhaseCleanup                 // 6: destroy queued entities

	// PhaseSubstep runs only through TickPhase, once per physics sub-step.
	PhaseSubstep
)

// System is the interface every system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
