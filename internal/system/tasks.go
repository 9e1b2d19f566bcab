package system

import (
	"time"

	coresys "github.com/gtsplugin/sizecore/internal/core/system"
	"github.com/gtsplugin/sizecore/internal/task"
)

// TaskSystem pumps one scheduler phase. The frame pump runs in Phase 2
// (Update); the physics pump runs once per sub-step (PhaseSubstep).
type TaskSystem struct {
	sched *task.Scheduler
	phase task.Phase
	at    coresys.Phase
}

func NewFrameTaskSystem(sched *task.Scheduler) *TaskSystem {
	return &TaskSystem{sched: sched, phase: task.PhaseFrame, at: coresys.PhaseUpdate}
}

func NewPhysicsTaskSystem(sched *task.Scheduler) *TaskSystem {
	return &TaskSystem{sched: sched, phase: task.PhasePhysics, at: coresys.PhaseSubstep}
}

func (s *TaskSystem) Phase() coresys.Phase { return s.at }

func (s *TaskSystem) Update(_ time.Duration) {
	s.sched.Tick(s.phase)
}
