package task

import (
	"fmt"

	"github.com/gtsplugin/sizecore/internal/core/ecs"
)

// Key identifies a task. Two registrations with equal keys name the same task;
// the second replaces the first. Subsystem namespaces unrelated callers so they
// cannot collide by accident, Entity ties the task to the entity it serves and
// Sub distinguishes several tasks one subsystem keeps for the same entity.
type Key struct {
	Subsystem string
	Entity    ecs.EntityID
	Sub       string
}

// For is shorthand for a key with no sub-tag.
func For(subsystem string, entity ecs.EntityID) Key {
	return Key{Subsystem: subsystem, Entity: entity}
}

func (k Key) String() string {
	if k.Sub == "" {
		return fmt.Sprintf("%s/%s", k.Subsystem, k.Entity)
	}
	return fmt.Sprintf("%s/%s/%s", k.Subsystem, k.Entity, k.Sub)
}

// Phase selects which host pump drives a task.
type Phase int

const (
	PhaseFrame   Phase = iota // once per rendered frame
	PhasePhysics              // once per physics sub-step
)

func (p Phase) String() string {
	switch p {
	case PhaseFrame:
		return "frame"
	case PhasePhysics:
		return "physics"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// ParsePhase maps a config string onto a Phase.
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "frame":
		return PhaseFrame, nil
	case "physics", "havok", "substep":
		return PhasePhysics, nil
	}
	return PhaseFrame, fmt.Errorf("unknown task phase %q", s)
}
