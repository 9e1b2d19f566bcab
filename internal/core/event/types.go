package event

import (
	"time"

	"github.com/gtsplugin/sizecore/internal/core/ecs"
)

// KillReported is emitted once per resolution record reaching Resolved.
type KillReported struct {
	Kind          string // "crush", "shrink"
	Initiator     ecs.EntityID
	Target        ecs.EntityID
	InitiatorName string
	TargetName    string
	At            time.Duration // simulation time of the kill
}

// EndReason tells why an interaction link went away.
type EndReason int

const (
	EndReleased  EndReason = iota // explicit release or input drop
	EndStale                      // holder or held no longer resolves
	EndGated                      // a gate rejected the next step
	EndEscaped                    // held entity broke free
	EndHandedOff                  // passed to a resolution machine
)

func (r EndReason) String() string {
	switch r {
	case EndReleased:
		return "released"
	case EndStale:
		return "stale"
	case EndGated:
		return "gated"
	case EndEscaped:
		return "escaped"
	case EndHandedOff:
		return "handed_off"
	}
	return "unknown"
}

// InteractionStarted is emitted when a holder begins a grab or hug.
type InteractionStarted struct {
	Kind   string
	Holder ecs.EntityID
	Held   ecs.EntityID
}

// InteractionEnded is emitted when an attach loop stops for any reason.
type InteractionEnded struct {
	Kind   string
	Holder ecs.EntityID
	Held   ecs.EntityID
	Reason EndReason
}
