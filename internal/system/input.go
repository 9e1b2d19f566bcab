package system

import (
	"time"

	"github.com/gtsplugin/sizecore/internal/core/ecs"
	coresys "github.com/gtsplugin/sizecore/internal/core/system"
	"go.uber.org/zap"
)

// Request is a player command entered outside the simulation goroutine.
type Request struct {
	Op     string // grab, hug, release, struggle, squeeze, absorb, crush, shrink
	Actor  ecs.EntityID
	Target ecs.EntityID
	Amount float64 // strength or damage, op dependent
}

// Actions applies a request on the simulation goroutine.
type Actions interface {
	Apply(req Request) bool
}

// InputSystem drains the request queue and applies each request.
// Phase 0 (Input).
type InputSystem struct {
	in         <-chan Request
	actions    Actions
	maxPerTick int
	log        *zap.Logger
}

func NewInputSystem(in <-chan Request, actions Actions, maxPerTick int, log *zap.Logger) *InputSystem {
	if maxPerTick < 1 {
		maxPerTick = 32
	}
	return &InputSystem{
		in:         in,
		actions:    actions,
		maxPerTick: maxPerTick,
		log:        log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	for i := 0; i < s.maxPerTick; i++ {
		select {
		case req := <-s.in:
			ok := s.actions.Apply(req)
			s.log.Debug("request applied",
				zap.String("op", req.Op),
				zap.Stringer("actor", req.Actor),
				zap.Stringer("target", req.Target),
				zap.Bool("ok", ok),
			)
		default:
			return
		}
	}
}
