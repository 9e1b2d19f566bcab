// Package session bundles every gameplay registry of one game session into a
// single value and routes host lifecycle callbacks to it.
package session

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/gtsplugin/sizecore/internal/core/ecs"
	"github.com/gtsplugin/sizecore/internal/core/event"
	"github.com/gtsplugin/sizecore/internal/data"
	"github.com/gtsplugin/sizecore/internal/host"
	"github.com/gtsplugin/sizecore/internal/interaction"
	"github.com/gtsplugin/sizecore/internal/resolution"
	"github.com/gtsplugin/sizecore/internal/system"
	"github.com/gtsplugin/sizecore/internal/task"
	"go.uber.org/zap"
)

// Formulas is everything the registries and machines read from scripts.
// *scripting.Engine implements it.
type Formulas interface {
	interaction.Formulas
	resolution.Formulas
}

// Options configure a Session.
type Options struct {
	Host            host.Host
	Formulas        Formulas
	Interactions    *data.InteractionTable
	Effects         *data.EffectTable
	AttachPhase     task.Phase    // where attach loops normally run
	SuspendedPhase  task.Phase    // where they run while physics is suspended
	DefaultStrength float64       // used by requests without an amount
	HugShrinkFor    time.Duration // span of one hug size steal
	ResolutionDelay time.Duration
	Seed            int64 // 0 = wall clock
	Log             *zap.Logger
}

// Session owns the scheduler, both interaction registries and both resolution
// machines. Everything is driven from one simulation goroutine; only Hug.Drop
// may be called from elsewhere.
type Session struct {
	ID        uuid.UUID
	Scheduler *task.Scheduler
	Grab      *interaction.Grab
	Hug       *interaction.Hug
	Crush     *resolution.Machine
	Shrink    *resolution.Machine
	Bus       *event.Bus

	host     host.Host
	strength float64
	attach   task.Phase
	suspend  task.Phase
	log      *zap.Logger
}

func New(opts Options) *Session {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	strength := opts.DefaultStrength
	if strength <= 0 {
		strength = 1
	}

	id := uuid.New()
	log := opts.Log.With(zap.String("session", id.String()))
	s := &Session{
		ID:        id,
		Scheduler: task.NewScheduler(opts.Host, log.Named("task")),
		Bus:       event.NewBus(),
		host:      opts.Host,
		strength:  strength,
		attach:    opts.AttachPhase,
		suspend:   opts.SuspendedPhase,
		log:       log,
	}

	rdeps := resolution.Deps{
		Host:      opts.Host,
		Scheduler: s.Scheduler,
		Formulas:  opts.Formulas,
		Bus:       s.Bus,
		Rand:      rng,
		Delay:     opts.ResolutionDelay,
		Log:       log,
	}
	s.Crush = resolution.NewMachine(resolution.Crush(opts.Effects), rdeps)
	s.Shrink = resolution.NewMachine(resolution.Shrink(opts.Effects), rdeps)

	s.Grab = interaction.NewGrab(s.interactionDeps(opts, "grab", s.Crush, rng))
	s.Hug = interaction.NewHug(s.interactionDeps(opts, "hug", s.Shrink, rng), opts.HugShrinkFor)
	return s
}

func (s *Session) interactionDeps(opts Options, kind string, fallback *resolution.Machine, rng *rand.Rand) interaction.Deps {
	var tuning *data.InteractionEntry
	if opts.Interactions != nil {
		tuning = opts.Interactions.Get(kind)
	}
	if tuning == nil {
		s.log.Warn("no tuning for interaction, using defaults", zap.String("kind", kind))
	}
	handoff := fallback
	if tuning != nil {
		switch tuning.Handoff {
		case "crush":
			handoff = s.Crush
		case "shrink":
			handoff = s.Shrink
		}
	}
	return interaction.Deps{
		Host:        opts.Host,
		Scheduler:   s.Scheduler,
		Tuning:      tuning,
		Formulas:    opts.Formulas,
		Handoff:     handoff,
		Bus:         s.Bus,
		AttachPhase: opts.AttachPhase,
		Rand:        rng,
		Log:         s.log,
	}
}

// Host returns the host the session talks to.
func (s *Session) Host() host.Host { return s.host }

// Reset drops every link, record and task. Subscribers stay registered.
func (s *Session) Reset() {
	s.Grab.Reset()
	s.Hug.Reset()
	s.Crush.Reset()
	s.Shrink.Reset()
	s.Scheduler.Reset()
	s.Bus.Clear()
}

// ResetEntity forgets id everywhere: links, records and every task keyed by it.
func (s *Session) ResetEntity(id ecs.EntityID) {
	s.Grab.ResetEntity(id)
	s.Hug.ResetEntity(id)
	s.Crush.ResetEntity(id)
	s.Shrink.ResetEntity(id)
	s.Scheduler.CancelEntity(id)
}

// Apply runs one player request. Unknown ops and stale ids return false.
func (s *Session) Apply(req system.Request) bool {
	switch req.Op {
	case "release":
		return s.Grab.Release(req.Actor) || s.Hug.Release(req.Actor)
	case "struggle":
		return s.Grab.Struggle(req.Actor)
	case "squeeze":
		return s.Grab.Squeeze(req.Actor, req.Amount)
	case "absorb":
		return s.Hug.ShrinkHeld(req.Actor)
	}

	actor, ok := host.RefTo(req.Actor).Get(s.host)
	if !ok {
		return false
	}
	target, ok := host.RefTo(req.Target).Get(s.host)
	if !ok {
		return false
	}
	strength := req.Amount
	if strength <= 0 {
		strength = s.strength
	}
	switch req.Op {
	case "grab":
		return s.Grab.Begin(actor, target, strength)
	case "hug":
		return s.Hug.Begin(actor, target, strength)
	case "crush":
		return s.Crush.Begin(actor, target)
	case "shrink":
		return s.Shrink.Begin(actor, target)
	}
	s.log.Debug("unknown request", zap.String("op", req.Op))
	return false
}
