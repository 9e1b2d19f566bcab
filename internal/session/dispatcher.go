package session

import (
	"time"

	"github.com/gtsplugin/sizecore/internal/core/ecs"
	coresys "github.com/gtsplugin/sizecore/internal/core/system"
	"github.com/gtsplugin/sizecore/internal/system"
	"go.uber.org/zap"
)

// Dispatcher is the single entry point for host callbacks. Frame and Substep
// pump the systems runner; lifecycle callbacks fan out to the session.
type Dispatcher struct {
	s      *Session
	runner *coresys.Runner
	log    *zap.Logger

	frames   uint64
	substeps uint64
	physics  bool
}

// NewDispatcher builds a runner with the core systems of s: event delivery,
// frame and physics task pumps and the resolution machines. Hosts add their
// own systems with Register.
func NewDispatcher(s *Session) *Dispatcher {
	r := coresys.NewRunner()
	r.Register(system.NewEventDispatchSystem(s.Bus))
	r.Register(system.NewFrameTaskSystem(s.Scheduler))
	r.Register(system.NewPhysicsTaskSystem(s.Scheduler))
	r.Register(system.NewResolutionSystem(s.Crush, s.Shrink))
	return &Dispatcher{s: s, runner: r, log: s.log, physics: true}
}

// Register adds a host system to the runner.
func (d *Dispatcher) Register(sys coresys.System) { d.runner.Register(sys) }

// Session returns the dispatched session.
func (d *Dispatcher) Session() *Session { return d.s }

// Frame runs every frame-phase system once.
func (d *Dispatcher) Frame(dt time.Duration) {
	d.frames++
	d.runner.Tick(dt)
}

// Substep pumps physics-phase tasks once.
func (d *Dispatcher) Substep(dt time.Duration) {
	d.substeps++
	d.runner.TickPhase(coresys.PhaseSubstep, dt)
}

// NewGame, PreLoad and PostLoad reset the whole session.
func (d *Dispatcher) NewGame()  { d.reset("new_game") }
func (d *Dispatcher) PreLoad()  { d.reset("pre_load") }
func (d *Dispatcher) PostLoad() { d.reset("post_load") }

func (d *Dispatcher) reset(reason string) {
	d.s.Reset()
	if !d.physics {
		d.PhysicsResumed()
	}
	d.log.Info("session reset", zap.String("reason", reason))
}

// Despawn forgets id everywhere. Implements system.Despawner.
func (d *Dispatcher) Despawn(id ecs.EntityID) {
	d.s.ResetEntity(id)
}

// PhysicsSuspended moves attach loops to the suspended phase so held
// entities stay pinned while the host stops sub-stepping (menus, cutscenes).
func (d *Dispatcher) PhysicsSuspended() {
	if !d.physics {
		return
	}
	d.physics = false
	d.s.Grab.MoveLoops(d.s.suspend)
	d.s.Hug.MoveLoops(d.s.suspend)
}

// PhysicsResumed moves attach loops back to their normal phase.
func (d *Dispatcher) PhysicsResumed() {
	if d.physics {
		return
	}
	d.physics = true
	d.s.Grab.MoveLoops(d.s.attach)
	d.s.Hug.MoveLoops(d.s.attach)
}

// Stats reports pump counters.
func (d *Dispatcher) Stats() (frames, substeps uint64) { return d.frames, d.substeps }
