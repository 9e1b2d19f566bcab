// Package task implements the cooperative scheduler every time-extended
// gameplay behavior runs on. Tasks are resumable closures: each tick the
// scheduler calls the body once, and the body decides whether it wants to be
// called again. There is no preemption and no goroutine per task; the table is
// owned by the simulation goroutine and is not safe for concurrent use.
package task

import (
	"time"

	"github.com/gtsplugin/sizecore/internal/core/ecs"
	"github.com/gtsplugin/sizecore/internal/host"
	"go.uber.org/zap"
)

// Context is handed to a body on every invocation. Times are simulation time
// read from the host clock.
type Context struct {
	Key     Key
	Phase   Phase
	Start   time.Duration // when the task was registered
	Now     time.Duration
	Elapsed time.Duration // Now - Start
	Delta   time.Duration // since the previous invocation, or since Start
	Calls   int           // 1 on the first invocation
}

// Body returns true to be called again on the next matching tick.
type Body func(ctx *Context) bool

type entry struct {
	key   Key
	phase Phase
	body  Body
	once  bool
	limit time.Duration // 0 = unlimited

	start time.Duration
	last  time.Duration
	calls int
	dead  bool
}

// Scheduler owns the task table.
type Scheduler struct {
	clock host.Clock
	log   *zap.Logger

	tasks   map[Key]*entry
	order   []*entry // registration order, may hold dead entries until compaction
	dead    int
	scratch []*entry
	ticking bool
}

func NewScheduler(clock host.Clock, log *zap.Logger) *Scheduler {
	return &Scheduler{
		clock:   clock,
		log:     log,
		tasks:   make(map[Key]*entry, 128),
		order:   make([]*entry, 0, 128),
		scratch: make([]*entry, 0, 128),
	}
}

// Register inserts body under key, replacing any live task with the same key.
// The replaced body is dropped immediately and never invoked again, even if it
// is the task currently running.
func (s *Scheduler) Register(key Key, phase Phase, body Body) {
	s.insert(&entry{key: key, phase: phase, body: body})
}

// RunOnce registers a frame task that is removed after its first invocation.
func (s *Scheduler) RunOnce(key Key, fn func(ctx *Context)) {
	s.insert(&entry{key: key, phase: PhaseFrame, once: true, body: func(ctx *Context) bool {
		fn(ctx)
		return false
	}})
}

// RunFor registers a task that is cancelled once d of simulation time has
// elapsed since registration, even if body keeps returning true.
func (s *Scheduler) RunFor(key Key, phase Phase, d time.Duration, body Body) {
	if d <= 0 {
		d = time.Nanosecond
	}
	s.insert(&entry{key: key, phase: phase, body: body, limit: d})
}

func (s *Scheduler) insert(e *entry) {
	if old, ok := s.tasks[e.key]; ok {
		s.kill(old)
	}
	now := s.clock.Now()
	e.start = now
	e.last = now
	s.tasks[e.key] = e
	s.order = append(s.order, e)
}

// Cancel removes the task under key. Absent keys are ignored.
func (s *Scheduler) Cancel(key Key) bool {
	e, ok := s.tasks[key]
	if !ok {
		return false
	}
	s.kill(e)
	s.maybeCompact()
	return true
}

// CancelEntity removes every task whose key names id and returns how many
// were removed.
func (s *Scheduler) CancelEntity(id ecs.EntityID) int {
	n := 0
	for key, e := range s.tasks {
		if key.Entity == id {
			s.kill(e)
			n++
		}
	}
	s.maybeCompact()
	return n
}

// ChangePhase moves a live task to another phase. Its identity, start time and
// call count are kept.
func (s *Scheduler) ChangePhase(key Key, phase Phase) bool {
	e, ok := s.tasks[key]
	if !ok {
		return false
	}
	e.phase = phase
	return true
}

// Has reports whether a live task is registered under key.
func (s *Scheduler) Has(key Key) bool {
	_, ok := s.tasks[key]
	return ok
}

// PhaseOf returns the phase of the live task under key.
func (s *Scheduler) PhaseOf(key Key) (Phase, bool) {
	e, ok := s.tasks[key]
	if !ok {
		return 0, false
	}
	return e.phase, true
}

// Len returns the number of live tasks.
func (s *Scheduler) Len() int { return len(s.tasks) }

// Keys returns live keys in registration order.
func (s *Scheduler) Keys() []Key {
	keys := make([]Key, 0, len(s.tasks))
	for _, e := range s.order {
		if !e.dead {
			keys = append(keys, e.key)
		}
	}
	return keys
}

// Reset drops every task. Called on world reset.
func (s *Scheduler) Reset() {
	for _, e := range s.order {
		e.dead = true
	}
	clear(s.tasks)
	s.order = s.order[:0]
	s.dead = 0
}

// Tick invokes every live task of the given phase once, in registration
// order. The pass walks a snapshot: tasks registered during the pass first run
// on the next tick, and tasks cancelled or replaced during the pass are skipped.
func (s *Scheduler) Tick(phase Phase) {
	if s.ticking {
		s.log.Warn("task tick re-entered from a task body", zap.Stringer("phase", phase))
		return
	}
	s.ticking = true
	defer func() { s.ticking = false }()

	now := s.clock.Now()
	s.scratch = append(s.scratch[:0], s.order...)
	for _, e := range s.scratch {
		if e.dead || e.phase != phase {
			continue
		}
		if e.limit > 0 && now-e.start >= e.limit {
			s.kill(e)
			continue
		}

		e.calls++
		ctx := Context{
			Key:     e.key,
			Phase:   phase,
			Start:   e.start,
			Now:     now,
			Elapsed: now - e.start,
			Delta:   now - e.last,
			Calls:   e.calls,
		}
		e.last = now

		keep := s.invoke(e, &ctx)
		if e.dead {
			continue // cancelled or replaced from inside its own body
		}
		if !keep || e.once {
			s.kill(e)
		}
	}
	for i := range s.scratch {
		s.scratch[i] = nil
	}
	s.compact()
}

// invoke isolates one body: a panic is logged and ends that task only.
func (s *Scheduler) invoke(e *entry, ctx *Context) (keep bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("task body panicked",
				zap.Stringer("task", e.key),
				zap.Stringer("phase", e.phase),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			keep = false
		}
	}()
	return e.body(ctx)
}

func (s *Scheduler) kill(e *entry) {
	if e.dead {
		return
	}
	e.dead = true
	s.dead++
	if cur, ok := s.tasks[e.key]; ok && cur == e {
		delete(s.tasks, e.key)
	}
}

func (s *Scheduler) maybeCompact() {
	if !s.ticking && s.dead > 64 && s.dead > len(s.order)/2 {
		s.compact()
	}
}

func (s *Scheduler) compact() {
	if s.dead == 0 {
		return
	}
	write := 0
	for _, e := range s.order {
		if !e.dead {
			s.order[write] = e
			write++
		}
	}
	for i := write; i < len(s.order); i++ {
		s.order[i] = nil
	}
	s.order = s.order[:write]
	s.dead = 0
}
