package system

import (
	"time"

	"github.com/gtsplugin/sizecore/internal/core/ecs"
	"github.com/gtsplugin/sizecore/internal/core/event"
	coresys "github.com/gtsplugin/sizecore/internal/core/system"
	"github.com/gtsplugin/sizecore/internal/host"
	"github.com/gtsplugin/sizecore/internal/report"
)

// ReportSystem turns kill and interaction events into notifications and keeps
// per-kind kill totals. Lines are collected during event dispatch and sent in
// Phase 4 (Output).
type ReportSystem struct {
	host     host.Host
	reporter *report.Reporter
	pending  []string
	kills    map[string]int
}

func NewReportSystem(bus *event.Bus, h host.Host, reporter *report.Reporter) *ReportSystem {
	s := &ReportSystem{
		host:     h,
		reporter: reporter,
		kills:    make(map[string]int, 2),
	}
	event.Subscribe(bus, s.onKill)
	event.Subscribe(bus, s.onEnded)
	return s
}

func (s *ReportSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *ReportSystem) Update(_ time.Duration) {
	for _, line := range s.pending {
		s.host.Notify(line)
	}
	s.pending = s.pending[:0]
}

// Kills returns the number of finished resolutions of kind.
func (s *ReportSystem) Kills(kind string) int { return s.kills[kind] }

// Summary formats the kill totals.
func (s *ReportSystem) Summary() string {
	return s.reporter.Summary(s.kills["crush"], s.kills["shrink"])
}

func (s *ReportSystem) onKill(ev event.KillReported) {
	s.kills[ev.Kind]++
	s.pending = append(s.pending, s.reporter.Kill(ev))
}

func (s *ReportSystem) onEnded(ev event.InteractionEnded) {
	line := s.reporter.Ended(ev, s.name(ev.Holder), s.name(ev.Held))
	if line != "" {
		s.pending = append(s.pending, line)
	}
}

func (s *ReportSystem) name(id ecs.EntityID) string {
	if e, ok := host.RefTo(id).Get(s.host); ok {
		return e.DisplayName()
	}
	return "someone"
}
