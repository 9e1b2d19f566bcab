package system

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gtsplugin/sizecore/internal/core/event"
	coresys "github.com/gtsplugin/sizecore/internal/core/system"
	"github.com/gtsplugin/sizecore/internal/persist"
	"go.uber.org/zap"
)

// LedgerWriter stores finished kills. *persist.KillLedgerRepo implements it.
type LedgerWriter interface {
	Write(ctx context.Context, entries []persist.KillEntry) error
}

// PersistenceSystem buffers KillReported events and writes them to the kill
// ledger every interval frames. Phase 5 (Persist).
type PersistenceSystem struct {
	ledger    LedgerWriter
	session   uuid.UUID
	log       *zap.Logger
	pending   []persist.KillEntry
	tickCount int
	interval  int // flush every N frames
	written   int
}

func NewPersistenceSystem(bus *event.Bus, ledger LedgerWriter, session uuid.UUID, log *zap.Logger, intervalFrames int) *PersistenceSystem {
	if intervalFrames < 1 {
		intervalFrames = 1
	}
	s := &PersistenceSystem{
		ledger:   ledger,
		session:  session,
		log:      log,
		interval: intervalFrames,
	}
	event.Subscribe(bus, s.onKill)
	return s
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.Flush()
}

// Flush writes every buffered entry now. Called for graceful shutdown too.
// On failure the batch is kept and retried on the next flush.
func (s *PersistenceSystem) Flush() {
	if len(s.pending) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.ledger.Write(ctx, s.pending); err != nil {
		s.log.Error("kill ledger write failed", zap.Int("entries", len(s.pending)), zap.Error(err))
		return
	}
	s.written += len(s.pending)
	s.log.Debug("kill ledger flushed", zap.Int("entries", len(s.pending)))
	s.pending = s.pending[:0]
}

// Pending returns the number of unwritten entries.
func (s *PersistenceSystem) Pending() int { return len(s.pending) }

// Written returns the number of entries stored so far.
func (s *PersistenceSystem) Written() int { return s.written }

func (s *PersistenceSystem) onKill(ev event.KillReported) {
	s.pending = append(s.pending, persist.KillEntry{
		ID:            uuid.New(),
		SessionID:     s.session,
		Kind:          ev.Kind,
		InitiatorID:   uint64(ev.Initiator),
		InitiatorName: ev.InitiatorName,
		TargetID:      uint64(ev.Target),
		TargetName:    ev.TargetName,
		SimTime:       ev.At,
		RecordedAt:    time.Now(),
	})
}
