package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// KillEntry is one finished resolution, written for post-session review.
type KillEntry struct {
	ID            uuid.UUID
	SessionID     uuid.UUID
	Kind          string // "crush", "shrink"
	InitiatorID   uint64
	InitiatorName string
	TargetID      uint64
	TargetName    string
	SimTime       time.Duration
	RecordedAt    time.Time
}

type KillLedgerRepo struct {
	db *DB
}

func NewKillLedgerRepo(db *DB) *KillLedgerRepo {
	return &KillLedgerRepo{db: db}
}

// Write inserts a batch of entries in a single transaction. Entries without
// an ID get a fresh one.
func (r *KillLedgerRepo) Write(ctx context.Context, entries []KillEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ledger begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO kill_ledger (id, session_id, kind, initiator_id, initiator_name, target_id, target_name, sim_time_ms)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			e.ID, e.SessionID, e.Kind, int64(e.InitiatorID), e.InitiatorName,
			int64(e.TargetID), e.TargetName, e.SimTime.Milliseconds(),
		); err != nil {
			return fmt.Errorf("ledger insert: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ledger commit: %w", err)
	}
	return nil
}

// Recent returns the newest entries of a session, newest first.
func (r *KillLedgerRepo) Recent(ctx context.Context, session uuid.UUID, limit int) ([]KillEntry, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, session_id, kind, initiator_id, initiator_name, target_id, target_name, sim_time_ms, recorded_at
		 FROM kill_ledger WHERE session_id = $1 ORDER BY recorded_at DESC LIMIT $2`,
		session, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ledger query: %w", err)
	}
	defer rows.Close()

	var out []KillEntry
	for rows.Next() {
		var (
			e         KillEntry
			initID    int64
			targetID  int64
			simTimeMs int64
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Kind, &initID, &e.InitiatorName,
			&targetID, &e.TargetName, &simTimeMs, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("ledger scan: %w", err)
		}
		e.InitiatorID = uint64(initID)
		e.TargetID = uint64(targetID)
		e.SimTime = time.Duration(simTimeMs) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountByKind returns how many kills of each kind a session recorded.
func (r *KillLedgerRepo) CountByKind(ctx context.Context, session uuid.UUID) (map[string]int, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT kind, COUNT(*) FROM kill_ledger WHERE session_id = $1 GROUP BY kind`,
		session,
	)
	if err != nil {
		return nil, fmt.Errorf("ledger count: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			kind string
			n    int64
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("ledger count scan: %w", err)
		}
		counts[kind] = int(n)
	}
	return counts, rows.Err()
}
