// Package audit appends state-change records. Writes are best-effort: a
// failed audit insert is logged and never reaches the caller.
package audit

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/joao-fontenele/lampslot/internal/domain"
	"github.com/joao-fontenele/lampslot/internal/store"
)

const insertEntry = `
	INSERT INTO audit_logs (action, entity_type, entity_id, workstation_id, details, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
`

type Sink struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

func NewSink(db *sql.DB, logger *slog.Logger) *Sink {
	return &Sink{db: db, logger: logger, now: time.Now}
}

// Record writes entry on its own connection.
func (s *Sink) Record(ctx context.Context, entry domain.AuditEntry) {
	if err := s.insert(ctx, s.db, entry); err != nil {
		s.warn(entry, err)
	}
}

// RecordTx writes entry inside tx under a savepoint, so a failed insert is
// undone on its own and tx can still commit.
func (s *Sink) RecordTx(ctx context.Context, tx *sql.Tx, entry domain.AuditEntry) {
	err := store.Savepoint(ctx, tx, "audit_entry", func() error {
		return s.insert(ctx, tx, entry)
	})
	if err != nil {
		s.warn(entry, err)
	}
}

func (s *Sink) insert(ctx context.Context, q store.Querier, entry domain.AuditEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	_, err := q.ExecContext(ctx, insertEntry,
		entry.Action, entry.EntityType, entry.EntityID, entry.WorkstationID, entry.Details, entry.CreatedAt)
	return err
}

func (s *Sink) warn(entry domain.AuditEntry, err error) {
	s.logger.Warn("failed to write audit entry",
		"error", err,
		"action", entry.Action,
		"entity_type", entry.EntityType,
		"entity_id", entry.EntityID,
		"workstation_id", entry.WorkstationID,
	)
}
