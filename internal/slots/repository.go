package slots

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joao-fontenele/lampslot/internal/domain"
	"github.com/joao-fontenele/lampslot/internal/store"
)

const slotColumns = `
	s.id, s.lamp_type_id, t.name, s.slot_number, s.zone, s.row_no, s.col_no,
	s.year, s.price, s.status, s.locked_by, s.lock_expires_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (*domain.LampSlot, error) {
	var (
		slot      domain.LampSlot
		lockedBy  sql.NullString
		expiresAt sql.NullTime
	)
	err := row.Scan(&slot.ID, &slot.LampTypeID, &slot.LampTypeName, &slot.SlotNumber, &slot.Zone,
		&slot.Row, &slot.Column, &slot.Year, &slot.Price, &slot.Status, &lockedBy, &expiresAt)
	if err != nil {
		return nil, err
	}
	if lockedBy.Valid {
		slot.LockedBy = &lockedBy.String
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		slot.LockExpiresAt = &t
	}
	return &slot, nil
}

// SlotRepository is the Postgres slot store. Every status change is a single
// guarded UPDATE, so concurrent callers are serialized by the row lock the
// UPDATE takes.
type SlotRepository struct {
	db *sql.DB
}

func NewSlotRepository(db *sql.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

func (r *SlotRepository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE lamp_slots
		SET status = 'AVAILABLE', locked_by = NULL, lock_expires_at = NULL, updated_at = $1
		WHERE status = 'LOCKED' AND lock_expires_at <= $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("sweep expired locks: %w", err)
	}
	return store.RowsAffected(result)
}

func (r *SlotRepository) GetByID(ctx context.Context, id int64) (*domain.LampSlot, error) {
	return getSlot(ctx, r.db, id, "")
}

func (r *SlotRepository) Query(ctx context.Context, filter domain.SlotFilter) ([]domain.LampSlot, error) {
	var (
		conds = []string{"s.year = $1"}
		args  = []any{filter.Year}
	)
	if filter.LampTypeID != nil {
		args = append(args, *filter.LampTypeID)
		conds = append(conds, fmt.Sprintf("s.lamp_type_id = $%d", len(args)))
	}
	if filter.Zone != "" {
		args = append(args, filter.Zone)
		conds = append(conds, fmt.Sprintf("s.zone = $%d", len(args)))
	}
	if filter.AvailableOnly {
		conds = append(conds, "s.status = 'AVAILABLE'")
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+slotColumns+`
		FROM lamp_slots s
		JOIN lamp_types t ON t.id = s.lamp_type_id
		WHERE `+strings.Join(conds, " AND ")+`
		ORDER BY s.zone, s.row_no, s.col_no
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query slots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	slots := []domain.LampSlot{}
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, *slot)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *SlotRepository) LampTypes(ctx context.Context, year int) ([]domain.LampType, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.description, t.default_price,
			(SELECT COUNT(*) FROM lamp_slots s
			 WHERE s.lamp_type_id = t.id AND s.status = 'AVAILABLE' AND s.year = $1)
		FROM lamp_types t
		WHERE t.is_active
		ORDER BY t.sort_order, t.name
	`, year)
	if err != nil {
		return nil, fmt.Errorf("query lamp types: %w", err)
	}
	defer func() { _ = rows.Close() }()

	types := []domain.LampType{}
	for rows.Next() {
		var (
			lt   domain.LampType
			desc sql.NullString
		)
		if err := rows.Scan(&lt.ID, &lt.Name, &desc, &lt.DefaultPrice, &lt.AvailableSlotCount); err != nil {
			return nil, fmt.Errorf("scan lamp type: %w", err)
		}
		if desc.Valid {
			lt.Description = &desc.String
		}
		types = append(types, lt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return types, nil
}

// TryLock acquires or renews a lock in one statement. It returns nil when
// the guard did not match: the slot is sold, held by someone else with an
// unexpired lock, or missing.
func (r *SlotRepository) TryLock(ctx context.Context, id int64, workstationID string, now, expiresAt time.Time) (*domain.LampSlot, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE lamp_slots s
		SET status = 'LOCKED', locked_by = $2, lock_expires_at = $4, updated_at = $3
		FROM lamp_types t
		WHERE t.id = s.lamp_type_id
		  AND s.id = $1
		  AND (s.status = 'AVAILABLE'
		       OR (s.status = 'LOCKED' AND (s.lock_expires_at <= $3 OR s.locked_by = $2)))
		RETURNING `+slotColumns,
		id, workstationID, now, expiresAt)

	slot, err := scanSlot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock slot %d: %w", id, err)
	}
	return slot, nil
}

// Release frees a lock held by workstationID. It reports false when there was
// nothing to release. A non-nil lockedBefore leaves alone any lock taken or
// renewed after that instant.
func (r *SlotRepository) Release(ctx context.Context, id int64, workstationID string, now time.Time, lockedBefore *time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE lamp_slots
		SET status = 'AVAILABLE', locked_by = NULL, lock_expires_at = NULL, updated_at = $3
		WHERE id = $1 AND locked_by = $2 AND status = 'LOCKED'
		  AND ($4::timestamptz IS NULL OR updated_at <= $4)
	`, id, workstationID, now, lockedBefore)
	if err != nil {
		return false, fmt.Errorf("release slot %d: %w", id, err)
	}

	n, err := store.RowsAffected(result)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetForUpdate reads a slot and holds its row lock until tx ends.
func GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*domain.LampSlot, error) {
	return getSlot(ctx, tx, id, "FOR UPDATE OF s")
}

// MarkSold finalizes a slot inside an order confirmation. It takes *sql.Tx
// on purpose: a slot only becomes SOLD together with its payment.
func MarkSold(ctx context.Context, tx *sql.Tx, id int64, now time.Time) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE lamp_slots
		SET status = 'SOLD', locked_by = NULL, lock_expires_at = NULL, updated_at = $2
		WHERE id = $1
	`, id, now)
	if err != nil {
		return fmt.Errorf("mark slot %d sold: %w", id, err)
	}

	n, err := store.RowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("mark slot %d sold: slot does not exist", id)
	}
	return nil
}

func getSlot(ctx context.Context, q store.Querier, id int64, lockClause string) (*domain.LampSlot, error) {
	slot, err := scanSlot(q.QueryRowContext(ctx, `
		SELECT `+slotColumns+`
		FROM lamp_slots s
		JOIN lamp_types t ON t.id = s.lamp_type_id
		WHERE s.id = $1
		`+lockClause, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot %d: %w", id, err)
	}
	return slot, nil
}
