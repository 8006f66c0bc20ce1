package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/joao-fontenele/lampslot/internal/audit"
	"github.com/joao-fontenele/lampslot/internal/domain"
	"github.com/joao-fontenele/lampslot/internal/slots"
	"github.com/joao-fontenele/lampslot/internal/store"
)

const selectOrder = `
	SELECT o.id, o.order_number, o.customer_id, c.name, c.phone, o.lighting_name,
		o.blessing_content, o.status, o.total_amount, o.created_at,
		o.created_by_workstation, o.notes, o.cancel_reason
	FROM orders o
	JOIN customers c ON c.id = o.customer_id
`

// OrderRepository is the Postgres order store. Reads go through the pool;
// writes only happen inside InTx.
type OrderRepository struct {
	db    *sql.DB
	audit *audit.Sink
}

func NewOrderRepository(db *sql.DB, sink *audit.Sink) *OrderRepository {
	return &OrderRepository{db: db, audit: sink}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o        domain.Order
		blessing sql.NullString
		notes    sql.NullString
		reason   sql.NullString
	)
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.CustomerName, &o.CustomerPhone,
		&o.LightingName, &blessing, &o.Status, &o.TotalAmount, &o.CreatedAt,
		&o.CreatedByWorkstation, &notes, &reason)
	if err != nil {
		return nil, err
	}
	o.BlessingContent = nullString(blessing)
	o.Notes = nullString(notes)
	o.CancelReason = nullString(reason)
	o.Items = []domain.OrderItem{}
	return &o, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func (r *OrderRepository) Get(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, selectOrder+" WHERE o.id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}

	if err := r.attach(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *OrderRepository) List(ctx context.Context, filter ListFilter) ([]domain.Order, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conds = append(conds, fmt.Sprintf("o.status = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, filter.Limit)

	rows, err := r.db.QueryContext(ctx, selectOrder+where+
		fmt.Sprintf(" ORDER BY o.created_at DESC, o.id DESC LIMIT $%d", len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var list []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		list = append(list, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attach(ctx, list); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(list))
	for _, o := range list {
		orders = append(orders, *o)
	}
	return orders, nil
}

// attach loads items and payments for all orders with one query each.
func (r *OrderRepository) attach(ctx context.Context, list []*domain.Order) error {
	if len(list) == 0 {
		return nil
	}

	byID := make(map[int64]*domain.Order, len(list))
	ids := make([]int64, 0, len(list))
	for _, o := range list {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT i.order_id, i.id, i.slot_id, s.slot_number, t.name, s.zone, i.unit_price, i.year
		FROM order_items i
		JOIN lamp_slots s ON s.id = i.slot_id
		JOIN lamp_types t ON t.id = s.lamp_type_id
		WHERE i.order_id = ANY($1)
		ORDER BY i.id
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		var (
			orderID int64
			item    domain.OrderItem
		)
		if err := itemRows.Scan(&orderID, &item.ID, &item.SlotID, &item.SlotNumber,
			&item.LampTypeName, &item.Zone, &item.UnitPrice, &item.Year); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		o := byID[orderID]
		o.Items = append(o.Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return err
	}

	payRows, err := r.db.QueryContext(ctx, `
		SELECT order_id, id, payment_method, amount_due, amount_received, change_amount,
			paid_at, received_by_workstation, notes
		FROM payments
		WHERE order_id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("load payments: %w", err)
	}
	defer func() { _ = payRows.Close() }()

	for payRows.Next() {
		var (
			orderID int64
			p       domain.Payment
			notes   sql.NullString
		)
		if err := payRows.Scan(&orderID, &p.ID, &p.Method, &p.AmountDue, &p.AmountReceived,
			&p.ChangeAmount, &p.PaidAt, &p.ReceivedByWorkstation, &notes); err != nil {
			return fmt.Errorf("scan payment: %w", err)
		}
		p.Notes = nullString(notes)
		byID[orderID].Payment = &p
	}
	return payRows.Err()
}

// InTx runs fn in one database transaction. Nothing fn writes is visible
// unless it returns nil.
func (r *OrderRepository) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return store.InTx(ctx, r.db, func(tx *sql.Tx) error {
		return fn(&pgTx{tx: tx, audit: r.audit})
	})
}

type pgTx struct {
	tx    *sql.Tx
	audit *audit.Sink
}

func (t *pgTx) LockSlot(ctx context.Context, slotID int64) (*domain.LampSlot, error) {
	return slots.GetForUpdate(ctx, t.tx, slotID)
}

func (t *pgTx) MarkSold(ctx context.Context, slotID int64, now time.Time) error {
	return slots.MarkSold(ctx, t.tx, slotID, now)
}

// NextOrderNumber bumps the per-day counter. The row lock taken by the upsert
// serializes concurrent creators until their transactions end.
func (t *pgTx) NextOrderNumber(ctx context.Context, now time.Time) (string, error) {
	var seq int
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO order_number_seq (day, last_value)
		VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET last_value = order_number_seq.last_value + 1
		RETURNING last_value
	`, now.Format(time.DateOnly)).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("next order number: %w", err)
	}
	return FormatOrderNumber(now, seq), nil
}

func (t *pgTx) InsertOrder(ctx context.Context, o *domain.Order) error {
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO orders (order_number, customer_id, lighting_name, blessing_content, status,
			total_amount, created_by_workstation, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING id
	`, o.OrderNumber, o.CustomerID, o.LightingName, o.BlessingContent, string(o.Status),
		o.TotalAmount, o.CreatedByWorkstation, o.Notes, o.CreatedAt).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range o.Items {
		item := &o.Items[i]
		err := t.tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, slot_id, unit_price, year)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, o.ID, item.SlotID, item.UnitPrice, item.Year).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("insert order item for slot %d: %w", item.SlotID, err)
		}
	}
	return nil
}

func (t *pgTx) InsertPayment(ctx context.Context, orderID int64, p *domain.Payment) error {
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO payments (order_id, payment_method, amount_due, amount_received, change_amount,
			received_by_workstation, notes, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, orderID, string(p.Method), p.AmountDue, p.AmountReceived, p.ChangeAmount,
		p.ReceivedByWorkstation, p.Notes, p.PaidAt).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert payment for order %d: %w", orderID, err)
	}
	return nil
}

// Transition moves an order from one status to another only if it is still
// in from. It reports false when another writer got there first.
func (t *pgTx) Transition(ctx context.Context, orderID int64, from, to domain.OrderStatus, cancelReason *string, now time.Time) (bool, error) {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $3, cancel_reason = COALESCE($4, cancel_reason), updated_at = $5
		WHERE id = $1 AND status = $2
	`, orderID, string(from), string(to), cancelReason, now)
	if err != nil {
		return false, fmt.Errorf("update order %d status: %w", orderID, err)
	}

	n, err := store.RowsAffected(result)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *pgTx) Audit(ctx context.Context, entry domain.AuditEntry) {
	t.audit.RecordTx(ctx, t.tx, entry)
}
