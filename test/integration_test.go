//go:build integration

package test

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/lampslot/internal/apperr"
	"github.com/joao-fontenele/lampslot/internal/audit"
	"github.com/joao-fontenele/lampslot/internal/cache"
	"github.com/joao-fontenele/lampslot/internal/clock"
	"github.com/joao-fontenele/lampslot/internal/customers"
	"github.com/joao-fontenele/lampslot/internal/domain"
	"github.com/joao-fontenele/lampslot/internal/messaging"
	"github.com/joao-fontenele/lampslot/internal/orders"
	"github.com/joao-fontenele/lampslot/internal/slots"
)

type system struct {
	db        *sql.DB
	slots     *slots.Service
	customers *customers.Service
	engine    *orders.Engine
}

func newSystem(t *testing.T, db *sql.DB, cfg func(*orders.Deps)) *system {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sink := audit.NewSink(db, logger)
	slotRepo := slots.NewSlotRepository(db)
	slotSvc := slots.NewService(slotRepo, sink, nil, clock.System{}, slots.DefaultLockLimits, logger)
	customerSvc := customers.NewService(customers.NewCustomerRepository(db), sink, logger)

	deps := orders.Deps{
		Store:     orders.NewOrderRepository(db, sink),
		Slots:     slotRepo,
		Releaser:  slotSvc,
		Customers: customerSvc,
		Audit:     sink,
		Clock:     clock.System{},
		Temple:    orders.Temple{Name: "範例宮", Address: "台北市", Phone: "02-1234-5678"},
		Logger:    logger,
	}
	if cfg != nil {
		cfg(&deps)
	}

	return &system{
		db:        db,
		slots:     slotSvc,
		customers: customerSvc,
		engine:    orders.NewEngine(deps),
	}
}

func (s *system) slotID(t *testing.T, number string) int64 {
	t.Helper()
	var id int64
	err := s.db.QueryRow(`SELECT id FROM lamp_slots WHERE slot_number = $1`, number).Scan(&id)
	require.NoError(t, err, "seeded slot %s", number)
	return id
}

func (s *system) slotStatus(t *testing.T, id int64) domain.SlotStatus {
	t.Helper()
	slot, err := s.slots.Get(context.Background(), id)
	require.NoError(t, err)
	return slot.Status
}

func (s *system) customer(t *testing.T, phone string) int64 {
	t.Helper()
	c, _, err := s.customers.Create(context.Background(), customers.CreateInput{Name: "王大明", Phone: phone}, "POS-A")
	require.NoError(t, err)
	return c.ID
}

func (s *system) count(t *testing.T, query string) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow(query).Scan(&n))
	return n
}

func TestLockRace(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	sys := newSystem(t, SetupPostgres(ctx, t), nil)
	id := sys.slotID(t, "A-01-01")

	const contenders = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
		codes   = map[apperr.Code]int{}
	)
	for i := 0; i < contenders; i++ {
		ws := "POS-" + string(rune('A'+i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sys.slots.TryLock(ctx, id, ws, 300)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners = append(winners, ws)
				return
			}
			codes[apperr.CodeOf(err)]++
		}()
	}
	wg.Wait()

	require.Len(t, winners, 1, "exactly one workstation must win the slot")
	assert.Equal(t, contenders-1, codes[apperr.SlotLocked])

	slot, err := sys.slots.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotLocked, slot.Status)
	assert.Equal(t, winners[0], *slot.LockedBy)
}

func TestSlotLockColumnsConstraint(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	sys := newSystem(t, SetupPostgres(ctx, t), nil)
	id := sys.slotID(t, "A-01-02")

	tests := []struct {
		name  string
		query string
	}{
		{"available with an owner", `UPDATE lamp_slots SET locked_by = 'POS-A' WHERE id = $1`},
		{"available with an expiry", `UPDATE lamp_slots SET lock_expires_at = now() WHERE id = $1`},
		{"sold with an owner", `UPDATE lamp_slots SET status = 'SOLD', locked_by = 'POS-A' WHERE id = $1`},
		{"locked without an expiry", `UPDATE lamp_slots SET status = 'LOCKED', locked_by = 'POS-A' WHERE id = $1`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sys.db.ExecContext(ctx, tt.query, id)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "lamp_slots_lock_consistent")
		})
	}

	assert.Equal(t, domain.SlotAvailable, sys.slotStatus(t, id))
}

func TestReleaseLockedBefore_KeepsNewerLock(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	sys := newSystem(t, SetupPostgres(ctx, t), nil)
	held, relocked := sys.slotID(t, "A-02-01"), sys.slotID(t, "A-02-02")

	for _, id := range []int64{held, relocked} {
		_, err := sys.slots.TryLock(ctx, id, "POS-A", 300)
		require.NoError(t, err)
	}
	time.Sleep(5 * time.Millisecond)
	cutoff := time.Now()
	time.Sleep(5 * time.Millisecond)

	_, err := sys.slots.Release(ctx, relocked, "POS-A")
	require.NoError(t, err)
	_, err = sys.slots.TryLock(ctx, relocked, "POS-A", 300)
	require.NoError(t, err)

	result, err := sys.slots.ReleaseLockedBefore(ctx, relocked, "POS-A", cutoff)
	require.NoError(t, err)
	assert.False(t, result.Released)
	assert.Equal(t, domain.SlotLocked, sys.slotStatus(t, relocked))

	result, err = sys.slots.ReleaseLockedBefore(ctx, held, "POS-A", cutoff)
	require.NoError(t, err)
	assert.True(t, result.Released)
	assert.Equal(t, domain.SlotAvailable, sys.slotStatus(t, held))
}

func TestCreate_OpposedSlotOrder(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	sys := newSystem(t, SetupPostgres(ctx, t), nil)
	customerID := sys.customer(t, "0912345678")
	a, b := sys.slotID(t, "B-01-01"), sys.slotID(t, "B-01-02")
	for _, id := range []int64{a, b} {
		_, err := sys.slots.TryLock(ctx, id, "POS-A", 300)
		require.NoError(t, err)
	}

	const rounds = 10
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := 0; i < rounds; i++ {
		for _, ids := range [][]int64{{a, b}, {b, a}} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := sys.engine.Create(ctx, orders.CreateInput{CustomerID: customerID, SlotIDs: ids, LightingName: "王大明"}, "POS-A")
				if err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}()
		}
	}
	wg.Wait()

	assert.Empty(t, errs)
	assert.Equal(t, 2*rounds, sys.count(t, `SELECT COUNT(*) FROM orders`))
}

func TestOrderLifecycle_Confirm(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	sys := newSystem(t, SetupPostgres(ctx, t), nil)
	customerID := sys.customer(t, "0912345678")
	a, b := sys.slotID(t, "A-01-01"), sys.slotID(t, "A-01-02")

	for _, id := range []int64{a, b} {
		_, err := sys.slots.TryLock(ctx, id, "POS-A", 300)
		require.NoError(t, err)
	}

	order, err := sys.engine.Create(ctx, orders.CreateInput{
		CustomerID:   customerID,
		SlotIDs:      []int64{a, b},
		LightingName: "王大明闔家",
	}, "POS-A")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^ORD-\d{8}-0001$`), order.OrderNumber)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(2400)), "two 光明燈 at 1200, got %s", order.TotalAmount)

	confirmed, err := sys.engine.Confirm(ctx, order.ID, orders.ConfirmInput{
		PaymentMethod:  domain.PaymentCash,
		AmountReceived: decimal.NewFromInt(3000),
	}, "POS-A")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, confirmed.Status)
	assert.True(t, confirmed.Payment.ChangeAmount.Equal(decimal.NewFromInt(600)))

	assert.Equal(t, domain.SlotSold, sys.slotStatus(t, a))
	assert.Equal(t, domain.SlotSold, sys.slotStatus(t, b))

	stored, err := sys.engine.Get(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Payment)
	assert.Len(t, stored.Items, 2)

	receipt, err := sys.engine.GetReceipt(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "R-"+order.OrderNumber, receipt.ReceiptNumber)
	assert.Contains(t, receipt.FormattedContent, "找    零: NT$600")

	_, err = sys.engine.Confirm(ctx, order.ID, orders.ConfirmInput{
		PaymentMethod:  domain.PaymentCash,
		AmountReceived: decimal.NewFromInt(3000),
	}, "POS-A")
	assert.Equal(t, apperr.OrderAlreadyConfirmed, apperr.CodeOf(err))

	assert.Equal(t, 1, sys.count(t, `SELECT COUNT(*) FROM payments`))
	assert.GreaterOrEqual(t, sys.count(t, `SELECT COUNT(*) FROM audit_logs WHERE action = 'CONFIRM'`), 1)
}

func TestOrderLifecycle_ConcurrentConfirm(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	sys := newSystem(t, SetupPostgres(ctx, t), nil)
	customerID := sys.customer(t, "0912345678")
	id := sys.slotID(t, "B-01-01")

	_, err := sys.slots.TryLock(ctx, id, "POS-A", 300)
	require.NoError(t, err)
	order, err := sys.engine.Create(ctx, orders.CreateInput{CustomerID: customerID, SlotIDs: []int64{id}, LightingName: "王大明"}, "POS-A")
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		errs = make([]error, 4)
	)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = sys.engine.Confirm(ctx, order.ID, orders.ConfirmInput{
				PaymentMethod:  domain.PaymentCard,
				AmountReceived: decimal.NewFromInt(1500),
			}, "POS-A")
		}()
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.Equal(t, apperr.OrderAlreadyConfirmed, apperr.CodeOf(err))
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, sys.count(t, `SELECT COUNT(*) FROM payments`))
}

func TestOrderLifecycle_CancelReleasesSlots(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	sys := newSystem(t, SetupPostgres(ctx, t), nil)
	customerID := sys.customer(t, "0912345678")
	id := sys.slotID(t, "C-02-03")

	_, err := sys.slots.TryLock(ctx, id, "POS-A", 300)
	require.NoError(t, err)
	order, err := sys.engine.Create(ctx, orders.CreateInput{CustomerID: customerID, SlotIDs: []int64{id}, LightingName: "王大明"}, "POS-A")
	require.NoError(t, err)

	cancelled, err := sys.engine.Cancel(ctx, order.ID, "客戶改期", "POS-B")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelReason)
	assert.Equal(t, "客戶改期", *cancelled.CancelReason)

	assert.Equal(t, domain.SlotAvailable, sys.slotStatus(t, id))

	_, err = sys.engine.Confirm(ctx, order.ID, orders.ConfirmInput{
		PaymentMethod:  domain.PaymentCash,
		AmountReceived: decimal.NewFromInt(1800),
	}, "POS-A")
	assert.Equal(t, apperr.OrderAlreadyCancelled, apperr.CodeOf(err))
}

func TestCreate_RollsBackOnExpiredLock(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	sys := newSystem(t, SetupPostgres(ctx, t), nil)
	customerID := sys.customer(t, "0912345678")
	a, b := sys.slotID(t, "D-01-01"), sys.slotID(t, "D-01-02")

	for _, id := range []int64{a, b} {
		_, err := sys.slots.TryLock(ctx, id, "POS-A", 300)
		require.NoError(t, err)
	}
	_, err := sys.db.Exec(`UPDATE lamp_slots SET lock_expires_at = now() - interval '1 minute' WHERE id = $1`, b)
	require.NoError(t, err)

	_, err = sys.engine.Create(ctx, orders.CreateInput{CustomerID: customerID, SlotIDs: []int64{a, b}, LightingName: "王大明"}, "POS-A")
	require.Error(t, err)
	assert.Equal(t, apperr.SlotLockExpired, apperr.CodeOf(err))

	assert.Equal(t, 0, sys.count(t, `SELECT COUNT(*) FROM orders`))
	assert.Equal(t, 0, sys.count(t, `SELECT COUNT(*) FROM order_items`))
	assert.Equal(t, 0, sys.count(t, `SELECT COUNT(*) FROM order_number_seq`))
	assert.Equal(t, domain.SlotLocked, sys.slotStatus(t, a), "the valid lock stays untouched")
}

func TestReceiptCache_Redis(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db := SetupPostgres(ctx, t)
	rdb, err := cache.NewClient(ctx, SetupRedis(ctx, t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	orderCache := cache.NewOrders(rdb, time.Minute)
	sys := newSystem(t, db, func(d *orders.Deps) { d.Cache = orderCache })
	customerID := sys.customer(t, "0912345678")
	id := sys.slotID(t, "A-03-05")

	_, err = sys.slots.TryLock(ctx, id, "POS-A", 300)
	require.NoError(t, err)
	order, err := sys.engine.Create(ctx, orders.CreateInput{CustomerID: customerID, SlotIDs: []int64{id}, LightingName: "王大明"}, "POS-A")
	require.NoError(t, err)
	_, err = sys.engine.Confirm(ctx, order.ID, orders.ConfirmInput{
		PaymentMethod:  domain.PaymentTransfer,
		AmountReceived: decimal.NewFromInt(1200),
	}, "POS-A")
	require.NoError(t, err)

	_, err = sys.engine.GetReceipt(ctx, order.ID)
	require.NoError(t, err)

	cached, err := orderCache.Get(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, cached, "receipt read should populate the cache")
	assert.Equal(t, order.OrderNumber, cached.OrderNumber)
	assert.Equal(t, domain.OrderStatusConfirmed, cached.Status)
}

func TestOrderEvents_Kafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	db := SetupPostgres(ctx, t)
	brokers := SetupKafka(ctx, t)

	producer := messaging.NewProducer(brokers, "lamp.order.events")
	t.Cleanup(func() { _ = producer.Close() })

	sys := newSystem(t, db, func(d *orders.Deps) { d.Events = producer })
	customerID := sys.customer(t, "0912345678")
	id := sys.slotID(t, "B-05-10")

	_, err := sys.slots.TryLock(ctx, id, "POS-A", 300)
	require.NoError(t, err)
	order, err := sys.engine.Create(ctx, orders.CreateInput{CustomerID: customerID, SlotIDs: []int64{id}, LightingName: "王大明"}, "POS-A")
	require.NoError(t, err)
	_, err = sys.engine.Cancel(ctx, order.ID, "重複下單", "POS-A")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	consumer := messaging.NewConsumer(brokers, "lamp.order.events", "integration-test", logger,
		messaging.WithStartOffset(kafka.FirstOffset))
	t.Cleanup(func() { _ = consumer.Close() })

	consumeCtx, stop := context.WithCancel(ctx)
	defer stop()

	var events []domain.OrderEvent
	_ = consumer.Consume(consumeCtx, func(_ context.Context, key string, payload []byte) error {
		var event domain.OrderEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return messaging.Permanent(err)
		}
		assert.Equal(t, strconv.FormatInt(order.ID, 10), key)
		events = append(events, event)
		if len(events) == 2 {
			stop()
		}
		return nil
	})

	require.Len(t, events, 2)
	assert.Equal(t, domain.EventOrderCreated, events[0].EventType)
	assert.Equal(t, domain.EventOrderCancelled, events[1].EventType)

	var payload domain.OrderCancelledPayload
	require.NoError(t, json.Unmarshal(events[1].Payload, &payload))
	assert.Equal(t, []int64{id}, payload.SlotIDs)
	assert.Equal(t, "POS-A", payload.LockOwner)
	assert.Equal(t, "重複下單", payload.Reason)
	assert.False(t, payload.CancelledAt.IsZero())
}
