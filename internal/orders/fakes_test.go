package orders

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/lampslot/internal/apperr"
	"github.com/joao-fontenele/lampslot/internal/domain"
	"github.com/joao-fontenele/lampslot/internal/slots"
)

var errStore = errors.New("connection reset by peer")

type memState struct {
	slots     map[int64]domain.LampSlot
	orders    map[int64]domain.Order
	seq       map[string]int
	nextOrder int64
	nextItem  int64
	nextPay   int64
	audits    []domain.AuditEntry
}

func (s *memState) clone() *memState {
	c := &memState{
		slots:     make(map[int64]domain.LampSlot, len(s.slots)),
		orders:    make(map[int64]domain.Order, len(s.orders)),
		seq:       make(map[string]int, len(s.seq)),
		nextOrder: s.nextOrder,
		nextItem:  s.nextItem,
		nextPay:   s.nextPay,
		audits:    append([]domain.AuditEntry(nil), s.audits...),
	}
	for id, sl := range s.slots {
		c.slots[id] = sl
	}
	for id, o := range s.orders {
		c.orders[id] = copyOrder(o)
	}
	for day, n := range s.seq {
		c.seq[day] = n
	}
	return c
}

func copyOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderItem{}, o.Items...)
	if o.Payment != nil {
		p := *o.Payment
		o.Payment = &p
	}
	return o
}

// memStore is an in-memory Store. InTx works on a copy of the state and
// swaps it in only when fn succeeds, so failed units of work leave no trace.
type memStore struct {
	mu        sync.Mutex
	state     *memState
	customers map[int64]domain.Customer

	failOn     string
	releaseErr error
	// locked records every LockSlot call, committed or not.
	locked []int64
}

func newMemStore(slotList ...domain.LampSlot) *memStore {
	m := &memStore{
		state: &memState{
			slots:  make(map[int64]domain.LampSlot),
			orders: make(map[int64]domain.Order),
			seq:    make(map[string]int),
		},
		customers: map[int64]domain.Customer{
			1: {ID: 1, Name: "王大明", Phone: "0912345678"},
		},
	}
	for _, s := range slotList {
		m.state.slots[s.ID] = s
	}
	return m
}

func (m *memStore) Get(_ context.Context, id int64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.state.orders[id]
	if !ok {
		return nil, nil
	}
	cp := copyOrder(o)
	return &cp, nil
}

func (m *memStore) List(_ context.Context, filter ListFilter) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []domain.Order{}
	for _, o := range m.state.orders {
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		out = append(out, copyOrder(o))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memStore) InTx(_ context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	if err := fn(&memTx{state: work, failOn: m.failOn, locked: &m.locked}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *memStore) lockLog() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.locked...)
}

// GetByID makes memStore the engine's SlotReader too.
func (m *memStore) GetByID(_ context.Context, id int64) (*domain.LampSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.state.slots[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memStore) Release(_ context.Context, slotID int64, workstationID string) (*slots.ReleaseResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.releaseErr != nil {
		return nil, m.releaseErr
	}
	s, ok := m.state.slots[slotID]
	if !ok {
		return nil, apperr.NotFound(apperr.SlotNotFound, "lamp slot %d not found", slotID)
	}
	if s.Status != domain.SlotLocked || s.LockedBy == nil || *s.LockedBy != workstationID {
		return &slots.ReleaseResult{SlotID: slotID}, nil
	}
	s.Status = domain.SlotAvailable
	s.LockedBy = nil
	s.LockExpiresAt = nil
	m.state.slots[slotID] = s
	return &slots.ReleaseResult{Released: true, SlotID: slotID}, nil
}

func (m *memStore) customerDirectory() customerDirectory {
	return customerDirectory(m.customers)
}

// lock puts slot id under a lock owned by ws until expires.
func (m *memStore) lock(id int64, ws string, expires time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.state.slots[id]
	s.Status = domain.SlotLocked
	s.LockedBy = &ws
	s.LockExpiresAt = &expires
	m.state.slots[id] = s
}

func (m *memStore) setPrice(id int64, price int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.state.slots[id]
	s.Price = decimal.NewFromInt(price)
	m.state.slots[id] = s
}

func (m *memStore) slot(id int64) domain.LampSlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.slots[id]
}

func (m *memStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.orders)
}

func (m *memStore) auditActions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.state.audits))
	for _, e := range m.state.audits {
		out = append(out, e.Action)
	}
	return out
}

type memTx struct {
	state  *memState
	failOn string
	locked *[]int64
}

func (t *memTx) fail(op string) error {
	if t.failOn == op {
		return errStore
	}
	return nil
}

func (t *memTx) LockSlot(_ context.Context, slotID int64) (*domain.LampSlot, error) {
	if err := t.fail("LockSlot"); err != nil {
		return nil, err
	}
	*t.locked = append(*t.locked, slotID)
	s, ok := t.state.slots[slotID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (t *memTx) MarkSold(_ context.Context, slotID int64, _ time.Time) error {
	if err := t.fail("MarkSold"); err != nil {
		return err
	}
	s := t.state.slots[slotID]
	s.Status = domain.SlotSold
	s.LockedBy = nil
	s.LockExpiresAt = nil
	t.state.slots[slotID] = s
	return nil
}

func (t *memTx) NextOrderNumber(_ context.Context, now time.Time) (string, error) {
	if err := t.fail("NextOrderNumber"); err != nil {
		return "", err
	}
	day := now.Format("20060102")
	t.state.seq[day]++
	return FormatOrderNumber(now, t.state.seq[day]), nil
}

func (t *memTx) InsertOrder(_ context.Context, o *domain.Order) error {
	t.state.nextOrder++
	o.ID = t.state.nextOrder
	for i := range o.Items {
		t.state.nextItem++
		o.Items[i].ID = t.state.nextItem
	}
	if err := t.fail("InsertOrder"); err != nil {
		return err
	}
	t.state.orders[o.ID] = copyOrder(*o)
	return nil
}

func (t *memTx) InsertPayment(_ context.Context, orderID int64, p *domain.Payment) error {
	if err := t.fail("InsertPayment"); err != nil {
		return err
	}
	t.state.nextPay++
	p.ID = t.state.nextPay
	o := t.state.orders[orderID]
	cp := *p
	o.Payment = &cp
	t.state.orders[orderID] = o
	return nil
}

func (t *memTx) Transition(_ context.Context, orderID int64, from, to domain.OrderStatus, cancelReason *string, _ time.Time) (bool, error) {
	if err := t.fail("Transition"); err != nil {
		return false, err
	}
	o, ok := t.state.orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	if cancelReason != nil {
		o.CancelReason = cancelReason
	}
	t.state.orders[orderID] = o
	return true, nil
}

func (t *memTx) Audit(_ context.Context, entry domain.AuditEntry) {
	t.state.audits = append(t.state.audits, entry)
}

type customerDirectory map[int64]domain.Customer

func (d customerDirectory) GetByID(_ context.Context, id int64) (*domain.Customer, error) {
	c, ok := d[id]
	if !ok {
		return nil, apperr.NotFound(apperr.CustomerNotFound, "customer %d not found", id)
	}
	return &c, nil
}

type published struct {
	key   string
	event any
}

type memPublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *memPublisher) Publish(_ context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{key: key, event: event})
	return nil
}

func (p *memPublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []string
	for _, m := range p.msgs {
		if e, ok := m.event.(domain.OrderEvent); ok {
			out = append(out, e.EventType)
		}
	}
	return out
}

type memCache struct {
	mu     sync.Mutex
	orders map[int64]domain.Order
	gets   int
	hits   int
}

func newMemCache() *memCache {
	return &memCache{orders: make(map[int64]domain.Order)}
}

func (c *memCache) Get(_ context.Context, id int64) (*domain.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gets++
	o, ok := c.orders[id]
	if !ok {
		return nil, nil
	}
	c.hits++
	cp := copyOrder(o)
	return &cp, nil
}

func (c *memCache) Set(_ context.Context, o *domain.Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders[o.ID] = copyOrder(*o)
	return nil
}

func (c *memCache) Delete(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.orders, id)
	return nil
}

type auditLog struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (a *auditLog) Record(_ context.Context, entry domain.AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

func lampSlot(id int64, number, zone string, price int64) domain.LampSlot {
	return domain.LampSlot{
		ID:           id,
		LampTypeID:   1,
		LampTypeName: "光明燈",
		SlotNumber:   number,
		Zone:         zone,
		Row:          1,
		Column:       int(id % 100),
		Year:         2026,
		Price:        decimal.NewFromInt(price),
		Status:       domain.SlotAvailable,
	}
}
