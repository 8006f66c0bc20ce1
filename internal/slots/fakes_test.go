package slots

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/lampslot/internal/domain"
)

// memRepo mirrors the guarded statements of SlotRepository in memory.
type memRepo struct {
	mu      sync.Mutex
	slots   map[int64]*domain.LampSlot
	types   []domain.LampType
	lockErr error
	// updated mirrors lamp_slots.updated_at for lock and release writes.
	updated map[int64]time.Time
}

func newMemRepo(slots ...domain.LampSlot) *memRepo {
	m := &memRepo{slots: make(map[int64]*domain.LampSlot), updated: make(map[int64]time.Time)}
	for i := range slots {
		s := slots[i]
		m.slots[s.ID] = &s
	}
	return m
}

func (m *memRepo) SweepExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, s := range m.slots {
		if s.Status == domain.SlotLocked && !s.LockExpiresAt.After(now) {
			s.Status = domain.SlotAvailable
			s.LockedBy = nil
			s.LockExpiresAt = nil
			n++
		}
	}
	return n, nil
}

func (m *memRepo) GetByID(_ context.Context, id int64) (*domain.LampSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memRepo) Query(_ context.Context, f domain.SlotFilter) ([]domain.LampSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []domain.LampSlot{}
	for _, s := range m.slots {
		if s.Year != f.Year {
			continue
		}
		if f.LampTypeID != nil && s.LampTypeID != *f.LampTypeID {
			continue
		}
		if f.Zone != "" && s.Zone != f.Zone {
			continue
		}
		if f.AvailableOnly && s.Status != domain.SlotAvailable {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Zone != out[j].Zone {
			return out[i].Zone < out[j].Zone
		}
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Column < out[j].Column
	})
	return out, nil
}

func (m *memRepo) LampTypes(_ context.Context, year int) ([]domain.LampType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.LampType, 0, len(m.types))
	for _, lt := range m.types {
		lt.AvailableSlotCount = 0
		for _, s := range m.slots {
			if s.LampTypeID == lt.ID && s.Year == year && s.Status == domain.SlotAvailable {
				lt.AvailableSlotCount++
			}
		}
		out = append(out, lt)
	}
	return out, nil
}

func (m *memRepo) TryLock(_ context.Context, id int64, ws string, now, expiresAt time.Time) (*domain.LampSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lockErr != nil {
		return nil, m.lockErr
	}
	s, ok := m.slots[id]
	if !ok {
		return nil, nil
	}
	eligible := s.Status == domain.SlotAvailable ||
		(s.Status == domain.SlotLocked && (!s.LockExpiresAt.After(now) || *s.LockedBy == ws))
	if !eligible {
		return nil, nil
	}

	owner := ws
	exp := expiresAt
	s.Status = domain.SlotLocked
	s.LockedBy = &owner
	s.LockExpiresAt = &exp
	m.updated[id] = now
	cp := *s
	return &cp, nil
}

func (m *memRepo) Release(_ context.Context, id int64, ws string, now time.Time, lockedBefore *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[id]
	if !ok || s.Status != domain.SlotLocked || *s.LockedBy != ws {
		return false, nil
	}
	if lockedBefore != nil && m.updated[id].After(*lockedBefore) {
		return false, nil
	}
	s.Status = domain.SlotAvailable
	s.LockedBy = nil
	s.LockExpiresAt = nil
	m.updated[id] = now
	return true, nil
}

func (m *memRepo) set(id int64, fn func(s *domain.LampSlot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.slots[id])
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

func (a *auditLog) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

var errStore = errors.New("connection refused")

func slot(id int64, number, zone string, row, col, year int, price int64) domain.LampSlot {
	return domain.LampSlot{
		ID:           id,
		LampTypeID:   1,
		LampTypeName: "光明燈",
		SlotNumber:   number,
		Zone:         zone,
		Row:          row,
		Column:       col,
		Year:         year,
		Price:        decimal.NewFromInt(price),
		Status:       domain.SlotAvailable,
	}
}
