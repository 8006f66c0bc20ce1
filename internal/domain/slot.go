package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type SlotStatus string

const (
	SlotAvailable SlotStatus = "AVAILABLE"
	SlotLocked    SlotStatus = "LOCKED"
	SlotSold      SlotStatus = "SOLD"
)

func (s SlotStatus) Valid() bool {
	switch s {
	case SlotAvailable, SlotLocked, SlotSold:
		return true
	}
	return false
}

// LampSlot is a sellable lamp position for one sale year. LockedBy and
// LockExpiresAt are set exactly when Status is SlotLocked.
type LampSlot struct {
	ID            int64           `json:"slotId"`
	LampTypeID    int64           `json:"lampTypeId"`
	LampTypeName  string          `json:"lampTypeName"`
	SlotNumber    string          `json:"slotNumber"`
	Zone          string          `json:"zone"`
	Row           int             `json:"row"`
	Column        int             `json:"column"`
	Year          int             `json:"year"`
	Price         decimal.Decimal `json:"price"`
	Status        SlotStatus      `json:"status"`
	LockedBy      *string         `json:"lockedByWorkstation,omitempty"`
	LockExpiresAt *time.Time      `json:"lockExpiresAt,omitempty"`
}

// LockActive reports whether the slot holds a lock that has not expired at now.
func (s *LampSlot) LockActive(now time.Time) bool {
	return s.Status == SlotLocked && s.LockExpiresAt != nil && s.LockExpiresAt.After(now)
}

// HeldBy reports whether workstationID owns an unexpired lock on the slot.
func (s *LampSlot) HeldBy(workstationID string, now time.Time) bool {
	return s.LockActive(now) && s.LockedBy != nil && *s.LockedBy == workstationID
}

type LampType struct {
	ID                 int64           `json:"lampTypeId"`
	Name               string          `json:"name"`
	Description        *string         `json:"description,omitempty"`
	DefaultPrice       decimal.Decimal `json:"defaultPrice"`
	AvailableSlotCount int             `json:"availableSlotCount"`
}

type SlotFilter struct {
	LampTypeID    *int64
	Zone          string
	AvailableOnly bool
	Year          int
}
