package slots

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joao-fontenele/lampslot/internal/apperr"
	"github.com/joao-fontenele/lampslot/internal/clock"
	"github.com/joao-fontenele/lampslot/internal/domain"
	"github.com/joao-fontenele/lampslot/internal/telemetry"
)

type Repository interface {
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.LampSlot, error)
	Query(ctx context.Context, filter domain.SlotFilter) ([]domain.LampSlot, error)
	LampTypes(ctx context.Context, year int) ([]domain.LampType, error)
	TryLock(ctx context.Context, id int64, workstationID string, now, expiresAt time.Time) (*domain.LampSlot, error)
	Release(ctx context.Context, id int64, workstationID string, now time.Time, lockedBefore *time.Time) (bool, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, entry domain.AuditEntry)
}

// LockLimits bounds caller-supplied lock durations.
type LockLimits struct {
	Default time.Duration
	Min     time.Duration
	Max     time.Duration
}

var DefaultLockLimits = LockLimits{
	Default: 300 * time.Second,
	Min:     60 * time.Second,
	Max:     600 * time.Second,
}

// Clamp turns a requested duration in seconds into an allowed one. Zero or
// negative means "use the default".
func (l LockLimits) Clamp(seconds int) time.Duration {
	if seconds <= 0 {
		return l.Default
	}
	d := time.Duration(seconds) * time.Second
	if d < l.Min {
		return l.Min
	}
	if d > l.Max {
		return l.Max
	}
	return d
}

type LockResult struct {
	Success       bool             `json:"success"`
	Slot          *domain.LampSlot `json:"slot,omitempty"`
	LockExpiresAt *time.Time       `json:"lockExpiresAt,omitempty"`
}

type ReleaseResult struct {
	Released bool  `json:"released"`
	SlotID   int64 `json:"slotId"`
}

type Query struct {
	LampTypeID    *int64
	Zone          string
	AvailableOnly bool
	Year          *int
}

// Service is the lock manager plus the read side over slots. It keeps no
// state of its own; every guarantee comes from the repository's atomic
// statements.
type Service struct {
	repo    Repository
	audit   AuditRecorder
	metrics *telemetry.Metrics
	clock   clock.Clock
	limits  LockLimits
	logger  *slog.Logger
}

func NewService(repo Repository, audit AuditRecorder, metrics *telemetry.Metrics, clk clock.Clock, limits LockLimits, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		audit:   audit,
		metrics: metrics,
		clock:   clk,
		limits:  limits,
		logger:  logger,
	}
}

// Sweep resets every expired lock. trigger names the caller for metrics.
func (s *Service) Sweep(ctx context.Context, trigger string) (int64, error) {
	n, err := s.repo.SweepExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, apperr.System(apperr.SystemError, err, "failed to sweep expired locks")
	}
	if n > 0 {
		s.logger.Info("expired locks released", "count", n, "trigger", trigger)
		s.metrics.LocksSwept(ctx, trigger, n)
	}
	return n, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.LampSlot, error) {
	if _, err := s.Sweep(ctx, "read"); err != nil {
		return nil, err
	}

	slot, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.System(apperr.SystemError, err, "failed to load slot")
	}
	if slot == nil {
		return nil, apperr.NotFound(apperr.SlotNotFound, "slot %d not found", id)
	}
	return slot, nil
}

func (s *Service) Query(ctx context.Context, q Query) ([]domain.LampSlot, error) {
	if len(q.Zone) > 50 {
		return nil, apperr.Validation(apperr.ValidationError, "zone must be at most 50 characters")
	}
	if _, err := s.Sweep(ctx, "query"); err != nil {
		return nil, err
	}

	filter := domain.SlotFilter{
		LampTypeID:    q.LampTypeID,
		Zone:          q.Zone,
		AvailableOnly: q.AvailableOnly,
		Year:          s.clock.Now().Year(),
	}
	if q.Year != nil {
		filter.Year = *q.Year
	}

	slots, err := s.repo.Query(ctx, filter)
	if err != nil {
		return nil, apperr.System(apperr.SystemError, err, "failed to query slots")
	}
	return slots, nil
}

// LampTypes lists active lamp types with live availability for this year.
func (s *Service) LampTypes(ctx context.Context) ([]domain.LampType, error) {
	if _, err := s.Sweep(ctx, "lamp_types"); err != nil {
		return nil, err
	}

	types, err := s.repo.LampTypes(ctx, s.clock.Now().Year())
	if err != nil {
		return nil, apperr.System(apperr.SystemError, err, "failed to list lamp types")
	}
	return types, nil
}

// TryLock acquires, renews, or takes over an expired lock on a slot. It
// never waits: a contested slot fails immediately with SlotLocked.
func (s *Service) TryLock(ctx context.Context, id int64, workstationID string, seconds int) (*LockResult, error) {
	if _, err := s.Sweep(ctx, "lock"); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	expiresAt := now.Add(s.limits.Clamp(seconds))

	slot, err := s.repo.TryLock(ctx, id, workstationID, now, expiresAt)
	if err != nil {
		s.logger.Error("failed to lock slot", "error", err, "slot_id", id, "workstation_id", workstationID)
		s.metrics.LockAttempt(ctx, telemetry.LockFailed)
		return nil, apperr.Business(apperr.SlotLockFailed, "failed to lock slot %d", id)
	}
	if slot == nil {
		return nil, s.lockRefused(ctx, id, workstationID, now)
	}

	s.metrics.LockAttempt(ctx, telemetry.LockAcquired)
	s.logger.Info("slot locked", "slot_id", id, "workstation_id", workstationID, "expires_at", expiresAt)
	s.audit.Record(ctx, domain.AuditEntry{
		Action:        domain.AuditLock,
		EntityType:    domain.EntityLampSlot,
		EntityID:      id,
		WorkstationID: workstationID,
		Details:       fmt.Sprintf("slot %s locked until %s", slot.SlotNumber, expiresAt.Format(time.RFC3339)),
	})

	return &LockResult{Success: true, Slot: slot, LockExpiresAt: slot.LockExpiresAt}, nil
}

// lockRefused works out why the guarded update matched nothing.
func (s *Service) lockRefused(ctx context.Context, id int64, workstationID string, now time.Time) error {
	slot, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.metrics.LockAttempt(ctx, telemetry.LockFailed)
		return apperr.Business(apperr.SlotLockFailed, "failed to lock slot %d", id)
	}

	switch {
	case slot == nil:
		s.metrics.LockAttempt(ctx, telemetry.LockNotFound)
		return apperr.NotFound(apperr.SlotNotFound, "slot %d not found", id)
	case slot.Status == domain.SlotSold:
		s.metrics.LockAttempt(ctx, telemetry.LockSoldOut)
		return apperr.Conflict(apperr.SlotNotAvailable, "slot %s is already sold", slot.SlotNumber)
	case slot.LockActive(now):
		s.metrics.LockAttempt(ctx, telemetry.LockContended)
		s.logger.Warn("slot lock contended", "slot_id", id, "workstation_id", workstationID)
		return apperr.Conflict(apperr.SlotLocked, "slot %s is locked by another workstation", slot.SlotNumber)
	default:
		s.metrics.LockAttempt(ctx, telemetry.LockFailed)
		return apperr.Business(apperr.SlotLockFailed, "slot %s could not be locked", slot.SlotNumber)
	}
}

// Release frees the caller's lock. Releasing a slot that is not locked is a
// no-op; releasing someone else's live lock is an error.
func (s *Service) Release(ctx context.Context, id int64, workstationID string) (*ReleaseResult, error) {
	return s.release(ctx, id, workstationID, nil)
}

// ReleaseLockedBefore is Release for a lock that must already have been held
// at cutoff. A lock taken or renewed later is kept and reported as not
// released.
func (s *Service) ReleaseLockedBefore(ctx context.Context, id int64, workstationID string, cutoff time.Time) (*ReleaseResult, error) {
	return s.release(ctx, id, workstationID, &cutoff)
}

func (s *Service) release(ctx context.Context, id int64, workstationID string, lockedBefore *time.Time) (*ReleaseResult, error) {
	slot, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if slot.LockActive(now) && slot.LockedBy != nil && *slot.LockedBy != workstationID {
		return nil, apperr.Business(apperr.SlotNotLockedByYou, "slot %s is not locked by this workstation", slot.SlotNumber)
	}

	released, err := s.repo.Release(ctx, id, workstationID, now, lockedBefore)
	if err != nil {
		s.logger.Error("failed to release slot", "error", err, "slot_id", id, "workstation_id", workstationID)
		return nil, apperr.Business(apperr.SlotReleaseFailed, "failed to release slot %s", slot.SlotNumber)
	}

	if !released && lockedBefore != nil && slot.HeldBy(workstationID, now) {
		s.logger.Info("kept slot locked after its cutoff", "slot_id", id, "workstation_id", workstationID, "locked_before", *lockedBefore)
	}
	if released {
		s.logger.Info("slot released", "slot_id", id, "workstation_id", workstationID)
		s.audit.Record(ctx, domain.AuditEntry{
			Action:        domain.AuditRelease,
			EntityType:    domain.EntityLampSlot,
			EntityID:      id,
			WorkstationID: workstationID,
			Details:       fmt.Sprintf("slot %s released", slot.SlotNumber),
		})
	}

	return &ReleaseResult{Released: released, SlotID: id}, nil
}
