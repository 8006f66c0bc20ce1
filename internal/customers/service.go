package customers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/joao-fontenele/lampslot/internal/apperr"
	"github.com/joao-fontenele/lampslot/internal/domain"
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*domain.Customer, error)
	SearchByPhone(ctx context.Context, fragment string) ([]domain.Customer, error)
	Create(ctx context.Context, c *domain.Customer) (*domain.Customer, bool, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, entry domain.AuditEntry)
}

type Service struct {
	repo   Repository
	audit  AuditRecorder
	logger *slog.Logger
}

func NewService(repo Repository, audit AuditRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

type SearchResult struct {
	Customers  []domain.Customer `json:"customers"`
	TotalCount int               `json:"totalCount"`
}

func (s *Service) SearchByPhone(ctx context.Context, phone string) (*SearchResult, error) {
	phone = strings.TrimSpace(phone)
	if n := utf8.RuneCountInString(phone); n < 3 || n > 20 {
		return nil, apperr.Business(apperr.CustomerPhoneInvalid, "phone search needs 3 to 20 characters")
	}

	found, err := s.repo.SearchByPhone(ctx, phone)
	if err != nil {
		return nil, apperr.System(apperr.SystemError, err, "failed to search customers")
	}
	return &SearchResult{Customers: found, TotalCount: len(found)}, nil
}

// GetByID satisfies the order engine's customer lookup.
func (s *Service) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.System(apperr.SystemError, err, "failed to load customer")
	}
	if c == nil {
		return nil, apperr.NotFound(apperr.CustomerNotFound, "customer %d not found", id)
	}
	return c, nil
}

type CreateInput struct {
	Name    string
	Phone   string
	Address *string
	Notes   *string
}

func (in CreateInput) validate() error {
	if n := utf8.RuneCountInString(in.Name); n < 1 || n > 50 {
		return apperr.Validation(apperr.ValidationError, "name must be 1 to 50 characters")
	}
	if n := utf8.RuneCountInString(in.Phone); n < 6 || n > 20 {
		return apperr.Validation(apperr.ValidationError, "phone must be 6 to 20 characters")
	}
	if in.Address != nil && utf8.RuneCountInString(*in.Address) > 200 {
		return apperr.Validation(apperr.ValidationError, "address must be at most 200 characters")
	}
	if in.Notes != nil && utf8.RuneCountInString(*in.Notes) > 500 {
		return apperr.Validation(apperr.ValidationError, "notes must be at most 500 characters")
	}
	return nil
}

// Create registers a customer, or returns the one already holding the phone
// number. created reports which happened.
func (s *Service) Create(ctx context.Context, in CreateInput, workstationID string) (c *domain.Customer, created bool, err error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := in.validate(); err != nil {
		return nil, false, err
	}

	c, created, err = s.repo.Create(ctx, &domain.Customer{
		Name:    in.Name,
		Phone:   in.Phone,
		Address: in.Address,
		Notes:   in.Notes,
	})
	if err != nil {
		return nil, false, apperr.System(apperr.SystemError, err, "failed to create customer")
	}

	if !created {
		s.logger.Info("customer already registered", "customer_id", c.ID)
		return c, false, nil
	}

	s.logger.Info("customer created", "customer_id", c.ID, "workstation_id", workstationID)
	s.audit.Record(ctx, domain.AuditEntry{
		Action:        domain.AuditCreate,
		EntityType:    domain.EntityCustomer,
		EntityID:      c.ID,
		WorkstationID: workstationID,
		Details:       fmt.Sprintf("customer %s registered", c.Name),
	})
	return c, true, nil
}
