package customers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/joao-fontenele/lampslot/internal/domain"
)

const selectCustomer = `
	SELECT c.id, c.name, c.phone, c.address, c.notes, c.created_at,
		COUNT(o.id) AS total_orders
	FROM customers c
	LEFT JOIN orders o ON o.customer_id = c.id AND o.status = 'CONFIRMED'
`

const groupCustomer = `
	GROUP BY c.id, c.name, c.phone, c.address, c.notes, c.created_at
`

type CustomerRepository struct {
	db *sql.DB
}

func NewCustomerRepository(db *sql.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (*domain.Customer, error) {
	var (
		c       domain.Customer
		address sql.NullString
		notes   sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Phone, &address, &notes, &c.CreatedAt, &c.TotalOrders); err != nil {
		return nil, err
	}
	if address.Valid {
		c.Address = &address.String
	}
	if notes.Valid {
		c.Notes = &notes.String
	}
	return &c, nil
}

func (r *CustomerRepository) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	return r.getOne(ctx, "WHERE c.id = $1", id)
}

func (r *CustomerRepository) GetByPhone(ctx context.Context, phone string) (*domain.Customer, error) {
	return r.getOne(ctx, "WHERE c.phone = $1", phone)
}

func (r *CustomerRepository) SearchByPhone(ctx context.Context, fragment string) ([]domain.Customer, error) {
	rows, err := r.db.QueryContext(ctx, selectCustomer+`
		WHERE c.phone LIKE '%' || $1 || '%'
	`+groupCustomer+`
		ORDER BY c.name
	`, fragment)
	if err != nil {
		return nil, fmt.Errorf("search customers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	customers := []domain.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

// Create inserts a customer. When the phone number is already registered it
// returns the existing row and created=false.
func (r *CustomerRepository) Create(ctx context.Context, c *domain.Customer) (*domain.Customer, bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO customers (name, phone, address, notes, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (phone) DO NOTHING
		RETURNING id
	`, c.Name, c.Phone, c.Address, c.Notes, time.Now().UTC()).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		existing, err := r.GetByPhone(ctx, c.Phone)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, fmt.Errorf("customer with phone %s vanished after conflict", c.Phone)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("insert customer: %w", err)
	}

	created, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

func (r *CustomerRepository) getOne(ctx context.Context, where string, arg any) (*domain.Customer, error) {
	c, err := scanCustomer(r.db.QueryRowContext(ctx, selectCustomer+where+groupCustomer, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}
