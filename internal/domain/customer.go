package domain

import "time"

type Customer struct {
	ID          int64     `json:"customerId"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	Address     *string   `json:"address,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
	TotalOrders int       `json:"totalOrders"`
	CreatedAt   time.Time `json:"createdAt"`
}
