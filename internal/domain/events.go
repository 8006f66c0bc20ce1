package domain

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated   = "order.created"
	EventOrderConfirmed = "order.confirmed"
	EventOrderCancelled = "order.cancelled"
)

type OrderEvent struct {
	EventID       string          `json:"eventId"`
	EventType     string          `json:"eventType"`
	OccurredAt    time.Time       `json:"occurredAt"`
	OrderID       int64           `json:"orderId"`
	OrderNumber   string          `json:"orderNumber"`
	WorkstationID string          `json:"workstationId"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// OrderCancelledPayload carries the slots the order held. Only locks that
// already existed at CancelledAt belong to the order.
type OrderCancelledPayload struct {
	SlotIDs     []int64   `json:"slotIds"`
	LockOwner   string    `json:"lockOwner"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelledAt"`
}

type PrintJob struct {
	JobID         string    `json:"jobId"`
	ReceiptNumber string    `json:"receiptNumber"`
	OrderID       int64     `json:"orderId"`
	PrinterName   string    `json:"printerName"`
	Copies        int       `json:"copies"`
	Content       string    `json:"content"`
	RequestedBy   string    `json:"requestedBy"`
	RequestedAt   time.Time `json:"requestedAt"`
}
