package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending:   {OrderStatusConfirmed: true, OrderStatusCancelled: true},
	OrderStatusConfirmed: {},
	OrderStatusCancelled: {},
}

func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusConfirmed || s == OrderStatusCancelled
}

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "CASH"
	PaymentCard     PaymentMethod = "CARD"
	PaymentTransfer PaymentMethod = "TRANSFER"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer:
		return true
	}
	return false
}

// OrderItem holds the slot price as it was when the order was created.
type OrderItem struct {
	ID           int64           `json:"orderItemId"`
	SlotID       int64           `json:"slotId"`
	SlotNumber   string          `json:"slotNumber"`
	LampTypeName string          `json:"lampTypeName"`
	Zone         string          `json:"zone"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Year         int             `json:"year"`
}

type Payment struct {
	ID                    int64           `json:"paymentId"`
	Method                PaymentMethod   `json:"paymentMethod"`
	AmountDue             decimal.Decimal `json:"amountDue"`
	AmountReceived        decimal.Decimal `json:"amountReceived"`
	ChangeAmount          decimal.Decimal `json:"changeAmount"`
	PaidAt                time.Time       `json:"paymentTime"`
	ReceivedByWorkstation string          `json:"receivedByWorkstation"`
	Notes                 *string         `json:"notes,omitempty"`
}

type Order struct {
	ID                   int64           `json:"orderId"`
	OrderNumber          string          `json:"orderNumber"`
	CustomerID           int64           `json:"customerId"`
	CustomerName         string          `json:"customerName"`
	CustomerPhone        string          `json:"customerPhone"`
	LightingName         string          `json:"lightingName"`
	BlessingContent      *string         `json:"blessingContent,omitempty"`
	Status               OrderStatus     `json:"status"`
	TotalAmount          decimal.Decimal `json:"totalAmount"`
	Items                []OrderItem     `json:"items"`
	Payment              *Payment        `json:"payment,omitempty"`
	CreatedAt            time.Time       `json:"createdAt"`
	CreatedByWorkstation string          `json:"createdByWorkstation"`
	Notes                *string         `json:"notes,omitempty"`
	CancelReason         *string         `json:"cancelReason,omitempty"`
}

// SlotIDs returns the slot of every item, in item order.
func (o *Order) SlotIDs() []int64 {
	ids := make([]int64, 0, len(o.Items))
	for _, item := range o.Items {
		ids = append(ids, item.SlotID)
	}
	return ids
}

// ItemsTotal sums the unit price snapshots.
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.UnitPrice)
	}
	return total
}

type Receipt struct {
	ReceiptNumber    string    `json:"receiptNumber"`
	Order            Order     `json:"order"`
	TempleName       string    `json:"templeName"`
	TempleAddress    string    `json:"templeAddress"`
	TemplePhone      string    `json:"templePhone"`
	PrintTime        time.Time `json:"printTime"`
	FormattedContent string    `json:"formattedContent"`
}

type PrintResult struct {
	Success       bool      `json:"success"`
	JobID         string    `json:"jobId"`
	ReceiptNumber string    `json:"receiptNumber"`
	PrinterName   string    `json:"printerName"`
	Copies        int       `json:"copies"`
	PrintTime     time.Time `json:"printTime"`
}
