package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/lampslot/internal/apperr"
	"github.com/joao-fontenele/lampslot/internal/clock"
	"github.com/joao-fontenele/lampslot/internal/domain"
	"github.com/joao-fontenele/lampslot/internal/slots"
	"github.com/joao-fontenele/lampslot/internal/telemetry"
)

// Store is the order persistence the engine runs against.
type Store interface {
	Get(ctx context.Context, id int64) (*domain.Order, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Order, error)
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is one unit of work. Every write of a Create, Confirm or Cancel goes
// through a single Tx and commits or rolls back as a whole.
type Tx interface {
	LockSlot(ctx context.Context, slotID int64) (*domain.LampSlot, error)
	MarkSold(ctx context.Context, slotID int64, now time.Time) error
	NextOrderNumber(ctx context.Context, now time.Time) (string, error)
	InsertOrder(ctx context.Context, o *domain.Order) error
	InsertPayment(ctx context.Context, orderID int64, p *domain.Payment) error
	Transition(ctx context.Context, orderID int64, from, to domain.OrderStatus, cancelReason *string, now time.Time) (bool, error)
	Audit(ctx context.Context, entry domain.AuditEntry)
}

type ListFilter struct {
	Status *domain.OrderStatus
	Limit  int
}

type SlotReader interface {
	GetByID(ctx context.Context, id int64) (*domain.LampSlot, error)
}

type SlotReleaser interface {
	Release(ctx context.Context, slotID int64, workstationID string) (*slots.ReleaseResult, error)
}

type CustomerDirectory interface {
	GetByID(ctx context.Context, id int64) (*domain.Customer, error)
}

// Publisher sends a keyed message. Both Kafka topics use it.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// OrderCache holds confirmed orders, which never change again.
type OrderCache interface {
	Get(ctx context.Context, orderID int64) (*domain.Order, error)
	Set(ctx context.Context, order *domain.Order) error
	Delete(ctx context.Context, orderID int64) error
}

type AuditRecorder interface {
	Record(ctx context.Context, entry domain.AuditEntry)
}

type Temple struct {
	Name    string
	Address string
	Phone   string
}

// Deps wires the engine. Events, PrintJobs and Cache may be nil.
type Deps struct {
	Store     Store
	Slots     SlotReader
	Releaser  SlotReleaser
	Customers CustomerDirectory
	Audit     AuditRecorder
	Events    Publisher
	PrintJobs Publisher
	Cache     OrderCache
	Metrics   *telemetry.Metrics
	Clock     clock.Clock
	Temple    Temple
	Logger    *slog.Logger
}

// Engine owns every order state change: creation, payment and cancellation.
type Engine struct {
	Deps
}

func NewEngine(deps Deps) *Engine {
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	return &Engine{Deps: deps}
}

const (
	maxLightingName = 50
	maxBlessing     = 200
	maxNotes        = 500
	maxPaymentNotes = 200
	maxCancelReason = 200
	maxPrinterName  = 100
	maxCopies       = 5
	defaultPrinter  = "DEFAULT"
)

var maxAmountReceived = decimal.NewFromInt(9_999_999)

type CreateInput struct {
	CustomerID      int64
	SlotIDs         []int64
	LightingName    string
	BlessingContent *string
	Notes           *string
}

func (in *CreateInput) normalize() error {
	if in.CustomerID <= 0 {
		return apperr.Validation(apperr.ValidationError, "customerId must be positive")
	}
	if len(in.SlotIDs) == 0 {
		return apperr.Validation(apperr.ValidationError, "at least one lamp slot is required")
	}
	seen := make(map[int64]bool, len(in.SlotIDs))
	for _, id := range in.SlotIDs {
		if seen[id] {
			return apperr.Validation(apperr.ValidationError, "lamp slot %d is listed twice", id)
		}
		seen[id] = true
	}

	in.LightingName = strings.TrimSpace(in.LightingName)
	if n := runeLen(in.LightingName); n < 1 || n > maxLightingName {
		return apperr.Validation(apperr.ValidationError, "lightingName must be 1 to %d characters", maxLightingName)
	}
	if in.BlessingContent != nil && runeLen(*in.BlessingContent) > maxBlessing {
		return apperr.Validation(apperr.ValidationError, "blessingContent must be at most %d characters", maxBlessing)
	}
	if in.Notes != nil && runeLen(*in.Notes) > maxNotes {
		return apperr.Validation(apperr.ValidationError, "notes must be at most %d characters", maxNotes)
	}
	return nil
}

// Create turns the caller's locked slots into a PENDING order. Each slot is
// re-checked under its row lock, so a lock that lapsed after it was taken
// fails the whole order.
func (e *Engine) Create(ctx context.Context, in CreateInput, workstationID string) (*domain.Order, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	customer, err := e.Customers.GetByID(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}

	for _, id := range in.SlotIDs {
		slot, err := e.Slots.GetByID(ctx, id)
		if err != nil {
			return nil, apperr.System(apperr.OrderCreateFailed, err, "failed to create order")
		}
		if slot == nil {
			return nil, apperr.NotFound(apperr.SlotNotFound, "lamp slot %d not found", id)
		}
	}

	now := e.Clock.Now()
	order := &domain.Order{
		CustomerID:           customer.ID,
		CustomerName:         customer.Name,
		CustomerPhone:        customer.Phone,
		LightingName:         in.LightingName,
		BlessingContent:      in.BlessingContent,
		Status:               domain.OrderStatusPending,
		CreatedAt:            now,
		CreatedByWorkstation: workstationID,
		Notes:                in.Notes,
	}

	err = e.Store.InTx(ctx, func(tx Tx) error {
		held := make(map[int64]*domain.LampSlot, len(in.SlotIDs))
		for _, id := range lockOrder(in.SlotIDs) {
			slot, err := tx.LockSlot(ctx, id)
			if err != nil {
				return err
			}
			if err := checkHeld(slot, id, workstationID, now); err != nil {
				return err
			}
			held[id] = slot
		}

		order.Items = make([]domain.OrderItem, 0, len(in.SlotIDs))
		for _, id := range in.SlotIDs {
			slot := held[id]
			order.Items = append(order.Items, domain.OrderItem{
				SlotID:       slot.ID,
				SlotNumber:   slot.SlotNumber,
				LampTypeName: slot.LampTypeName,
				Zone:         slot.Zone,
				UnitPrice:    slot.Price,
				Year:         slot.Year,
			})
		}
		order.TotalAmount = order.ItemsTotal()

		number, err := tx.NextOrderNumber(ctx, now)
		if err != nil {
			return err
		}
		order.OrderNumber = number

		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}

		tx.Audit(ctx, domain.AuditEntry{
			Action:        domain.AuditCreate,
			EntityType:    domain.EntityOrder,
			EntityID:      order.ID,
			WorkstationID: workstationID,
			Details: fmt.Sprintf("order %s, slots [%s], total %s",
				order.OrderNumber, slotNumbers(order.Items), domain.FormatAmount(order.TotalAmount)),
			CreatedAt: now,
		})
		return nil
	})
	if err != nil {
		if appErr, ok := apperr.From(err); ok {
			e.Logger.Warn("order creation refused",
				"customer_id", in.CustomerID,
				"workstation_id", workstationID,
				"error_code", appErr.Code.Name(),
				"error", appErr.Message,
			)
			return nil, appErr
		}
		e.Logger.Error("failed to create order", "error", err, "customer_id", in.CustomerID)
		return nil, apperr.System(apperr.OrderCreateFailed, err, "failed to create order")
	}

	e.Logger.Info("order created",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"slot_count", len(order.Items),
		"total_amount", order.TotalAmount.String(),
		"workstation_id", workstationID,
	)
	e.Metrics.OrderTransition(ctx, string(domain.OrderStatusPending))
	e.publish(ctx, domain.EventOrderCreated, order, workstationID, nil)
	return order, nil
}

// checkHeld verifies that workstationID still owns an unexpired lock on slot.
func checkHeld(slot *domain.LampSlot, id int64, workstationID string, now time.Time) error {
	if slot == nil {
		return apperr.NotFound(apperr.SlotNotFound, "lamp slot %d not found", id)
	}
	switch {
	case slot.Status == domain.SlotSold:
		return apperr.Conflict(apperr.SlotNotAvailable, "lamp slot %s is already sold", slot.SlotNumber)
	case slot.HeldBy(workstationID, now):
		return nil
	case slot.LockActive(now):
		return apperr.Conflict(apperr.SlotLocked, "lamp slot %s is locked by another workstation", slot.SlotNumber)
	default:
		return apperr.Business(apperr.SlotLockExpired, "lock on lamp slot %s has expired", slot.SlotNumber)
	}
}

type ConfirmInput struct {
	PaymentMethod  domain.PaymentMethod
	AmountReceived decimal.Decimal
	PaymentNotes   *string
}

func (in ConfirmInput) validate() error {
	if !in.PaymentMethod.Valid() {
		return apperr.Validation(apperr.PaymentMethodInvalid, "payment method must be CASH, CARD or TRANSFER")
	}
	if in.AmountReceived.IsNegative() || in.AmountReceived.GreaterThan(maxAmountReceived) {
		return apperr.Validation(apperr.ValidationError, "amountReceived must be between 0 and %s", maxAmountReceived)
	}
	if in.PaymentNotes != nil && runeLen(*in.PaymentNotes) > maxPaymentNotes {
		return apperr.Validation(apperr.ValidationError, "paymentNotes must be at most %d characters", maxPaymentNotes)
	}
	return nil
}

// errLostRace marks a guarded status update that matched no row.
var errLostRace = errors.New("order status changed concurrently")

// Confirm records the payment and sells every slot of the order in one
// transaction.
func (e *Engine) Confirm(ctx context.Context, orderID int64, in ConfirmInput, workstationID string) (*domain.Order, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	order, err := e.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := transitionError(order.Status, domain.OrderStatusConfirmed); err != nil {
		return nil, err
	}
	if in.AmountReceived.LessThan(order.TotalAmount) {
		return nil, apperr.Business(apperr.PaymentAmountMismatch,
			"amount received %s is less than amount due %s", in.AmountReceived, order.TotalAmount)
	}

	now := e.Clock.Now()
	payment := &domain.Payment{
		Method:                in.PaymentMethod,
		AmountDue:             order.TotalAmount,
		AmountReceived:        in.AmountReceived,
		ChangeAmount:          in.AmountReceived.Sub(order.TotalAmount),
		PaidAt:                now,
		ReceivedByWorkstation: workstationID,
		Notes:                 in.PaymentNotes,
	}

	err = e.Store.InTx(ctx, func(tx Tx) error {
		ok, err := tx.Transition(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusConfirmed, nil, now)
		if err != nil {
			return err
		}
		if !ok {
			return errLostRace
		}

		items := make(map[int64]domain.OrderItem, len(order.Items))
		for _, item := range order.Items {
			items[item.SlotID] = item
		}
		slotIDs := lockOrder(order.SlotIDs())
		for _, id := range slotIDs {
			slot, err := tx.LockSlot(ctx, id)
			if err != nil {
				return err
			}
			if err := checkSellable(slot, items[id], order.CreatedByWorkstation, now); err != nil {
				return err
			}
		}

		if err := tx.InsertPayment(ctx, order.ID, payment); err != nil {
			return err
		}
		for _, id := range slotIDs {
			if err := tx.MarkSold(ctx, id, now); err != nil {
				return err
			}
		}

		tx.Audit(ctx, domain.AuditEntry{
			Action:        domain.AuditConfirm,
			EntityType:    domain.EntityOrder,
			EntityID:      order.ID,
			WorkstationID: workstationID,
			Details: fmt.Sprintf("order %s paid by %s, received %s, change %s",
				order.OrderNumber, payment.Method,
				domain.FormatAmount(payment.AmountReceived), domain.FormatAmount(payment.ChangeAmount)),
			CreatedAt: now,
		})
		return nil
	})
	if err != nil {
		return nil, e.txFailure(ctx, err, order.ID, domain.OrderStatusConfirmed, apperr.OrderPaymentFailed, "failed to confirm order")
	}

	order.Status = domain.OrderStatusConfirmed
	order.Payment = payment

	e.Logger.Info("order confirmed",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"payment_method", string(payment.Method),
		"change_amount", payment.ChangeAmount.String(),
		"workstation_id", workstationID,
	)
	e.Metrics.OrderTransition(ctx, string(domain.OrderStatusConfirmed))

	if e.Cache != nil {
		if err := e.Cache.Delete(ctx, order.ID); err != nil {
			e.Logger.Warn("failed to invalidate cached order", "error", err, "order_id", order.ID)
		}
	}
	e.publish(ctx, domain.EventOrderConfirmed, order, workstationID, nil)
	return order, nil
}

// checkSellable refuses to sell a slot that somebody else bought or holds
// since the order was created. A lapsed lock of the order's own workstation
// is still sellable.
func checkSellable(slot *domain.LampSlot, item domain.OrderItem, owner string, now time.Time) error {
	if slot == nil {
		return apperr.NotFound(apperr.SlotNotFound, "lamp slot %d not found", item.SlotID)
	}
	if slot.Status == domain.SlotSold {
		return apperr.Conflict(apperr.SlotNotAvailable, "lamp slot %s is already sold", slot.SlotNumber)
	}
	if slot.LockActive(now) && !slot.HeldBy(owner, now) {
		return apperr.Conflict(apperr.SlotLocked, "lamp slot %s is locked by another workstation", slot.SlotNumber)
	}
	return nil
}

// Cancel ends a PENDING order. The status change commits on its own; slot
// releases afterwards are best-effort and backed by lock expiry and the
// order.cancelled event.
func (e *Engine) Cancel(ctx context.Context, orderID int64, reason, workstationID string) (*domain.Order, error) {
	reason = strings.TrimSpace(reason)
	if n := runeLen(reason); n < 1 || n > maxCancelReason {
		return nil, apperr.Validation(apperr.ValidationError, "reason must be 1 to %d characters", maxCancelReason)
	}

	order, err := e.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := transitionError(order.Status, domain.OrderStatusCancelled); err != nil {
		return nil, err
	}

	now := e.Clock.Now()
	err = e.Store.InTx(ctx, func(tx Tx) error {
		ok, err := tx.Transition(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusCancelled, &reason, now)
		if err != nil {
			return err
		}
		if !ok {
			return errLostRace
		}

		tx.Audit(ctx, domain.AuditEntry{
			Action:        domain.AuditCancel,
			EntityType:    domain.EntityOrder,
			EntityID:      order.ID,
			WorkstationID: workstationID,
			Details:       fmt.Sprintf("order %s cancelled: %s", order.OrderNumber, reason),
			CreatedAt:     now,
		})
		return nil
	})
	if err != nil {
		return nil, e.txFailure(ctx, err, order.ID, domain.OrderStatusCancelled, apperr.SystemError, "failed to cancel order")
	}

	order.Status = domain.OrderStatusCancelled
	order.CancelReason = &reason

	e.Logger.Info("order cancelled",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"reason", reason,
		"workstation_id", workstationID,
	)
	e.Metrics.OrderTransition(ctx, string(domain.OrderStatusCancelled))

	slotIDs := order.SlotIDs()
	for _, id := range slotIDs {
		if _, err := e.Releaser.Release(ctx, id, order.CreatedByWorkstation); err != nil {
			e.Logger.Warn("failed to release slot after cancellation",
				"error", err,
				"order_id", order.ID,
				"slot_id", id,
			)
		}
	}

	e.publish(ctx, domain.EventOrderCancelled, order, workstationID, domain.OrderCancelledPayload{
		SlotIDs:     slotIDs,
		LockOwner:   order.CreatedByWorkstation,
		Reason:      reason,
		CancelledAt: now,
	})
	return order, nil
}

// lockOrder is the order slot rows are locked in. Every transaction takes
// them by ascending id so two orders over the same slots cannot deadlock.
func lockOrder(ids []int64) []int64 {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return sorted
}

// txFailure maps an error out of a Confirm or Cancel transaction.
func (e *Engine) txFailure(ctx context.Context, err error, orderID int64, target domain.OrderStatus, code apperr.Code, message string) error {
	if errors.Is(err, errLostRace) {
		current, getErr := e.Get(ctx, orderID)
		if getErr != nil {
			return getErr
		}
		if stErr := transitionError(current.Status, target); stErr != nil {
			return stErr
		}
		return apperr.Business(apperr.OrderInvalidStatus, "order %d changed while being updated", orderID)
	}
	if appErr, ok := apperr.From(err); ok {
		e.Logger.Warn("order update refused", "order_id", orderID, "error_code", appErr.Code.Name(), "error", appErr.Message)
		return appErr
	}
	e.Logger.Error(message, "error", err, "order_id", orderID)
	return apperr.System(code, err, message)
}

// transitionError returns nil when from may move to to.
func transitionError(from, to domain.OrderStatus) error {
	if domain.CanTransition(from, to) {
		return nil
	}
	switch from {
	case domain.OrderStatusConfirmed:
		return apperr.Business(apperr.OrderAlreadyConfirmed, "order is already confirmed")
	case domain.OrderStatusCancelled:
		return apperr.Business(apperr.OrderAlreadyCancelled, "order is already cancelled")
	default:
		return apperr.Business(apperr.OrderInvalidStatus, "order in status %s cannot become %s", from, to)
	}
}

func (e *Engine) Get(ctx context.Context, orderID int64) (*domain.Order, error) {
	order, err := e.Store.Get(ctx, orderID)
	if err != nil {
		e.Logger.Error("failed to get order", "error", err, "order_id", orderID)
		return nil, apperr.System(apperr.SystemError, err, "failed to load order")
	}
	if order == nil {
		return nil, apperr.NotFound(apperr.OrderNotFound, "order %d not found", orderID)
	}
	return order, nil
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

func (e *Engine) List(ctx context.Context, status string, limit int) ([]domain.Order, error) {
	filter := ListFilter{Limit: limit}
	if status != "" {
		st := domain.OrderStatus(strings.ToUpper(status))
		if _, ok := validStatuses[st]; !ok {
			return nil, apperr.Validation(apperr.ValidationError, "unknown order status %q", status)
		}
		filter.Status = &st
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultListLimit
	case filter.Limit > maxListLimit:
		filter.Limit = maxListLimit
	}

	orders, err := e.Store.List(ctx, filter)
	if err != nil {
		e.Logger.Error("failed to list orders", "error", err)
		return nil, apperr.System(apperr.SystemError, err, "failed to list orders")
	}
	return orders, nil
}

var validStatuses = map[domain.OrderStatus]struct{}{
	domain.OrderStatusPending:   {},
	domain.OrderStatusConfirmed: {},
	domain.OrderStatusCancelled: {},
}

// GetReceipt renders the receipt of a confirmed order.
func (e *Engine) GetReceipt(ctx context.Context, orderID int64) (*domain.Receipt, error) {
	order, err := e.confirmedOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return &domain.Receipt{
		ReceiptNumber:    ReceiptNumber(order),
		Order:            *order,
		TempleName:       e.Temple.Name,
		TempleAddress:    e.Temple.Address,
		TemplePhone:      e.Temple.Phone,
		PrintTime:        e.Clock.Now(),
		FormattedContent: FormatReceipt(order),
	}, nil
}

func (e *Engine) confirmedOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	if e.Cache != nil {
		cached, err := e.Cache.Get(ctx, orderID)
		if err != nil {
			e.Logger.Warn("order cache read failed", "error", err, "order_id", orderID)
		}
		if cached != nil {
			return cached, nil
		}
	}

	order, err := e.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusConfirmed {
		return nil, apperr.Business(apperr.OrderInvalidStatus, "only confirmed orders have a receipt")
	}

	if e.Cache != nil {
		if err := e.Cache.Set(ctx, order); err != nil {
			e.Logger.Warn("order cache write failed", "error", err, "order_id", orderID)
		}
	}
	return order, nil
}

type PrintInput struct {
	PrinterName *string
	Copies      int
}

// Print records a receipt print and hands the job to the print queue.
func (e *Engine) Print(ctx context.Context, orderID int64, in PrintInput, workstationID string) (*domain.PrintResult, error) {
	if in.Copies < 1 || in.Copies > maxCopies {
		return nil, apperr.Validation(apperr.ValidationError, "copies must be 1 to %d", maxCopies)
	}
	printer := defaultPrinter
	if in.PrinterName != nil {
		if name := strings.TrimSpace(*in.PrinterName); name != "" {
			printer = name
		}
	}
	if runeLen(printer) > maxPrinterName {
		return nil, apperr.Validation(apperr.ValidationError, "printerName must be at most %d characters", maxPrinterName)
	}

	receipt, err := e.GetReceipt(ctx, orderID)
	if err != nil {
		return nil, err
	}

	job := domain.PrintJob{
		JobID:         uuid.New().String(),
		ReceiptNumber: receipt.ReceiptNumber,
		OrderID:       orderID,
		PrinterName:   printer,
		Copies:        in.Copies,
		Content:       receipt.FormattedContent,
		RequestedBy:   workstationID,
		RequestedAt:   receipt.PrintTime,
	}

	e.Audit.Record(ctx, domain.AuditEntry{
		Action:        domain.AuditPrint,
		EntityType:    domain.EntityReceipt,
		EntityID:      orderID,
		WorkstationID: workstationID,
		Details:       fmt.Sprintf("receipt %s, copies %d", receipt.ReceiptNumber, in.Copies),
		CreatedAt:     receipt.PrintTime,
	})

	if e.PrintJobs != nil {
		if err := e.PrintJobs.Publish(ctx, job.ReceiptNumber, job); err != nil {
			e.Logger.Warn("failed to queue print job", "error", err, "job_id", job.JobID, "order_id", orderID)
		}
	}

	e.Logger.Info("receipt printed",
		"order_id", orderID,
		"receipt_number", receipt.ReceiptNumber,
		"printer", printer,
		"copies", in.Copies,
		"workstation_id", workstationID,
	)
	return &domain.PrintResult{
		Success:       true,
		JobID:         job.JobID,
		ReceiptNumber: receipt.ReceiptNumber,
		PrinterName:   printer,
		Copies:        in.Copies,
		PrintTime:     receipt.PrintTime,
	}, nil
}

func (e *Engine) publish(ctx context.Context, eventType string, order *domain.Order, workstationID string, payload any) {
	if e.Events == nil {
		return
	}

	event := domain.OrderEvent{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		OccurredAt:    e.Clock.Now(),
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		WorkstationID: workstationID,
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			e.Logger.Error("failed to encode event payload", "error", err, "event_type", eventType)
			return
		}
		event.Payload = raw
	}

	if err := e.Events.Publish(ctx, strconv.FormatInt(order.ID, 10), event); err != nil {
		e.Logger.Warn("failed to publish order event",
			"error", err,
			"event_type", eventType,
			"order_id", order.ID,
		)
	}
}

func slotNumbers(items []domain.OrderItem) string {
	numbers := make([]string, 0, len(items))
	for _, item := range items {
		numbers = append(numbers, item.SlotNumber)
	}
	return strings.Join(numbers, ", ")
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
