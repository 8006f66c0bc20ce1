// Package apperr defines the coded errors surfaced to workstation clients.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindSystem Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindBusiness
)

type Code string

const (
	SystemError         Code = "ERR_1000"
	ValidationError     Code = "ERR_1001"
	NotFoundError       Code = "ERR_1002"
	InvalidRequest      Code = "ERR_1003"
	WorkstationRequired Code = "ERR_1004"

	CustomerNotFound     Code = "ERR_2001"
	CustomerPhoneInvalid Code = "ERR_2002"

	SlotNotFound       Code = "ERR_3001"
	SlotLocked         Code = "ERR_3002"
	SlotNotAvailable   Code = "ERR_3003"
	SlotLockExpired    Code = "ERR_3004"
	SlotLockFailed     Code = "ERR_3005"
	SlotNotLockedByYou Code = "ERR_3006"
	SlotReleaseFailed  Code = "ERR_3007"

	OrderNotFound         Code = "ERR_4001"
	OrderAlreadyConfirmed Code = "ERR_4002"
	OrderAlreadyCancelled Code = "ERR_4003"
	OrderInvalidStatus    Code = "ERR_4004"
	OrderCreateFailed     Code = "ERR_4005"
	OrderPaymentFailed    Code = "ERR_4006"

	PaymentAmountMismatch Code = "ERR_5001"
	PaymentMethodInvalid  Code = "ERR_5002"
)

var codeNames = map[Code]string{
	SystemError:           "SYSTEM_ERROR",
	ValidationError:       "VALIDATION_ERROR",
	NotFoundError:         "NOT_FOUND",
	InvalidRequest:        "INVALID_REQUEST",
	WorkstationRequired:   "WORKSTATION_REQUIRED",
	CustomerNotFound:      "CUSTOMER_NOT_FOUND",
	CustomerPhoneInvalid:  "CUSTOMER_PHONE_INVALID",
	SlotNotFound:          "SLOT_NOT_FOUND",
	SlotLocked:            "SLOT_LOCKED",
	SlotNotAvailable:      "SLOT_NOT_AVAILABLE",
	SlotLockExpired:       "SLOT_LOCK_EXPIRED",
	SlotLockFailed:        "SLOT_LOCK_FAILED",
	SlotNotLockedByYou:    "SLOT_NOT_LOCKED_BY_YOU",
	SlotReleaseFailed:     "SLOT_RELEASE_FAILED",
	OrderNotFound:         "ORDER_NOT_FOUND",
	OrderAlreadyConfirmed: "ORDER_ALREADY_CONFIRMED",
	OrderAlreadyCancelled: "ORDER_ALREADY_CANCELLED",
	OrderInvalidStatus:    "ORDER_INVALID_STATUS",
	OrderCreateFailed:     "ORDER_CREATE_FAILED",
	OrderPaymentFailed:    "ORDER_PAYMENT_FAILED",
	PaymentAmountMismatch: "PAYMENT_AMOUNT_MISMATCH",
	PaymentMethodInvalid:  "PAYMENT_METHOD_INVALID",
}

// Name returns the symbolic name used in logs, e.g. SLOT_LOCKED.
func (c Code) Name() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return string(c)
}

type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Code, e.Code.Name(), e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Code, e.Code.Name(), e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind to a response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindValidation, KindBusiness:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func NotFound(code Code, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Conflict(code Code, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Business(code Code, format string, args ...any) *Error {
	return &Error{Kind: KindBusiness, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Validation(code Code, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

// System wraps an unexpected failure. The message is what clients see; err
// stays in logs only.
func System(code Code, err error, message string) *Error {
	return &Error{Kind: KindSystem, Code: code, Message: message, Err: err}
}

// From extracts an *Error from err's chain.
func From(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code carried by err, or SystemError for anything else.
func CodeOf(err error) Code {
	if appErr, ok := From(err); ok {
		return appErr.Code
	}
	return SystemError
}

func IsKind(err error, kind Kind) bool {
	appErr, ok := From(err)
	return ok && appErr.Kind == kind
}
