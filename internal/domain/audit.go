package domain

import "time"

const (
	AuditLock    = "LOCK"
	AuditRelease = "RELEASE"
	AuditCreate  = "CREATE"
	AuditConfirm = "CONFIRM"
	AuditCancel  = "CANCEL"
	AuditPrint   = "PRINT"
)

const (
	EntityLampSlot = "LampSlot"
	EntityOrder    = "Order"
	EntityReceipt  = "Receipt"
	EntityCustomer = "Customer"
)

type AuditEntry struct {
	Action        string
	EntityType    string
	EntityID      int64
	WorkstationID string
	Details       string
	CreatedAt     time.Time
}
