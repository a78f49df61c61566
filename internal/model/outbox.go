package model

import (
	"time"

	"github.com/google/uuid"
)

// OutboxStatus tracks delivery of a fire-and-forget event. Events decouple
// downstream alerting from the core: the mutation that produced one is
// already committed by the time the event row exists.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusProcessed OutboxStatus = "processed"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// Event types emitted by the core.
const (
	EventDrugAdded             = "DRUG_ADDED"
	EventStockAdjusted         = "STOCK_ADJUSTED"
	EventDrugDeactivated       = "DRUG_DEACTIVATED"
	EventLowStockAlert         = "LOW_STOCK_ALERT"
	EventPrescriptionCreated   = "PRESCRIPTION_CREATED"
	EventPrescriptionVerified  = "PRESCRIPTION_VERIFIED"
	EventPrescriptionDispensed = "PRESCRIPTION_DISPENSED"
	EventPrescriptionCancelled = "PRESCRIPTION_CANCELLED"
	EventPrescriptionExpired   = "PRESCRIPTION_EXPIRED"
)

// OutboxEvent is a pending publication to the message broker.
type OutboxEvent struct {
	ID           uuid.UUID    `json:"id" db:"id"`
	EventType    string       `json:"event_type" db:"event_type"`
	Payload      []byte       `json:"payload" db:"payload"`
	Status       OutboxStatus `json:"status" db:"status"`
	ErrorMessage *string      `json:"error_message,omitempty" db:"error_message"`
	RetryCount   int          `json:"retry_count" db:"retry_count"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	ProcessedAt  *time.Time   `json:"processed_at,omitempty" db:"processed_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}
