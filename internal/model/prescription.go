package model

import (
	"time"

	"github.com/google/uuid"
)

// PrescriptionStatus is the lifecycle state of a prescription.
// Dispensed, Cancelled and Expired are terminal.
type PrescriptionStatus string

const (
	PrescriptionPending   PrescriptionStatus = "pending"
	PrescriptionVerified  PrescriptionStatus = "verified"
	PrescriptionDispensed PrescriptionStatus = "dispensed"
	PrescriptionCancelled PrescriptionStatus = "cancelled"
	PrescriptionExpired   PrescriptionStatus = "expired"
)

// Terminal reports whether no further transition is legal from s.
func (s PrescriptionStatus) Terminal() bool {
	switch s {
	case PrescriptionDispensed, PrescriptionCancelled, PrescriptionExpired:
		return true
	}
	return false
}

// Prescription references exactly one drug and produces at most one
// dispensed ledger entry. QuantityDispensed stays 0 until the dispense
// commits, after which it equals the quantity the ledger entry recorded.
type Prescription struct {
	Base
	Number            string             `json:"number" db:"number"`
	PatientID         uuid.UUID          `json:"patient_id" db:"patient_id"`
	PrescriberID      uuid.UUID          `json:"prescriber_id" db:"prescriber_id"`
	DrugID            uuid.UUID          `json:"drug_id" db:"drug_id"`
	QuantityRequested int                `json:"quantity_requested" db:"quantity_requested"`
	QuantityDispensed int                `json:"quantity_dispensed" db:"quantity_dispensed"`
	Instructions      string             `json:"instructions" db:"instructions"`
	DurationDays      int                `json:"duration_days" db:"duration_days"`
	Status            PrescriptionStatus `json:"status" db:"status"`
	RejectionNote     string             `json:"rejection_note,omitempty" db:"rejection_note"`
	VerifierID        *uuid.UUID         `json:"verifier_id,omitempty" db:"verifier_id"`
	DispenserID       *uuid.UUID         `json:"dispenser_id,omitempty" db:"dispenser_id"`
	DispensedAt       *time.Time         `json:"dispensed_at,omitempty" db:"dispensed_at"`
	CancelledAt       *time.Time         `json:"cancelled_at,omitempty" db:"cancelled_at"`
	ExpiredAt         *time.Time         `json:"expired_at,omitempty" db:"expired_at"`
	LedgerHash        string             `json:"ledger_hash,omitempty" db:"ledger_hash"`
}

// CreatePrescriptionRequest carries validated attributes for a new
// prescription.
type CreatePrescriptionRequest struct {
	PatientID    uuid.UUID `json:"patient_id" validate:"required"`
	DrugID       uuid.UUID `json:"drug_id" validate:"required"`
	Quantity     int       `json:"quantity" validate:"required,gt=0"`
	Instructions string    `json:"instructions"`
	DurationDays int       `json:"duration_days" validate:"required,gt=0"`
}

// VerifyPrescriptionRequest approves or rejects a pending prescription.
type VerifyPrescriptionRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

// DispensePrescriptionRequest commits inventory against a verified
// prescription.
type DispensePrescriptionRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

// PrescriptionFilters narrows prescription listings.
type PrescriptionFilters struct {
	PatientID    *uuid.UUID          `form:"patient_id"`
	PrescriberID *uuid.UUID          `form:"prescriber_id"`
	Status       *PrescriptionStatus `form:"status"`
}
