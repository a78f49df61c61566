package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Drug is an inventory item. Stock quantity only ever changes through a
// validated adjustment that also appends a ledger entry; a drug is never
// hard-deleted, deactivation is its terminal state.
type Drug struct {
	Base
	Name            string          `json:"name" db:"name"`
	GenericName     string          `json:"generic_name" db:"generic_name"`
	DosageForm      string          `json:"dosage_form" db:"dosage_form"`
	Strength        string          `json:"strength" db:"strength"`
	Manufacturer    string          `json:"manufacturer" db:"manufacturer"`
	BatchNumber     string          `json:"batch_number" db:"batch_number"`
	Category        string          `json:"category" db:"category"`
	ExpiryDate      time.Time       `json:"expiry_date" db:"expiry_date"`
	StockQuantity   int             `json:"stock_quantity" db:"stock_quantity"`
	MinStockLevel   int             `json:"min_stock_level" db:"min_stock_level"`
	UnitPrice       decimal.Decimal `json:"unit_price" db:"unit_price"`
	Active          bool            `json:"active" db:"active"`
	LastLedgerHash  string          `json:"last_ledger_hash" db:"last_ledger_hash"`
}

// IsLowStock reports whether quantity has fallen to or below the reorder
// threshold.
func (d *Drug) IsLowStock() bool {
	return d.StockQuantity <= d.MinStockLevel
}

// IsExpired is recomputed on read rather than stored, so it can never go
// stale.
func (d *Drug) IsExpired(now time.Time) bool {
	return d.ExpiryDate.Before(now)
}

// ExpiresWithin reports whether the drug expires inside the given horizon
// but has not expired yet.
func (d *Drug) ExpiresWithin(now time.Time, horizon time.Duration) bool {
	return !d.IsExpired(now) && d.ExpiryDate.Before(now.Add(horizon))
}

// CreateDrugRequest carries validated attributes for a new drug.
type CreateDrugRequest struct {
	Name          string          `json:"name" validate:"required"`
	GenericName   string          `json:"generic_name"`
	DosageForm    string          `json:"dosage_form"`
	Strength      string          `json:"strength" validate:"required"`
	Manufacturer  string          `json:"manufacturer" validate:"required"`
	BatchNumber   string          `json:"batch_number"`
	Category      string          `json:"category"`
	ExpiryDate    time.Time       `json:"expiry_date" validate:"required"`
	StockQuantity int             `json:"stock_quantity" validate:"gte=0"`
	MinStockLevel int             `json:"min_stock_level" validate:"gte=0"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
}

// AdjustStockRequest is the body of a manual stock adjustment.
type AdjustStockRequest struct {
	Delta int       `json:"delta" validate:"required"`
	Type  EntryType `json:"type" validate:"required"`
	Note  string    `json:"note"`
}

// DrugFilters narrows drug listings.
type DrugFilters struct {
	Category   string `form:"category"`
	SearchTerm string `form:"search"`
	LowStock   bool   `form:"low_stock"`
	Expired    bool   `form:"expired"`
	ActiveOnly bool   `form:"active_only"`
}

// StockAdjustment pairs the mutated drug with the ledger entry that
// committed the mutation.
type StockAdjustment struct {
	Drug        *Drug        `json:"drug"`
	LedgerEntry *LedgerEntry `json:"ledger_entry"`
}
