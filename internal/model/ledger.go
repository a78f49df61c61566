package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EntryType classifies a ledger entry by the stock event it records.
type EntryType string

const (
	EntryGenesis   EntryType = "genesis"
	EntryStockIn   EntryType = "stock_in"
	EntryDispensed EntryType = "dispensed"
	EntryExpired   EntryType = "expired"
	EntryDamaged   EntryType = "damaged"
	EntryReturned  EntryType = "returned"
	EntryAdjusted  EntryType = "adjustment"
)

// GenesisPreviousHash anchors the chain: the first entry commits to an
// all-zero predecessor.
var GenesisPreviousHash = strings.Repeat("0", 64)

// ValidEntryType reports whether t is one of the recorded stock event kinds.
// Genesis is excluded: it is written once by the ledger itself.
func ValidEntryType(t EntryType) bool {
	switch t {
	case EntryStockIn, EntryDispensed, EntryExpired, EntryDamaged, EntryReturned, EntryAdjusted:
		return true
	}
	return false
}

// LedgerEntry is one immutable record in the hash-linked transaction log.
// Entries are never updated or deleted once appended; the stored hash of
// entry i is the previous hash of entry i+1.
type LedgerEntry struct {
	Sequence          int64     `json:"sequence" db:"sequence"`
	SubjectID         uuid.UUID `json:"subject_id" db:"subject_id"`
	Type              EntryType `json:"type" db:"entry_type"`
	QuantityDelta     int       `json:"quantity_delta" db:"quantity_delta"`
	ResultingQuantity int       `json:"resulting_quantity" db:"resulting_quantity"`
	ActorID           uuid.UUID `json:"actor_id" db:"actor_id"`
	ActorRole         string    `json:"actor_role" db:"actor_role"`
	Timestamp         time.Time `json:"timestamp" db:"entry_timestamp"`
	Note              string    `json:"note" db:"note"`
	Hash              string    `json:"hash" db:"hash"`
	PreviousHash      string    `json:"previous_hash" db:"previous_hash"`
}

// ComputeHash recomputes the entry hash from its stored fields. An external
// auditor must be able to reproduce this from an exported record alone, so
// only exported fields participate and the timestamp is canonicalized to
// RFC3339Nano in UTC.
func (e *LedgerEntry) ComputeHash() string {
	payload := fmt.Sprintf("%d|%s|%s|%d|%d|%s|%s|%s",
		e.Sequence,
		e.SubjectID,
		e.Type,
		e.QuantityDelta,
		e.ResultingQuantity,
		e.ActorID,
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.PreviousHash,
	)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// IntegrityReport is the result of a full chain verification.
type IntegrityReport struct {
	Valid            bool   `json:"valid"`
	BrokenAtSequence *int64 `json:"broken_at_sequence,omitempty"`
	EntriesChecked   int64  `json:"entries_checked"`
}
