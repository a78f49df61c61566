package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestComputeHashDeterministic(t *testing.T) {
	entry := LedgerEntry{
		Sequence:          3,
		SubjectID:         uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2"),
		Type:              EntryDispensed,
		QuantityDelta:     -85,
		ResultingQuantity: 15,
		ActorID:           uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		Timestamp:         time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		PreviousHash:      GenesisPreviousHash,
	}

	first := entry.ComputeHash()
	assert.Len(t, first, 64)
	assert.Equal(t, first, entry.ComputeHash())

	// every hashed field changes the digest
	mutations := []func(e *LedgerEntry){
		func(e *LedgerEntry) { e.Sequence++ },
		func(e *LedgerEntry) { e.SubjectID = uuid.New() },
		func(e *LedgerEntry) { e.Type = EntryDamaged },
		func(e *LedgerEntry) { e.QuantityDelta++ },
		func(e *LedgerEntry) { e.ResultingQuantity++ },
		func(e *LedgerEntry) { e.ActorID = uuid.New() },
		func(e *LedgerEntry) { e.Timestamp = e.Timestamp.Add(time.Nanosecond) },
		func(e *LedgerEntry) { e.PreviousHash = "" },
	}
	for i, mutate := range mutations {
		changed := entry
		mutate(&changed)
		assert.NotEqual(t, first, changed.ComputeHash(), "mutation %d left the hash unchanged", i)
	}
}

func TestValidEntryType(t *testing.T) {
	for _, valid := range []EntryType{EntryStockIn, EntryDispensed, EntryExpired, EntryDamaged, EntryReturned, EntryAdjusted} {
		assert.True(t, ValidEntryType(valid), string(valid))
	}
	assert.False(t, ValidEntryType(EntryGenesis))
	assert.False(t, ValidEntryType("misplaced"))
}
