package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/pharmatrust/pharmacy-api/internal/model"
)

// LedgerRepository keeps the chain in an append-only slice. The concrete
// type is exported for its Corrupt helper, which tamper-detection tests use
// to mutate storage behind the ledger's back.
type LedgerRepository struct {
	mu      sync.RWMutex
	entries []model.LedgerEntry
}

func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{}
}

func (r *LedgerRepository) Append(ctx context.Context, entry *model.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *LedgerRepository) Last(ctx context.Context) (*model.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.entries) == 0 {
		return nil, nil
	}
	last := r.entries[len(r.entries)-1]
	return &last, nil
}

func (r *LedgerRepository) List(ctx context.Context) ([]*model.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.LedgerEntry, len(r.entries))
	for i := range r.entries {
		e := r.entries[i]
		out[i] = &e
	}
	return out, nil
}

func (r *LedgerRepository) ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]*model.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.LedgerEntry, 0)
	for i := range r.entries {
		if r.entries[i].SubjectID == subjectID {
			e := r.entries[i]
			out = append(out, &e)
		}
	}
	return out, nil
}

// Corrupt overwrites one stored entry in place, bypassing Append. It exists
// so tests can prove that direct storage mutation is detectable.
func (r *LedgerRepository) Corrupt(sequence int64, mutate func(*model.LedgerEntry)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].Sequence == sequence {
			mutate(&r.entries[i])
			return true
		}
	}
	return false
}
