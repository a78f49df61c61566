package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pharmatrust/pharmacy-api/internal/model"
)

// DrugRepository stores drugs in a map keyed by id. The paired write
// operations take the ledger repository so drug mutations and their entries
// land together, mirroring the single-transaction guarantee of the postgres
// implementation.
type DrugRepository struct {
	mu     sync.RWMutex
	drugs  map[uuid.UUID]model.Drug
	ledger *LedgerRepository

	failWrites bool
}

func NewDrugRepository(ledger *LedgerRepository) *DrugRepository {
	return &DrugRepository{
		drugs:  make(map[uuid.UUID]model.Drug),
		ledger: ledger,
	}
}

// FailWrites makes every paired write fail, for storage-error tests.
func (r *DrugRepository) FailWrites(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWrites = fail
}

func (r *DrugRepository) Create(ctx context.Context, drug *model.Drug, entry *model.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites {
		return ErrWriteFailure
	}
	r.drugs[drug.ID] = *drug
	return r.ledger.Append(ctx, entry)
}

func (r *DrugRepository) Get(ctx context.Context, id uuid.UUID) (*model.Drug, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	drug, ok := r.drugs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &drug, nil
}

func (r *DrugRepository) AdjustStock(ctx context.Context, drug *model.Drug, entry *model.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites {
		return ErrWriteFailure
	}
	if _, ok := r.drugs[drug.ID]; !ok {
		return ErrNotFound
	}
	r.drugs[drug.ID] = *drug
	return r.ledger.Append(ctx, entry)
}

func (r *DrugRepository) List(ctx context.Context, filters *model.DrugFilters) ([]*model.Drug, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	out := make([]*model.Drug, 0)
	for _, drug := range r.drugs {
		if !matches(&drug, filters, now) {
			continue
		}
		d := drug
		out = append(out, &d)
	}
	return out, nil
}

func matches(d *model.Drug, f *model.DrugFilters, now time.Time) bool {
	if f == nil {
		return true
	}
	if f.ActiveOnly && !d.Active {
		return false
	}
	if f.Category != "" && !strings.EqualFold(d.Category, f.Category) {
		return false
	}
	if f.LowStock && !d.IsLowStock() {
		return false
	}
	if f.Expired && !d.IsExpired(now) {
		return false
	}
	if f.SearchTerm != "" {
		term := strings.ToLower(f.SearchTerm)
		haystack := strings.ToLower(d.Name + " " + d.GenericName + " " + d.Manufacturer)
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}
