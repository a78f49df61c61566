package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/pharmatrust/pharmacy-api/internal/model"
)

// PrescriptionRepository stores prescriptions in a map keyed by id.
type PrescriptionRepository struct {
	mu            sync.RWMutex
	prescriptions map[uuid.UUID]model.Prescription
	drugs         *DrugRepository
}

func NewPrescriptionRepository(drugs *DrugRepository) *PrescriptionRepository {
	return &PrescriptionRepository{
		prescriptions: make(map[uuid.UUID]model.Prescription),
		drugs:         drugs,
	}
}

func (r *PrescriptionRepository) Create(ctx context.Context, p *model.Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prescriptions[p.ID] = *p
	return nil
}

func (r *PrescriptionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Prescription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.prescriptions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *PrescriptionRepository) Update(ctx context.Context, p *model.Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.prescriptions[p.ID]; !ok {
		return ErrNotFound
	}
	r.prescriptions[p.ID] = *p
	return nil
}

// Dispense writes the prescription, the drug and the ledger entry as one
// unit: any failure leaves all three untouched.
func (r *PrescriptionRepository) Dispense(ctx context.Context, p *model.Prescription, drug *model.Drug, entry *model.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.prescriptions[p.ID]; !ok {
		return ErrNotFound
	}
	if err := r.drugs.AdjustStock(ctx, drug, entry); err != nil {
		return err
	}
	r.prescriptions[p.ID] = *p
	return nil
}

func (r *PrescriptionRepository) List(ctx context.Context, filters *model.PrescriptionFilters) ([]*model.Prescription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Prescription, 0)
	for _, p := range filtered(r.prescriptions, filters) {
		q := p
		out = append(out, &q)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func filtered(all map[uuid.UUID]model.Prescription, f *model.PrescriptionFilters) []model.Prescription {
	out := make([]model.Prescription, 0, len(all))
	for _, p := range all {
		if f != nil {
			if f.PatientID != nil && p.PatientID != *f.PatientID {
				continue
			}
			if f.PrescriberID != nil && p.PrescriberID != *f.PrescriberID {
				continue
			}
			if f.Status != nil && p.Status != *f.Status {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}
