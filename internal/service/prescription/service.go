package prescription

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pharmatrust/pharmacy-api/internal/model"
	"github.com/pharmatrust/pharmacy-api/internal/repository"
	"github.com/pharmatrust/pharmacy-api/internal/service/audit"
	"github.com/pharmatrust/pharmacy-api/internal/service/event"
	"github.com/pharmatrust/pharmacy-api/internal/service/inventory"
	"github.com/pharmatrust/pharmacy-api/internal/service/rbac"
	apperrors "github.com/pharmatrust/pharmacy-api/pkg/errors"
	"github.com/pharmatrust/pharmacy-api/pkg/logger"
	"github.com/pharmatrust/pharmacy-api/pkg/metrics"
	"github.com/pharmatrust/pharmacy-api/pkg/validator"
)

// Service drives a prescription through its lifecycle:
//
//	Pending -> Verified -> Dispensed (terminal)
//	Pending -> Cancelled (terminal, original prescriber only)
//	Pending|Verified -> Expired (terminal, administrative)
//
// Transitions for one prescription are serialized by a per-prescription
// lock; the dispense transition additionally runs inside the drug's critical
// section so the stock check, the ledger append and the status change commit
// as one unit.
type Service struct {
	repo      repository.PrescriptionRepository
	inventory *inventory.Service
	access    *rbac.Service
	auditor   *audit.Service
	emitter   event.Emitter
	validator validator.Validator
	logger    *logger.Logger
	metrics   *metrics.Metrics

	locks sync.Map // prescription id -> *sync.Mutex
}

func NewService(
	repo repository.PrescriptionRepository,
	inventorySvc *inventory.Service,
	access *rbac.Service,
	auditor *audit.Service,
	emitter event.Emitter,
	v validator.Validator,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		repo:      repo,
		inventory: inventorySvc,
		access:    access,
		auditor:   auditor,
		emitter:   emitter,
		validator: v,
		logger:    log,
		metrics:   m,
	}
}

func (s *Service) lockPrescription(id uuid.UUID) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func newNumber(id uuid.UUID) string {
	return fmt.Sprintf("RX-%s-%s", time.Now().UTC().Format("20060102"), strings.ToUpper(id.String()[:8]))
}

// Create registers a new prescription in Pending state. Actor must hold the
// Prescriber role.
func (s *Service) Create(ctx context.Context, req *model.CreatePrescriptionRequest, actorID uuid.UUID) (*model.Prescription, error) {
	if err := s.access.Require(ctx, actorID, model.RolePrescriber); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.Validation("invalid prescription attributes", err)
	}
	if _, err := s.inventory.GetDrug(ctx, req.DrugID); err != nil {
		return nil, err
	}

	now := time.Now()
	id := uuid.New()
	p := &model.Prescription{
		Base: model.Base{
			ID:        id,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Number:            newNumber(id),
		PatientID:         req.PatientID,
		PrescriberID:      actorID,
		DrugID:            req.DrugID,
		QuantityRequested: req.Quantity,
		Instructions:      req.Instructions,
		DurationDays:      req.DurationDays,
		Status:            model.PrescriptionPending,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, apperrors.Storage(err)
	}

	s.auditor.Log(ctx, actorID, "create", "prescription", p.ID, map[string]interface{}{
		"patient_id": p.PatientID, "drug_id": p.DrugID,
	})
	s.emitter.Emit(ctx, model.EventPrescriptionCreated, p)
	return p, nil
}

// Verify approves or rejects a pending prescription. A rejection keeps the
// prescription Pending with the note recorded.
func (s *Service) Verify(ctx context.Context, prescriptionID uuid.UUID, actorID uuid.UUID, approve bool, note string) (*model.Prescription, error) {
	if err := s.access.Require(ctx, actorID, model.RoleVerifier); err != nil {
		return nil, err
	}

	unlock := s.lockPrescription(prescriptionID)
	defer unlock()

	p, err := s.repo.Get(ctx, prescriptionID)
	if err != nil {
		return nil, apperrors.NotFound("prescription", err)
	}
	if p.Status != model.PrescriptionPending {
		return nil, apperrors.InvalidTransition(string(p.Status), string(model.PrescriptionVerified))
	}

	if approve {
		p.Status = model.PrescriptionVerified
		p.VerifierID = &actorID
	} else {
		p.RejectionNote = note
	}
	p.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, apperrors.Storage(err)
	}

	s.auditor.Log(ctx, actorID, "verify", "prescription", p.ID, map[string]interface{}{
		"approved": approve,
	})
	if approve {
		s.emitter.Emit(ctx, model.EventPrescriptionVerified, p)
	}
	return p, nil
}

// Dispense fulfills a verified prescription. The drug lookup, stock check,
// expiry check, ledger append and status change execute atomically; on any
// failure no mutation is observable.
func (s *Service) Dispense(ctx context.Context, prescriptionID uuid.UUID, quantity int, actorID uuid.UUID) (*model.Prescription, error) {
	if err := s.access.Require(ctx, actorID, model.RoleDispenser); err != nil {
		return nil, err
	}

	p, err := s.dispenseLocked(ctx, prescriptionID, quantity, actorID)
	if s.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "rejected"
		}
		s.metrics.Dispenses.WithLabelValues(outcome).Inc()
	}
	if err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, actorID, "dispense", "prescription", p.ID, map[string]interface{}{
		"quantity": quantity, "ledger_hash": p.LedgerHash,
	})
	s.emitter.Emit(ctx, model.EventPrescriptionDispensed, p)
	return p, nil
}

func (s *Service) dispenseLocked(ctx context.Context, prescriptionID uuid.UUID, quantity int, actorID uuid.UUID) (*model.Prescription, error) {
	unlock := s.lockPrescription(prescriptionID)
	defer unlock()

	p, err := s.repo.Get(ctx, prescriptionID)
	if err != nil {
		return nil, apperrors.NotFound("prescription", err)
	}
	if p.Status != model.PrescriptionVerified {
		return nil, apperrors.InvalidTransition(string(p.Status), string(model.PrescriptionDispensed))
	}

	note := fmt.Sprintf("prescription %s", p.Number)
	_, err = s.inventory.DispenseStock(ctx, p.DrugID, quantity, actorID, model.RoleDispenser, note,
		func(drug *model.Drug, entry *model.LedgerEntry) error {
			now := time.Now()
			p.Status = model.PrescriptionDispensed
			p.QuantityDispensed = quantity
			p.DispenserID = &actorID
			p.DispensedAt = &now
			p.LedgerHash = entry.Hash
			p.UpdatedAt = now
			if err := s.repo.Dispense(ctx, p, drug, entry); err != nil {
				return apperrors.Storage(err)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Cancel is only available to the original prescriber, and only before the
// prescription reaches a terminal state.
func (s *Service) Cancel(ctx context.Context, prescriptionID uuid.UUID, actorID uuid.UUID) (*model.Prescription, error) {
	unlock := s.lockPrescription(prescriptionID)
	defer unlock()

	p, err := s.repo.Get(ctx, prescriptionID)
	if err != nil {
		return nil, apperrors.NotFound("prescription", err)
	}
	if p.PrescriberID != actorID {
		return nil, apperrors.Unauthorized("only the original prescriber may cancel")
	}
	if p.Status != model.PrescriptionPending && p.Status != model.PrescriptionVerified {
		return nil, apperrors.InvalidTransition(string(p.Status), string(model.PrescriptionCancelled))
	}

	now := time.Now()
	p.Status = model.PrescriptionCancelled
	p.CancelledAt = &now
	p.UpdatedAt = now

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, apperrors.Storage(err)
	}

	s.auditor.Log(ctx, actorID, "cancel", "prescription", p.ID, nil)
	s.emitter.Emit(ctx, model.EventPrescriptionCancelled, p)
	return p, nil
}

// Expire administratively retires a prescription. Illegal once dispensed.
func (s *Service) Expire(ctx context.Context, prescriptionID uuid.UUID, actorID uuid.UUID) (*model.Prescription, error) {
	if err := s.access.Require(ctx, actorID, model.RoleAdministrator); err != nil {
		return nil, err
	}

	unlock := s.lockPrescription(prescriptionID)
	defer unlock()

	p, err := s.repo.Get(ctx, prescriptionID)
	if err != nil {
		return nil, apperrors.NotFound("prescription", err)
	}
	if p.Status == model.PrescriptionDispensed {
		return nil, apperrors.CannotExpireDispensed()
	}
	if p.Status != model.PrescriptionPending && p.Status != model.PrescriptionVerified {
		return nil, apperrors.InvalidTransition(string(p.Status), string(model.PrescriptionExpired))
	}

	now := time.Now()
	p.Status = model.PrescriptionExpired
	p.ExpiredAt = &now
	p.UpdatedAt = now

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, apperrors.Storage(err)
	}

	s.auditor.Log(ctx, actorID, "expire", "prescription", p.ID, nil)
	s.emitter.Emit(ctx, model.EventPrescriptionExpired, p)
	return p, nil
}

// IsValid reports whether a prescription is currently usable by a
// dispenser: Verified, or already Dispensed.
func (s *Service) IsValid(ctx context.Context, prescriptionID uuid.UUID) (bool, error) {
	p, err := s.repo.Get(ctx, prescriptionID)
	if err != nil {
		return false, apperrors.NotFound("prescription", err)
	}
	return p.Status == model.PrescriptionVerified || p.Status == model.PrescriptionDispensed, nil
}

// Get returns one prescription by id.
func (s *Service) Get(ctx context.Context, prescriptionID uuid.UUID) (*model.Prescription, error) {
	p, err := s.repo.Get(ctx, prescriptionID)
	if err != nil {
		return nil, apperrors.NotFound("prescription", err)
	}
	return p, nil
}

// List returns prescriptions narrowed by patient, prescriber or status.
func (s *Service) List(ctx context.Context, filters *model.PrescriptionFilters) ([]*model.Prescription, error) {
	list, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return list, nil
}
