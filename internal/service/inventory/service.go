package inventory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pharmatrust/pharmacy-api/internal/model"
	"github.com/pharmatrust/pharmacy-api/internal/repository"
	"github.com/pharmatrust/pharmacy-api/internal/service/audit"
	"github.com/pharmatrust/pharmacy-api/internal/service/event"
	"github.com/pharmatrust/pharmacy-api/internal/service/ledger"
	"github.com/pharmatrust/pharmacy-api/internal/service/rbac"
	apperrors "github.com/pharmatrust/pharmacy-api/pkg/errors"
	"github.com/pharmatrust/pharmacy-api/pkg/logger"
	"github.com/pharmatrust/pharmacy-api/pkg/metrics"
	"github.com/pharmatrust/pharmacy-api/pkg/validator"
)

// Service is the authoritative inventory store. Every stock mutation goes
// through AdjustStock (or the dispense path, which shares its critical
// section), pairing the drug update with a ledger append in one storage
// transaction under a per-drug lock.
type Service struct {
	repo      repository.DrugRepository
	ledger    *ledger.Service
	access    *rbac.Service
	auditor   *audit.Service
	emitter   event.Emitter
	validator validator.Validator
	logger    *logger.Logger
	metrics   *metrics.Metrics

	locks sync.Map // drug id -> *sync.Mutex
}

func NewService(
	repo repository.DrugRepository,
	ledgerSvc *ledger.Service,
	access *rbac.Service,
	auditor *audit.Service,
	emitter event.Emitter,
	v validator.Validator,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		repo:      repo,
		ledger:    ledgerSvc,
		access:    access,
		auditor:   auditor,
		emitter:   emitter,
		validator: v,
		logger:    log,
		metrics:   m,
	}
}

// lockDrug serializes check-then-act sequences per drug. Lock hold time is
// bounded: nothing inside the critical section crosses the network beyond
// the storage commit.
func (s *Service) lockDrug(id uuid.UUID) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// requireInventoryRole resolves which role authorizes the actor for
// inventory mutations.
func (s *Service) requireInventoryRole(ctx context.Context, actorID uuid.UUID) (model.Role, error) {
	for _, role := range []model.Role{model.RoleInventoryManager, model.RoleAdministrator} {
		held, err := s.access.HasRole(ctx, actorID, role)
		if err != nil {
			return "", err
		}
		if held {
			return role, nil
		}
	}
	return "", apperrors.Unauthorized("actor lacks inventory role")
}

// AddDrug registers a new drug and its opening stock. The drug row and the
// stock_in ledger entry commit together.
func (s *Service) AddDrug(ctx context.Context, req *model.CreateDrugRequest, actorID uuid.UUID) (*model.Drug, error) {
	role, err := s.requireInventoryRole(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.Validation("invalid drug attributes", err)
	}
	if !req.ExpiryDate.After(time.Now()) {
		return nil, apperrors.Validation("expiry date must be in the future", nil)
	}

	now := time.Now()
	drug := &model.Drug{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:          req.Name,
		GenericName:   req.GenericName,
		DosageForm:    req.DosageForm,
		Strength:      req.Strength,
		Manufacturer:  req.Manufacturer,
		BatchNumber:   req.BatchNumber,
		Category:      req.Category,
		ExpiryDate:    req.ExpiryDate,
		StockQuantity: req.StockQuantity,
		MinStockLevel: req.MinStockLevel,
		UnitPrice:     req.UnitPrice,
		Active:        true,
	}

	_, err = s.ledger.AppendWith(ctx, ledger.AppendRequest{
		SubjectID:         drug.ID,
		Type:              model.EntryStockIn,
		QuantityDelta:     drug.StockQuantity,
		ResultingQuantity: drug.StockQuantity,
		ActorID:           actorID,
		ActorRole:         role,
		Note:              "initial stock",
	}, func(entry *model.LedgerEntry) error {
		drug.LastLedgerHash = entry.Hash
		if err := s.repo.Create(ctx, drug, entry); err != nil {
			return apperrors.Storage(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, actorID, "create", "drug", drug.ID, map[string]interface{}{"name": drug.Name})
	s.emitter.Emit(ctx, model.EventDrugAdded, drug)
	return drug, nil
}

// deltaSignValid enforces the direction each entry type moves stock in.
func deltaSignValid(entryType model.EntryType, delta int) bool {
	switch entryType {
	case model.EntryStockIn, model.EntryReturned:
		return delta > 0
	case model.EntryDispensed, model.EntryExpired, model.EntryDamaged:
		return delta < 0
	case model.EntryAdjusted:
		return delta != 0
	}
	return false
}

// AdjustStock is the only legal way stock changes. Validation and mutation
// run as one critical section per drug; the ledger entry and the stock
// update commit atomically.
func (s *Service) AdjustStock(ctx context.Context, drugID uuid.UUID, delta int, entryType model.EntryType, actorID uuid.UUID, note string) (*model.StockAdjustment, error) {
	role, err := s.requireInventoryRole(ctx, actorID)
	if err != nil {
		return nil, err
	}

	adj, err := s.adjustLocked(ctx, drugID, delta, entryType, actorID, role, note)
	if s.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "rejected"
		}
		s.metrics.StockAdjustments.WithLabelValues(string(entryType), outcome).Inc()
	}
	if err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, actorID, "adjust_stock", "drug", drugID, map[string]interface{}{
		"delta": delta, "type": entryType,
	})
	s.emitter.Emit(ctx, model.EventStockAdjusted, adj)
	s.emitLowStock(ctx, adj.Drug)
	return adj, nil
}

func (s *Service) adjustLocked(ctx context.Context, drugID uuid.UUID, delta int, entryType model.EntryType, actorID uuid.UUID, role model.Role, note string) (*model.StockAdjustment, error) {
	if delta == 0 {
		return nil, apperrors.InvalidOperation("stock adjustment delta cannot be zero")
	}
	if !deltaSignValid(entryType, delta) {
		return nil, apperrors.Validation(fmt.Sprintf("delta %d is not legal for entry type %s", delta, entryType), nil)
	}

	unlock := s.lockDrug(drugID)
	defer unlock()

	drug, err := s.repo.Get(ctx, drugID)
	if err != nil {
		return nil, apperrors.NotFound("drug", err)
	}
	if !drug.Active {
		return nil, apperrors.NotFound("drug", fmt.Errorf("drug %s is inactive", drugID))
	}
	if drug.StockQuantity+delta < 0 {
		return nil, apperrors.InsufficientStock(drug.StockQuantity, -delta)
	}

	drug.StockQuantity += delta
	drug.UpdatedAt = time.Now()

	entry, err := s.ledger.AppendWith(ctx, ledger.AppendRequest{
		SubjectID:         drug.ID,
		Type:              entryType,
		QuantityDelta:     delta,
		ResultingQuantity: drug.StockQuantity,
		ActorID:           actorID,
		ActorRole:         role,
		Note:              note,
	}, func(entry *model.LedgerEntry) error {
		drug.LastLedgerHash = entry.Hash
		if err := s.repo.AdjustStock(ctx, drug, entry); err != nil {
			return apperrors.Storage(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &model.StockAdjustment{Drug: drug, LedgerEntry: entry}, nil
}

// DispenseStock decrements stock for a verified prescription. The caller
// supplies the commit that persists its own state alongside the drug row and
// ledger entry; all checks and the commit run under the drug's lock so two
// concurrent dispenses can never both pass the stock check.
func (s *Service) DispenseStock(ctx context.Context, drugID uuid.UUID, quantity int, actorID uuid.UUID, role model.Role, note string, commit func(drug *model.Drug, entry *model.LedgerEntry) error) (*model.StockAdjustment, error) {
	if quantity <= 0 {
		return nil, apperrors.Validation("dispense quantity must be positive", nil)
	}

	unlock := s.lockDrug(drugID)
	defer unlock()

	drug, err := s.repo.Get(ctx, drugID)
	if err != nil {
		return nil, apperrors.NotFound("drug", err)
	}
	if !drug.Active || drug.IsExpired(time.Now()) {
		return nil, apperrors.ExpiredDrug(drug.Name)
	}
	if quantity > drug.StockQuantity {
		return nil, apperrors.InsufficientStock(drug.StockQuantity, quantity)
	}

	drug.StockQuantity -= quantity
	drug.UpdatedAt = time.Now()

	entry, err := s.ledger.AppendWith(ctx, ledger.AppendRequest{
		SubjectID:         drug.ID,
		Type:              model.EntryDispensed,
		QuantityDelta:     -quantity,
		ResultingQuantity: drug.StockQuantity,
		ActorID:           actorID,
		ActorRole:         role,
		Note:              note,
	}, func(entry *model.LedgerEntry) error {
		drug.LastLedgerHash = entry.Hash
		return commit(drug, entry)
	})
	if err != nil {
		return nil, err
	}

	s.emitLowStock(ctx, drug)
	return &model.StockAdjustment{Drug: drug, LedgerEntry: entry}, nil
}

// Deactivate retires a drug: terminal ledger entry writing off remaining
// stock, then active=false. The drug stays in every history.
func (s *Service) Deactivate(ctx context.Context, drugID uuid.UUID, actorID uuid.UUID) (*model.Drug, error) {
	role, err := s.requireInventoryRole(ctx, actorID)
	if err != nil {
		return nil, err
	}

	unlock := s.lockDrug(drugID)
	defer unlock()

	drug, err := s.repo.Get(ctx, drugID)
	if err != nil {
		return nil, apperrors.NotFound("drug", err)
	}
	if !drug.Active {
		return nil, apperrors.InvalidOperation("drug is already inactive")
	}

	finalQuantity := drug.StockQuantity
	drug.Active = false
	drug.StockQuantity = 0
	drug.UpdatedAt = time.Now()

	_, err = s.ledger.AppendWith(ctx, ledger.AppendRequest{
		SubjectID:         drug.ID,
		Type:              model.EntryExpired,
		QuantityDelta:     -finalQuantity,
		ResultingQuantity: 0,
		ActorID:           actorID,
		ActorRole:         role,
		Note:              fmt.Sprintf("deactivated with %d units on hand", finalQuantity),
	}, func(entry *model.LedgerEntry) error {
		drug.LastLedgerHash = entry.Hash
		if err := s.repo.AdjustStock(ctx, drug, entry); err != nil {
			return apperrors.Storage(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, actorID, "deactivate", "drug", drugID, nil)
	s.emitter.Emit(ctx, model.EventDrugDeactivated, drug)
	return drug, nil
}

// GetDrug returns one drug by id.
func (s *Service) GetDrug(ctx context.Context, drugID uuid.UUID) (*model.Drug, error) {
	drug, err := s.repo.Get(ctx, drugID)
	if err != nil {
		return nil, apperrors.NotFound("drug", err)
	}
	return drug, nil
}

// ListDrugs applies category, free-text, low-stock and expired filters.
func (s *Service) ListDrugs(ctx context.Context, filters *model.DrugFilters) ([]*model.Drug, error) {
	drugs, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return drugs, nil
}

// IsLowStock reports whether the drug sits at or below its reorder level.
func (s *Service) IsLowStock(ctx context.Context, drugID uuid.UUID) (bool, error) {
	drug, err := s.repo.Get(ctx, drugID)
	if err != nil {
		return false, apperrors.NotFound("drug", err)
	}
	return drug.IsLowStock(), nil
}

func (s *Service) emitLowStock(ctx context.Context, drug *model.Drug) {
	if drug.Active && drug.IsLowStock() {
		s.emitter.Emit(ctx, model.EventLowStockAlert, drug)
	}
}
