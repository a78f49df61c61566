package inventory_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pharmatrust/pharmacy-api/internal/model"
	"github.com/pharmatrust/pharmacy-api/internal/repository/memory"
	"github.com/pharmatrust/pharmacy-api/internal/service/audit"
	"github.com/pharmatrust/pharmacy-api/internal/service/event"
	"github.com/pharmatrust/pharmacy-api/internal/service/inventory"
	"github.com/pharmatrust/pharmacy-api/internal/service/ledger"
	"github.com/pharmatrust/pharmacy-api/internal/service/rbac"
	apperrors "github.com/pharmatrust/pharmacy-api/pkg/errors"
	"github.com/pharmatrust/pharmacy-api/pkg/logger"
	"github.com/pharmatrust/pharmacy-api/pkg/metrics"
	"github.com/pharmatrust/pharmacy-api/pkg/validator"
)

type fixture struct {
	inventory *inventory.Service
	ledger    *ledger.Service
	drugs     *memory.DrugRepository
	entries   *memory.LedgerRepository

	manager uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	log := logger.NewLogger(&logger.Config{
		Level:      logger.ErrorLevel,
		TimeFormat: time.RFC3339,
		Output:     io.Discard,
	})
	m := metrics.New(prometheus.NewRegistry())
	auditor := audit.NewService(zap.NewNop())

	entries := memory.NewLedgerRepository()
	drugs := memory.NewDrugRepository(entries)
	rbacRepo := memory.NewRBACRepository()

	ledgerSvc, err := ledger.NewService(ctx, entries, log, m)
	require.NoError(t, err)
	rbacSvc := rbac.NewService(rbacRepo, auditor)

	manager := uuid.New()
	require.NoError(t, rbacRepo.Assign(ctx, &model.RoleAssignment{
		ActorID: manager, Role: model.RoleInventoryManager, GrantedBy: manager, GrantedAt: time.Now(),
	}))

	inventorySvc := inventory.NewService(drugs, ledgerSvc, rbacSvc, auditor, event.Discard{}, validator.New(), log, m)

	return &fixture{
		inventory: inventorySvc,
		ledger:    ledgerSvc,
		drugs:     drugs,
		entries:   entries,
		manager:   manager,
	}
}

func (f *fixture) addDrug(t *testing.T, stock, minLevel int) *model.Drug {
	t.Helper()
	drug, err := f.inventory.AddDrug(context.Background(), &model.CreateDrugRequest{
		Name:          "Amoxicillin",
		GenericName:   "amoxicillin trihydrate",
		DosageForm:    "capsule",
		Strength:      "500mg",
		Manufacturer:  "Cipla",
		BatchNumber:   "AMX-2024-001",
		Category:      "antibiotic",
		ExpiryDate:    time.Now().Add(365 * 24 * time.Hour),
		StockQuantity: stock,
		MinStockLevel: minLevel,
	}, f.manager)
	require.NoError(t, err)
	return drug
}

func TestAddDrugWritesOpeningStockEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	drug := f.addDrug(t, 100, 20)
	assert.True(t, drug.Active)
	assert.Equal(t, 100, drug.StockQuantity)
	assert.NotEmpty(t, drug.LastLedgerHash)

	history, err := f.ledger.HistoryFor(ctx, drug.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.EntryStockIn, history[0].Type)
	assert.Equal(t, 100, history[0].QuantityDelta)
	assert.Equal(t, 100, history[0].ResultingQuantity)
	assert.Equal(t, drug.LastLedgerHash, history[0].Hash)

	report, err := f.ledger.VerifyIntegrity(ctx)
	require.NoError(t, err)
	assert.True(t, report.Valid)
}

func TestAddDrugValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.inventory.AddDrug(ctx, &model.CreateDrugRequest{
		Strength:      "500mg",
		Manufacturer:  "Cipla",
		ExpiryDate:    time.Now().Add(24 * time.Hour),
		StockQuantity: 10,
	}, f.manager)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation), "missing name must be rejected")

	_, err = f.inventory.AddDrug(ctx, &model.CreateDrugRequest{
		Name:          "Aspirin",
		Strength:      "100mg",
		Manufacturer:  "Bayer",
		ExpiryDate:    time.Now().Add(-24 * time.Hour),
		StockQuantity: 10,
	}, f.manager)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation), "past expiry must be rejected")
}

func TestAddDrugRequiresInventoryRole(t *testing.T) {
	f := newFixture(t)

	_, err := f.inventory.AddDrug(context.Background(), &model.CreateDrugRequest{
		Name:          "Aspirin",
		Strength:      "100mg",
		Manufacturer:  "Bayer",
		ExpiryDate:    time.Now().Add(24 * time.Hour),
		StockQuantity: 10,
	}, uuid.New())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))
}

func TestAdjustStockRejectsZeroDelta(t *testing.T) {
	f := newFixture(t)
	drug := f.addDrug(t, 50, 10)

	_, err := f.inventory.AdjustStock(context.Background(), drug.ID, 0, model.EntryAdjusted, f.manager, "")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidOperation))
}

func TestAdjustStockEnforcesDeltaSign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	drug := f.addDrug(t, 50, 10)

	cases := []struct {
		entryType model.EntryType
		delta     int
	}{
		{model.EntryStockIn, -5},
		{model.EntryReturned, -5},
		{model.EntryDispensed, 5},
		{model.EntryExpired, 5},
		{model.EntryDamaged, 5},
	}
	for _, tc := range cases {
		_, err := f.inventory.AdjustStock(ctx, drug.ID, tc.delta, tc.entryType, f.manager, "")
		assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation),
			"delta %d must be illegal for %s", tc.delta, tc.entryType)
	}

	got, err := f.inventory.GetDrug(ctx, drug.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, got.StockQuantity)
}

func TestAdjustStockHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	drug := f.addDrug(t, 50, 10)

	adj, err := f.inventory.AdjustStock(ctx, drug.ID, 30, model.EntryStockIn, f.manager, "resupply")
	require.NoError(t, err)
	assert.Equal(t, 80, adj.Drug.StockQuantity)
	assert.Equal(t, 80, adj.LedgerEntry.ResultingQuantity)

	adj, err = f.inventory.AdjustStock(ctx, drug.ID, -20, model.EntryDamaged, f.manager, "water damage")
	require.NoError(t, err)
	assert.Equal(t, 60, adj.Drug.StockQuantity)
	assert.Equal(t, adj.LedgerEntry.Hash, adj.Drug.LastLedgerHash)

	history, err := f.ledger.HistoryFor(ctx, drug.ID)
	require.NoError(t, err)
	assert.Len(t, history, 3)

	report, err := f.ledger.VerifyIntegrity(ctx)
	require.NoError(t, err)
	assert.True(t, report.Valid)
}

func TestAdjustStockInsufficientLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	drug := f.addDrug(t, 10, 2)

	before, err := f.entries.List(ctx)
	require.NoError(t, err)

	_, err = f.inventory.AdjustStock(ctx, drug.ID, -30, model.EntryDispensed, f.manager, "")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInsufficientStock))

	got, err := f.inventory.GetDrug(ctx, drug.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.StockQuantity)

	after, err := f.entries.List(ctx)
	require.NoError(t, err)
	assert.Len(t, after, len(before), "rejected adjustment must not append an entry")
}

func TestAdjustStockUnknownDrug(t *testing.T) {
	f := newFixture(t)

	_, err := f.inventory.AdjustStock(context.Background(), uuid.New(), 10, model.EntryStockIn, f.manager, "")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestStorageFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	drug := f.addDrug(t, 50, 10)

	f.drugs.FailWrites(true)
	_, err := f.inventory.AdjustStock(ctx, drug.ID, 10, model.EntryStockIn, f.manager, "")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrStorage))
	f.drugs.FailWrites(false)

	got, err := f.inventory.GetDrug(ctx, drug.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, got.StockQuantity)

	// the chain head did not advance past the failed commit
	adj, err := f.inventory.AdjustStock(ctx, drug.ID, 10, model.EntryStockIn, f.manager, "")
	require.NoError(t, err)
	assert.Equal(t, 60, adj.Drug.StockQuantity)

	report, err := f.ledger.VerifyIntegrity(ctx)
	require.NoError(t, err)
	assert.True(t, report.Valid)
}

func TestDeactivateWritesOffStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	drug := f.addDrug(t, 40, 10)

	got, err := f.inventory.Deactivate(ctx, drug.ID, f.manager)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, 0, got.StockQuantity)

	history, err := f.ledger.HistoryFor(ctx, drug.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	last := history[1]
	assert.Equal(t, model.EntryExpired, last.Type)
	assert.Equal(t, -40, last.QuantityDelta)
	assert.Equal(t, 0, last.ResultingQuantity)

	// terminal: no further mutation, no second deactivation
	_, err = f.inventory.AdjustStock(ctx, drug.ID, 10, model.EntryStockIn, f.manager, "")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
	_, err = f.inventory.Deactivate(ctx, drug.ID, f.manager)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidOperation))
}

func TestIsLowStockBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	drug := f.addDrug(t, 21, 20)

	low, err := f.inventory.IsLowStock(ctx, drug.ID)
	require.NoError(t, err)
	assert.False(t, low)

	_, err = f.inventory.AdjustStock(ctx, drug.ID, -1, model.EntryDamaged, f.manager, "")
	require.NoError(t, err)

	low, err = f.inventory.IsLowStock(ctx, drug.ID)
	require.NoError(t, err)
	assert.True(t, low, "stock equal to the reorder level is low")
}

func TestConcurrentAdjustmentsNeverOversell(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	drug := f.addDrug(t, 30, 0)

	const workers = 10
	results := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.inventory.AdjustStock(ctx, drug.ID, -5, model.EntryDispensed, f.manager, "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, apperrors.IsCode(err, apperrors.ErrInsufficientStock))
		}
	}
	assert.Equal(t, 6, succeeded)

	got, err := f.inventory.GetDrug(ctx, drug.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.StockQuantity)

	report, err := f.ledger.VerifyIntegrity(ctx)
	require.NoError(t, err)
	assert.True(t, report.Valid)
}

func TestListDrugsFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addDrug(t, 5, 10) // low stock
	other, err := f.inventory.AddDrug(ctx, &model.CreateDrugRequest{
		Name:          "Lisinopril",
		Strength:      "10mg",
		Manufacturer:  "Lupin",
		Category:      "antihypertensive",
		ExpiryDate:    time.Now().Add(180 * 24 * time.Hour),
		StockQuantity: 200,
		MinStockLevel: 30,
	}, f.manager)
	require.NoError(t, err)

	low, err := f.inventory.ListDrugs(ctx, &model.DrugFilters{LowStock: true})
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "Amoxicillin", low[0].Name)

	byCategory, err := f.inventory.ListDrugs(ctx, &model.DrugFilters{Category: "antihypertensive"})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, other.ID, byCategory[0].ID)

	bySearch, err := f.inventory.ListDrugs(ctx, &model.DrugFilters{SearchTerm: "lupin"})
	require.NoError(t, err)
	require.Len(t, bySearch, 1)
	assert.Equal(t, other.ID, bySearch[0].ID)
}
