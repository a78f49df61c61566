package alert_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmatrust/pharmacy-api/internal/model"
	"github.com/pharmatrust/pharmacy-api/internal/repository/memory"
	"github.com/pharmatrust/pharmacy-api/internal/service/alert"
)

func seedDrug(t *testing.T, repo *memory.DrugRepository, name string, stock, minLevel int, expiry time.Time, active bool) *model.Drug {
	t.Helper()
	now := time.Now()
	drug := &model.Drug{
		Base:          model.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Name:          name,
		Strength:      "500mg",
		Manufacturer:  "Cipla",
		ExpiryDate:    expiry,
		StockQuantity: stock,
		MinStockLevel: minLevel,
		Active:        active,
	}
	require.NoError(t, repo.Create(context.Background(), drug, &model.LedgerEntry{}))
	return drug
}

func newRepo() *memory.DrugRepository {
	return memory.NewDrugRepository(memory.NewLedgerRepository())
}

func TestLowStockOrderedByDrugID(t *testing.T) {
	repo := newRepo()
	svc := alert.NewService(repo, alert.DefaultHorizon)
	ctx := context.Background()
	future := time.Now().Add(365 * 24 * time.Hour)

	var lowIDs []string
	for _, name := range []string{"Amoxicillin", "Ibuprofen", "Lisinopril"} {
		d := seedDrug(t, repo, name, 5, 10, future, true)
		lowIDs = append(lowIDs, d.ID.String())
	}
	seedDrug(t, repo, "Metformin", 500, 10, future, true)

	low, err := svc.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 3)

	sort.Strings(lowIDs)
	for i, d := range low {
		assert.Equal(t, lowIDs[i], d.ID.String())
	}
}

func TestExpiringSoonHonorsHorizon(t *testing.T) {
	repo := newRepo()
	svc := alert.NewService(repo, 30*24*time.Hour)
	ctx := context.Background()
	now := time.Now()

	soon := seedDrug(t, repo, "Amoxicillin", 100, 10, now.Add(10*24*time.Hour), true)
	seedDrug(t, repo, "Ibuprofen", 100, 10, now.Add(60*24*time.Hour), true)
	gone := seedDrug(t, repo, "Aspirin", 100, 10, now.Add(-24*time.Hour), true)

	expiring, err := svc.ExpiringSoon(ctx)
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, soon.ID, expiring[0].ID)

	expired, err := svc.Expired(ctx)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, gone.ID, expired[0].ID)
}

func TestInactiveDrugsExcluded(t *testing.T) {
	repo := newRepo()
	svc := alert.NewService(repo, alert.DefaultHorizon)
	ctx := context.Background()

	seedDrug(t, repo, "Amoxicillin", 0, 10, time.Now().Add(-24*time.Hour), false)

	low, err := svc.LowStock(ctx)
	require.NoError(t, err)
	assert.Empty(t, low)

	expired, err := svc.Expired(ctx)
	require.NoError(t, err)
	assert.Empty(t, expired)
}

func TestFlushDropsCachedSets(t *testing.T) {
	repo := newRepo()
	svc := alert.NewService(repo, alert.DefaultHorizon)
	ctx := context.Background()
	future := time.Now().Add(365 * 24 * time.Hour)

	seedDrug(t, repo, "Amoxicillin", 5, 10, future, true)

	low, err := svc.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)

	seedDrug(t, repo, "Ibuprofen", 2, 10, future, true)

	cached, err := svc.LowStock(ctx)
	require.NoError(t, err)
	assert.Len(t, cached, 1, "within the TTL the cached set is served")

	svc.Flush()
	fresh, err := svc.LowStock(ctx)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
}
