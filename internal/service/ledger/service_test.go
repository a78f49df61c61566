package ledger_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmatrust/pharmacy-api/internal/model"
	"github.com/pharmatrust/pharmacy-api/internal/repository/memory"
	"github.com/pharmatrust/pharmacy-api/internal/service/ledger"
	apperrors "github.com/pharmatrust/pharmacy-api/pkg/errors"
	"github.com/pharmatrust/pharmacy-api/pkg/logger"
	"github.com/pharmatrust/pharmacy-api/pkg/metrics"
)

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:      logger.ErrorLevel,
		TimeFormat: time.RFC3339,
		Output:     io.Discard,
	})
}

func newTestService(t *testing.T) (*ledger.Service, *memory.LedgerRepository) {
	t.Helper()
	repo := memory.NewLedgerRepository()
	svc, err := ledger.NewService(context.Background(), repo, testLogger(), metrics.New(prometheus.NewRegistry()))
	require.NoError(t, err)
	return svc, repo
}

func stockInRequest(subjectID uuid.UUID, delta, resulting int) ledger.AppendRequest {
	return ledger.AppendRequest{
		SubjectID:         subjectID,
		Type:              model.EntryStockIn,
		QuantityDelta:     delta,
		ResultingQuantity: resulting,
		ActorID:           uuid.New(),
		ActorRole:         model.RoleInventoryManager,
		Note:              "restock",
	}
}

func TestFirstAppendWritesGenesis(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Append(ctx, stockInRequest(uuid.New(), 100, 100))
	require.NoError(t, err)

	entries, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	genesis := entries[0]
	assert.Equal(t, int64(0), genesis.Sequence)
	assert.Equal(t, model.EntryGenesis, genesis.Type)
	assert.Equal(t, model.GenesisPreviousHash, genesis.PreviousHash)
	assert.Equal(t, uuid.Nil, genesis.SubjectID)
	assert.Zero(t, genesis.QuantityDelta)

	assert.Equal(t, int64(1), entry.Sequence)
	assert.Equal(t, genesis.Hash, entry.PreviousHash)
	assert.Equal(t, entry.ComputeHash(), entry.Hash)
}

func TestAppendChainsHashes(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	drugID := uuid.New()

	for i := 0; i < 5; i++ {
		_, err := svc.Append(ctx, stockInRequest(drugID, 10, 10*(i+1)))
		require.NoError(t, err)
	}

	entries, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 6)

	for i, entry := range entries {
		assert.Equal(t, int64(i), entry.Sequence)
		if i > 0 {
			assert.Equal(t, entries[i-1].Hash, entry.PreviousHash)
		}
		assert.Equal(t, entry.ComputeHash(), entry.Hash)
	}

	report, err := svc.VerifyIntegrity(ctx)
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Nil(t, report.BrokenAtSequence)
	assert.Equal(t, int64(6), report.EntriesChecked)
}

func TestAppendRejectsUnknownType(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	req := stockInRequest(uuid.New(), 10, 10)
	req.Type = "teleported"
	_, err := svc.Append(ctx, req)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))

	// genesis is written by the service, never accepted from a caller
	req.Type = model.EntryGenesis
	_, err = svc.Append(ctx, req)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
}

func TestVerifyIntegrityEmptyChain(t *testing.T) {
	svc, _ := newTestService(t)

	report, err := svc.VerifyIntegrity(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, int64(0), report.EntriesChecked)
}

func TestVerifyIntegrityDetectsTamperedQuantity(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Append(ctx, stockInRequest(uuid.New(), 10, 10))
		require.NoError(t, err)
	}

	ok := repo.Corrupt(2, func(e *model.LedgerEntry) {
		e.QuantityDelta = 9999
	})
	require.True(t, ok)

	report, err := svc.VerifyIntegrity(ctx)
	require.NoError(t, err)
	assert.False(t, report.Valid)
	require.NotNil(t, report.BrokenAtSequence)
	assert.Equal(t, int64(2), *report.BrokenAtSequence)
}

func TestVerifyIntegrityDetectsRecomputedHash(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Append(ctx, stockInRequest(uuid.New(), 10, 10))
		require.NoError(t, err)
	}

	// An attacker who edits an entry and recomputes its hash still breaks
	// the next entry's previous-hash link.
	ok := repo.Corrupt(1, func(e *model.LedgerEntry) {
		e.QuantityDelta = -50
		e.Hash = e.ComputeHash()
	})
	require.True(t, ok)

	report, err := svc.VerifyIntegrity(ctx)
	require.NoError(t, err)
	assert.False(t, report.Valid)
	require.NotNil(t, report.BrokenAtSequence)
	assert.Equal(t, int64(2), *report.BrokenAtSequence)
}

func TestHashesSurviveMicrosecondStorage(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Append(ctx, stockInRequest(uuid.New(), 10, 10))
		require.NoError(t, err)
	}

	// TIMESTAMPTZ stores microseconds, so a read-back from postgres rounds
	// every timestamp. Entry hashes must be indifferent to that round trip.
	for seq := int64(0); seq <= 3; seq++ {
		ok := repo.Corrupt(seq, func(e *model.LedgerEntry) {
			e.Timestamp = e.Timestamp.Round(time.Microsecond)
		})
		require.True(t, ok)
	}

	report, err := svc.VerifyIntegrity(ctx)
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Nil(t, report.BrokenAtSequence)
}

func TestFailedCommitLeavesChainUnchanged(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	drugID := uuid.New()

	_, err := svc.Append(ctx, stockInRequest(drugID, 100, 100))
	require.NoError(t, err)

	commitErr := errors.New("disk full")
	_, err = svc.AppendWith(ctx, stockInRequest(drugID, 10, 110), func(*model.LedgerEntry) error {
		return commitErr
	})
	require.ErrorIs(t, err, commitErr)

	// head did not advance: the next entry reuses the failed sequence
	next, err := svc.Append(ctx, stockInRequest(drugID, 10, 110))
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.Sequence)

	report, err := svc.VerifyIntegrity(ctx)
	require.NoError(t, err)
	assert.True(t, report.Valid)

	entries, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestHistoryForFiltersBySubject(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	drugA := uuid.New()
	drugB := uuid.New()

	_, err := svc.Append(ctx, stockInRequest(drugA, 100, 100))
	require.NoError(t, err)
	_, err = svc.Append(ctx, stockInRequest(drugB, 50, 50))
	require.NoError(t, err)
	_, err = svc.Append(ctx, stockInRequest(drugA, 20, 120))
	require.NoError(t, err)

	history, err := svc.HistoryFor(ctx, drugA)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(1), history[0].Sequence)
	assert.Equal(t, int64(3), history[1].Sequence)
	for _, entry := range history {
		assert.Equal(t, drugA, entry.SubjectID)
	}
}

func TestExportRestoreRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := svc.Append(ctx, stockInRequest(uuid.New(), 10, 10))
		require.NoError(t, err)
	}

	exported, err := svc.ExportAll(ctx)
	require.NoError(t, err)
	require.Len(t, exported, 5)

	restoredSvc, _ := newTestService(t)
	require.NoError(t, restoredSvc.Restore(ctx, exported))

	reExported, err := restoredSvc.ExportAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, exported, reExported)

	report, err := restoredSvc.VerifyIntegrity(ctx)
	require.NoError(t, err)
	assert.True(t, report.Valid)

	// restored chain keeps accepting appends
	next, err := restoredSvc.Append(ctx, stockInRequest(uuid.New(), 5, 5))
	require.NoError(t, err)
	assert.Equal(t, int64(5), next.Sequence)
}

func TestRestoreRejectsNonEmptyLedger(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Append(ctx, stockInRequest(uuid.New(), 10, 10))
	require.NoError(t, err)

	exported, err := svc.ExportAll(ctx)
	require.NoError(t, err)

	err = svc.Restore(ctx, exported)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidOperation))
}

func TestRestoreRejectsTamperedExport(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Append(ctx, stockInRequest(uuid.New(), 10, 10))
	require.NoError(t, err)

	exported, err := svc.ExportAll(ctx)
	require.NoError(t, err)
	exported[1].QuantityDelta = 9999

	fresh, _ := newTestService(t)
	err = fresh.Restore(ctx, exported)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrIntegrityViolation))
}

func TestChainHeadSurvivesRestart(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Append(ctx, stockInRequest(uuid.New(), 100, 100))
	require.NoError(t, err)

	// a new service over the same storage resumes from the stored head
	reloaded, err := ledger.NewService(ctx, repo, testLogger(), metrics.New(prometheus.NewRegistry()))
	require.NoError(t, err)

	next, err := reloaded.Append(ctx, stockInRequest(uuid.New(), 5, 5))
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.Sequence)

	report, err := reloaded.VerifyIntegrity(ctx)
	require.NoError(t, err)
	assert.True(t, report.Valid)
}
