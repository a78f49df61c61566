package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pharmatrust/pharmacy-api/internal/model"
	"github.com/pharmatrust/pharmacy-api/internal/repository"
	apperrors "github.com/pharmatrust/pharmacy-api/pkg/errors"
	"github.com/pharmatrust/pharmacy-api/pkg/logger"
	"github.com/pharmatrust/pharmacy-api/pkg/metrics"
)

// AppendRequest carries the fields of a new ledger entry. Sequence, hashes
// and timestamp are assigned by the service.
type AppendRequest struct {
	SubjectID         uuid.UUID
	Type              model.EntryType
	QuantityDelta     int
	ResultingQuantity int
	ActorID           uuid.UUID
	ActorRole         model.Role
	Note              string
}

// CommitFunc persists a prepared entry together with whatever state change
// it records, atomically. When it returns an error nothing may have been
// written.
type CommitFunc func(entry *model.LedgerEntry) error

// Service owns the hash chain. It is constructed once at startup and handed
// by reference to the inventory and prescription services; the in-memory
// chain head (last sequence and hash) is the single serialization point for
// appends across all subjects.
type Service struct {
	repo    repository.LedgerRepository
	logger  *logger.Logger
	metrics *metrics.Metrics

	mu           sync.Mutex
	lastSequence int64
	lastHash     string
}

// NewService loads the chain head from storage. An empty store stays empty
// until the first append writes the genesis entry.
func NewService(ctx context.Context, repo repository.LedgerRepository, log *logger.Logger, m *metrics.Metrics) (*Service, error) {
	s := &Service{
		repo:         repo,
		logger:       log,
		metrics:      m,
		lastSequence: -1,
	}

	last, err := repo.Last(ctx)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	if last != nil {
		s.lastSequence = last.Sequence
		s.lastHash = last.Hash
	}
	return s, nil
}

// Append records a stock event at the head of the chain. The entry commits
// through the repository alone; use AppendWith when the entry must land in
// the same transaction as a state mutation.
func (s *Service) Append(ctx context.Context, req AppendRequest) (*model.LedgerEntry, error) {
	return s.AppendWith(ctx, req, func(entry *model.LedgerEntry) error {
		return s.repo.Append(ctx, entry)
	})
}

// AppendWith prepares the next chained entry and hands it to commit. The
// chain head only advances after commit succeeds, so a failed commit leaves
// no trace of the entry anywhere.
func (s *Service) AppendWith(ctx context.Context, req AppendRequest, commit CommitFunc) (*model.LedgerEntry, error) {
	if !model.ValidEntryType(req.Type) {
		return nil, apperrors.Validation(fmt.Sprintf("unknown entry type %q", req.Type), nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureGenesis(ctx); err != nil {
		return nil, err
	}

	entry := s.nextEntry(req)
	if err := commit(entry); err != nil {
		if s.metrics != nil {
			s.metrics.LedgerAppendsFail.Inc()
		}
		return nil, err
	}

	s.lastSequence = entry.Sequence
	s.lastHash = entry.Hash
	if s.metrics != nil {
		s.metrics.LedgerAppends.Inc()
	}
	s.logger.Debug("ledger entry appended",
		"sequence", entry.Sequence, "type", string(entry.Type), "subject", entry.SubjectID.String())
	return entry, nil
}

func (s *Service) nextEntry(req AppendRequest) *model.LedgerEntry {
	entry := &model.LedgerEntry{
		Sequence:          s.lastSequence + 1,
		SubjectID:         req.SubjectID,
		Type:              req.Type,
		QuantityDelta:     req.QuantityDelta,
		ResultingQuantity: req.ResultingQuantity,
		ActorID:           req.ActorID,
		ActorRole:         string(req.ActorRole),
		Timestamp:         entryTimestamp(),
		Note:              req.Note,
		PreviousHash:      s.lastHash,
	}
	entry.Hash = entry.ComputeHash()
	return entry
}

// entryTimestamp truncates to microseconds, the resolution TIMESTAMPTZ
// stores. Hashes must survive a round trip through storage, so the hashed
// timestamp can carry no more precision than the persisted one.
func entryTimestamp() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// ensureGenesis writes the fixed first entry. Caller holds s.mu.
func (s *Service) ensureGenesis(ctx context.Context) error {
	if s.lastSequence >= 0 {
		return nil
	}

	genesis := &model.LedgerEntry{
		Sequence:     0,
		SubjectID:    uuid.Nil,
		Type:         model.EntryGenesis,
		ActorID:      uuid.Nil,
		ActorRole:    "system",
		Timestamp:    entryTimestamp(),
		Note:         "genesis",
		PreviousHash: model.GenesisPreviousHash,
	}
	genesis.Hash = genesis.ComputeHash()

	if err := s.repo.Append(ctx, genesis); err != nil {
		return apperrors.Storage(err)
	}

	s.lastSequence = 0
	s.lastHash = genesis.Hash
	s.logger.Info("ledger genesis written", "hash", genesis.Hash)
	return nil
}

// VerifyIntegrity recomputes every stored entry's hash and checks the
// previous-hash linkage in order. Any direct mutation of ledger storage
// outside Append surfaces here as the first mismatching sequence.
func (s *Service) VerifyIntegrity(ctx context.Context) (*model.IntegrityReport, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	report := &model.IntegrityReport{Valid: true, EntriesChecked: int64(len(entries))}
	prevHash := model.GenesisPreviousHash
	for i, entry := range entries {
		broken := entry.Sequence != int64(i) ||
			entry.PreviousHash != prevHash ||
			entry.ComputeHash() != entry.Hash
		if broken {
			seq := entry.Sequence
			report.Valid = false
			report.BrokenAtSequence = &seq
			break
		}
		prevHash = entry.Hash
	}

	if s.metrics != nil {
		result := "valid"
		if !report.Valid {
			result = "broken"
		}
		s.metrics.IntegrityChecks.WithLabelValues(result).Inc()
	}
	if !report.Valid {
		s.logger.Error(apperrors.IntegrityViolation(*report.BrokenAtSequence),
			"ledger integrity check failed", "sequence", *report.BrokenAtSequence)
	}
	return report, nil
}

// HistoryFor returns the chain filtered to one subject, ascending by
// sequence.
func (s *Service) HistoryFor(ctx context.Context, subjectID uuid.UUID) ([]*model.LedgerEntry, error) {
	entries, err := s.repo.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return entries, nil
}

// ExportAll returns the full chain for external audit. Every hash is
// recomputable from the exported fields alone.
func (s *Service) ExportAll(ctx context.Context) ([]*model.LedgerEntry, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return entries, nil
}

// Restore replays exported entries verbatim into an empty chain, verifying
// linkage and hashes as it goes. Used to rebuild state from an audit export;
// re-exporting afterwards yields identical records.
func (s *Service) Restore(ctx context.Context, entries []*model.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastSequence >= 0 {
		return apperrors.InvalidOperation("restore requires an empty ledger")
	}

	prevHash := model.GenesisPreviousHash
	for i, entry := range entries {
		if entry.Sequence != int64(i) || entry.PreviousHash != prevHash || entry.ComputeHash() != entry.Hash {
			return apperrors.IntegrityViolation(entry.Sequence)
		}
		prevHash = entry.Hash
	}

	for _, entry := range entries {
		if err := s.repo.Append(ctx, entry); err != nil {
			return apperrors.Storage(err)
		}
		s.lastSequence = entry.Sequence
		s.lastHash = entry.Hash
	}
	return nil
}
