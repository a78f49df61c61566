package alert

import (
	"context"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/pharmatrust/pharmacy-api/internal/model"
	"github.com/pharmatrust/pharmacy-api/internal/repository"
	apperrors "github.com/pharmatrust/pharmacy-api/pkg/errors"
)

const (
	// DefaultHorizon is how far ahead expiring-soon looks.
	DefaultHorizon = 30 * 24 * time.Hour

	cacheTTL     = 30 * time.Second
	cacheCleanup = 5 * time.Minute

	keyLowStock = "low_stock"
	keyExpiring = "expiring"
	keyExpired  = "expired"
)

// Service derives alert sets from inventory snapshots. Pure reads: alerts
// are recomputed on demand, never stored, so they cannot go stale beyond the
// short cache window.
type Service struct {
	repo    repository.DrugRepository
	horizon time.Duration
	cache   *cache.Cache
}

func NewService(repo repository.DrugRepository, horizon time.Duration) *Service {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	return &Service{
		repo:    repo,
		horizon: horizon,
		cache:   cache.New(cacheTTL, cacheCleanup),
	}
}

// LowStock returns active drugs at or below their reorder level, ordered by
// drug id ascending.
func (s *Service) LowStock(ctx context.Context) ([]*model.Drug, error) {
	return s.derive(ctx, keyLowStock, func(d *model.Drug, _ time.Time) bool {
		return d.IsLowStock()
	})
}

// ExpiringSoon returns active drugs that expire within the configured
// horizon but have not expired yet.
func (s *Service) ExpiringSoon(ctx context.Context) ([]*model.Drug, error) {
	return s.derive(ctx, keyExpiring, func(d *model.Drug, now time.Time) bool {
		return d.ExpiresWithin(now, s.horizon)
	})
}

// Expired returns active drugs whose expiry date has passed.
func (s *Service) Expired(ctx context.Context) ([]*model.Drug, error) {
	return s.derive(ctx, keyExpired, func(d *model.Drug, now time.Time) bool {
		return d.IsExpired(now)
	})
}

func (s *Service) derive(ctx context.Context, key string, match func(*model.Drug, time.Time) bool) ([]*model.Drug, error) {
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]*model.Drug), nil
	}

	drugs, err := s.repo.List(ctx, &model.DrugFilters{ActiveOnly: true})
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	now := time.Now()
	out := make([]*model.Drug, 0)
	for _, d := range drugs {
		if match(d, now) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})

	s.cache.Set(key, out, cache.DefaultExpiration)
	return out, nil
}

// Flush drops cached alert sets so the next read recomputes from a fresh
// snapshot.
func (s *Service) Flush() {
	s.cache.Flush()
}
