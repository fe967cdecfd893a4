package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"github.com/dynastyops/capledger/internal/domain/deadcap"
	"github.com/dynastyops/capledger/internal/domain/franchise"
	"github.com/dynastyops/capledger/internal/domain/ledger"
	"github.com/dynastyops/capledger/internal/platform/cache"
	"github.com/dynastyops/capledger/internal/platform/logging"
)

// SeasonSource reports the league's current season.
type SeasonSource interface {
	CurrentSeason() int
}

// FranchiseProjection is one franchise's cap picture over the projection
// horizon, first entry being the current season.
type FranchiseProjection struct {
	FranchiseID string
	Entries     []ledger.Entry
}

// ProjectionService serves read-side cap summaries: single-season entries,
// multi-season projections and dead-cap reports. Responses are cached with a
// short TTL; writes are infrequent enough that staleness within the TTL is
// acceptable for league dashboards.
type ProjectionService struct {
	franchises  franchise.Repository
	obligations deadcap.Repository
	ledger      *ledger.Ledger
	seasons     SeasonSource
	horizon     int
	store       *cache.Store
	pool        *ants.Pool
	logger      *logging.Logger
}

func NewProjectionService(
	franchises franchise.Repository,
	obligations deadcap.Repository,
	led *ledger.Ledger,
	seasons SeasonSource,
	horizon int,
	store *cache.Store,
	pool *ants.Pool,
	logger *logging.Logger,
) *ProjectionService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ProjectionService{
		franchises:  franchises,
		obligations: obligations,
		ledger:      led,
		seasons:     seasons,
		horizon:     horizon,
		store:       store,
		pool:        pool,
		logger:      logger,
	}
}

// FranchiseCap returns the single-season entry for one franchise.
func (s *ProjectionService) FranchiseCap(ctx context.Context, franchiseID string, season int) (ledger.Entry, error) {
	ctx, span := startUsecaseSpan(ctx, "ProjectionService.FranchiseCap")
	defer span.End()

	if err := s.requireFranchise(ctx, franchiseID); err != nil {
		return ledger.Entry{}, err
	}
	if season == 0 {
		season = s.seasons.CurrentSeason()
	}

	return s.ledger.Entry(franchiseID, season), nil
}

// Projections returns the per-season entries for one franchise from the
// current season through the projection horizon.
func (s *ProjectionService) Projections(ctx context.Context, franchiseID string) ([]ledger.Entry, error) {
	ctx, span := startUsecaseSpan(ctx, "ProjectionService.Projections")
	defer span.End()

	if err := s.requireFranchise(ctx, franchiseID); err != nil {
		return nil, err
	}

	key := projectionCacheKey(franchiseID, s.seasons.CurrentSeason())
	value, err := s.store.GetOrLoad(ctx, key, func(context.Context) (any, error) {
		return s.projectLocked(franchiseID), nil
	})
	if err != nil {
		return nil, err
	}

	entries, ok := value.([]ledger.Entry)
	if !ok {
		return nil, fmt.Errorf("unexpected cached projection type %T", value)
	}
	return entries, nil
}

// LeagueProjections computes the projection for every franchise concurrently
// on the shared worker pool.
func (s *ProjectionService) LeagueProjections(ctx context.Context) ([]FranchiseProjection, error) {
	ctx, span := startUsecaseSpan(ctx, "ProjectionService.LeagueProjections")
	defer span.End()

	franchises, err := s.franchises.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list franchises: %w", err)
	}

	out := make([]FranchiseProjection, len(franchises))
	var wg sync.WaitGroup
	var failures atomic.Int64

	for i, f := range franchises {
		i, f := i, f
		wg.Add(1)
		task := func() {
			defer wg.Done()
			entries, projErr := s.Projections(ctx, f.ID)
			if projErr != nil {
				failures.Add(1)
				s.logger.ErrorContext(ctx, "franchise projection failed", "franchise_id", f.ID, "error", projErr)
				return
			}
			out[i] = FranchiseProjection{FranchiseID: f.ID, Entries: entries}
		}
		if s.pool != nil {
			if submitErr := s.pool.Submit(task); submitErr != nil {
				wg.Done()
				failures.Add(1)
				s.logger.ErrorContext(ctx, "projection task submit failed", "franchise_id", f.ID, "error", submitErr)
			}
			continue
		}
		task()
	}
	wg.Wait()

	if n := failures.Load(); n > 0 {
		return nil, fmt.Errorf("%w: %d of %d franchise projections failed", ErrDependencyUnavailable, n, len(franchises))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].FranchiseID < out[j].FranchiseID })
	return out, nil
}

// DeadCapReport lists a franchise's obligations, suppressed rows included.
func (s *ProjectionService) DeadCapReport(ctx context.Context, franchiseID string) ([]deadcap.Obligation, error) {
	ctx, span := startUsecaseSpan(ctx, "ProjectionService.DeadCapReport")
	defer span.End()

	if err := s.requireFranchise(ctx, franchiseID); err != nil {
		return nil, err
	}

	obligations, err := s.obligations.ListByFranchise(ctx, franchiseID)
	if err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}
	sort.Slice(obligations, func(i, j int) bool {
		if obligations[i].CutSeason != obligations[j].CutSeason {
			return obligations[i].CutSeason < obligations[j].CutSeason
		}
		return obligations[i].ID < obligations[j].ID
	})

	return obligations, nil
}

// Invalidate drops a franchise's cached projections, called after a
// transaction touches its ledger.
func (s *ProjectionService) Invalidate(ctx context.Context, franchiseID string) {
	s.store.DeletePrefix(ctx, "projection:"+franchiseID+":")
}

func (s *ProjectionService) projectLocked(franchiseID string) []ledger.Entry {
	current := s.seasons.CurrentSeason()
	entries := make([]ledger.Entry, 0, s.horizon+1)
	for season := current; season <= current+s.horizon; season++ {
		entries = append(entries, s.ledger.Entry(franchiseID, season))
	}
	return entries
}

func (s *ProjectionService) requireFranchise(ctx context.Context, franchiseID string) error {
	if franchiseID == "" {
		return fmt.Errorf("%w: franchise id is required", ErrInvalidInput)
	}
	_, ok, err := s.franchises.GetByID(ctx, franchiseID)
	if err != nil {
		return fmt.Errorf("lookup franchise: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: franchise %s", ErrNotFound, franchiseID)
	}
	return nil
}

func projectionCacheKey(franchiseID string, season int) string {
	return fmt.Sprintf("projection:%s:%d", franchiseID, season)
}
