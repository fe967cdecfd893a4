package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/dynastyops/capledger/internal/domain/franchise"
	"github.com/dynastyops/capledger/internal/domain/ledger"
	"github.com/dynastyops/capledger/internal/platform/logging"
)

// SnapshotProvider fetches the commissioner platform's view of a franchise's
// cap usage for one season. Implementations live in external clients.
type SnapshotProvider interface {
	CapSnapshot(ctx context.Context, franchiseID string, season int) (CapSnapshot, error)
}

// CapSnapshot is an external system's cap totals for one franchise-season.
type CapSnapshot struct {
	FranchiseID       string
	Season            int
	ActiveObligations int64
	DeadCap           int64
}

// Freezer blocks further transactions for a franchise.
type Freezer interface {
	FreezeFranchise(franchiseID string)
}

// ReconcileReport is the outcome of one audit run.
type ReconcileReport struct {
	InternalDiscrepancies []ledger.Discrepancy
	ExternalDiscrepancies []ledger.Discrepancy
	FrozenFranchises      []string
}

func (r ReconcileReport) Clean() bool {
	return len(r.InternalDiscrepancies) == 0 && len(r.ExternalDiscrepancies) == 0
}

// ReconcileService audits the ledger two ways: the incremental entries
// against a rebuild of the posting log, and optionally the rebuilt totals
// against the commissioner platform's snapshots. Any franchise with a
// mismatch is frozen until a human intervenes.
type ReconcileService struct {
	franchises franchise.Repository
	ledger     *ledger.Ledger
	snapshots  SnapshotProvider
	freezer    Freezer
	seasons    SeasonSource
	logger     *logging.Logger
}

func NewReconcileService(
	franchises franchise.Repository,
	led *ledger.Ledger,
	snapshots SnapshotProvider,
	freezer Freezer,
	seasons SeasonSource,
	logger *logging.Logger,
) *ReconcileService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ReconcileService{
		franchises: franchises,
		ledger:     led,
		snapshots:  snapshots,
		freezer:    freezer,
		seasons:    seasons,
		logger:     logger,
	}
}

// Run executes a full audit and freezes every franchise it finds corrupted.
func (s *ReconcileService) Run(ctx context.Context) (ReconcileReport, error) {
	ctx, span := startUsecaseSpan(ctx, "ReconcileService.Run")
	defer span.End()

	internal, err := s.ledger.Reconcile()
	if err != nil {
		return ReconcileReport{}, fmt.Errorf("rebuild ledger: %w", err)
	}

	external, err := s.compareSnapshots(ctx)
	if err != nil {
		return ReconcileReport{}, err
	}

	report := ReconcileReport{
		InternalDiscrepancies: internal,
		ExternalDiscrepancies: external,
	}

	frozen := make(map[string]struct{})
	for _, d := range internal {
		frozen[d.FranchiseID] = struct{}{}
	}
	for _, d := range external {
		frozen[d.FranchiseID] = struct{}{}
	}
	for franchiseID := range frozen {
		s.freezer.FreezeFranchise(franchiseID)
		report.FrozenFranchises = append(report.FrozenFranchises, franchiseID)
	}
	sort.Strings(report.FrozenFranchises)

	if !report.Clean() {
		s.logger.ErrorContext(ctx, "reconciliation found discrepancies",
			"internal", len(internal),
			"external", len(external),
			"frozen", len(report.FrozenFranchises),
		)
		return report, nil
	}

	s.logger.InfoContext(ctx, "reconciliation clean")
	return report, nil
}

// compareSnapshots fans out one snapshot fetch per franchise for the current
// season and diffs the totals against the ledger.
func (s *ReconcileService) compareSnapshots(ctx context.Context) ([]ledger.Discrepancy, error) {
	if s.snapshots == nil {
		return nil, nil
	}

	franchises, err := s.franchises.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list franchises: %w", err)
	}
	season := s.seasons.CurrentSeason()

	var mu sync.Mutex
	var out []ledger.Discrepancy

	p := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(8)
	for _, f := range franchises {
		f := f
		p.Go(func(ctx context.Context) error {
			snapshot, snapErr := s.snapshots.CapSnapshot(ctx, f.ID, season)
			if snapErr != nil {
				return fmt.Errorf("snapshot for franchise %s: %w", f.ID, snapErr)
			}
			entry := s.ledger.Entry(f.ID, season)
			diffs := diffSnapshot(entry, snapshot)
			if len(diffs) == 0 {
				return nil
			}
			mu.Lock()
			out = append(out, diffs...)
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].FranchiseID != out[j].FranchiseID {
			return out[i].FranchiseID < out[j].FranchiseID
		}
		return out[i].Field < out[j].Field
	})
	return out, nil
}

func diffSnapshot(entry ledger.Entry, snapshot CapSnapshot) []ledger.Discrepancy {
	var out []ledger.Discrepancy
	if entry.ActiveObligations != snapshot.ActiveObligations {
		out = append(out, ledger.Discrepancy{
			FranchiseID: entry.FranchiseID,
			Season:      entry.Season,
			Field:       "active_obligations",
			Got:         entry.ActiveObligations,
			Want:        snapshot.ActiveObligations,
		})
	}
	if entry.DeadCap != snapshot.DeadCap {
		out = append(out, ledger.Discrepancy{
			FranchiseID: entry.FranchiseID,
			Season:      entry.Season,
			Field:       "dead_cap",
			Got:         entry.DeadCap,
			Want:        snapshot.DeadCap,
		})
	}
	return out
}
