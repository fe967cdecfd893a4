package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dynastyops/capledger/internal/domain/ledger"
	"github.com/dynastyops/capledger/internal/infrastructure/repository/memory"
)

// mirrorSnapshots answers with the ledger's own totals except where an
// override is installed, so tests can stage external drift precisely.
type mirrorSnapshots struct {
	led       *ledger.Ledger
	overrides map[string]CapSnapshot
	failWith  error
}

func (m *mirrorSnapshots) CapSnapshot(_ context.Context, franchiseID string, season int) (CapSnapshot, error) {
	if m.failWith != nil {
		return CapSnapshot{}, m.failWith
	}
	if s, ok := m.overrides[franchiseID]; ok {
		return s, nil
	}
	entry := m.led.Entry(franchiseID, season)
	return CapSnapshot{
		FranchiseID:       franchiseID,
		Season:            season,
		ActiveObligations: entry.ActiveObligations,
		DeadCap:           entry.DeadCap,
	}, nil
}

func newReconcileService(f *txFixture, snapshots SnapshotProvider) *ReconcileService {
	return NewReconcileService(
		memory.NewFranchiseRepository(memory.SeedFranchises(2026)),
		f.led,
		snapshots,
		f.svc,
		f.svc,
		nil,
	)
}

func TestReconcileRun_CleanLedger(t *testing.T) {
	t.Parallel()

	f := newTxFixture(t, 1000)
	ctx := context.Background()

	if _, err := f.svc.ApplyEvent(ctx, signEvent("ply-1", "frn-ironhorses", []int64{10, 15, 20, 25, 30}, 0)); err != nil {
		t.Fatalf("sign: %v", err)
	}

	svc := newReconcileService(f, &mirrorSnapshots{led: f.led})
	report, err := svc.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !report.Clean() {
		t.Fatalf("expected clean report, got %+v", report)
	}
	if got := f.svc.FrozenFranchises(); len(got) != 0 {
		t.Fatalf("clean run must not freeze anyone, got %v", got)
	}
}

func TestReconcileRun_ExternalDriftFreezesFranchise(t *testing.T) {
	t.Parallel()

	f := newTxFixture(t, 1000)
	ctx := context.Background()

	if _, err := f.svc.ApplyEvent(ctx, signEvent("ply-1", "frn-ironhorses", []int64{10, 15, 20, 25, 30}, 0)); err != nil {
		t.Fatalf("sign: %v", err)
	}

	snapshots := &mirrorSnapshots{
		led: f.led,
		overrides: map[string]CapSnapshot{
			"frn-ironhorses": {FranchiseID: "frn-ironhorses", Season: 2026, ActiveObligations: 999, DeadCap: 0},
		},
	}
	svc := newReconcileService(f, snapshots)

	report, err := svc.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Clean() {
		t.Fatal("expected a dirty report")
	}
	if len(report.ExternalDiscrepancies) != 1 {
		t.Fatalf("unexpected external discrepancies: %+v", report.ExternalDiscrepancies)
	}
	d := report.ExternalDiscrepancies[0]
	if d.FranchiseID != "frn-ironhorses" || d.Field != "active_obligations" || d.Got != 10 || d.Want != 999 {
		t.Fatalf("unexpected discrepancy: %+v", d)
	}
	if len(report.FrozenFranchises) != 1 || report.FrozenFranchises[0] != "frn-ironhorses" {
		t.Fatalf("unexpected frozen set: %v", report.FrozenFranchises)
	}

	// The freeze must actually block the franchise.
	_, err = f.svc.ApplyEvent(ctx, signEvent("ply-2", "frn-ironhorses", []int64{30, 34, 36}, time.Minute))
	if !errors.Is(err, ErrLedgerFrozen) {
		t.Fatalf("expected frozen rejection, got %v", err)
	}
}

func TestReconcileRun_SnapshotOutageFailsClosed(t *testing.T) {
	t.Parallel()

	f := newTxFixture(t, 1000)
	svc := newReconcileService(f, &mirrorSnapshots{led: f.led, failWith: fmt.Errorf("gateway timeout")})

	_, err := svc.Run(context.Background())
	if !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected dependency unavailable, got %v", err)
	}
}

func TestReconcileRun_WithoutSnapshotProvider(t *testing.T) {
	t.Parallel()

	f := newTxFixture(t, 1000)
	svc := newReconcileService(f, nil)

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !report.Clean() {
		t.Fatalf("expected clean report, got %+v", report)
	}
}
