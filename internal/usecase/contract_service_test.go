package usecase

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestContractHistory_TracksLifecycle(t *testing.T) {
	t.Parallel()

	f := newTxFixture(t, 1000)
	svc := NewContractService(f.contracts, nil)
	ctx := context.Background()

	if _, err := f.svc.ApplyEvent(ctx, signEvent("ply-1", "frn-ironhorses", []int64{10, 15, 20, 25, 30}, 0)); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := f.svc.ApplyEvent(ctx, Event{
		Type:        EventCut,
		PlayerID:    "ply-1",
		FranchiseID: "frn-ironhorses",
		OccurredAt:  eventBase.Add(time.Minute),
	}); err != nil {
		t.Fatalf("cut: %v", err)
	}

	rows, err := svc.History(ctx, "ply-1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("unexpected history length: got=%d want=2", len(rows))
	}
	if rows[0].Event != "signed" || rows[1].Event != "cut" {
		t.Fatalf("unexpected event order: %s then %s", rows[0].Event, rows[1].Event)
	}

	if _, err := svc.History(ctx, "ply-unknown"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestContractRoster_LiveDealsFirst(t *testing.T) {
	t.Parallel()

	f := newTxFixture(t, 1000)
	svc := NewContractService(f.contracts, nil)
	ctx := context.Background()

	if _, err := f.svc.ApplyEvent(ctx, signEvent("ply-a", "frn-ironhorses", []int64{10, 15, 20, 25, 30}, 0)); err != nil {
		t.Fatalf("sign ply-a: %v", err)
	}
	if _, err := f.svc.ApplyEvent(ctx, signEvent("ply-b", "frn-ironhorses", []int64{30, 34, 36}, time.Minute)); err != nil {
		t.Fatalf("sign ply-b: %v", err)
	}
	if _, err := f.svc.ApplyEvent(ctx, Event{
		Type:        EventCut,
		PlayerID:    "ply-a",
		FranchiseID: "frn-ironhorses",
		OccurredAt:  eventBase.Add(2 * time.Minute),
	}); err != nil {
		t.Fatalf("cut ply-a: %v", err)
	}

	roster, err := svc.Roster(ctx, "frn-ironhorses")
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	if len(roster) != 2 {
		t.Fatalf("unexpected roster size: got=%d want=2", len(roster))
	}
	if roster[0].PlayerID != "ply-b" || !roster[0].Live() {
		t.Fatalf("live deal must sort first, got %+v", roster[0])
	}
	if roster[1].PlayerID != "ply-a" || roster[1].Live() {
		t.Fatalf("cut deal must sort last, got %+v", roster[1])
	}
}
