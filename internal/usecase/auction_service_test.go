package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dynastyops/capledger/internal/domain/auction"
	"github.com/dynastyops/capledger/internal/domain/contract"
)

var auctionClosed = time.Date(2026, time.September, 2, 20, 0, 0, 0, time.UTC)

func auctionBid(franchiseID string, value int64, payments []int64, offset time.Duration) auction.Bid {
	return auction.Bid{
		PlayerID:    "ply-fa",
		FranchiseID: franchiseID,
		TotalValue:  value,
		Duration:    len(payments),
		Payments:    payments,
		SubmittedAt: auctionClosed.Add(-time.Hour + offset),
	}
}

func TestResolveAndSign_BlindAuctionRevealsOnlyWinner(t *testing.T) {
	t.Parallel()

	f := newTxFixture(t, 1000)
	svc := NewAuctionService(f.svc, contract.DefaultShapeRules(), nil)

	bids := []auction.Bid{
		auctionBid("frn-ironhorses", 300, []int64{100, 100, 100}, 0),
		auctionBid("frn-nightmares", 240, []int64{80, 80, 80}, time.Minute),
	}

	result, err := svc.ResolveAndSign(context.Background(), auction.ModeBlind, bids, auctionClosed)
	if err != nil {
		t.Fatalf("resolve and sign: %v", err)
	}
	if result.Winner.FranchiseID != "frn-ironhorses" {
		t.Fatalf("unexpected winner: %s", result.Winner.FranchiseID)
	}
	if len(result.Revealed) != 1 {
		t.Fatalf("blind auction must reveal one bid, got %d", len(result.Revealed))
	}
	if result.Receipt.ContractID == "" {
		t.Fatal("winner must receive a contract")
	}
	if result.Receipt.AvailableCap != 900 {
		t.Fatalf("winner cap: got=%d want=900", result.Receipt.AvailableCap)
	}

	con, ok, _ := f.contracts.GetLiveByPlayer(context.Background(), "ply-fa")
	if !ok || con.FranchiseID != "frn-ironhorses" {
		t.Fatalf("signed contract owner: ok=%t franchise=%s", ok, con.FranchiseID)
	}
}

func TestResolveAndSign_OverCapWinnerFallsThrough(t *testing.T) {
	t.Parallel()

	f := newTxFixture(t, 1000)
	svc := NewAuctionService(f.svc, contract.DefaultShapeRules(), nil)

	bids := []auction.Bid{
		auctionBid("frn-ironhorses", 3300, []int64{1100, 1100, 1100}, 0),
		auctionBid("frn-nightmares", 300, []int64{100, 100, 100}, time.Minute),
	}

	result, err := svc.ResolveAndSign(context.Background(), auction.ModeOpen, bids, auctionClosed)
	if err != nil {
		t.Fatalf("resolve and sign: %v", err)
	}
	if result.Winner.FranchiseID != "frn-nightmares" {
		t.Fatalf("runner-up must win after cap miss: got=%s", result.Winner.FranchiseID)
	}
	if len(result.Revealed) != 2 {
		t.Fatalf("open auction must reveal every bid, got %d", len(result.Revealed))
	}
}

func TestResolveAndSign_NoLegalBid(t *testing.T) {
	t.Parallel()

	f := newTxFixture(t, 1000)
	svc := NewAuctionService(f.svc, contract.DefaultShapeRules(), nil)

	// Six-year schedule breaks the duration ceiling.
	bids := []auction.Bid{
		auctionBid("frn-ironhorses", 600, []int64{100, 100, 100, 100, 100, 100}, 0),
	}

	_, err := svc.ResolveAndSign(context.Background(), auction.ModeOpen, bids, auctionClosed)
	if !errors.Is(err, auction.ErrNoValidBid) {
		t.Fatalf("expected no valid bid, got %v", err)
	}
}

func TestResolveAndSign_InputGuards(t *testing.T) {
	t.Parallel()

	f := newTxFixture(t, 1000)
	svc := NewAuctionService(f.svc, contract.DefaultShapeRules(), nil)

	bids := []auction.Bid{auctionBid("frn-ironhorses", 300, []int64{100, 100, 100}, 0)}

	if _, err := svc.ResolveAndSign(context.Background(), auction.Mode("sealed"), bids, auctionClosed); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid mode rejection, got %v", err)
	}
	if _, err := svc.ResolveAndSign(context.Background(), auction.ModeOpen, bids, time.Time{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected missing close time rejection, got %v", err)
	}
}
