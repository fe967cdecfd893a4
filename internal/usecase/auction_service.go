package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dynastyops/capledger/internal/domain/auction"
	"github.com/dynastyops/capledger/internal/domain/contract"
	"github.com/dynastyops/capledger/internal/domain/ledger"
	"github.com/dynastyops/capledger/internal/platform/logging"
)

// AuctionResult is the outcome of one auction close: the winning bid, the
// receipt for the contract it became, and the bid set filtered by the mode's
// visibility policy.
type AuctionResult struct {
	Mode     auction.Mode
	Winner   auction.Bid
	Receipt  Receipt
	Revealed []auction.Bid
}

// AuctionService resolves free-agent auctions and turns the winner into a
// signed contract through the transaction processor.
type AuctionService struct {
	tx     *TransactionService
	rules  contract.ShapeRules
	logger *logging.Logger
}

func NewAuctionService(tx *TransactionService, rules contract.ShapeRules, logger *logging.Logger) *AuctionService {
	if logger == nil {
		logger = logging.Default()
	}
	return &AuctionService{
		tx:     tx,
		rules:  rules,
		logger: logger,
	}
}

// ResolveAndSign ranks the bids, signs the best one that both shapes legally
// and fits under the winner's current-season cap, and reveals the bid set per
// the auction mode. A bid whose signing would break the cap floor is treated
// like an invalid bid: resolution falls through to the next-ranked one.
func (s *AuctionService) ResolveAndSign(ctx context.Context, mode auction.Mode, bids []auction.Bid, closedAt time.Time) (AuctionResult, error) {
	ctx, span := startUsecaseSpan(ctx, "AuctionService.ResolveAndSign")
	defer span.End()

	if _, ok := auction.AllModes[mode]; !ok {
		return AuctionResult{}, fmt.Errorf("%w: unknown auction mode %q", ErrInvalidInput, mode)
	}
	if closedAt.IsZero() {
		return AuctionResult{}, fmt.Errorf("%w: auction close timestamp is required", ErrInvalidInput)
	}

	remaining := append([]auction.Bid(nil), bids...)
	for len(remaining) > 0 {
		winner, err := auction.Resolve(remaining, s.validateBid)
		if err != nil {
			if errors.Is(err, auction.ErrNoValidBid) {
				return AuctionResult{}, fmt.Errorf("%w: no bid produced a legal contract", auction.ErrNoValidBid)
			}
			return AuctionResult{}, err
		}

		receipt, err := s.tx.ApplyEvent(ctx, Event{
			Type:        EventSign,
			PlayerID:    winner.PlayerID,
			FranchiseID: winner.FranchiseID,
			TotalValue:  winner.TotalValue,
			Duration:    winner.Duration,
			Payments:    winner.Payments,
			Kind:        contract.KindYearly,
			OccurredAt:  closedAt,
		})
		if err != nil {
			// The winner cleared shape validation but could not sign. A cap
			// miss drops only this bid; anything else fails the auction.
			if errors.Is(err, ledger.ErrCapExceeded) {
				s.logger.WarnContext(ctx, "auction winner over cap, falling through",
					"player_id", winner.PlayerID,
					"franchise_id", winner.FranchiseID,
					"total_value", winner.TotalValue,
				)
				remaining = dropBid(remaining, winner)
				continue
			}
			return AuctionResult{}, err
		}

		s.logger.InfoContext(ctx, "auction resolved",
			"mode", string(mode),
			"player_id", winner.PlayerID,
			"franchise_id", winner.FranchiseID,
			"total_value", winner.TotalValue,
			"bids", len(bids),
		)

		return AuctionResult{
			Mode:     mode,
			Winner:   winner,
			Receipt:  receipt,
			Revealed: auction.Reveal(mode, winner, bids),
		}, nil
	}

	return AuctionResult{}, fmt.Errorf("%w: every bid was over the cap", auction.ErrNoValidBid)
}

// validateBid vets a candidate's proposed schedule against the pro-rating
// rules before it can win.
func (s *AuctionService) validateBid(b auction.Bid) error {
	if b.Duration > s.rules.MaxDuration {
		return fmt.Errorf("duration %d exceeds the %d season maximum", b.Duration, s.rules.MaxDuration)
	}
	payments := b.Payments
	if len(payments) == 0 {
		built, err := contract.BuildSchedule(b.TotalValue, b.Duration, s.rules)
		if err != nil {
			return err
		}
		payments = built
	}
	if len(payments) != b.Duration {
		return fmt.Errorf("schedule covers %d seasons, bid covers %d", len(payments), b.Duration)
	}
	return contract.ValidateShape(payments, b.TotalValue, s.rules)
}

func dropBid(bids []auction.Bid, target auction.Bid) []auction.Bid {
	out := bids[:0]
	for _, b := range bids {
		if b.FranchiseID == target.FranchiseID && b.SubmittedAt.Equal(target.SubmittedAt) && b.TotalValue == target.TotalValue && b.Duration == target.Duration {
			continue
		}
		out = append(out, b)
	}
	return out
}
