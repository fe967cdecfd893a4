package auction

import (
	"fmt"
	"sort"
)

// Resolve ranks the bids for one player and returns the winner. Ranking is
// strictly deterministic: highest total value, then fewer contract years,
// then earliest submission, then the tiebreak token. A residual tie with a
// missing token is surfaced as ErrUnresolvedTie so the commissioner can
// resolve it manually; the auction is deferred, never dropped.
//
// validate vets a candidate's proposed schedule; an invalid candidate is
// skipped and resolution proceeds to the next-ranked bid.
func Resolve(bids []Bid, validate func(Bid) error) (Bid, error) {
	if len(bids) == 0 {
		return Bid{}, ErrNoValidBid
	}

	ranked := append([]Bid(nil), bids...)
	for _, b := range ranked {
		if err := b.Validate(); err != nil {
			return Bid{}, fmt.Errorf("malformed bid from franchise %s: %w", b.FranchiseID, err)
		}
		if b.PlayerID != ranked[0].PlayerID {
			return Bid{}, fmt.Errorf("auction mixes bids for players %s and %s", ranked[0].PlayerID, b.PlayerID)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return rankLess(ranked[i], ranked[j])
	})

	for idx, candidate := range ranked {
		if idx+1 < len(ranked) && tiedThroughTime(candidate, ranked[idx+1]) {
			if candidate.TiebreakToken == "" || ranked[idx+1].TiebreakToken == "" {
				return Bid{}, fmt.Errorf("%w: player=%s value=%d", ErrUnresolvedTie, candidate.PlayerID, candidate.TotalValue)
			}
		}
		if validate != nil {
			if err := validate(candidate); err != nil {
				continue
			}
		}
		return candidate, nil
	}

	return Bid{}, fmt.Errorf("%w: player=%s", ErrNoValidBid, ranked[0].PlayerID)
}

func rankLess(a, b Bid) bool {
	if a.TotalValue != b.TotalValue {
		return a.TotalValue > b.TotalValue
	}
	if a.Duration != b.Duration {
		return a.Duration < b.Duration
	}
	if !a.SubmittedAt.Equal(b.SubmittedAt) {
		return a.SubmittedAt.Before(b.SubmittedAt)
	}
	return a.TiebreakToken < b.TiebreakToken
}

// tiedThroughTime reports whether two bids are indistinguishable before the
// token comparison.
func tiedThroughTime(a, b Bid) bool {
	return a.TotalValue == b.TotalValue &&
		a.Duration == b.Duration &&
		a.SubmittedAt.Equal(b.SubmittedAt)
}

// Reveal applies the mode's visibility policy to the full bid set for
// reporting. Open auctions expose every bid; blind auctions expose only the
// winner.
func Reveal(mode Mode, winner Bid, all []Bid) []Bid {
	if mode == ModeOpen {
		return append([]Bid(nil), all...)
	}
	return []Bid{winner}
}
