package auction

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnresolvedTie = errors.New("unresolved auction tie")
	ErrNoValidBid    = errors.New("no valid bid in auction")
)

// Mode selects the bid visibility policy. FAAD auctions reveal every bid,
// FASA auctions reveal only the winner. Resolution logic is identical.
type Mode string

const (
	ModeOpen  Mode = "faad"
	ModeBlind Mode = "fasa"
)

var AllModes = map[Mode]struct{}{
	ModeOpen:  {},
	ModeBlind: {},
}

// Bid is one franchise's offer for a player in a single auction close. Bids
// are ephemeral: at most one becomes a contract.
type Bid struct {
	PlayerID    string
	FranchiseID string
	TotalValue  int64
	Duration    int
	Payments    []int64
	SubmittedAt time.Time
	// TiebreakToken is an externally supplied deterministic token used only
	// when value, duration and submission time all tie.
	TiebreakToken string
}

func (b Bid) Validate() error {
	if b.PlayerID == "" {
		return fmt.Errorf("bid player id is required")
	}
	if b.FranchiseID == "" {
		return fmt.Errorf("bid franchise id is required")
	}
	if b.TotalValue <= 0 {
		return fmt.Errorf("bid total value must be greater than zero")
	}
	if b.Duration < 1 {
		return fmt.Errorf("bid duration must be at least one season")
	}
	return nil
}
