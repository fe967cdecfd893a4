package deadcap

import (
	"context"
	"fmt"
	"time"
)

// Obligation is the liability left behind when a contract is terminated
// early. The obligee franchise is fixed at creation: trading the departed
// player later never moves this debt.
type Obligation struct {
	ID          string
	ContractID  string
	PlayerID    string
	FranchiseID string
	CutSeason   int
	// Liabilities maps each future season to its discounted amount.
	Liabilities map[int]int64
	// Suppressed marks an obligation voided by a successful waiver claim.
	// The row stays for audit; the ledger carries the offsetting postings.
	Suppressed bool
	CreatedAt  time.Time
}

func (o Obligation) Total() int64 {
	var sum int64
	for _, amount := range o.Liabilities {
		sum += amount
	}
	return sum
}

func (o Obligation) Validate() error {
	if o.ID == "" {
		return fmt.Errorf("obligation id is required")
	}
	if o.ContractID == "" {
		return fmt.Errorf("obligation contract id is required")
	}
	if o.FranchiseID == "" {
		return fmt.Errorf("obligation franchise id is required")
	}
	for season, amount := range o.Liabilities {
		if season <= o.CutSeason {
			return fmt.Errorf("liability season %d is not after cut season %d", season, o.CutSeason)
		}
		if amount < 0 {
			return fmt.Errorf("liability for season %d is negative", season)
		}
	}
	return nil
}

// Repository describes obligation persistence needs from use cases.
type Repository interface {
	Save(ctx context.Context, o Obligation) error
	Suppress(ctx context.Context, obligationID string) error
	ListByFranchise(ctx context.Context, franchiseID string) ([]Obligation, error)
	List(ctx context.Context) ([]Obligation, error)
}
