package contract

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidProRateShape        = errors.New("invalid pro-rate shape")
	ErrInvalidLifecycleTransition = errors.New("invalid lifecycle transition")
)

// Kind distinguishes contract payment classes under league bylaws.
type Kind string

const (
	KindWeekly        Kind = "weekly"
	KindYearly        Kind = "yearly"
	KindNonGuaranteed Kind = "non_guaranteed"
)

var AllKinds = map[Kind]struct{}{
	KindWeekly:        {},
	KindYearly:        {},
	KindNonGuaranteed: {},
}

// State is the lifecycle position of a contract.
type State string

const (
	StateActive    State = "active"
	StateConverted State = "converted"
	StateExtended  State = "extended"
	StateCut       State = "cut"
	StateExpired   State = "expired"
)

// liveStates are states in which the player still occupies a roster slot
// and the schedule still counts against the owning franchise.
var liveStates = map[State]struct{}{
	StateActive:    {},
	StateConverted: {},
}

var allowedTransitions = map[State]map[State]struct{}{
	StateActive: {
		StateConverted: {},
		StateExtended:  {},
		StateCut:       {},
		StateExpired:   {},
	},
	StateConverted: {
		StateExtended: {},
		StateCut:      {},
		StateExpired:  {},
	},
}

// Contract is one player's payment agreement with a franchise. Payments is
// the validated year-by-year schedule, one entry per season starting at
// StartSeason. The slice is never mutated after signing: cuts and trades
// always read the original amounts.
type Contract struct {
	ID          string
	PlayerID    string
	FranchiseID string
	Kind        Kind
	TotalValue  int64
	Duration    int
	StartSeason int
	Payments    []int64
	Guaranteed  []bool
	State       State
	// OptionDeadlineSeason is the last season an option exercise is allowed
	// for non-guaranteed contracts. Zero means no option attached.
	OptionDeadlineSeason int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (c Contract) FinalSeason() int {
	return c.StartSeason + c.Duration - 1
}

// PaymentForSeason returns the scheduled amount for an absolute season.
func (c Contract) PaymentForSeason(season int) (int64, bool) {
	idx := season - c.StartSeason
	if idx < 0 || idx >= len(c.Payments) {
		return 0, false
	}
	return c.Payments[idx], true
}

func (c Contract) Live() bool {
	_, ok := liveStates[c.State]
	return ok
}

func CanTransition(from, to State) bool {
	targets, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}

// Transition moves the contract to the next lifecycle state, rejecting
// moves the state machine does not allow (e.g. cutting a cut contract).
func (c *Contract) Transition(to State) error {
	if !CanTransition(c.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidLifecycleTransition, c.State, to)
	}
	c.State = to
	return nil
}

func (c Contract) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("contract id is required")
	}
	if c.PlayerID == "" {
		return fmt.Errorf("contract player id is required")
	}
	if c.FranchiseID == "" {
		return fmt.Errorf("contract franchise id is required")
	}
	if _, ok := AllKinds[c.Kind]; !ok {
		return fmt.Errorf("invalid contract kind: %s", c.Kind)
	}
	if c.TotalValue <= 0 {
		return fmt.Errorf("contract total value must be greater than zero")
	}
	if c.Duration < 1 || c.Duration != len(c.Payments) {
		return fmt.Errorf("contract duration %d does not match %d scheduled payments", c.Duration, len(c.Payments))
	}
	if len(c.Guaranteed) != len(c.Payments) {
		return fmt.Errorf("contract guarantee flags do not cover every season")
	}

	var sum int64
	for i, p := range c.Payments {
		if p < 0 {
			return fmt.Errorf("%w: season %d payment is negative", ErrInvalidProRateShape, c.StartSeason+i)
		}
		sum += p
	}
	if sum != c.TotalValue {
		return fmt.Errorf("%w: payments sum %d does not equal total value %d", ErrInvalidProRateShape, sum, c.TotalValue)
	}

	if c.Kind == KindNonGuaranteed && c.State == StateActive {
		for i, g := range c.Guaranteed {
			if g {
				return fmt.Errorf("non-guaranteed contract cannot guarantee season %d before conversion", c.StartSeason+i)
			}
		}
	}

	return nil
}
