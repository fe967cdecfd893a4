package deadcap

import (
	"sort"

	"github.com/dynastyops/capledger/internal/domain/contract"
)

// Schedule is the league's dead-cap discount table. PercentByOffset[i] is the
// percentage applied to the scheduled payment i+1 seasons after the cut, so
// the bylaws' 50/50/25/25/25 table keeps half of the next two years and a
// quarter of everything further out.
type Schedule struct {
	PercentByOffset []int
}

func DefaultSchedule() Schedule {
	return Schedule{PercentByOffset: []int{50, 50, 25, 25, 25}}
}

func (s Schedule) percentAt(offset int) int {
	if len(s.PercentByOffset) == 0 || offset < 1 {
		return 0
	}
	if offset > len(s.PercentByOffset) {
		offset = len(s.PercentByOffset)
	}
	return s.PercentByOffset[offset-1]
}

// Calculator derives per-season dead-cap liabilities from a contract's
// original payment schedule.
type Calculator struct {
	schedule Schedule
}

func NewCalculator(schedule Schedule) *Calculator {
	if len(schedule.PercentByOffset) == 0 {
		schedule = DefaultSchedule()
	}
	return &Calculator{schedule: schedule}
}

// Liabilities returns the season -> amount map created by cutting c in
// cutSeason. Weekly contracts and non-guaranteed contracts cut before their
// conversion carry no liability. Each season is discounted and rounded up
// independently; rounding happens before summing, never after.
func (c *Calculator) Liabilities(con contract.Contract, cutSeason int) map[int]int64 {
	if con.Kind == contract.KindWeekly {
		return nil
	}
	if con.Kind == contract.KindNonGuaranteed && con.State != contract.StateConverted {
		return nil
	}

	out := make(map[int]int64)
	for season := cutSeason + 1; season <= con.FinalSeason(); season++ {
		payment, ok := con.PaymentForSeason(season)
		if !ok || payment == 0 {
			continue
		}
		pct := c.schedule.percentAt(season - cutSeason)
		if pct == 0 {
			continue
		}
		out[season] = ceilPercent(payment, pct)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

// Seasons returns the liability seasons in ascending order, for deterministic
// posting and reporting.
func Seasons(liabilities map[int]int64) []int {
	out := make([]int, 0, len(liabilities))
	for season := range liabilities {
		out = append(out, season)
	}
	sort.Ints(out)
	return out
}

// ceilPercent computes ceil(amount * pct / 100) in integer arithmetic.
func ceilPercent(amount int64, pct int) int64 {
	return (amount*int64(pct) + 99) / 100
}
