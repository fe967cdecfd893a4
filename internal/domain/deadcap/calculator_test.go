package deadcap

import (
	"testing"

	"github.com/dynastyops/capledger/internal/domain/contract"
)

func fiveYearContract() contract.Contract {
	return contract.Contract{
		ID:          "con-1",
		PlayerID:    "ply-1",
		FranchiseID: "frn-1",
		Kind:        contract.KindYearly,
		TotalValue:  100,
		Duration:    5,
		StartSeason: 2026,
		Payments:    []int64{10, 15, 20, 25, 30},
		Guaranteed:  []bool{true, true, true, true, true},
		State:       contract.StateActive,
	}
}

func TestLiabilities_RoundsEachSeasonBeforeSumming(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(DefaultSchedule())
	got := calc.Liabilities(fiveYearContract(), 2026)

	// ceil(15*50%)=8, ceil(20*50%)=10, ceil(25*25%)=7, ceil(30*25%)=8.
	want := map[int]int64{2027: 8, 2028: 10, 2029: 7, 2030: 8}
	if len(got) != len(want) {
		t.Fatalf("unexpected liability seasons: got=%v want=%v", got, want)
	}
	var total int64
	for season, amount := range want {
		if got[season] != amount {
			t.Fatalf("unexpected liability for %d: got=%d want=%d", season, got[season], amount)
		}
		total += got[season]
	}
	if total != 33 {
		t.Fatalf("unexpected total liability: got=%d want=33", total)
	}
}

func TestLiabilities_LateCutClampsToLastPercent(t *testing.T) {
	t.Parallel()

	con := fiveYearContract()
	con.StartSeason = 2020

	calc := NewCalculator(Schedule{PercentByOffset: []int{50}})
	got := calc.Liabilities(con, 2021)

	// Offsets past the table reuse its final entry.
	want := map[int]int64{2022: 10, 2023: 13, 2024: 15}
	for season, amount := range want {
		if got[season] != amount {
			t.Fatalf("unexpected liability for %d: got=%d want=%d", season, got[season], amount)
		}
	}
}

func TestLiabilities_WeeklyCarriesNothing(t *testing.T) {
	t.Parallel()

	con := fiveYearContract()
	con.Kind = contract.KindWeekly
	con.Duration = 1
	con.Payments = []int64{100}
	con.Guaranteed = []bool{true}

	if got := NewCalculator(DefaultSchedule()).Liabilities(con, 2026); got != nil {
		t.Fatalf("weekly cut must carry no dead cap, got %v", got)
	}
}

func TestLiabilities_NonGuaranteedDependsOnConversion(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(DefaultSchedule())

	con := fiveYearContract()
	con.Kind = contract.KindNonGuaranteed
	if got := calc.Liabilities(con, 2026); got != nil {
		t.Fatalf("unconverted non-guaranteed cut must be free, got %v", got)
	}

	con.State = contract.StateConverted
	if got := calc.Liabilities(con, 2026); got == nil {
		t.Fatal("converted non-guaranteed cut must carry dead cap")
	}
}

func TestLiabilities_CutInFinalSeasonIsNil(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(DefaultSchedule())
	if got := calc.Liabilities(fiveYearContract(), 2030); got != nil {
		t.Fatalf("cut in final season leaves no future years, got %v", got)
	}
}

func TestSeasons_SortedAscending(t *testing.T) {
	t.Parallel()

	got := Seasons(map[int]int64{2029: 1, 2027: 2, 2028: 3})
	want := []int{2027, 2028, 2029}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected season order: got=%v want=%v", got, want)
		}
	}
}
