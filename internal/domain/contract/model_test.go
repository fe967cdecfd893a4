package contract

import (
	"errors"
	"testing"
)

func validContract() Contract {
	return Contract{
		ID:          "con-1",
		PlayerID:    "ply-1",
		FranchiseID: "frn-1",
		Kind:        KindYearly,
		TotalValue:  100,
		Duration:    3,
		StartSeason: 2026,
		Payments:    []int64{30, 34, 36},
		Guaranteed:  []bool{true, true, true},
		State:       StateActive,
	}
}

func TestContract_PaymentForSeason(t *testing.T) {
	t.Parallel()

	c := validContract()

	got, ok := c.PaymentForSeason(2027)
	if !ok || got != 34 {
		t.Fatalf("unexpected payment: got=%d ok=%t want=34", got, ok)
	}
	if _, ok := c.PaymentForSeason(2025); ok {
		t.Fatal("expected no payment before start season")
	}
	if _, ok := c.PaymentForSeason(2029); ok {
		t.Fatal("expected no payment after final season")
	}
	if got := c.FinalSeason(); got != 2028 {
		t.Fatalf("unexpected final season: got=%d want=2028", got)
	}
}

func TestContract_TransitionRejectsTerminalMoves(t *testing.T) {
	t.Parallel()

	c := validContract()
	if err := c.Transition(StateCut); err != nil {
		t.Fatalf("active -> cut should be allowed: %v", err)
	}

	err := c.Transition(StateCut)
	if !errors.Is(err, ErrInvalidLifecycleTransition) {
		t.Fatalf("expected lifecycle error cutting twice, got %v", err)
	}
	if err := c.Transition(StateConverted); !errors.Is(err, ErrInvalidLifecycleTransition) {
		t.Fatalf("expected lifecycle error converting a cut contract, got %v", err)
	}
}

func TestContract_ConvertedStaysLive(t *testing.T) {
	t.Parallel()

	c := validContract()
	c.Kind = KindNonGuaranteed
	c.Guaranteed = []bool{false, false, false}

	if err := c.Transition(StateConverted); err != nil {
		t.Fatalf("active -> converted should be allowed: %v", err)
	}
	if !c.Live() {
		t.Fatal("converted contract must still be live")
	}
	if err := c.Transition(StateExpired); err != nil {
		t.Fatalf("converted -> expired should be allowed: %v", err)
	}
	if c.Live() {
		t.Fatal("expired contract must not be live")
	}
}

func TestContract_ValidateRejectsMismatchedSchedule(t *testing.T) {
	t.Parallel()

	c := validContract()
	c.Payments = []int64{30, 34}
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for duration / payments mismatch")
	}

	c = validContract()
	c.Payments = []int64{30, 34, 35}
	if err := c.Validate(); !errors.Is(err, ErrInvalidProRateShape) {
		t.Fatalf("expected shape error for wrong sum, got %v", err)
	}
}

func TestContract_ValidateNonGuaranteedFlags(t *testing.T) {
	t.Parallel()

	c := validContract()
	c.Kind = KindNonGuaranteed
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for guaranteed seasons before conversion")
	}

	c.Guaranteed = []bool{false, false, false}
	if err := c.Validate(); err != nil {
		t.Fatalf("unguaranteed schedule should validate: %v", err)
	}
}
