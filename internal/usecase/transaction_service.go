package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dynastyops/capledger/internal/domain/contract"
	"github.com/dynastyops/capledger/internal/domain/deadcap"
	"github.com/dynastyops/capledger/internal/domain/franchise"
	"github.com/dynastyops/capledger/internal/domain/ledger"
	"github.com/dynastyops/capledger/internal/platform/id"
	"github.com/dynastyops/capledger/internal/platform/logging"
)

// EventType enumerates the roster transactions the processor accepts.
type EventType string

const (
	EventSign           EventType = "sign"
	EventExtend         EventType = "extend"
	EventExerciseOption EventType = "exercise_option"
	EventCut            EventType = "cut"
	EventTrade          EventType = "trade"
	EventWaiverClaim    EventType = "waiver_claim"
	EventCapTrade       EventType = "cap_trade"
)

var allEventTypes = map[EventType]struct{}{
	EventSign:           {},
	EventExtend:         {},
	EventExerciseOption: {},
	EventCut:            {},
	EventTrade:          {},
	EventWaiverClaim:    {},
	EventCapTrade:       {},
}

// ConditionalCut names a player the receiving franchise cuts as part of the
// same trade, so the cap room for the incoming contract and the dead cap of
// the departing one are checked together.
type ConditionalCut struct {
	PlayerID string
}

// Event is one roster transaction. Events are applied strictly in timestamp
// order; an event older than the last processed one is rejected outright.
type Event struct {
	ID            string
	Type          EventType
	PlayerID      string
	FranchiseID   string
	ToFranchiseID string
	// Season the transaction takes effect in. Zero means the current season.
	Season     int
	TotalValue int64
	Duration   int
	// Payments is an explicit per-season schedule. Empty means the processor
	// builds an even back-loaded split from TotalValue and Duration.
	Payments             []int64
	Kind                 contract.Kind
	OptionDeadlineSeason int
	ConditionalCuts      []ConditionalCut
	OccurredAt           time.Time
}

// Receipt reports the outcome of a successfully applied event.
type Receipt struct {
	EventID      string
	ContractID   string
	ObligationID string
	Warnings     []ledger.Warning
	AvailableCap int64
}

type cutRecord struct {
	contractID   string
	franchiseID  string
	obligationID string
	liabilities  map[int]int64
	occurredAt   time.Time
}

// TransactionService is the single entry point for roster transactions. All
// events funnel through one mutex: ordering and cap-floor checks are only
// meaningful if events are applied one at a time.
type TransactionService struct {
	mu sync.Mutex

	contracts   contract.Repository
	obligations deadcap.Repository
	franchises  franchise.Repository
	postings    ledger.Repository
	ledger      *ledger.Ledger
	calc        *deadcap.Calculator
	rules       contract.ShapeRules
	ids         id.Generator
	logger      *logging.Logger

	currentSeason int
	waiverWindow  time.Duration
	lastEventAt   time.Time
	recentCuts    map[string]cutRecord
	frozen        map[string]struct{}

	now func() time.Time
}

func NewTransactionService(
	contracts contract.Repository,
	obligations deadcap.Repository,
	franchises franchise.Repository,
	postings ledger.Repository,
	led *ledger.Ledger,
	calc *deadcap.Calculator,
	rules contract.ShapeRules,
	ids id.Generator,
	currentSeason int,
	waiverWindow time.Duration,
	logger *logging.Logger,
) *TransactionService {
	if logger == nil {
		logger = logging.Default()
	}
	return &TransactionService{
		contracts:     contracts,
		obligations:   obligations,
		franchises:    franchises,
		postings:      postings,
		ledger:        led,
		calc:          calc,
		rules:         rules,
		ids:           ids,
		logger:        logger,
		currentSeason: currentSeason,
		waiverWindow:  waiverWindow,
		recentCuts:    make(map[string]cutRecord),
		frozen:        make(map[string]struct{}),
		now:           time.Now,
	}
}

func (s *TransactionService) CurrentSeason() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentSeason
}

// FreezeFranchise blocks all transactions for a franchise until it is
// explicitly unfrozen. Used when reconciliation finds corrupted cap state.
func (s *TransactionService) FreezeFranchise(franchiseID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frozen[franchiseID] = struct{}{}
	s.logger.Warn("franchise frozen", "franchise_id", franchiseID)
}

func (s *TransactionService) UnfreezeFranchise(franchiseID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.frozen, franchiseID)
	s.logger.Info("franchise unfrozen", "franchise_id", franchiseID)
}

func (s *TransactionService) FrozenFranchises() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.frozen))
	for franchiseID := range s.frozen {
		out = append(out, franchiseID)
	}
	return out
}

// AdvanceSeason rolls the league into the next season and expires every live
// contract whose final year has passed. Expiry is a lifecycle change only:
// past-season postings are history and stay untouched.
func (s *TransactionService) AdvanceSeason(ctx context.Context) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "TransactionService.AdvanceSeason")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentSeason++

	live, err := s.contracts.ListLive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list live contracts: %w", err)
	}
	for _, con := range live {
		if con.FinalSeason() >= s.currentSeason {
			continue
		}
		if err := con.Transition(contract.StateExpired); err != nil {
			return 0, err
		}
		con.UpdatedAt = s.now()
		if err := s.contracts.Update(ctx, con); err != nil {
			return 0, fmt.Errorf("expire contract %s: %w", con.ID, err)
		}
		if err := s.appendHistory(ctx, con, "expired", s.currentSeason); err != nil {
			return 0, err
		}
	}

	s.logger.InfoContext(ctx, "season advanced", "season", s.currentSeason)
	return s.currentSeason, nil
}

// ApplyEvent validates and applies one transaction. The event either fully
// lands (contract rows, obligations, ledger postings, history) or leaves no
// trace at all.
func (s *TransactionService) ApplyEvent(ctx context.Context, ev Event) (Receipt, error) {
	ctx, span := startUsecaseSpan(ctx, "TransactionService.ApplyEvent")
	defer span.End()

	if _, ok := allEventTypes[ev.Type]; !ok {
		return Receipt{}, fmt.Errorf("%w: unknown event type %q", ErrInvalidInput, ev.Type)
	}
	if ev.FranchiseID == "" {
		return Receipt{}, fmt.Errorf("%w: franchise id is required", ErrInvalidInput)
	}
	if ev.OccurredAt.IsZero() {
		return Receipt{}, fmt.Errorf("%w: event timestamp is required", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.OccurredAt.Before(s.lastEventAt) {
		return Receipt{}, fmt.Errorf("%w: event at %s, last processed at %s",
			ErrOutOfOrderEvent, ev.OccurredAt.Format(time.RFC3339Nano), s.lastEventAt.Format(time.RFC3339Nano))
	}
	if err := s.checkFrozen(ev.FranchiseID); err != nil {
		return Receipt{}, err
	}
	if ev.ToFranchiseID != "" {
		if err := s.checkFrozen(ev.ToFranchiseID); err != nil {
			return Receipt{}, err
		}
	}
	if err := s.checkFranchiseExists(ctx, ev.FranchiseID); err != nil {
		return Receipt{}, err
	}

	if ev.Season == 0 {
		ev.Season = s.currentSeason
	}
	if ev.Season < s.currentSeason {
		return Receipt{}, fmt.Errorf("%w: event season %d precedes current season %d", ErrInvalidInput, ev.Season, s.currentSeason)
	}
	if ev.ID == "" {
		eventID, err := s.ids.NewID()
		if err != nil {
			return Receipt{}, fmt.Errorf("generate event id: %w", err)
		}
		ev.ID = eventID
	}

	var (
		receipt Receipt
		err     error
	)
	switch ev.Type {
	case EventSign:
		receipt, err = s.applySign(ctx, ev)
	case EventExtend:
		receipt, err = s.applyExtend(ctx, ev)
	case EventExerciseOption:
		receipt, err = s.applyExerciseOption(ctx, ev)
	case EventCut:
		receipt, err = s.applyCut(ctx, ev)
	case EventTrade:
		receipt, err = s.applyTrade(ctx, ev)
	case EventWaiverClaim:
		receipt, err = s.applyWaiverClaim(ctx, ev)
	case EventCapTrade:
		receipt, err = s.applyCapTrade(ctx, ev)
	}
	if err != nil {
		return Receipt{}, err
	}

	s.lastEventAt = ev.OccurredAt
	receipt.EventID = ev.ID
	receipt.AvailableCap = s.ledger.AvailableCap(ev.FranchiseID, s.currentSeason)

	s.logger.InfoContext(ctx, "event applied",
		"event_id", ev.ID,
		"event_type", string(ev.Type),
		"franchise_id", ev.FranchiseID,
		"player_id", ev.PlayerID,
		"season", ev.Season,
		"warnings", len(receipt.Warnings),
	)

	return receipt, nil
}

func (s *TransactionService) applySign(ctx context.Context, ev Event) (Receipt, error) {
	con, err := s.buildContract(ctx, ev, ev.FranchiseID, ev.Season)
	if err != nil {
		return Receipt{}, err
	}

	batch := s.obligationPostings(con, ev, 1)
	warnings, err := s.commit(ctx, batch)
	if err != nil {
		return Receipt{}, err
	}

	if err := s.contracts.Save(ctx, con); err != nil {
		s.rollback(ctx, batch)
		return Receipt{}, fmt.Errorf("save contract: %w", err)
	}
	if err := s.appendHistory(ctx, con, "signed", ev.Season); err != nil {
		s.rollback(ctx, batch)
		return Receipt{}, err
	}

	return Receipt{ContractID: con.ID, Warnings: warnings}, nil
}

func (s *TransactionService) applyCut(ctx context.Context, ev Event) (Receipt, error) {
	con, err := s.liveContractOwnedBy(ctx, ev.PlayerID, ev.FranchiseID)
	if err != nil {
		return Receipt{}, err
	}

	batch, obligation, err := s.buildCutBatch(con, ev, ev.Season)
	if err != nil {
		return Receipt{}, err
	}
	warnings, err := s.commit(ctx, batch)
	if err != nil {
		return Receipt{}, err
	}

	receipt := Receipt{ContractID: con.ID, Warnings: warnings}
	if obligation != nil {
		if err := s.obligations.Save(ctx, *obligation); err != nil {
			s.rollback(ctx, batch)
			return Receipt{}, fmt.Errorf("save obligation: %w", err)
		}
		receipt.ObligationID = obligation.ID
	}
	if err := s.finishCut(ctx, con, ev, obligation); err != nil {
		s.rollback(ctx, batch)
		return Receipt{}, err
	}

	return receipt, nil
}

func (s *TransactionService) applyTrade(ctx context.Context, ev Event) (Receipt, error) {
	if ev.ToFranchiseID == "" {
		return Receipt{}, fmt.Errorf("%w: trade requires a receiving franchise", ErrInvalidInput)
	}
	if ev.ToFranchiseID == ev.FranchiseID {
		return Receipt{}, fmt.Errorf("%w: trade sender and receiver are the same franchise", ErrInvalidInput)
	}
	if err := s.checkFranchiseExists(ctx, ev.ToFranchiseID); err != nil {
		return Receipt{}, err
	}

	con, err := s.liveContractOwnedBy(ctx, ev.PlayerID, ev.FranchiseID)
	if err != nil {
		return Receipt{}, err
	}

	// Move every remaining obligation, event season included, from sender to
	// receiver at the original scheduled amounts.
	var batch []ledger.Posting
	for season := ev.Season; season <= con.FinalSeason(); season++ {
		payment, ok := con.PaymentForSeason(season)
		if !ok || payment == 0 {
			continue
		}
		batch = append(batch,
			s.posting(ev, ledger.PostingObligation, ev.FranchiseID, season, -payment, con.ID, "trade out"),
			s.posting(ev, ledger.PostingObligation, ev.ToFranchiseID, season, payment, con.ID, "trade in"),
		)
	}

	// Conditional cuts are part of the same atomic batch: the receiving
	// franchise's room is checked with the incoming salary and the dead cap
	// of its departures applied together.
	type pendingCut struct {
		con        contract.Contract
		obligation *deadcap.Obligation
	}
	var cuts []pendingCut
	for _, cc := range ev.ConditionalCuts {
		cutCon, err := s.liveContractOwnedBy(ctx, cc.PlayerID, ev.ToFranchiseID)
		if err != nil {
			return Receipt{}, fmt.Errorf("conditional cut of player %s: %w", cc.PlayerID, err)
		}
		cutBatch, obligation, err := s.buildCutBatch(cutCon, ev, ev.Season)
		if err != nil {
			return Receipt{}, fmt.Errorf("conditional cut of player %s: %w", cc.PlayerID, err)
		}
		batch = append(batch, cutBatch...)
		cuts = append(cuts, pendingCut{con: cutCon, obligation: obligation})
	}

	warnings, err := s.commit(ctx, batch)
	if err != nil {
		return Receipt{}, err
	}

	con.FranchiseID = ev.ToFranchiseID
	con.UpdatedAt = s.now()
	if err := s.contracts.Update(ctx, con); err != nil {
		s.rollback(ctx, batch)
		return Receipt{}, fmt.Errorf("update traded contract: %w", err)
	}
	if err := s.appendHistory(ctx, con, "traded", ev.Season); err != nil {
		s.rollback(ctx, batch)
		return Receipt{}, err
	}

	for _, cut := range cuts {
		if cut.obligation != nil {
			if err := s.obligations.Save(ctx, *cut.obligation); err != nil {
				s.rollback(ctx, batch)
				return Receipt{}, fmt.Errorf("save obligation: %w", err)
			}
		}
		if err := s.finishCut(ctx, cut.con, ev, cut.obligation); err != nil {
			s.rollback(ctx, batch)
			return Receipt{}, err
		}
	}

	return Receipt{ContractID: con.ID, Warnings: warnings}, nil
}

func (s *TransactionService) applyWaiverClaim(ctx context.Context, ev Event) (Receipt, error) {
	record, ok := s.recentCuts[ev.PlayerID]
	if !ok {
		return Receipt{}, fmt.Errorf("%w: no recent cut for player %s", ErrNotFound, ev.PlayerID)
	}
	if ev.OccurredAt.Sub(record.occurredAt) > s.waiverWindow {
		return Receipt{}, fmt.Errorf("%w: cut at %s, claim at %s",
			ErrWaiverWindowClosed, record.occurredAt.Format(time.RFC3339), ev.OccurredAt.Format(time.RFC3339))
	}
	if len(record.liabilities) == 0 {
		return Receipt{}, fmt.Errorf("%w: cut of player %s left no claimable salary", ErrInvalidInput, ev.PlayerID)
	}
	if ev.FranchiseID == record.franchiseID {
		return Receipt{}, fmt.Errorf("%w: franchise cannot claim its own cut player", ErrInvalidInput)
	}

	seasons := deadcap.Seasons(record.liabilities)
	payments := make([]int64, 0, len(seasons))
	guaranteed := make([]bool, 0, len(seasons))
	var total int64
	for _, season := range seasons {
		payments = append(payments, record.liabilities[season])
		guaranteed = append(guaranteed, true)
		total += record.liabilities[season]
	}

	contractID, err := s.ids.NewID()
	if err != nil {
		return Receipt{}, fmt.Errorf("generate contract id: %w", err)
	}
	startSeason := seasons[0]
	con := contract.Contract{
		ID:          contractID,
		PlayerID:    ev.PlayerID,
		FranchiseID: ev.FranchiseID,
		Kind:        contract.KindYearly,
		TotalValue:  total,
		Duration:    seasons[len(seasons)-1] - startSeason + 1,
		StartSeason: startSeason,
		Payments:    payments,
		Guaranteed:  guaranteed,
		State:       contract.StateActive,
		CreatedAt:   s.now(),
		UpdatedAt:   s.now(),
	}
	// Liability seasons are always contiguous under the discount schedule;
	// anything else means corrupted cut state.
	if con.Duration != len(payments) {
		return Receipt{}, fmt.Errorf("%w: non-contiguous claim seasons for player %s", ledger.ErrCorrupted, ev.PlayerID)
	}

	// One batch: void the cutter's dead cap, book the claimant's salary.
	var batch []ledger.Posting
	for _, season := range seasons {
		amount := record.liabilities[season]
		batch = append(batch,
			s.posting(ev, ledger.PostingDeadCap, record.franchiseID, season, -amount, record.contractID, "waiver claim relief"),
			s.posting(ev, ledger.PostingObligation, ev.FranchiseID, season, amount, con.ID, "waiver claim"),
		)
	}
	warnings, err := s.commit(ctx, batch)
	if err != nil {
		return Receipt{}, err
	}

	if record.obligationID != "" {
		if err := s.obligations.Suppress(ctx, record.obligationID); err != nil {
			s.rollback(ctx, batch)
			return Receipt{}, fmt.Errorf("suppress obligation: %w", err)
		}
	}
	if err := s.contracts.Save(ctx, con); err != nil {
		s.rollback(ctx, batch)
		return Receipt{}, fmt.Errorf("save claimed contract: %w", err)
	}
	if err := s.appendHistory(ctx, con, "waiver_claimed", ev.Season); err != nil {
		s.rollback(ctx, batch)
		return Receipt{}, err
	}
	delete(s.recentCuts, ev.PlayerID)

	return Receipt{ContractID: con.ID, ObligationID: record.obligationID, Warnings: warnings}, nil
}

func (s *TransactionService) applyExtend(ctx context.Context, ev Event) (Receipt, error) {
	old, err := s.liveContractOwnedBy(ctx, ev.PlayerID, ev.FranchiseID)
	if err != nil {
		return Receipt{}, err
	}

	if err := old.Transition(contract.StateExtended); err != nil {
		return Receipt{}, err
	}

	// The old deal's remaining seasons come off the books and the new deal
	// replaces them from the event season forward, in one batch.
	var batch []ledger.Posting
	for season := ev.Season; season <= old.FinalSeason(); season++ {
		payment, ok := old.PaymentForSeason(season)
		if !ok || payment == 0 {
			continue
		}
		batch = append(batch, s.posting(ev, ledger.PostingObligation, ev.FranchiseID, season, -payment, old.ID, "extension replaces"))
	}

	replacement, err := s.buildReplacementContract(ev, ev.FranchiseID, ev.Season)
	if err != nil {
		return Receipt{}, err
	}
	batch = append(batch, s.obligationPostings(replacement, ev, 1)...)

	warnings, err := s.commit(ctx, batch)
	if err != nil {
		return Receipt{}, err
	}

	old.UpdatedAt = s.now()
	if err := s.contracts.Update(ctx, old); err != nil {
		s.rollback(ctx, batch)
		return Receipt{}, fmt.Errorf("close extended contract: %w", err)
	}
	if err := s.appendHistory(ctx, old, "extended", ev.Season); err != nil {
		s.rollback(ctx, batch)
		return Receipt{}, err
	}
	if err := s.contracts.Save(ctx, replacement); err != nil {
		s.rollback(ctx, batch)
		return Receipt{}, fmt.Errorf("save extension contract: %w", err)
	}
	if err := s.appendHistory(ctx, replacement, "signed", ev.Season); err != nil {
		s.rollback(ctx, batch)
		return Receipt{}, err
	}

	return Receipt{ContractID: replacement.ID, Warnings: warnings}, nil
}

func (s *TransactionService) applyExerciseOption(ctx context.Context, ev Event) (Receipt, error) {
	con, err := s.liveContractOwnedBy(ctx, ev.PlayerID, ev.FranchiseID)
	if err != nil {
		return Receipt{}, err
	}
	if con.Kind != contract.KindNonGuaranteed {
		return Receipt{}, fmt.Errorf("%w: contract %s carries no option", ErrOptionUnavailable, con.ID)
	}
	if con.State == contract.StateConverted {
		return Receipt{}, fmt.Errorf("%w: option on contract %s already exercised", ErrOptionUnavailable, con.ID)
	}
	if con.OptionDeadlineSeason > 0 && ev.Season > con.OptionDeadlineSeason {
		return Receipt{}, fmt.Errorf("%w: deadline season %d passed", ErrOptionUnavailable, con.OptionDeadlineSeason)
	}
	if ev.TotalValue <= 0 {
		return Receipt{}, fmt.Errorf("%w: option year salary must be greater than zero", ErrInvalidInput)
	}

	if err := con.Transition(contract.StateConverted); err != nil {
		return Receipt{}, err
	}

	optionSeason := con.FinalSeason() + 1
	con.Payments = append(con.Payments, ev.TotalValue)
	con.Guaranteed = make([]bool, len(con.Payments))
	for i := range con.Guaranteed {
		con.Guaranteed[i] = true
	}
	con.Duration++
	con.TotalValue += ev.TotalValue
	con.UpdatedAt = s.now()

	batch := []ledger.Posting{
		s.posting(ev, ledger.PostingObligation, ev.FranchiseID, optionSeason, ev.TotalValue, con.ID, "option year"),
	}
	warnings, err := s.commit(ctx, batch)
	if err != nil {
		return Receipt{}, err
	}

	if err := s.contracts.Update(ctx, con); err != nil {
		s.rollback(ctx, batch)
		return Receipt{}, fmt.Errorf("update converted contract: %w", err)
	}
	if err := s.appendHistory(ctx, con, "option_exercised", ev.Season); err != nil {
		s.rollback(ctx, batch)
		return Receipt{}, err
	}

	return Receipt{ContractID: con.ID, Warnings: warnings}, nil
}

func (s *TransactionService) applyCapTrade(ctx context.Context, ev Event) (Receipt, error) {
	if ev.ToFranchiseID == "" {
		return Receipt{}, fmt.Errorf("%w: cap trade requires a receiving franchise", ErrInvalidInput)
	}
	if ev.ToFranchiseID == ev.FranchiseID {
		return Receipt{}, fmt.Errorf("%w: cap trade sender and receiver are the same franchise", ErrInvalidInput)
	}
	if ev.TotalValue <= 0 {
		return Receipt{}, fmt.Errorf("%w: cap trade amount must be greater than zero", ErrInvalidInput)
	}
	if err := s.checkFranchiseExists(ctx, ev.ToFranchiseID); err != nil {
		return Receipt{}, err
	}

	template := s.posting(ev, "", "", 0, 0, "", "cap trade")
	batch := ledger.CapTradePostings(ev.FranchiseID, ev.ToFranchiseID, ev.Season, ev.TotalValue, template)
	warnings, err := s.commit(ctx, batch)
	if err != nil {
		return Receipt{}, err
	}

	return Receipt{Warnings: warnings}, nil
}

// buildContract assembles and validates a brand-new signing.
func (s *TransactionService) buildContract(ctx context.Context, ev Event, franchiseID string, startSeason int) (contract.Contract, error) {
	if ev.PlayerID == "" {
		return contract.Contract{}, fmt.Errorf("%w: player id is required", ErrInvalidInput)
	}
	if _, ok := contract.AllKinds[ev.Kind]; !ok {
		return contract.Contract{}, fmt.Errorf("%w: invalid contract kind %q", ErrInvalidInput, ev.Kind)
	}
	if ev.Kind == contract.KindWeekly && ev.Duration != 1 {
		return contract.Contract{}, fmt.Errorf("%w: weekly contracts cover exactly one season", ErrInvalidInput)
	}

	if existing, ok, err := s.contracts.GetLiveByPlayer(ctx, ev.PlayerID); err != nil {
		return contract.Contract{}, fmt.Errorf("lookup live contract: %w", err)
	} else if ok {
		return contract.Contract{}, fmt.Errorf("%w: contract %s", ErrDuplicateActiveContract, existing.ID)
	}

	return s.buildReplacementContract(ev, franchiseID, startSeason)
}

// buildReplacementContract assembles a contract from the event's terms
// without the duplicate-player check, for extensions replacing a deal the
// player already holds.
func (s *TransactionService) buildReplacementContract(ev Event, franchiseID string, startSeason int) (contract.Contract, error) {
	payments := ev.Payments
	if len(payments) == 0 {
		built, err := contract.BuildSchedule(ev.TotalValue, ev.Duration, s.rules)
		if err != nil {
			return contract.Contract{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		payments = built
	}
	if ev.Duration != 0 && ev.Duration != len(payments) {
		return contract.Contract{}, fmt.Errorf("%w: duration %d does not match %d scheduled payments", ErrInvalidInput, ev.Duration, len(payments))
	}
	total := ev.TotalValue
	if total == 0 {
		for _, p := range payments {
			total += p
		}
	}
	if err := contract.ValidateShape(payments, total, s.rules); err != nil {
		return contract.Contract{}, err
	}

	guaranteed := make([]bool, len(payments))
	if ev.Kind != contract.KindNonGuaranteed {
		for i := range guaranteed {
			guaranteed[i] = true
		}
	}

	contractID, err := s.ids.NewID()
	if err != nil {
		return contract.Contract{}, fmt.Errorf("generate contract id: %w", err)
	}
	con := contract.Contract{
		ID:                   contractID,
		PlayerID:             ev.PlayerID,
		FranchiseID:          franchiseID,
		Kind:                 ev.Kind,
		TotalValue:           total,
		Duration:             len(payments),
		StartSeason:          startSeason,
		Payments:             append([]int64(nil), payments...),
		Guaranteed:           guaranteed,
		State:                contract.StateActive,
		OptionDeadlineSeason: ev.OptionDeadlineSeason,
		CreatedAt:            s.now(),
		UpdatedAt:            s.now(),
	}
	if err := con.Validate(); err != nil {
		return contract.Contract{}, err
	}

	return con, nil
}

// buildCutBatch produces the postings for cutting con in cutSeason: the
// scheduled payments after the cut come off as negative obligations and the
// discounted liabilities go on as dead cap. The cut-season payment itself
// stays on the books.
func (s *TransactionService) buildCutBatch(con contract.Contract, ev Event, cutSeason int) ([]ledger.Posting, *deadcap.Obligation, error) {
	var batch []ledger.Posting
	for season := cutSeason + 1; season <= con.FinalSeason(); season++ {
		payment, ok := con.PaymentForSeason(season)
		if !ok || payment == 0 {
			continue
		}
		batch = append(batch, s.posting(ev, ledger.PostingObligation, con.FranchiseID, season, -payment, con.ID, "cut reversal"))
	}

	liabilities := s.calc.Liabilities(con, cutSeason)
	if len(liabilities) == 0 {
		return batch, nil, nil
	}

	obligationID, err := s.ids.NewID()
	if err != nil {
		return nil, nil, fmt.Errorf("generate obligation id: %w", err)
	}
	obligation := deadcap.Obligation{
		ID:          obligationID,
		ContractID:  con.ID,
		PlayerID:    con.PlayerID,
		FranchiseID: con.FranchiseID,
		CutSeason:   cutSeason,
		Liabilities: liabilities,
		CreatedAt:   s.now(),
	}
	if err := obligation.Validate(); err != nil {
		return nil, nil, err
	}
	for _, season := range deadcap.Seasons(liabilities) {
		batch = append(batch, s.posting(ev, ledger.PostingDeadCap, con.FranchiseID, season, liabilities[season], con.ID, "cut dead cap"))
	}

	return batch, &obligation, nil
}

// finishCut records the lifecycle change and the waiver-claim window for an
// already committed cut.
func (s *TransactionService) finishCut(ctx context.Context, con contract.Contract, ev Event, obligation *deadcap.Obligation) error {
	if err := con.Transition(contract.StateCut); err != nil {
		return err
	}
	con.UpdatedAt = s.now()
	if err := s.contracts.Update(ctx, con); err != nil {
		return fmt.Errorf("update cut contract: %w", err)
	}
	if err := s.appendHistory(ctx, con, "cut", ev.Season); err != nil {
		return err
	}

	record := cutRecord{
		contractID:  con.ID,
		franchiseID: con.FranchiseID,
		occurredAt:  ev.OccurredAt,
	}
	if obligation != nil {
		record.obligationID = obligation.ID
		record.liabilities = obligation.Liabilities
	}
	s.recentCuts[con.PlayerID] = record

	return nil
}

func (s *TransactionService) obligationPostings(con contract.Contract, ev Event, sign int64) []ledger.Posting {
	out := make([]ledger.Posting, 0, con.Duration)
	for i, payment := range con.Payments {
		if payment == 0 {
			continue
		}
		season := con.StartSeason + i
		out = append(out, s.posting(ev, ledger.PostingObligation, con.FranchiseID, season, sign*payment, con.ID, "scheduled salary"))
	}
	return out
}

func (s *TransactionService) posting(ev Event, kind ledger.PostingKind, franchiseID string, season int, amount int64, contractID, memo string) ledger.Posting {
	return ledger.Posting{
		ID:          fmt.Sprintf("%s/%s/%d/%s", ev.ID, franchiseID, season, kind),
		FranchiseID: franchiseID,
		Season:      season,
		Kind:        kind,
		Amount:      amount,
		ContractID:  contractID,
		Memo:        memo,
		RecordedAt:  ev.OccurredAt,
	}
}

// commit applies the batch to the in-memory ledger and writes it through to
// the posting log. If the log write fails the in-memory state is reversed,
// so a failed event leaves no cap mutation behind.
func (s *TransactionService) commit(ctx context.Context, batch []ledger.Posting) ([]ledger.Warning, error) {
	warnings, err := s.ledger.Apply(batch, s.currentSeason)
	if err != nil {
		return nil, err
	}
	if err := s.postings.SavePostings(ctx, batch); err != nil {
		s.logger.ErrorContext(ctx, "posting log write failed after ledger commit", "error", err)
		s.revertLedger(ctx, batch)
		return nil, fmt.Errorf("%w: persist postings: %v", ErrDependencyUnavailable, err)
	}
	return warnings, nil
}

// rollback undoes an already committed batch after a later persistence step
// failed. The reversal is written to the posting log too, keeping it in step
// with the in-memory state; if that write fails the affected franchises are
// frozen for manual reconciliation.
func (s *TransactionService) rollback(ctx context.Context, batch []ledger.Posting) {
	reversal := s.revertLedger(ctx, batch)
	if reversal == nil {
		return
	}
	if err := s.postings.SavePostings(ctx, reversal); err != nil {
		s.logger.ErrorContext(ctx, "reversal posting write failed", "error", err)
		s.freezeBatchFranchises(batch)
	}
}

// revertLedger posts the equal-and-opposite counterpart of batch to the
// in-memory ledger, restoring the entries it touched. Returns nil if the
// reversal could not land, in which case the affected franchises are frozen.
func (s *TransactionService) revertLedger(ctx context.Context, batch []ledger.Posting) []ledger.Posting {
	reversal := make([]ledger.Posting, 0, len(batch))
	for _, p := range batch {
		r := p
		r.ID = p.ID + "/reversal"
		r.Amount = -p.Amount
		r.Memo = "reversal"
		r.RecordedAt = s.now()
		reversal = append(reversal, r)
	}
	if _, err := s.ledger.Apply(reversal, s.currentSeason); err != nil {
		s.logger.ErrorContext(ctx, "ledger reversal failed", "error", err)
		s.freezeBatchFranchises(batch)
		return nil
	}
	return reversal
}

// freezeBatchFranchises marks every franchise in the batch frozen. Callers
// already hold s.mu.
func (s *TransactionService) freezeBatchFranchises(batch []ledger.Posting) {
	for _, p := range batch {
		if _, ok := s.frozen[p.FranchiseID]; ok {
			continue
		}
		s.frozen[p.FranchiseID] = struct{}{}
		s.logger.Warn("franchise frozen", "franchise_id", p.FranchiseID)
	}
}

func (s *TransactionService) liveContractOwnedBy(ctx context.Context, playerID, franchiseID string) (contract.Contract, error) {
	if playerID == "" {
		return contract.Contract{}, fmt.Errorf("%w: player id is required", ErrInvalidInput)
	}
	con, ok, err := s.contracts.GetLiveByPlayer(ctx, playerID)
	if err != nil {
		return contract.Contract{}, fmt.Errorf("lookup live contract: %w", err)
	}
	if !ok {
		return contract.Contract{}, fmt.Errorf("%w: no live contract for player %s", ErrNotFound, playerID)
	}
	if con.FranchiseID != franchiseID {
		return contract.Contract{}, fmt.Errorf("%w: contract %s belongs to franchise %s", ErrInvalidInput, con.ID, con.FranchiseID)
	}
	return con, nil
}

func (s *TransactionService) checkFrozen(franchiseID string) error {
	if _, ok := s.frozen[franchiseID]; ok {
		return fmt.Errorf("%w: franchise %s", ErrLedgerFrozen, franchiseID)
	}
	return nil
}

func (s *TransactionService) checkFranchiseExists(ctx context.Context, franchiseID string) error {
	_, ok, err := s.franchises.GetByID(ctx, franchiseID)
	if err != nil {
		return fmt.Errorf("lookup franchise: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: franchise %s", ErrNotFound, franchiseID)
	}
	return nil
}

func (s *TransactionService) appendHistory(ctx context.Context, con contract.Contract, event string, season int) error {
	row := contract.HistoryRow{
		ContractID:  con.ID,
		PlayerID:    con.PlayerID,
		FranchiseID: con.FranchiseID,
		State:       con.State,
		Event:       event,
		Season:      season,
		RecordedAt:  s.now(),
	}
	if err := s.contracts.AppendHistory(ctx, row); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}
