package ledger

import (
	"fmt"
	"sort"
	"sync"
)

type entryKey struct {
	franchiseID string
	season      int
}

// Ledger is the per-franchise, per-season cap accumulator. Every mutation is
// an append-only posting; entries are maintained incrementally and only
// rebuilt from the log during audit reconciliation.
type Ledger struct {
	mu       sync.RWMutex
	baseCap  int64
	postings []Posting
	entries  map[entryKey]Entry
}

func New(baseCap int64) *Ledger {
	return &Ledger{
		baseCap: baseCap,
		entries: make(map[entryKey]Entry),
	}
}

func (l *Ledger) BaseCap() int64 {
	return l.baseCap
}

// Apply commits a batch of postings as a single atomic unit. The whole batch
// is checked against the current-season floor before anything is written: if
// any franchise would end the current season with negative available cap the
// batch is rejected and the ledger is untouched. Future seasons may go
// negative; those are committed and returned as warnings.
func (l *Ledger) Apply(batch []Posting, currentSeason int) ([]Warning, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	staged := make(map[entryKey]Entry, len(batch))
	for _, p := range batch {
		if p.FranchiseID == "" {
			return nil, fmt.Errorf("posting franchise id is required")
		}
		key := entryKey{franchiseID: p.FranchiseID, season: p.Season}
		entry, ok := staged[key]
		if !ok {
			entry = l.entryLocked(key)
		}
		switch p.Kind {
		case PostingObligation:
			entry.ActiveObligations += p.Amount
		case PostingDeadCap:
			entry.DeadCap += p.Amount
		case PostingCapTradeIn:
			entry.TradedIn += p.Amount
		case PostingCapTradeOut:
			entry.TradedOut += p.Amount
		default:
			return nil, fmt.Errorf("unknown posting kind: %s", p.Kind)
		}
		staged[key] = entry
	}

	var warnings []Warning
	for key, entry := range staged {
		available := entry.AvailableCap()
		if available >= 0 {
			continue
		}
		if key.season == currentSeason {
			return nil, fmt.Errorf("%w: franchise=%s season=%d available=%d", ErrCapExceeded, key.franchiseID, key.season, available)
		}
		warnings = append(warnings, Warning{
			FranchiseID: key.franchiseID,
			Season:      key.season,
			Available:   available,
		})
	}
	sort.Slice(warnings, func(i, j int) bool {
		if warnings[i].FranchiseID != warnings[j].FranchiseID {
			return warnings[i].FranchiseID < warnings[j].FranchiseID
		}
		return warnings[i].Season < warnings[j].Season
	})

	l.postings = append(l.postings, batch...)
	for key, entry := range staged {
		l.entries[key] = entry
	}

	return warnings, nil
}

// RecordObligation posts an active-contract obligation for one season. The
// cap floor applies to currentSeason only; an overage in a later season
// commits and comes back as a warning, same as Apply.
func (l *Ledger) RecordObligation(franchiseID string, season, currentSeason int, amount int64, p Posting) ([]Warning, error) {
	p.FranchiseID = franchiseID
	p.Season = season
	p.Amount = amount
	p.Kind = PostingObligation
	return l.Apply([]Posting{p}, currentSeason)
}

// RecordDeadCap posts a dead-cap liability for one season.
func (l *Ledger) RecordDeadCap(franchiseID string, season, currentSeason int, amount int64, p Posting) ([]Warning, error) {
	p.FranchiseID = franchiseID
	p.Season = season
	p.Amount = amount
	p.Kind = PostingDeadCap
	return l.Apply([]Posting{p}, currentSeason)
}

// CapTradePostings builds the paired out/in postings for a cap-space trade.
func CapTradePostings(fromFranchiseID, toFranchiseID string, season int, amount int64, template Posting) []Posting {
	out := template
	out.FranchiseID = fromFranchiseID
	out.Season = season
	out.Kind = PostingCapTradeOut
	out.Amount = amount

	in := template
	in.FranchiseID = toFranchiseID
	in.Season = season
	in.Kind = PostingCapTradeIn
	in.Amount = amount

	return []Posting{out, in}
}

func (l *Ledger) AvailableCap(franchiseID string, season int) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.entryLocked(entryKey{franchiseID: franchiseID, season: season}).AvailableCap()
}

func (l *Ledger) Entry(franchiseID string, season int) Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.entryLocked(entryKey{franchiseID: franchiseID, season: season})
}

// Postings returns a copy of the full append-only log.
func (l *Ledger) Postings() []Posting {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Posting(nil), l.postings...)
}

// Restore replays a previously persisted posting log into an empty ledger.
func (l *Ledger) Restore(postings []Posting) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.postings) != 0 {
		return fmt.Errorf("restore requires an empty ledger")
	}
	rebuilt, err := l.rebuildLocked(postings)
	if err != nil {
		return err
	}
	l.postings = append([]Posting(nil), postings...)
	l.entries = rebuilt
	return nil
}

// Reconcile recomputes every entry from the posting log and compares it with
// the incrementally maintained state. Any mismatch means the ledger has been
// corrupted and the affected franchise must be frozen.
func (l *Ledger) Reconcile() ([]Discrepancy, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rebuilt, err := l.rebuildLocked(l.postings)
	if err != nil {
		return nil, err
	}

	var out []Discrepancy
	keys := make(map[entryKey]struct{}, len(l.entries)+len(rebuilt))
	for key := range l.entries {
		keys[key] = struct{}{}
	}
	for key := range rebuilt {
		keys[key] = struct{}{}
	}

	for key := range keys {
		got := l.entries[key]
		want := rebuilt[key]
		out = append(out, compareEntries(key, got, want)...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FranchiseID != out[j].FranchiseID {
			return out[i].FranchiseID < out[j].FranchiseID
		}
		if out[i].Season != out[j].Season {
			return out[i].Season < out[j].Season
		}
		return out[i].Field < out[j].Field
	})

	return out, nil
}

func (l *Ledger) entryLocked(key entryKey) Entry {
	if entry, ok := l.entries[key]; ok {
		return entry
	}
	return Entry{
		FranchiseID: key.franchiseID,
		Season:      key.season,
		BaseCap:     l.baseCap,
	}
}

func (l *Ledger) rebuildLocked(postings []Posting) (map[entryKey]Entry, error) {
	out := make(map[entryKey]Entry)
	for _, p := range postings {
		key := entryKey{franchiseID: p.FranchiseID, season: p.Season}
		entry, ok := out[key]
		if !ok {
			entry = Entry{
				FranchiseID: key.franchiseID,
				Season:      key.season,
				BaseCap:     l.baseCap,
			}
		}
		switch p.Kind {
		case PostingObligation:
			entry.ActiveObligations += p.Amount
		case PostingDeadCap:
			entry.DeadCap += p.Amount
		case PostingCapTradeIn:
			entry.TradedIn += p.Amount
		case PostingCapTradeOut:
			entry.TradedOut += p.Amount
		default:
			return nil, fmt.Errorf("unknown posting kind in log: %s", p.Kind)
		}
		out[key] = entry
	}
	return out, nil
}

func compareEntries(key entryKey, got, want Entry) []Discrepancy {
	fields := []struct {
		name      string
		got, want int64
	}{
		{"active_obligations", got.ActiveObligations, want.ActiveObligations},
		{"dead_cap", got.DeadCap, want.DeadCap},
		{"traded_in", got.TradedIn, want.TradedIn},
		{"traded_out", got.TradedOut, want.TradedOut},
	}

	var out []Discrepancy
	for _, f := range fields {
		if f.got == f.want {
			continue
		}
		out = append(out, Discrepancy{
			FranchiseID: key.franchiseID,
			Season:      key.season,
			Field:       f.name,
			Got:         f.got,
			Want:        f.want,
		})
	}
	return out
}
