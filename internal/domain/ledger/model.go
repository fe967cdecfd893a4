package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCapExceeded = errors.New("current-season cap exceeded")
	ErrCorrupted   = errors.New("ledger corrupted")
)

// PostingKind selects the bucket a posting accumulates into.
type PostingKind string

const (
	PostingObligation  PostingKind = "obligation"
	PostingDeadCap     PostingKind = "dead_cap"
	PostingCapTradeIn  PostingKind = "cap_trade_in"
	PostingCapTradeOut PostingKind = "cap_trade_out"
)

// Posting is one append-only ledger mutation. Amounts are signed: history is
// never edited in place, so undoing an earlier posting means appending a new
// one with the opposite sign.
type Posting struct {
	ID          string
	FranchiseID string
	Season      int
	Kind        PostingKind
	Amount      int64
	ContractID  string
	Memo        string
	RecordedAt  time.Time
}

// Entry is the accumulated cap picture for one (franchise, season) pair.
type Entry struct {
	FranchiseID       string
	Season            int
	BaseCap           int64
	ActiveObligations int64
	DeadCap           int64
	TradedIn          int64
	TradedOut         int64
}

func (e Entry) AvailableCap() int64 {
	return e.BaseCap - e.ActiveObligations - e.DeadCap + e.TradedIn - e.TradedOut
}

// Warning flags a committed posting batch that drove a future season
// negative. Future-season overages are legal but reported.
type Warning struct {
	FranchiseID string
	Season      int
	Available   int64
}

// Discrepancy is a mismatch between the incrementally maintained entries and
// the entries rebuilt from the posting log, or between the ledger and an
// external snapshot.
type Discrepancy struct {
	FranchiseID string
	Season      int
	Field       string
	Got         int64
	Want        int64
}

// Repository persists the posting log for durability; the in-memory Ledger
// stays the canonical runtime state.
type Repository interface {
	SavePostings(ctx context.Context, postings []Posting) error
	ListPostings(ctx context.Context) ([]Posting, error)
}
