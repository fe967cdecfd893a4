package contract

import (
	"context"
	"time"
)

// HistoryRow is one immutable lifecycle record. One row is appended per state
// change so the roster and cap picture can be reconstructed for any date.
type HistoryRow struct {
	ContractID  string
	PlayerID    string
	FranchiseID string
	State       State
	Event       string
	Season      int
	RecordedAt  time.Time
}

// Repository describes contract persistence needs from use cases.
type Repository interface {
	GetByID(ctx context.Context, contractID string) (Contract, bool, error)
	GetLiveByPlayer(ctx context.Context, playerID string) (Contract, bool, error)
	ListLive(ctx context.Context) ([]Contract, error)
	ListByFranchise(ctx context.Context, franchiseID string) ([]Contract, error)
	Save(ctx context.Context, c Contract) error
	Update(ctx context.Context, c Contract) error
	AppendHistory(ctx context.Context, row HistoryRow) error
	HistoryByPlayer(ctx context.Context, playerID string) ([]HistoryRow, error)
}
