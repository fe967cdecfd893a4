package postgres

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/dynastyops/capledger/internal/domain/contract"
	"github.com/dynastyops/capledger/internal/domain/deadcap"
	"github.com/dynastyops/capledger/internal/domain/franchise"
	"github.com/dynastyops/capledger/internal/domain/ledger"
)

type franchiseTableModel struct {
	ID           int64     `db:"id"`
	PublicID     string    `db:"public_id"`
	Name         string    `db:"name"`
	Owner        string    `db:"owner"`
	JoinedSeason int       `db:"joined_season"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (m franchiseTableModel) toDomain() franchise.Franchise {
	return franchise.Franchise{
		ID:           m.PublicID,
		Name:         m.Name,
		Owner:        m.Owner,
		JoinedSeason: m.JoinedSeason,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

type contractTableModel struct {
	ID                   int64     `db:"id"`
	PublicID             string    `db:"public_id"`
	PlayerID             string    `db:"player_id"`
	FranchiseID          string    `db:"franchise_id"`
	Kind                 string    `db:"kind"`
	TotalValue           int64     `db:"total_value"`
	Duration             int       `db:"duration"`
	StartSeason          int       `db:"start_season"`
	Payments             []byte    `db:"payments"`
	Guaranteed           []byte    `db:"guaranteed"`
	State                string    `db:"state"`
	OptionDeadlineSeason int       `db:"option_deadline_season"`
	CreatedAt            time.Time `db:"created_at"`
	UpdatedAt            time.Time `db:"updated_at"`
}

func (m contractTableModel) toDomain() (contract.Contract, error) {
	var payments []int64
	if err := sonic.Unmarshal(m.Payments, &payments); err != nil {
		return contract.Contract{}, fmt.Errorf("decode payments for contract %s: %w", m.PublicID, err)
	}
	var guaranteed []bool
	if err := sonic.Unmarshal(m.Guaranteed, &guaranteed); err != nil {
		return contract.Contract{}, fmt.Errorf("decode guarantees for contract %s: %w", m.PublicID, err)
	}

	return contract.Contract{
		ID:                   m.PublicID,
		PlayerID:             m.PlayerID,
		FranchiseID:          m.FranchiseID,
		Kind:                 contract.Kind(m.Kind),
		TotalValue:           m.TotalValue,
		Duration:             m.Duration,
		StartSeason:          m.StartSeason,
		Payments:             payments,
		Guaranteed:           guaranteed,
		State:                contract.State(m.State),
		OptionDeadlineSeason: m.OptionDeadlineSeason,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}, nil
}

func encodeContract(c contract.Contract) (payments, guaranteed []byte, err error) {
	payments, err = sonic.Marshal(c.Payments)
	if err != nil {
		return nil, nil, fmt.Errorf("encode payments: %w", err)
	}
	guaranteed, err = sonic.Marshal(c.Guaranteed)
	if err != nil {
		return nil, nil, fmt.Errorf("encode guarantees: %w", err)
	}
	return payments, guaranteed, nil
}

type historyTableModel struct {
	ID          int64     `db:"id"`
	ContractID  string    `db:"contract_id"`
	PlayerID    string    `db:"player_id"`
	FranchiseID string    `db:"franchise_id"`
	State       string    `db:"state"`
	Event       string    `db:"event"`
	Season      int       `db:"season"`
	RecordedAt  time.Time `db:"recorded_at"`
}

func (m historyTableModel) toDomain() contract.HistoryRow {
	return contract.HistoryRow{
		ContractID:  m.ContractID,
		PlayerID:    m.PlayerID,
		FranchiseID: m.FranchiseID,
		State:       contract.State(m.State),
		Event:       m.Event,
		Season:      m.Season,
		RecordedAt:  m.RecordedAt,
	}
}

type obligationTableModel struct {
	ID          int64     `db:"id"`
	PublicID    string    `db:"public_id"`
	ContractID  string    `db:"contract_id"`
	PlayerID    string    `db:"player_id"`
	FranchiseID string    `db:"franchise_id"`
	CutSeason   int       `db:"cut_season"`
	Liabilities []byte    `db:"liabilities"`
	Suppressed  bool      `db:"suppressed"`
	CreatedAt   time.Time `db:"created_at"`
}

func (m obligationTableModel) toDomain() (deadcap.Obligation, error) {
	var liabilities map[int]int64
	if err := sonic.Unmarshal(m.Liabilities, &liabilities); err != nil {
		return deadcap.Obligation{}, fmt.Errorf("decode liabilities for obligation %s: %w", m.PublicID, err)
	}

	return deadcap.Obligation{
		ID:          m.PublicID,
		ContractID:  m.ContractID,
		PlayerID:    m.PlayerID,
		FranchiseID: m.FranchiseID,
		CutSeason:   m.CutSeason,
		Liabilities: liabilities,
		Suppressed:  m.Suppressed,
		CreatedAt:   m.CreatedAt,
	}, nil
}

type postingTableModel struct {
	ID          int64     `db:"id"`
	PublicID    string    `db:"public_id"`
	FranchiseID string    `db:"franchise_id"`
	Season      int       `db:"season"`
	Kind        string    `db:"kind"`
	Amount      int64     `db:"amount"`
	ContractID  string    `db:"contract_id"`
	Memo        string    `db:"memo"`
	RecordedAt  time.Time `db:"recorded_at"`
}

func (m postingTableModel) toDomain() ledger.Posting {
	return ledger.Posting{
		ID:          m.PublicID,
		FranchiseID: m.FranchiseID,
		Season:      m.Season,
		Kind:        ledger.PostingKind(m.Kind),
		Amount:      m.Amount,
		ContractID:  m.ContractID,
		Memo:        m.Memo,
		RecordedAt:  m.RecordedAt,
	}
}
