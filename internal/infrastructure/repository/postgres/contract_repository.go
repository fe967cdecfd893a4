package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/dynastyops/capledger/internal/domain/contract"
	qb "github.com/dynastyops/capledger/internal/platform/querybuilder"
)

type ContractRepository struct {
	db *sqlx.DB
}

func NewContractRepository(db *sqlx.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

func (r *ContractRepository) GetByID(ctx context.Context, contractID string) (contract.Contract, bool, error) {
	query, args, err := qb.Select("*").From("contracts").
		Where(qb.Eq("public_id", contractID)).
		ToSQL()
	if err != nil {
		return contract.Contract{}, false, fmt.Errorf("build get contract query: %w", err)
	}

	var row contractTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return contract.Contract{}, false, nil
		}
		return contract.Contract{}, false, fmt.Errorf("get contract by id: %w", err)
	}

	out, err := row.toDomain()
	if err != nil {
		return contract.Contract{}, false, err
	}
	return out, true, nil
}

func (r *ContractRepository) GetLiveByPlayer(ctx context.Context, playerID string) (contract.Contract, bool, error) {
	query, args, err := qb.Select("*").From("contracts").
		Where(
			qb.Eq("player_id", playerID),
			qb.Expr("state IN (?, ?)", string(contract.StateActive), string(contract.StateConverted)),
		).
		OrderBy("id DESC").
		Limit(1).
		ToSQL()
	if err != nil {
		return contract.Contract{}, false, fmt.Errorf("build get live contract query: %w", err)
	}

	var row contractTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return contract.Contract{}, false, nil
		}
		return contract.Contract{}, false, fmt.Errorf("get live contract by player: %w", err)
	}

	out, err := row.toDomain()
	if err != nil {
		return contract.Contract{}, false, err
	}
	return out, true, nil
}

func (r *ContractRepository) ListLive(ctx context.Context) ([]contract.Contract, error) {
	query, args, err := qb.Select("*").From("contracts").
		Where(qb.Expr("state IN (?, ?)", string(contract.StateActive), string(contract.StateConverted))).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list live contracts query: %w", err)
	}

	return r.selectContracts(ctx, query, args)
}

func (r *ContractRepository) ListByFranchise(ctx context.Context, franchiseID string) ([]contract.Contract, error) {
	query, args, err := qb.Select("*").From("contracts").
		Where(qb.Eq("franchise_id", franchiseID)).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list contracts by franchise query: %w", err)
	}

	return r.selectContracts(ctx, query, args)
}

func (r *ContractRepository) Save(ctx context.Context, c contract.Contract) error {
	payments, guaranteed, err := encodeContract(c)
	if err != nil {
		return err
	}

	query, args, err := qb.InsertInto("contracts").
		Columns("public_id", "player_id", "franchise_id", "kind", "total_value", "duration",
			"start_season", "payments", "guaranteed", "state", "option_deadline_season",
			"created_at", "updated_at").
		Values(c.ID, c.PlayerID, c.FranchiseID, string(c.Kind), c.TotalValue, c.Duration,
			c.StartSeason, payments, guaranteed, string(c.State), c.OptionDeadlineSeason,
			c.CreatedAt, c.UpdatedAt).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build insert contract query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert contract: %w", err)
	}

	return nil
}

func (r *ContractRepository) Update(ctx context.Context, c contract.Contract) error {
	payments, guaranteed, err := encodeContract(c)
	if err != nil {
		return err
	}

	query, args, err := qb.Update("contracts").
		Set("franchise_id", c.FranchiseID).
		Set("total_value", c.TotalValue).
		Set("duration", c.Duration).
		Set("payments", payments).
		Set("guaranteed", guaranteed).
		Set("state", string(c.State)).
		Set("updated_at", c.UpdatedAt).
		Where(qb.Eq("public_id", c.ID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update contract query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update contract: %w", err)
	}

	return nil
}

func (r *ContractRepository) AppendHistory(ctx context.Context, row contract.HistoryRow) error {
	query, args, err := qb.InsertInto("contract_events").
		Columns("contract_id", "player_id", "franchise_id", "state", "event", "season", "recorded_at").
		Values(row.ContractID, row.PlayerID, row.FranchiseID, string(row.State), row.Event, row.Season, row.RecordedAt).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build insert history query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert contract history: %w", err)
	}

	return nil
}

func (r *ContractRepository) HistoryByPlayer(ctx context.Context, playerID string) ([]contract.HistoryRow, error) {
	query, args, err := qb.Select("*").From("contract_events").
		Where(qb.Eq("player_id", playerID)).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build history by player query: %w", err)
	}

	var rows []historyTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select contract history: %w", err)
	}

	out := make([]contract.HistoryRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}

	return out, nil
}

func (r *ContractRepository) selectContracts(ctx context.Context, query string, args []any) ([]contract.Contract, error) {
	var rows []contractTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select contracts: %w", err)
	}

	out := make([]contract.Contract, 0, len(rows))
	for _, row := range rows {
		c, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	return out, nil
}
