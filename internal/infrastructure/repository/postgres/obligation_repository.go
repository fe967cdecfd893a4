package postgres

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"

	"github.com/dynastyops/capledger/internal/domain/deadcap"
	qb "github.com/dynastyops/capledger/internal/platform/querybuilder"
)

type ObligationRepository struct {
	db *sqlx.DB
}

func NewObligationRepository(db *sqlx.DB) *ObligationRepository {
	return &ObligationRepository{db: db}
}

func (r *ObligationRepository) Save(ctx context.Context, o deadcap.Obligation) error {
	liabilities, err := sonic.Marshal(o.Liabilities)
	if err != nil {
		return fmt.Errorf("encode liabilities: %w", err)
	}

	query, args, err := qb.InsertInto("dead_cap_obligations").
		Columns("public_id", "contract_id", "player_id", "franchise_id", "cut_season", "liabilities", "suppressed", "created_at").
		Values(o.ID, o.ContractID, o.PlayerID, o.FranchiseID, o.CutSeason, liabilities, o.Suppressed, o.CreatedAt).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build insert obligation query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert obligation: %w", err)
	}

	return nil
}

func (r *ObligationRepository) Suppress(ctx context.Context, obligationID string) error {
	query, args, err := qb.Update("dead_cap_obligations").
		Set("suppressed", true).
		Where(qb.Eq("public_id", obligationID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build suppress obligation query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("suppress obligation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("suppress obligation rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("obligation %s not found", obligationID)
	}

	return nil
}

func (r *ObligationRepository) ListByFranchise(ctx context.Context, franchiseID string) ([]deadcap.Obligation, error) {
	query, args, err := qb.Select("*").From("dead_cap_obligations").
		Where(qb.Eq("franchise_id", franchiseID)).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list obligations query: %w", err)
	}

	return r.selectObligations(ctx, query, args)
}

func (r *ObligationRepository) List(ctx context.Context) ([]deadcap.Obligation, error) {
	query, args, err := qb.Select("*").From("dead_cap_obligations").
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list all obligations query: %w", err)
	}

	return r.selectObligations(ctx, query, args)
}

func (r *ObligationRepository) selectObligations(ctx context.Context, query string, args []any) ([]deadcap.Obligation, error) {
	var rows []obligationTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select obligations: %w", err)
	}

	out := make([]deadcap.Obligation, 0, len(rows))
	for _, row := range rows {
		o, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}

	return out, nil
}
