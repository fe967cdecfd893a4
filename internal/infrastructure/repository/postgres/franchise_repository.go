package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dynastyops/capledger/internal/domain/franchise"
	qb "github.com/dynastyops/capledger/internal/platform/querybuilder"
)

type FranchiseRepository struct {
	db *sqlx.DB
}

func NewFranchiseRepository(db *sqlx.DB) *FranchiseRepository {
	return &FranchiseRepository{db: db}
}

func (r *FranchiseRepository) List(ctx context.Context) ([]franchise.Franchise, error) {
	query, args, err := qb.Select("*").From("franchises").
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list franchises query: %w", err)
	}

	var rows []franchiseTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select franchises: %w", err)
	}

	out := make([]franchise.Franchise, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}

	return out, nil
}

func (r *FranchiseRepository) GetByID(ctx context.Context, franchiseID string) (franchise.Franchise, bool, error) {
	query, args, err := qb.Select("*").From("franchises").
		Where(qb.Eq("public_id", franchiseID)).
		ToSQL()
	if err != nil {
		return franchise.Franchise{}, false, fmt.Errorf("build get franchise query: %w", err)
	}

	var row franchiseTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return franchise.Franchise{}, false, nil
		}
		return franchise.Franchise{}, false, fmt.Errorf("get franchise by id: %w", err)
	}

	return row.toDomain(), true, nil
}

func (r *FranchiseRepository) UpdateOwner(ctx context.Context, franchiseID, owner string) error {
	query, args, err := qb.Update("franchises").
		Set("owner", owner).
		Set("updated_at", time.Now().UTC()).
		Where(qb.Eq("public_id", franchiseID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update franchise owner query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update franchise owner: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update franchise owner rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("franchise %s not found", franchiseID)
	}

	return nil
}
