package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/dynastyops/capledger/internal/domain/ledger"
	qb "github.com/dynastyops/capledger/internal/platform/querybuilder"
)

type PostingRepository struct {
	db *sqlx.DB
}

func NewPostingRepository(db *sqlx.DB) *PostingRepository {
	return &PostingRepository{db: db}
}

// SavePostings writes a batch inside one transaction so the posting log is
// never partially persisted.
func (r *PostingRepository) SavePostings(ctx context.Context, postings []ledger.Posting) error {
	if len(postings) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin posting tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range postings {
		query, args, err := qb.InsertInto("ledger_postings").
			Columns("public_id", "franchise_id", "season", "kind", "amount", "contract_id", "memo", "recorded_at").
			Values(p.ID, p.FranchiseID, p.Season, string(p.Kind), p.Amount, p.ContractID, p.Memo, p.RecordedAt).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build insert posting query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert posting: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit posting tx: %w", err)
	}

	return nil
}

func (r *PostingRepository) ListPostings(ctx context.Context) ([]ledger.Posting, error) {
	query, args, err := qb.Select("*").From("ledger_postings").
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list postings query: %w", err)
	}

	var rows []postingTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select postings: %w", err)
	}

	out := make([]ledger.Posting, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}

	return out, nil
}
