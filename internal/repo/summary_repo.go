package repo

import (
	"context"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/xxxsen/membot/internal/model"
	"github.com/xxxsen/membot/internal/pkg/dbutil"
	appErr "github.com/xxxsen/membot/internal/pkg/errors"
)

var summaryFields = []string{"seq", "text", "covers_up_to", "user_turns", "ctime"}

type SummaryRepo struct {
	db *sqlx.DB
}

func NewSummaryRepo(db *sqlx.DB) *SummaryRepo {
	return &SummaryRepo{db: db}
}

// Append stores a summary and returns its sequence number, also set on
// summary.Seq.
func (r *SummaryRepo) Append(ctx context.Context, summary *model.Summary) (int64, error) {
	if err := insertSummary(ctx, r.db, summary); err != nil {
		return 0, err
	}
	return summary.Seq, nil
}

// Prune deletes every summary older than the keep most recent ones in a
// single statement. keep <= 0 keeps everything.
func (r *SummaryRepo) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()
	n, err := pruneSummaries(ctx, tx, keep)
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// AppendAndPrune stores a summary and trims the table to the keep most
// recent entries in the same transaction.
func (r *SummaryRepo) AppendAndPrune(ctx context.Context, summary *model.Summary, keep int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertSummary(ctx, tx, summary); err != nil {
		return err
	}
	if keep > 0 {
		if _, err := pruneSummaries(ctx, tx, keep); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertSummary(ctx context.Context, ext sqlx.ExtContext, summary *model.Summary) error {
	data := map[string]interface{}{
		"text":         summary.Text,
		"covers_up_to": summary.CoversUpTo,
		"user_turns":   summary.UserTurns,
		"ctime":        summary.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("summaries", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(ext.DriverName(), sqlStr+" RETURNING seq", args)
	return ext.QueryRowxContext(ctx, sqlStr, args...).Scan(&summary.Seq)
}

func pruneSummaries(ctx context.Context, ext sqlx.ExtContext, keep int) (int64, error) {
	pruneSQL := ext.Rebind(`DELETE FROM summaries WHERE seq NOT IN (
		SELECT seq FROM summaries ORDER BY seq DESC LIMIT ?
	)`)
	res, err := ext.ExecContext(ctx, pruneSQL, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// LastN returns up to n most recent summaries, oldest first.
func (r *SummaryRepo) LastN(ctx context.Context, n int) ([]model.Summary, error) {
	if n <= 0 {
		return []model.Summary{}, nil
	}
	where := map[string]interface{}{
		"_orderby": "seq desc",
		"_limit":   []uint{0, uint(n)},
	}
	sqlStr, args, err := builder.BuildSelect("summaries", where, summaryFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(r.db.DriverName(), sqlStr, args)
	var res []model.Summary
	if err := r.db.SelectContext(ctx, &res, sqlStr, args...); err != nil {
		return nil, err
	}
	for i, j := 0, len(res)-1; i < j; i, j = i+1, j-1 {
		res[i], res[j] = res[j], res[i]
	}
	if res == nil {
		res = []model.Summary{}
	}
	return res, nil
}

func (r *SummaryRepo) Latest(ctx context.Context) (*model.Summary, error) {
	items, err := r.LastN(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, appErr.ErrNotFound
	}
	return &items[0], nil
}

func (r *SummaryRepo) Count(ctx context.Context) (int64, error) {
	var cnt int64
	if err := r.db.GetContext(ctx, &cnt, "SELECT COUNT(*) FROM summaries"); err != nil {
		return 0, err
	}
	return cnt, nil
}
