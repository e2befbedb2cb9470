package repo

import (
	"context"
	"strings"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/xxxsen/membot/internal/model"
	"github.com/xxxsen/membot/internal/pkg/dbutil"
	appErr "github.com/xxxsen/membot/internal/pkg/errors"
)

var turnFields = []string{"seq", "user_text", "assistant_text", "has_user_text", "ctime"}

type TurnRepo struct {
	db *sqlx.DB
}

func NewTurnRepo(db *sqlx.DB) *TurnRepo {
	return &TurnRepo{db: db}
}

// Append persists a turn and returns its sequence number, also stored in
// turn.Seq. HasUserText is derived from the user text so counts never
// depend on the caller.
func (r *TurnRepo) Append(ctx context.Context, turn *model.Turn) (int64, error) {
	turn.HasUserText = strings.TrimSpace(turn.UserText) != ""
	data := map[string]interface{}{
		"user_text":      turn.UserText,
		"assistant_text": turn.AssistantText,
		"has_user_text":  turn.HasUserText,
		"ctime":          turn.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("turns", []map[string]interface{}{data})
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(r.db.DriverName(), sqlStr+" RETURNING seq", args)
	if err := r.db.QueryRowxContext(ctx, sqlStr, args...).Scan(&turn.Seq); err != nil {
		return 0, err
	}
	return turn.Seq, nil
}

// LastN returns up to n most recent turns, oldest first.
func (r *TurnRepo) LastN(ctx context.Context, n int) ([]model.Turn, error) {
	if n <= 0 {
		return []model.Turn{}, nil
	}
	where := map[string]interface{}{
		"_orderby": "seq desc",
		"_limit":   []uint{0, uint(n)},
	}
	sqlStr, args, err := builder.BuildSelect("turns", where, turnFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(r.db.DriverName(), sqlStr, args)
	var res []model.Turn
	if err := r.db.SelectContext(ctx, &res, sqlStr, args...); err != nil {
		return nil, err
	}
	for i, j := 0, len(res)-1; i < j; i, j = i+1, j-1 {
		res[i], res[j] = res[j], res[i]
	}
	if res == nil {
		res = []model.Turn{}
	}
	return res, nil
}

// Latest returns the most recent turn or ErrNotFound on an empty store.
func (r *TurnRepo) Latest(ctx context.Context) (*model.Turn, error) {
	items, err := r.LastN(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, appErr.ErrNotFound
	}
	return &items[0], nil
}

func (r *TurnRepo) Count(ctx context.Context) (int64, error) {
	var cnt int64
	if err := r.db.GetContext(ctx, &cnt, "SELECT COUNT(*) FROM turns"); err != nil {
		return 0, err
	}
	return cnt, nil
}

// AllNonEmptyUserTurns returns every turn with non-blank user text, oldest
// first.
func (r *TurnRepo) AllNonEmptyUserTurns(ctx context.Context) ([]model.Turn, error) {
	where := map[string]interface{}{
		"has_user_text": true,
		"_orderby":      "seq asc",
	}
	sqlStr, args, err := builder.BuildSelect("turns", where, turnFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(r.db.DriverName(), sqlStr, args)
	res := []model.Turn{}
	if err := r.db.SelectContext(ctx, &res, sqlStr, args...); err != nil {
		return nil, err
	}
	return res, nil
}

// CountNonEmptyUserTurns counts turns whose user text was non-blank.
func (r *TurnRepo) CountNonEmptyUserTurns(ctx context.Context) (int64, error) {
	sqlStr, args, err := builder.BuildSelect("turns", map[string]interface{}{"has_user_text": true}, []string{"COUNT(*)"})
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(r.db.DriverName(), sqlStr, args)
	var cnt int64
	if err := r.db.GetContext(ctx, &cnt, sqlStr, args...); err != nil {
		return 0, err
	}
	return cnt, nil
}
