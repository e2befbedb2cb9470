package repo_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/membot/internal/model"
	appErr "github.com/xxxsen/membot/internal/pkg/errors"
	"github.com/xxxsen/membot/internal/repo"
	"github.com/xxxsen/membot/internal/testutil"
)

func TestSummaryRepoAppendAndPrune(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()
	summaries := repo.NewSummaryRepo(db)

	_, err := summaries.Latest(ctx)
	require.ErrorIs(t, err, appErr.ErrNotFound)

	for i := 1; i <= 15; i++ {
		item := &model.Summary{Text: fmt.Sprintf("summary %d", i), CoversUpTo: int64(i * 10), Ctime: int64(i)}
		require.NoError(t, summaries.AppendAndPrune(ctx, item, 10))
		require.NotZero(t, item.Seq)
	}

	cnt, err := summaries.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(10), cnt)

	items, err := summaries.LastN(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 10)
	require.Equal(t, "summary 6", items[0].Text)
	require.Equal(t, "summary 15", items[9].Text)

	latest, err := summaries.Latest(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(150), latest.CoversUpTo)
}

func TestSummaryRepoNoPruneWhenKeepIsZero(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()
	summaries := repo.NewSummaryRepo(db)

	for i := 0; i < 3; i++ {
		require.NoError(t, summaries.AppendAndPrune(ctx, &model.Summary{Text: "s", CoversUpTo: int64(i)}, 0))
	}
	cnt, err := summaries.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), cnt)
}

func TestSummaryRepoAppendThenPrune(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()
	summaries := repo.NewSummaryRepo(db)

	var last int64
	for i := 1; i <= 15; i++ {
		seq, err := summaries.Append(ctx, &model.Summary{Text: fmt.Sprintf("s%d", i), CoversUpTo: int64(i), UserTurns: int64(i * 10)})
		require.NoError(t, err)
		require.Greater(t, seq, last)
		last = seq
	}

	removed, err := summaries.Prune(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, int64(5), removed)

	items, err := summaries.LastN(ctx, 20)
	require.NoError(t, err)
	require.Len(t, items, 10)
	for i, item := range items {
		require.Equal(t, fmt.Sprintf("s%d", i+6), item.Text)
		require.Equal(t, int64((i+6)*10), item.UserTurns)
	}

	removed, err = summaries.Prune(ctx, 0)
	require.NoError(t, err)
	require.Zero(t, removed)
}
