package repo_test

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/membot/internal/model"
	"github.com/xxxsen/membot/internal/repo"
	"github.com/xxxsen/membot/internal/testutil"
)

func exerciseEmbeddingCacheRepo(t *testing.T, db *sqlx.DB) {
	ctx := context.Background()
	cache := repo.NewEmbeddingCacheRepo(db)

	_, ok, err := cache.Get(ctx, "m1", "fp1")
	require.NoError(t, err)
	require.False(t, ok)

	item := &model.CorpusEmbeddings{
		ModelName:   "m1",
		Fingerprint: "fp1",
		Lines: []model.KnowledgeLine{
			{Text: "first", Embedding: []float32{1, 0, 0.5}},
			{Text: "second", Embedding: []float32{0, 1, 0.25}},
		},
		Ctime: 100,
	}
	require.NoError(t, cache.Save(ctx, item))
	// saving again replaces rather than duplicates
	require.NoError(t, cache.Save(ctx, item))

	lines, ok, err := cache.Get(ctx, "m1", "fp1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, item.Lines, lines)

	_, ok, err = cache.Get(ctx, "m2", "fp1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, cache.Save(ctx, &model.CorpusEmbeddings{
		ModelName: "m1", Fingerprint: "fp2",
		Lines: []model.KnowledgeLine{{Text: "x", Embedding: []float32{1}}},
		Ctime: 200,
	}))
	removed, err := cache.DeleteStale(ctx, "m1", "fp2")
	require.NoError(t, err)
	require.Equal(t, int64(2), removed)

	removed, err = cache.DeleteBefore(ctx, 300)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)
	_, ok, err = cache.Get(ctx, "m1", "fp2")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEmbeddingCacheRepoSQLite(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	exerciseEmbeddingCacheRepo(t, db)
}

func TestEmbeddingCacheRepoPostgres(t *testing.T) {
	db, cleanup := testutil.OpenPostgresTestDB(t)
	defer cleanup()
	exerciseEmbeddingCacheRepo(t, db)
}
