package job

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/membot/internal/model"
	"github.com/xxxsen/membot/internal/repo"
	"github.com/xxxsen/membot/internal/testutil"
)

func TestEmbeddingCacheCleanupRemovesExpired(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()
	cache := repo.NewEmbeddingCacheRepo(db)

	now := time.Unix(1_700_000_000, 0)
	old := &model.CorpusEmbeddings{
		ModelName:   "m-old",
		Fingerprint: "fp",
		Lines:       []model.KnowledgeLine{{Text: "a", Embedding: []float32{1}}},
		Ctime:       now.Add(-40 * 24 * time.Hour).Unix(),
	}
	fresh := &model.CorpusEmbeddings{
		ModelName:   "m-new",
		Fingerprint: "fp",
		Lines:       []model.KnowledgeLine{{Text: "b", Embedding: []float32{1}}},
		Ctime:       now.Add(-time.Hour).Unix(),
	}
	require.NoError(t, cache.Save(ctx, old))
	require.NoError(t, cache.Save(ctx, fresh))

	job := NewEmbeddingCacheCleanupJob(cache, 30)
	job.now = func() time.Time { return now }
	require.NoError(t, job.Run(ctx))

	_, ok, err := cache.Get(ctx, "m-old", "fp")
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = cache.Get(ctx, "m-new", "fp")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEmbeddingCacheCleanupNilRepo(t *testing.T) {
	job := &EmbeddingCacheCleanupJob{}
	require.NoError(t, job.Run(context.Background()))
}
