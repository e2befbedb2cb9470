package embedcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLruEmbedderCachesSingleTexts(t *testing.T) {
	next := &countingEmbedder{model: "m1"}
	emb := WrapLruCacheToEmbedder(next, 16, time.Minute, nil)
	ctx := context.Background()

	first, err := emb.Embed(ctx, []string{"what color is the sky?"})
	require.NoError(t, err)
	first[0][0] = -1

	second, err := emb.Embed(ctx, []string{"what color is the sky?"})
	require.NoError(t, err)
	require.Equal(t, float32(22), second[0][0])
	require.Equal(t, 1, next.Calls())

	_, err = emb.Embed(ctx, []string{"a", "b"})
	require.NoError(t, err)
	_, err = emb.Embed(ctx, []string{"a", "b"})
	require.NoError(t, err)
	require.Equal(t, 3, next.Calls())
	require.Equal(t, "m1", emb.ModelName())
}

func TestWrapLruDisabled(t *testing.T) {
	next := &countingEmbedder{model: "m1"}
	require.Same(t, next, WrapLruCacheToEmbedder(next, 0, time.Minute, nil))
}
