package rank

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/membot/internal/model"
)

func TestCosine(t *testing.T) {
	require.InDelta(t, 1.0, Cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	require.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	require.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-3, 0}), 1e-9)
	require.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 1}))
	require.Equal(t, 0.0, Cosine([]float32{1, 1}, []float32{1, 1, 1}))
	require.Equal(t, 0.0, Cosine(nil, nil))
}

func TestCosineStaysInRange(t *testing.T) {
	nan := float32(math.NaN())
	require.Equal(t, 0.0, Cosine([]float32{nan, 1}, []float32{1, 1}))
	require.Equal(t, 0.0, Cosine([]float32{float32(math.Inf(1)), 1}, []float32{1, 1}))

	v := []float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7}
	for i := 0; i < 100; i++ {
		score := Cosine(v, v)
		require.LessOrEqual(t, score, 1.0)
		require.GreaterOrEqual(t, score, -1.0)
		v = append(v, float32(i)*0.013)
		v = v[1:]
	}
}

func TestRankWithNaNEmbedding(t *testing.T) {
	lines := []model.KnowledgeLine{
		{Text: "broken", Embedding: []float32{float32(math.NaN()), 0}},
		{Text: "east", Embedding: []float32{1, 0}},
		{Text: "west", Embedding: []float32{-1, 0}},
	}
	res := Rank([]float32{1, 0}, lines, 3)
	require.Equal(t, []string{"east", "broken", "west"}, []string{res[0].Text, res[1].Text, res[2].Text})
	require.Equal(t, 0.0, res[1].Score)
}

func TestRank(t *testing.T) {
	lines := []model.KnowledgeLine{
		{Text: "east", Embedding: []float32{1, 0}},
		{Text: "north", Embedding: []float32{0, 1}},
		{Text: "north-east", Embedding: []float32{1, 1}},
		{Text: "west", Embedding: []float32{-1, 0}},
	}
	res := Rank([]float32{1, 0.1}, lines, 3)
	require.Len(t, res, 3)
	require.Equal(t, "east", res[0].Text)
	require.Equal(t, "north-east", res[1].Text)
	require.Equal(t, "north", res[2].Text)
	require.GreaterOrEqual(t, res[0].Score, res[1].Score)
}

func TestRankEdgeCases(t *testing.T) {
	lines := []model.KnowledgeLine{
		{Text: "a", Embedding: []float32{1, 0}},
		{Text: "b", Embedding: []float32{1, 0}},
		{Text: "zero", Embedding: []float32{0, 0}},
	}
	// ties keep corpus order
	res := Rank([]float32{1, 0}, lines, 2)
	require.Equal(t, []string{"a", "b"}, []string{res[0].Text, res[1].Text})

	require.Len(t, Rank([]float32{1, 0}, lines, 0), 1)
	require.Len(t, Rank([]float32{1, 0}, lines, 10), 3)

	empty := Rank([]float32{1, 0}, nil, 3)
	require.NotNil(t, empty)
	require.Empty(t, empty)

	mixed := Rank([]float32{1, 0, 0}, lines, 3)
	for _, r := range mixed {
		require.Equal(t, 0.0, r.Score)
	}
}
