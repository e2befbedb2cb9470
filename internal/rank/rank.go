package rank

import (
	"math"
	"sort"

	"github.com/xxxsen/membot/internal/model"
)

type Scored struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Cosine returns the cosine similarity of a and b, clamped to [-1, 1].
// Vectors of different length, with zero norm or containing NaN score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	switch {
	case math.IsNaN(score):
		return 0
	case score > 1:
		return 1
	case score < -1:
		return -1
	}
	return score
}

// Rank scores every line against query and returns the k best, highest
// score first. Ties keep corpus order. k below 1 is treated as 1.
func Rank(query []float32, lines []model.KnowledgeLine, k int) []Scored {
	if k < 1 {
		k = 1
	}
	res := make([]Scored, 0, len(lines))
	for _, line := range lines {
		res = append(res, Scored{Text: line.Text, Score: Cosine(query, line.Embedding)})
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Score > res[j].Score
	})
	if len(res) > k {
		res = res[:k]
	}
	return res
}
