package embedcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/membot/internal/ai"
	"github.com/xxxsen/membot/internal/observability"
)

// WrapLruCacheToEmbedder memoizes single-text embeddings, e.g. repeated
// questions. Batches of more than one text bypass the cache.
func WrapLruCacheToEmbedder(e ai.IEmbedder, size int, ttl time.Duration, metrics *observability.Metrics) ai.IEmbedder {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	return &lruEmbedder{
		next:    e,
		cache:   expirable.NewLRU[string, []float32](size, nil, ttl),
		metrics: metrics,
	}
}

type lruEmbedder struct {
	next    ai.IEmbedder
	cache   *expirable.LRU[string, []float32]
	metrics *observability.Metrics
}

func (l *lruEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) != 1 {
		return l.next.Embed(ctx, texts)
	}
	cacheKey := l.next.ModelName() + ":" + contentHash(texts[0])
	if cached, ok := l.cache.Get(cacheKey); ok {
		l.metrics.ObserveEmbedCache("query", true)
		logutil.GetLogger(ctx).Debug("embedding cache hit (lru)", zap.Int("text_len", len(texts[0])))
		return [][]float32{cloneEmbedding(cached)}, nil
	}
	l.metrics.ObserveEmbedCache("query", false)
	res, err := l.next.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(res) == 1 {
		l.cache.Add(cacheKey, cloneEmbedding(res[0]))
	}
	return res, nil
}

func (l *lruEmbedder) ModelName() string {
	return l.next.ModelName()
}

func cloneEmbedding(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}
