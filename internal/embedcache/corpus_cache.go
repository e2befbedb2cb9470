package embedcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/xxxsen/membot/internal/ai"
	"github.com/xxxsen/membot/internal/model"
	"github.com/xxxsen/membot/internal/observability"
)

// CorpusCache returns embeddings for a corpus, computing them at most once
// per (model, fingerprint). Lookups go memo -> backend -> embedder.
type CorpusCache struct {
	embedder ai.IEmbedder
	backend  Backend
	metrics  *observability.Metrics
	group    singleflight.Group

	mu   sync.RWMutex
	memo map[string][]model.KnowledgeLine
}

func NewCorpusCache(embedder ai.IEmbedder, backend Backend, metrics *observability.Metrics) *CorpusCache {
	return &CorpusCache{
		embedder: embedder,
		backend:  backend,
		metrics:  metrics,
		memo:     make(map[string][]model.KnowledgeLine),
	}
}

// GetOrCompute returns one KnowledgeLine per input line, in input order.
// The returned slice is shared and must not be modified.
func (c *CorpusCache) GetOrCompute(ctx context.Context, lines []string) ([]model.KnowledgeLine, error) {
	if len(lines) == 0 {
		return []model.KnowledgeLine{}, nil
	}
	modelName := c.embedder.ModelName()
	fp := Fingerprint(lines)
	key := modelName + "|" + fp

	c.mu.RLock()
	cached, ok := c.memo[key]
	c.mu.RUnlock()
	if ok {
		c.metrics.ObserveEmbedCache("memory", true)
		return cached, nil
	}

	// callers share the computation, so one caller's cancellation must not
	// fail the others
	res, err, _ := c.group.Do(key, func() (interface{}, error) {
		return c.loadOrCompute(context.WithoutCancel(ctx), modelName, fp, lines)
	})
	if err != nil {
		return nil, err
	}
	items := res.([]model.KnowledgeLine)
	c.mu.Lock()
	c.memo[key] = items
	c.mu.Unlock()
	return items, nil
}

func (c *CorpusCache) loadOrCompute(ctx context.Context, modelName, fp string, lines []string) ([]model.KnowledgeLine, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("model", modelName), zap.String("fingerprint", fp))
	if c.backend != nil {
		items, ok, err := c.backend.Load(ctx, modelName, fp)
		if err != nil {
			logger.Warn("load embedding cache failed, will recompute", zap.Error(err))
		} else if ok && matches(items, lines) {
			c.metrics.ObserveEmbedCache("corpus", true)
			logger.Debug("corpus embedding cache hit", zap.Int("lines", len(items)))
			return items, nil
		}
	}
	c.metrics.ObserveEmbedCache("corpus", false)

	logger.Info("embedding corpus", zap.Int("lines", len(lines)))
	vecs, err := c.embedder.Embed(ctx, lines)
	if err != nil {
		return nil, fmt.Errorf("embed corpus: %w", err)
	}
	if len(vecs) != len(lines) {
		return nil, fmt.Errorf("embed corpus: got %d vectors for %d lines", len(vecs), len(lines))
	}
	items := make([]model.KnowledgeLine, len(lines))
	for i, line := range lines {
		items[i] = model.KnowledgeLine{Text: line, Embedding: vecs[i]}
	}
	if c.backend != nil {
		if err := c.backend.Save(ctx, &model.CorpusEmbeddings{
			ModelName:   modelName,
			Fingerprint: fp,
			Lines:       items,
			Ctime:       time.Now().Unix(),
		}); err != nil {
			// the embeddings are still valid; the next run recomputes
			logger.Warn("save embedding cache failed", zap.Error(err))
		}
	}
	return items, nil
}

func matches(items []model.KnowledgeLine, lines []string) bool {
	if len(items) != len(lines) {
		return false
	}
	for i := range items {
		if items[i].Text != lines[i] || len(items[i].Embedding) == 0 {
			return false
		}
	}
	return true
}
