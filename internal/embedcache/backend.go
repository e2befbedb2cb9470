package embedcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/membot/internal/filestore"
	"github.com/xxxsen/membot/internal/model"
	"github.com/xxxsen/membot/internal/repo"
)

// Backend persists corpus embeddings across runs. Load returns ok=false for
// a missing or unreadable entry; callers recompute in that case.
type Backend interface {
	Load(ctx context.Context, modelName, fingerprint string) ([]model.KnowledgeLine, bool, error)
	Save(ctx context.Context, item *model.CorpusEmbeddings) error
}

type fileBackend struct {
	store filestore.Store
}

// NewFileBackend keeps one JSON document per embedding model in store. A
// new corpus revision overwrites the previous one.
func NewFileBackend(store filestore.Store) Backend {
	return &fileBackend{store: store}
}

func (b *fileBackend) key(modelName string) string {
	return "corpus-embeddings-" + shortHash(modelName) + ".json"
}

func (b *fileBackend) Load(ctx context.Context, modelName, fingerprint string) ([]model.KnowledgeLine, bool, error) {
	data, err := b.store.Get(ctx, b.key(modelName))
	if errors.Is(err, filestore.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read embedding cache: %w", err)
	}
	item := &model.CorpusEmbeddings{}
	if err := json.Unmarshal(data, item); err != nil {
		logutil.GetLogger(ctx).Warn("embedding cache is unreadable, will rebuild",
			zap.String("store", b.store.Type()), zap.Error(err))
		return nil, false, nil
	}
	if item.ModelName != modelName || item.Fingerprint != fingerprint {
		return nil, false, nil
	}
	return item.Lines, true, nil
}

func (b *fileBackend) Save(ctx context.Context, item *model.CorpusEmbeddings) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return b.store.Put(ctx, b.key(item.ModelName), data)
}

type dbBackend struct {
	repo *repo.EmbeddingCacheRepo
}

// NewDBBackend stores embeddings in the corpus_embeddings table and drops
// older corpus revisions of the same model after each save.
func NewDBBackend(r *repo.EmbeddingCacheRepo) Backend {
	return &dbBackend{repo: r}
}

func (b *dbBackend) Load(ctx context.Context, modelName, fingerprint string) ([]model.KnowledgeLine, bool, error) {
	return b.repo.Get(ctx, modelName, fingerprint)
}

func (b *dbBackend) Save(ctx context.Context, item *model.CorpusEmbeddings) error {
	if err := b.repo.Save(ctx, item); err != nil {
		return err
	}
	if n, err := b.repo.DeleteStale(ctx, item.ModelName, item.Fingerprint); err != nil {
		logutil.GetLogger(ctx).Warn("drop stale corpus embeddings failed", zap.Error(err))
	} else if n > 0 {
		logutil.GetLogger(ctx).Info("dropped stale corpus embeddings", zap.Int64("rows", n))
	}
	return nil
}
