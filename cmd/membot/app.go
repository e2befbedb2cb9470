package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/membot/internal/ai"
	"github.com/xxxsen/membot/internal/config"
	"github.com/xxxsen/membot/internal/db"
	"github.com/xxxsen/membot/internal/embedcache"
	"github.com/xxxsen/membot/internal/filestore"
	"github.com/xxxsen/membot/internal/knowledge"
	"github.com/xxxsen/membot/internal/memory"
	"github.com/xxxsen/membot/internal/observability"
	"github.com/xxxsen/membot/internal/repo"
	"github.com/xxxsen/membot/internal/service"
)

type app struct {
	cfg       *config.Config
	db        *sqlx.DB
	metrics   *observability.Metrics
	manager   *ai.Manager
	assembler *memory.Assembler
}

func setup(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(ctx).Debug("config loaded", zap.String("config", configPath))

	metrics := observability.NewMetrics("membot")
	manager, err := ai.NewManagerFromConfig(ctx, cfg.AI)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	labels := memory.DefaultLabels()
	if name := strings.TrimSpace(cfg.AI.BotName); name != "" {
		labels.Bot = name + ": "
	}
	return &app{
		cfg:       cfg,
		db:        conn,
		metrics:   metrics,
		manager:   manager.WithMetrics(metrics),
		assembler: memory.NewAssembler(labels),
	}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		logutil.GetLogger(context.Background()).Warn("close db failed", zap.Error(err))
	}
}

func (a *app) chatService() *service.ChatService {
	turns := repo.NewTurnRepo(a.db)
	summaries := repo.NewSummaryRepo(a.db)
	tier := memory.NewTierManager(turns, summaries, a.manager, a.assembler, memory.TierConfig{
		ShortTermTurns:     a.cfg.Memory.ShortTermTurns,
		SummaryWindow:      a.cfg.Memory.SummaryWindow,
		LongTermSummaries:  a.cfg.Memory.LongTermSummaries,
		SummaryInstruction: a.cfg.AI.SummaryInstruction,
		SummaryTemperature: a.cfg.AI.SummaryTemperature,
	}, a.metrics)
	return service.NewChatService(turns, summaries, tier, a.assembler, a.manager, service.ChatConfig{
		Instruction:    a.cfg.AI.ChatInstruction,
		Temperature:    a.cfg.AI.ChatTemperature,
		GreetingPrompt: a.cfg.AI.GreetingPrompt,
	}, a.metrics)
}

func (a *app) cacheBackend() (embedcache.Backend, error) {
	switch a.cfg.EmbedCache.Type {
	case "db":
		return embedcache.NewDBBackend(repo.NewEmbeddingCacheRepo(a.db)), nil
	case "", "file":
		store, err := filestore.New(a.cfg.EmbedCache.FileStore)
		if err != nil {
			return nil, fmt.Errorf("init file store: %w", err)
		}
		return embedcache.NewFileBackend(store), nil
	}
	return nil, fmt.Errorf("unknown embed cache type %q", a.cfg.EmbedCache.Type)
}

// ragService loads the corpus and wires the caches. A corpus that cannot be
// loaded is returned as knowledge.ErrCorpusLoad.
func (a *app) ragService() (*service.RAGService, error) {
	if !a.manager.HasEmbedder() {
		return nil, fmt.Errorf("no provider has an embed_model configured")
	}
	corpus, err := knowledge.Load(a.cfg.RAG.KnowledgeFile)
	if err != nil {
		return nil, err
	}
	backend, err := a.cacheBackend()
	if err != nil {
		return nil, err
	}
	cache := embedcache.NewCorpusCache(a.manager, backend, a.metrics)
	queryEmbedder := embedcache.WrapLruCacheToEmbedder(a.manager, a.cfg.RAG.QueryCacheSize,
		time.Duration(a.cfg.RAG.QueryCacheTTLSecond)*time.Second, a.metrics)
	return service.NewRAGService(corpus, cache, queryEmbedder, a.manager, a.assembler, service.RAGConfig{
		Instruction: a.cfg.AI.RAGInstruction,
		Temperature: a.cfg.AI.RAGTemperature,
		TopK:        a.cfg.RAG.TopK,
	}, a.metrics), nil
}
