package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/membot/internal/ai"
	"github.com/xxxsen/membot/internal/embedcache"
	"github.com/xxxsen/membot/internal/memory"
	"github.com/xxxsen/membot/internal/observability"
	appErr "github.com/xxxsen/membot/internal/pkg/errors"
	"github.com/xxxsen/membot/internal/rank"
)

type RAGConfig struct {
	Instruction string
	Temperature float64
	TopK        int
}

type AskResult struct {
	Retrieved []rank.Scored `json:"retrieved"`
	Reply     string        `json:"reply"`
	Failed    bool          `json:"failed"`
}

// RAGService answers questions from a fixed corpus: the corpus is embedded
// once through the cache, each question is embedded and ranked against it,
// and the best lines go into the prompt.
type RAGService struct {
	corpus    []string
	cache     *embedcache.CorpusCache
	embedder  ai.IEmbedder
	generator ai.IGenerator
	assembler *memory.Assembler
	cfg       RAGConfig
	metrics   *observability.Metrics
}

func NewRAGService(corpus []string, cache *embedcache.CorpusCache, embedder ai.IEmbedder, generator ai.IGenerator,
	assembler *memory.Assembler, cfg RAGConfig, metrics *observability.Metrics) *RAGService {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	return &RAGService{
		corpus:    corpus,
		cache:     cache,
		embedder:  embedder,
		generator: generator,
		assembler: assembler,
		cfg:       cfg,
		metrics:   metrics,
	}
}

// Warmup embeds the corpus ahead of the first question.
func (s *RAGService) Warmup(ctx context.Context) error {
	_, err := s.cache.GetOrCompute(ctx, s.corpus)
	return err
}

// Search ranks the corpus against query. k <= 0 uses the configured top_k.
func (s *RAGService) Search(ctx context.Context, query string, k int) ([]rank.Scored, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, appErr.ErrInvalid
	}
	if k <= 0 {
		k = s.cfg.TopK
	}
	lines, err := s.cache.GetOrCompute(ctx, s.corpus)
	if err != nil {
		return nil, err
	}
	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vecs))
	}
	res := rank.Rank(vecs[0], lines, k)
	if len(res) > 0 {
		s.metrics.ObserveTopScore(res[0].Score)
	}
	return res, nil
}

// Ask retrieves context for question and generates an answer grounded in
// it. Model failures are reported through the reply text.
func (s *RAGService) Ask(ctx context.Context, question string, k int) (*AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, appErr.ErrInvalid
	}
	logger := logutil.GetLogger(ctx)
	res := &AskResult{Retrieved: []rank.Scored{}}
	retrieved, err := s.Search(ctx, question, k)
	if err != nil {
		logger.Warn("retrieve context failed", zap.Error(err))
		res.Reply = ReplyForError(err)
		res.Failed = true
		return res, nil
	}
	res.Retrieved = retrieved
	for _, r := range retrieved {
		logger.Debug("retrieved line", zap.String("text", r.Text), zap.Float64("score", r.Score))
	}

	prompt := s.assembler.Assemble(question, nil, nil, retrieved)
	reply, err := s.generator.Generate(ctx, prompt, ai.GenerateOptions{
		SystemInstruction: s.cfg.Instruction,
		Temperature:       ai.Temperature(s.cfg.Temperature),
	})
	if err != nil {
		logger.Warn("generate answer failed", zap.Error(err))
		res.Reply = ReplyForError(err)
		res.Failed = true
		return res, nil
	}
	res.Reply = reply
	return res, nil
}
