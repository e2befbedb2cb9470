package service

import (
	"context"
	"strings"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/membot/internal/ai"
	"github.com/xxxsen/membot/internal/memory"
	"github.com/xxxsen/membot/internal/model"
	"github.com/xxxsen/membot/internal/observability"
	appErr "github.com/xxxsen/membot/internal/pkg/errors"
	"github.com/xxxsen/membot/internal/pkg/timeutil"
	"github.com/xxxsen/membot/internal/repo"
)

type ChatConfig struct {
	Instruction    string
	Temperature    float64
	GreetingPrompt string
}

type TurnResult struct {
	Turn       model.Turn `json:"turn"`
	Reply      string     `json:"reply"`
	Failed     bool       `json:"failed"`
	Summarized bool       `json:"summarized"`
}

// ChatService runs one conversation turn at a time against the store.
type ChatService struct {
	mu        sync.Mutex
	turns     *repo.TurnRepo
	summaries *repo.SummaryRepo
	tier      *memory.TierManager
	assembler *memory.Assembler
	generator ai.IGenerator
	cfg       ChatConfig
	metrics   *observability.Metrics
}

func NewChatService(turns *repo.TurnRepo, summaries *repo.SummaryRepo, tier *memory.TierManager,
	assembler *memory.Assembler, generator ai.IGenerator, cfg ChatConfig, metrics *observability.Metrics) *ChatService {
	return &ChatService{
		turns:     turns,
		summaries: summaries,
		tier:      tier,
		assembler: assembler,
		generator: generator,
		cfg:       cfg,
		metrics:   metrics,
	}
}

func (s *ChatService) opts() ai.GenerateOptions {
	return ai.GenerateOptions{
		SystemInstruction: s.cfg.Instruction,
		Temperature:       ai.Temperature(s.cfg.Temperature),
	}
}

// Start prepares the store for a session: it writes the greeting turn when
// the store is empty and catches up on a missed summary. The greeting is
// returned when one was created.
func (s *ChatService) Start(ctx context.Context) (*model.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	logger := logutil.GetLogger(ctx)

	seed, err := s.seedLocked(ctx)
	if err != nil {
		return nil, err
	}
	if done, err := s.tier.Reconcile(ctx); err != nil {
		logger.Warn("reconcile summaries failed", zap.Error(err))
	} else if done {
		logger.Info("caught up on missed summary")
	}
	return seed, nil
}

func (s *ChatService) seedLocked(ctx context.Context) (*model.Turn, error) {
	cnt, err := s.turns.Count(ctx)
	if err != nil {
		return nil, err
	}
	if cnt > 0 || s.cfg.GreetingPrompt == "" {
		return nil, nil
	}
	greeting, err := s.generator.Generate(ctx, s.cfg.GreetingPrompt, s.opts())
	if err != nil {
		// nothing is stored so the next start tries again
		logutil.GetLogger(ctx).Warn("generate greeting failed", zap.Error(err))
		return nil, nil
	}
	turn := &model.Turn{UserText: "", AssistantText: greeting, Ctime: timeutil.NowUnix()}
	if _, err := s.turns.Append(ctx, turn); err != nil {
		return nil, err
	}
	s.metrics.ObserveTurn()
	return turn, nil
}

// HandleTurn answers input using both memory tiers, stores the turn and
// runs the summarization check. A model failure is not an error here: its
// user-facing text becomes the reply and is stored like any other.
func (s *ChatService) HandleTurn(ctx context.Context, input string) (*TurnResult, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, appErr.ErrInvalid
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	logger := logutil.GetLogger(ctx)

	short, err := s.tier.ShortTerm(ctx)
	if err != nil {
		return nil, err
	}
	long, err := s.tier.LongTerm(ctx)
	if err != nil {
		return nil, err
	}
	prompt := s.assembler.Assemble(input, short, long, nil)
	res := &TurnResult{}
	reply, err := s.generator.Generate(ctx, prompt, s.opts())
	if err != nil {
		logger.Warn("generate reply failed", zap.Error(err))
		reply = ReplyForError(err)
		res.Failed = true
	}
	res.Reply = reply

	turn := &model.Turn{UserText: input, AssistantText: reply, Ctime: timeutil.NowUnix()}
	if _, err := s.turns.Append(ctx, turn); err != nil {
		return nil, err
	}
	s.metrics.ObserveTurn()
	res.Turn = *turn

	done, err := s.tier.MaybeSummarize(ctx, *turn)
	if err != nil {
		logger.Warn("summarize failed, will retry on next start", zap.Error(err))
	}
	res.Summarized = done
	return res, nil
}

func (s *ChatService) History(ctx context.Context, limit int) ([]model.Turn, error) {
	return s.turns.LastN(ctx, limit)
}

func (s *ChatService) Summaries(ctx context.Context, limit int) ([]model.Summary, error) {
	return s.summaries.LastN(ctx, limit)
}
