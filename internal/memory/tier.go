package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/membot/internal/ai"
	"github.com/xxxsen/membot/internal/model"
	"github.com/xxxsen/membot/internal/observability"
	appErr "github.com/xxxsen/membot/internal/pkg/errors"
	"github.com/xxxsen/membot/internal/pkg/timeutil"
	"github.com/xxxsen/membot/internal/repo"
)

type TierConfig struct {
	ShortTermTurns     int
	SummaryWindow      int
	LongTermSummaries  int
	SummaryInstruction string
	SummaryTemperature float64
}

// TierManager owns the two memory tiers: the last few turns verbatim and a
// bounded list of summaries produced every SummaryWindow user turns.
type TierManager struct {
	turns      *repo.TurnRepo
	summaries  *repo.SummaryRepo
	summarizer ai.IGenerator
	assembler  *Assembler
	cfg        TierConfig
	metrics    *observability.Metrics
}

func NewTierManager(turns *repo.TurnRepo, summaries *repo.SummaryRepo, summarizer ai.IGenerator,
	assembler *Assembler, cfg TierConfig, metrics *observability.Metrics) *TierManager {
	return &TierManager{
		turns:      turns,
		summaries:  summaries,
		summarizer: summarizer,
		assembler:  assembler,
		cfg:        cfg,
		metrics:    metrics,
	}
}

func (m *TierManager) ShortTerm(ctx context.Context) ([]model.Turn, error) {
	return m.turns.LastN(ctx, m.cfg.ShortTermTurns)
}

func (m *TierManager) LongTerm(ctx context.Context) ([]model.Summary, error) {
	return m.summaries.LastN(ctx, m.cfg.LongTermSummaries)
}

// MaybeSummarize runs after a turn has been stored. It reports whether a
// new summary was written.
func (m *TierManager) MaybeSummarize(ctx context.Context, appended model.Turn) (bool, error) {
	if !appended.HasUserText {
		return false, nil
	}
	return m.summarizeIfDue(ctx)
}

// Reconcile repeats the summarization check against the stored state, so a
// summary lost to a crash or a failed call is produced on the next start.
func (m *TierManager) Reconcile(ctx context.Context) (bool, error) {
	if _, err := m.turns.Latest(ctx); err != nil {
		if appErr.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return m.summarizeIfDue(ctx)
}

func (m *TierManager) summarizeIfDue(ctx context.Context) (bool, error) {
	window := m.cfg.SummaryWindow
	if window <= 0 {
		return false, nil
	}
	count, err := m.turns.CountNonEmptyUserTurns(ctx)
	if err != nil {
		return false, err
	}
	if count == 0 || count%int64(window) != 0 {
		return false, nil
	}
	turns, err := m.turns.LastN(ctx, window)
	if err != nil {
		return false, err
	}
	if len(turns) == 0 {
		return false, nil
	}
	last := turns[len(turns)-1].Seq
	latest, err := m.summaries.Latest(ctx)
	if err != nil && !appErr.IsNotFound(err) {
		return false, err
	}
	// one summary per user-turn count; blank turns appended after a
	// summary move the window but not the count
	if latest != nil && (latest.UserTurns >= count || latest.CoversUpTo >= last) {
		return false, nil
	}

	logger := logutil.GetLogger(ctx).With(zap.Int64("user_turns", count), zap.Int64("covers_up_to", last))
	text, err := m.summarizer.Generate(ctx, m.assembler.Transcript(turns), ai.GenerateOptions{
		SystemInstruction: m.cfg.SummaryInstruction,
		Temperature:       ai.Temperature(m.cfg.SummaryTemperature),
	})
	if err == nil && strings.TrimSpace(text) == "" {
		err = fmt.Errorf("empty summary")
	}
	if err != nil {
		m.metrics.ObserveSummary("error")
		return false, fmt.Errorf("summarize turns: %w", err)
	}
	summary := &model.Summary{
		Text:       strings.TrimSpace(text),
		CoversUpTo: last,
		UserTurns:  count,
		Ctime:      timeutil.NowUnix(),
	}
	if err := m.summaries.AppendAndPrune(ctx, summary, m.cfg.LongTermSummaries); err != nil {
		m.metrics.ObserveSummary("error")
		return false, fmt.Errorf("store summary: %w", err)
	}
	m.metrics.ObserveSummary("ok")
	logger.Info("long-term summary stored", zap.Int64("summary_seq", summary.Seq))
	return true, nil
}
