package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/membot/internal/config"
	"github.com/xxxsen/membot/internal/observability"
)

type ManagerConfig struct {
	Timeout       int
	MaxRetries    int
	RetryInterval time.Duration
}

// Manager is the single entry point the rest of the program uses for model
// calls. Every call gets a timeout, transient failures are retried and the
// returned errors are classified.
type Manager struct {
	generator IGenerator
	embedder  IEmbedder
	cfg       ManagerConfig
	metrics   *observability.Metrics
}

func NewManager(generator IGenerator, embedder IEmbedder, cfg ManagerConfig) *Manager {
	return &Manager{
		generator: generator,
		embedder:  embedder,
		cfg:       cfg,
	}
}

// NewManagerFromConfig builds providers from cfg. Providers without a
// credential are skipped; if none is left ErrMissingCredential is returned.
// The first provider with an embed_model becomes the embedder, since vectors
// from different models cannot be compared.
func NewManagerFromConfig(ctx context.Context, cfg config.AIConfig) (*Manager, error) {
	var gens []GeneratorEntry
	var emb IEmbedder
	var missing []string
	for _, item := range cfg.Providers {
		name := item.Name
		if name == "" {
			name = item.Provider
		}
		provider, err := NewProvider(item.Provider, item.Data)
		if err != nil {
			if errors.Is(err, ErrMissingCredential) {
				missing = append(missing, name)
				continue
			}
			return nil, fmt.Errorf("init ai provider %s: %w", name, err)
		}
		gens = append(gens, GeneratorEntry{Name: name, Generator: NewGenerator(provider, item.Model)})
		if emb == nil && strings.TrimSpace(item.EmbedModel) != "" {
			emb = NewEmbedder(provider, item.EmbedModel)
		}
	}
	if len(gens) == 0 {
		return nil, fmt.Errorf("%w: no provider has an api key (%s)", ErrMissingCredential, strings.Join(missing, ", "))
	}
	if len(missing) > 0 {
		logutil.GetLogger(ctx).Warn("skip ai providers without credential", zap.Strings("providers", missing))
	}
	return NewManager(NewGroupGenerator(gens), emb, ManagerConfig{
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
	}), nil
}

func (m *Manager) WithMetrics(metrics *observability.Metrics) *Manager {
	m.metrics = metrics
	return m
}

func (m *Manager) retryConfig() retryConfig {
	return retryConfig{
		maxTries:        m.cfg.MaxRetries,
		initialInterval: m.cfg.RetryInterval,
		timeout:         time.Duration(m.cfg.Timeout) * time.Second,
	}
}

func (m *Manager) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	if m.generator == nil {
		return "", fmt.Errorf("generator not configured")
	}
	start := time.Now()
	out, err := callWithRetry(ctx, "generate", m.retryConfig(), func(ctx context.Context) (string, error) {
		return m.generator.Generate(ctx, prompt, opts)
	})
	m.metrics.ObserveModelCall("generate", time.Since(start), err)
	return out, err
}

func (m *Manager) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if m.embedder == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	start := time.Now()
	out, err := callWithRetry(ctx, "embed", m.retryConfig(), func(ctx context.Context) ([][]float32, error) {
		return m.embedder.Embed(ctx, texts)
	})
	m.metrics.ObserveModelCall("embed", time.Since(start), err)
	return out, err
}

func (m *Manager) ModelName() string {
	if m.embedder == nil {
		return ""
	}
	return m.embedder.ModelName()
}

func (m *Manager) HasEmbedder() bool {
	return m.embedder != nil
}
