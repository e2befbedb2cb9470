package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/membot/internal/config"
)

type stubGenerator struct {
	out   string
	err   error
	calls int
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	s.calls++
	return s.out, s.err
}

func TestGroupGeneratorFailsOverOnUnavailable(t *testing.T) {
	first := &stubGenerator{err: ErrUnavailable}
	second := &stubGenerator{out: "from second"}
	gen := NewGroupGenerator([]GeneratorEntry{{Name: "a", Generator: first}, {Name: "b", Generator: second}})
	out, err := gen.Generate(context.Background(), "p", GenerateOptions{})
	require.NoError(t, err)
	require.Equal(t, "from second", out)
	require.Equal(t, 1, first.calls)
}

func TestGroupGeneratorStopsOnGenerationError(t *testing.T) {
	first := &stubGenerator{err: errors.New("content filtered")}
	second := &stubGenerator{out: "unused"}
	gen := NewGroupGenerator([]GeneratorEntry{{Name: "a", Generator: first}, {Name: "b", Generator: second}})
	_, err := gen.Generate(context.Background(), "p", GenerateOptions{})
	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	require.Equal(t, 0, second.calls)
}

func TestNewManagerFromConfigSkipsProvidersWithoutKey(t *testing.T) {
	_, err := NewManagerFromConfig(context.Background(), config.AIConfig{
		Providers: []config.ProviderConfig{{Provider: "gemini", Model: "m"}},
	})
	require.ErrorIs(t, err, ErrMissingCredential)

	m, err := NewManagerFromConfig(context.Background(), config.AIConfig{
		Providers: []config.ProviderConfig{
			{Provider: "gemini", Model: "m", EmbedModel: "e"},
			{Provider: "openai", Model: "gpt", EmbedModel: "te", Data: map[string]interface{}{"api_key": "k"}},
		},
	})
	require.NoError(t, err)
	require.True(t, m.HasEmbedder())
	require.Equal(t, "openai:te", m.ModelName())
}
