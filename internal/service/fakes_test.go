package service

import (
	"context"
	"strings"
	"sync"
	"unicode"

	"github.com/xxxsen/membot/internal/ai"
)

type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	opts    []ai.GenerateOptions
	reply   func(prompt string) (string, error)
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.opts = append(f.opts, opts)
	f.mu.Unlock()
	if f.reply == nil {
		return "ok", nil
	}
	return f.reply(prompt)
}

func (f *fakeGenerator) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

// bagOfWords embeds text as word counts over a fixed vocabulary.
type bagOfWords struct {
	vocab []string
	calls int
	err   error
}

func newBagOfWords() *bagOfWords {
	return &bagOfWords{vocab: []string{"o", "céu", "é", "azul", "gatos", "dormem", "muito", "de", "que", "cor"}}
}

func (b *bagOfWords) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, len(b.vocab))
		words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r)
		})
		for _, w := range words {
			for j, v := range b.vocab {
				if w == v {
					vec[j]++
				}
			}
		}
		out[i] = vec
	}
	return out, nil
}

func (b *bagOfWords) ModelName() string {
	return "bag-of-words"
}
