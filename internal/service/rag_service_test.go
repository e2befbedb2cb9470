package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/membot/internal/ai"
	"github.com/xxxsen/membot/internal/config"
	"github.com/xxxsen/membot/internal/embedcache"
	"github.com/xxxsen/membot/internal/filestore"
	"github.com/xxxsen/membot/internal/memory"
	appErr "github.com/xxxsen/membot/internal/pkg/errors"
)

var skyCorpus = []string{"O céu é azul.", "Gatos dormem muito."}

func newRAG(t *testing.T, emb *bagOfWords, gen *fakeGenerator, dir string) *RAGService {
	t.Helper()
	store, err := filestore.New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": dir}})
	require.NoError(t, err)
	cache := embedcache.NewCorpusCache(emb, embedcache.NewFileBackend(store), nil)
	return NewRAGService(skyCorpus, cache, emb, gen, memory.NewAssembler(memory.DefaultLabels()),
		RAGConfig{Instruction: "answer from context", Temperature: 0.7, TopK: 3}, nil)
}

func TestRAGSearchFindsTheSkyLine(t *testing.T) {
	emb := newBagOfWords()
	svc := newRAG(t, emb, &fakeGenerator{}, filepath.Join(t.TempDir(), "cache"))

	res, err := svc.Search(context.Background(), "De que cor é o céu?", 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Equal(t, "O céu é azul.", res[0].Text)
	require.Greater(t, res[0].Score, 0.0)

	all, err := svc.Search(context.Background(), "De que cor é o céu?", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, 0.0, all[1].Score)
}

func TestRAGAskBuildsPromptFromRetrievedLines(t *testing.T) {
	emb := newBagOfWords()
	gen := &fakeGenerator{reply: func(string) (string, error) { return "Azul.", nil }}
	svc := newRAG(t, emb, gen, filepath.Join(t.TempDir(), "cache"))

	res, err := svc.Ask(context.Background(), "  De que cor é o céu?  ", 1)
	require.NoError(t, err)
	require.False(t, res.Failed)
	require.Equal(t, "Azul.", res.Reply)
	require.Equal(t, "Retrieved context:\n- O céu é azul.\n\nUser: De que cor é o céu?\nBot: ", gen.lastPrompt())
	require.Equal(t, "answer from context", gen.opts[0].SystemInstruction)
	require.InDelta(t, 0.7, *gen.opts[0].Temperature, 1e-6)
}

func TestRAGCorpusEmbeddedOnceAcrossRuns(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	emb := newBagOfWords()
	svc := newRAG(t, emb, &fakeGenerator{}, dir)
	require.NoError(t, svc.Warmup(context.Background()))
	_, err := svc.Search(context.Background(), "céu", 1)
	require.NoError(t, err)
	// one corpus call plus one query call
	require.Equal(t, 2, emb.calls)

	emb2 := newBagOfWords()
	svc2 := newRAG(t, emb2, &fakeGenerator{}, dir)
	_, err = svc2.Search(context.Background(), "gatos", 1)
	require.NoError(t, err)
	require.Equal(t, 1, emb2.calls)
}

func TestRAGAskReportsModelFailures(t *testing.T) {
	emb := newBagOfWords()
	emb.err = fmt.Errorf("%w: dial tcp: no such host", ai.ErrUnavailable)
	svc := newRAG(t, emb, &fakeGenerator{}, filepath.Join(t.TempDir(), "cache"))
	res, err := svc.Ask(context.Background(), "céu?", 3)
	require.NoError(t, err)
	require.True(t, res.Failed)
	require.Equal(t, OfflineNotice, res.Reply)
	require.Empty(t, res.Retrieved)

	gen := &fakeGenerator{reply: func(string) (string, error) { return "", fmt.Errorf("%w: 401", ai.ErrInvalidCredential) }}
	svc = newRAG(t, newBagOfWords(), gen, filepath.Join(t.TempDir(), "cache"))
	res, err = svc.Ask(context.Background(), "céu?", 3)
	require.NoError(t, err)
	require.Equal(t, CredentialMessage, res.Reply)
	require.NotEmpty(t, res.Retrieved)

	_, err = svc.Ask(context.Background(), "   ", 3)
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestReplyForError(t *testing.T) {
	require.Equal(t, OfflineNotice, ReplyForError(ai.ErrUnavailable))
	require.Equal(t, CredentialMessage, ReplyForError(ai.ErrInvalidCredential))
	require.Equal(t, "[generation error: quota policy]", ReplyForError(&ai.GenerationError{Cause: errors.New("quota policy")}))
	require.Equal(t, "[generation error: boom]", ReplyForError(errors.New("boom")))
}
