package session

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/membot/internal/model"
	"github.com/xxxsen/membot/internal/service"
)

type fakeChat struct {
	seed   *model.Turn
	inputs []string
	err    error
}

func (f *fakeChat) Start(ctx context.Context) (*model.Turn, error) {
	return f.seed, nil
}

func (f *fakeChat) HandleTurn(ctx context.Context, input string) (*service.TurnResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, input)
	return &service.TurnResult{Reply: "re: " + input}, nil
}

func TestLoopEndsOnExitWord(t *testing.T) {
	chat := &fakeChat{seed: &model.Turn{AssistantText: "Hi, I'm Bob!"}}
	var out bytes.Buffer
	loop := NewLoop(chat, strings.NewReader("hello\n\n   \nhow are you?\n  BYE  \nnever read\n"), &out, LoopConfig{BotName: "Bob"})

	require.NoError(t, loop.Run(context.Background()))
	require.Equal(t, StateEnded, loop.State())
	require.Equal(t, []string{"hello", "how are you?"}, chat.inputs)
	require.Contains(t, out.String(), "Bob: Hi, I'm Bob!\n")
	require.Contains(t, out.String(), "Bob: re: hello\n")
	require.NotContains(t, out.String(), "never read")
}

func TestLoopEndsOnEOF(t *testing.T) {
	chat := &fakeChat{}
	var out bytes.Buffer
	loop := NewLoop(chat, strings.NewReader("only line"), &out, LoopConfig{})
	require.NoError(t, loop.Run(context.Background()))
	require.Equal(t, []string{"only line"}, chat.inputs)
	require.True(t, strings.HasPrefix(out.String(), "Chat with Bot"))
}

func TestLoopPropagatesStoreErrors(t *testing.T) {
	chat := &fakeChat{err: errors.New("disk full")}
	loop := NewLoop(chat, strings.NewReader("hi\n"), &bytes.Buffer{}, LoopConfig{})
	require.EqualError(t, loop.Run(context.Background()), "disk full")
}

func TestIsExit(t *testing.T) {
	for _, w := range []string{"bye", "Bye", " EXIT ", "quit\n"} {
		require.True(t, IsExit(w), w)
	}
	for _, w := range []string{"", "goodbye", "bye bye"} {
		require.False(t, IsExit(w), w)
	}
}
