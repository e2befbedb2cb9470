package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/membot/internal/model"
	"github.com/xxxsen/membot/internal/service"
)

type State int

const (
	StateAwaitingInput State = iota
	StateGenerating
	StateStoring
	StateSummarizing
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateAwaitingInput:
		return "awaiting_input"
	case StateGenerating:
		return "generating"
	case StateStoring:
		return "storing"
	case StateSummarizing:
		return "summarizing"
	case StateEnded:
		return "ended"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var exitWords = map[string]struct{}{
	"bye":  {},
	"exit": {},
	"quit": {},
}

// IsExit reports whether a line ends the session.
func IsExit(line string) bool {
	_, ok := exitWords[strings.ToLower(strings.TrimSpace(line))]
	return ok
}

type Chatter interface {
	Start(ctx context.Context) (*model.Turn, error)
	HandleTurn(ctx context.Context, input string) (*service.TurnResult, error)
}

type LoopConfig struct {
	BotName string
	Prompt  string
}

// Loop drives an interactive chat over a line-oriented reader and writer.
type Loop struct {
	chat  Chatter
	in    *bufio.Scanner
	out   io.Writer
	cfg   LoopConfig
	state State
}

func NewLoop(chat Chatter, in io.Reader, out io.Writer, cfg LoopConfig) *Loop {
	if cfg.BotName == "" {
		cfg.BotName = "Bot"
	}
	if cfg.Prompt == "" {
		cfg.Prompt = "Q: "
	}
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Loop{chat: chat, in: scanner, out: out, cfg: cfg}
}

func (l *Loop) State() State {
	return l.state
}

func (l *Loop) setState(ctx context.Context, s State) {
	l.state = s
	logutil.GetLogger(ctx).Debug("session state", zap.String("state", s.String()))
}

// Run blocks until an exit word, end of input or context cancellation.
func (l *Loop) Run(ctx context.Context) error {
	defer func() { l.state = StateEnded }()
	fmt.Fprintf(l.out, "Chat with %s (type 'bye' to quit)\n", l.cfg.BotName)
	seed, err := l.chat.Start(ctx)
	if err != nil {
		return err
	}
	if seed != nil {
		fmt.Fprintf(l.out, "%s: %s\n", l.cfg.BotName, seed.AssistantText)
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		l.setState(ctx, StateAwaitingInput)
		fmt.Fprint(l.out, l.cfg.Prompt)
		if !l.in.Scan() {
			fmt.Fprintln(l.out)
			return l.in.Err()
		}
		line := strings.TrimSpace(l.in.Text())
		if line == "" {
			continue
		}
		if IsExit(line) {
			return nil
		}
		l.setState(ctx, StateGenerating)
		fmt.Fprintf(l.out, "%s is typing...\n", l.cfg.BotName)
		res, err := l.chat.HandleTurn(ctx, line)
		if err != nil {
			return err
		}
		l.setState(ctx, StateStoring)
		fmt.Fprintf(l.out, "%s: %s\n", l.cfg.BotName, res.Reply)
		if res.Summarized {
			l.setState(ctx, StateSummarizing)
		}
	}
}
