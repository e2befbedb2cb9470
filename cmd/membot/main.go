package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/membot/internal/handler"
	"github.com/xxxsen/membot/internal/job"
	"github.com/xxxsen/membot/internal/middleware"
	"github.com/xxxsen/membot/internal/pkg/jwt"
	"github.com/xxxsen/membot/internal/rank"
	"github.com/xxxsen/membot/internal/repo"
	"github.com/xxxsen/membot/internal/schedule"
	"github.com/xxxsen/membot/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "membot",
		Short:         "chat bot with tiered memory and retrieval over a local corpus",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json (optional)")

	var topK int
	chatCmd := &cobra.Command{
		Use:   "chat [message...]",
		Short: "start an interactive chat, or send a single message",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return runChat(cmd.Context(), a, strings.Join(args, " "), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	ragCmd := &cobra.Command{
		Use:   "rag <question...>",
		Short: "answer a question from the knowledge file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return runRAG(cmd.Context(), a, strings.Join(args, " "), topK, cmd.OutOrStdout())
		},
	}
	ragCmd.Flags().IntVar(&topK, "top-k", 0, "number of lines to retrieve (default from config)")
	searchCmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "rank knowledge lines against a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return runSearch(cmd.Context(), a, strings.Join(args, " "), topK, cmd.OutOrStdout())
		},
	}
	searchCmd.Flags().IntVar(&topK, "top-k", 0, "number of lines to print (default from config)")
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "run the http api",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return runServer(cmd.Context(), a)
		},
	}

	var subject string
	var ttl time.Duration
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "issue an api token signed with server.jwt_secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.cfg.Server.JWTSecret == "" {
				return fmt.Errorf("server.jwt_secret is not set")
			}
			token, err := jwt.GenerateToken(subject, []byte(a.cfg.Server.JWTSecret), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&subject, "subject", "cli", "client id stored in the token")
	tokenCmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "token lifetime, 0 for no expiry")

	rootCmd.AddCommand(chatCmd, ragCmd, searchCmd, serveCmd, tokenCmd)
	return rootCmd
}

func runChat(ctx context.Context, a *app, message string, in io.Reader, out io.Writer) error {
	chat := a.chatService()
	message = strings.TrimSpace(message)
	if message == "" {
		return session.NewLoop(chat, in, out, session.LoopConfig{BotName: a.cfg.AI.BotName}).Run(ctx)
	}
	seed, err := chat.Start(ctx)
	if err != nil {
		return err
	}
	if seed != nil {
		fmt.Fprintf(out, "%s: %s\n", a.cfg.AI.BotName, seed.AssistantText)
	}
	res, err := chat.HandleTurn(ctx, message)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %s\n", a.cfg.AI.BotName, res.Reply)
	return nil
}

func runRAG(ctx context.Context, a *app, question string, k int, out io.Writer) error {
	rag, err := a.ragService()
	if err != nil {
		return err
	}
	res, err := rag.Ask(ctx, question, k)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "---- retrieved lines ----")
	for _, item := range res.Retrieved {
		fmt.Fprintf(out, "- %s\n", item.Text)
	}
	fmt.Fprintln(out, "-------------------------")
	fmt.Fprintln(out, res.Reply)
	return nil
}

func runSearch(ctx context.Context, a *app, query string, k int, out io.Writer) error {
	rag, err := a.ragService()
	if err != nil {
		return err
	}
	results, err := rag.Search(ctx, query, k)
	if err != nil {
		return err
	}
	printScored(out, results)
	return nil
}

func printScored(out io.Writer, results []rank.Scored) {
	for _, item := range results {
		fmt.Fprintf(out, "%s (score: %.4f)\n", item.Text, item.Score)
	}
}

func runServer(ctx context.Context, a *app) error {
	logger := logutil.GetLogger(ctx)
	chat := a.chatService()
	if _, err := chat.Start(ctx); err != nil {
		return fmt.Errorf("start chat: %w", err)
	}
	deps := handler.RouterDeps{
		Chat:      handler.NewChatHandler(chat),
		Metrics:   a.metrics.Handler(),
		JWTSecret: []byte(a.cfg.Server.JWTSecret),
		RateLimit: time.Duration(a.cfg.Server.RateLimitMs) * time.Millisecond,
	}
	rag, err := a.ragService()
	switch {
	case err == nil:
		if err := rag.Warmup(ctx); err != nil {
			logger.Warn("warm up corpus embeddings failed", zap.Error(err))
		}
		deps.RAG = handler.NewRAGHandler(rag)
	default:
		logger.Warn("rag endpoints disabled", zap.Error(err))
	}

	scheduler := schedule.NewCronScheduler(10 * time.Minute)
	if a.cfg.EmbedCache.Type == "db" && a.cfg.Jobs.EmbeddingCacheCleanupSpec != "" {
		cleanup := job.NewEmbeddingCacheCleanupJob(repo.NewEmbeddingCacheRepo(a.db), a.cfg.Jobs.EmbeddingCacheMaxAgeDays)
		if err := scheduler.AddJob(cleanup, a.cfg.Jobs.EmbeddingCacheCleanupSpec); err != nil {
			return fmt.Errorf("schedule %s: %w", cleanup.Name(), err)
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	addr := fmt.Sprintf("0.0.0.0:%d", a.cfg.Server.Port)
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(a.cfg.Server.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logger.Info("http server listening", zap.String("addr", addr))

	go func() {
		if err := engine.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("server stopping...")
	return nil
}
