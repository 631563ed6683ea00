package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DuckyBlender/duck-summarizer/internal/bot"
	"github.com/DuckyBlender/duck-summarizer/internal/config"
	"github.com/DuckyBlender/duck-summarizer/internal/groq"
	"github.com/DuckyBlender/duck-summarizer/internal/metrics"
	"github.com/DuckyBlender/duck-summarizer/internal/router"
	"github.com/DuckyBlender/duck-summarizer/internal/store"
	"github.com/DuckyBlender/duck-summarizer/internal/summarize"
	"github.com/DuckyBlender/duck-summarizer/internal/telegram"
	"github.com/DuckyBlender/duck-summarizer/pkg/logger"
)

func newRootCmd() *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:          "duck-summarizer",
		Short:        "Telegram bot that summarizes recent chat messages via Groq",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(debug)
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "verbose console logging")
	return cmd
}

func run(debug bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(debug)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	st := store.NewStore(cfg.HistoryCapacity)
	// The HTTP timeout must outlast the long-poll hold.
	tg := telegram.NewClient(cfg.TelegramAPIBase, time.Duration(cfg.PollTimeout+20)*time.Second, cfg.SendRate)
	gq := groq.NewClient(cfg.GroqAPIKey, cfg.GroqURL, cfg.GroqModel, 120*time.Second)
	rt := router.New(st, summarize.NewGroqSummarizer(gq), tg, log)

	b := bot.New(tg, rt, bot.Options{
		PollTimeout:        cfg.PollTimeout,
		SleepInterval:      time.Duration(cfg.SleepSeconds) * time.Second,
		DropPending:        cfg.DropPending,
		PendingWindow:      time.Duration(cfg.PendingWindow) * time.Second,
		PendingMaxMessages: cfg.PendingMax,
		BreakerThreshold:   5,
		BreakerCooldown:    30 * time.Second,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" && cfg.MetricsAddr != "disabled" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		log.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
	}

	log.Info("bot running",
		zap.String("model", cfg.GroqModel),
		zap.Int("history_capacity", cfg.HistoryCapacity),
	)

	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutting down")
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
