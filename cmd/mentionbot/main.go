package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mentionbot/pkg/config"
	"github.com/mentionbot/pkg/dedup"
	"github.com/mentionbot/pkg/pipeline"
	"github.com/mentionbot/pkg/portfolio"
	"github.com/mentionbot/pkg/publish"
	"github.com/mentionbot/pkg/reply"
	"github.com/mentionbot/pkg/retry"
	"github.com/mentionbot/pkg/server"
	"github.com/mentionbot/pkg/twitter"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()
	log.Info().Msg("💬 mention bot starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	// Configuration problems are fatal before any mention is touched.
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config invalid")
	}

	var store pipeline.DedupStore
	if cfg.DedupDBPath != "" {
		s, err := dedup.NewSQLiteStore(cfg.DedupDBPath)
		if err != nil {
			log.Fatal().Err(err).Msg("dedup store init failed")
		}
		defer s.Close()
		store = s
	} else {
		store = dedup.NewStore()
	}

	pipe := pipeline.New(
		store,
		portfolio.New(cfg),
		reply.NewGenerator(cfg),
		publish.New(cfg),
		pipeline.Options{
			RetryPolicy:   retry.DefaultPolicy(cfg.RetryAttempts),
			BatchBudget:   cfg.BatchBudget,
			CallTimeout:   cfg.RequestTimeout,
			EnrichTimeout: cfg.EnrichTimeout,
		},
	)

	searcher := twitter.NewSearcher(cfg)
	srv := server.New(cfg, pipe, searcher, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() { <-sigCh; log.Info().Msg("shutting down..."); cancel() }()

	var sched *cron.Cron
	if cfg.PollSchedule != "" {
		sched = cron.New()
		_, err := sched.AddFunc(cfg.PollSchedule, func() {
			res := srv.RunBatch(ctx)
			log.Info().Str("status", res.Status).Int("processed", res.ProcessedCount).Int64("elapsed_ms", res.ElapsedMillis).Msg("scheduled batch done")
		})
		if err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.PollSchedule).Msg("invalid poll schedule")
		}
		sched.Start()
		defer sched.Stop()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	printSummary(cfg)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server error")
		}
	}
	log.Info().Msg("goodbye 👋")
}

func printSummary(cfg *config.Config) {
	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)

	fmt.Println("\n" + strings.Repeat("═", 60))
	bold.Println("  💬 MENTION BOT - RUNNING")
	fmt.Println(strings.Repeat("═", 60))
	cyan.Printf("  Handle:    @%s\n", cfg.BotHandle)
	cyan.Printf("  Webhook:   http://localhost:%d/webhook\n", cfg.ListenPort)
	cyan.Printf("  Trigger:   POST http://localhost:%d/run\n", cfg.ListenPort)
	if cfg.PollSchedule != "" {
		cyan.Printf("  Schedule:  %s\n", cfg.PollSchedule)
	}
	provider := "OpenAI"
	if cfg.AnthropicAPIKey != "" {
		provider = "Anthropic Claude"
	}
	cyan.Printf("  AI:        ✅ %s\n", provider)
	dedupMode := "in-memory (24h window, forgotten on restart)"
	if cfg.DedupDBPath != "" {
		dedupMode = "sqlite: " + cfg.DedupDBPath
	}
	cyan.Printf("  Dedup:     %s\n", dedupMode)
	fmt.Println(strings.Repeat("═", 60) + "\n")
}
