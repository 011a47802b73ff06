package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgrange/loanpipe/internal/api"
	"github.com/dgrange/loanpipe/internal/classify"
	"github.com/dgrange/loanpipe/internal/config"
	"github.com/dgrange/loanpipe/internal/confidence"
	"github.com/dgrange/loanpipe/internal/crossdoc"
	"github.com/dgrange/loanpipe/internal/extract"
	"github.com/dgrange/loanpipe/internal/pipeline"
	"github.com/dgrange/loanpipe/internal/schema"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Wire the pipeline components.
	extractors := []extract.Extractor{
		extract.NewPersonalStatementExtractor(log, cfg.PDFFallbackPdftotext),
		extract.NewFinancialStatementExtractor(log, cfg.PDFFallbackPdftotext),
		extract.NewDebtScheduleExtractor(log, cfg.PDFFallbackPdftotext),
	}

	var claude *extract.ClaudeClient
	var llmStats *extract.LLMStats
	if cfg.AnthropicAPIKey != "" {
		claude = extract.NewClaudeClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		llmStats = extract.NewLLMStats(5 * time.Minute)
		extractors = append(extractors, extract.NewLLMExtractor(claude, llmStats, log, cfg.PDFFallbackPdftotext))
	} else {
		log.Info("no anthropic api key configured, tax return extraction disabled")
	}

	pipeCfg := pipeline.Config{
		WorkerCount:       cfg.WorkerCount,
		ParallelEnabled:   cfg.ParallelEnabled,
		MaxFileSize:       cfg.MaxFileSize,
		ExcludePatterns:   cfg.ExcludePatterns,
		OutputPath:        cfg.OutputPath,
		PdftotextFallback: cfg.PDFFallbackPdftotext,
		StageTimeout:      cfg.StageTimeout,
	}

	orch := pipeline.NewOrchestrator(
		pipeCfg,
		classify.New(log, cfg.PDFFallbackPdftotext),
		extract.NewRegistry(log, extractors...),
		confidence.NewScorer(confidence.DefaultConfig(), log),
		schema.NewMapper(log),
		crossdoc.NewValidator(log),
		log,
	)

	svc := pipeline.NewService(orch, cfg.JobTTL, cfg.MaxQueueSize, log)
	svc.Start(ctx)

	srv := api.NewServer(svc, llmStats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		svc.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if claude != nil {
			claude.Close()
		}
	}()

	log.Info("starting loanpipe", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
