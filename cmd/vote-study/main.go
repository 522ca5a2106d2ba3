// Command vote-study crawls every completed Clawbr debate and prints aggregate voting
// statistics as a JSON document on standard output. Progress and diagnostics go to
// standard error.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/rewired-gh/votestudy/internal/clawbr"
	"github.com/rewired-gh/votestudy/internal/config"
	"github.com/rewired-gh/votestudy/internal/logger"
	"github.com/rewired-gh/votestudy/internal/pipeline"
	"github.com/rewired-gh/votestudy/internal/report"
	"github.com/rewired-gh/votestudy/internal/telegram"
)

var configPath = flag.String("config", "configs/vote-study.yaml", "Path to optional configuration file")

func main() {
	flag.Parse()

	// Load configuration; a missing file means built-in defaults
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	runID := uuid.New().String()
	logger.SetRunID(runID)
	logger.Debug("Configuration: base_url=%s page_size=%d request_delay=%v concurrency=%d",
		cfg.API.BaseURL, cfg.API.PageSize, cfg.API.RequestDelay, cfg.API.Concurrency)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, aborting run...")
		cancel()
	}()

	client := clawbr.NewClient(cfg.API.BaseURL, clawbr.ClientConfig{
		PageSize: cfg.API.PageSize,
		Timeout:  cfg.API.Timeout,
	})

	runner := pipeline.New(client, pipeline.Options{
		Concurrency:  cfg.API.Concurrency,
		RequestDelay: cfg.API.RequestDelay,
	})

	start := time.Now()
	res, err := runner.Run(ctx)
	if err != nil {
		logger.Error("Vote study failed: %v", err)
		os.Exit(1)
	}

	rep := report.Build(res.Aggregator, res.TotalDebates, cfg.Report.Thresholds(), time.Now())

	if err := report.Write(os.Stdout, rep); err != nil {
		logger.Error("Failed to write report: %v", err)
		os.Exit(1)
	}
	logger.Info("Vote study completed in %v", time.Since(start).Round(time.Millisecond))

	if cfg.Telegram.Enabled {
		notify(cfg.Telegram, rep, runID)
	} else {
		logger.Debug("Telegram notifications disabled")
	}
}

// notify posts the summary; failures are logged only
func notify(tc config.TelegramConfig, rep *report.Report, runID string) {
	tg, err := telegram.NewClient(tc.BotToken, tc.ChatID, tc.MaxRetries, tc.RetryDelayBase)
	if err != nil {
		logger.Warn("Failed to initialize Telegram client: %v", err)
		return
	}
	if err := tg.Send(rep, runID); err != nil {
		logger.Warn("Failed to send Telegram notification: %v", err)
		return
	}
	logger.Info("Sent Telegram summary")
}
