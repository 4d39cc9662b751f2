package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/syncline-io/approvalsync/internal/bitable"
	"github.com/syncline-io/approvalsync/internal/bootstrap"
	"github.com/syncline-io/approvalsync/internal/checkpoint"
	"github.com/syncline-io/approvalsync/internal/config"
	"github.com/syncline-io/approvalsync/internal/dingtalk"
	"github.com/syncline-io/approvalsync/internal/domain"
	"github.com/syncline-io/approvalsync/internal/logger"
	"github.com/syncline-io/approvalsync/internal/metrics"
	"github.com/syncline-io/approvalsync/internal/notify"
	"github.com/syncline-io/approvalsync/internal/syncer"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath string
		initMode   bool
		fullCheck  bool
		startArg   string
		endArg     string
	)
	flag.StringVar(&configPath, "config", config.DefaultConfigPath, "path to the config file")
	flag.StringVar(&configPath, "c", config.DefaultConfigPath, "path to the config file (shorthand)")
	flag.BoolVar(&initMode, "init", false, "sync the last 7 days")
	flag.BoolVar(&fullCheck, "full-check", false, "sync the last 30 days")
	flag.StringVar(&startArg, "start-time", "", "explicit window start (YYYY-MM-DD HH:MM:SS)")
	flag.StringVar(&endArg, "end-time", "", "explicit window end (YYYY-MM-DD HH:MM:SS)")
	flag.Parse()

	// Time arguments are validated before any sync work so a typo cannot
	// burn a run.
	opts := syncer.Options{Mode: domain.ModeIncremental}
	if initMode {
		opts.Mode = domain.ModeInit
	}
	if fullCheck {
		opts.Mode = domain.ModeFullCheck
	}
	if startArg != "" {
		t, err := time.ParseInLocation(domain.TimeLayout, startArg, time.Local)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --start-time %q, expected format %s\n", startArg, domain.TimeLayout)
			return 1
		}
		opts.Start = t
	}
	if endArg != "" {
		t, err := time.ParseInLocation(domain.TimeLayout, endArg, time.Local)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --end-time %q, expected format %s\n", endArg, domain.TimeLayout)
			return 1
		}
		opts.End = t
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	logFile, err := bootstrap.SetupLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		return 1
	}
	defer logFile.Close()

	ctx := logger.WithRunID(context.Background(), logger.GenerateRunID())

	source := dingtalk.NewClient(dingtalk.Config{
		AppKey:     cfg.DingTalk.AppKey,
		AppSecret:  cfg.DingTalk.AppSecret,
		BaseURL:    cfg.DingTalk.BaseURL,
		MaxRetries: cfg.Sync.MaxRetries,
	})
	dest := bitable.NewClient(bitable.Config{
		AppID:      cfg.Feishu.AppID,
		AppSecret:  cfg.Feishu.AppSecret,
		AppToken:   cfg.Feishu.AppToken,
		BaseURL:    cfg.Feishu.BaseURL,
		MaxRetries: cfg.Sync.MaxRetries,
	})
	ckpt, err := checkpoint.NewStore(cfg.Sync.CheckpointFile)
	if err != nil {
		logger.FromContext(ctx).Error("failed to initialize checkpoint store", "error", err)
		return 1
	}
	notifier := notify.NewWebhook(cfg.Notification.WebhookURL, cfg.Notification.Enabled)

	engine := syncer.NewService(source, dest, ckpt, notifier, syncer.Config{
		MainTable:    cfg.Feishu.Tables.Main,
		ActionTable:  cfg.Feishu.Tables.Action,
		BatchSize:    cfg.Sync.BatchSize,
		DefaultHours: cfg.Sync.DefaultHours,
		ProcessCode:  cfg.Sync.ProcessCode,
		Statuses:     cfg.Sync.Statuses,
	})

	_, runErr := engine.Run(ctx, opts)

	if err := metrics.PushToGateway(cfg.Metrics.PushgatewayURL, cfg.Metrics.JobName); err != nil {
		logger.FromContext(ctx).Warn("failed to push metrics", "error", err)
	}

	if runErr != nil {
		slog.Error("sync run failed", "error", runErr)
		return 1
	}
	return 0
}
