package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"git-actions/config"
	"git-actions/internal/action"
	"git-actions/internal/httpserver"
	"git-actions/internal/webhook"
	"git-actions/pkg/bitbucket"
	"git-actions/pkg/log"
)

// Exit codes: 0 normal shutdown, 1 configuration load error, 2 runtime
// initialisation error.
const (
	exitConfigError  = 1
	exitRuntimeError = 2
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", config.DefaultServerFile, "path to the server configuration file")
	pflag.Parse()

	// 1. Configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(exitConfigError)
	}

	// 2. Logger
	logger := log.Init(log.ZapConfig{
		Level:    cfg.Server.Logging.Level,
		Encoding: cfg.Server.Logging.Format,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infof(ctx, "starting git-actions: %d webhook(s), %d rule(s)", len(cfg.Webhooks), len(cfg.Rules))

	// 3. Action pipeline
	executor := action.NewExecutor(cfg.TemplateEnv, logger)
	scheduler := action.NewScheduler(executor, logger)

	// 4. Dispatch table
	entries := make([]*webhook.Entry, 0, len(cfg.Webhooks))
	for _, wh := range cfg.Webhooks {
		var api webhook.ChangesAPI
		if wh.API != nil {
			api = bitbucket.NewClient(bitbucket.Config{
				BaseURL: wh.API.BaseURL,
				Project: wh.API.Project,
				Repo:    wh.API.Repo,
				Token:   wh.API.Token,
			}, logger)
		}

		entry := &webhook.Entry{
			Name:    wh.Name,
			Path:    wh.Path,
			Handler: webhook.NewBitbucketHandler(wh.Token, api, logger),
		}
		for _, r := range cfg.Rules {
			if r.AppliesTo(wh.Name) {
				entry.Rules = append(entry.Rules, r)
			}
		}
		entries = append(entries, entry)
	}

	dispatcher, err := webhook.NewDispatcher(entries, scheduler, logger)
	if err != nil {
		logger.Errorf(ctx, "failed to build dispatch table: %v", err)
		os.Exit(exitConfigError)
	}

	// 5. HTTP server
	srv, err := httpserver.New(httpserver.Config{
		Logger:       logger,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		Dispatcher:   dispatcher,
		Scheduler:    scheduler,
		DrainTimeout: cfg.Server.DrainTimeout,
	})
	if err != nil {
		logger.Errorf(ctx, "failed to initialise http server: %v", err)
		os.Exit(exitRuntimeError)
	}

	// 6. Run
	if err := srv.Run(ctx); err != nil {
		logger.Errorf(ctx, "server error: %v", err)
		os.Exit(exitRuntimeError)
	}

	logger.Info(ctx, "shutdown complete")
}
