package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"autoblog/internal/config"
	"autoblog/internal/extract"
	"autoblog/internal/fetcher"
	"autoblog/internal/filter"
	"autoblog/internal/image"
	"autoblog/internal/publish"
	"autoblog/internal/rewrite"
	"autoblog/internal/runner"
	"autoblog/internal/storage"
)

// app holds what every subcommand needs: configuration, logger and store.
type app struct {
	cfg   *config.Config
	log   *slog.Logger
	store *storage.SQLite
}

func newApp(envFiles []string) (*app, error) {
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create data directory %s: %w", dir, err)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.DatabasePath, err)
	}

	return &app{cfg: cfg, log: log, store: store}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// newRunner wires the pipeline stages. notifier may be nil.
func (a *app) newRunner(notifier runner.Notifier) (*runner.Runner, error) {
	client := http.DefaultClient
	ua := a.cfg.UserAgent

	target, images, err := a.newTarget(client)
	if err != nil {
		return nil, err
	}

	deps := runner.Deps{
		Store:     a.store,
		Fetcher:   fetcher.New(client, ua),
		Extractor: extract.New(client, ua),
		Filter:    filter.NewPipeline(a.cfg.SiteURL),
		Rewriter: rewrite.New(client, a.log,
			rewrite.NewOpenAI(a.cfg.OpenAIKey, a.cfg.OpenAIModel),
			rewrite.NewGemini(a.cfg.GeminiKey, a.cfg.GeminiModel),
			rewrite.NewAnthropic(a.cfg.AnthropicKey, a.cfg.AnthropicModel),
		),
		Images:   images,
		Target:   target,
		Notifier: notifier,
	}
	return runner.New(deps, a.cfg.ItemWorkers, a.log), nil
}

func (a *app) newTarget(client *http.Client) (runner.PublishTarget, runner.ImageResolver, error) {
	switch a.cfg.PublishTarget {
	case config.TargetWordPress:
		wp := publish.NewWordPress(a.cfg.WordPressURL, a.cfg.WordPressUser, a.cfg.WordPressAppPassword,
			client, a.cfg.UserAgent, a.cfg.PublishRate, a.log)
		return wp, image.NewResolver(wp, a.log), nil
	default:
		if err := os.MkdirAll(a.cfg.AssetDir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("create asset directory %s: %w", a.cfg.AssetDir, err)
		}
		local := publish.NewLocal(a.store, a.cfg.AssetDir, client, a.cfg.UserAgent, a.log)
		return local, image.NewResolver(local, a.log), nil
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
