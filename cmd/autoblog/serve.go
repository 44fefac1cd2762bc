package main

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"autoblog/internal/api"
	"autoblog/internal/bot"
	"autoblog/internal/model"
	"autoblog/internal/runner"
	"autoblog/internal/scheduler"
)

func serveCmd(envFiles *[]string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler with the configured bot and HTTP surfaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(*envFiles)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			var (
				run      *runner.Runner
				notifier runner.Notifier
				b        *bot.Bot
			)
			if a.cfg.TelegramBotToken != "" {
				trigger := bot.TriggerFunc(func(ctx context.Context, id int64) (*model.RunReport, error) {
					return run.RunNow(ctx, id)
				})
				b, err = bot.New(a.cfg.TelegramBotToken, a.store, trigger, a.cfg, a.log)
				if err != nil {
					return err
				}
				notifier = b
			}

			run, err = a.newRunner(notifier)
			if err != nil {
				return err
			}

			sched := scheduler.New(a.store, run, a.cfg.ScheduleSpec, a.cfg.CampaignWorkers, a.log)

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error { return sched.Run(ctx) })
			if b != nil {
				g.Go(func() error {
					b.Run(ctx)
					return nil
				})
			}
			if a.cfg.HTTPAddr != "" {
				srv := api.NewServer(a.store, run, a.log)
				g.Go(func() error { return srv.Run(ctx, a.cfg.HTTPAddr) })
			}

			a.log.Info("autoblog started",
				"target", a.cfg.PublishTarget,
				"bot", b != nil,
				"http_addr", a.cfg.HTTPAddr)

			err = g.Wait()
			a.log.Info("autoblog stopped")
			return err
		},
	}
}
