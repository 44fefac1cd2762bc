// Package scheduler triggers campaign runs on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"autoblog/internal/model"
	"autoblog/internal/runner"
)

// CampaignLister lists campaigns eligible for scheduling.
type CampaignLister interface {
	ListActiveCampaigns(ctx context.Context) ([]model.Campaign, error)
}

// CampaignRunner runs a single campaign tick.
type CampaignRunner interface {
	Run(ctx context.Context, campaignID int64) (*model.RunReport, error)
}

// Scheduler sweeps active campaigns on a cron spec and runs them through a
// bounded worker pool.
type Scheduler struct {
	store   CampaignLister
	runner  CampaignRunner
	spec    string
	workers int
	log     *slog.Logger
}

// New creates a Scheduler. spec accepts standard cron expressions and
// descriptors such as "@every 1m".
func New(store CampaignLister, r CampaignRunner, spec string, workers int, log *slog.Logger) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	return &Scheduler{
		store:   store,
		runner:  r,
		spec:    spec,
		workers: workers,
		log:     log,
	}
}

// Run sweeps once immediately, then on every schedule tick until ctx is
// cancelled. Overlapping sweeps are skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(s.spec, func() { s.sweep(ctx) }); err != nil {
		return fmt.Errorf("parse schedule %q: %w", s.spec, err)
	}

	s.sweep(ctx)
	c.Start()
	s.log.Info("scheduler started", "spec", s.spec, "workers", s.workers)

	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) sweep(ctx context.Context) {
	campaigns, err := s.store.ListActiveCampaigns(ctx)
	if err != nil {
		s.log.Error("list active campaigns", "error", err)
		return
	}

	var g errgroup.Group
	g.SetLimit(s.workers)
	for _, c := range campaigns {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			s.runCampaign(ctx, c)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Scheduler) runCampaign(ctx context.Context, c model.Campaign) {
	report, err := s.runner.Run(ctx, c.ID)
	switch {
	case errors.Is(err, runner.ErrAlreadyRunning), errors.Is(err, runner.ErrInactive):
		s.log.Debug("campaign not run", "campaign_id", c.ID, "reason", err)
	case err != nil:
		s.log.Error("run campaign", "campaign_id", c.ID, "name", c.Name, "error", err)
	case report.Skipped:
		s.log.Debug("campaign not due", "campaign_id", c.ID)
	case report.Published > 0:
		s.log.Info("campaign published items", "campaign_id", c.ID, "name", c.Name, "count", report.Published)
	}
}
