// Package api is the HTTP trigger surface: campaign listing, on-demand runs
// and the posts stored by the local target.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"autoblog/internal/fetcher"
	"autoblog/internal/model"
	"autoblog/internal/runner"
	"autoblog/internal/storage"
)

// Store is the read side of campaign persistence.
type Store interface {
	ListCampaigns(ctx context.Context) ([]model.Campaign, error)
	GetCampaign(ctx context.Context, id int64) (*model.Campaign, error)
	ListPosts(ctx context.Context, campaignID int64) ([]model.StoredPost, error)
}

// Trigger runs a campaign on demand.
type Trigger interface {
	RunNow(ctx context.Context, campaignID int64) (*model.RunReport, error)
}

// Server serves the HTTP API.
type Server struct {
	store   Store
	trigger Trigger
	log     *slog.Logger
}

// NewServer creates a Server.
func NewServer(store Store, trigger Trigger, log *slog.Logger) *Server {
	return &Server{store: store, trigger: trigger, log: log}
}

// Handler builds the gin engine with all routes registered.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	s.RegisterRoutes(r)
	return r
}

// RegisterRoutes adds the API routes to r.
func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", s.health)

	r.GET("/campaigns", s.listCampaigns)
	r.GET("/campaigns/:id", s.getCampaign)
	r.POST("/campaigns/:id/run", s.runCampaign)
	r.GET("/campaigns/:id/posts", s.listPosts)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("http api listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listCampaigns(c *gin.Context) {
	campaigns, err := s.store.ListCampaigns(c.Request.Context())
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "internal_error", err)
		return
	}

	views := make([]campaignView, 0, len(campaigns))
	for i := range campaigns {
		views = append(views, newCampaignView(&campaigns[i]))
	}
	ok(c, views)
}

func (s *Server) getCampaign(c *gin.Context) {
	id, valid := campaignID(c)
	if !valid {
		return
	}

	campaign, err := s.store.GetCampaign(c.Request.Context(), id)
	if err != nil {
		s.storeError(c, err)
		return
	}
	ok(c, newCampaignView(campaign))
}

func (s *Server) runCampaign(c *gin.Context) {
	id, valid := campaignID(c)
	if !valid {
		return
	}

	ctx := c.Request.Context()
	if _, err := s.store.GetCampaign(ctx, id); err != nil {
		s.storeError(c, err)
		return
	}

	report, err := s.trigger.RunNow(ctx, id)
	switch {
	case errors.Is(err, runner.ErrAlreadyRunning):
		s.fail(c, http.StatusConflict, "already_running", err)
	case errors.Is(err, fetcher.ErrFeedUnavailable):
		s.fail(c, http.StatusBadGateway, "feed_unavailable", err)
	case err != nil:
		s.fail(c, http.StatusInternalServerError, "internal_error", err)
	default:
		ok(c, newReportView(report))
	}
}

func (s *Server) listPosts(c *gin.Context) {
	id, valid := campaignID(c)
	if !valid {
		return
	}

	posts, err := s.store.ListPosts(c.Request.Context(), id)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "internal_error", err)
		return
	}

	views := make([]postView, 0, len(posts))
	for _, p := range posts {
		views = append(views, newPostView(p))
	}
	ok(c, views)
}

func campaignID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "bad_request",
			"message": fmt.Sprintf("invalid campaign id %q", c.Param("id")),
		})
		return 0, false
	}
	return id, true
}

func (s *Server) storeError(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "message": "campaign not found"})
		return
	}
	s.fail(c, http.StatusInternalServerError, "internal_error", err)
}

func (s *Server) fail(c *gin.Context, status int, code string, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Error("http handler", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"code": code, "message": err.Error()})
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    data,
	})
}
