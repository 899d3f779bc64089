// Package api serves the status and control endpoints used by the dashboard
// and by manual triggers.
package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stoicbot/assets"
	"stoicbot/pipeline"
	"stoicbot/state"
	"stoicbot/store"
	"stoicbot/types"
)

// Server exposes the bot over HTTP.
type Server struct {
	status     *state.Manager
	store      store.Store
	images     *assets.ImagePool
	orch       *pipeline.Orchestrator
	httpServer *http.Server
}

func NewServer(status *state.Manager, st store.Store, images *assets.ImagePool, orch *pipeline.Orchestrator, port string) *Server {
	s := &Server{
		status: status,
		store:  st,
		images: images,
		orch:   orch,
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", s.handleHealth)
	r.GET("/api/status", s.handleStatus)
	r.GET("/api/runs", s.handleRuns)
	r.GET("/api/assets/stats", s.handleAssetStats)
	r.POST("/api/run", s.handleTriggerRun)

	s.httpServer = &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	return s
}

// Start serves in a background goroutine.
func (s *Server) Start() {
	log.Printf("status API listening on %s", s.httpServer.Addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("shutting down status API...")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleStatus(c *gin.Context) {
	resp := s.status.GetStatus()
	if n, err := s.store.ReadCounter(c.Request.Context()); err == nil {
		resp.PostCount = n
	}
	c.JSON(http.StatusOK, resp)
}

// handleRuns returns the run log for one day; ?date=YYYY-MM-DD, today by
// default.
func (s *Server) handleRuns(c *gin.Context) {
	day := time.Now()
	if dateStr := c.Query("date"); dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		day = parsed
	}

	runs, err := s.store.RunsForDay(c.Request.Context(), day)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []types.RunRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"date": store.DayKey(day), "runs": runs})
}

func (s *Server) handleAssetStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.images.Stats())
}

// handleTriggerRun starts a pipeline run in the background. A run already
// in progress answers 409 instead of queueing.
func (s *Server) handleTriggerRun(c *gin.Context) {
	var req struct {
		Format string `json:"format"`
		Theme  string `json:"theme"`
	}
	// An empty body means default options.
	_ = c.ShouldBindJSON(&req)

	opts := pipeline.RunOptions{Theme: req.Theme}
	switch req.Format {
	case "":
	case string(types.FormatReel), string(types.FormatCarousel), string(types.FormatFlash), string(types.FormatAnimated):
		opts.Format = types.Format(req.Format)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown format: " + req.Format})
		return
	}

	busy := s.status.GetState()
	if busy != types.StateIdle && busy != types.StateComplete && busy != types.StateError {
		c.JSON(http.StatusConflict, gin.H{"error": "a run is already in progress", "state": busy})
		return
	}

	go func() {
		if _, err := s.orch.Run(context.Background(), opts); err != nil {
			if errors.Is(err, pipeline.ErrRunInProgress) {
				log.Printf("manual trigger skipped: run already in progress")
				return
			}
			log.Printf("manual run failed: %v", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"message": "run started"})
}
