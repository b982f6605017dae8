package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"daily_trend_digest/pipeline"
	"daily_trend_digest/scheduler"
)

// Scheduler is the part of the daily scheduler the server drives.
type Scheduler interface {
	Trigger() bool
	Status() scheduler.Status
}

// RunHistory exposes the most recent pipeline run.
type RunHistory interface {
	Last() (pipeline.RunResult, bool)
}

// Server is a small operations API next to the scheduler: health, status, manual runs
// and a preview of the last report.
type Server struct {
	sched  Scheduler
	runs   RunHistory
	logger *slog.Logger
}

func New(sched Scheduler, runs RunHistory, logger *slog.Logger) (*Server, error) {
	if sched == nil || runs == nil {
		return nil, errors.New("scheduler and run history required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{sched: sched, runs: runs, logger: logger}, nil
}

func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), logMiddleware(s.logger))
	r.GET("/healthz", s.handleHealth)

	api := r.Group("/api")
	{
		api.GET("/status", s.handleStatus)
		api.POST("/runs", s.handleTrigger)
		api.GET("/report", s.handleReport)
	}
	return r
}

// --- Handlers ---

type lastRunResp struct {
	ID              string    `json:"id"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	Topics          []string  `json:"topics"`
	Sections        int       `json:"sections"`
	Dropped         []string  `json:"dropped"`
	SummaryFailures []string  `json:"summary_failures"`
	PublishStatus   string    `json:"publish_status"`
	PublishReason   string    `json:"publish_reason,omitempty"`
	Error           string    `json:"error,omitempty"`
}

type statusResp struct {
	Running bool         `json:"running"`
	Runs    int          `json:"runs"`
	LastRun *time.Time   `json:"last_run,omitempty"`
	NextRun *time.Time   `json:"next_run,omitempty"`
	Last    *lastRunResp `json:"last,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStatus(c *gin.Context) {
	st := s.sched.Status()
	resp := statusResp{
		Running: st.Running,
		Runs:    st.Runs,
		LastRun: timePtr(st.LastRun),
		NextRun: timePtr(st.NextRun),
	}
	if last, ok := s.runs.Last(); ok {
		lr := toLastRunResp(last)
		resp.Last = &lr
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleTrigger(c *gin.Context) {
	if !s.sched.Trigger() {
		c.JSON(http.StatusConflict, gin.H{"queued": false, "error": "a run is already queued"})
		return
	}
	s.logger.Info("manual run queued", "remote", c.ClientIP())
	c.JSON(http.StatusAccepted, gin.H{"queued": true})
}

func (s *Server) handleReport(c *gin.Context) {
	last, ok := s.runs.Last()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no run has finished yet"})
		return
	}
	if c.Query("format") == "markdown" {
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(last.Report.Markdown()))
		return
	}
	html, err := last.Report.HTML()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// --- Helpers ---

func toLastRunResp(r pipeline.RunResult) lastRunResp {
	out := lastRunResp{
		ID:              r.ID,
		StartedAt:       r.StartedAt,
		FinishedAt:      r.FinishedAt,
		Topics:          r.Topics,
		Sections:        len(r.Report.Sections),
		Dropped:         r.Dropped,
		SummaryFailures: r.SummaryFailures,
		PublishStatus:   r.Publish.Status.String(),
		PublishReason:   r.Publish.Reason,
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func logMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start).String())
	}
}
