// HTTP API for running analyses and browsing run history.
//
// Information Hiding:
// - Route table and middleware hidden behind Handler
// - Status code mapping for pipeline outcomes hidden

package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/richinex/seoscout/logging"
	"github.com/richinex/seoscout/storage"
)

const defaultListLimit = 20

// AnalyzeRequest is the body of POST /api/analyze.
type AnalyzeRequest struct {
	Target string `json:"target" binding:"required"`
	Query  string `json:"query"`
}

// AnalyzeResponse is returned by POST /api/analyze.
type AnalyzeResponse struct {
	RunID     string `json:"runId"`
	Report    any    `json:"report"`
	Narrative string `json:"narrative,omitempty"`
	Warning   string `json:"warning,omitempty"`
}

// Server exposes an Analyzer and its run store over HTTP.
type Server struct {
	engine   *gin.Engine
	analyzer *Analyzer
	store    storage.RunStore
	logger   *slog.Logger
}

// NewServer builds the API routes.
func NewServer(analyzer *Analyzer, store storage.RunStore) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	engine.Use(cors.New(corsConfig))

	s := &Server{
		engine:   engine,
		analyzer: analyzer,
		store:    store,
		logger:   logging.New("server"),
	}
	engine.Use(s.requestLogger())

	engine.GET("/healthz", s.health)
	api := engine.Group("/api")
	api.POST("/analyze", s.analyze)
	api.GET("/runs", s.listRuns)
	api.GET("/runs/:id", s.getRun)

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("elapsed", time.Since(start)))
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// analyze answers 200 for a completed run and 502 for a run that stopped
// at a failing stage; the partial report is included either way.
func (s *Server) analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := s.analyzer.Analyze(c.Request.Context(), req.Target, req.Query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := AnalyzeResponse{RunID: out.Run.ID, Report: out.Report, Narrative: out.Narrative}
	if out.NarrativeErr != nil {
		resp.Warning = "narrative unavailable: " + out.NarrativeErr.Error()
	}

	status := http.StatusOK
	if out.Err != nil {
		status = http.StatusBadGateway
	}
	c.JSON(status, resp)
}

func (s *Server) listRuns(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	runs, err := s.store.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// The list omits the bulky context and report payloads.
	for i := range runs {
		runs[i].Context = nil
		runs[i].Report = nil
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) getRun(c *gin.Context) {
	run, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, storage.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}

// Serve runs the HTTP API on addr until ctx is canceled.
func Serve(ctx context.Context, addr string, opts Options) error {
	analyzer, store, err := OpenAnalyzer(opts)
	if err != nil {
		return err
	}
	defer store.Close()

	if !opts.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           NewServer(analyzer, store).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.New("server").Info("listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
