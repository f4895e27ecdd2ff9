// Package server serves the web front end of the grammar corrector.
//
// Endpoints:
//   - GET  /         - the correction form
//   - POST /correct  - run a correction, streams NDJSON snapshots
//   - GET  /state    - latest snapshot
//   - GET  /healthz  - Ollama reachability
//   - ANY  /api/*    - reverse proxy to the Ollama host
package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"grammar-ollama/internal/clipboard"
	"grammar-ollama/internal/correct"
	"grammar-ollama/internal/diff"
)

const (
	EndPointIndex   = "/"
	EndPointCorrect = "/correct"
	EndPointState   = "/state"
	EndPointHealth  = "/healthz"
	EndPointProxy   = "/api/*path"

	// MaxPromptSize bounds the request body of /correct
	MaxPromptSize = 1 << 20
)

//go:embed templates/index.html
var templates embed.FS

// HealthChecker reports whether the model host is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server is the HTTP front end around one correction session
type Server struct {
	session *correct.Session
	health  HealthChecker
	target  *url.URL
	log     *zap.Logger
	engine  *gin.Engine
}

// New builds the server and its routes. target is the Ollama host the /api
// prefix is proxied to.
func New(session *correct.Session, health HealthChecker, target *url.URL, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}

	tpl, err := template.ParseFS(templates, "templates/index.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		session: session,
		health:  health,
		target:  target,
		log:     log,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), accessLog(log))
	engine.SetHTMLTemplate(tpl)

	engine.GET(EndPointIndex, s.handleIndex)
	engine.POST(EndPointCorrect, s.handleCorrect)
	engine.GET(EndPointState, s.handleState)
	engine.GET(EndPointHealth, s.handleHealth)
	engine.Any(EndPointProxy, gin.WrapH(newProxy(target, log)))

	s.engine = engine
	return s, nil
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr), zap.String("proxy_target", s.target.String()))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type indexData struct {
	Configured      bool
	CorrectPath     string
	ClassAdded      string
	ClassRemoved    string
	CopyResetMillis int64
}

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", indexData{
		Configured:      s.session.Configured(),
		CorrectPath:     EndPointCorrect,
		ClassAdded:      diff.ClassAdded,
		ClassRemoved:    diff.ClassRemoved,
		CopyResetMillis: clipboard.ResetAfter.Milliseconds(),
	})
}

// CorrectRequest is the body of POST /correct
type CorrectRequest struct {
	Prompt string `json:"prompt"`
}

// Event is one line of the /correct stream
type Event struct {
	correct.Snapshot
	CanSubmit bool   `json:"can_submit"`
	DiffHTML  string `json:"diff_html,omitempty"`
}

func (s *Server) newEvent(snap correct.Snapshot) Event {
	ev := Event{Snapshot: snap, CanSubmit: snap.CanSubmit()}
	if snap.Status == correct.StatusSuccess {
		rendered, err := diff.RenderHTML(snap.Diff)
		if err != nil {
			s.log.Warn("failed to render diff", zap.String("id", snap.ID), zap.Error(err))
		}
		ev.DiffHTML = rendered
	}
	return ev
}

func (s *Server) handleCorrect(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxPromptSize)

	var req CorrectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if req.Prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prompt is required"})
		return
	}

	streaming := false
	observe := func(snap correct.Snapshot) {
		if !streaming {
			streaming = true
			c.Header("Content-Type", "application/x-ndjson")
			c.Header("Cache-Control", "no-cache")
			c.Status(http.StatusOK)
		}
		if err := writeStreamChunk(c.Writer, s.newEvent(snap)); err != nil {
			s.log.Debug("failed to write stream chunk", zap.Error(err))
		}
	}

	err := s.session.Submit(c.Request.Context(), req.Prompt, observe)
	switch {
	case errors.Is(err, correct.ErrNoModel):
		c.Status(http.StatusNoContent)
	case errors.Is(err, correct.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	}
}

func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, s.newEvent(s.session.Snapshot()))
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.health.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// newProxy forwards requests unchanged to target, rewriting the Host header
// to the target's so virtual-hosted upstreams accept them.
func newProxy(target *url.URL, log *zap.Logger) *httputil.ReverseProxy {
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.FlushInterval = -1

	director := proxy.Director
	proxy.Director = func(req *http.Request) {
		director(req)
		req.Host = target.Host
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Warn("proxy request failed", zap.String("path", r.URL.Path), zap.Error(err))
		w.WriteHeader(http.StatusBadGateway)
	}

	return proxy
}
