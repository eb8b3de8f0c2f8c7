// Package api exposes the services over HTTP: compatibility checks, job
// posting analysis, policy question answering, and resume tailoring.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/nefro313/jobfit-ai-backend/logging"
	"github.com/nefro313/jobfit-ai-backend/ratelimit"
	"github.com/nefro313/jobfit-ai-backend/service"
)

// Config configures the HTTP server.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server routes API requests to the services.
type Server struct {
	ats     *service.ATSChecker
	analyse *service.JobAnalyser
	hrqa    *service.HRQA
	resume  *service.ResumeBuilder

	limiter *ratelimit.Limiter
	log     *logging.Logger

	httpServer *http.Server
}

// NewServer wires the services into an HTTP server.
func NewServer(cfg Config, ats *service.ATSChecker, analyse *service.JobAnalyser,
	hrqa *service.HRQA, resume *service.ResumeBuilder,
	limiter *ratelimit.Limiter, log *logging.Logger) *Server {

	if log == nil {
		log = logging.New()
	}
	s := &Server{
		ats:     ats,
		analyse: analyse,
		hrqa:    hrqa,
		resume:  resume,
		limiter: limiter,
		log:     log.WithComponent("api"),
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler builds the routed and middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/ats/check", s.handleATSCheck)
	mux.HandleFunc("POST /api/job/analyse", s.handleJobAnalyse)
	mux.HandleFunc("POST /api/hr/ask", s.handleHRAsk)
	mux.HandleFunc("POST /api/resume/tailor", s.handleResumeTailor)

	var handler http.Handler = mux
	handler = s.withRateLimit(handler)
	handler = s.withLogging(handler)
	handler = s.withRequestID(handler)
	return handler
}

// ListenAndServe starts the server. It blocks until the listener stops.
func (s *Server) ListenAndServe() error {
	s.log.Info("listening", map[string]interface{}{"addr": s.httpServer.Addr})
	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting new requests and drains in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
