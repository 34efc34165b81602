// Package server exposes the inbound HTTP surface: the GitHub webhook
// endpoint and a health check.
package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v71/github"
	log "github.com/sirupsen/logrus"

	"github.com/chiefai/reviewer/internal/usecase/events"
)

var logger = log.WithField("package", "server")

// queuedEvents are accepted onto the durable queue instead of being handled
// inline. Reviews must survive restarts and run one at a time.
var queuedEvents = map[string]bool{
	"pull_request":        true,
	"pull_request_review": true,
}

// Enqueuer persists a webhook delivery for the worker.
type Enqueuer interface {
	Enqueue(ctx context.Context, kind string, payload []byte) (string, error)
}

// Server wires the gin engine, signature validation, and event routing.
type Server struct {
	engine *gin.Engine
	secret []byte
	queue  Enqueuer
	router *events.Router
}

// New constructs the HTTP server. An empty webhook secret disables
// signature validation, which is only sensible in local development.
func New(webhookSecret string, queue Enqueuer, router *events.Router) *Server {
	s := &Server{
		engine: gin.New(),
		queue:  queue,
		router: router,
	}
	if webhookSecret != "" {
		s.secret = []byte(webhookSecret)
	}

	s.engine.Use(gin.Recovery())
	s.engine.GET("/healthz", s.health)
	s.engine.POST("/github/webhook", s.webhook)
	return s
}

// Engine exposes the underlying gin engine, for tests and for Run.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	logger.WithField("addr", addr).Info("http server listening")
	return s.engine.Run(addr)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// webhook validates the delivery signature, then either enqueues the event
// for the review worker or routes it inline in the background.
func (s *Server) webhook(c *gin.Context) {
	eventType := github.WebHookType(c.Request)
	if eventType == "" {
		logger.Warn("rejected webhook: missing X-GitHub-Event header")
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Missing X-GitHub-Event header"})
		return
	}

	payload, err := github.ValidatePayload(c.Request, s.secret)
	if err != nil {
		logger.WithError(err).WithField("event", eventType).
			Warn("rejected webhook: signature validation failed")
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid signature"})
		return
	}

	logger.WithField("event", eventType).Info("webhook accepted")

	if queuedEvents[eventType] {
		if _, err := s.queue.Enqueue(c.Request.Context(), eventType, payload); err != nil {
			logger.WithError(err).Error("failed to enqueue review task")
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to queue event"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	// Non-review events are routed best-effort in the background; the
	// response does not wait for them.
	go s.routeInline(eventType, payload)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) routeInline(eventType string, payload []byte) {
	event, err := github.ParseWebHook(eventType, payload)
	if err != nil {
		logger.WithError(err).WithField("event", eventType).Error("failed to parse webhook payload")
		return
	}
	if err := s.router.Dispatch(context.Background(), eventType, event); err != nil {
		logger.WithError(err).WithField("event", eventType).Error("event handler failed")
	}
}
