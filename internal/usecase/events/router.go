// Package events routes parsed webhook events to their handlers. Each
// supported event kind gets its own handler; everything else falls through
// to a logging no-op.
package events

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"
)

var logger = log.WithField("package", "events")

// Handler processes one parsed webhook event.
type Handler func(ctx context.Context, event any) error

// Router dispatches events by kind (the X-GitHub-Event header value).
// The mapping is closed: it is fixed at construction and unknown kinds
// take the default arm in Dispatch.
type Router struct {
	handlers map[string]Handler
}

// NewRouter builds the dispatch table from the supplied kind-to-handler
// mapping. Kinds are matched case-insensitively.
func NewRouter(handlers map[string]Handler) *Router {
	table := make(map[string]Handler, len(handlers))
	for kind, h := range handlers {
		table[strings.ToLower(kind)] = h
	}
	return &Router{handlers: table}
}

// Dispatch runs the handler for the event kind. Unknown kinds are logged
// and acknowledged; handler errors propagate unchanged so the caller's
// retry policy can classify them.
func (r *Router) Dispatch(ctx context.Context, kind string, event any) error {
	h, ok := r.handlers[strings.ToLower(kind)]
	if !ok {
		logger.WithField("event", kind).Info("no handler registered for event, ignoring")
		return nil
	}
	logger.WithField("event", kind).Debug("routing event")
	return h(ctx, event)
}
