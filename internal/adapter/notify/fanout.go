package notify

import (
	"context"

	"github.com/chiefai/reviewer/internal/domain"
)

// Backend is one notification destination.
type Backend interface {
	Notify(ctx context.Context, n domain.Notification) bool
}

// Fanout delivers each notification to every configured backend. It reports
// success when at least one backend accepted the message.
type Fanout struct {
	backends []Backend
}

// NewFanout constructs a fanout over the given backends.
func NewFanout(backends ...Backend) *Fanout {
	return &Fanout{backends: backends}
}

// Notify sends to all backends. Backends that fail or are disabled do not
// stop delivery to the others.
func (f *Fanout) Notify(ctx context.Context, n domain.Notification) bool {
	delivered := false
	for _, b := range f.backends {
		if b.Notify(ctx, n) {
			delivered = true
		}
	}
	return delivered
}
