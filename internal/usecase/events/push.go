package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v71/github"
	log "github.com/sirupsen/logrus"

	"github.com/chiefai/reviewer/internal/domain"
)

const (
	colorBlue   = 3447003
	colorGreen  = 3066993
	colorOrange = 15105570
	colorRed    = 10038562

	maxCommitsShown = 3
	shortSHALen     = 7
)

// Notifier is the outbound notification port.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) bool
}

// PushHandler announces pushes to the notification backends.
type PushHandler struct {
	notifier Notifier
}

// NewPushHandler constructs a PushHandler.
func NewPushHandler(notifier Notifier) *PushHandler {
	return &PushHandler{notifier: notifier}
}

// Handle formats and sends a push summary showing at most the first three
// commits.
func (h *PushHandler) Handle(ctx context.Context, event *github.PushEvent) error {
	ref := event.GetRef()
	pusher := event.GetPusher().GetName()
	repoFullName := event.GetRepo().GetFullName()
	commits := event.Commits

	logger.WithFields(log.Fields{
		"repo":    repoFullName,
		"ref":     ref,
		"commits": len(commits),
	}).Info("processing push event")

	var b strings.Builder
	fmt.Fprintf(&b, "**%s** pushed %d commits to `%s`.\n\n", pusher, len(commits), ref)
	for i, commit := range commits {
		if i == maxCommitsShown {
			break
		}
		fmt.Fprintf(&b, "• `%s` %s\n", shortSHA(commit.GetID()), commit.GetMessage())
	}
	if len(commits) > maxCommitsShown {
		fmt.Fprintf(&b, "...and %d more commits.", len(commits)-maxCommitsShown)
	}

	h.notifier.Notify(ctx, domain.Notification{
		Title:   fmt.Sprintf("🚀 New Push to %s", repoFullName),
		Message: b.String(),
		Color:   colorGreen,
		Author:  pusher,
	})
	return nil
}

func shortSHA(sha string) string {
	if len(sha) > shortSHALen {
		return sha[:shortSHALen]
	}
	return sha
}
