package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v71/github"
	log "github.com/sirupsen/logrus"

	"github.com/chiefai/reviewer/internal/domain"
)

// IssuesHandler announces issue activity to the notification backends.
type IssuesHandler struct {
	notifier Notifier
}

// NewIssuesHandler constructs an IssuesHandler.
func NewIssuesHandler(notifier Notifier) *IssuesHandler {
	return &IssuesHandler{notifier: notifier}
}

// Handle sends one notification per issue event, orange for opened and red
// for everything else.
func (h *IssuesHandler) Handle(ctx context.Context, event *github.IssuesEvent) error {
	action := event.GetAction()
	issue := event.GetIssue()
	repoFullName := event.GetRepo().GetFullName()
	author := issue.GetUser().GetLogin()

	logger.WithFields(log.Fields{
		"repo":   repoFullName,
		"issue":  issue.GetNumber(),
		"action": action,
	}).Info("processing issues event")

	color := colorRed
	if action == "opened" {
		color = colorOrange
	}

	h.notifier.Notify(ctx, domain.Notification{
		Title:   fmt.Sprintf("🐛 Issue %s", capitalize(action)),
		Message: fmt.Sprintf("**[%s]** Issue #%d: %s\nAction by: %s", repoFullName, issue.GetNumber(), issue.GetTitle(), author),
		Color:   color,
		Author:  author,
		URL:     issue.GetHTMLURL(),
	})
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
