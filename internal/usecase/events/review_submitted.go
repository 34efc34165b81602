package events

import (
	"context"
	"fmt"

	"github.com/google/go-github/v71/github"
	log "github.com/sirupsen/logrus"

	"github.com/chiefai/reviewer/internal/domain"
)

// ReviewSubmittedHandler announces human pull request reviews to the
// notification backends. These deliveries ride the durable queue like
// pull_request events, but they only produce activity notifications.
type ReviewSubmittedHandler struct {
	notifier Notifier
}

// NewReviewSubmittedHandler constructs a ReviewSubmittedHandler.
func NewReviewSubmittedHandler(notifier Notifier) *ReviewSubmittedHandler {
	return &ReviewSubmittedHandler{notifier: notifier}
}

// Handle notifies about a submitted review. Other actions (edited,
// dismissed) are acknowledged without a notification.
func (h *ReviewSubmittedHandler) Handle(ctx context.Context, event *github.PullRequestReviewEvent) error {
	action := event.GetAction()
	review := event.GetReview()
	pr := event.GetPullRequest()
	repoFullName := event.GetRepo().GetFullName()

	logger.WithFields(log.Fields{
		"repo":   repoFullName,
		"pr":     pr.GetNumber(),
		"action": action,
		"state":  review.GetState(),
	}).Info("processing pull_request_review event")

	if action != "submitted" {
		return nil
	}

	state := review.GetState()
	color := colorBlue
	switch state {
	case "approved":
		color = colorGreen
	case "changes_requested":
		color = colorRed
	}

	h.notifier.Notify(ctx, domain.Notification{
		Title: fmt.Sprintf("📝 Pull Request Review %s", capitalize(reviewStateLabel(state))),
		Message: fmt.Sprintf("**[%s]** PR #%d: %s\n**%s** %s the pull request.",
			repoFullName, pr.GetNumber(), pr.GetTitle(),
			review.GetUser().GetLogin(), reviewStateVerb(state)),
		Color:  color,
		Author: review.GetUser().GetLogin(),
		URL:    review.GetHTMLURL(),
	})
	return nil
}

func reviewStateLabel(state string) string {
	if state == "changes_requested" {
		return "changes requested"
	}
	return state
}

func reviewStateVerb(state string) string {
	switch state {
	case "approved":
		return "approved"
	case "changes_requested":
		return "requested changes on"
	default:
		return "commented on"
	}
}
