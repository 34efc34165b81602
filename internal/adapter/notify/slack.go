package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/chiefai/reviewer/internal/domain"
)

// slackAPI is the slice of the Slack client we call.
type slackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackNotifier posts notifications as colored attachments to a channel.
// An unconfigured notifier reports every send as skipped.
type SlackNotifier struct {
	api     slackAPI
	channel string
}

// NewSlackNotifier constructs a notifier for the given bot token.
func NewSlackNotifier(botToken, channel string) *SlackNotifier {
	var api slackAPI
	if botToken != "" {
		api = slack.New(botToken)
	}
	return &SlackNotifier{api: api, channel: channel}
}

// SetAPI replaces the Slack client, for tests.
func (s *SlackNotifier) SetAPI(api slackAPI) {
	s.api = api
}

func (s *SlackNotifier) enabled() bool {
	return s.api != nil && s.channel != ""
}

// Notify sends one message. Failures are logged and reported as false,
// never propagated.
func (s *SlackNotifier) Notify(ctx context.Context, n domain.Notification) bool {
	if !s.enabled() {
		logger.Debug("slack notifier disabled, skipping")
		return false
	}

	attachment := slack.Attachment{
		Title:     n.Title,
		TitleLink: n.URL,
		Text:      n.Message,
		Color:     fmt.Sprintf("#%06x", n.Color),
	}
	if n.Author != "" {
		attachment.AuthorName = n.Author
	}

	if _, _, err := s.api.PostMessageContext(ctx, s.channel,
		slack.MsgOptionAttachments(attachment)); err != nil {
		logger.WithError(err).Error("slack API rejected notification")
		return false
	}
	return true
}
