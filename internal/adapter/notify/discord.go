package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/chiefai/reviewer/internal/domain"
)

var logger = log.WithField("package", "notify")

const (
	discordAPIBase = "https://discord.com/api/v10"
	discordTimeout = 10 * time.Second
)

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	URL         string         `json:"url,omitempty"`
	Author      *discordAuthor `json:"author,omitempty"`
}

type discordAuthor struct {
	Name string `json:"name"`
}

type discordMessage struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds"`
}

// DiscordNotifier posts notifications as embeds to a channel through the
// Discord bot API. An unconfigured notifier reports every send as skipped.
type DiscordNotifier struct {
	botToken  string
	channelID string
	roleID    string
	baseURL   string
	client    *http.Client
}

// NewDiscordNotifier constructs a notifier for the given bot credentials.
func NewDiscordNotifier(botToken, channelID, roleID string) *DiscordNotifier {
	return &DiscordNotifier{
		botToken:  botToken,
		channelID: channelID,
		roleID:    roleID,
		baseURL:   discordAPIBase,
		client:    &http.Client{Timeout: discordTimeout},
	}
}

// SetBaseURL points the notifier at a different endpoint, for tests.
func (d *DiscordNotifier) SetBaseURL(url string) {
	d.baseURL = url
}

// SetHTTPClient replaces the HTTP client, for tests.
func (d *DiscordNotifier) SetHTTPClient(c *http.Client) {
	d.client = c
}

func (d *DiscordNotifier) enabled() bool {
	return d.botToken != "" && d.channelID != ""
}

// Notify sends one embed. Failures are logged and reported as false, never
// propagated; a broken notification channel must not affect the review.
func (d *DiscordNotifier) Notify(ctx context.Context, n domain.Notification) bool {
	if !d.enabled() {
		logger.Debug("discord notifier disabled, skipping")
		return false
	}

	embed := discordEmbed{
		Title:       n.Title,
		Description: n.Message,
		Color:       n.Color,
		URL:         n.URL,
	}
	if n.Author != "" {
		embed.Author = &discordAuthor{Name: n.Author}
	}

	msg := discordMessage{Embeds: []discordEmbed{embed}}
	if d.roleID != "" {
		msg.Content = fmt.Sprintf("<@&%s>", d.roleID)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		logger.WithError(err).Error("failed to marshal discord payload")
		return false
	}

	url := fmt.Sprintf("%s/channels/%s/messages", d.baseURL, d.channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		logger.WithError(err).Error("failed to build discord request")
		return false
	}
	req.Header.Set("Authorization", "Bot "+d.botToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		logger.WithError(err).Error("network error while reaching discord API")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		logger.WithFields(log.Fields{
			"status": resp.StatusCode,
			"body":   string(respBody),
		}).Error("discord API rejected notification")
		return false
	}
	return true
}
