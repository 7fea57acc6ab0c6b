package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"share2care/internal/ports/output"
)

// Webhook posts notices to a Discord webhook. A zero-configured Webhook
// reports output.ErrNotifierUnavailable so a Chain falls through.
type Webhook struct {
	session   *discordgo.Session
	webhookID string
	token     string
	now       func() time.Time
	log       zerolog.Logger
}

var _ output.Notifier = (*Webhook)(nil)

// NewWebhook parses a https://discord.com/api/webhooks/{id}/{token} URL.
// An empty URL yields a disabled notifier.
func NewWebhook(webhookURL string, logger zerolog.Logger) (*Webhook, error) {
	w := &Webhook{now: time.Now, log: logger.With().Str("component", "discord_webhook").Logger()}
	if strings.TrimSpace(webhookURL) == "" {
		return w, nil
	}
	id, token, err := parseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}
	s, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	w.session, w.webhookID, w.token = s, id, token
	return w, nil
}

// Enabled reports whether a webhook is configured.
func (w *Webhook) Enabled() bool {
	return w.session != nil
}

// Notify posts event-level notices to the shared channel. Notices about a
// person's account are declined so a chain hands them to the in-page inbox.
func (w *Webhook) Notify(ctx context.Context, n output.Notice) error {
	if !w.Enabled() {
		return output.ErrNotifierUnavailable
	}
	if n.Kind != output.NoticeEventApproved {
		return fmt.Errorf("%w: %s notices are not posted to a shared channel", output.ErrNotifierUnavailable, n.Kind)
	}
	params := &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{buildNoticeEmbed(n, w.now())},
	}
	if _, err := w.session.WebhookExecute(w.webhookID, w.token, false, params, discordgo.WithContext(ctx)); err != nil {
		w.log.Warn().Err(err).Str("kind", n.Kind).Msg("webhook delivery failed")
		return fmt.Errorf("discord webhook: %w", err)
	}
	w.log.Debug().Str("kind", n.Kind).Int64("event_id", n.EventID).Msg("notice delivered")
	return nil
}

func parseWebhookURL(raw string) (id, token string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("webhook url: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", errors.New("webhook url: expected .../webhooks/{id}/{token}")
}
