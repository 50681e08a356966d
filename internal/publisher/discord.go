package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ryosukesatoh/discord-digest/internal/retry"
	"github.com/ryosukesatoh/discord-digest/internal/sentiment"
)

type discordEmbedFooter struct {
	Text string `json:"text"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Footer      *discordEmbedFooter `json:"footer,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

type discordWebhookPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

// DiscordWebhookPublisher mirrors the daily report to a Discord webhook.
type DiscordWebhookPublisher struct {
	webhookURL  string
	client      *http.Client
	retryConfig retry.Config
}

func NewDiscordWebhookPublisher(webhookURL string) *DiscordWebhookPublisher {
	return &DiscordWebhookPublisher{
		webhookURL:  webhookURL,
		client:      &http.Client{Timeout: 30 * time.Second},
		retryConfig: retry.DefaultConfig(),
	}
}

// Publish sends the report as a single embed coloured by its band.
func (d *DiscordWebhookPublisher) Publish(ctx context.Context, report *sentiment.Report) error {
	embed := buildEmbed(report)
	err := retry.WithBackoff(ctx, d.retryConfig, func(ctx context.Context) error {
		return d.sendWebhook(ctx, []discordEmbed{embed})
	})
	if err != nil {
		return fmt.Errorf("discord: failed to send webhook: %w", err)
	}
	return nil
}

func buildEmbed(report *sentiment.Report) discordEmbed {
	e := discordEmbed{
		Title:       "Crypto Fear & Greed Index",
		Description: fmt.Sprintf("%s **%d/100** · %s\n`%s`", report.Band.Emoji, report.Value, report.Band.Label, sentiment.Bar(report.Value)),
		Color:       report.Band.Color,
		Footer:      &discordEmbedFooter{Text: "Data: alternative.me"},
	}

	if delta, ok := report.Change(); ok {
		e.Fields = append(e.Fields,
			discordEmbedField{Name: "Yesterday", Value: strconv.Itoa(*report.Previous), Inline: true},
			discordEmbedField{Name: "Change", Value: fmt.Sprintf("%+d", delta), Inline: true},
		)
	}
	if !report.Timestamp.IsZero() {
		e.Timestamp = report.Timestamp.UTC().Format(time.RFC3339)
	}
	return e
}

// sendWebhook posts a batch of embeds to the Discord webhook.
func (d *DiscordWebhookPublisher) sendWebhook(ctx context.Context, embeds []discordEmbed) error {
	payload := discordWebhookPayload{Embeds: embeds}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &retry.StatusError{Code: resp.StatusCode}
	}

	return nil
}
