// Package discord delivers notifications to a Discord channel, either
// through the bot API or through a channel webhook.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fivesquad/pickup-planner-api/internal/ports/out/notifier"
)

const defaultAPIBaseURL = "https://discord.com/api/v10"

// Config selects the delivery path. When BotToken and ChannelID are both set
// the bot API is used; otherwise WebhookURL must be set.
type Config struct {
	BotToken  string
	ChannelID string

	WebhookURL string

	// APIBaseURL overrides the Discord API origin. Tests point it at a local
	// server.
	APIBaseURL string
}

// Notifier is a Discord implementation of notifier.Notifier.
type Notifier struct {
	cfg    Config
	client *http.Client
}

func NewNotifier(cfg Config, client *http.Client) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	return &Notifier{cfg: cfg, client: client}
}

type embedFooter struct {
	Text string `json:"text"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []embedField `json:"fields,omitempty"`
	Footer      *embedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type component struct {
	Type       int         `json:"type"`
	Style      int         `json:"style,omitempty"`
	Label      string      `json:"label,omitempty"`
	CustomID   string      `json:"custom_id,omitempty"`
	Components []component `json:"components,omitempty"`
}

type messagePayload struct {
	Content    string      `json:"content,omitempty"`
	Embeds     []embed     `json:"embeds"`
	Components []component `json:"components,omitempty"`
}

// Send posts the message. Bot credentials win over the webhook when both are
// configured. Buttons ride only on the bot path: custom_id components on a
// webhook message never reach the application's interactions endpoint.
func (n *Notifier) Send(ctx context.Context, msg notifier.Message, mentionEveryone bool) error {
	payload := messagePayload{Embeds: []embed{toEmbed(msg)}}
	if mentionEveryone {
		payload.Content = "@everyone"
	}

	if n.cfg.BotToken != "" && n.cfg.ChannelID != "" {
		payload.Components = toComponents(msg.Buttons)
		body, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		url := fmt.Sprintf("%s/channels/%s/messages", n.cfg.APIBaseURL, n.cfg.ChannelID)
		return n.post(ctx, url, "Bot "+n.cfg.BotToken, body)
	}
	if n.cfg.WebhookURL != "" {
		body, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		return n.post(ctx, n.cfg.WebhookURL, "", body)
	}
	return fmt.Errorf("discord notifier not configured")
}

func toComponents(buttons []notifier.Button) []component {
	if len(buttons) == 0 {
		return nil
	}
	row := component{Type: 1} // action row
	for _, b := range buttons {
		row.Components = append(row.Components, component{
			Type:     2, // button
			Style:    int(b.Style),
			Label:    b.Label,
			CustomID: b.CustomID,
		})
	}
	return []component{row}
}

func (n *Notifier) post(ctx context.Context, url, authorization string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord returned %d: %s", resp.StatusCode, string(snippet))
	}
	return nil
}

func toEmbed(msg notifier.Message) embed {
	e := embed{
		Title:       msg.Title,
		Description: msg.Description,
		URL:         msg.URL,
		Color:       msg.Color,
	}
	for _, f := range msg.Fields {
		e.Fields = append(e.Fields, embedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if msg.Footer != "" {
		e.Footer = &embedFooter{Text: msg.Footer}
	}
	if !msg.Timestamp.IsZero() {
		e.Timestamp = msg.Timestamp.UTC().Format(time.RFC3339)
	}
	return e
}
