package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"chatbridge/internal/domain"
)

const discordAPIBase = "https://discord.com/api"

// Webhook posts to a Discord channel through an incoming webhook, so
// each post can carry its own username and avatar. Posting with
// wait=true makes Discord return the created message, whose id is what
// deletes are addressed to later.
type Webhook struct {
	id     string
	token  string
	base   string
	client *http.Client
	logger *slog.Logger
}

// NewWebhook parses a Discord webhook URL of the usual
// .../api/webhooks/{id}/{token} shape.
func NewWebhook(rawURL string, client *http.Client, logger *slog.Logger) (*Webhook, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse webhook URL: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return nil, fmt.Errorf("webhook URL missing id/token: %s", u.Path)
	}
	id, token := parts[len(parts)-2], parts[len(parts)-1]
	if id == "" || token == "" {
		return nil, fmt.Errorf("webhook URL missing id/token: %s", u.Path)
	}
	return &Webhook{
		id:     id,
		token:  token,
		base:   discordAPIBase,
		client: client,
		logger: logger,
	}, nil
}

type webhookBody struct {
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Content   string `json:"content,omitempty"`
}

// Post publishes one message under the given identity and returns the
// created message id, or "" when Discord's response omits one.
func (w *Webhook) Post(ctx context.Context, post domain.WebhookPost) (string, error) {
	endpoint := fmt.Sprintf("%s/webhooks/%s/%s?wait=true", w.base, w.id, w.token)
	body := webhookBody{
		Username:  post.Username,
		AvatarURL: post.AvatarURL,
		Content:   post.Content,
	}

	var req *http.Request
	var err error
	if post.FilePath == "" {
		req, err = w.jsonRequest(ctx, endpoint, body)
	} else {
		req, err = w.multipartRequest(ctx, endpoint, body, post.FilePath)
	}
	if err != nil {
		return "", err
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("webhook post: status %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &created); err != nil {
		w.logger.Warn("webhook response not decodable", "err", err)
		return "", nil
	}
	return created.ID, nil
}

// DeletePost removes a message previously created through this webhook.
func (w *Webhook) DeletePost(ctx context.Context, postID string) error {
	endpoint := fmt.Sprintf("%s/webhooks/%s/%s/messages/%s", w.base, w.id, w.token, postID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build webhook delete: %w", err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delete: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return fmt.Errorf("webhook delete: status %d: %s", resp.StatusCode, truncate(raw, 200))
	}
	return nil
}

func (w *Webhook) jsonRequest(ctx context.Context, endpoint string, body webhookBody) (*http.Request, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build webhook post: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (w *Webhook) multipartRequest(ctx context.Context, endpoint string, body webhookBody, filePath string) (*http.Request, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open attachment: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode webhook payload: %w", err)
	}
	if err := mw.WriteField("payload_json", string(payload)); err != nil {
		return nil, fmt.Errorf("write payload part: %w", err)
	}

	part, err := mw.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return nil, fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("write file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("build webhook post: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
