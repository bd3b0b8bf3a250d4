// Package webhook delivers the finished report to a Feishu-style chat
// webhook.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type message struct {
	MsgType string  `json:"msg_type"`
	Content content `json:"content"`
}

type content struct {
	Text string `json:"text"`
}

type response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Client posts text messages to a single webhook URL.
type Client struct {
	webhookURL string
	httpClient *http.Client
}

func NewClient(webhookURL string) *Client {
	return &Client{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SendText posts a plain text message. A non-zero code in the webhook's
// response body is a delivery failure even when HTTP status is 200.
func (c *Client) SendText(ctx context.Context, text string) error {
	body, err := json.Marshal(message{
		MsgType: "text",
		Content: content{Text: text},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var parsed response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.Code != 0 {
		return fmt.Errorf("webhook rejected message: %d - %s", parsed.Code, parsed.Msg)
	}

	return nil
}

// SendStandupReport wraps the report with a header and generation
// timestamp before delivery.
func (c *Client) SendStandupReport(ctx context.Context, report string, generatedAt time.Time) error {
	text := fmt.Sprintf("📋 Daily Standup Report\n%s\n\n⏰ Generated: %s",
		report, generatedAt.Format("2006-01-02 15:04:05 MST"))
	return c.SendText(ctx, text)
}
