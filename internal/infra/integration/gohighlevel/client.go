package gohighlevel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/conversn-io/seniorsimple-sub006/internal/entity"
)

// Client posts leads to a GoHighLevel inbound webhook. It is the
// "crmWebhook" destination of the dispatcher.
type Client struct {
	webhookURL string
	apiKey     string
	shape      string
	http       *http.Client
}

func NewClient(webhookURL, apiKey, shape string, timeout time.Duration) *Client {
	if shape != ShapeFlat {
		shape = ShapeNested
	}
	return &Client{
		webhookURL: webhookURL,
		apiKey:     apiKey,
		shape:      shape,
		http:       &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() entity.Destination {
	return entity.DestinationCRMWebhook
}

func (c *Client) Configured() bool {
	return c != nil && c.webhookURL != ""
}

func (c *Client) Deliver(ctx context.Context, lead *entity.LeadSubmission) (string, error) {
	if !c.Configured() {
		return "", entity.ErrNotConfigured
	}

	payload, err := json.Marshal(Project(lead, c.shape))
	if err != nil {
		return "", fmt.Errorf("%w: encode ghl payload: %v", entity.ErrRejected, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build ghl request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ghl webhook: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return resultID(resp, body, lead.SessionID), nil
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("ghl webhook status %d: %s", resp.StatusCode, snippet(body))
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return "", fmt.Errorf("%w: ghl webhook status %d: %s", entity.ErrRejected, resp.StatusCode, snippet(body))
	default:
		return "", fmt.Errorf("ghl webhook status %d: %s", resp.StatusCode, snippet(body))
	}
}

// resultID prefers an id echoed by the webhook and falls back to the request
// id header, then to the session id.
func resultID(resp *http.Response, body []byte, sessionID string) string {
	var echoed struct {
		ID        string `json:"id"`
		ContactID string `json:"contactId"`
		Contact   struct {
			ID string `json:"id"`
		} `json:"contact"`
	}
	if json.Unmarshal(body, &echoed) == nil {
		for _, id := range []string{echoed.ContactID, echoed.Contact.ID, echoed.ID} {
			if id != "" {
				return id
			}
		}
	}
	if id := resp.Header.Get("X-Request-Id"); id != "" {
		return id
	}
	return "ghl:" + sessionID
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
