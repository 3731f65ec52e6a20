package kickbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/conversn-io/seniorsimple-sub006/internal/entity"
)

type Client struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	http    *http.Client
}

func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
	}
}

type verifyResponse struct {
	Result     string `json:"result"`
	Reason     string `json:"reason"`
	Role       bool   `json:"role"`
	Disposable bool   `json:"disposable"`
	DidYouMean string `json:"did_you_mean"`
	Success    bool   `json:"success"`
	Message    string `json:"message"`
}

func (c *Client) VerifyEmail(ctx context.Context, email string) (entity.EmailVerification, error) {
	if c.apiKey == "" {
		return entity.EmailVerification{}, entity.ErrNotConfigured
	}

	q := url.Values{}
	q.Set("email", email)
	q.Set("apikey", c.apiKey)
	if c.timeout > 0 {
		// Kickbox stops its SMTP probe after this many milliseconds.
		q.Set("timeout", strconv.FormatInt(c.timeout.Milliseconds(), 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/verify?"+q.Encode(), nil)
	if err != nil {
		return entity.EmailVerification{}, fmt.Errorf("build kickbox request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return entity.EmailVerification{}, fmt.Errorf("kickbox verify: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return entity.EmailVerification{}, fmt.Errorf("%w: kickbox rejected api key (status %d)", entity.ErrNotConfigured, resp.StatusCode)
	default:
		return entity.EmailVerification{}, fmt.Errorf("kickbox verify status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out verifyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return entity.EmailVerification{}, fmt.Errorf("decode kickbox response: %w", err)
	}
	if !out.Success && out.Message != "" {
		return entity.EmailVerification{}, fmt.Errorf("kickbox verify: %s", out.Message)
	}

	return entity.EmailVerification{
		Classification: classify(out),
		Reason:         out.Reason,
		DidYouMean:     out.DidYouMean,
	}, nil
}

func classify(r verifyResponse) entity.EmailClassification {
	switch {
	case r.Disposable:
		return entity.EmailDisposable
	case r.Result == "undeliverable":
		return entity.EmailBad
	case r.Role:
		return entity.EmailRoleBased
	case r.Result == "deliverable":
		return entity.EmailOK
	default:
		// risky and unknown
		return entity.EmailUnknown
	}
}
