// Package twilio looks up phone numbers with Twilio Lookup v2 and the
// line_type_intelligence data package.
package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/conversn-io/seniorsimple-sub006/internal/entity"
)

type Client struct {
	accountSID string
	authToken  string
	baseURL    string
	http       *http.Client
}

func NewClient(accountSID, authToken, baseURL string, timeout time.Duration) *Client {
	return &Client{
		accountSID: accountSID,
		authToken:  authToken,
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: timeout},
	}
}

type lookupResponse struct {
	PhoneNumber          string `json:"phone_number"`
	NationalFormat       string `json:"national_format"`
	Valid                bool   `json:"valid"`
	LineTypeIntelligence *struct {
		Type        string `json:"type"`
		CarrierName string `json:"carrier_name"`
	} `json:"line_type_intelligence"`
}

func (c *Client) LookupPhone(ctx context.Context, e164 string) (entity.PhoneLookup, error) {
	if c.accountSID == "" || c.authToken == "" {
		return entity.PhoneLookup{}, entity.ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/PhoneNumbers/%s?Fields=line_type_intelligence", c.baseURL, url.PathEscape(e164))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return entity.PhoneLookup{}, fmt.Errorf("build twilio request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return entity.PhoneLookup{}, fmt.Errorf("twilio lookup: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return entity.PhoneLookup{Valid: false}, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return entity.PhoneLookup{}, fmt.Errorf("%w: twilio rejected credentials (status %d)", entity.ErrNotConfigured, resp.StatusCode)
	default:
		return entity.PhoneLookup{}, fmt.Errorf("twilio lookup status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out lookupResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return entity.PhoneLookup{}, fmt.Errorf("decode twilio lookup: %w", err)
	}

	lookup := entity.PhoneLookup{Valid: out.Valid, NationalFormat: out.NationalFormat}
	if out.LineTypeIntelligence != nil {
		lookup.LineType = out.LineTypeIntelligence.Type
		lookup.Carrier = out.LineTypeIntelligence.CarrierName
	}
	return lookup, nil
}
