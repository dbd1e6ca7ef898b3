// Package fourc provides a client for the 4C CRM leads API.
package fourc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ikasa-digital/leads-cli/internal/gateway"
)

const (
	defaultBaseURL  = "https://api.4c.crm.com/v1"
	defaultCooldown = 30 * time.Second
)

// Client defines the CRM operations used by the pipeline.
type Client interface {
	// CreateLead registers a lead. A conflict on an existing lead is
	// not an error: the result carries the existing ID instead.
	CreateLead(ctx context.Context, lead LeadPayload) (*CreateResult, error)
	// UpdateLead patches an existing lead.
	UpdateLead(ctx context.Context, leadID string, fields map[string]any) error
	// GetLead fetches one lead. Returns nil when the CRM does not
	// know the identifier.
	GetLead(ctx context.Context, leadID string) (*Lead, error)
	// HealthCheck reports whether the API answers its health endpoint.
	HealthCheck(ctx context.Context) bool
}

// LeadPayload is the request body for POST /leads.
type LeadPayload struct {
	Source       string            `json:"source"`
	Status       string            `json:"status"`
	Priority     string            `json:"priority"`
	Company      LeadCompany       `json:"company"`
	Tags         []string          `json:"tags"`
	CustomFields map[string]string `json:"custom_fields"`
}

// LeadCompany is the company sub-object of a lead payload.
type LeadCompany struct {
	TaxID        string `json:"cnpj"`
	Name         string `json:"name"`
	TradeName    string `json:"trade_name,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Address      string `json:"address,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zip_code,omitempty"`
	OpeningDate  string `json:"opening_date"`
	MainActivity string `json:"main_activity"`
	Status       string `json:"status"`
}

// CreateResult reports the outcome of a CreateLead call.
type CreateResult struct {
	ID            string
	AlreadyExists bool
}

// Lead is the CRM's view of a registered lead.
type Lead struct {
	ID           string            `json:"id"`
	Source       string            `json:"source"`
	Status       string            `json:"status"`
	Priority     string            `json:"priority"`
	Company      LeadCompany       `json:"company"`
	Tags         []string          `json:"tags"`
	CustomFields map[string]string `json:"custom_fields"`
}

type createResponse struct {
	ID         string `json:"id"`
	LeadID     string `json:"lead_id"`
	ExistingID string `json:"existing_id"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithCooldown overrides the rate-limit cooldown (30s by default).
func WithCooldown(d time.Duration) Option {
	return func(c *httpClient) { c.cooldown = d }
}

type httpClient struct {
	apiKey   string
	baseURL  string
	cooldown time.Duration
	http     *http.Client
}

// NewClient creates a 4C CRM client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:   apiKey,
		baseURL:  defaultBaseURL,
		cooldown: defaultCooldown,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) CreateLead(ctx context.Context, lead LeadPayload) (*CreateResult, error) {
	return gateway.Do(ctx, c.cooldown, func(ctx context.Context) (*CreateResult, error) {
		body, status, err := c.do(ctx, http.MethodPost, "/leads", lead)
		if err != nil {
			return nil, err
		}

		switch status {
		case http.StatusCreated:
			var resp createResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, eris.Wrap(err, "fourc: unmarshal create response")
			}
			id := resp.ID
			if id == "" {
				id = resp.LeadID
			}
			return &CreateResult{ID: id}, nil
		case http.StatusConflict:
			var resp createResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, eris.Wrap(err, "fourc: unmarshal conflict response")
			}
			return &CreateResult{ID: resp.ExistingID, AlreadyExists: true}, nil
		case http.StatusUnauthorized:
			return nil, &gateway.AuthError{Service: "fourc", Message: string(body)}
		case http.StatusTooManyRequests:
			return nil, &gateway.RateLimitedError{Service: "fourc"}
		default:
			return nil, &gateway.CallError{Service: "fourc", StatusCode: status, Body: string(body)}
		}
	})
}

func (c *httpClient) UpdateLead(ctx context.Context, leadID string, fields map[string]any) error {
	_, err := gateway.Do(ctx, c.cooldown, func(ctx context.Context) (struct{}, error) {
		body, status, err := c.do(ctx, http.MethodPut, "/leads/"+leadID, fields)
		if err != nil {
			return struct{}{}, err
		}

		switch status {
		case http.StatusOK:
			return struct{}{}, nil
		case http.StatusUnauthorized:
			return struct{}{}, &gateway.AuthError{Service: "fourc", Message: string(body)}
		case http.StatusTooManyRequests:
			return struct{}{}, &gateway.RateLimitedError{Service: "fourc"}
		default:
			return struct{}{}, &gateway.CallError{Service: "fourc", StatusCode: status, Body: string(body)}
		}
	})
	return err
}

func (c *httpClient) GetLead(ctx context.Context, leadID string) (*Lead, error) {
	return gateway.Do(ctx, c.cooldown, func(ctx context.Context) (*Lead, error) {
		body, status, err := c.do(ctx, http.MethodGet, "/leads/"+leadID, nil)
		if err != nil {
			return nil, err
		}

		switch status {
		case http.StatusOK:
			var lead Lead
			if err := json.Unmarshal(body, &lead); err != nil {
				return nil, eris.Wrap(err, "fourc: unmarshal lead")
			}
			return &lead, nil
		case http.StatusNotFound:
			return nil, nil
		case http.StatusUnauthorized:
			return nil, &gateway.AuthError{Service: "fourc", Message: string(body)}
		case http.StatusTooManyRequests:
			return nil, &gateway.RateLimitedError{Service: "fourc"}
		default:
			return nil, &gateway.CallError{Service: "fourc", StatusCode: status, Body: string(body)}
		}
	})
}

func (c *httpClient) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, status, err := c.do(ctx, http.MethodGet, "/health", nil)
	return err == nil && status == http.StatusOK
}

func (c *httpClient) do(ctx context.Context, method, path string, payload any) ([]byte, int, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, eris.Wrap(err, "fourc: marshal request")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, 0, eris.Wrap(err, "fourc: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "leads-cli/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, &gateway.CallError{Service: "fourc", Body: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, eris.Wrap(err, "fourc: read response body")
	}
	return body, resp.StatusCode, nil
}
