// Package gclick provides a client for the G-Click email dispatch API.
package gclick

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
	defaultBaseURL  = "https://api.gclick.com.br/v1"
	defaultCooldown = 60 * time.Second
)

// Client defines the email dispatch operations used by the pipeline.
type Client interface {
	// SendEmail dispatches one templated message.
	SendEmail(ctx context.Context, msg Message) (*SendResult, error)
	// EmailStatus fetches delivery state for a sent message. Returns
	// nil when the dispatcher does not know the identifier.
	EmailStatus(ctx context.Context, messageID string) (*DeliveryStatus, error)
	// HealthCheck reports whether the API answers its health endpoint.
	HealthCheck(ctx context.Context) bool
}

// Message is the request body for POST /emails/send.
type Message struct {
	To          []Recipient       `json:"to"`
	Subject     string            `json:"subject"`
	HTMLContent string            `json:"html_content"`
	Sender      Sender            `json:"sender"`
	TemplateID  string            `json:"template_id,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Tracking    Tracking          `json:"tracking"`
	CustomData  map[string]string `json:"custom_data,omitempty"`
}

// Recipient is one destination address.
type Recipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Sender is the identity a message is sent as.
type Sender struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Tracking toggles engagement tracking on a message.
type Tracking struct {
	Opens       bool `json:"opens"`
	Clicks      bool `json:"clicks"`
	Unsubscribe bool `json:"unsubscribe"`
}

// SendResult reports delivery acceptance.
type SendResult struct {
	MessageID string `json:"message_id"`
}

// DeliveryStatus is the dispatcher's view of a sent message.
type DeliveryStatus struct {
	MessageID   string     `json:"message_id"`
	Status      string     `json:"status"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	OpenedAt    *time.Time `json:"opened_at,omitempty"`
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

// WithCooldown overrides the rate-limit cooldown (60s by default).
func WithCooldown(d time.Duration) Option {
	return func(c *httpClient) { c.cooldown = d }
}

type httpClient struct {
	token    string
	baseURL  string
	cooldown time.Duration
	http     *http.Client
}

// NewClient creates a G-Click client.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:    token,
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

func (c *httpClient) SendEmail(ctx context.Context, msg Message) (*SendResult, error) {
	return gateway.Do(ctx, c.cooldown, func(ctx context.Context) (*SendResult, error) {
		body, status, err := c.do(ctx, http.MethodPost, "/emails/send", msg)
		if err != nil {
			return nil, err
		}

		switch status {
		case http.StatusOK:
			var result SendResult
			if err := json.Unmarshal(body, &result); err != nil {
				return nil, eris.Wrap(err, "gclick: unmarshal send response")
			}
			return &result, nil
		case http.StatusUnauthorized:
			return nil, &gateway.AuthError{Service: "gclick", Message: string(body)}
		case http.StatusTooManyRequests:
			return nil, &gateway.RateLimitedError{Service: "gclick"}
		default:
			return nil, &gateway.CallError{Service: "gclick", StatusCode: status, Body: string(body)}
		}
	})
}

func (c *httpClient) EmailStatus(ctx context.Context, messageID string) (*DeliveryStatus, error) {
	return gateway.Do(ctx, c.cooldown, func(ctx context.Context) (*DeliveryStatus, error) {
		body, status, err := c.do(ctx, http.MethodGet, "/emails/"+messageID+"/status", nil)
		if err != nil {
			return nil, err
		}

		switch status {
		case http.StatusOK:
			var ds DeliveryStatus
			if err := json.Unmarshal(body, &ds); err != nil {
				return nil, eris.Wrap(err, "gclick: unmarshal status response")
			}
			return &ds, nil
		case http.StatusNotFound:
			return nil, nil
		case http.StatusUnauthorized:
			return nil, &gateway.AuthError{Service: "gclick", Message: string(body)}
		case http.StatusTooManyRequests:
			return nil, &gateway.RateLimitedError{Service: "gclick"}
		default:
			return nil, &gateway.CallError{Service: "gclick", StatusCode: status, Body: string(body)}
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
			return nil, 0, eris.Wrap(err, "gclick: marshal request")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, 0, eris.Wrap(err, "gclick: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "leads-cli/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, &gateway.CallError{Service: "gclick", Body: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, eris.Wrap(err, "gclick: read response body")
	}
	return body, resp.StatusCode, nil
}
