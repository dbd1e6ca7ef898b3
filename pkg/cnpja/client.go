// Package cnpja provides a client for the CNPJá company registry API.
package cnpja

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/ikasa-digital/leads-cli/internal/gateway"
)

const (
	defaultBaseURL  = "https://api.cnpja.com"
	defaultCooldown = 60 * time.Second
)

// Client defines the registry operations used by the pipeline.
type Client interface {
	// Search returns raw offices founded inside the query window.
	Search(ctx context.Context, q Query) ([]Office, error)
	// Lookup fetches one office by tax ID. Returns nil when the
	// registry does not know the identifier.
	Lookup(ctx context.Context, taxID string) (*Office, error)
	// HealthCheck reports whether the API answers its health endpoint.
	HealthCheck(ctx context.Context) bool
}

// Query filters a Search call by founding-date window and state.
type Query struct {
	FoundedGTE string // inclusive lower bound, YYYY-MM-DD
	FoundedLTE string // inclusive upper bound, YYYY-MM-DD
	State      string // two-letter state filter, e.g. "MA"
	Limit      int
}

// Office is one raw registry record, exactly as the API returns it.
type Office struct {
	TaxID        string       `json:"taxId"`
	Company      CompanyInfo  `json:"company"`
	Founded      string       `json:"founded"`
	TradeName    string       `json:"alias"`
	Emails       []Email      `json:"emails"`
	Phones       []Phone      `json:"phones"`
	Address      Address      `json:"address"`
	MainActivity MainActivity `json:"mainActivity"`
	Situation    string       `json:"situacao"`
}

// CompanyInfo carries the legal entity fields nested under "company".
type CompanyInfo struct {
	Name string `json:"name"`
}

// Email is one registered contact address.
type Email struct {
	Address string `json:"address"`
	Domain  string `json:"domain"`
}

// Phone is one registered phone number, split into area and subscriber.
type Phone struct {
	Area   string `json:"area"`
	Number string `json:"number"`
}

// Address is the registered establishment address.
type Address struct {
	Street   string `json:"street"`
	Number   string `json:"number"`
	Details  string `json:"details"`
	District string `json:"district"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zip      string `json:"zip"`
}

// MainActivity is the primary registered activity (CNAE).
type MainActivity struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

type searchResponse struct {
	Records []Office `json:"records"`
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

// WithRateLimit installs a client-side limiter applied before every
// request, so polite pacing happens before the server has to 429 us.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *httpClient) { c.limiter = rate.NewLimiter(r, burst) }
}

type httpClient struct {
	token    string
	baseURL  string
	cooldown time.Duration
	limiter  *rate.Limiter
	http     *http.Client
}

// NewClient creates a CNPJá registry client.
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

func (c *httpClient) Search(ctx context.Context, q Query) ([]Office, error) {
	return gateway.Do(ctx, c.cooldown, func(ctx context.Context) ([]Office, error) {
		params := url.Values{}
		params.Set("founded.gte", q.FoundedGTE)
		params.Set("founded.lte", q.FoundedLTE)
		if q.State != "" {
			params.Set("address.state.in", q.State)
		}
		limit := q.Limit
		if limit <= 0 {
			limit = 10
		}
		params.Set("limit", strconv.Itoa(limit))

		body, status, err := c.get(ctx, "/office?"+params.Encode())
		if err != nil {
			return nil, err
		}
		if err := c.classify(status, body); err != nil {
			return nil, err
		}

		var resp searchResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, eris.Wrap(err, "cnpja: unmarshal search response")
		}
		return resp.Records, nil
	})
}

func (c *httpClient) Lookup(ctx context.Context, taxID string) (*Office, error) {
	return gateway.Do(ctx, c.cooldown, func(ctx context.Context) (*Office, error) {
		body, status, err := c.get(ctx, "/office/"+url.PathEscape(taxID))
		if err != nil {
			return nil, err
		}
		if status == http.StatusNotFound {
			return nil, nil
		}
		if err := c.classify(status, body); err != nil {
			return nil, err
		}

		var office Office
		if err := json.Unmarshal(body, &office); err != nil {
			return nil, eris.Wrap(err, "cnpja: unmarshal office")
		}
		return &office, nil
	})
}

func (c *httpClient) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, status, err := c.get(ctx, "/health")
	return err == nil && status == http.StatusOK
}

// get issues one GET and returns the body and status without
// classifying it. Transport failures come back as CallError.
func (c *httpClient) get(ctx context.Context, path string) ([]byte, int, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, 0, eris.Wrap(err, "cnpja: rate limiter wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, 0, eris.Wrap(err, "cnpja: create request")
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "leads-cli/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, &gateway.CallError{Service: "cnpja", Body: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, eris.Wrap(err, "cnpja: read response body")
	}
	return body, resp.StatusCode, nil
}

// classify applies the shared status policy for non-success codes.
func (c *httpClient) classify(status int, body []byte) error {
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized:
		return &gateway.AuthError{Service: "cnpja", Message: string(body)}
	case http.StatusTooManyRequests:
		return &gateway.RateLimitedError{Service: "cnpja"}
	default:
		return &gateway.CallError{Service: "cnpja", StatusCode: status, Body: string(body)}
	}
}
