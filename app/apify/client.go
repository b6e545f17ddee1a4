package apify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "https://api.apify.com/v2"
	defaultHTTPTimeout = 5 * time.Minute
)

// ErrDatasetNotReady signals that the remote dataset has not been
// materialized yet. It is retried internally by FetchItems and never
// escapes to callers.
var ErrDatasetNotReady = errors.New("dataset not ready")

// APIError is returned for non-retryable API responses. Callers can
// inspect StatusCode to distinguish caller errors from remote failures.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("apify: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client wraps the Apify REST API: actor runs and dataset access.
type Client struct {
	token      string
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// Option customizes the Apify client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the default API base (useful for tests/mocks).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithUserAgent sets the User-Agent header on outgoing requests.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// NewClient constructs an Apify API client.
func NewClient(token string, opts ...Option) *Client {
	client := &Client{
		token:      strings.TrimSpace(token),
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Run describes an actor run as reported by the control-plane API.
type Run struct {
	ID               string `json:"id"`
	ActorID          string `json:"actId"`
	Status           string `json:"status"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

// Webhook describes an ad-hoc webhook registered together with an
// actor run.
type Webhook struct {
	EventTypes      []string `json:"eventTypes"`
	RequestURL      string   `json:"requestUrl"`
	PayloadTemplate string   `json:"payloadTemplate,omitempty"`
}

// StartActor starts an actor run with the given input. Webhooks are
// attached via the base64-encoded webhooks query parameter.
func (c *Client) StartActor(ctx context.Context, actorID string, input map[string]interface{}, webhooks []Webhook) (*Run, error) {
	if actorID == "" {
		return nil, errors.New("apify: actor ID required")
	}

	endpoint := fmt.Sprintf("%s/acts/%s/runs?token=%s", c.baseURL, actorID, c.token)
	if len(webhooks) > 0 {
		encoded, err := json.Marshal(webhooks)
		if err != nil {
			return nil, fmt.Errorf("apify: encode webhooks: %w", err)
		}
		endpoint += "&webhooks=" + base64.StdEncoding.EncodeToString(encoded)
	}

	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("apify: encode run input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("apify: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setUserAgent(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("apify: start actor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, newAPIError(resp)
	}

	run, err := decodeRun(resp.Body)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// GetRun resolves a run handle. There is no retry here: an unknown run
// ID is a caller error, not a transient condition.
func (c *Client) GetRun(ctx context.Context, runID string) (*Run, error) {
	if runID == "" {
		return nil, errors.New("apify: run ID required")
	}

	endpoint := fmt.Sprintf("%s/actor-runs/%s?token=%s", c.baseURL, runID, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("apify: create request: %w", err)
	}
	c.setUserAgent(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("apify: get run: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp)
	}

	run, err := decodeRun(resp.Body)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// FetchItems lists all items of a dataset. The dataset is populated
// asynchronously by the actor, so a not-found response is treated as
// "not ready yet" and retried with growing delays. Any other error
// class fails immediately. After maxAttempts the dataset is considered
// unrecoverable for this run and an empty item list is returned so the
// pipeline can proceed degraded.
func (c *Client) FetchItems(ctx context.Context, datasetID string, maxAttempts int, baseDelay time.Duration) ([]byte, error) {
	if datasetID == "" {
		return nil, errors.New("apify: dataset ID required")
	}

	delay := baseDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		data, err := c.listItems(ctx, datasetID)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, ErrDatasetNotReady) {
			return nil, err
		}

		slog.Warn("Dataset not ready",
			"dataset", datasetID,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"delay", delay.String())

		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay = delay * 3 / 2
	}

	slog.Error("Dataset never materialized, proceeding without records",
		"dataset", datasetID, "attempts", maxAttempts)
	return []byte("[]"), nil
}

func (c *Client) listItems(ctx context.Context, datasetID string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/datasets/%s/items?token=%s", c.baseURL, datasetID, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("apify: create request: %w", err)
	}
	c.setUserAgent(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("apify: list items: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("apify: read items: %w", err)
		}
		return data, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrDatasetNotReady
	default:
		return nil, newAPIError(resp)
	}
}

func (c *Client) setUserAgent(req *http.Request) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
}

func decodeRun(r io.Reader) (*Run, error) {
	var wrapper struct {
		Data Run `json:"data"`
	}
	if err := json.NewDecoder(r).Decode(&wrapper); err != nil {
		return nil, fmt.Errorf("apify: decode run: %w", err)
	}
	if wrapper.Data.ID == "" {
		return nil, errors.New("apify: run response missing ID")
	}
	return &wrapper.Data, nil
}

func newAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &APIError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}
