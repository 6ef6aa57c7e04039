package koyeb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

var (
	// ErrDeploymentTimeout is returned when an app never reports healthy
	// within the configured wait.
	ErrDeploymentTimeout = errors.New("koyeb deployment timeout")
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("koyeb api key not configured")
)

const statusHealthy = "healthy"

// Options configures a Client.
type Options struct {
	APIKey       string
	BaseURL      string
	Timeout      time.Duration
	PollInterval time.Duration
	MaxWait      time.Duration
	Clock        clockwork.Clock
	HTTPClient   *http.Client
}

// Client talks to the Koyeb platform API.
type Client struct {
	apiKey       string
	baseURL      string
	pollInterval time.Duration
	maxWait      time.Duration
	clock        clockwork.Clock
	httpClient   *http.Client
}

// NewClient constructs a Client. A missing API key is allowed; every call
// then fails with ErrNotConfigured so callers can fall back.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = "https://app.koyeb.com"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = 15 * time.Second
	}
	maxWait := opts.MaxWait
	if maxWait <= 0 {
		maxWait = 10 * time.Minute
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		apiKey:       strings.TrimSpace(opts.APIKey),
		baseURL:      base,
		pollInterval: poll,
		maxWait:      maxWait,
		clock:        clock,
		httpClient:   httpClient,
	}
}

// Deploy creates the analysis app and returns its id.
func (c *Client) Deploy(ctx context.Context, spec AppSpec) (string, error) {
	var created App
	if err := c.do(ctx, http.MethodPost, "/v1/apps", spec, &created); err != nil {
		return "", fmt.Errorf("deploy app: %w", err)
	}
	if strings.TrimSpace(created.ID) == "" {
		return "", errors.New("deploy app: response missing id")
	}
	return created.ID, nil
}

// GetApp fetches the current state of an app.
func (c *Client) GetApp(ctx context.Context, id string) (App, error) {
	var app App
	if err := c.do(ctx, http.MethodGet, "/v1/apps/"+id, nil, &app); err != nil {
		return App{}, fmt.Errorf("get app: %w", err)
	}
	return app, nil
}

// WaitHealthy polls the app until it reports healthy. Poll errors are
// tolerated; the loop ends only on health, the max wait or ctx.
func (c *Client) WaitHealthy(ctx context.Context, id string) error {
	deadline := c.clock.Now().Add(c.maxWait)
	for c.clock.Now().Before(deadline) {
		app, err := c.GetApp(ctx, id)
		if err == nil && app.Status == statusHealthy {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.clock.After(c.pollInterval):
		}
	}
	return ErrDeploymentTimeout
}

// Analyze runs detection and tracking on the deployed service.
func (c *Client) Analyze(ctx context.Context, req AnalyzeRequest) (AnalyzeResponse, error) {
	var out AnalyzeResponse
	if err := c.do(ctx, http.MethodPost, "/v1/services/analyze", req, &out); err != nil {
		return AnalyzeResponse{}, fmt.Errorf("analyze: %w", err)
	}
	return out, nil
}

// Morphology classifies sperm morphology on the deployed service.
func (c *Client) Morphology(ctx context.Context, req MorphologyRequest) (MorphologyResponse, error) {
	var out MorphologyResponse
	if err := c.do(ctx, http.MethodPost, "/v1/services/morphology", req, &out); err != nil {
		return MorphologyResponse{}, fmt.Errorf("morphology: %w", err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c.apiKey == "" {
		return ErrNotConfigured
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// StatusError reports a non-2xx response from the platform.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("koyeb status %d", e.Code)
	}
	return fmt.Sprintf("koyeb status %d: %s", e.Code, e.Body)
}
