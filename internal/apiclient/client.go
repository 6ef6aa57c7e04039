// Package apiclient is the HTTP client casactl uses to talk to the API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"casa-backend/internal/analyses"
	"casa-backend/internal/chat"
	"casa-backend/internal/media"
	"casa-backend/internal/uploadflow"
	"casa-backend/internal/users"
)

// APIError is a non-2xx response. Message is taken from either error body
// shape the API returns.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api status %d: %s (%s)", e.Status, e.Message, e.Code)
	}
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

// Options configures a Client. Token wins over GuestID when both are set.
type Options struct {
	BaseURL    string
	Token      string
	GuestID    string
	HTTPClient *http.Client
}

// Client calls the /api/v1 routes.
type Client struct {
	base       string
	token      string
	guestID    string
	httpClient *http.Client

	mu sync.Mutex
	// stored maps uploaded paths to the public URL the API reported.
	stored map[string]string
}

func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		// Uploads of large videos and full orchestrator runs are slow.
		httpClient = &http.Client{Timeout: 30 * time.Minute}
	}
	return &Client{
		base:       strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/") + "/api/v1",
		token:      strings.TrimSpace(opts.Token),
		guestID:    strings.TrimSpace(opts.GuestID),
		httpClient: httpClient,
		stored:     map[string]string{},
	}
}

// Identity is the /me payload.
type Identity struct {
	UserID  string         `json:"userId"`
	IsGuest bool           `json:"isGuest"`
	Email   string         `json:"email,omitempty"`
	Name    string         `json:"name,omitempty"`
	Profile *users.User    `json:"profile,omitempty"`
	Stats   analyses.Stats `json:"stats"`
}

// Me returns the caller's identity as the server sees it.
func (c *Client) Me(ctx context.Context) (Identity, error) {
	var out Identity
	err := c.doJSON(ctx, http.MethodGet, "/me", nil, &out)
	return out, err
}

// SetChatLanguage stores the signed-in caller's reply language and returns
// the canonical name the server saved.
func (c *Client) SetChatLanguage(ctx context.Context, language string) (string, error) {
	var out struct {
		ChatLanguage string `json:"chatLanguage"`
	}
	in := map[string]string{"chatLanguage": language}
	err := c.doJSON(ctx, http.MethodPatch, "/me", in, &out)
	return out.ChatLanguage, err
}

// Upload implements uploadflow.MediaStore.
func (c *Client) Upload(ctx context.Context, path string, f uploadflow.MediaFile) error {
	body, err := f.Open()
	if err != nil {
		return err
	}
	defer body.Close()

	req, err := c.newRequest(ctx, http.MethodPut, "/storage/objects/"+escapePath(path), body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", f.MimeType)
	if f.Size > 0 {
		req.ContentLength = f.Size
	}
	var created media.AssetResponse
	if err := c.send(req, &created); err != nil {
		return err
	}
	if created.PublicURL != "" {
		c.mu.Lock()
		c.stored[path] = created.PublicURL
		c.mu.Unlock()
	}
	return nil
}

// PublicURL implements uploadflow.MediaStore. It returns the URL the API
// reported for an uploaded path, which points at the object store itself
// when the server is not using local storage.
func (c *Client) PublicURL(path string) string {
	c.mu.Lock()
	u, ok := c.stored[path]
	c.mu.Unlock()
	if ok {
		return u
	}
	return c.base + "/storage/public/" + escapePath(path)
}

// Analyze implements uploadflow.Orchestrator.
func (c *Client) Analyze(ctx context.Context, in analyses.Request) (analyses.Report, error) {
	var out analyses.Report
	err := c.doJSON(ctx, http.MethodPost, "/functions/sperm-analysis", in, &out)
	return out, err
}

// Reports lists the caller's reports newest first.
func (c *Client) Reports(ctx context.Context, limit, offset int) ([]analyses.Summary, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	var out struct {
		Items []analyses.Summary `json:"items"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/analyses?"+q.Encode(), nil, &out)
	return out.Items, err
}

// Report fetches one report.
func (c *Client) Report(ctx context.Context, id string) (analyses.Report, error) {
	var out analyses.Report
	err := c.doJSON(ctx, http.MethodGet, "/analyses/"+url.PathEscape(id), nil, &out)
	return out, err
}

// Chat asks the medical assistant about a report.
func (c *Client) Chat(ctx context.Context, q chat.Question) (string, error) {
	var out struct {
		Response string `json:"response"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/functions/medical-chat", q, &out)
	return out.Response, err
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	switch {
	case c.token != "":
		req.Header.Set("Authorization", "Bearer "+c.token)
	case c.guestID != "":
		req.Header.Set("X-Guest-Id", c.guestID)
	}
	return req, nil
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

// decodeError understands both {"error":"msg"} and
// {"error":{"code":..,"message":..}}.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(raw, &envelope) != nil || len(envelope.Error) == 0 {
		return apiErr
	}
	var flat string
	if json.Unmarshal(envelope.Error, &flat) == nil {
		apiErr.Message = flat
		return apiErr
	}
	var nested struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(envelope.Error, &nested) == nil {
		apiErr.Code = nested.Code
		if nested.Message != "" {
			apiErr.Message = nested.Message
		}
	}
	return apiErr
}

func escapePath(p string) string {
	parts := strings.Split(strings.TrimLeft(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

var (
	_ uploadflow.MediaStore   = (*Client)(nil)
	_ uploadflow.Orchestrator = (*Client)(nil)
)
