package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"crosspost/domain/model"
)

// Client is the shared HTTP plumbing for platform adapters: JSON/form calls
// with provider-agnostic status normalization into the error taxonomy.
type Client struct {
	HTTP     *http.Client
	Provider string
	// Classify lets an adapter map provider-specific error bodies (content
	// policy codes and the like) before the generic status fallback runs.
	Classify func(status int, body []byte) *model.PlatformError
}

func New(provider string) *Client {
	return &Client{
		HTTP:     &http.Client{Timeout: 30 * time.Second},
		Provider: provider,
	}
}

// NormalizeStatus maps an HTTP status outside 2xx into the taxonomy. Content
// policy rejections carry provider-specific codes and are mapped by the
// adapters themselves before this fallback runs.
func (c *Client) NormalizeStatus(status int, body []byte) error {
	msg := fmt.Sprintf("%s returned status %d: %s", c.Provider, status, truncate(body, 256))
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return model.NewPlatformError(model.ErrKindAuthExpired, msg, nil)
	case status == http.StatusTooManyRequests:
		return model.NewPlatformError(model.ErrKindRateLimit, msg, nil)
	case status >= 500:
		return model.NewPlatformError(model.ErrKindTransientNetwork, msg, nil)
	case status >= 400:
		return model.NewPlatformError(model.ErrKindValidation, msg, nil)
	default:
		return model.NewPlatformError(model.ErrKindUnknownProvider, msg, nil)
	}
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return model.NewPlatformError(model.ErrKindTransientNetwork, c.Provider+" request failed", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if c.Classify != nil {
			if pe := c.Classify(resp.StatusCode, body); pe != nil {
				return pe
			}
		}
		return c.NormalizeStatus(resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return model.NewPlatformError(model.ErrKindUnknownProvider, c.Provider+" returned unparseable body", err)
	}
	return nil
}

// GetJSON performs a GET and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, rawURL, bearer string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return c.do(req, out)
}

// PostForm posts application/x-www-form-urlencoded and decodes JSON into out.
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

// PostFormBasic posts a form with an HTTP basic Authorization header, used by
// token endpoints of confidential OAuth clients.
func (c *Client) PostFormBasic(ctx context.Context, rawURL string, form url.Values, basic string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Basic "+basic)
	return c.do(req, out)
}

// PostJSON posts a JSON body with optional bearer auth and decodes into out.
func (c *Client) PostJSON(ctx context.Context, rawURL, bearer string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return c.do(req, out)
}

func truncate(b []byte, n int) string {
	s := string(b)
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
