// Package api is the HTTP client for the petshop backend REST surface.
// Every call is bound to a context, tagged with an X-Request-ID and, when a
// token is available, authorized with a bearer header. Non-2xx statuses,
// transport failures and non-JSON bodies come back as typed errors.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"petshop/internal/logging"

	"github.com/google/uuid"
)

// TokenSource supplies the current bearer token. *session.Manager satisfies it.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed TokenSource.
type StaticToken string

func (s StaticToken) Token() string { return string(s) }

// Client talks to the backend.
type Client struct {
	baseURL string
	client  *http.Client
	tokens  TokenSource
}

// NewClient creates a client rooted at baseURL (e.g. http://localhost:8080/api).
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if tokens == nil {
		tokens = StaticToken("")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

// WithHTTPClient swaps the underlying http.Client (tests use httptest's).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.client = hc
	return c
}

// BaseURL returns the configured root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HasToken reports whether authenticated calls would carry a token.
func (c *Client) HasToken() bool {
	return c.tokens.Token() != ""
}

// Response is a successful (2xx) raw response.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
	RequestID   string
}

// IsJSON reports a JSON content type with a non-empty body.
func (r *Response) IsJSON() bool {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return false
	}
	mt, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// Do sends one request. body, when non-nil, is JSON-encoded. A non-2xx
// status returns *StatusError; a network failure returns *TransportError.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (*Response, error) {
	reqID := uuid.NewString()
	rl := logging.WithRequestID(logging.CategoryAPI, reqID)
	timer := logging.StartTimer(logging.CategoryAPI, method+" "+path)
	defer timer.StopWithThreshold(2 * time.Second)

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rl.Debug("%s %s", method, path)
	resp, err := c.client.Do(req)
	if err != nil {
		rl.Warn("%s %s failed: %v", method, path, err)
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rl.WithField("status", resp.StatusCode).Warn("%s %s rejected", method, path)
		return nil, &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: string(data)}
	}
	logging.API("%s %s -> %d [%s]", method, path, resp.StatusCode, reqID)
	return &Response{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
		RequestID:   reqID,
	}, nil
}

// getJSON issues a GET and decodes a JSON body into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.Do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return decode(resp, path, out)
}

// sendJSON issues a mutation and decodes the JSON body into out.
func (c *Client) sendJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	resp, err := c.Do(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	return decode(resp, path, out)
}

// send issues a mutation whose body, if any, is ignored.
func (c *Client) send(ctx context.Context, method, path string, body any) error {
	_, err := c.Do(ctx, method, path, nil, body)
	return err
}

func decode(resp *Response, path string, out any) error {
	if !resp.IsJSON() {
		logging.APIWarn("Unexpected content type %q from %s", resp.ContentType, path)
		return &ContentTypeError{Path: path, ContentType: resp.ContentType}
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	logging.APIDebug("Decoded %d bytes from %s", len(resp.Body), path)
	return nil
}
