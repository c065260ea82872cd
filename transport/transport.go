// Package transport is the thin HTTP layer under the provider
// adapters: one JSON POST or one streaming POST per call, no retries.
// Failed requests surface as errors for the caller to re-issue.
package transport

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultTimeout bounds a whole non-streaming request.
const DefaultTimeout = 30 * time.Second

type Client struct {
	HTTPClient *http.Client

	// StreamClient serves PostStream. It carries no overall Timeout:
	// http.Client.Timeout covers reading the body, which would kill a
	// healthy stream; context cancellation and the caller's chunk
	// timeout bound streaming instead.
	StreamClient *http.Client

	DefaultHeaders http.Header
	UserAgent      string
	Logger         *slog.Logger
}

func New(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		HTTPClient:     httpClient,
		StreamClient:   WithoutTimeout(httpClient),
		DefaultHeaders: make(http.Header),
		UserAgent:      "aiconn/1",
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithoutTimeout copies an HTTP client with the overall Timeout
// cleared, keeping its Transport (dial/TLS/header timeouts and fakes).
func WithoutTimeout(hc *http.Client) *http.Client {
	out := *hc
	out.Timeout = 0
	return &out
}

// PostJSON sends one request and returns the status code and the full
// response body. A non-2xx status is returned as *HTTPStatusError with
// the body attached.
func (c *Client) PostJSON(ctx context.Context, url string, hdr http.Header, body []byte) (int, []byte, error) {
	req, err := c.newRequest(ctx, url, hdr, body)
	if err != nil {
		return 0, nil, err
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.Logger.Debug("llm http request failed", "url", url, "err", err)
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	c.Logger.Debug("llm http request", "url", url, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.StatusCode, raw, nil
	}
	return resp.StatusCode, raw, &HTTPStatusError{StatusCode: resp.StatusCode, Body: raw, Header: resp.Header.Clone()}
}

// PostStream sends one request and hands the open response body to the
// caller. The caller owns resp.Body and must close it.
func (c *Client) PostStream(ctx context.Context, url string, hdr http.Header, body []byte) (*http.Response, error) {
	req, err := c.newRequest(ctx, url, hdr, body)
	if err != nil {
		return nil, err
	}

	hc := c.StreamClient
	if hc == nil {
		hc = c.HTTPClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		c.Logger.Debug("llm http stream failed", "url", url, "err", err)
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Body: raw, Header: resp.Header.Clone()}
}

func (c *Client) newRequest(ctx context.Context, url string, hdr http.Header, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	mergeHeaders(req.Header, c.DefaultHeaders)
	mergeHeaders(req.Header, hdr)
	if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if req.Header.Get("X-Request-Id") == "" {
		req.Header.Set("X-Request-Id", randomID())
	}
	return req, nil
}

type HTTPStatusError struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

func (e *HTTPStatusError) Error() string {
	return http.StatusText(e.StatusCode)
}

func mergeHeaders(dst, src http.Header) {
	for k, vs := range src {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}

func randomID() string {
	var b [16]byte
	_, err := rand.Read(b[:])
	if err != nil {
		return ""
	}
	return hex.EncodeToString(b[:])
}
