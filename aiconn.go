// Package aiconn is a unified client for multiple LLM chat vendors.
// One Client speaks to a single platform/model pair; the provider
// adapters translate between the neutral API and each vendor's exact
// wire format.
package aiconn

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aiconn/aiconn/config"
	"github.com/aiconn/aiconn/llm"
	"github.com/aiconn/aiconn/transport"

	_ "github.com/aiconn/aiconn/providers/claude"
	_ "github.com/aiconn/aiconn/providers/deepseek"
	_ "github.com/aiconn/aiconn/providers/gemini"
	_ "github.com/aiconn/aiconn/providers/openai"
)

const (
	defaultChunkTimeout = 5 * time.Second

	// lockTimeout bounds stream state transitions; getterTimeout
	// bounds read-only peeks at stream state.
	lockTimeout   = 1 * time.Second
	getterTimeout = 100 * time.Millisecond

	// maxToolsBytes caps the serialized size of a registered tool
	// batch; maxToolOutputBytes caps a single tool result payload.
	maxToolsBytes      = 64 * 1024
	maxToolOutputBytes = 64 * 1024
)

// Client is the caller-facing entry point. A Client is bound to one
// platform, API key and model at construction.
//
// Chat and tool-call methods assume a single caller goroutine; the
// streaming session and its getters are safe for concurrent use.
type Client struct {
	platform string
	apiKey   string
	model    string

	// endpoint/streamEndpoint override the adapter's URLs when set.
	endpoint       string
	streamEndpoint string

	adapter llm.Adapter
	tr      *transport.Client
	logger  *slog.Logger

	chatOpts   llm.ChatOptions
	toolOpts   llm.ToolOptions
	replyOpts  llm.ToolOptions
	streamOpts llm.ChatOptions

	tools []llm.ToolSpec

	turn         llm.Turn
	pendingTools bool

	lastError    string
	finishReason string
	totalTokens  int

	rawChat    []byte
	rawTool    []byte
	statusChat int
	statusTool int

	// gate serializes all streaming session state; see stream.go.
	gate          chan struct{}
	streamState   StreamState
	stopRequested bool
	chunkTimeout  time.Duration
	streamMetrics streamMetrics
	rawStream     []byte
	statusStream  int
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client (30s timeout for
// non-streaming calls). Streaming uses the same client with the
// overall Timeout cleared; only the chunk timeout bounds a stream.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.tr.HTTPClient = hc
			c.tr.StreamClient = transport.WithoutTimeout(hc)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithEndpoint overrides the chat endpoint, e.g. for a proxy or an
// OpenAI-compatible server.
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

func WithStreamEndpoint(url string) Option {
	return func(c *Client) { c.streamEndpoint = url }
}

// WithChunkTimeout bounds the silence between stream events before the
// session fails with a timeout.
func WithChunkTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.chunkTimeout = d
		}
	}
}

func New(platform, apiKey, model string, opts ...Option) (*Client, error) {
	adapter, err := llm.NewAdapter(platform)
	if err != nil {
		return nil, err
	}
	if apiKey == "" {
		return nil, &llm.Error{Platform: platform, Kind: llm.ErrKindConfig, Message: "api key is required"}
	}
	if model == "" {
		return nil, &llm.Error{Platform: platform, Kind: llm.ErrKindConfig, Message: "model is required"}
	}

	c := &Client{
		platform:     adapter.Platform(),
		apiKey:       apiKey,
		model:        model,
		adapter:      adapter,
		tr:           transport.New(nil),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		gate:         make(chan struct{}, 1),
		chunkTimeout: defaultChunkTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.tr.Logger = c.logger
	return c, nil
}

// NewFromSettings builds a Client from a loaded settings file.
// Explicit options are applied after the settings and win.
func NewFromSettings(s config.Settings, opts ...Option) (*Client, error) {
	base := make([]Option, 0, 4+len(opts))
	if s.Endpoint != "" {
		base = append(base, WithEndpoint(s.Endpoint))
	}
	if s.StreamEndpoint != "" {
		base = append(base, WithStreamEndpoint(s.StreamEndpoint))
	}
	if s.ChunkTimeout > 0 {
		base = append(base, WithChunkTimeout(s.ChunkTimeout))
	}
	if s.HTTPTimeout > 0 {
		base = append(base, WithHTTPClient(&http.Client{Timeout: s.HTTPTimeout}))
	}
	base = append(base, opts...)

	c, err := New(s.Platform, s.APIKey, s.Model, base...)
	if err != nil {
		return nil, err
	}
	if s.SystemRole != "" {
		c.SetSystemRole(s.SystemRole)
		c.SetStreamSystemRole(s.SystemRole)
	}
	if s.Temperature != nil {
		c.SetTemperature(*s.Temperature)
	}
	if s.MaxTokens != nil {
		if err := c.SetMaxTokens(*s.MaxTokens); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Platform reports the resolved platform name.
func (c *Client) Platform() string { return c.platform }

// Model reports the configured model.
func (c *Client) Model() string { return c.model }

// LastError returns the message of the most recent failure, or ""
// after a successful call. Every operation resets it on entry.
func (c *Client) LastError() string { return c.lastError }

// FinishReason returns the vendor-verbatim finish reason of the last
// parsed response. It is safe to poll during an active stream.
func (c *Client) FinishReason() string {
	var s string
	c.withGate(getterTimeout, func() { s = c.finishReason })
	return s
}

// TotalTokens returns the token usage reported by the last response,
// or 0 when the vendor sent none. It is safe to poll during an active
// stream.
func (c *Client) TotalTokens() int {
	var n int
	c.withGate(getterTimeout, func() { n = c.totalTokens })
	return n
}

func (c *Client) RawChatResponse() string { return string(c.rawChat) }
func (c *Client) ChatHTTPStatus() int     { return c.statusChat }
func (c *Client) RawToolResponse() string { return string(c.rawTool) }
func (c *Client) ToolHTTPStatus() int     { return c.statusTool }

// fail records the error for LastError and passes it through.
func (c *Client) fail(err error) error {
	c.lastError = err.Error()
	c.logger.Debug("llm call failed", "platform", c.platform, "err", err)
	return err
}

// resetCall clears the transient per-call state so getters never serve
// stale values from an earlier request.
func (c *Client) resetCall() {
	c.lastError = ""
	c.finishReason = ""
	c.totalTokens = 0
}

func (c *Client) chatEndpoint() string {
	if c.endpoint != "" {
		return c.endpoint
	}
	return c.adapter.Endpoint(c.model, c.apiKey)
}

func (c *Client) streamURL() string {
	if c.streamEndpoint != "" {
		return c.streamEndpoint
	}
	return c.adapter.StreamEndpoint(c.model, c.apiKey)
}

// wrapError maps transport failures into the shared error shape. HTTP
// error bodies are run through the adapter's envelope parser so the
// vendor's own message survives.
func (c *Client) wrapError(err error) error {
	if e, ok := llm.AsError(err); ok {
		return e
	}
	var se *transport.HTTPStatusError
	if errors.As(err, &se) {
		msg := c.adapter.ParseError(se.Body)
		if msg == "" {
			msg = http.StatusText(se.StatusCode)
		}
		return &llm.Error{
			Platform:   c.platform,
			Kind:       llm.ErrKindVendor,
			HTTPStatus: se.StatusCode,
			Message:    msg,
			Raw:        append([]byte(nil), se.Body...),
			Cause:      err,
		}
	}
	return &llm.Error{Platform: c.platform, Kind: llm.ErrKindTransport, Message: err.Error(), Cause: err}
}
