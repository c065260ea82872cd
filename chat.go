package aiconn

import (
	"context"

	"github.com/aiconn/aiconn/llm"
)

// Chat sends one user message and returns the assistant's text.
// FinishReason, TotalTokens, RawChatResponse and ChatHTTPStatus are
// refreshed on every call.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	c.resetCall()
	c.rawChat = nil
	c.statusChat = 0

	if message == "" {
		return "", c.fail(&llm.Error{Platform: c.platform, Kind: llm.ErrKindValidation, Message: "message is empty"})
	}

	body, err := c.adapter.BuildChat(c.chatOpts, c.model, message)
	if err != nil {
		return "", c.fail(err)
	}

	status, raw, err := c.tr.PostJSON(ctx, c.chatEndpoint(), c.adapter.Headers(c.apiKey), body)
	c.statusChat = status
	c.rawChat = raw
	if err != nil {
		return "", c.fail(c.wrapError(err))
	}

	res, err := c.adapter.ParseChat(raw)
	if err != nil {
		return "", c.fail(err)
	}
	c.finishReason = res.FinishReason
	c.totalTokens = res.TotalTokens
	return res.Content, nil
}

// SetSystemRole sets the system prompt for plain chat requests.
// An empty value omits the system message entirely.
func (c *Client) SetSystemRole(role string) {
	c.chatOpts.SystemRole = role
}

func (c *Client) SystemRole() string { return c.chatOpts.SystemRole }

// SetTemperature sets the sampling temperature, clamped to [0, 2].
func (c *Client) SetTemperature(t float64) {
	if t < 0 {
		t = 0
	}
	if t > 2 {
		t = 2
	}
	c.chatOpts.Temperature = &t
}

func (c *Client) Temperature() (float64, bool) {
	if c.chatOpts.Temperature == nil {
		return 0, false
	}
	return *c.chatOpts.Temperature, true
}

// SetMaxTokens caps the completion length for plain chat requests.
func (c *Client) SetMaxTokens(n int) error {
	if n < 1 {
		return c.fail(&llm.Error{Platform: c.platform, Kind: llm.ErrKindValidation, Message: "max tokens must be at least 1"})
	}
	c.chatOpts.MaxTokens = &n
	return nil
}

func (c *Client) MaxTokens() (int, bool) {
	if c.chatOpts.MaxTokens == nil {
		return 0, false
	}
	return *c.chatOpts.MaxTokens, true
}

// SetChatParameters registers extra vendor-specific JSON parameters
// for plain chat requests. Keys owned by the adapter (model, messages,
// stream and the like) are ignored at build time; explicit setters win
// on collisions.
func (c *Client) SetChatParameters(rawJSON string) error {
	extra, err := llm.ParseParams(rawJSON)
	if err != nil {
		return c.fail(err)
	}
	c.chatOpts.Extra = extra
	return nil
}

// ChatReset restores the plain-chat configuration to its defaults.
func (c *Client) ChatReset() {
	c.chatOpts = llm.ChatOptions{}
	c.rawChat = nil
	c.statusChat = 0
}
