package aiconn

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/aiconn/aiconn/llm"
)

// SetTools registers the tool batch for tool-enabled chat. Each entry
// is one tool definition in either accepted surface form; the batch
// replaces any previously registered tools and clears a pending
// tool-call exchange.
func (c *Client) SetTools(definitions []string) error {
	var total int
	for _, d := range definitions {
		total += len(d)
	}
	if total > maxToolsBytes {
		return c.fail(&llm.Error{Platform: c.platform, Kind: llm.ErrKindValidation, Message: "tool definitions exceed the size limit"})
	}

	specs, err := llm.ParseToolSpecs(definitions)
	if err != nil {
		return c.fail(err)
	}
	c.tools = specs
	c.turn = llm.Turn{}
	c.pendingTools = false
	return nil
}

// Tools returns the registered tool names.
func (c *Client) Tools() []string {
	out := make([]string, 0, len(c.tools))
	for _, t := range c.tools {
		out = append(out, t.Name)
	}
	return out
}

func (c *Client) SetToolSystemRole(role string) { c.toolOpts.SystemRole = role }

func (c *Client) SetToolMaxTokens(n int) error {
	if n < 1 {
		return c.fail(&llm.Error{Platform: c.platform, Kind: llm.ErrKindValidation, Message: "max tokens must be at least 1"})
	}
	c.toolOpts.MaxTokens = &n
	return nil
}

// SetToolChoice sets the tool-choice preference for ToolChat: one of
// "auto", "none", "required", "any", or a vendor JSON object.
// Unrecognized values are kept and passed through.
func (c *Client) SetToolChoice(choice string) {
	c.warnToolChoice(choice)
	c.toolOpts.ToolChoice = choice
}

func (c *Client) SetReplyMaxTokens(n int) error {
	if n < 1 {
		return c.fail(&llm.Error{Platform: c.platform, Kind: llm.ErrKindValidation, Message: "max tokens must be at least 1"})
	}
	c.replyOpts.MaxTokens = &n
	return nil
}

// SetReplyToolChoice sets the tool-choice preference for ReplyToTools.
func (c *Client) SetReplyToolChoice(choice string) {
	c.warnToolChoice(choice)
	c.replyOpts.ToolChoice = choice
}

func (c *Client) warnToolChoice(choice string) {
	switch choice {
	case "", "auto", "none", "required", "any":
		return
	}
	if strings.HasPrefix(strings.TrimSpace(choice), "{") && json.Valid([]byte(choice)) {
		return
	}
	c.logger.Warn("unrecognized tool choice passed through", "platform", c.platform, "tool_choice", choice)
}

// ToolChat sends a tool-enabled message. When the model requests tool
// calls, the batch is returned in Result.ToolCalls and kept pending
// for ReplyToTools; when the model answers directly, Content holds the
// answer and no exchange is pending.
func (c *Client) ToolChat(ctx context.Context, message string) (llm.Result, error) {
	c.resetCall()
	c.rawTool = nil
	c.statusTool = 0

	if len(c.tools) == 0 {
		return llm.Result{}, c.fail(&llm.Error{Platform: c.platform, Kind: llm.ErrKindValidation, Message: "tool calls not set up, call SetTools first"})
	}
	if message == "" {
		return llm.Result{}, c.fail(&llm.Error{Platform: c.platform, Kind: llm.ErrKindValidation, Message: "message is empty"})
	}

	body, err := c.adapter.BuildTools(c.toolOpts, c.tools, c.model, message)
	if err != nil {
		return llm.Result{}, c.fail(err)
	}

	status, raw, err := c.tr.PostJSON(ctx, c.chatEndpoint(), c.adapter.Headers(c.apiKey), body)
	c.statusTool = status
	c.rawTool = raw
	if err != nil {
		return llm.Result{}, c.fail(c.wrapError(err))
	}

	res, err := c.adapter.ParseTools(raw)
	if err != nil {
		return llm.Result{}, c.fail(err)
	}
	c.finishReason = res.FinishReason
	c.totalTokens = res.TotalTokens

	if len(res.ToolCalls) > 0 {
		c.turn = llm.Turn{UserMessage: message, ToolCalls: res.ToolCalls}
		c.pendingTools = true
	} else {
		c.turn = llm.Turn{}
		c.pendingTools = false
	}
	return res, nil
}

// ReplyToTools sends the outcomes of the pending tool-call batch back
// to the model and returns its follow-up. Validation failures leave
// the pending exchange untouched and make no network call. A follow-up
// that itself requests tool calls becomes the new pending batch.
func (c *Client) ReplyToTools(ctx context.Context, results []llm.ToolResult) (llm.Result, error) {
	c.resetCall()
	c.rawTool = nil
	c.statusTool = 0

	if !c.pendingTools {
		return llm.Result{}, c.fail(&llm.Error{Platform: c.platform, Kind: llm.ErrKindValidation, Message: "no tool calls to reply to, call ToolChat first and ensure it returns tool calls"})
	}
	if len(results) == 0 {
		return llm.Result{}, c.fail(&llm.Error{Platform: c.platform, Kind: llm.ErrKindValidation, Message: "no tool results provided"})
	}
	for _, r := range results {
		if r.Name == "" {
			return llm.Result{}, c.fail(&llm.Error{Platform: c.platform, Kind: llm.ErrKindValidation, Message: "tool result is missing the function name"})
		}
		if len(r.Output) > maxToolOutputBytes {
			return llm.Result{}, c.fail(&llm.Error{Platform: c.platform, Kind: llm.ErrKindValidation, Message: "tool result '" + r.Name + "' exceeds the size limit"})
		}
	}

	body, err := c.adapter.BuildFollowup(c.replyOpts, c.tools, c.model, c.turn, results)
	if err != nil {
		return llm.Result{}, c.fail(err)
	}

	status, raw, err := c.tr.PostJSON(ctx, c.chatEndpoint(), c.adapter.Headers(c.apiKey), body)
	c.statusTool = status
	c.rawTool = raw
	if err != nil {
		return llm.Result{}, c.fail(c.wrapError(err))
	}

	res, err := c.adapter.ParseTools(raw)
	if err != nil {
		return llm.Result{}, c.fail(err)
	}
	c.finishReason = res.FinishReason
	c.totalTokens = res.TotalTokens

	if len(res.ToolCalls) > 0 {
		// Chained call: the follow-up asked for more tools.
		c.turn = llm.Turn{UserMessage: c.turn.UserMessage, ToolCalls: res.ToolCalls}
		c.pendingTools = true
	} else {
		c.turn = llm.Turn{}
		c.pendingTools = false
	}
	return res, nil
}

// ReplyToToolsJSON is ReplyToTools for callers holding the results as
// a raw JSON array:
//
//	[{"tool_call_id":"c1","function":{"name":"f","output":"42"}}]
func (c *Client) ReplyToToolsJSON(ctx context.Context, rawResults string) (llm.Result, error) {
	results, err := llm.ParseToolResults(rawResults)
	if err != nil {
		return llm.Result{}, c.fail(err)
	}
	return c.ReplyToTools(ctx, results)
}

// PendingToolCalls reports whether a tool-call batch awaits a reply.
func (c *Client) PendingToolCalls() bool { return c.pendingTools }

// ToolChatReset drops the pending exchange and the tool-chat options.
// Registered tools survive; use SetTools to replace them.
func (c *Client) ToolChatReset() {
	c.turn = llm.Turn{}
	c.pendingTools = false
	c.toolOpts = llm.ToolOptions{}
	c.replyOpts = llm.ToolOptions{}
	c.rawTool = nil
	c.statusTool = 0
}
