package claude

import (
	"encoding/json"
	"strings"

	"github.com/aiconn/aiconn/llm"
)

// followupText fills the assistant turn's text block when rebuilding a
// tool exchange; the API rejects an assistant message with tool_use
// blocks only.
const followupText = "I'll help you with that."

func (a *Adapter) BuildChat(opts llm.ChatOptions, model, userMessage string) ([]byte, error) {
	body := a.baseBody(opts.Extra, model, opts.MaxTokens)
	body["messages"] = []any{userTurn(userMessage)}
	if opts.SystemRole != "" {
		body["system"] = opts.SystemRole
	}
	if opts.Temperature != nil {
		body["temperature"] = *opts.Temperature
	}
	return a.marshal(body)
}

func (a *Adapter) BuildStream(opts llm.ChatOptions, model, userMessage string) ([]byte, error) {
	body := a.baseBody(opts.Extra, model, opts.MaxTokens)
	body["messages"] = []any{userTurn(userMessage)}
	if opts.SystemRole != "" {
		body["system"] = opts.SystemRole
	}
	if opts.Temperature != nil {
		body["temperature"] = *opts.Temperature
	}
	body["stream"] = true
	return a.marshal(body)
}

func (a *Adapter) BuildTools(opts llm.ToolOptions, tools []llm.ToolSpec, model, userMessage string) ([]byte, error) {
	body := a.baseBody(nil, model, opts.MaxTokens)
	body["messages"] = []any{userTurn(userMessage)}
	if opts.SystemRole != "" {
		body["system"] = opts.SystemRole
	}
	body["tools"] = buildTools(tools)
	if tc := mapToolChoice(opts.ToolChoice); tc != nil {
		body["tool_choice"] = tc
	}
	return a.marshal(body)
}

func (a *Adapter) BuildFollowup(opts llm.ToolOptions, tools []llm.ToolSpec, model string, turn llm.Turn, results []llm.ToolResult) ([]byte, error) {
	assistantBlocks := []any{
		map[string]any{"type": "text", "text": followupText},
	}
	for _, tc := range turn.ToolCalls {
		assistantBlocks = append(assistantBlocks, map[string]any{
			"type":  "tool_use",
			"id":    tc.ID,
			"name":  tc.Name,
			"input": rawInput(tc.Arguments),
		})
	}

	resultBlocks := make([]any, 0, len(results))
	for _, r := range results {
		block := map[string]any{
			"type":        "tool_result",
			"tool_use_id": r.ToolCallID,
			"content":     r.Output,
		}
		if r.IsError {
			block["is_error"] = true
		}
		resultBlocks = append(resultBlocks, block)
	}

	body := a.baseBody(nil, model, opts.MaxTokens)
	body["messages"] = []any{
		userTurn(turn.UserMessage),
		map[string]any{"role": "assistant", "content": assistantBlocks},
		map[string]any{"role": "user", "content": resultBlocks},
	}
	if opts.SystemRole != "" {
		body["system"] = opts.SystemRole
	}
	body["tools"] = buildTools(tools)
	if tc := mapToolChoice(opts.ToolChoice); tc != nil {
		body["tool_choice"] = tc
	}
	return a.marshal(body)
}

func (a *Adapter) baseBody(extra map[string]any, model string, maxTokens *int) map[string]any {
	body := make(map[string]any)
	llm.MergeExtra(body, extra, "model", "messages", "system", "stream")
	body["model"] = model
	limit := defaultMaxTokens
	if maxTokens != nil {
		limit = *maxTokens
	} else if v, ok := body["max_tokens"]; ok {
		// Keep a caller-supplied extra param.
		switch n := v.(type) {
		case float64:
			limit = int(n)
		case int:
			limit = n
		}
	}
	body["max_tokens"] = limit
	return body
}

func (a *Adapter) marshal(body map[string]any) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, &llm.Error{Platform: "claude", Kind: llm.ErrKindValidation, Message: "failed to encode request", Cause: err}
	}
	return raw, nil
}

func userTurn(text string) map[string]any {
	return map[string]any{"role": "user", "content": text}
}

func buildTools(tools []llm.ToolSpec) []any {
	out := make([]any, 0, len(tools))
	for _, t := range tools {
		out = append(out, map[string]any{
			"name":         t.Name,
			"description":  t.Description,
			"input_schema": json.RawMessage(t.Parameters),
		})
	}
	return out
}

func mapToolChoice(raw string) any {
	switch raw {
	case "":
		return nil
	case "auto", "none":
		return map[string]any{"type": raw}
	case "required", "any":
		return map[string]any{"type": "any"}
	}
	if strings.HasPrefix(strings.TrimSpace(raw), "{") && json.Valid([]byte(raw)) {
		var v map[string]any
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			return v
		}
	}
	return map[string]any{"type": raw}
}

func rawInput(raw string) any {
	var v any
	if raw == "" || json.Unmarshal([]byte(raw), &v) != nil {
		return map[string]any{}
	}
	return v
}
