package openai

import (
	"encoding/json"
	"strings"

	"github.com/aiconn/aiconn/llm"
)

func (a *Adapter) BuildChat(opts llm.ChatOptions, model, userMessage string) ([]byte, error) {
	body := a.baseBody(opts.Extra, model)
	body["messages"] = buildMessages(opts.SystemRole, userMessage)
	if opts.Temperature != nil {
		body["temperature"] = *opts.Temperature
	}
	if opts.MaxTokens != nil {
		body[a.maxTokensKey] = *opts.MaxTokens
	}
	return a.marshal(body)
}

func (a *Adapter) BuildStream(opts llm.ChatOptions, model, userMessage string) ([]byte, error) {
	body := a.baseBody(opts.Extra, model)
	body["messages"] = buildMessages(opts.SystemRole, userMessage)
	if opts.Temperature != nil {
		body["temperature"] = *opts.Temperature
	}
	if opts.MaxTokens != nil {
		body[a.maxTokensKey] = *opts.MaxTokens
	}
	body["stream"] = true
	return a.marshal(body)
}

func (a *Adapter) BuildTools(opts llm.ToolOptions, tools []llm.ToolSpec, model, userMessage string) ([]byte, error) {
	body := a.baseBody(nil, model)
	body["messages"] = buildMessages(opts.SystemRole, userMessage)
	body["tools"] = buildTools(tools)
	if opts.MaxTokens != nil {
		body[a.maxTokensKey] = *opts.MaxTokens
	}
	if tc := mapToolChoice(opts.ToolChoice); tc != nil {
		body["tool_choice"] = tc
	}
	return a.marshal(body)
}

func (a *Adapter) BuildFollowup(opts llm.ToolOptions, tools []llm.ToolSpec, model string, turn llm.Turn, results []llm.ToolResult) ([]byte, error) {
	msgs := buildMessages(opts.SystemRole, turn.UserMessage)

	calls := make([]apiToolCall, 0, len(turn.ToolCalls))
	for _, tc := range turn.ToolCalls {
		calls = append(calls, apiToolCall{
			ID:       tc.ID,
			Type:     "function",
			Function: apiFunctionCall{Name: tc.Name, Arguments: tc.Arguments},
		})
	}
	msgs = append(msgs, apiMessage{Role: "assistant", ToolCalls: calls})

	for _, r := range results {
		msgs = append(msgs, apiMessage{
			Role:       "tool",
			ToolCallID: r.ToolCallID,
			Content:    r.Output,
		})
	}

	body := a.baseBody(nil, model)
	body["messages"] = msgs
	body["tools"] = buildTools(tools)
	if opts.MaxTokens != nil {
		body[a.maxTokensKey] = *opts.MaxTokens
	}
	if tc := mapToolChoice(opts.ToolChoice); tc != nil {
		body["tool_choice"] = tc
	}
	return a.marshal(body)
}

func (a *Adapter) baseBody(extra map[string]any, model string) map[string]any {
	body := make(map[string]any)
	llm.MergeExtra(body, extra, "model", "messages", "stream")
	body["model"] = model
	return body
}

func (a *Adapter) marshal(body map[string]any) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, &llm.Error{Platform: a.platform, Kind: llm.ErrKindValidation, Message: "failed to encode request", Cause: err}
	}
	return raw, nil
}

func buildMessages(systemRole, userMessage string) []apiMessage {
	msgs := make([]apiMessage, 0, 2)
	if systemRole != "" {
		msgs = append(msgs, apiMessage{Role: "system", Content: systemRole})
	}
	return append(msgs, apiMessage{Role: "user", Content: userMessage})
}

func buildTools(tools []llm.ToolSpec) []apiTool {
	out := make([]apiTool, 0, len(tools))
	for _, t := range tools {
		out = append(out, apiTool{
			Type: "function",
			Function: apiFunctionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}

func mapToolChoice(raw string) any {
	switch raw {
	case "":
		return nil
	case "auto", "none":
		return raw
	case "required", "any":
		return "required"
	}
	if strings.HasPrefix(strings.TrimSpace(raw), "{") && json.Valid([]byte(raw)) {
		var v map[string]any
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			return v
		}
	}
	return raw
}
