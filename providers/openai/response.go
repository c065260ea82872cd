package openai

import (
	"bytes"
	"encoding/json"

	"github.com/aiconn/aiconn/llm"
)

func (a *Adapter) ParseChat(raw []byte) (llm.Result, error) {
	resp, err := a.decode(raw)
	if err != nil {
		return llm.Result{}, err
	}

	choice := resp.Choices[0]
	out := llm.Result{
		Content:      contentText(choice.Message.Content),
		FinishReason: choice.FinishReason,
	}
	if resp.Usage != nil {
		out.TotalTokens = resp.Usage.TotalTokens
	}
	return out, nil
}

func (a *Adapter) ParseTools(raw []byte) (llm.Result, error) {
	resp, err := a.decode(raw)
	if err != nil {
		return llm.Result{}, err
	}

	choice := resp.Choices[0]
	out := llm.Result{
		Content:      contentText(choice.Message.Content),
		FinishReason: choice.FinishReason,
	}
	if resp.Usage != nil {
		out.TotalTokens = resp.Usage.TotalTokens
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

func (a *Adapter) ParseStreamChunk(data []byte) (llm.StreamDelta, error) {
	if bytes.Equal(bytes.TrimSpace(data), []byte("[DONE]")) {
		return llm.StreamDelta{Done: true}, nil
	}

	var chunk chatCompletionChunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return llm.StreamDelta{}, &llm.Error{Platform: a.platform, Kind: llm.ErrKindParse, Message: "failed to decode stream chunk", Raw: data, Cause: err}
	}

	var delta llm.StreamDelta
	if chunk.Usage != nil {
		delta.TotalTokens = chunk.Usage.TotalTokens
	}
	if len(chunk.Choices) == 0 {
		if msg := a.ParseError(data); msg != "" {
			return llm.StreamDelta{}, &llm.Error{Platform: a.platform, Kind: llm.ErrKindVendor, Message: msg, Raw: data}
		}
		return delta, nil
	}
	delta.Content = contentText(chunk.Choices[0].Delta.Content)
	delta.FinishReason = chunk.Choices[0].FinishReason
	return delta, nil
}

func (a *Adapter) ParseError(raw []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Error == nil {
		return ""
	}
	return env.Error.Message
}

func (a *Adapter) decode(raw []byte) (chatCompletionResponse, error) {
	var resp chatCompletionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return resp, &llm.Error{Platform: a.platform, Kind: llm.ErrKindParse, Message: "failed to decode response", Raw: append([]byte(nil), raw...), Cause: err}
	}
	if len(resp.Choices) == 0 {
		// Vendors return their error envelope in 2xx bodies too.
		if msg := a.ParseError(raw); msg != "" {
			return resp, &llm.Error{Platform: a.platform, Kind: llm.ErrKindVendor, Message: msg, Raw: append([]byte(nil), raw...)}
		}
		return resp, &llm.Error{Platform: a.platform, Kind: llm.ErrKindParse, Message: "response has no choices", Raw: append([]byte(nil), raw...)}
	}
	return resp, nil
}

func contentText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []any:
		// Some compatible vendors return content as an array of parts.
		var out []byte
		for _, it := range x {
			if m, ok := it.(map[string]any); ok {
				if t, ok := m["text"].(string); ok {
					out = append(out, t...)
				}
			}
		}
		return string(out)
	default:
		return ""
	}
}
