package claude

import (
	"encoding/json"
	"strings"

	"github.com/aiconn/aiconn/llm"
)

type messagesResponse struct {
	Content []struct {
		Type  string          `json:"type"`
		Text  string          `json:"text"`
		ID    string          `json:"id"`
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      *struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// streamEvent covers every Messages SSE event type in one shape; the
// Type field decides which parts are meaningful.
type streamEvent struct {
	Type  string `json:"type"`
	Delta *struct {
		Type       string `json:"type"`
		Text       string `json:"text"`
		StopReason string `json:"stop_reason"`
	} `json:"delta"`
	Usage *struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Message *struct {
		Usage *struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	} `json:"message"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

type errorEnvelope struct {
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *Adapter) ParseChat(raw []byte) (llm.Result, error) {
	return a.parse(raw)
}

func (a *Adapter) ParseTools(raw []byte) (llm.Result, error) {
	return a.parse(raw)
}

func (a *Adapter) parse(raw []byte) (llm.Result, error) {
	var resp messagesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return llm.Result{}, &llm.Error{Platform: "claude", Kind: llm.ErrKindParse, Message: "failed to decode response", Raw: append([]byte(nil), raw...), Cause: err}
	}
	if len(resp.Content) == 0 && resp.StopReason == "" {
		// Vendors return their error envelope in 2xx bodies too.
		if msg := a.ParseError(raw); msg != "" {
			return llm.Result{}, &llm.Error{Platform: "claude", Kind: llm.ErrKindVendor, Message: msg, Raw: append([]byte(nil), raw...)}
		}
		return llm.Result{}, &llm.Error{Platform: "claude", Kind: llm.ErrKindParse, Message: "response has no content", Raw: append([]byte(nil), raw...)}
	}

	out := llm.Result{FinishReason: resp.StopReason}
	if resp.Usage != nil {
		out.TotalTokens = resp.Usage.InputTokens + resp.Usage.OutputTokens
	}

	var b strings.Builder
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			b.WriteString(block.Text)
		case "tool_use":
			args := string(block.Input)
			if args == "" {
				args = "{}"
			}
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: args,
			})
		}
	}
	out.Content = b.String()
	return out, nil
}

func (a *Adapter) ParseStreamChunk(data []byte) (llm.StreamDelta, error) {
	var ev streamEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return llm.StreamDelta{}, &llm.Error{Platform: "claude", Kind: llm.ErrKindParse, Message: "failed to decode stream event", Raw: data, Cause: err}
	}

	switch ev.Type {
	case "content_block_delta":
		if ev.Delta != nil && ev.Delta.Type == "text_delta" {
			return llm.StreamDelta{Content: ev.Delta.Text}, nil
		}
		return llm.StreamDelta{}, nil
	case "message_delta":
		var delta llm.StreamDelta
		if ev.Delta != nil {
			delta.FinishReason = ev.Delta.StopReason
		}
		if ev.Usage != nil {
			delta.TotalTokens = ev.Usage.OutputTokens
		}
		return delta, nil
	case "message_stop":
		return llm.StreamDelta{Done: true}, nil
	case "error":
		msg := "stream error"
		if ev.Error != nil && ev.Error.Message != "" {
			msg = ev.Error.Message
		}
		return llm.StreamDelta{}, &llm.Error{Platform: "claude", Kind: llm.ErrKindVendor, Message: msg, Raw: data}
	default:
		// An error envelope without the usual event type wrapper.
		if ev.Error != nil {
			msg := ev.Error.Message
			if msg == "" {
				msg = "stream error"
			}
			return llm.StreamDelta{}, &llm.Error{Platform: "claude", Kind: llm.ErrKindVendor, Message: msg, Raw: data}
		}
		// message_start, content_block_start/stop, ping.
		return llm.StreamDelta{}, nil
	}
}

func (a *Adapter) ParseError(raw []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Error == nil {
		return ""
	}
	return env.Error.Message
}
