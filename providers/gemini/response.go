package gemini

import (
	"encoding/json"
	"strings"

	"github.com/aiconn/aiconn/llm"
)

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []apiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	UsageMetadata *struct {
		TotalTokenCount int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

type apiPart struct {
	Text         string `json:"text"`
	FunctionCall *struct {
		Name string          `json:"name"`
		Args json.RawMessage `json:"args"`
	} `json:"functionCall"`
}

type errorEnvelope struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (a *Adapter) ParseChat(raw []byte) (llm.Result, error) {
	return a.parse(raw)
}

func (a *Adapter) ParseTools(raw []byte) (llm.Result, error) {
	return a.parse(raw)
}

func (a *Adapter) parse(raw []byte) (llm.Result, error) {
	var resp generateContentResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return llm.Result{}, &llm.Error{Platform: "gemini", Kind: llm.ErrKindParse, Message: "failed to decode response", Raw: append([]byte(nil), raw...), Cause: err}
	}
	if len(resp.Candidates) == 0 {
		// Vendors return their error envelope in 2xx bodies too.
		if msg := a.ParseError(raw); msg != "" {
			return llm.Result{}, &llm.Error{Platform: "gemini", Kind: llm.ErrKindVendor, Message: msg, Raw: append([]byte(nil), raw...)}
		}
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return llm.Result{}, &llm.Error{Platform: "gemini", Kind: llm.ErrKindVendor, Message: "prompt blocked: " + resp.PromptFeedback.BlockReason, Raw: append([]byte(nil), raw...)}
		}
		return llm.Result{}, &llm.Error{Platform: "gemini", Kind: llm.ErrKindParse, Message: "response has no candidates", Raw: append([]byte(nil), raw...)}
	}

	cand := resp.Candidates[0]
	out := llm.Result{FinishReason: cand.FinishReason}
	if resp.UsageMetadata != nil {
		out.TotalTokens = resp.UsageMetadata.TotalTokenCount
	}

	var b strings.Builder
	for _, p := range cand.Content.Parts {
		b.WriteString(p.Text)
		if p.FunctionCall != nil {
			args := string(p.FunctionCall.Args)
			if args == "" {
				args = "{}"
			}
			// Gemini does not assign call IDs.
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				Name:      p.FunctionCall.Name,
				Arguments: args,
			})
		}
	}
	out.Content = b.String()
	return out, nil
}

// ParseStreamChunk consumes one streamGenerateContent SSE payload.
// A chunk carrying any finishReason is terminal: Gemini reports
// MAX_TOKENS, SAFETY and RECITATION the same way as STOP, so a blocked
// stream still completes rather than erroring.
func (a *Adapter) ParseStreamChunk(data []byte) (llm.StreamDelta, error) {
	var resp generateContentResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return llm.StreamDelta{}, &llm.Error{Platform: "gemini", Kind: llm.ErrKindParse, Message: "failed to decode stream chunk", Raw: data, Cause: err}
	}

	var delta llm.StreamDelta
	if resp.UsageMetadata != nil {
		delta.TotalTokens = resp.UsageMetadata.TotalTokenCount
	}
	if len(resp.Candidates) == 0 {
		if msg := a.ParseError(data); msg != "" {
			return llm.StreamDelta{}, &llm.Error{Platform: "gemini", Kind: llm.ErrKindVendor, Message: msg, Raw: data}
		}
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return llm.StreamDelta{}, &llm.Error{Platform: "gemini", Kind: llm.ErrKindVendor, Message: "prompt blocked: " + resp.PromptFeedback.BlockReason, Raw: data}
		}
		return delta, nil
	}
	cand := resp.Candidates[0]
	var b strings.Builder
	for _, p := range cand.Content.Parts {
		b.WriteString(p.Text)
	}
	delta.Content = b.String()
	if cand.FinishReason != "" {
		delta.FinishReason = cand.FinishReason
		delta.Done = true
	}
	return delta, nil
}

func (a *Adapter) ParseError(raw []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Error == nil {
		return ""
	}
	return env.Error.Message
}
