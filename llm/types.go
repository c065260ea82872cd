package llm

import "encoding/json"

// ChatOptions carries the caller-tunable parts of a plain chat request.
//
// Nil pointer fields are omitted from the vendor payload entirely, so
// the vendor applies its own defaults. Extra carries pre-validated
// vendor-specific JSON fields; explicit fields always win over Extra
// on key collisions.
type ChatOptions struct {
	SystemRole  string
	Temperature *float64
	MaxTokens   *int

	Extra map[string]any
}

func (o ChatOptions) Clone() ChatOptions {
	out := o
	if o.Temperature != nil {
		v := *o.Temperature
		out.Temperature = &v
	}
	if o.MaxTokens != nil {
		v := *o.MaxTokens
		out.MaxTokens = &v
	}
	if o.Extra != nil {
		out.Extra = make(map[string]any, len(o.Extra))
		for k, v := range o.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// ToolOptions tunes a tool-enabled chat request.
//
// ToolChoice holds the caller's raw preference: one of the mode words
// ("auto", "none", "required", "any"), a vendor JSON object string, or
// empty for the vendor default. Adapters map recognized modes to their
// wire form and pass anything else through.
type ToolOptions struct {
	SystemRole string
	MaxTokens  *int
	ToolChoice string
}

func (o ToolOptions) Clone() ToolOptions {
	out := o
	if o.MaxTokens != nil {
		v := *o.MaxTokens
		out.MaxTokens = &v
	}
	return out
}

// ToolSpec is a normalized tool definition, independent of the surface
// form it was registered in.
type ToolSpec struct {
	Name        string
	Description string

	// Parameters is the tool's JSON Schema object, verbatim.
	Parameters json.RawMessage
}

// ToolCall is one function invocation requested by the model.
//
// Arguments is the raw JSON argument payload as the vendor produced it.
// Gemini does not assign call IDs; ID is empty there.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolResult is the caller-supplied outcome of executing one tool call.
//
// ToolCallID pairs the result with the call that produced it and may be
// empty for vendors without call IDs. IsError marks a failed execution
// for vendors that distinguish it on the wire.
type ToolResult struct {
	ToolCallID string
	Name       string
	Output     string
	IsError    bool
}

// Turn is the pending tool-call exchange an adapter needs to rebuild
// the conversation for a follow-up request.
type Turn struct {
	UserMessage string
	ToolCalls   []ToolCall
}

// Result is a parsed non-streaming vendor response.
//
// FinishReason is the vendor's value verbatim ("stop", "tool_calls",
// "end_turn", "STOP", ...); callers that need cross-vendor logic
// should branch on ToolCalls instead.
type Result struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
	TotalTokens  int
}

// StreamDelta is one parsed streaming event.
//
// A delta may carry content, a finish reason, usage, any combination,
// or nothing at all (keep-alive events). Done marks the vendor's
// terminal event; the session stops reading after it.
type StreamDelta struct {
	Content      string
	FinishReason string
	TotalTokens  int
	Done         bool
}
