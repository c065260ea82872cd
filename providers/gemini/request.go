package gemini

import (
	"encoding/json"
	"strings"

	"github.com/aiconn/aiconn/llm"
)

// generationConfigKeys are the vendor parameters Gemini nests under
// generationConfig rather than at the top level of the request.
var generationConfigKeys = map[string]bool{
	"temperature":      true,
	"topP":             true,
	"topK":             true,
	"maxOutputTokens":  true,
	"candidateCount":   true,
	"stopSequences":    true,
	"responseMimeType": true,
	"responseSchema":   true,
	"presencePenalty":  true,
	"frequencyPenalty": true,
	"seed":             true,
}

func (a *Adapter) BuildChat(opts llm.ChatOptions, model, userMessage string) ([]byte, error) {
	body, genCfg := a.baseBody(opts.Extra)
	body["contents"] = []any{userContent(userMessage)}
	if opts.SystemRole != "" {
		body["systemInstruction"] = textContent(opts.SystemRole)
	}
	if opts.Temperature != nil {
		genCfg["temperature"] = *opts.Temperature
	}
	if opts.MaxTokens != nil {
		genCfg["maxOutputTokens"] = *opts.MaxTokens
	}
	if len(genCfg) > 0 {
		body["generationConfig"] = genCfg
	}
	return a.marshal(body)
}

// BuildStream produces the same body as BuildChat; streaming is
// selected by the endpoint, not a body flag.
func (a *Adapter) BuildStream(opts llm.ChatOptions, model, userMessage string) ([]byte, error) {
	return a.BuildChat(opts, model, userMessage)
}

func (a *Adapter) BuildTools(opts llm.ToolOptions, tools []llm.ToolSpec, model, userMessage string) ([]byte, error) {
	body, genCfg := a.baseBody(nil)
	body["contents"] = []any{userContent(userMessage)}
	if opts.SystemRole != "" {
		body["systemInstruction"] = textContent(opts.SystemRole)
	}
	if opts.MaxTokens != nil {
		genCfg["maxOutputTokens"] = *opts.MaxTokens
		body["generationConfig"] = genCfg
	}
	body["tools"] = buildTools(tools)
	if tc := mapToolChoice(opts.ToolChoice); tc != nil {
		body["toolConfig"] = tc
	}
	return a.marshal(body)
}

func (a *Adapter) BuildFollowup(opts llm.ToolOptions, tools []llm.ToolSpec, model string, turn llm.Turn, results []llm.ToolResult) ([]byte, error) {
	callParts := make([]any, 0, len(turn.ToolCalls))
	for _, tc := range turn.ToolCalls {
		callParts = append(callParts, map[string]any{
			"functionCall": map[string]any{
				"name": tc.Name,
				"args": rawArgs(tc.Arguments),
			},
		})
	}

	resultParts := make([]any, 0, len(results))
	for _, r := range results {
		resultParts = append(resultParts, map[string]any{
			"functionResponse": map[string]any{
				"name":     r.Name,
				"response": map[string]any{"content": r.Output},
			},
		})
	}

	body, genCfg := a.baseBody(nil)
	body["contents"] = []any{
		userContent(turn.UserMessage),
		map[string]any{"role": "model", "parts": callParts},
		map[string]any{"role": "user", "parts": resultParts},
	}
	if opts.SystemRole != "" {
		body["systemInstruction"] = textContent(opts.SystemRole)
	}
	if opts.MaxTokens != nil {
		genCfg["maxOutputTokens"] = *opts.MaxTokens
		body["generationConfig"] = genCfg
	}
	body["tools"] = buildTools(tools)
	if tc := mapToolChoice(opts.ToolChoice); tc != nil {
		body["toolConfig"] = tc
	}
	return a.marshal(body)
}

// baseBody merges extra parameters, routing sampling keys into the
// returned generationConfig map.
func (a *Adapter) baseBody(extra map[string]any) (map[string]any, map[string]any) {
	body := make(map[string]any)
	genCfg := make(map[string]any)
	for k, v := range extra {
		switch {
		case k == "contents" || k == "systemInstruction":
			// Owned by the adapter.
		case k == "generationConfig":
			if m, ok := v.(map[string]any); ok {
				for gk, gv := range m {
					genCfg[gk] = gv
				}
			}
		case generationConfigKeys[k]:
			genCfg[k] = v
		default:
			body[k] = v
		}
	}
	return body, genCfg
}

func (a *Adapter) marshal(body map[string]any) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, &llm.Error{Platform: "gemini", Kind: llm.ErrKindValidation, Message: "failed to encode request", Cause: err}
	}
	return raw, nil
}

func userContent(text string) map[string]any {
	return map[string]any{"role": "user", "parts": []any{map[string]any{"text": text}}}
}

func textContent(text string) map[string]any {
	return map[string]any{"parts": []any{map[string]any{"text": text}}}
}

func buildTools(tools []llm.ToolSpec) []any {
	decls := make([]any, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"parameters":  parameterSchema(t.Parameters),
		})
	}
	return []any{map[string]any{"functionDeclarations": decls}}
}

// parameterSchema converts an object-rooted JSON Schema to Gemini's
// type spelling. Schemas with any other root type pass through
// verbatim.
func parameterSchema(raw json.RawMessage) any {
	v := rawArgs(string(raw))
	if m, ok := v.(map[string]any); ok {
		if s, _ := m["type"].(string); s == "object" {
			return upperCaseTypes(m)
		}
	}
	return v
}

// upperCaseTypes rewrites every "type" value in a JSON Schema to
// Gemini's upper-case spelling ("object" becomes "OBJECT"). Already
// upper-cased schemas pass through unchanged.
func upperCaseTypes(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			if k == "type" {
				if s, ok := val.(string); ok {
					out[k] = strings.ToUpper(s)
					continue
				}
			}
			out[k] = upperCaseTypes(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = upperCaseTypes(val)
		}
		return out
	default:
		return v
	}
}

func mapToolChoice(raw string) any {
	var mode string
	switch raw {
	case "":
		return nil
	case "auto":
		mode = "AUTO"
	case "none":
		mode = "NONE"
	case "required", "any":
		mode = "ANY"
	default:
		if strings.HasPrefix(strings.TrimSpace(raw), "{") && json.Valid([]byte(raw)) {
			var v map[string]any
			if err := json.Unmarshal([]byte(raw), &v); err == nil {
				return v
			}
		}
		mode = strings.ToUpper(raw)
	}
	return map[string]any{"functionCallingConfig": map[string]any{"mode": mode}}
}

// rawArgs decodes a JSON payload for re-embedding in a request body.
// Invalid payloads are wrapped as an empty object so the request stays
// well-formed.
func rawArgs(raw string) any {
	var v any
	if raw == "" || json.Unmarshal([]byte(raw), &v) != nil {
		return map[string]any{}
	}
	return v
}
