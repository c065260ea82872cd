package llm

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// ParseToolSpec normalizes one tool definition. Two surface forms are
// accepted:
//
//	{"name":"f","description":"...","parameters":{...}}
//	{"type":"function","function":{"name":"f","description":"...","parameters":{...}}}
//
// Name and parameters are mandatory in either form.
func ParseToolSpec(raw string) (ToolSpec, error) {
	if !gjson.Valid(raw) {
		return ToolSpec{}, &Error{Kind: ErrKindValidation, Message: "tool definition is not valid JSON"}
	}

	doc := gjson.Parse(raw)
	if doc.Get("type").String() == "function" && doc.Get("function").Exists() {
		doc = doc.Get("function")
	}

	name := doc.Get("name")
	params := doc.Get("parameters")
	if !name.Exists() || name.String() == "" {
		return ToolSpec{}, &Error{Kind: ErrKindValidation, Message: "tool definition is missing 'name'"}
	}
	if !params.Exists() || !params.IsObject() {
		return ToolSpec{}, &Error{Kind: ErrKindValidation, Message: "tool definition '" + name.String() + "' is missing 'parameters'"}
	}

	return ToolSpec{
		Name:        name.String(),
		Description: doc.Get("description").String(),
		Parameters:  json.RawMessage(params.Raw),
	}, nil
}

// ParseToolSpecs normalizes a batch of tool definitions. Any invalid
// entry fails the whole batch.
func ParseToolSpecs(raw []string) ([]ToolSpec, error) {
	if len(raw) == 0 {
		return nil, &Error{Kind: ErrKindValidation, Message: "no tools provided"}
	}
	out := make([]ToolSpec, 0, len(raw))
	for _, r := range raw {
		spec, err := ParseToolSpec(r)
		if err != nil {
			return nil, err
		}
		out = append(out, spec)
	}
	return out, nil
}

// ParseToolResults decodes a caller-supplied tool result batch:
//
//	[{"tool_call_id":"c1","function":{"name":"f","output":"..."}}, ...]
//
// Each entry must name the function and carry an output; IsError is
// optional. Validation failures reject the whole batch.
func ParseToolResults(raw string) ([]ToolResult, error) {
	if !gjson.Valid(raw) {
		return nil, &Error{Kind: ErrKindValidation, Message: "tool results are not valid JSON"}
	}
	doc := gjson.Parse(raw)
	if !doc.IsArray() {
		return nil, &Error{Kind: ErrKindValidation, Message: "tool results must be a JSON array"}
	}

	var out []ToolResult
	var firstErr error
	doc.ForEach(func(_, item gjson.Result) bool {
		fn := item.Get("function")
		name := fn.Get("name")
		output := fn.Get("output")
		if !name.Exists() || name.String() == "" {
			firstErr = &Error{Kind: ErrKindValidation, Message: "tool result is missing 'function.name'"}
			return false
		}
		if !output.Exists() {
			firstErr = &Error{Kind: ErrKindValidation, Message: "tool result '" + name.String() + "' is missing 'function.output'"}
			return false
		}
		out = append(out, ToolResult{
			ToolCallID: item.Get("tool_call_id").String(),
			Name:       name.String(),
			Output:     output.String(),
			IsError:    item.Get("is_error").Bool(),
		})
		return true
	})
	if firstErr != nil {
		return nil, firstErr
	}
	if len(out) == 0 {
		return nil, &Error{Kind: ErrKindValidation, Message: "tool results array is empty"}
	}
	return out, nil
}

// ParseParams validates a vendor-parameter JSON object and returns it
// as a map ready to merge into a request body.
func ParseParams(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, &Error{Kind: ErrKindValidation, Message: "custom parameters must be a JSON object", Cause: err}
	}
	return m, nil
}

// MergeExtra copies extra vendor parameters into a request body,
// skipping keys the adapter owns. Adapters set their own fields after
// merging, so explicit options always win.
func MergeExtra(dst, extra map[string]any, reserved ...string) {
	for k, v := range extra {
		skip := false
		for _, r := range reserved {
			if k == r {
				skip = true
				break
			}
		}
		if !skip {
			dst[k] = v
		}
	}
}
