package openai

import (
	"encoding/json"
	"testing"

	"github.com/aiconn/aiconn/llm"
)

func decodeBody(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	return m
}

func TestBuildChat_MinimalBody(t *testing.T) {
	raw, err := New().BuildChat(llm.ChatOptions{}, "gpt-4o", "hi")
	if err != nil {
		t.Fatalf("BuildChat() err=%v", err)
	}
	body := decodeBody(t, raw)

	if body["model"] != "gpt-4o" {
		t.Fatalf("model=%v", body["model"])
	}
	if _, ok := body["max_completion_tokens"]; ok {
		t.Fatalf("max_completion_tokens should be omitted when unset")
	}
	if _, ok := body["max_tokens"]; ok {
		t.Fatalf("max_tokens should never appear for openai")
	}
	if _, ok := body["temperature"]; ok {
		t.Fatalf("temperature should be omitted when unset")
	}
	msgs := body["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("messages=%d", len(msgs))
	}
	first := msgs[0].(map[string]any)
	if first["role"] != "user" || first["content"] != "hi" {
		t.Fatalf("first message=%v", first)
	}
}

func TestBuildChat_OptionsAndSystemRole(t *testing.T) {
	temp := 0.7
	max := 256
	raw, err := New().BuildChat(llm.ChatOptions{
		SystemRole:  "be brief",
		Temperature: &temp,
		MaxTokens:   &max,
	}, "gpt-4o", "hi")
	if err != nil {
		t.Fatalf("BuildChat() err=%v", err)
	}
	body := decodeBody(t, raw)

	if body["temperature"] != 0.7 {
		t.Fatalf("temperature=%v", body["temperature"])
	}
	if body["max_completion_tokens"] != float64(256) {
		t.Fatalf("max_completion_tokens=%v", body["max_completion_tokens"])
	}
	msgs := body["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages=%d", len(msgs))
	}
	system := msgs[0].(map[string]any)
	if system["role"] != "system" || system["content"] != "be brief" {
		t.Fatalf("system message=%v", system)
	}
}

func TestBuildChat_ExplicitWinsOverExtra(t *testing.T) {
	temp := 0.2
	raw, err := New().BuildChat(llm.ChatOptions{
		Temperature: &temp,
		Extra:       map[string]any{"temperature": 1.9, "top_p": 0.5, "model": "evil"},
	}, "gpt-4o", "hi")
	if err != nil {
		t.Fatalf("BuildChat() err=%v", err)
	}
	body := decodeBody(t, raw)

	if body["temperature"] != 0.2 {
		t.Fatalf("temperature=%v, explicit option should win", body["temperature"])
	}
	if body["top_p"] != 0.5 {
		t.Fatalf("top_p=%v", body["top_p"])
	}
	if body["model"] != "gpt-4o" {
		t.Fatalf("model=%v, reserved key should be protected", body["model"])
	}
}

func TestBuildStream_SetsStreamFlag(t *testing.T) {
	raw, err := New().BuildStream(llm.ChatOptions{Extra: map[string]any{"stream": false}}, "gpt-4o", "hi")
	if err != nil {
		t.Fatalf("BuildStream() err=%v", err)
	}
	body := decodeBody(t, raw)
	if body["stream"] != true {
		t.Fatalf("stream=%v", body["stream"])
	}
}

func TestBuildTools_WireShape(t *testing.T) {
	tools := []llm.ToolSpec{{
		Name:        "get_weather",
		Description: "weather lookup",
		Parameters:  json.RawMessage(`{"type":"object","properties":{"location":{"type":"string"}}}`),
	}}
	raw, err := New().BuildTools(llm.ToolOptions{ToolChoice: "required"}, tools, "gpt-4o", "weather in SF?")
	if err != nil {
		t.Fatalf("BuildTools() err=%v", err)
	}
	body := decodeBody(t, raw)

	wtools := body["tools"].([]any)
	if len(wtools) != 1 {
		t.Fatalf("tools=%d", len(wtools))
	}
	tool := wtools[0].(map[string]any)
	if tool["type"] != "function" {
		t.Fatalf("type=%v", tool["type"])
	}
	fn := tool["function"].(map[string]any)
	if fn["name"] != "get_weather" {
		t.Fatalf("name=%v", fn["name"])
	}
	if body["tool_choice"] != "required" {
		t.Fatalf("tool_choice=%v", body["tool_choice"])
	}
}

func TestMapToolChoice(t *testing.T) {
	if got := mapToolChoice("any"); got != "required" {
		t.Fatalf("any=%v", got)
	}
	if got := mapToolChoice("auto"); got != "auto" {
		t.Fatalf("auto=%v", got)
	}
	if got := mapToolChoice(""); got != nil {
		t.Fatalf("empty=%v", got)
	}
	obj := mapToolChoice(`{"type":"function","function":{"name":"f"}}`)
	m, ok := obj.(map[string]any)
	if !ok || m["type"] != "function" {
		t.Fatalf("object choice=%v", obj)
	}
	// Unrecognized strings pass through untouched.
	if got := mapToolChoice("whatever"); got != "whatever" {
		t.Fatalf("passthrough=%v", got)
	}
}

func TestBuildFollowup_RebuildsConversation(t *testing.T) {
	tools := []llm.ToolSpec{{Name: "get_weather", Parameters: json.RawMessage(`{"type":"object"}`)}}
	turn := llm.Turn{
		UserMessage: "weather in SF?",
		ToolCalls:   []llm.ToolCall{{ID: "call_1", Name: "get_weather", Arguments: `{"location":"SF"}`}},
	}
	results := []llm.ToolResult{{ToolCallID: "call_1", Name: "get_weather", Output: `{"temp":21}`}}

	raw, err := New().BuildFollowup(llm.ToolOptions{}, tools, "gpt-4o", turn, results)
	if err != nil {
		t.Fatalf("BuildFollowup() err=%v", err)
	}
	body := decodeBody(t, raw)

	msgs := body["messages"].([]any)
	if len(msgs) != 3 {
		t.Fatalf("messages=%d", len(msgs))
	}
	user := msgs[0].(map[string]any)
	if user["role"] != "user" || user["content"] != "weather in SF?" {
		t.Fatalf("user=%v", user)
	}
	assistant := msgs[1].(map[string]any)
	if assistant["role"] != "assistant" {
		t.Fatalf("assistant=%v", assistant)
	}
	calls := assistant["tool_calls"].([]any)
	call := calls[0].(map[string]any)
	if call["id"] != "call_1" || call["type"] != "function" {
		t.Fatalf("call=%v", call)
	}
	fn := call["function"].(map[string]any)
	if fn["arguments"] != `{"location":"SF"}` {
		t.Fatalf("arguments=%v", fn["arguments"])
	}
	toolMsg := msgs[2].(map[string]any)
	if toolMsg["role"] != "tool" || toolMsg["tool_call_id"] != "call_1" || toolMsg["content"] != `{"temp":21}` {
		t.Fatalf("tool message=%v", toolMsg)
	}
	if _, ok := body["tools"]; !ok {
		t.Fatalf("tools should be re-sent on followup")
	}
}

func TestHeaders(t *testing.T) {
	h := New().Headers("sk-test")
	if got := h.Get("Authorization"); got != "Bearer sk-test" {
		t.Fatalf("Authorization=%q", got)
	}
	if got := h.Get("Content-Type"); got != "application/json" {
		t.Fatalf("Content-Type=%q", got)
	}
}
