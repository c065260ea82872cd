package gemini

import (
	"encoding/json"
	"reflect"
	"strings"
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

func TestEndpoints_KeyedURLs(t *testing.T) {
	a := New()
	if got := a.Endpoint("gemini-2.0-flash", "k123"); got != "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent?key=k123" {
		t.Fatalf("Endpoint()=%q", got)
	}
	stream := a.StreamEndpoint("gemini-2.0-flash", "k123")
	if !strings.Contains(stream, ":streamGenerateContent?alt=sse&key=k123") {
		t.Fatalf("StreamEndpoint()=%q", stream)
	}
	if a.Headers("k123").Get("Authorization") != "" {
		t.Fatalf("gemini must not send an Authorization header")
	}
}

func TestBuildChat_GenerationConfig(t *testing.T) {
	temp := 0.5
	max := 100
	raw, err := New().BuildChat(llm.ChatOptions{
		SystemRole:  "be brief",
		Temperature: &temp,
		MaxTokens:   &max,
	}, "gemini-2.0-flash", "hi")
	if err != nil {
		t.Fatalf("BuildChat() err=%v", err)
	}
	body := decodeBody(t, raw)

	gen := body["generationConfig"].(map[string]any)
	if gen["temperature"] != 0.5 {
		t.Fatalf("temperature=%v", gen["temperature"])
	}
	if gen["maxOutputTokens"] != float64(100) {
		t.Fatalf("maxOutputTokens=%v", gen["maxOutputTokens"])
	}
	if _, ok := body["max_tokens"]; ok {
		t.Fatalf("max_tokens must not appear at the top level")
	}

	sys := body["systemInstruction"].(map[string]any)
	parts := sys["parts"].([]any)
	if parts[0].(map[string]any)["text"] != "be brief" {
		t.Fatalf("systemInstruction=%v", sys)
	}

	contents := body["contents"].([]any)
	first := contents[0].(map[string]any)
	if first["role"] != "user" {
		t.Fatalf("contents=%v", contents)
	}
}

func TestBuildChat_OmitsGenerationConfigWhenEmpty(t *testing.T) {
	raw, err := New().BuildChat(llm.ChatOptions{}, "gemini-2.0-flash", "hi")
	if err != nil {
		t.Fatalf("BuildChat() err=%v", err)
	}
	body := decodeBody(t, raw)
	if _, ok := body["generationConfig"]; ok {
		t.Fatalf("generationConfig should be omitted when empty")
	}
}

func TestBuildChat_ExtraParamRouting(t *testing.T) {
	raw, err := New().BuildChat(llm.ChatOptions{
		Extra: map[string]any{
			"topK":           float64(40),
			"safetySettings": []any{map[string]any{"category": "HARM_CATEGORY_HARASSMENT"}},
		},
	}, "gemini-2.0-flash", "hi")
	if err != nil {
		t.Fatalf("BuildChat() err=%v", err)
	}
	body := decodeBody(t, raw)

	gen := body["generationConfig"].(map[string]any)
	if gen["topK"] != float64(40) {
		t.Fatalf("topK=%v, should be routed under generationConfig", gen["topK"])
	}
	if _, ok := body["topK"]; ok {
		t.Fatalf("topK must not stay at the top level")
	}
	if _, ok := body["safetySettings"]; !ok {
		t.Fatalf("safetySettings should stay at the top level")
	}
}

func TestUpperCaseTypes(t *testing.T) {
	var schema any
	if err := json.Unmarshal([]byte(`{"type":"object","properties":{"location":{"type":"string"},"days":{"type":"integer"},"tags":{"type":"array","items":{"type":"string"}}}}`), &schema); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	once := upperCaseTypes(schema)
	raw, _ := json.Marshal(once)
	for _, want := range []string{`"OBJECT"`, `"STRING"`, `"INTEGER"`, `"ARRAY"`} {
		if !strings.Contains(string(raw), want) {
			t.Fatalf("missing %s in %s", want, raw)
		}
	}

	twice := upperCaseTypes(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("upperCaseTypes is not idempotent")
	}
}

func TestBuildTools_FunctionDeclarations(t *testing.T) {
	tools := []llm.ToolSpec{{
		Name:        "get_weather",
		Description: "weather lookup",
		Parameters:  json.RawMessage(`{"type":"object","properties":{"location":{"type":"string"}}}`),
	}}
	raw, err := New().BuildTools(llm.ToolOptions{ToolChoice: "any"}, tools, "gemini-2.0-flash", "weather?")
	if err != nil {
		t.Fatalf("BuildTools() err=%v", err)
	}
	body := decodeBody(t, raw)

	wtools := body["tools"].([]any)
	decls := wtools[0].(map[string]any)["functionDeclarations"].([]any)
	decl := decls[0].(map[string]any)
	if decl["name"] != "get_weather" {
		t.Fatalf("name=%v", decl["name"])
	}
	params := decl["parameters"].(map[string]any)
	if params["type"] != "OBJECT" {
		t.Fatalf("type=%v, should be upper-cased", params["type"])
	}

	tcfg := body["toolConfig"].(map[string]any)["functionCallingConfig"].(map[string]any)
	if tcfg["mode"] != "ANY" {
		t.Fatalf("mode=%v", tcfg["mode"])
	}
}

func TestBuildFollowup_FunctionResponseParts(t *testing.T) {
	turn := llm.Turn{
		UserMessage: "weather in SF?",
		ToolCalls:   []llm.ToolCall{{Name: "get_weather", Arguments: `{"location":"SF"}`}},
	}
	results := []llm.ToolResult{{Name: "get_weather", Output: `{"temp":21}`}}

	raw, err := New().BuildFollowup(llm.ToolOptions{}, []llm.ToolSpec{{Name: "get_weather", Parameters: json.RawMessage(`{"type":"object"}`)}}, "gemini-2.0-flash", turn, results)
	if err != nil {
		t.Fatalf("BuildFollowup() err=%v", err)
	}
	body := decodeBody(t, raw)

	contents := body["contents"].([]any)
	if len(contents) != 3 {
		t.Fatalf("contents=%d", len(contents))
	}

	modelTurn := contents[1].(map[string]any)
	if modelTurn["role"] != "model" {
		t.Fatalf("model turn=%v", modelTurn)
	}
	call := modelTurn["parts"].([]any)[0].(map[string]any)["functionCall"].(map[string]any)
	if call["name"] != "get_weather" {
		t.Fatalf("functionCall=%v", call)
	}
	args := call["args"].(map[string]any)
	if args["location"] != "SF" {
		t.Fatalf("args=%v", args)
	}

	replyTurn := contents[2].(map[string]any)
	if replyTurn["role"] != "user" {
		t.Fatalf("reply turn=%v", replyTurn)
	}
	fr := replyTurn["parts"].([]any)[0].(map[string]any)["functionResponse"].(map[string]any)
	if fr["name"] != "get_weather" {
		t.Fatalf("functionResponse=%v", fr)
	}
	resp := fr["response"].(map[string]any)
	if resp["content"] != `{"temp":21}` {
		t.Fatalf("response=%v", resp)
	}
}

func TestParameterSchema_NonObjectRootPassesThrough(t *testing.T) {
	raw := json.RawMessage(`{"type":"string","enum":["celsius","fahrenheit"]}`)
	got := parameterSchema(raw)

	var want any
	if err := json.Unmarshal(raw, &want); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("schema rewritten: %v", got)
	}
}

func TestParameterSchema_ObjectRootConverted(t *testing.T) {
	got := parameterSchema(json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}}}`))
	m, ok := got.(map[string]any)
	if !ok || m["type"] != "OBJECT" {
		t.Fatalf("schema=%v", got)
	}
}
