// Package claude implements the Anthropic Messages wire format.
// max_tokens is mandatory on this API; requests that leave it unset
// get defaultMaxTokens.
package claude

import (
	"net/http"

	"github.com/aiconn/aiconn/llm"
)

const (
	endpoint         = "https://api.anthropic.com/v1/messages"
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 1024
)

func init() {
	llm.Register("claude", func() llm.Adapter { return New() })
}

type Adapter struct{}

func New() *Adapter { return &Adapter{} }

func (a *Adapter) Platform() string { return "claude" }

func (a *Adapter) Endpoint(model, apiKey string) string { return endpoint }

func (a *Adapter) StreamEndpoint(model, apiKey string) string { return endpoint }

func (a *Adapter) Headers(apiKey string) http.Header {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	h.Set("anthropic-version", apiVersion)
	if apiKey != "" {
		h.Set("x-api-key", apiKey)
	}
	return h
}
