// Package openai implements the OpenAI chat completions wire format.
// OpenAI-compatible vendors reuse it with a different endpoint and
// token-limit key; see the deepseek package.
package openai

import (
	"net/http"

	"github.com/aiconn/aiconn/llm"
)

const (
	defaultEndpoint = "https://api.openai.com/v1/chat/completions"

	// OpenAI deprecated max_tokens on chat completions; compatible
	// vendors still use it.
	defaultMaxTokensKey = "max_completion_tokens"
)

func init() {
	llm.Register("openai", func() llm.Adapter { return New() })
	// Alias for proxies and self-hosted servers speaking this dialect;
	// pair it with WithEndpoint or the client's endpoint override.
	llm.Register("openai-compatible", func() llm.Adapter { return New() })
}

type Adapter struct {
	platform     string
	endpoint     string
	maxTokensKey string
}

type Option func(*Adapter)

func New(opts ...Option) *Adapter {
	a := &Adapter{
		platform:     "openai",
		endpoint:     defaultEndpoint,
		maxTokensKey: defaultMaxTokensKey,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func WithPlatform(name string) Option {
	return func(a *Adapter) { a.platform = name }
}

func WithEndpoint(url string) Option {
	return func(a *Adapter) { a.endpoint = url }
}

func WithMaxTokensKey(key string) Option {
	return func(a *Adapter) { a.maxTokensKey = key }
}

func (a *Adapter) Platform() string { return a.platform }

func (a *Adapter) Endpoint(model, apiKey string) string { return a.endpoint }

func (a *Adapter) StreamEndpoint(model, apiKey string) string { return a.endpoint }

func (a *Adapter) Headers(apiKey string) http.Header {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	if apiKey != "" {
		h.Set("Authorization", "Bearer "+apiKey)
	}
	return h
}
