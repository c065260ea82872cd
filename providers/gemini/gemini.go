// Package gemini implements the Google Gemini generateContent wire
// format. Gemini keys its URLs with the API key instead of using an
// authorization header, and nests sampling options under
// generationConfig.
package gemini

import (
	"net/http"

	"github.com/aiconn/aiconn/llm"
)

const baseURL = "https://generativelanguage.googleapis.com/v1beta/models/"

func init() {
	llm.Register("gemini", func() llm.Adapter { return New() })
}

type Adapter struct{}

func New() *Adapter { return &Adapter{} }

func (a *Adapter) Platform() string { return "gemini" }

func (a *Adapter) Endpoint(model, apiKey string) string {
	return baseURL + model + ":generateContent?key=" + apiKey
}

func (a *Adapter) StreamEndpoint(model, apiKey string) string {
	return baseURL + model + ":streamGenerateContent?alt=sse&key=" + apiKey
}

func (a *Adapter) Headers(apiKey string) http.Header {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	return h
}
