// Package deepseek registers the DeepSeek platform. DeepSeek speaks
// the OpenAI chat completions format; only the endpoint and the
// token-limit key differ.
package deepseek

import (
	"github.com/aiconn/aiconn/llm"
	"github.com/aiconn/aiconn/providers/openai"
)

const endpoint = "https://api.deepseek.com/v1/chat/completions"

func init() {
	llm.Register("deepseek", func() llm.Adapter { return New() })
}

func New() llm.Adapter {
	return openai.New(
		openai.WithPlatform("deepseek"),
		openai.WithEndpoint(endpoint),
		openai.WithMaxTokensKey("max_tokens"),
	)
}
