package llm

import (
	"net/http"
	"sort"
	"strings"
	"sync"
)

// Adapter translates between the neutral domain model and one vendor's
// wire format. Build methods return the exact JSON request body; Parse
// methods consume the raw response body.
//
// Adapters are stateless: everything a request needs is passed in, and
// parse results are returned rather than cached, so one adapter value
// is safe for concurrent use.
type Adapter interface {
	Platform() string

	// Endpoint and StreamEndpoint return the full request URL.
	// Gemini keys its URLs; the other vendors ignore apiKey here.
	Endpoint(model, apiKey string) string
	StreamEndpoint(model, apiKey string) string

	// Headers returns the vendor's required request headers,
	// including authentication.
	Headers(apiKey string) http.Header

	BuildChat(opts ChatOptions, model, userMessage string) ([]byte, error)
	BuildStream(opts ChatOptions, model, userMessage string) ([]byte, error)
	BuildTools(opts ToolOptions, tools []ToolSpec, model, userMessage string) ([]byte, error)
	BuildFollowup(opts ToolOptions, tools []ToolSpec, model string, turn Turn, results []ToolResult) ([]byte, error)

	ParseChat(raw []byte) (Result, error)
	ParseTools(raw []byte) (Result, error)

	// ParseStreamChunk consumes one SSE data payload.
	ParseStreamChunk(data []byte) (StreamDelta, error)

	// ParseError maps a non-2xx response body to a vendor error
	// message, or "" when the body has no recognizable envelope.
	ParseError(raw []byte) string
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func() Adapter)
)

// Register makes an adapter constructor available under a platform
// name. Provider packages call it from init; duplicate names panic the
// same way database/sql does for drivers.
func Register(platform string, factory func() Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	key := strings.ToLower(platform)
	if _, dup := registry[key]; dup {
		panic("llm: Register called twice for platform " + platform)
	}
	registry[key] = factory
}

// NewAdapter returns a fresh adapter for the named platform.
// Lookup is case-insensitive.
func NewAdapter(platform string) (Adapter, error) {
	registryMu.RLock()
	factory, ok := registry[strings.ToLower(platform)]
	registryMu.RUnlock()
	if !ok {
		return nil, &Error{
			Kind:    ErrKindConfig,
			Message: "platform '" + platform + "' is not supported",
		}
	}
	return factory(), nil
}

// Platforms lists the registered platform names, sorted.
func Platforms() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
