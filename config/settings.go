package config

import "time"

// EnvPrefix is the environment variable prefix for overrides, so
// AICONN_API_KEY beats the api_key file entry.
const EnvPrefix = "AICONN"

// Settings is the client configuration file schema (YAML or JSON).
type Settings struct {
	Platform string `mapstructure:"platform" json:"platform"`
	APIKey   string `mapstructure:"api_key" json:"api_key"`
	Model    string `mapstructure:"model" json:"model"`

	// Endpoint/StreamEndpoint override the platform's default URLs.
	Endpoint       string `mapstructure:"endpoint" json:"endpoint"`
	StreamEndpoint string `mapstructure:"stream_endpoint" json:"stream_endpoint"`

	SystemRole  string   `mapstructure:"system_role" json:"system_role"`
	Temperature *float64 `mapstructure:"temperature" json:"temperature"`
	MaxTokens   *int     `mapstructure:"max_tokens" json:"max_tokens"`

	ChunkTimeout time.Duration `mapstructure:"chunk_timeout" json:"chunk_timeout"`
	HTTPTimeout  time.Duration `mapstructure:"http_timeout" json:"http_timeout"`

	LogLevel string `mapstructure:"log_level" json:"log_level"`
}

// LoadSettings loads a watched settings file with AICONN_ environment
// overrides bound.
func LoadSettings(path string) (*Config[Settings], error) {
	return Load[Settings](path,
		WithEnv[Settings](EnvPrefix),
		WithDefaults[Settings](map[string]any{
			"platform":  "openai",
			"log_level": "info",
		}),
	)
}
