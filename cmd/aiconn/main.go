// Command aiconn is a small CLI over the library: one-shot chat,
// streaming to stdout, a tool-call round trip driven by a definitions
// file, and platform/version listings.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/aiconn/aiconn"
	"github.com/aiconn/aiconn/config"
)

var (
	cfgPath  string
	platform string
	apiKey   string
	model    string
	logLevel string

	logger *slog.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "aiconn",
		Short:         "Unified chat client for OpenAI, Gemini, Claude and DeepSeek",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = newLogger(logLevel)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to a settings file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&platform, "platform", "", "platform name (openai, gemini, claude, deepseek)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "vendor API key (or AICONN_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "model name")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newChatCmd(), newStreamCmd(), newToolsCmd(), newPlatformsCmd(), newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: time.Kitchen,
	}))
}

// newClient assembles a client from the settings file when given, with
// flags and environment taking precedence.
func newClient() (*aiconn.Client, error) {
	if cfgPath != "" {
		cfg, err := config.LoadSettings(cfgPath)
		if err != nil {
			return nil, err
		}
		s := cfg.Get()
		if platform != "" {
			s.Platform = platform
		}
		if apiKey != "" {
			s.APIKey = apiKey
		}
		if model != "" {
			s.Model = model
		}
		return aiconn.NewFromSettings(s, aiconn.WithLogger(logger))
	}

	key := apiKey
	if key == "" {
		key = os.Getenv("AICONN_API_KEY")
	}
	return aiconn.New(platform, key, model, aiconn.WithLogger(logger))
}
