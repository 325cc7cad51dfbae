package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pterm/pterm"
)

// DefaultPort is where the host listens for players over TCP
const DefaultPort = 57079

// Log formats
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Config holds CLI configuration
type Config struct {
	ServerURL  string
	AdminToken string
	Output     string
	LogFormat  string
	Verbose    bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:  getEnvOrDefault("WEREWOLF_SERVER", "http://localhost:8080"),
		AdminToken: os.Getenv("WEREWOLF_ADMIN_TOKEN"),
		Output:     "text",
		LogFormat:  getEnvOrDefault("WEREWOLF_LOG_FORMAT", LogFormatJSON),
		Verbose:    false,
	}
}

// Logger builds the process logger for the configured format.
// quiet raises the level to warnings, for commands that draw their own output.
func (c *Config) Logger(quiet bool) (*slog.Logger, error) {
	level := slog.LevelInfo
	if quiet {
		level = slog.LevelWarn
	}
	if c.Verbose {
		level = slog.LevelDebug
	}

	switch c.LogFormat {
	case LogFormatJSON:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})), nil
	case LogFormatText:
		logger := pterm.DefaultLogger.WithLevel(ptermLevel(level))
		return slog.New(pterm.NewSlogHandler(logger)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q: must be %s or %s", c.LogFormat, LogFormatJSON, LogFormatText)
	}
}

func ptermLevel(level slog.Level) pterm.LogLevel {
	switch {
	case level <= slog.LevelDebug:
		return pterm.LogLevelDebug
	case level <= slog.LevelInfo:
		return pterm.LogLevelInfo
	default:
		return pterm.LogLevelWarn
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
