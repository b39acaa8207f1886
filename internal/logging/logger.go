// Package logging configures the process-wide structured logger. Verbosity
// comes from the FASTN_AGENT_DEBUG environment variable (0=error, 1=warn,
// 2=info, 3=debug, default warn) and can be raised later with SetLogLevel.
package logging

import (
	"log/slog"
	"os"
	"strconv"
)

var (
	logLevel = new(slog.LevelVar)
	logger   *slog.Logger
)

func init() {
	logLevel.Set(parseLogLevel(os.Getenv("FASTN_AGENT_DEBUG")))
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

// Logger returns the global logger instance.
func Logger() *slog.Logger {
	return logger
}

// SetLogLevel adjusts the level of every logger derived from Logger.
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}

func parseLogLevel(envVal string) slog.Level {
	n, err := strconv.Atoi(envVal)
	if err != nil {
		return slog.LevelWarn
	}
	switch n {
	case 0:
		return slog.LevelError
	case 1:
		return slog.LevelWarn
	case 2:
		return slog.LevelInfo
	case 3:
		return slog.LevelDebug
	default:
		return slog.LevelWarn
	}
}
