// Package logger provides structured logging for the services.
package logger

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Setup initializes the process-wide structured logger from the given
// log level. It creates a JSON handler writing to stdout, sets the
// result as the default slog logger, and returns it.
func Setup(logLevel string) (*slog.Logger, error) {
	level, err := parseLevel(logLevel)
	if err != nil {
		return nil, err
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	log := slog.New(handler)
	slog.SetDefault(log)
	return log, nil
}

func parseLevel(logLevel string) (slog.Level, error) {
	switch strings.ToLower(logLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", logLevel)
	}
}
