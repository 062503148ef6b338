package telemetry

import (
	"log/slog"
	"os"
	"strings"
	"studiocheck/lib/configutil"
	"time"

	"github.com/lmittmann/tint"
)

// ParseLevel understands debug, info, warn and error. Anything else is info.
func ParseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// InitSlog installs the default logger. Production (GO_ENV=production) logs JSON to
// stdout, everything else gets colored console output on stderr. LOG_LEVEL wins
// over verbose.
func InitSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if value, ok := configutil.Lookup("LOG_LEVEL"); ok {
		level = ParseLevel(value)
	}

	var handler slog.Handler
	if configutil.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	}
	slog.SetDefault(slog.New(handler))
}
