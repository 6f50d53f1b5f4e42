package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	APP        = "APP"
	ASSISTANT  = "ASSISTANT"
	CHAT       = "CHAT"
	CONFIG     = "CONFIG"
	CONSOLE    = "CONSOLE"
	HANDLER    = "HANDLER"
	MIDDLEWARE = "MIDDLEWARE"
	REDIS      = "REDIS"
	SERVICE    = "SERVICE"
	SESSION    = "SESSION"
	TOOLS      = "TOOLS"
)

// Options controls how Init configures the global logger.
type Options struct {
	Environment string
	Output      io.Writer
}

func getLogLevel() zerolog.Level {
	level := strings.ToUpper(os.Getenv("LOG_LEVEL"))
	switch level {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Init replaces the global zerolog logger. Development gets a human readable
// console writer, everything else gets JSON lines.
func Init(opts Options) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	w := out
	if opts.Environment == "development" {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	log.Logger = zerolog.New(w).
		Level(getLogLevel()).
		With().
		Timestamp().
		Logger()
}

// For returns a child of the global logger tagged with a component name.
func For(namespace string) zerolog.Logger {
	return log.With().Str("component", namespace).Logger()
}
