package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

// Setup configures the process logger, which writes to stderr. level is one
// of debug, info, warn or error (default info); pretty switches to
// human-readable console output.
func Setup(level string, pretty bool) {
	var w io.Writer = os.Stderr
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	SetOutput(w, level)
}

// SetOutput redirects the logger, mainly for tests.
func SetOutput(w io.Writer, level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	mu.Lock()
	logger = zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	mu.Unlock()
}

func current() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := logger
	return &l
}

func Debug(msg string, fields map[string]any) { current().Debug().Fields(fields).Msg(msg) }
func Info(msg string, fields map[string]any)  { current().Info().Fields(fields).Msg(msg) }
func Warn(msg string, fields map[string]any)  { current().Warn().Fields(fields).Msg(msg) }
func Error(msg string, fields map[string]any) { current().Error().Fields(fields).Msg(msg) }
