package logger

import (
	"os"
	"strings"

	corelogger "github.com/kilianp07/nightplan/core/logger"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger = corelogger.Nop

// New returns a Logger for the given component. NP_LOG_BACKEND chooses
// between zerolog (default) and logrus; APP_ENV picks the output format and
// NP_LOG_LEVEL the level.
func New(component string) Logger {
	if strings.EqualFold(os.Getenv("NP_LOG_BACKEND"), "logrus") {
		return NewLogrusLogger(component)
	}
	return NewZerologLogger(component)
}
