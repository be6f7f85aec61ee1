package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// LogrusLogger implements Logger on sirupsen/logrus. It is selected with
// NP_LOG_BACKEND=logrus.
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger creates a LogrusLogger writing to stderr.
func NewLogrusLogger(component string) Logger {
	return NewLogrusLoggerTo(os.Stderr, component)
}

// NewLogrusLoggerTo is NewLogrusLogger with an explicit sink. APP_ENV=dev
// selects the text formatter, JSON otherwise.
func NewLogrusLoggerTo(w io.Writer, component string) Logger {
	l := logrus.New()
	l.SetOutput(w)
	if strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	lvl, err := logrus.ParseLevel(strings.ToLower(os.Getenv("NP_LOG_LEVEL")))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return &LogrusLogger{entry: l.WithField("component", component)}
}

func (l *LogrusLogger) Debugf(format string, args ...any) { l.entry.Debugf(format, args...) }

func (l *LogrusLogger) Debugw(msg string, fields map[string]any) {
	l.entry.WithFields(logrus.Fields(fields)).Debug(msg)
}

func (l *LogrusLogger) Infof(format string, args ...any)  { l.entry.Infof(format, args...) }
func (l *LogrusLogger) Warnf(format string, args ...any)  { l.entry.Warnf(format, args...) }
func (l *LogrusLogger) Errorf(format string, args ...any) { l.entry.Errorf(format, args...) }
