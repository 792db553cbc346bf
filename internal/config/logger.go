package config

import (
	"context"
	"io"
	"sync"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

var (
	loggerMu sync.RWMutex
	logger   = logrus.New()
)

// NewLogger builds a logrus logger from the log section.
func NewLogger(cfg LogConfig, out io.Writer) *logrus.Logger {
	l := logrus.New()
	if out != nil {
		l.SetOutput(out)
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

// SetLogger replaces the process-wide logger used by WithContext.
func SetLogger(l *logrus.Logger) {
	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
}

// Logger returns the process-wide logger.
func Logger() *logrus.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// WithContext returns a log entry tagged with the request id, if any.
func WithContext(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(Logger())
	if ctx == nil {
		return entry
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		entry = entry.WithField("request_id", reqID)
	}
	return entry
}
