package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// AccessLog writes one zap entry per request. Panics are left to Recover.
func AccessLog(log *zap.Logger) func(http.Handler) http.Handler {
	return chimiddleware.RequestLogger(&accessLogFormatter{log: log.Named("http")})
}

type accessLogFormatter struct {
	log *zap.Logger
}

func (f *accessLogFormatter) NewLogEntry(r *http.Request) chimiddleware.LogEntry {
	return &accessLogEntry{log: f.log.With(
		zap.String("requestId", chimiddleware.GetReqID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("remote", r.RemoteAddr),
	)}
}

type accessLogEntry struct {
	log *zap.Logger
}

func (e *accessLogEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	fields := []zap.Field{
		zap.Int("status", status),
		zap.Int("bytes", bytes),
		zap.Duration("duration", elapsed),
	}
	if status >= http.StatusInternalServerError {
		e.log.Warn("request", fields...)
		return
	}
	e.log.Info("request", fields...)
}

func (e *accessLogEntry) Panic(v interface{}, stack []byte) {
	e.log.Error("request panicked", zap.Any("panic", v), zap.ByteString("stack", stack))
}
