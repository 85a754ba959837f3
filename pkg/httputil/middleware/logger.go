package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/edgeflare/postemu/pkg/httputil"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ResponseRecorder is a wrapper for http.ResponseWriter to capture status codes.
type ResponseRecorder struct {
	http.ResponseWriter
	StatusCode int
}

func NewResponseRecorder(w http.ResponseWriter) *ResponseRecorder {
	return &ResponseRecorder{
		ResponseWriter: w,
		StatusCode:     http.StatusOK,
	}
}

func (rr *ResponseRecorder) WriteHeader(statusCode int) {
	rr.StatusCode = statusCode
	rr.ResponseWriter.WriteHeader(statusCode)
}

// LoggerFromContext returns the request-scoped logger set by Logger, or a no-op logger.
func LoggerFromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(httputil.LogEntryCtxKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// LoggerOptions defines configuration for the logger middleware.
type LoggerOptions struct {
	Logger *zap.Logger
	// Level of successful responses; 4xx and 5xx are logged at warn and error.
	Level zapcore.Level
}

// Logger logs one "response" entry per request.
func Logger(options LoggerOptions) httputil.Middleware {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID, ok := httputil.RequestID(r.Context())
			if !ok {
				reqID = uuid.Nil.String()
			}

			reqLogger := logger.With(zap.String("req_id", reqID))
			rec := NewResponseRecorder(w)
			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), httputil.LogEntryCtxKey, reqLogger)))

			level := options.Level
			switch {
			case rec.StatusCode >= http.StatusInternalServerError:
				level = zapcore.ErrorLevel
			case rec.StatusCode >= http.StatusBadRequest:
				level = zapcore.WarnLevel
			}
			if ce := reqLogger.Check(level, "response"); ce != nil {
				ce.Write(
					zap.Int("status", rec.StatusCode),
					zap.String("method", r.Method),
					zap.String("url", r.URL.String()),
					zap.String("remote_addr", r.RemoteAddr),
					zap.String("user_agent", r.UserAgent()),
					zap.Duration("latency", time.Since(start)),
				)
			}
		})
	}
}
