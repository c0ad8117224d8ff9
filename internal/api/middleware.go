package api

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/studytrackapp/studytrack-server/internal/http/response"
	"github.com/studytrackapp/studytrack-server/internal/service"
	"github.com/studytrackapp/studytrack-server/internal/telemetry"
)

const requestIDHeader = "X-Request-ID"

const requestIDKey ctxKey = "requestID"

// getRequestID returns the id assigned by requestID, or "".
func getRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// requestID tags every request with a UUID, reusing a well-formed inbound X-Request-ID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogger logs one line per request after it completes.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			switch {
			case status >= http.StatusInternalServerError:
				level = slog.LevelError
			case status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}
			logger.LogAttrs(r.Context(), level, "HTTP request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", getRequestID(r.Context())),
				slog.String("trace_id", telemetry.TraceID(r)),
			)
		})
	}
}

// recoverer turns a handler panic into a 500 envelope and logs the stack.
func recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil || rec == http.ErrAbortHandler {
					if rec != nil {
						panic(rec)
					}
					return
				}
				logger.Error("Handler panic",
					"panic", rec,
					"path", r.URL.Path,
					"request_id", getRequestID(r.Context()),
					"stack", string(debug.Stack()),
				)
				response.InternalError(w, "internal server error", logger)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

const clientInfoKey ctxKey = "clientInfo"

// clientContext records the caller's address and user agent for session bookkeeping.
func clientContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := service.ClientInfo{
			IPAddress: getClientIP(r),
			UserAgent: r.UserAgent(),
		}
		ctx := context.WithValue(r.Context(), clientInfoKey, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// getClientInfo returns what clientContext recorded, or the zero value.
func getClientInfo(ctx context.Context) service.ClientInfo {
	info, _ := ctx.Value(clientInfoKey).(service.ClientInfo)
	return info
}
