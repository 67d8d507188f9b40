// Package middleware holds the HTTP interceptors every site request passes
// through.
package middleware

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/lmittmann/tint"
	"github.com/pitabwire/util"
)

const (
	clientError = 400
	serverError = 500

	tintCodeOK          = 10
	tintCodeClientError = 11
	tintCodeServerError = 9
	tintCodeDuration    = 214
)

// responseWriterWrapper captures the response status.
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (w *responseWriterWrapper) WriteHeader(code int) {
	if !w.wroteHeader {
		w.statusCode = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriterWrapper) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

// Hijack implements http.Hijacker if the underlying ResponseWriter supports it.
func (w *responseWriterWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := w.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (w *responseWriterWrapper) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Logging logs every request once it completes, at a level chosen by the
// response status.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		start := time.Now()
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start)

		logHTTPRequest(util.Log(r.Context()), r, wrapped.statusCode, duration)
	})
}

// ContextLogging propagates the logger of mainCtx into each request context.
func ContextLogging(mainCtx context.Context, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := util.Log(mainCtx)
		ctx := util.ContextWithLogger(r.Context(), logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Recover turns a panicking handler into a 500 response.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				util.Log(r.Context()).WithFields(map[string]any{
					"trigger": p,
					"path":    r.URL.Path,
					"stack":   string(debug.Stack()),
				}).Error("recovered from panic")
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func logHTTPRequest(logger *util.LogEntry, r *http.Request, statusCode int, duration time.Duration) {
	log := logger.
		With(
			tint.Attr(statusColor(statusCode), slog.Int("status_code", statusCode)),
			tint.Attr(tintCodeDuration, slog.Int64("duration_ms", duration.Milliseconds())),
		).
		WithFields(map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"query":       r.URL.RawQuery,
			"remote_addr": r.RemoteAddr,
			"user_agent":  r.UserAgent(),
			"htmx":        r.Header.Get("HX-Request") == "true",
		})
	defer log.Release()

	switch {
	case statusCode >= serverError:
		log.Error("HTTP request completed with server error")
	case statusCode >= clientError:
		log.Warn("HTTP request completed with client error")
	default:
		log.Info("HTTP request completed successfully")
	}
}

func statusColor(statusCode int) uint8 {
	switch {
	case statusCode >= serverError:
		return tintCodeServerError
	case statusCode >= clientError:
		return tintCodeClientError
	default:
		return tintCodeOK
	}
}
