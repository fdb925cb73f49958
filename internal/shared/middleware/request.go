package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	apperrors "prayer-tracker/internal/shared/errors"
)

// RequestIDHeader carries the per-request identifier.
const RequestIDHeader = "X-Request-ID"

// RequestID tags each request with a short unique ID, reusing one supplied by
// the client.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.New().String()[:8]
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// Logger logs request method, path, status, and duration.
func Logger(logf func(format string, args ...any)) func(http.Handler) http.Handler {
	if logf == nil {
		logf = log.Printf
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			logf("%s %s %d %dms id=%s", r.Method, r.URL.Path, sw.status,
				time.Since(start).Milliseconds(), w.Header().Get(RequestIDHeader))
		})
	}
}

// Recovery turns a handler panic into a 500. If the handler already started
// its response the panic is only logged.
func Recovery(logf func(format string, args ...any)) func(http.Handler) http.Handler {
	if logf == nil {
		logf = log.Printf
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					logf("panic recovered on %s: %v", r.URL.Path, err)
					if !sw.wroteHeader {
						apperrors.WriteError(w, apperrors.InternalError())
					}
				}
			}()
			next.ServeHTTP(sw, r)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}
