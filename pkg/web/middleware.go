package web

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ritzau/coco/pkg/logging"
)

const (
	headerRequestID = "X-Request-ID"
	headerRunID     = "X-Coco-Run-ID"
)

// traceRequests tags each request with a request id and the run id of the
// report it is served from, then logs the outcome. Clients can compare
// X-Coco-Run-ID across calls to notice that a re-analysis swapped the report.
func (s *Server) traceRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := logging.WithRequestID(r.Context(), requestID)
		w.Header().Set(headerRequestID, requestID)

		if report, _ := s.current(); report != nil {
			ctx = logging.WithRunID(ctx, report.RunID)
			w.Header().Set(headerRunID, report.RunID)
		}

		rec := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))

		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.Status(),
			"bytes", rec.bytes,
			"durationMs", time.Since(start).Milliseconds(),
		}
		switch status := rec.Status(); {
		case status >= 500:
			log.ErrorContext(ctx, "Request failed", args...)
		case status >= 400 && status != http.StatusServiceUnavailable:
			log.WarnContext(ctx, "Request rejected", args...)
		default:
			// 503 before the first report is routine while analysis runs
			log.DebugContext(ctx, "Request served", args...)
		}
	})
}

// statusRecorder remembers the response status and size. It stays an
// http.Flusher so event streams pass through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (rw *statusRecorder) WriteHeader(code int) {
	if rw.status == 0 {
		rw.status = code
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(p []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(p)
	rw.bytes += int64(n)
	return n, err
}

// Status returns the written status, 200 if the handler wrote nothing
func (rw *statusRecorder) Status() int {
	if rw.status == 0 {
		return http.StatusOK
	}
	return rw.status
}

func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
