package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/catalog/catalog-go/internal/metrics"
)

type requestInfoKey struct{}

// requestInfo is filled in by inner handlers and read back once the request completes.
type requestInfo struct {
	userEmail string
}

func setLoggedUser(ctx context.Context, email string) {
	if info, ok := ctx.Value(requestInfoKey{}).(*requestInfo); ok {
		info.userEmail = email
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

// Logging returns middleware that logs every request and counts responses by status.
// Entries carry method, path, status, duration_ms and the user email once authenticated.
func Logging(logger *slog.Logger, m metrics.Recorder) func(http.Handler) http.Handler {
	if m == nil {
		m = metrics.Nop{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			info := &requestInfo{}
			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestInfoKey{}, info)))

			m.RecordHTTPStatus(rec.statusCode)

			args := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
			}
			if info.userEmail != "" {
				args = append(args, slog.String("user", info.userEmail))
			}

			level := slog.LevelInfo
			switch {
			case rec.statusCode >= 500:
				level = slog.LevelError
			case rec.statusCode >= 400:
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "http_request", args...)
		})
	}
}
