package evalapi

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/vordr-io/vordr-go/internal/logger"
	"github.com/vordr-io/vordr-go/internal/observability"
)

// RequestLogger logs every completed request with structured fields.
// Info for success, Warn for 4xx, Error for 5xx.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		reqID := middleware.GetReqID(r.Context())

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		level := slog.LevelInfo
		status := ww.Status()
		if status >= 500 {
			level = slog.LevelError
		} else if status >= 400 {
			level = slog.LevelWarn
		}

		logger.FromContext(r.Context()).Log(r.Context(), level, "HTTP request completed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.String("duration", time.Since(start).String()),
			slog.String("request_id", reqID),
			slog.String("remote_ip", r.RemoteAddr),
		)
	})
}

// Metrics records request duration and counts, labeled by the chi
// route pattern rather than the raw path to bound cardinality.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}

		observability.EvalAPIReqDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
		observability.EvalAPIReqTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(ww.Status())).Inc()
	})
}

// authenticateAPIKey rejects requests whose VORDR-API-KEY header does
// not hash to the configured SHA-256 digest. Comparison is constant
// time over the hex digests.
func (a *API) authenticateAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.skipAuth {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get("VORDR-API-KEY")
		if key == "" {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, ErrorResponse{Code: "ERR_UNAUTHORIZED", Message: "Missing API key"})
			return
		}

		sum := sha256.Sum256([]byte(key))
		digest := hex.EncodeToString(sum[:])

		if subtle.ConstantTimeCompare([]byte(digest), []byte(a.apiKeyHash)) != 1 {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, ErrorResponse{Code: "ERR_UNAUTHORIZED", Message: "Invalid API key"})
			return
		}

		next.ServeHTTP(w, r)
	})
}
