package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
)

// liveness answers 200 whenever the process can serve HTTP at all.
func (s *Server) liveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness runs every registered checker in parallel and answers 200
// only when all of them pass.
func (s *Server) readiness(w http.ResponseWriter, r *http.Request) {
	// Bound the whole probe so the kubelet gets an answer in time.
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeout)
	defer cancel()

	statusMap := make(map[string]string)
	hasError := false

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, checker := range s.checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()

			err := c.Check(ctx)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				// Warn, not Error: the kubelet retries and a flapping
				// dependency would otherwise page on every probe.
				s.logger.Warn("readiness check failed",
					slog.String("component", c.Name()),
					slog.String("error", err.Error()),
				)
				statusMap[c.Name()] = fmt.Sprintf("down: %v", err)
				hasError = true
			} else {
				statusMap[c.Name()] = "up"
			}
		}(checker)
	}

	wg.Wait()

	w.Header().Set("Content-Type", "application/json")
	if hasError {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	// The body is for humans; the probe only reads the status code, so
	// an encode failure after WriteHeader is not actionable.
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": statusMap,
	})
}
