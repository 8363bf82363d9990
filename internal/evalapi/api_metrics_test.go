package evalapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vordr-io/vordr-go/internal/evalapi"
	"github.com/vordr-io/vordr-go/internal/evaluator"
	"github.com/vordr-io/vordr-go/internal/store"
	"github.com/vordr-io/vordr-go/internal/testsupport"
)

// Metrics live in the global Prometheus registry, so these tests run
// serially without t.Parallel.
func TestMetrics_Recording(t *testing.T) {
	gate := map[string]any{
		"name":         "metrics_gate",
		"type":         "feature_gate",
		"salt":         "m_salt",
		"enabled":      true,
		"defaultValue": false,
		"rules":        []map[string]any{},
	}
	raw, err := json.Marshal(gate)
	require.NoError(t, err)

	catalog := evalapi.NewCatalog(evaluator.New(nil))
	require.NoError(t, catalog.Apply(context.Background(), &store.Ruleset{
		HasUpdates:   true,
		Time:         1000,
		FeatureGates: []json.RawMessage{raw},
	}))

	api := evalapi.NewAPIWithConfig(catalog, "", true)

	post := func(path string, body []byte) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		api.Router.ServeHTTP(rr, req)
		return rr
	}

	validBody, err := json.Marshal(evalapi.EvalRequest{
		Name: "metrics_gate",
		User: &evaluator.User{UserID: "u-1"},
	})
	require.NoError(t, err)

	t.Run("records request count and latency for successful evaluations", func(t *testing.T) {
		counterLabels := map[string]string{
			"method": "POST",
			"path":   "/v1/check_gate",
			"code":   "200",
		}

		testsupport.AssertMetricDelta(t, "vordr_evalapi_http_requests_total", counterLabels, 1, func() {
			rr := post("/v1/check_gate", validBody)
			require.Equal(t, http.StatusOK, rr.Code)
		})

		testsupport.AssertHistogramRecorded(t, "vordr_evalapi_http_handling_seconds", map[string]string{
			"method": "POST",
			"path":   "/v1/check_gate",
		})
	})

	t.Run("records evaluations by kind and reason", func(t *testing.T) {
		labels := map[string]string{
			"kind":   "gate",
			"reason": "Network",
		}

		testsupport.AssertMetricDelta(t, "vordr_engine_evaluations_total", labels, 1, func() {
			rr := post("/v1/check_gate", validBody)
			require.Equal(t, http.StatusOK, rr.Code)
		})
	})

	t.Run("collapses unmatched routes to a single label", func(t *testing.T) {
		labels := map[string]string{
			"method": "GET",
			"path":   "unmatched",
			"code":   "404",
		}

		testsupport.AssertMetricDelta(t, "vordr_evalapi_http_requests_total", labels, 1, func() {
			req := httptest.NewRequest(http.MethodGet, "/admin.php", nil)
			rr := httptest.NewRecorder()
			api.Router.ServeHTTP(rr, req)
			require.Equal(t, http.StatusNotFound, rr.Code)
		})
	})

	t.Run("counts rejected payloads", func(t *testing.T) {
		labels := map[string]string{
			"method": "POST",
			"path":   "/v1/check_gate",
			"code":   "400",
		}

		testsupport.AssertMetricDelta(t, "vordr_evalapi_http_requests_total", labels, 1, func() {
			rr := post("/v1/check_gate", []byte(`{invalid-json`))
			require.Equal(t, http.StatusBadRequest, rr.Code)
		})
	})
}
