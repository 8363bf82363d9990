package evalapi

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vordr-io/vordr-go/internal/evaluator"
	"github.com/vordr-io/vordr-go/internal/store"
)

func loadedCatalog(t *testing.T) *Catalog {
	t.Helper()

	gate := map[string]any{
		"name":         "beta_access",
		"type":         "feature_gate",
		"salt":         "beta_salt",
		"enabled":      true,
		"defaultValue": false,
		"rules": []map[string]any{
			{
				"id":             "rule_emails",
				"passPercentage": 100,
				"returnValue":    true,
				"conditions": []map[string]any{
					{
						"type":        "user_field",
						"field":       "email",
						"operator":    "str_ends_with_any",
						"targetValue": []any{"@example.com"},
					},
				},
			},
		},
	}
	raw, err := json.Marshal(gate)
	require.NoError(t, err)

	catalog := NewCatalog(evaluator.New(nil))
	require.NoError(t, catalog.Apply(context.Background(), &store.Ruleset{
		HasUpdates:   true,
		Time:         4000,
		FeatureGates: []json.RawMessage{raw},
	}))
	return catalog
}

func postEval(t *testing.T, api *API, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	api.Router.ServeHTTP(rec, req)
	return rec
}

func TestAPI_CheckGate(t *testing.T) {
	t.Parallel()

	api := NewAPIWithConfig(loadedCatalog(t), "", true)

	t.Run("Should evaluate a matching user", func(t *testing.T) {
		t.Parallel()

		rec := postEval(t, api, "/v1/check_gate", EvalRequest{
			Name: "beta_access",
			User: &evaluator.User{UserID: "u-1", Email: "dev@example.com"},
		}, nil)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp EvalResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Value)
		assert.Equal(t, "rule_emails", resp.RuleID)
		assert.Equal(t, "Network", resp.Details.Reason)
		assert.Equal(t, int64(4000), resp.Details.Time)
	})

	t.Run("Should evaluate a non-matching user to the default", func(t *testing.T) {
		t.Parallel()

		rec := postEval(t, api, "/v1/check_gate", EvalRequest{
			Name: "beta_access",
			User: &evaluator.User{UserID: "u-2", Email: "dev@other.org"},
		}, nil)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp EvalResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Value)
		assert.Equal(t, "default", resp.RuleID)
	})

	t.Run("Should report Unrecognized for unknown gates", func(t *testing.T) {
		t.Parallel()

		rec := postEval(t, api, "/v1/check_gate", EvalRequest{
			Name: "ghost_gate",
			User: &evaluator.User{UserID: "u-1"},
		}, nil)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp EvalResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Value)
		assert.Equal(t, "Unrecognized", resp.Details.Reason)
	})

	t.Run("Should reject a missing name", func(t *testing.T) {
		t.Parallel()

		rec := postEval(t, api, "/v1/check_gate", EvalRequest{
			User: &evaluator.User{UserID: "u-1"},
		}, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "ERR_MISSING_NAME")
	})

	t.Run("Should reject malformed JSON", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/v1/check_gate", bytes.NewReader([]byte(`{broken`)))
		rec := httptest.NewRecorder()
		api.Router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "ERR_INVALID_JSON")
	})

	t.Run("Should default a missing user to empty", func(t *testing.T) {
		t.Parallel()

		rec := postEval(t, api, "/v1/check_gate", map[string]any{"name": "beta_access"}, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestAPI_EmptyCatalogReportsUninitialized(t *testing.T) {
	t.Parallel()

	api := NewAPIWithConfig(NewCatalog(evaluator.New(nil)), "", true)

	rec := postEval(t, api, "/v1/get_config", EvalRequest{
		Name: "any_config",
		User: &evaluator.User{UserID: "u-1"},
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp EvalResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Uninitialized", resp.Details.Reason)
}

func TestAPI_Authentication(t *testing.T) {
	t.Parallel()

	sum := sha256.Sum256([]byte("server-secret"))
	api := NewAPI(loadedCatalog(t), hex.EncodeToString(sum[:]))

	body := EvalRequest{Name: "beta_access", User: &evaluator.User{UserID: "u-1"}}

	t.Run("Should reject a missing key", func(t *testing.T) {
		t.Parallel()

		rec := postEval(t, api, "/v1/check_gate", body, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Should reject a wrong key", func(t *testing.T) {
		t.Parallel()

		rec := postEval(t, api, "/v1/check_gate", body, map[string]string{"VORDR-API-KEY": "wrong"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Should accept the right key", func(t *testing.T) {
		t.Parallel()

		rec := postEval(t, api, "/v1/check_gate", body, map[string]string{"VORDR-API-KEY": "server-secret"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Should leave health unauthenticated", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		api.Router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"loaded":true`)
	})
}

func TestCatalog_NotModifiedLeavesGeneration(t *testing.T) {
	t.Parallel()

	catalog := loadedCatalog(t)

	require.NoError(t, catalog.Apply(context.Background(), &store.Ruleset{HasUpdates: false}))

	res := catalog.CheckGate(&evaluator.User{UserID: "u-1", Email: "dev@example.com"}, "beta_access")
	assert.True(t, res.Value)
	assert.Equal(t, int64(4000), res.Details.Time)
}

func TestCatalog_ApplyRejectsPartialRuleset(t *testing.T) {
	t.Parallel()

	catalog := loadedCatalog(t)

	err := catalog.Apply(context.Background(), &store.Ruleset{
		HasUpdates:   true,
		Time:         9000,
		FeatureGates: []json.RawMessage{json.RawMessage(`{"type":"feature_gate"}`)},
	})
	require.Error(t, err)

	// The previous generation keeps serving.
	res := catalog.CheckGate(&evaluator.User{UserID: "u-1", Email: "dev@example.com"}, "beta_access")
	assert.True(t, res.Value)
	assert.Equal(t, int64(4000), res.Details.Time)
}
