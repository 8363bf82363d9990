package evalapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/vordr-io/vordr-go/internal/evaluator"
	"github.com/vordr-io/vordr-go/internal/logger"
)

// handleCheckGate processes POST /v1/check_gate.
func (a *API) handleCheckGate(w http.ResponseWriter, r *http.Request) {
	a.handleEval(w, r, "gate", a.catalog.CheckGate)
}

// handleGetConfig processes POST /v1/get_config.
func (a *API) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	a.handleEval(w, r, "config", a.catalog.GetConfig)
}

// handleGetLayer processes POST /v1/get_layer.
func (a *API) handleGetLayer(w http.ResponseWriter, r *http.Request) {
	a.handleEval(w, r, "layer", a.catalog.GetLayer)
}

// handleEval decodes the shared request shape, validates it, runs the
// evaluation, and writes the result.
func (a *API) handleEval(w http.ResponseWriter, r *http.Request, kind string, eval func(*evaluator.User, string) *evaluator.Result) {
	log := logger.FromContext(r.Context())

	var req EvalRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("invalid json payload", slog.String("error", err.Error()))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_JSON",
			Message: "Invalid JSON payload: " + err.Error(),
		})
		return
	}

	if req.Name == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_MISSING_NAME",
			Message: "Field 'name' is required",
		})
		return
	}
	if req.User == nil {
		req.User = &evaluator.User{}
	}

	result := eval(req.User, req.Name)

	log.Debug("evaluation served",
		slog.String("kind", kind),
		slog.String("name", req.Name),
		slog.String("rule_id", result.RuleID),
		slog.String("reason", string(result.Details.Reason)),
	)

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toEvalResponse(req.Name, result))
}
