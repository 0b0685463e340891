package handler

import (
	"log/slog"
	"net/http"

	"go-ecoforum/internal/model"
	"go-ecoforum/internal/service"
)

// authorize writes the error response itself and reports whether the handler
// may continue.
func authorize(w http.ResponseWriter, r *http.Request, authorizer *service.Authorizer, action service.Action, targetKind string, targetID int64) bool {
	actor := actorFromRequest(r)
	if actor.UserID <= 0 {
		writeError(w, model.ErrUnauthorized)
		return false
	}

	allowed, err := authorizer.Authorize(r.Context(), actor, action, targetKind, targetID)
	if err != nil {
		writeError(w, err)
		return false
	}
	if !allowed {
		slog.Warn("action denied", "action", action, "user_id", actor.UserID, "target", targetKind, "target_id", targetID)
		writeError(w, model.ErrForbidden)
		return false
	}

	return true
}

func auditStatus(err error) (string, string) {
	if err != nil {
		return "failure", err.Error()
	}
	return "success", ""
}
