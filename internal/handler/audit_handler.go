package handler

import (
	"net/http"
	"strconv"
	"strings"

	"go-ecoforum/internal/model"
	"go-ecoforum/internal/service"
)

type AuditHandler struct {
	service    *service.AuditService
	authorizer *service.Authorizer
	paging     model.PageLimits
}

func NewAuditHandler(service *service.AuditService, authorizer *service.Authorizer, paging model.PageLimits) *AuditHandler {
	return &AuditHandler{service: service, authorizer: authorizer, paging: paging}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.authorizer, service.ActionViewAudit, "", 0) {
		return
	}

	query := r.URL.Query()

	var actorID int64
	if raw := strings.TrimSpace(query.Get("actor_id")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, badRequest("actor_id must be an integer", raw))
			return
		}
		actorID = parsed
	}

	page := pageQuery(r, h.paging)
	items, meta, err := h.service.Query(r.Context(), model.AuditQuery{
		Action:   strings.TrimSpace(query.Get("action")),
		ActorID:  actorID,
		Status:   strings.TrimSpace(query.Get("status")),
		Resource: strings.TrimSpace(query.Get("resource")),
		From:     strings.TrimSpace(query.Get("from")),
		To:       strings.TrimSpace(query.Get("to")),
		Page:     page.Page,
		Limit:    page.Limit,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.ListData[model.AuditEntry]{Items: items}, &meta)
}
