package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"go-ecoforum/internal/model"
	"go-ecoforum/internal/service"
	"go-ecoforum/pkg/apierror"
)

type RecycleHandler struct {
	service    *service.RecycleService
	authorizer *service.Authorizer
	paging     model.PageLimits
	audit      *service.AuditService
}

func NewRecycleHandler(service *service.RecycleService, authorizer *service.Authorizer, audit *service.AuditService, paging model.PageLimits) *RecycleHandler {
	return &RecycleHandler{service: service, authorizer: authorizer, audit: audit, paging: paging}
}

// SoftDelete handles DELETE /content/{table}/{id}.
func (h *RecycleHandler) SoftDelete(w http.ResponseWriter, r *http.Request) {
	table := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "table")))
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if table == service.TargetComments {
		writeError(w, model.ErrUnknownTable)
		return
	}

	if !authorize(w, r, h.authorizer, service.ActionDelete, table, id) {
		return
	}

	actor := actorFromRequest(r)
	entry, err := h.service.SoftDelete(r.Context(), table, id, actor.Ref())
	status, errText := auditStatus(err)
	var before any
	if err == nil {
		before = entry.Snapshot
	}
	h.audit.Log(r.Context(), "content.delete", actor, status, resource(table, id), before, nil, errText)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, entry, nil)
}

// List handles GET /recycle-bin. An empty table lists every registered table.
func (h *RecycleHandler) List(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.authorizer, service.ActionViewRecycleBin, "", 0) {
		return
	}

	table := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("table")))
	entries, meta, err := h.service.ListDeletedPage(r.Context(), table, pageQuery(r, h.paging))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.ListData[model.RecycleEntry]{Items: entries}, &meta)
}

// Restore handles POST /recycle-bin/{table}/{id}/restore.
func (h *RecycleHandler) Restore(w http.ResponseWriter, r *http.Request) {
	table := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "table")))
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if !authorize(w, r, h.authorizer, service.ActionRestore, table, id) {
		return
	}

	actor := actorFromRequest(r)
	entry, err := h.service.Restore(r.Context(), table, id, actor.Ref())
	status, errText := auditStatus(err)
	var after any
	if err == nil {
		after = entry.Snapshot
	}
	h.audit.Log(r.Context(), "content.restore", actor, status, resource(table, id), nil, after, errText)
	if errors.Is(err, model.ErrNotFound) {
		writeError(w, apierror.New("NOT_FOUND", "nothing to restore", resource(table, id), http.StatusNotFound))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, entry, nil)
}

func resource(kind string, id int64) string {
	return fmt.Sprintf("%s#%d", kind, id)
}
