package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go-ecoforum/internal/model"
	"go-ecoforum/internal/service"
)

type ReportHandler struct {
	service    *service.ReportService
	authorizer *service.Authorizer
	paging     model.PageLimits
	audit      *service.AuditService
}

func NewReportHandler(service *service.ReportService, authorizer *service.Authorizer, audit *service.AuditService, paging model.PageLimits) *ReportHandler {
	return &ReportHandler{service: service, authorizer: authorizer, audit: audit, paging: paging}
}

func (h *ReportHandler) File(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.FileReportRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, badRequest("invalid JSON body", ""))
		return
	}

	kind, ok := model.ParseTargetKind(payload.TargetKind)
	if !ok {
		writeError(w, model.ErrInvalidTarget)
		return
	}
	if payload.TargetID <= 0 {
		writeError(w, badRequest("target_id must be a positive integer", ""))
		return
	}

	if !authorize(w, r, h.authorizer, service.ActionReport, string(kind), payload.TargetID) {
		return
	}

	actor := actorFromRequest(r)
	reason := model.ReportReason(strings.ToLower(strings.TrimSpace(payload.Reason)))
	report, err := h.service.Submit(r.Context(), kind, payload.TargetID, actor.UserID, reason, payload.Description)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, report, nil)
}

func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.authorizer, service.ActionModerate, "", 0) {
		return
	}

	var status model.ReportStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		parsed, ok := model.ParseReportStatus(raw)
		if !ok {
			writeError(w, badRequest("status must be reported, resolved or rejected", raw))
			return
		}
		status = parsed
	}

	reports, meta, err := h.service.List(r.Context(), status, pageQuery(r, h.paging))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.ListData[model.Report]{Items: reports}, &meta)
}

func (h *ReportHandler) Count(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.authorizer, service.ActionModerate, "", 0) {
		return
	}

	query := r.URL.Query()
	kind, ok := model.ParseTargetKind(query.Get("target_kind"))
	if !ok {
		writeError(w, model.ErrInvalidTarget)
		return
	}
	targetID, err := strconv.ParseInt(strings.TrimSpace(query.Get("target_id")), 10, 64)
	if err != nil || targetID <= 0 {
		writeError(w, badRequest("target_id must be a positive integer", query.Get("target_id")))
		return
	}

	count, err := h.service.CountOpenReports(r.Context(), kind, targetID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.CountData{Count: count}, nil)
}

func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if !authorize(w, r, h.authorizer, service.ActionModerate, "", id) {
		return
	}

	report, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, report, nil)
}

func (h *ReportHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	h.finalize(w, r, "report.resolve", h.service.Resolve)
}

func (h *ReportHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.finalize(w, r, "report.reject", h.service.Reject)
}

type finalizeFunc func(ctx context.Context, reportID int64, resolverID int64, note string) (model.Report, error)

func (h *ReportHandler) finalize(w http.ResponseWriter, r *http.Request, action string, fn finalizeFunc) {
	defer r.Body.Close()

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if !authorize(w, r, h.authorizer, service.ActionModerate, "", id) {
		return
	}

	// The note is optional, so is the body.
	var payload model.FinalizeReportRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, badRequest("invalid JSON body", ""))
		return
	}

	actor := actorFromRequest(r)
	report, err := fn(r.Context(), id, actor.UserID, payload.Note)
	status, errText := auditStatus(err)
	var after any
	if err == nil {
		after = report
	}
	h.audit.Log(r.Context(), action, actor, status, resource("report", id), nil, after, errText)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, report, nil)
}
