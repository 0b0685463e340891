package handler

import (
	"encoding/json"
	"iter"
	"net/http"
	"strings"

	"go-ecoforum/internal/model"
	"go-ecoforum/internal/service"
)

type CommentHandler struct {
	service    *service.CommentService
	authorizer *service.Authorizer
	paging     model.PageLimits
	audit      *service.AuditService
}

func NewCommentHandler(service *service.CommentService, authorizer *service.Authorizer, audit *service.AuditService, paging model.PageLimits) *CommentHandler {
	return &CommentHandler{service: service, authorizer: authorizer, audit: audit, paging: paging}
}

func (h *CommentHandler) Post(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	threadID, err := pathID(r, "thread_id")
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.PostCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, badRequest("invalid JSON body", ""))
		return
	}
	if strings.TrimSpace(payload.Body) == "" {
		writeError(w, badRequest("body is required", ""))
		return
	}

	if !authorize(w, r, h.authorizer, service.ActionComment, service.TargetComments, 0) {
		return
	}

	actor := actorFromRequest(r)
	comment, err := h.service.Post(r.Context(), threadID, actor.UserID, payload.Body, payload.ParentCommentID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, comment, nil)
}

// ListThread returns the first page of a thread's top-level comments with
// their reply counts.
func (h *CommentHandler) ListThread(w http.ResponseWriter, r *http.Request) {
	threadID, err := pathID(r, "thread_id")
	if err != nil {
		writeError(w, err)
		return
	}

	limit := pageQuery(r, h.paging).Limit
	comments, err := take(h.service.ListThread(r.Context(), threadID, limit), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.ListData[model.Comment]{Items: comments}, nil)
}

func (h *CommentHandler) ListReplies(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	limit := pageQuery(r, h.paging).Limit
	replies, err := take(h.service.ListReplies(r.Context(), id, limit), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.ListData[model.Comment]{Items: replies}, nil)
}

func (h *CommentHandler) CountReplies(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	count, err := h.service.CountReplies(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.CountData{Count: count}, nil)
}

func (h *CommentHandler) Subtree(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	maxDepth := parseIntOrDefault(r.URL.Query().Get("max_depth"), 0)
	if maxDepth < 0 {
		writeError(w, badRequest("max_depth cannot be negative", r.URL.Query().Get("max_depth")))
		return
	}

	nodes, err := h.service.Subtree(r.Context(), id, maxDepth)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.ListData[model.CommentNode]{Items: nodes}, nil)
}

func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if !authorize(w, r, h.authorizer, service.ActionDelete, service.TargetComments, id) {
		return
	}

	actor := actorFromRequest(r)
	err = h.service.Delete(r.Context(), id, actor.Ref())
	status, errText := auditStatus(err)
	h.audit.Log(r.Context(), "comment.delete", actor, status, resource("comment", id), nil, nil, errText)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// take drains at most n items from seq, stopping the underlying query early.
func take[T any](seq iter.Seq2[T, error], n int) ([]T, error) {
	out := make([]T, 0, n)
	for item, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, item)
		if len(out) == n {
			break
		}
	}
	return out, nil
}
