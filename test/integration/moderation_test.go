//go:build integration

package integration

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-ecoforum/internal/model"
	"go-ecoforum/internal/testutil"
)

func TestSoftDeleteAndRestoreOverHTTP(t *testing.T) {
	server, pool := newServer(t)
	author := testutil.SignToken(t, 7, model.RoleMember)
	stranger := testutil.SignToken(t, 8, model.RoleMember)
	moderator := testutil.SignToken(t, 2, model.RoleModerator)

	articleID := seedArticle(t, pool, 7, "Greywater reuse")
	contentURL := fmt.Sprintf("%s/api/v1/content/articles/%d", server.URL, articleID)
	restoreURL := fmt.Sprintf("%s/api/v1/recycle-bin/articles/%d/restore", server.URL, articleID)

	status, body := doAuthJSONRequest(t, http.MethodDelete, contentURL, nil, stranger)
	require.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", body.Error.Code)

	status, body = doAuthJSONRequest(t, http.MethodDelete, contentURL, nil, author)
	require.Equal(t, http.StatusOK, status)
	entry := decode[model.RecycleEntry](t, body)
	assert.Equal(t, model.NotRestored, entry.RestorationStatus)
	assert.JSONEq(t, `"Greywater reuse"`, string(mustField(t, entry.Snapshot, "title")))

	var remaining int
	require.NoError(t, pool.QueryRow(context.Background(), `SELECT COUNT(*) FROM articles WHERE id = $1`, articleID).Scan(&remaining))
	assert.Zero(t, remaining)

	status, _ = doAuthJSONRequest(t, http.MethodDelete, contentURL, nil, author)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doAuthJSONRequest(t, http.MethodGet, server.URL+"/api/v1/recycle-bin", nil, author)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = doAuthJSONRequest(t, http.MethodGet, server.URL+"/api/v1/recycle-bin?table=articles", nil, moderator)
	require.Equal(t, http.StatusOK, status)
	listed := decode[model.ListData[model.RecycleEntry]](t, body)
	require.Len(t, listed.Items, 1)
	assert.Equal(t, 1, body.Meta.Total)

	status, body = doAuthJSONRequest(t, http.MethodPost, restoreURL, nil, moderator)
	require.Equal(t, http.StatusOK, status)
	restored := decode[model.RecycleEntry](t, body)
	assert.Equal(t, model.Restored, restored.RestorationStatus)
	require.NotNil(t, restored.RestoredBy)
	assert.Equal(t, int64(2), *restored.RestoredBy)

	var title string
	require.NoError(t, pool.QueryRow(context.Background(), `SELECT title FROM articles WHERE id = $1`, articleID).Scan(&title))
	assert.Equal(t, "Greywater reuse", title)

	status, body = doAuthJSONRequest(t, http.MethodPost, restoreURL, nil, moderator)
	require.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "nothing to restore", body.Error.Message)

	status, body = doAuthJSONRequest(t, http.MethodGet, server.URL+"/api/v1/audit?resource=articles", nil, moderator)
	require.Equal(t, http.StatusOK, status)
	audit := decode[model.ListData[model.AuditEntry]](t, body)
	require.Len(t, audit.Items, 3)
	assert.Equal(t, "content.restore", audit.Items[0].Action)
	assert.Equal(t, "failure", audit.Items[0].Status)
	assert.Equal(t, "content.delete", audit.Items[2].Action)
	assert.Equal(t, "success", audit.Items[2].Status)
}

func TestReportFinalizedOnceOverHTTP(t *testing.T) {
	server, pool := newServer(t)
	reporter := testutil.SignToken(t, 6, model.RoleMember)
	moderator := testutil.SignToken(t, 2, model.RoleModerator)
	admin := testutil.SignToken(t, 1, model.RoleAdmin)

	threadID := seedThread(t, pool, 5, "Bokashi questions")

	status, body := doAuthJSONRequest(t, http.MethodPost, server.URL+"/api/v1/reports", model.FileReportRequest{
		TargetKind: "thread", TargetID: threadID, Reason: "SPAM", Description: "link farm",
	}, reporter)
	require.Equal(t, http.StatusCreated, status)
	report := decode[model.Report](t, body)
	assert.Equal(t, int64(5), report.ContentOwnerID)
	assert.Equal(t, model.ReasonSpam, report.Reason)
	assert.Nil(t, report.CommentID)

	countURL := fmt.Sprintf("%s/api/v1/reports/count?target_kind=thread&target_id=%d", server.URL, threadID)
	status, body = doAuthJSONRequest(t, http.MethodGet, countURL, nil, moderator)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, decode[model.CountData](t, body).Count)

	status, _ = doAuthJSONRequest(t, http.MethodPost, fmt.Sprintf("%s/api/v1/reports/%d/resolve", server.URL, report.ID), nil, reporter)
	assert.Equal(t, http.StatusForbidden, status)

	statuses := make([]int, 2)
	var wg sync.WaitGroup
	for i, finalizer := range []struct{ action, token string }{{"resolve", moderator}, {"reject", admin}} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := newAuthRequest(t, http.MethodPost, fmt.Sprintf("%s/api/v1/reports/%d/%s", server.URL, report.ID, finalizer.action),
				model.FinalizeReportRequest{Note: "handled"}, finalizer.token)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return
			}
			_ = resp.Body.Close()
			statuses[i] = resp.StatusCode
		}()
	}
	wg.Wait()
	assert.ElementsMatch(t, []int{http.StatusOK, http.StatusConflict}, statuses)

	status, body = doAuthJSONRequest(t, http.MethodGet, fmt.Sprintf("%s/api/v1/reports/%d", server.URL, report.ID), nil, moderator)
	require.Equal(t, http.StatusOK, status)
	final := decode[model.Report](t, body)
	assert.NotEqual(t, model.ReportReported, final.Status)
	require.NotNil(t, final.ResolutionNote)
	assert.Equal(t, "handled", *final.ResolutionNote)

	status, body = doAuthJSONRequest(t, http.MethodGet, countURL, nil, moderator)
	require.Equal(t, http.StatusOK, status)
	assert.Zero(t, decode[model.CountData](t, body).Count)

	status, body = doAuthJSONRequest(t, http.MethodGet, server.URL+"/api/v1/reports?status="+string(final.Status), nil, moderator)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[model.ListData[model.Report]](t, body).Items, 1)
}

func TestCommentTreeOverHTTP(t *testing.T) {
	server, pool := newServer(t)
	member := testutil.SignToken(t, 3, model.RoleMember)
	moderator := testutil.SignToken(t, 2, model.RoleModerator)

	threadID := seedThread(t, pool, 1, "Heat pumps")
	commentsURL := fmt.Sprintf("%s/api/v1/threads/%d/comments", server.URL, threadID)

	status, body := doAuthJSONRequest(t, http.MethodPost, commentsURL, model.PostCommentRequest{Body: "root"}, member)
	require.Equal(t, http.StatusCreated, status)
	root := decode[model.Comment](t, body)

	parent := root.ID
	for depth := range 4 {
		status, body = doAuthJSONRequest(t, http.MethodPost, commentsURL,
			model.PostCommentRequest{Body: fmt.Sprintf("depth %d", depth+1), ParentCommentID: &parent}, member)
		require.Equal(t, http.StatusCreated, status)
		parent = decode[model.Comment](t, body).ID
	}

	status, body = doAuthJSONRequest(t, http.MethodGet, commentsURL, nil, "")
	require.Equal(t, http.StatusOK, status)
	top := decode[model.ListData[model.Comment]](t, body)
	require.Len(t, top.Items, 1)
	require.NotNil(t, top.Items[0].RepliesCount)
	assert.Equal(t, 1, *top.Items[0].RepliesCount)

	status, body = doAuthJSONRequest(t, http.MethodGet, fmt.Sprintf("%s/api/v1/comments/%d/subtree?max_depth=2", server.URL, root.ID), nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[model.ListData[model.CommentNode]](t, body).Items, 3)

	status, _ = doAuthJSONRequest(t, http.MethodDelete, fmt.Sprintf("%s/api/v1/comments/%d", server.URL, root.ID), nil, moderator)
	require.Equal(t, http.StatusNoContent, status)

	// The first reply survives with a dangling parent.
	var orphans int
	require.NoError(t, pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM comments WHERE parent_comment_id = $1`, root.ID).Scan(&orphans))
	assert.Equal(t, 1, orphans)

	status, body = doAuthJSONRequest(t, http.MethodPost, commentsURL,
		model.PostCommentRequest{Body: "late", ParentCommentID: &root.ID}, member)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "INVALID_PARENT", body.Error.Code)
}

func TestHealthReportsDatabase(t *testing.T) {
	server, _ := newServer(t)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}
