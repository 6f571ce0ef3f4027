package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AlekseyZapadovnikov/code-review/conf"
	"github.com/AlekseyZapadovnikov/code-review/internal/domain"
	"github.com/AlekseyZapadovnikov/code-review/internal/models"
	"github.com/stretchr/testify/require"
)

const subjectPath = "/scopes/proj/subjects/WI-1"

type fakeReviewService struct {
	overviewFn       func(ctx context.Context, scope, id, userID string) (*models.ReviewOverview, error)
	markReviewedFn   func(ctx context.Context, scope, id, userID string, req models.PostReviewJSONBody) error
	startReviewFn    func(ctx context.Context, scope, id, userID string) error
	checkFastTrackFn func(ctx context.Context, scope, id string) (*models.FastTrackCheck, error)
	fastTrackFn      func(ctx context.Context, scope, id, userID string) error
}

func (f *fakeReviewService) Overview(ctx context.Context, scope, id, userID string) (*models.ReviewOverview, error) {
	if f.overviewFn == nil {
		return &models.ReviewOverview{}, nil
	}
	return f.overviewFn(ctx, scope, id, userID)
}

func (f *fakeReviewService) MarkReviewed(ctx context.Context, scope, id, userID string, req models.PostReviewJSONBody) error {
	if f.markReviewedFn == nil {
		return nil
	}
	return f.markReviewedFn(ctx, scope, id, userID, req)
}

func (f *fakeReviewService) StartReview(ctx context.Context, scope, id, userID string) error {
	if f.startReviewFn == nil {
		return nil
	}
	return f.startReviewFn(ctx, scope, id, userID)
}

func (f *fakeReviewService) CheckFastTrack(ctx context.Context, scope, id string) (*models.FastTrackCheck, error) {
	if f.checkFastTrackFn == nil {
		return &models.FastTrackCheck{Permitted: true}, nil
	}
	return f.checkFastTrackFn(ctx, scope, id)
}

func (f *fakeReviewService) FastTrack(ctx context.Context, scope, id, userID string) error {
	if f.fastTrackFn == nil {
		return nil
	}
	return f.fastTrackFn(ctx, scope, id, userID)
}

type fakeJob struct {
	status models.JobStatus
	runs   int
}

func (f *fakeJob) Run(context.Context) models.JobStatus {
	f.runs++
	return f.status
}

func newTestServer(reviews ReviewService, jobs Jobs) *Server {
	return New(conf.HttpServConf{Host: "127.0.0.1", Port: "9999"}, reviews, jobs)
}

func serve(srv *Server, method, path, user string, body *bytes.Reader) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, body)
	}
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	rr := httptest.NewRecorder()
	srv.router.ServeHTTP(rr, req)
	return rr
}

func TestNewServerRegistersRoutes(t *testing.T) {
	cfg := conf.HttpServConf{Host: "127.0.0.1", Port: "9999"}

	srv := New(cfg, &fakeReviewService{}, Jobs{})

	require.Equal(t, cfg.GetAddress(), srv.Address)
	require.NotNil(t, srv.router)
	require.NotNil(t, srv.server)
	require.Equal(t, srv.router, srv.server.Handler)

	rr := serve(srv, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp["status"])
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	payload := map[string]string{"status": "ok", "message": "<tag>"}

	writeJSON(rr, http.StatusAccepted, payload)

	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &decoded))
	require.Equal(t, payload, decoded)
}

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "nil", err: nil, status: http.StatusOK, code: ""},
		{name: "invalid request", err: domain.NewInvalidRequestError("bad"), status: http.StatusBadRequest, code: "INVALID_REQUEST"},
		{name: "not found", err: domain.NewNotFoundError("subject"), status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "unauthorized", err: domain.ErrUnauthorized, status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "not in review", err: domain.NewNotInReviewError("proj/WI-1"), status: http.StatusConflict, code: "NOT_IN_REVIEW"},
		{name: "fast track denied", err: domain.NewFastTrackDeniedError("no"), status: http.StatusConflict, code: "FAST_TRACK_DENIED"},
		{name: "transition unavailable", err: domain.ErrTransitionUnavailable, status: http.StatusConflict, code: "TRANSITION_UNAVAILABLE"},
		{name: "configuration", err: domain.NewConfigError("missing"), status: http.StatusInternalServerError, code: "CONFIGURATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code, msg := mapDomainError(tt.err)
			require.Equal(t, tt.status, status)
			require.Equal(t, tt.code, code)
			if tt.err == nil {
				require.Empty(t, msg)
			} else {
				require.Equal(t, tt.err.Error(), msg)
			}
		})
	}

	t.Run("unmapped error is not exposed", func(t *testing.T) {
		status, code, msg := mapDomainError(errors.New("pq: password authentication failed"))
		require.Equal(t, http.StatusInternalServerError, status)
		require.Equal(t, "INTERNAL_ERROR", code)
		require.Equal(t, "internal error", msg)
	})
}

func TestRequireUser(t *testing.T) {
	srv := newTestServer(&fakeReviewService{
		overviewFn: func(context.Context, string, string, string) (*models.ReviewOverview, error) {
			t.Fatal("service must not be called without user")
			return nil, nil
		},
	}, Jobs{})

	rr := serve(srv, http.MethodGet, subjectPath+"/review", "", nil)
	assertErrorResponse(t, rr, http.StatusUnauthorized, "UNAUTHORIZED", "X-User-Id header is required")
}

func TestHandleReviewOverview(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := newTestServer(&fakeReviewService{
			overviewFn: func(_ context.Context, scope, id, userID string) (*models.ReviewOverview, error) {
				require.Equal(t, "proj", scope)
				require.Equal(t, "WI-1", id)
				require.Equal(t, "alice", userID)
				return &models.ReviewOverview{HasUnreviewed: true, CanReview: true, ComparableKeys: []string{"default/11"}}, nil
			},
		}, Jobs{})

		rr := serve(srv, http.MethodGet, subjectPath+"/review", "alice", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var resp models.ReviewOverview
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.True(t, resp.CanReview)
		require.Equal(t, []string{"default/11"}, resp.ComparableKeys)
	})

	t.Run("not found", func(t *testing.T) {
		err := domain.NewNotFoundError("subject proj/WI-1")
		srv := newTestServer(&fakeReviewService{
			overviewFn: func(context.Context, string, string, string) (*models.ReviewOverview, error) {
				return nil, err
			},
		}, Jobs{})

		rr := serve(srv, http.MethodGet, subjectPath+"/review", "alice", nil)
		assertErrorResponse(t, rr, http.StatusNotFound, "NOT_FOUND", err.Error())
	})
}

func TestHandleMarkReviewed(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		payload := models.PostReviewJSONBody{Revisions: []string{"default/10"}, WorkflowAction: models.WorkflowActionSuccessfulReview}
		srv := newTestServer(&fakeReviewService{
			markReviewedFn: func(_ context.Context, scope, id, userID string, got models.PostReviewJSONBody) error {
				require.Equal(t, "alice", userID)
				require.Equal(t, payload, got)
				return nil
			},
		}, Jobs{})

		rr := serve(srv, http.MethodPost, subjectPath+"/review", "alice", mustJSONReader(t, payload))
		require.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("invalid payload", func(t *testing.T) {
		srv := newTestServer(&fakeReviewService{}, Jobs{})
		req := httptest.NewRequest(http.MethodPost, subjectPath+"/review", strings.NewReader("{bad json"))
		req.Header.Set(UserHeader, "alice")
		rr := httptest.NewRecorder()
		srv.router.ServeHTTP(rr, req)

		assertErrorResponse(t, rr, http.StatusBadRequest, "INVALID_PAYLOAD", "invalid json payload")
	})

	t.Run("empty request", func(t *testing.T) {
		srv := newTestServer(&fakeReviewService{}, Jobs{})
		rr := serve(srv, http.MethodPost, subjectPath+"/review", "alice", mustJSONReader(t, models.PostReviewJSONBody{}))
		assertErrorResponse(t, rr, http.StatusBadRequest, "MISSING_PARAM", "revisions, all, workflowAction or comment is required")
	})

	t.Run("not in review", func(t *testing.T) {
		err := domain.NewNotInReviewError("proj/WI-1")
		srv := newTestServer(&fakeReviewService{
			markReviewedFn: func(context.Context, string, string, string, models.PostReviewJSONBody) error { return err },
		}, Jobs{})
		rr := serve(srv, http.MethodPost, subjectPath+"/review", "alice", mustJSONReader(t, models.PostReviewJSONBody{All: true}))
		assertErrorResponse(t, rr, http.StatusConflict, "NOT_IN_REVIEW", err.Error())
	})
}

func TestHandleStartReview(t *testing.T) {
	var got string
	srv := newTestServer(&fakeReviewService{
		startReviewFn: func(_ context.Context, _, _, userID string) error {
			got = userID
			return nil
		},
	}, Jobs{})

	rr := serve(srv, http.MethodPost, subjectPath+"/startReview", "alice", nil)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "alice", got)
}

func TestHandleFastTrack(t *testing.T) {
	t.Run("check", func(t *testing.T) {
		srv := newTestServer(&fakeReviewService{
			checkFastTrackFn: func(context.Context, string, string) (*models.FastTrackCheck, error) {
				return &models.FastTrackCheck{Message: "At least one revision (default/10) needs to be reviewed by real person"}, nil
			},
		}, Jobs{})

		rr := serve(srv, http.MethodGet, subjectPath+"/fastTrack", "alice", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var resp models.FastTrackCheck
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.False(t, resp.Permitted)
		require.Contains(t, resp.Message, "default/10")
	})

	t.Run("denied", func(t *testing.T) {
		err := domain.NewFastTrackDeniedError("At least one revision (default/10) needs to be reviewed by real person")
		srv := newTestServer(&fakeReviewService{
			fastTrackFn: func(context.Context, string, string, string) error { return err },
		}, Jobs{})

		rr := serve(srv, http.MethodPost, subjectPath+"/fastTrack", "alice", nil)
		assertErrorResponse(t, rr, http.StatusConflict, "FAST_TRACK_DENIED", err.Error())
	})

	t.Run("success", func(t *testing.T) {
		srv := newTestServer(&fakeReviewService{}, Jobs{})
		rr := serve(srv, http.MethodPost, subjectPath+"/fastTrack", "alice", nil)
		require.Equal(t, http.StatusNoContent, rr.Code)
	})
}

func TestHandleRunJob(t *testing.T) {
	t.Run("failed status is returned as 200", func(t *testing.T) {
		job := &fakeJob{status: models.JobStatus{State: models.JobStateFailed, Message: "CONFIGURATION_ERROR: scope"}}
		srv := newTestServer(&fakeReviewService{}, Jobs{Assign: job})

		rr := serve(srv, http.MethodPost, "/jobs/assign", "", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var resp models.JobStatus
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.Equal(t, models.JobStateFailed, resp.State)
		require.Equal(t, 1, job.runs)
	})

	t.Run("not configured", func(t *testing.T) {
		srv := newTestServer(&fakeReviewService{}, Jobs{})
		rr := serve(srv, http.MethodPost, "/jobs/check", "", nil)
		assertErrorResponse(t, rr, http.StatusNotFound, "NOT_FOUND", "job check is not configured")
	})
}

func mustJSONReader(tb testing.TB, v interface{}) *bytes.Reader {
	tb.Helper()
	data, err := json.Marshal(v)
	require.NoError(tb, err)
	return bytes.NewReader(data)
}

func assertErrorResponse(t *testing.T, rr *httptest.ResponseRecorder, status int, code, message string) {
	t.Helper()
	require.Equal(t, status, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, code, resp.Error.Code)
	require.Equal(t, message, resp.Error.Message)
}
