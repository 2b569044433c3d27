package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"prepx/internal/models"
	"prepx/internal/observability"
	"prepx/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWorker struct {
	mu        sync.Mutex
	status    worker.Status
	history   []worker.RunRecord
	triggered int
}

func (f *fakeWorker) GetStatus() worker.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}
func (f *fakeWorker) GetHistory() []worker.RunRecord       { return f.history }
func (f *fakeWorker) GetActivityLogs() []worker.ActivityLog { return nil }
func (f *fakeWorker) GetInstance() string                   { return "test" }
func (f *fakeWorker) TriggerManualRun() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggered++
}
func (f *fakeWorker) Pause(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status.IsPaused = true
}
func (f *fakeWorker) Resume(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status.IsPaused = false
}

func serve(router *gin.Engine, method, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestWorkerRouter_RequiresAdminSession(t *testing.T) {
	env := newTestEnv(t, nil)
	fw := &fakeWorker{}
	router := NewWorkerRouter(testConfig(), env.users, fw, observability.NewNopLogger())

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/v1/admin/worker/status", nil).Code)

	member := env.login(t, testUser(2, "bob", models.RoleUser))
	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodPost, "/v1/admin/worker/trigger", member).Code)
	assert.Zero(t, fw.triggered)
}

func TestWorkerRouter_AdminControls(t *testing.T) {
	env := newTestEnv(t, nil)
	fw := &fakeWorker{history: []worker.RunRecord{{Status: "Success", Details: "candidates=1 sent=1 failed=0"}}}
	router := NewWorkerRouter(testConfig(), env.users, fw, observability.NewNopLogger())
	cookies := env.login(t, testUser(1, "alice", models.RoleAdmin))

	w := serve(router, http.MethodPost, "/v1/admin/worker/trigger", cookies)
	assert.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, 1, fw.triggered)

	w = serve(router, http.MethodPost, "/v1/admin/worker/pause", cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, fw.GetStatus().IsPaused)

	w = serve(router, http.MethodGet, "/v1/admin/worker/status", cookies)
	require.Equal(t, http.StatusOK, w.Code)
	var status struct {
		Instance string        `json:"instance"`
		Status   worker.Status `json:"status"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &status))
	assert.Equal(t, "test", status.Instance)
	assert.True(t, status.Status.IsPaused)

	w = serve(router, http.MethodPost, "/v1/admin/worker/resume", cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, fw.GetStatus().IsPaused)

	w = serve(router, http.MethodGet, "/v1/admin/worker/history", cookies)
	require.Equal(t, http.StatusOK, w.Code)
	var history []worker.RunRecord
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &history))
	require.Len(t, history, 1)
	assert.Equal(t, "Success", history[0].Status)
}
