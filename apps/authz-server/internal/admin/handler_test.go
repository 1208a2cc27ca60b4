package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/mock/gomock"

	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/mocks"
	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/policy"
	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/udn"
	"github.com/oyaguma3/wpn-authz/pkg/apperr"
	"github.com/oyaguma3/wpn-authz/pkg/httputil"
	"github.com/oyaguma3/wpn-authz/pkg/logging"
	"github.com/oyaguma3/wpn-authz/pkg/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	engine *gin.Engine
	pool   *udn.MemoryPool
	repo   *mocks.MockRepository
	usage  *mocks.MockUsageRecorder
	store  *policy.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctrl := gomock.NewController(t)

	pool, err := udn.NewMemoryPool(udn.Range{Start: 2, End: 4}, func() time.Time { return testNow })
	if err != nil {
		t.Fatalf("NewMemoryPool failed: %v", err)
	}
	repo := mocks.NewMockRepository(ctrl)
	usage := mocks.NewMockUsageRecorder(ctrl)
	store := policy.NewStore(repo, policy.WithClock(func() time.Time { return testNow }), policy.WithRetry(0, 0))

	h := NewHandler(pool, store, usage, logging.NewMasker(true))
	return &testEnv{
		engine: NewEngine(h, nil),
		pool:   pool,
		repo:   repo,
		usage:  usage,
		store:  store,
	}
}

func doRequest(engine *gin.Engine, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) httputil.ProblemDetail {
	t.Helper()
	var p httputil.ProblemDetail
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to decode problem: %v (body=%s)", err, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct == "" {
		t.Error("Content-Type header not set")
	}
	return p
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t)

	w := doRequest(env.engine, http.MethodGet, "/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" || resp.SnapshotVersion != 0 {
		t.Errorf("resp = %+v", resp)
	}
	if w.Header().Get(traceIDHeader) == "" {
		t.Error("X-Trace-ID response header not set")
	}
}

func TestUDNAssignmentLifecycle(t *testing.T) {
	env := newTestEnv(t)

	// 手動割り当て
	w := doRequest(env.engine, http.MethodPost, "/api/v1/udn/assignments",
		AssignRequest{MACAddress: "AA-BB-CC-00-00-01", UserID: "u-1"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("assign status = %d, body=%s", w.Code, w.Body.String())
	}
	var a model.UDNAssignment
	if err := json.Unmarshal(w.Body.Bytes(), &a); err != nil {
		t.Fatal(err)
	}
	if a.MACAddress != "aa:bb:cc:00:00:01" || a.UDNID != 2 || a.UserID != "u-1" || !a.IsActive {
		t.Errorf("assignment = %+v", a)
	}

	// 同一MACへの再割り当ては同じID
	w = doRequest(env.engine, http.MethodPost, "/api/v1/udn/assignments",
		AssignRequest{MACAddress: "aa:bb:cc:00:00:01"}, nil)
	var again model.UDNAssignment
	_ = json.Unmarshal(w.Body.Bytes(), &again)
	if again.UDNID != 2 {
		t.Errorf("re-assign UDNID = %d, want 2", again.UDNID)
	}

	// 参照
	w = doRequest(env.engine, http.MethodGet, "/api/v1/udn/assignments/aabb.cc00.0001", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("lookup status = %d", w.Code)
	}

	// プール状況
	w = doRequest(env.engine, http.MethodGet, "/api/v1/udn/pool", nil, nil)
	var status udn.Status
	_ = json.Unmarshal(w.Body.Bytes(), &status)
	if status.Total != 3 || status.Assigned != 1 || status.Available != 2 {
		t.Errorf("pool status = %+v", status)
	}

	// 失効
	w = doRequest(env.engine, http.MethodDelete, "/api/v1/udn/assignments/aa:bb:cc:00:00:01", nil, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("revoke status = %d, body=%s", w.Code, w.Body.String())
	}

	w = doRequest(env.engine, http.MethodGet, "/api/v1/udn/assignments/aa:bb:cc:00:00:01", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("lookup after revoke status = %d, want 404", w.Code)
	}

	// 履歴
	w = doRequest(env.engine, http.MethodGet, "/api/v1/udn/assignments/aa:bb:cc:00:00:01/history", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("history status = %d", w.Code)
	}
	var hist HistoryResponse
	_ = json.Unmarshal(w.Body.Bytes(), &hist)
	if len(hist.History) != 1 || hist.History[0].UDNID != 2 || hist.History[0].IsActive {
		t.Errorf("history = %+v", hist)
	}
}

func TestUDNErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"不正なMAC参照", http.MethodGet, "/api/v1/udn/assignments/not-a-mac", nil, http.StatusBadRequest},
		{"不正なMAC履歴", http.MethodGet, "/api/v1/udn/assignments/zz/history", nil, http.StatusBadRequest},
		{"未割り当ての参照", http.MethodGet, "/api/v1/udn/assignments/aa:bb:cc:00:00:09", nil, http.StatusNotFound},
		{"未割り当ての失効", http.MethodDelete, "/api/v1/udn/assignments/aa:bb:cc:00:00:09", nil, http.StatusNotFound},
		{"mac_addressなし", http.MethodPost, "/api/v1/udn/assignments", map[string]string{"user_id": "x"}, http.StatusBadRequest},
		{"不正なMAC割り当て", http.MethodPost, "/api/v1/udn/assignments", AssignRequest{MACAddress: "bogus"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(env.engine, tt.method, tt.path, tt.body, nil)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body=%s)", w.Code, tt.want, w.Body.String())
			}
			p := decodeProblem(t, w)
			if p.Status != tt.want {
				t.Errorf("problem.status = %d, want %d", p.Status, tt.want)
			}
		})
	}
}

func TestUDNPoolExhausted(t *testing.T) {
	env := newTestEnv(t)
	for i := 1; i <= 3; i++ {
		w := doRequest(env.engine, http.MethodPost, "/api/v1/udn/assignments",
			AssignRequest{MACAddress: fmt.Sprintf("aa:bb:cc:00:00:%02x", i)}, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("assign %d status = %d", i, w.Code)
		}
	}

	w := doRequest(env.engine, http.MethodPost, "/api/v1/udn/assignments",
		AssignRequest{MACAddress: "aa:bb:cc:00:00:04"}, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestUDNBackendUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	pool := mocks.NewMockPool(ctrl)
	pool.EXPECT().Status(gomock.Any()).
		Return(nil, fmt.Errorf("wrapped: %w", apperr.NewValkeyError("HLEN", "udn:ids", errors.New("connection refused"))))
	pool.EXPECT().Lookup(gomock.Any(), "aa:bb:cc:00:00:01").
		Return(nil, fmt.Errorf("%w: select: boom", apperr.ErrDatabase))
	pool.EXPECT().Revoke(gomock.Any(), "aa:bb:cc:00:00:01").
		Return(errors.New("unexpected"))

	store := policy.NewStore(mocks.NewMockRepository(ctrl))
	engine := NewEngine(NewHandler(pool, store, mocks.NewMockUsageRecorder(ctrl), nil), nil)

	if w := doRequest(engine, http.MethodGet, "/api/v1/udn/pool", nil, nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("pool status = %d, want 503", w.Code)
	}
	if w := doRequest(engine, http.MethodGet, "/api/v1/udn/assignments/aa:bb:cc:00:00:01", nil, nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("lookup status = %d, want 503", w.Code)
	}
	w := doRequest(engine, http.MethodDelete, "/api/v1/udn/assignments/aa:bb:cc:00:00:01", nil, nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("revoke status = %d, want 500", w.Code)
	}
	if p := decodeProblem(t, w); p.Detail == "unexpected" {
		t.Error("internal error detail should not leak")
	}
}

func TestPolicyUsage(t *testing.T) {
	env := newTestEnv(t)
	last := testNow.Add(-time.Minute)
	env.usage.EXPECT().ListUsage(gomock.Any()).Return([]policy.Usage{
		{Ref: policy.Ref{Kind: policy.KindStandard, ID: 1}, Policy: "policy:1", UsageCount: 5, LastUsed: &last},
	}, nil)

	w := doRequest(env.engine, http.MethodGet, "/api/v1/policies/usage", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Usage []policy.Usage `json:"usage"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Usage) != 1 || resp.Usage[0].Policy != "policy:1" || resp.Usage[0].UsageCount != 5 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestPolicyUsageEmpty(t *testing.T) {
	env := newTestEnv(t)
	env.usage.EXPECT().ListUsage(gomock.Any()).Return(nil, nil)

	w := doRequest(env.engine, http.MethodGet, "/api/v1/policies/usage", nil, nil)
	if w.Body.String() != `{"usage":[]}` {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestPolicySnapshotAndReload(t *testing.T) {
	env := newTestEnv(t)

	w := doRequest(env.engine, http.MethodGet, "/api/v1/policies/snapshot", nil, nil)
	var sum policy.Summary
	_ = json.Unmarshal(w.Body.Bytes(), &sum)
	if w.Code != http.StatusOK || sum.Version != 0 {
		t.Fatalf("initial snapshot status=%d version=%d", w.Code, sum.Version)
	}

	env.repo.EXPECT().LoadRecords(gomock.Any()).Return(&model.PolicySet{
		Policies: []model.Policy{
			{ID: 1, Name: "ok", IsActive: true},
			{ID: 2, Name: "bad", IsActive: true, VLANID: 5000},
		},
	}, nil)

	w = doRequest(env.engine, http.MethodPost, "/api/v1/policies/reload", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reload status = %d, body=%s", w.Code, w.Body.String())
	}
	_ = json.Unmarshal(w.Body.Bytes(), &sum)
	if sum.Version != 1 || sum.Policies != 1 || len(sum.ConfigErrors) != 1 {
		t.Errorf("summary = %+v", sum)
	}

	w = doRequest(env.engine, http.MethodGet, "/api/v1/policies/snapshot", nil, nil)
	_ = json.Unmarshal(w.Body.Bytes(), &sum)
	if sum.Version != 1 {
		t.Errorf("snapshot version = %d, want 1", sum.Version)
	}

	w = doRequest(env.engine, http.MethodGet, "/health", nil, nil)
	var health HealthResponse
	_ = json.Unmarshal(w.Body.Bytes(), &health)
	if health.SnapshotVersion != 1 {
		t.Errorf("health snapshot_version = %d, want 1", health.SnapshotVersion)
	}
}

func TestPolicyReloadFailureKeepsSnapshot(t *testing.T) {
	env := newTestEnv(t)
	env.repo.EXPECT().LoadRecords(gomock.Any()).Return(nil, errors.New("valkey down"))

	w := doRequest(env.engine, http.MethodPost, "/api/v1/policies/reload", nil, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	if env.store.Current().Version != 0 {
		t.Errorf("snapshot version = %d, want 0 (kept)", env.store.Current().Version)
	}
}

func TestProblemFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{udn.ErrInvalidMAC, http.StatusBadRequest},
		{udn.ErrAssignmentNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: 6 attempts", udn.ErrPoolExhausted), http.StatusConflict},
		{udn.ErrAllocationConflict, http.StatusConflict},
		{policy.ErrRepositoryUnavailable, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := problemFor(tt.err).Status; got != tt.want {
			t.Errorf("problemFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
