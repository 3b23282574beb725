package clientstate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"cv-optimizer/internal/optimize"
	"cv-optimizer/internal/shared/server/middleware"
	"cv-optimizer/internal/shared/storage/kv/memory"
)

type stubOptimizer struct {
	out   string
	err   error
	calls int
}

func (s *stubOptimizer) Optimize(ctx context.Context, resumeText, jobDescription string) (string, error) {
	s.calls++
	if err := optimize.Validate(resumeText, jobDescription); err != nil {
		return "", err
	}
	return s.out, s.err
}

func setupStateRouter(t *testing.T, quota int64, opt Optimizer) (*gin.Engine, *Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	quiet(t)

	reg := NewRegistry(memory.New(), quota, testOptions())
	r := gin.New()
	v1 := r.Group("/api/v1")
	v1.Use(middleware.ClientIdentity())
	NewHandler(reg, opt).RegisterRoutes(v1)
	return r, reg
}

func call(t *testing.T, r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Guest-Id", "guest-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, w.Body.String())
		}
	}
	return w, decoded
}

func TestStateHandlerFlow(t *testing.T) {
	opt := &stubOptimizer{out: "\\documentclass{article}\nCV Review for Acme\n\\end{document}"}
	r, _ := setupStateRouter(t, 0, opt)

	w, body := call(t, r, http.MethodGet, "/api/v1/state", nil)
	if w.Code != http.StatusOK || body["hasMaster"] != false {
		t.Fatalf("unexpected initial state %d %v", w.Code, body)
	}

	if w, _ := call(t, r, http.MethodPut, "/api/v1/state/drafts", map[string]string{"cvText": "cv", "jobDescription": "jd"}); w.Code != http.StatusNoContent {
		t.Fatalf("drafts expected 204, got %d", w.Code)
	}

	w, body = call(t, r, http.MethodPost, "/api/v1/state/master/reset", map[string]bool{"confirmed": true})
	if w.Code != http.StatusNotFound || body["error"] != "No Master CV saved yet." {
		t.Fatalf("reset without master expected 404, got %d %v", w.Code, body)
	}

	if w, _ := call(t, r, http.MethodPut, "/api/v1/state/master", map[string]string{"cvText": "master"}); w.Code != http.StatusNoContent {
		t.Fatalf("master expected 204, got %d", w.Code)
	}

	w, body = call(t, r, http.MethodPost, "/api/v1/state/master/reset", map[string]bool{"confirmed": false})
	if w.Code != http.StatusConflict || body["code"] != "not_confirmed" {
		t.Fatalf("unconfirmed reset expected 409, got %d %v", w.Code, body)
	}

	w, body = call(t, r, http.MethodPost, "/api/v1/state/master/reset", map[string]bool{"confirmed": true})
	if w.Code != http.StatusOK || body["draftResume"] != "master" {
		t.Fatalf("confirmed reset expected 200, got %d %v", w.Code, body)
	}

	w, body = call(t, r, http.MethodPost, "/api/v1/state/optimize", map[string]string{"cvText": "master", "jobDescription": ""})
	if w.Code != http.StatusBadRequest || body["error"] != optimize.MessageMissingInput {
		t.Fatalf("empty jd expected 400, got %d %v", w.Code, body)
	}

	w, body = call(t, r, http.MethodPost, "/api/v1/state/optimize", map[string]string{"cvText": "master", "jobDescription": "jd"})
	if w.Code != http.StatusOK || body["result"] != opt.out {
		t.Fatalf("optimize expected 200, got %d %v", w.Code, body)
	}
	entry, _ := body["entry"].(map[string]any)
	id, _ := entry["id"].(string)
	if id == "" || entry["label"] != "Acme" {
		t.Fatalf("unexpected entry %v", entry)
	}

	w, body = call(t, r, http.MethodGet, "/api/v1/state/history", nil)
	if items, _ := body["items"].([]any); w.Code != http.StatusOK || len(items) != 1 {
		t.Fatalf("history expected 1 item, got %d %v", w.Code, body)
	}

	w, body = call(t, r, http.MethodGet, "/api/v1/state/history/"+id, nil)
	if w.Code != http.StatusOK || body["result"] != opt.out {
		t.Fatalf("load entry expected 200, got %d %v", w.Code, body)
	}
	if w, _ := call(t, r, http.MethodGet, "/api/v1/state/history/missing", nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing entry expected 404, got %d", w.Code)
	}

	if w, _ := call(t, r, http.MethodDelete, "/api/v1/state/history/missing", nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete of unknown id expected 204, got %d", w.Code)
	}
	if w, _ := call(t, r, http.MethodDelete, "/api/v1/state/history/"+id, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete expected 204, got %d", w.Code)
	}
	_, body = call(t, r, http.MethodGet, "/api/v1/state/history", nil)
	if items, _ := body["items"].([]any); len(items) != 0 {
		t.Fatalf("expected empty history, got %v", body)
	}
}

func TestStateHandlerStorageFull(t *testing.T) {
	r, _ := setupStateRouter(t, 32, &stubOptimizer{})

	w, body := call(t, r, http.MethodPut, "/api/v1/state/master", map[string]string{"cvText": "this master resume exceeds the tiny quota"})
	if w.Code != http.StatusInsufficientStorage || body["code"] != "storage_full" {
		t.Fatalf("expected 507 storage_full, got %d %v", w.Code, body)
	}
	if w, _ := call(t, r, http.MethodPut, "/api/v1/state/drafts", map[string]string{"cvText": "this draft also exceeds the tiny quota", "jobDescription": "jd"}); w.Code != http.StatusNoContent {
		t.Fatalf("autosave must not fail on storage full, got %d", w.Code)
	}
}

func TestStateHandlerProviderFailure(t *testing.T) {
	opt := &stubOptimizer{err: optimize.ErrProvider}
	r, reg := setupStateRouter(t, 0, opt)

	w, body := call(t, r, http.MethodPost, "/api/v1/state/optimize", map[string]string{"cvText": "cv", "jobDescription": "jd"})
	if w.Code != http.StatusInternalServerError || body["error"] != optimize.MessageProviderFailure {
		t.Fatalf("expected 500 with fixed message, got %d %v", w.Code, body)
	}
	s, err := reg.For(context.Background(), "guest-1")
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	if len(s.History()) != 0 {
		t.Fatalf("history must be unchanged on failure")
	}
}

func TestStateHandlerInFlight(t *testing.T) {
	blocker := &blockingOptimizer{out: "done", release: make(chan struct{}), started: make(chan struct{})}
	r, reg := setupStateRouter(t, 0, blocker)

	s, err := reg.For(context.Background(), "guest-1")
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), blocker, "cv", "jd")
		done <- err
	}()
	<-blocker.started

	w, body := call(t, r, http.MethodPost, "/api/v1/state/optimize", map[string]string{"cvText": "cv", "jobDescription": "jd"})
	if w.Code != http.StatusConflict || body["code"] != "in_flight" {
		t.Fatalf("expected 409 in_flight, got %d %v", w.Code, body)
	}

	close(blocker.release)
	if err := <-done; err != nil && !errors.Is(err, ErrInFlight) {
		t.Fatalf("background submit: %v", err)
	}
}

func TestStateHandlerRequiresIdentity(t *testing.T) {
	r, _ := setupStateRouter(t, 0, &stubOptimizer{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
