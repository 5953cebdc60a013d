package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"personalpage/internal/config"
	"personalpage/internal/persistence/kv"
	"personalpage/internal/persistence/snapshot"
	"personalpage/internal/protocol"
)

type downStore struct{ kv.Store }

func (downStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}

func testRuntime(t *testing.T, store kv.Store, admin bool) *runtime {
	t.Helper()
	cfg := config.Defaults()
	cfg.Store.Backend = kv.BackendMemory
	cfg.Backup.Dir = t.TempDir()
	cfg.Timezone = "UTC"
	cfg.Normalize()
	rt, err := newRuntime(cfg, store, nil, admin)
	if err != nil {
		t.Fatalf("runtime: %v", err)
	}
	return rt
}

func serve(h http.Handler, method, path, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if remote != "" {
		req.RemoteAddr = remote
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := serve(testRuntime(t, kv.NewMemory(), false).routes(), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("status=%d body=%q", rec.Code, rec.Body.String())
	}
	rec = serve(testRuntime(t, downStore{kv.NewMemory()}, false).routes(), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("down store status=%d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	rec := serve(testRuntime(t, kv.NewMemory(), false).routes(), http.MethodGet, "/metrics", "")
	body := rec.Body.String()
	for _, want := range []string{
		`personalpage_store_info{backend="memory"} 1`,
		"personalpage_page_views_total 0",
		"personalpage_ws_subscribers 0",
		`personalpage_backups_total{outcome="ok"} 0`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestAdminBackup(t *testing.T) {
	store := kv.NewMemory()
	_ = store.Set(context.Background(), "hw1_posts_v1", []byte(`[]`))
	rt := testRuntime(t, store, true)
	mux := rt.routes()

	rec := serve(mux, http.MethodPost, "/admin/v1/backup", "203.0.113.9:5555")
	var eb protocol.ErrorBody
	_ = json.Unmarshal(rec.Body.Bytes(), &eb)
	if rec.Code != http.StatusForbidden || eb.Code != protocol.ErrForbidden {
		t.Fatalf("remote status=%d body=%+v", rec.Code, eb)
	}

	rec = serve(mux, http.MethodGet, "/admin/v1/backup", "127.0.0.1:5555")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET status=%d", rec.Code)
	}

	rec = serve(mux, http.MethodPost, "/admin/v1/backup", "[::1]:5555")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		OK   bool   `json:"ok"`
		Path string `json:"path"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.OK {
		t.Fatalf("resp=%+v", resp)
	}
	b, err := snapshot.Read(resp.Path)
	if err != nil || string(b.Posts) != "[]" {
		t.Fatalf("backup=%+v err=%v", b, err)
	}
}

func TestAdminDisabled(t *testing.T) {
	rec := serve(testRuntime(t, kv.NewMemory(), false).routes(), http.MethodPost, "/admin/v1/backup", "127.0.0.1:1")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:80": true,
		"[::1]:80":     true,
		"10.0.0.1:80":  false,
		"garbage":      false,
	}
	for in, want := range cases {
		if got := isLoopbackRemote(in); got != want {
			t.Fatalf("%s: got %v want %v", in, got, want)
		}
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("PP_TEST_BOOL", "true")
	t.Setenv("PP_TEST_INT", "-4")
	t.Setenv("PP_TEST_STR", "  redis ")
	if !envBool("PP_TEST_BOOL", false) || envInt("PP_TEST_INT", 7) != 7 || envString("PP_TEST_STR", "x") != "redis" {
		t.Fatalf("env helpers misread values")
	}

	cfg := config.Defaults()
	t.Setenv("PP_STORE_BACKEND", "redis")
	t.Setenv("PP_REDIS_ADDR", "127.0.0.1:6379")
	applyEnvOverrides(&cfg)
	if cfg.Store.Backend != "redis" || cfg.Store.RedisAddr != "127.0.0.1:6379" {
		t.Fatalf("store=%+v", cfg.Store)
	}
}
