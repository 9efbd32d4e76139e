package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nforsman/scandir/internal/config"
	"github.com/nforsman/scandir/internal/db"
	"github.com/nforsman/scandir/internal/scans"
	"github.com/nforsman/scandir/internal/scheduler"
)

// testServer wraps an httptest server running the full API router.
type testServer struct {
	*httptest.Server
}

func newTestServer(t *testing.T, roots ...string) *testServer {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.ScanRoots = roots

	mgr := scans.NewManager(conn, roots, cfg.Scan.Options(false))
	sched := scheduler.New(mgr)
	if err := sched.ScheduleScan(cfg.Schedule, cfg.ScanPaused); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	srv := httptest.NewServer(newRouter(conn, cfg, mgr, sched, "test"))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv}
}

func (ts *testServer) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := ts.Client().Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func (ts *testServer) post(t *testing.T, path string, body io.Reader) *http.Response {
	t.Helper()
	resp, err := ts.Client().Post(ts.URL+path, "application/json", body)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func (ts *testServer) delete(t *testing.T, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, ts.URL+path, nil)
	if err != nil {
		t.Fatalf("build DELETE %s: %v", path, err)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("DELETE %s: %v", path, err)
	}
	return resp
}

// waitIdle polls /api/status until no scan is active.
func (ts *testServer) waitIdle(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		resp := ts.get(t, "/api/status")
		requireStatus(t, resp, 200)
		var body struct {
			ActiveScan any `json:"active_scan"`
		}
		decodeJSON(t, resp, &body)
		if body.ActiveScan == nil {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("scan did not complete within timeout")
}

func requireStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status %d, got %d\nbody: %s", want, resp.StatusCode, body)
	}
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
}

// scanFixture creates a small tree: 2 dirs, 3 files.
func scanFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, dir := range []string{"a", "b"} {
		if err := os.Mkdir(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	for _, file := range []string{"a/one.txt", "a/two.txt", "b/three.txt"} {
		if err := os.WriteFile(filepath.Join(root, filepath.FromSlash(file)), []byte("data"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestStatusBeforeAnyScan(t *testing.T) {
	ts := newTestServer(t, t.TempDir())

	resp := ts.get(t, "/api/status")
	requireStatus(t, resp, 200)
	var body struct {
		Version    string `json:"version"`
		ActiveScan any    `json:"active_scan"`
		Schedule   struct {
			Cron      string `json:"cron"`
			Paused    bool   `json:"paused"`
			NextRunAt any    `json:"next_run_at"`
		} `json:"schedule"`
		LastCompletedScan any `json:"last_completed_scan"`
	}
	decodeJSON(t, resp, &body)

	if body.Version != "test" {
		t.Errorf("version = %q, want test", body.Version)
	}
	if body.ActiveScan != nil {
		t.Error("expected no active scan")
	}
	if body.LastCompletedScan != nil {
		t.Error("expected no completed scan")
	}
	if body.Schedule.Cron == "" {
		t.Error("expected a schedule cron expression")
	}
}

func TestScanLifecycleOverHTTP(t *testing.T) {
	root := scanFixture(t)
	ts := newTestServer(t, root)

	resp := ts.post(t, "/api/scans", strings.NewReader(""))
	requireStatus(t, resp, 202)
	var created struct {
		ID     int64  `json:"id"`
		Root   string `json:"root"`
		Status string `json:"status"`
	}
	decodeJSON(t, resp, &created)
	if created.ID == 0 {
		t.Fatal("expected a scan id in the 202 response")
	}
	if created.Root != root {
		t.Errorf("root = %q, want %q", created.Root, root)
	}
	if created.Status != "running" {
		t.Errorf("status = %q, want running", created.Status)
	}

	ts.waitIdle(t)

	resp = ts.get(t, "/api/scans")
	requireStatus(t, resp, 200)
	var list struct {
		Items []struct {
			ID     int64  `json:"id"`
			Status string `json:"status"`
			Dirs   int64  `json:"dirs"`
			Files  int64  `json:"files"`
		} `json:"items"`
		Total int `json:"total"`
	}
	decodeJSON(t, resp, &list)
	if list.Total != 1 || len(list.Items) != 1 {
		t.Fatalf("list total = %d with %d items, want 1/1", list.Total, len(list.Items))
	}
	if list.Items[0].Status != "completed" {
		t.Errorf("status = %q, want completed", list.Items[0].Status)
	}
	if list.Items[0].Dirs != 2 || list.Items[0].Files != 3 {
		t.Errorf("aggregates = %d dirs / %d files, want 2 / 3", list.Items[0].Dirs, list.Items[0].Files)
	}

	resp = ts.get(t, fmt.Sprintf("/api/scans/%d", created.ID))
	requireStatus(t, resp, 200)
	var detail struct {
		ID        int64 `json:"id"`
		ErrorList []any `json:"error_list"`
	}
	decodeJSON(t, resp, &detail)
	if detail.ID != created.ID {
		t.Errorf("detail id = %d, want %d", detail.ID, created.ID)
	}
	if len(detail.ErrorList) != 0 {
		t.Errorf("expected an empty error list, got %d", len(detail.ErrorList))
	}

	resp = ts.get(t, fmt.Sprintf("/api/scans/%d/entries?limit=100", created.ID))
	requireStatus(t, resp, 200)
	var entries struct {
		Items []struct {
			Path string `json:"path"`
			Kind string `json:"kind"`
		} `json:"items"`
		Total int `json:"total"`
	}
	decodeJSON(t, resp, &entries)
	if entries.Total != 5 {
		t.Errorf("entries total = %d, want 5", entries.Total)
	}

	resp = ts.get(t, "/api/status")
	requireStatus(t, resp, 200)
	var status struct {
		LastCompletedScan *struct {
			ID    int64 `json:"id"`
			Files int64 `json:"files"`
		} `json:"last_completed_scan"`
	}
	decodeJSON(t, resp, &status)
	if status.LastCompletedScan == nil {
		t.Fatal("expected a last completed scan")
	}
	if status.LastCompletedScan.Files != 3 {
		t.Errorf("last scan files = %d, want 3", status.LastCompletedScan.Files)
	}
}

func TestCreateScanWithExplicitRoot(t *testing.T) {
	other := scanFixture(t)
	ts := newTestServer(t, t.TempDir())

	resp := ts.post(t, "/api/scans", strings.NewReader(fmt.Sprintf(`{"root":%q}`, other)))
	requireStatus(t, resp, 202)
	var created struct {
		Root string `json:"root"`
	}
	decodeJSON(t, resp, &created)
	if created.Root != other {
		t.Errorf("root = %q, want %q", created.Root, other)
	}
	ts.waitIdle(t)
}

func TestCreateScanRejectsBadRequests(t *testing.T) {
	ts := newTestServer(t, t.TempDir())

	resp := ts.post(t, "/api/scans", strings.NewReader(`{"root":"/definitely/not/there"}`))
	requireStatus(t, resp, 400)
	resp.Body.Close()

	resp = ts.post(t, "/api/scans", strings.NewReader(`{not json`))
	requireStatus(t, resp, 400)
	resp.Body.Close()
}

func TestCancelWithoutActiveScan(t *testing.T) {
	ts := newTestServer(t, t.TempDir())
	resp := ts.delete(t, "/api/scans/current")
	requireStatus(t, resp, 404)
	resp.Body.Close()
}

func TestScanNotFound(t *testing.T) {
	ts := newTestServer(t, t.TempDir())

	resp := ts.get(t, "/api/scans/9999")
	requireStatus(t, resp, 404)
	resp.Body.Close()

	resp = ts.get(t, "/api/scans/abc")
	requireStatus(t, resp, 400)
	resp.Body.Close()

	resp = ts.get(t, "/api/scans/9999/entries")
	requireStatus(t, resp, 404)
	resp.Body.Close()

	resp = ts.get(t, "/api/scans/9999/errors")
	requireStatus(t, resp, 404)
	resp.Body.Close()
}

func TestCountEndpoint(t *testing.T) {
	root := scanFixture(t)
	ts := newTestServer(t)

	resp := ts.get(t, "/api/count?path="+root)
	requireStatus(t, resp, 200)
	var count struct {
		Dirs  int64 `json:"dirs"`
		Files int64 `json:"files"`
		Size  int64 `json:"size"`
	}
	decodeJSON(t, resp, &count)
	if count.Dirs != 2 || count.Files != 3 {
		t.Errorf("count = %d dirs / %d files, want 2 / 3", count.Dirs, count.Files)
	}
	if count.Size != 0 {
		t.Errorf("basic count reported size %d, want 0", count.Size)
	}

	resp = ts.get(t, "/api/count?path="+root+"&extended=true")
	requireStatus(t, resp, 200)
	decodeJSON(t, resp, &count)
	if count.Size == 0 {
		t.Error("extended count reported no size")
	}
}

func TestCountEndpointErrors(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.get(t, "/api/count")
	requireStatus(t, resp, 400)
	resp.Body.Close()

	resp = ts.get(t, "/api/count?path=/definitely/not/there")
	requireStatus(t, resp, 404)
	resp.Body.Close()

	file := filepath.Join(t.TempDir(), "f.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	resp = ts.get(t, "/api/count?path="+file)
	requireStatus(t, resp, 400)
	resp.Body.Close()
}

func TestStatsEndpoint(t *testing.T) {
	root := scanFixture(t)
	ts := newTestServer(t, root)

	resp := ts.get(t, "/api/stats")
	requireStatus(t, resp, 200)
	var empty struct {
		Scans struct {
			Total int64 `json:"total"`
		} `json:"scans"`
	}
	decodeJSON(t, resp, &empty)
	if empty.Scans.Total != 0 {
		t.Errorf("fresh database reports %d scans", empty.Scans.Total)
	}

	resp = ts.post(t, "/api/scans", strings.NewReader(""))
	requireStatus(t, resp, 202)
	resp.Body.Close()
	ts.waitIdle(t)

	resp = ts.get(t, "/api/stats")
	requireStatus(t, resp, 200)
	var stats struct {
		Scans struct {
			Total     int64 `json:"total"`
			Completed int64 `json:"completed"`
		} `json:"scans"`
		Entries      int64 `json:"entries"`
		FilesLast30d int64 `json:"files_last_30d"`
	}
	decodeJSON(t, resp, &stats)
	if stats.Scans.Total != 1 || stats.Scans.Completed != 1 {
		t.Errorf("scans = %+v, want 1 total / 1 completed", stats.Scans)
	}
	if stats.Entries != 5 {
		t.Errorf("entries = %d, want 5", stats.Entries)
	}
	if stats.FilesLast30d != 3 {
		t.Errorf("files_last_30d = %d, want 3", stats.FilesLast30d)
	}
}

func TestConfigEndpointIsReadOnly(t *testing.T) {
	root := t.TempDir()
	ts := newTestServer(t, root)

	resp := ts.get(t, "/api/config")
	requireStatus(t, resp, 200)
	var cfg struct {
		ScanRoots []string `json:"scan_roots"`
		Schedule  string   `json:"schedule"`
	}
	decodeJSON(t, resp, &cfg)
	if len(cfg.ScanRoots) != 1 || cfg.ScanRoots[0] != root {
		t.Errorf("scan_roots = %v, want [%s]", cfg.ScanRoots, root)
	}
	if cfg.Schedule == "" {
		t.Error("expected the default schedule")
	}

	resp = ts.post(t, "/api/config", strings.NewReader(`{}`))
	requireStatus(t, resp, 405)
	resp.Body.Close()
}
