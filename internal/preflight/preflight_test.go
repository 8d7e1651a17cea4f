package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"sam/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDirectoryAccess_Empty(t *testing.T) {
	if result := CheckDirectoryAccess("test", " "); result.Passed {
		t.Fatal("expected failure for empty path")
	}
}

func TestCheckAllowList(t *testing.T) {
	if r := CheckAllowList(nil); !r.Passed || !strings.Contains(r.Detail, "none") {
		t.Fatalf("unexpected result for empty list: %+v", r)
	}
	if r := CheckAllowList([]string{"5511", " ", "5512@c.us"}); r.Detail != "2 configured" {
		t.Fatalf("unexpected detail %q", r.Detail)
	}
}

func bridgeServer(t *testing.T, token string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, _, _ = conn.ReadMessage()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckBridge_OK(t *testing.T) {
	srv := bridgeServer(t, "good")
	result := CheckBridge(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"), "good")
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckBridge_BadToken(t *testing.T) {
	srv := bridgeServer(t, "good")
	result := CheckBridge(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"), "bad")
	if result.Passed {
		t.Fatal("expected failure for bad token")
	}
	if !strings.Contains(result.Detail, "401") {
		t.Fatalf("expected status in detail, got %q", result.Detail)
	}
}

func TestCheckBridge_MissingURL(t *testing.T) {
	if result := CheckBridge(context.Background(), "", ""); result.Passed {
		t.Fatal("expected failure for missing URL")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Bridge.URL = ""

	results := RunAll(context.Background(), cfg)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

func TestRunAll_IncludesBridgeWhenConfigured(t *testing.T) {
	srv := bridgeServer(t, "tok")
	cfg := testsupport.NewConfig(t)
	cfg.Bridge.URL = "ws" + strings.TrimPrefix(srv.URL, "http")
	cfg.Bridge.Token = "tok"

	results := RunAll(context.Background(), cfg)
	found := false
	for _, r := range results {
		if r.Name == "Chat bridge" {
			found = true
			if !r.Passed {
				t.Errorf("bridge check failed: %s", r.Detail)
			}
		}
	}
	if !found {
		t.Fatal("expected bridge check in results")
	}
}

func TestRunAll_ReportsMissingWorkDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Bridge.URL = ""
	cfg.Paths.WorkDir = filepath.Join(t.TempDir(), "missing")

	failed := Failed(RunAll(context.Background(), cfg))
	if len(failed) != 1 || failed[0].Name != "Work directory" {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}
