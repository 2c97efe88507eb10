package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/voxscribe/internal/ipc"
)

func TestOptionsReturnsCORSHeaders(t *testing.T) {
	srv := New(Options{StaticDir: t.TempDir()})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/anything", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	require.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestStaticFilesServed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>voxscribe</h1>"), 0o644))

	srv := New(Options{StaticDir: dir})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/index.html", nil))

	// FileServer redirects /index.html to /.
	require.Equal(t, http.StatusMovedPermanently, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "voxscribe")
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStaticRejectsTraversal(t *testing.T) {
	srv := New(Options{StaticDir: t.TempDir()})

	for _, target := range []string{"/../etc/passwd", "/a/../../secret"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.URL.Path = target
		srv.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code, target)
	}
}

func TestEscapesRoot(t *testing.T) {
	require.True(t, escapesRoot("/../x"))
	require.True(t, escapesRoot(`/a\b`))
	require.False(t, escapesRoot("/static/app.js"))
	require.False(t, escapesRoot("/a..b/c"))
}

func TestStatusAndCommandRoutes(t *testing.T) {
	var received []string
	handler := ipc.HandlerFunc(func(_ context.Context, req ipc.Request) ipc.Response {
		received = append(received, req.Command)
		if req.Command == "stop" {
			return ipc.Response{OK: false, State: "idle", Error: "not recording"}
		}
		return ipc.Response{OK: true, State: "idle", Message: req.Command}
	})
	srv := New(Options{StaticDir: t.TempDir(), Commands: handler})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var status ipc.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.True(t, status.OK)
	require.Equal(t, "idle", status.State)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/command", strings.NewReader(`{"command":"start"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/command", strings.NewReader(`{"command":"stop"}`)))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "not recording")

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/command", strings.NewReader(`not json`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	require.Equal(t, []string{"status", "start", "stop"}, received)
}

func TestAPIWithoutSession(t *testing.T) {
	srv := New(Options{StaticDir: t.TempDir()})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListenAndServeReportsPortInUse(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()

	srv := New(Options{Addr: occupied.Addr().String(), StaticDir: t.TempDir()})
	err = srv.ListenAndServe(context.Background())
	require.ErrorIs(t, err, ErrPortInUse)
}

func TestServeStopsOnCancel(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(Options{StaticDir: t.TempDir()}).Serve(ctx, listener) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + listener.Addr().String() + "/")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
