package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/sitepack/internal/build"
	"github.com/conneroisu/sitepack/internal/config"
	"github.com/conneroisu/sitepack/internal/errors"
	"github.com/conneroisu/sitepack/internal/testutils"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	cfg := testutils.CreateTestConfig(t.TempDir())
	require.NoError(t, os.MkdirAll(cfg.OutputDir(), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.OutputDir(), "index.html"), []byte("<h1>home</h1>"), 0644))

	s := New(cfg, nil)
	ts := httptest.NewServer(s)
	t.Cleanup(func() {
		ts.Close()
		_ = s.Shutdown(context.Background())
	})
	return s, ts
}

func getStatus(t *testing.T, ts *httptest.Server) Status {
	t.Helper()
	resp, err := http.Get(ts.URL + StatusPath)
	require.NoError(t, err)
	defer resp.Body.Close()

	var st Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	return st
}

func TestServesOutputDirectory(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	missing, err := http.Get(ts.URL + "/nope.html")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatusTracksPasses(t *testing.T) {
	s, ts := newTestServer(t)

	st := getStatus(t, ts)
	assert.Equal(t, 0, st.Passes)
	assert.False(t, st.OK)

	s.OnPass(&build.Report{PassID: "p1", Files: 4}, nil)
	st = getStatus(t, ts)
	assert.True(t, st.OK)
	assert.Equal(t, "p1", st.PassID)
	assert.Equal(t, 4, st.Files)

	s.OnPass(nil, errors.NewCompileError("src/scss/style.scss", 3, 7, "expected expression", nil))
	st = getStatus(t, ts)
	assert.False(t, st.OK)
	assert.Equal(t, 2, st.Passes)
	assert.Equal(t, "src/scss/style.scss", st.File)
	assert.Equal(t, 3, st.Line)
	assert.Equal(t, 7, st.Column)
	assert.Contains(t, st.Error, "expected expression")
	assert.Equal(t, "p1", st.PassID)
}

func TestReloadOnSuccessfulPass(t *testing.T) {
	s, ts := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + ReloadPath
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	testutils.WaitForCondition(t, func() bool { return s.Clients() == 1 }, 2*time.Second)

	s.OnPass(nil, errors.NewValidationError(errors.ErrCodeInvalidPath, "bad"))
	s.OnPass(&build.Report{PassID: "p2"}, nil)

	typ, msg, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageText, typ)
	assert.Equal(t, "reload", string(msg))
}

func TestReloadRejectsForeignOrigin(t *testing.T) {
	_, ts := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + ReloadPath
	_, resp, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{"https://evil.example"}},
	})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestServeStopsOnCancel(t *testing.T) {
	cfg := testutils.CreateTestConfig(t.TempDir())
	s := New(cfg, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	addr := fmt.Sprintf("http://%s/health", ln.Addr())
	testutils.WaitForCondition(t, func() bool {
		resp, err := http.Get(addr)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestStartReportsListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = ln.Addr().(*net.TCPAddr).Port

	err = New(cfg, nil).Start(context.Background())
	assert.Error(t, err)
}
