//go:build integration
// +build integration

package integration_tests

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/sitepack/internal/build"
	"github.com/conneroisu/sitepack/internal/config"
	"github.com/conneroisu/sitepack/internal/profile"
	"github.com/conneroisu/sitepack/internal/server"
	"github.com/conneroisu/sitepack/internal/watcher"
)

// devLoop wires a pipeline, rebuilder, watcher and server the way
// "sitepack serve" does.
type devLoop struct {
	cfg      *config.Config
	pipeline *build.Pipeline
	rb       *build.Rebuilder
	srv      *server.Server
	http     *httptest.Server
	fw       *watcher.FileWatcher
	cancel   context.CancelFunc
}

func startDevLoop(t *testing.T, cfg *config.Config) *devLoop {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	d := &devLoop{cfg: cfg, cancel: cancel}

	d.pipeline = build.NewPipeline(cfg, profile.DevelopmentProfile(), nil,
		build.WithIncremental(),
		build.WithReloadPath(server.ReloadPath))
	d.srv = server.New(cfg, nil)
	d.http = httptest.NewServer(d.srv)

	d.rb = build.NewRebuilder(d.pipeline, nil)
	d.rb.OnPass(d.srv.OnPass)

	fw, err := watcher.NewFileWatcher(cfg.Watch.Debounce)
	require.NoError(t, err)
	fw.AddFilter(watcher.NoOutputFilter(cfg.OutputDir()))
	fw.AddFilter(watcher.IgnoreFilter(cfg.Watch.Ignore))
	fw.AddFilter(watcher.NoEditorTempFilter)
	require.NoError(t, fw.AddRecursive(cfg.Paths.Root))
	fw.AddHandler(func([]watcher.ChangeEvent) error {
		d.rb.Trigger(ctx)
		return nil
	})
	require.NoError(t, fw.Start(ctx))
	d.fw = fw

	d.rb.Trigger(ctx)
	d.rb.Wait()

	t.Cleanup(d.stop)
	return d
}

func (d *devLoop) stop() {
	d.cancel()
	_ = d.fw.Stop()
	d.rb.Wait()
	d.http.Close()
	_ = d.srv.Shutdown(context.Background())
	d.pipeline.Close()
}

func (d *devLoop) get(t *testing.T, path string) string {
	t.Helper()
	resp, err := http.Get(d.http.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, path)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func (d *devLoop) status(t *testing.T) server.Status {
	t.Helper()
	var st server.Status
	resp, err := http.Get(d.http.URL + server.StatusPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, jsonDecode(resp.Body, &st))
	return st
}

func (d *devLoop) dialReload(t *testing.T, ctx context.Context) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(d.http.URL, "http") + server.ReloadPath
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })

	deadline := time.Now().Add(2 * time.Second)
	for d.srv.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, 1, d.srv.Clients())
	return conn
}
