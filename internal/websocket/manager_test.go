package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalOrigins(t *testing.T) {
	v := LocalOrigins{Host: "dev.test", Port: 9000}

	tests := []struct {
		origin string
		want   bool
	}{
		{"http://localhost:9000", true},
		{"http://localhost:3000", true},
		{"http://127.0.0.1:9000", true},
		{"http://[::1]:9000", true},
		{"http://dev.test:9000", true},
		{"http://dev.test:9001", false},
		{"https://evil.example", false},
		{"file:///index.html", false},
		{"::not a url", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			assert.Equal(t, tt.want, v.IsAllowedOrigin(tt.origin))
		})
	}
}

func TestManagerBroadcast(t *testing.T) {
	m := NewManager(LocalOrigins{}, nil)
	ts := httptest.NewServer(http.HandlerFunc(m.HandleWebSocket))
	defer ts.Close()
	defer m.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	a, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer a.CloseNow()
	b, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer b.CloseNow()

	deadline := time.Now().Add(2 * time.Second)
	for m.GetConnectedClients() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, 2, m.GetConnectedClients())

	m.Reload()
	for _, conn := range []*websocket.Conn{a, b} {
		_, msg, err := conn.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, ReloadMessage, string(msg))
	}
}

func TestManagerShutdown(t *testing.T) {
	m := NewManager(LocalOrigins{}, nil)
	m.Shutdown()
	assert.True(t, m.IsShutdown())

	rec := httptest.NewRecorder()
	m.HandleWebSocket(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, 503, rec.Code)
}

func TestManagerIgnoresClientMessages(t *testing.T) {
	m := NewManager(LocalOrigins{}, nil)
	ts := httptest.NewServer(http.HandlerFunc(m.HandleWebSocket))
	defer ts.Close()
	defer m.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	deadline := time.Now().Add(2 * time.Second)
	for m.GetConnectedClients() < 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, 1, m.GetConnectedClients())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			if conn.Write(ctx, websocket.MessageText, []byte("ping")) != nil {
				return
			}
		}
	}()

	for i := 0; i < 3; i++ {
		m.Reload()
		_, msg, err := conn.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, ReloadMessage, string(msg))
	}
	<-done
	assert.Equal(t, 1, m.GetConnectedClients())
}
