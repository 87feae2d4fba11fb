// Package websocket broadcasts reload notifications to the browsers that
// have a dev server page open.
//
// One hub goroutine owns the client set. Connections register and
// unregister through channels, and a broadcast is queued on every client's
// send buffer. A client whose buffer is full is dropped; its page
// reconnects on its own.
package websocket

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/sitepack/internal/logging"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 54 * time.Second
	readLimit  = 512
)

// Manager handles reload connections and broadcasting
type Manager struct {
	clients      map[*websocket.Conn]*Client
	clientsMutex sync.RWMutex

	broadcast  chan []byte
	register   chan *Client
	unregister chan *websocket.Conn

	originValidator OriginValidator
	logger          logging.Logger

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
}

// NewManager creates a manager and starts its hub.
func NewManager(originValidator OriginValidator, logger logging.Logger) *Manager {
	if originValidator == nil {
		originValidator = LocalOrigins{}
	}
	if logger == nil {
		logger = logging.Nop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		clients:         make(map[*websocket.Conn]*Client),
		broadcast:       make(chan []byte, 16),
		register:        make(chan *Client, 32),
		unregister:      make(chan *websocket.Conn, 32),
		originValidator: originValidator,
		logger:          logger.WithComponent("reload"),
		ctx:             ctx,
		cancel:          cancel,
	}

	go m.runHub()
	return m
}

// HandleWebSocket upgrades the request and registers the client.
func (m *Manager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if m.ctx.Err() != nil {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	origin := r.Header.Get("Origin")
	if origin != "" && !m.originValidator.IsAllowedOrigin(origin) {
		m.logger.Warn(r.Context(), nil, "reload connection rejected", "origin", origin)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Origin was checked above.
		InsecureSkipVerify: true,
		CompressionMode:    websocket.CompressionDisabled,
	})
	if err != nil {
		m.logger.Warn(r.Context(), err, "websocket upgrade failed", "remote", r.RemoteAddr)
		return
	}
	conn.SetReadLimit(readLimit)

	client := &Client{
		conn: conn,
		send: make(chan []byte, 8),
	}

	select {
	case m.register <- client:
	case <-m.ctx.Done():
		conn.Close(websocket.StatusServiceRestart, "server shutting down")
		return
	}

	go m.handleClient(client)
}

func (m *Manager) runHub() {
	for {
		select {
		case client := <-m.register:
			m.clientsMutex.Lock()
			m.clients[client.conn] = client
			n := len(m.clients)
			m.clientsMutex.Unlock()
			m.logger.Debug(m.ctx, "reload client connected", "clients", n)

		case conn := <-m.unregister:
			m.unregisterClient(conn)

		case message := <-m.broadcast:
			m.broadcastToClients(message)

		case <-m.ctx.Done():
			return
		}
	}
}

func (m *Manager) unregisterClient(conn *websocket.Conn) {
	m.clientsMutex.Lock()
	client, exists := m.clients[conn]
	if exists {
		delete(m.clients, conn)
		close(client.send)
	}
	m.clientsMutex.Unlock()

	if exists {
		conn.Close(websocket.StatusNormalClosure, "")
	}
}

func (m *Manager) broadcastToClients(message []byte) {
	m.clientsMutex.RLock()
	var full []*websocket.Conn
	for conn, client := range m.clients {
		select {
		case client.send <- message:
		default:
			full = append(full, conn)
		}
	}
	m.clientsMutex.RUnlock()

	for _, conn := range full {
		m.unregisterClient(conn)
	}
}

func (m *Manager) handleClient(client *Client) {
	defer func() {
		select {
		case m.unregister <- client.conn:
		case <-m.ctx.Done():
		}
	}()

	go m.writeToClient(client)

	// Incoming messages are discarded; reading only detects the close.
	for {
		if _, _, err := client.conn.Read(m.ctx); err != nil {
			return
		}
	}
}

func (m *Manager) writeToClient(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(m.ctx, writeWait)
			err := client.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(m.ctx, writeWait)
			err := client.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}

		case <-m.ctx.Done():
			return
		}
	}
}

// Reload tells every connected page to reload.
func (m *Manager) Reload() {
	m.Broadcast([]byte(ReloadMessage))
}

// Broadcast queues message for every connected client. It never blocks.
func (m *Manager) Broadcast(message []byte) {
	select {
	case m.broadcast <- message:
	case <-m.ctx.Done():
	default:
		m.logger.Warn(m.ctx, nil, "broadcast queue full, dropping message")
	}
}

// GetConnectedClients returns the number of connected clients
func (m *Manager) GetConnectedClients() int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()
	return len(m.clients)
}

// Shutdown closes every connection and stops the hub.
func (m *Manager) Shutdown() {
	m.shutdownOnce.Do(func() {
		m.cancel()

		m.clientsMutex.Lock()
		for conn, client := range m.clients {
			close(client.send)
			conn.Close(websocket.StatusGoingAway, "server shutdown")
		}
		m.clients = make(map[*websocket.Conn]*Client)
		m.clientsMutex.Unlock()
	})
}

// IsShutdown returns whether Shutdown has been called.
func (m *Manager) IsShutdown() bool {
	return m.ctx.Err() != nil
}

// LocalOrigins accepts http(s) origins on loopback hosts, plus Host:Port
// when set.
type LocalOrigins struct {
	Host string
	Port int
}

func (l LocalOrigins) IsAllowedOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	host := u.Hostname()
	if l.Host != "" && host == l.Host && (l.Port == 0 || u.Port() == strconv.Itoa(l.Port)) {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
