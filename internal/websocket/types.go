package websocket

import (
	"github.com/coder/websocket"
)

// ReloadMessage is what the reload client listens for.
const ReloadMessage = "reload"

// Client represents a connected browser tab.
type Client struct {
	conn *websocket.Conn
	send chan []byte
}

// OriginValidator decides whether a browser origin may connect.
type OriginValidator interface {
	IsAllowedOrigin(origin string) bool
}
