package connection

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/rickgao/acto-client/internal/metrics"
)

// Errors
var (
	ErrNotConnected       = errors.New("not connected")
	ErrAlreadyClosed      = errors.New("already closed")
	ErrAlreadyOpen        = errors.New("already open")
	ErrConnectRejected    = errors.New("connect rejected by server")
	ErrServerDisconnect   = errors.New("disconnected by server")
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
)

// Disconnect reasons reported to SocketHooks.OnDisconnect.
const (
	ReasonServerDisconnect = "io server disconnect"
	ReasonClientDisconnect = "io client disconnect"
	ReasonPingTimeout      = "ping timeout"
	ReasonTransportClose   = "transport close"
	ReasonTransportError   = "transport error"
)

// Server events re-dispatched to handlers.
const (
	EventNewMessage     = "new-message"
	EventChatCreated    = "chat-created"
	EventUsersOnline    = "users-online"
	EventUserTyping     = "user-typing"
	EventUserJoinedChat = "user-joined-chat"
	EventUserLeftChat   = "user-left-chat"
)

// Events exchanged with the server by the manager itself.
const (
	EventAuthenticate  = "authenticate"
	EventAuthenticated = "authenticated"
	EventJoinChat      = "join-chat"
	EventLeaveChat     = "leave-chat"
	EventTyping        = "typing"
)

// ForwardedEvents lists the server events handlers can receive. Anything else
// the server emits is dropped.
var ForwardedEvents = []string{
	EventNewMessage,
	EventChatCreated,
	EventUsersOnline,
	EventUserTyping,
	EventUserJoinedChat,
	EventUserLeftChat,
}

func isForwarded(event string) bool {
	for _, e := range ForwardedEvents {
		if e == event {
			return true
		}
	}
	return false
}

// State is the manager's connection state.
type State int32

const (
	// StateDisconnected means there is no live transport.
	StateDisconnected State = iota

	// StateConnecting means a connect or reconnect attempt is in flight.
	StateConnecting

	// StateConnected means the transport is up but the server has not
	// accepted a credential.
	StateConnected

	// StateAuthenticated means the server accepted the credential.
	StateAuthenticated
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Handler receives the payload of a server event exactly as it arrived.
type Handler func(data json.RawMessage)

// HandlerID identifies a registered handler for Off.
type HandlerID uint64

// Outbound payloads.
type authPayload struct {
	Token string `json:"token"`
}

type chatPayload struct {
	ChatID string `json:"chatId"`
}

type typingPayload struct {
	ChatID   string `json:"chatId"`
	IsTyping bool   `json:"isTyping"`
}

// DefaultURL is the backend the manager connects to when none is configured.
const DefaultURL = "https://acto-0gf5.onrender.com"

// SocketConfig configures a Socket.
type SocketConfig struct {
	URL               string        // Socket.IO WebSocket endpoint (see sio.EndpointURL)
	UserAgent         string        // Sent on the upgrade request when set
	HandshakeTimeout  time.Duration // Dial plus Socket.IO handshake
	WriteTimeout      time.Duration // Write deadline for sends
	ReconnectAttempts int           // Retries after a failed connect or a drop
	ReconnectDelay    time.Duration // Fixed wait before each retry
}

// DefaultSocketConfig returns sensible defaults.
func DefaultSocketConfig() SocketConfig {
	return SocketConfig{
		HandshakeTimeout:  20 * time.Second,
		WriteTimeout:      5 * time.Second,
		ReconnectAttempts: 5,
		ReconnectDelay:    time.Second,
	}
}

// ManagerConfig configures the Manager.
type ManagerConfig struct {
	URL               string        // Backend base URL, http(s) or ws(s)
	UserAgent         string        // Sent on the upgrade request when set
	ConnectTimeout    time.Duration // Dial plus handshake timeout
	WriteTimeout      time.Duration // Write deadline for sends
	ReconnectAttempts int           // Retries after a failed connect or a drop; 0 means default, < 0 none
	ReconnectDelay    time.Duration // Fixed wait between retries
	Metrics           *metrics.Realtime
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		URL:               DefaultURL,
		ConnectTimeout:    20 * time.Second,
		WriteTimeout:      5 * time.Second,
		ReconnectAttempts: 5,
		ReconnectDelay:    time.Second,
	}
}
