package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/rickgao/acto-client/internal/session"
	"github.com/rickgao/acto-client/internal/sio"
	"github.com/tidwall/gjson"
)

// Manager owns the realtime connection for one client. At most one Socket
// exists at a time; reconnects reuse it.
type Manager struct {
	cfg    ManagerConfig
	creds  *session.Credentials
	logger *slog.Logger

	handlers *registry

	mu        sync.Mutex
	socket    *Socket
	state     State
	observers []func(old, new State)
}

// NewManager creates a Manager. creds may be nil, in which case the manager
// never authenticates. Zero config fields take the defaults; a negative
// ReconnectAttempts disables retries.
func NewManager(cfg ManagerConfig, creds *session.Credentials, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultManagerConfig()
	if cfg.URL == "" {
		cfg.URL = defaults.URL
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaults.ConnectTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	switch {
	case cfg.ReconnectAttempts == 0:
		cfg.ReconnectAttempts = defaults.ReconnectAttempts
	case cfg.ReconnectAttempts < 0:
		cfg.ReconnectAttempts = 0
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaults.ReconnectDelay
	}

	return &Manager{
		cfg:      cfg,
		creds:    creds,
		logger:   logger,
		handlers: newRegistry(),
	}
}

// Connect returns the live Socket, creating and opening one if needed. While a
// socket is connected, connecting or reconnecting, the same one is returned and
// nothing is dialed. A failed initial connect is retried within the reconnect
// budget before an error is returned.
func (m *Manager) Connect(ctx context.Context) (*Socket, error) {
	m.mu.Lock()
	if m.socket != nil && !m.socket.Dead() {
		s := m.socket
		m.mu.Unlock()
		return s, nil
	}

	endpoint, err := sio.EndpointURL(m.cfg.URL)
	if err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("connect: %w", err)
	}

	var s *Socket
	s = NewSocket(SocketConfig{
		URL:               endpoint,
		UserAgent:         m.cfg.UserAgent,
		HandshakeTimeout:  m.cfg.ConnectTimeout,
		WriteTimeout:      m.cfg.WriteTimeout,
		ReconnectAttempts: m.cfg.ReconnectAttempts,
		ReconnectDelay:    m.cfg.ReconnectDelay,
	}, SocketHooks{
		OnConnect:          func() { m.handleConnect(s) },
		OnDisconnect:       func(reason string) { m.handleDisconnect(s, reason) },
		OnConnectError:     func(err error) { m.handleConnectError(s, err) },
		OnReconnectAttempt: func(attempt int) { m.handleReconnectAttempt(s, attempt) },
		OnGiveUp:           func(err error) { m.handleGiveUp(s, err) },
		OnEvent:            func(name string, data json.RawMessage) { m.handleEvent(s, name, data) },
	}, m.logger)
	m.socket = s
	m.mu.Unlock()

	m.setState(s, StateConnecting)

	if err := s.Open(ctx); err != nil {
		m.mu.Lock()
		if m.socket == s {
			m.socket = nil
		}
		m.mu.Unlock()
		m.setState(nil, StateDisconnected)
		return nil, fmt.Errorf("connect: %w", err)
	}

	return s, nil
}

// Disconnect closes the socket and removes every registered handler. It is
// safe to call when already disconnected.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	s := m.socket
	m.socket = nil
	m.handlers.clear()
	m.mu.Unlock()

	if s != nil {
		if err := s.Close(); err != nil {
			m.logger.Debug("error closing socket", "error", err)
		}
		m.logger.Info("realtime disconnected")
	}
	m.setState(nil, StateDisconnected)
}

// On registers h for a server event. Handlers for the same event run in
// registration order. Only ForwardedEvents are ever delivered.
func (m *Manager) On(event string, h Handler) HandlerID {
	if h == nil {
		return 0
	}
	return m.handlers.add(event, h)
}

// Off removes the given handlers for event, or all of them when no ids are
// given.
func (m *Manager) Off(event string, ids ...HandlerID) {
	m.handlers.remove(event, ids...)
}

// OnStateChange registers fn to be called after every state transition.
func (m *Manager) OnStateChange(fn func(old, new State)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.observers = append(m.observers, fn)
	m.mu.Unlock()
}

// Send emits an event when connected. While disconnected the event is dropped.
func (m *Manager) Send(event string, data any) {
	m.mu.Lock()
	s := m.socket
	m.mu.Unlock()

	if s == nil || !s.Connected() {
		m.logger.Debug("not connected, dropping event", "event", event)
		return
	}
	if err := s.Emit(event, data); err != nil {
		m.logger.Warn("failed to send event", "event", event, "error", err)
	}
}

// JoinChat subscribes to a chat room.
func (m *Manager) JoinChat(chatID string) {
	m.Send(EventJoinChat, chatPayload{ChatID: chatID})
}

// LeaveChat unsubscribes from a chat room.
func (m *Manager) LeaveChat(chatID string) {
	m.Send(EventLeaveChat, chatPayload{ChatID: chatID})
}

// StartTyping tells the chat the user is typing.
func (m *Manager) StartTyping(chatID string) {
	m.Send(EventTyping, typingPayload{ChatID: chatID, IsTyping: true})
}

// StopTyping tells the chat the user stopped typing.
func (m *Manager) StopTyping(chatID string) {
	m.Send(EventTyping, typingPayload{ChatID: chatID, IsTyping: false})
}

// IsConnected reports whether the transport is up.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	s := m.socket
	m.mu.Unlock()
	return s != nil && s.Connected()
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// setState moves to next. A non-nil s limits the change to the current socket,
// so hooks from a replaced socket cannot clobber the state.
func (m *Manager) setState(s *Socket, next State) {
	m.mu.Lock()
	if s != nil && m.socket != s {
		m.mu.Unlock()
		return
	}
	prev := m.state
	if prev == next {
		m.mu.Unlock()
		return
	}
	m.state = next
	observers := slices.Clone(m.observers)
	m.mu.Unlock()

	m.cfg.Metrics.SetState(int(next))
	m.logger.Debug("connection state changed", "from", prev, "to", next)
	for _, fn := range observers {
		fn(prev, next)
	}
}

func (m *Manager) isCurrent(s *Socket) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.socket == s
}

// handleConnect authenticates with whatever credential is stored right now.
func (m *Manager) handleConnect(s *Socket) {
	if !m.isCurrent(s) {
		return
	}
	m.logger.Info("realtime connected", "sid", s.ID())
	m.setState(s, StateConnected)

	token := m.creds.Token(context.Background())
	if token == "" {
		m.logger.Debug("no credential stored, staying unauthenticated")
		return
	}
	if err := s.Emit(EventAuthenticate, authPayload{Token: token}); err != nil {
		m.logger.Warn("failed to send authenticate", "error", err)
	}
}

func (m *Manager) handleDisconnect(s *Socket, reason string) {
	m.logger.Warn("realtime connection lost", "reason", reason)
	m.setState(s, StateDisconnected)
}

func (m *Manager) handleConnectError(s *Socket, err error) {
	m.cfg.Metrics.ConnectError()
	m.logger.Warn("realtime connect error", "error", err)
}

func (m *Manager) handleReconnectAttempt(s *Socket, attempt int) {
	m.cfg.Metrics.ReconnectAttempt()
	m.setState(s, StateConnecting)
}

// handleGiveUp forgets a socket that exhausted its reconnect budget. Handlers
// stay registered for the next Connect.
func (m *Manager) handleGiveUp(s *Socket, err error) {
	m.mu.Lock()
	current := m.socket == s
	if current {
		m.socket = nil
	}
	m.mu.Unlock()

	if current {
		m.logger.Error("realtime connection abandoned", "error", err)
		m.setState(nil, StateDisconnected)
	}
}

func (m *Manager) handleEvent(s *Socket, name string, data json.RawMessage) {
	if !m.isCurrent(s) {
		return
	}

	if name == EventAuthenticated {
		m.handleAuthenticated(s, data)
		return
	}

	if !isForwarded(name) {
		m.cfg.Metrics.Event(name, false)
		m.logger.Debug("ignoring server event", "event", name)
		return
	}

	// Disconnect swaps the socket and clears handlers under mu.
	m.mu.Lock()
	var handlers []Handler
	if m.socket == s {
		handlers = m.handlers.snapshot(name)
	}
	m.mu.Unlock()

	m.cfg.Metrics.Event(name, true)
	for _, h := range handlers {
		h(data)
	}
}

// handleAuthenticated processes the server's verdict on the credential. A
// rejection is only logged; the connection stays up unauthenticated.
func (m *Manager) handleAuthenticated(s *Socket, data json.RawMessage) {
	result := gjson.ParseBytes(data)
	if result.Get("success").Bool() {
		m.logger.Info("realtime authenticated")
		m.setState(s, StateAuthenticated)
		return
	}
	m.logger.Warn("realtime authentication failed", "message", result.Get("message").String())
}
