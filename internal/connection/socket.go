package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rickgao/acto-client/internal/sio"
	"github.com/tidwall/gjson"
)

// SocketHooks receive lifecycle notifications from a Socket. All hooks run on
// the socket's own goroutine; nil hooks are skipped.
type SocketHooks struct {
	OnConnect          func()
	OnDisconnect       func(reason string)
	OnConnectError     func(err error)
	OnReconnectAttempt func(attempt int)
	OnGiveUp           func(err error)
	OnEvent            func(name string, data json.RawMessage)
}

// Socket is a single Socket.IO session. It survives transport drops: the same
// Socket reconnects until its retry budget is spent, after which it is dead.
type Socket struct {
	cfg    SocketConfig
	hooks  SocketHooks
	logger *slog.Logger

	// Lifetime of the socket; cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc

	// Write serialization
	writeMu sync.Mutex

	// State
	mu         sync.RWMutex
	conn       *websocket.Conn
	sid        string
	open       sio.OpenPayload
	started    bool
	connected  bool
	closed     bool
	dead       bool
	lastPingAt time.Time
}

// NewSocket creates a Socket. Nothing is dialed until Open.
func NewSocket(cfg SocketConfig, hooks SocketHooks, logger *slog.Logger) *Socket {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultSocketConfig()
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaults.HandshakeTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.ReconnectAttempts < 0 {
		cfg.ReconnectAttempts = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Socket{
		cfg:    cfg,
		hooks:  hooks,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Open connects, retrying failed attempts within the reconnect budget. It
// returns once the namespace is joined or the budget is spent; in the latter
// case the socket is dead. ctx bounds the initial attempts only.
func (s *Socket) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrAlreadyClosed
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyOpen
	}
	s.started = true
	s.mu.Unlock()

	if err := s.connectWithRetry(ctx, s.cfg.ReconnectAttempts+1, false); err != nil {
		s.mu.Lock()
		s.dead = true
		s.mu.Unlock()
		return err
	}

	go s.run()
	return nil
}

// Close tears the session down and cancels any reconnect in flight. It is safe
// to call more than once.
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	wasConnected := s.connected
	s.connected = false
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	s.cancel()

	if conn == nil {
		return nil
	}

	if wasConnected {
		if err := s.writeFrame(conn, sio.EncodeDisconnect()); err != nil {
			s.logger.Debug("failed to send disconnect", "error", err)
		}
	}
	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return conn.Close()
}

// Emit sends an event. It fails with ErrNotConnected while the transport is
// down.
func (s *Socket) Emit(event string, data any) error {
	frame, err := sio.EncodeEvent(event, data)
	if err != nil {
		return err
	}

	s.mu.RLock()
	conn := s.conn
	connected := s.connected
	s.mu.RUnlock()
	if !connected || conn == nil {
		return ErrNotConnected
	}

	return s.writeFrame(conn, frame)
}

// Connected reports whether the transport is currently up.
func (s *Socket) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Dead reports whether the socket was closed or gave up reconnecting.
func (s *Socket) Dead() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed || s.dead
}

// ID returns the Socket.IO session id of the current transport.
func (s *Socket) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sid
}

func (s *Socket) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// connectWithRetry makes up to attempts connection attempts. Every attempt but
// the first, or all of them when delayFirst is set, waits ReconnectDelay and
// counts as a reconnect attempt.
func (s *Socket) connectWithRetry(ctx context.Context, attempts int, delayFirst bool) error {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 || delayFirst {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.ctx.Done():
				return ErrAlreadyClosed
			case <-time.After(s.cfg.ReconnectDelay):
			}

			s.logger.Info("attempting reconnection", "attempt", attempt, "of", attempts)
			if s.hooks.OnReconnectAttempt != nil {
				s.hooks.OnReconnectAttempt(attempt)
			}
		}

		conn, open, err := s.dial(ctx)
		if err == nil {
			err = s.attach(conn, open)
		}
		if err == nil {
			s.logger.Debug("socket connected", "sid", open.SID, "url", s.cfg.URL)
			if s.hooks.OnConnect != nil {
				s.hooks.OnConnect()
			}
			return nil
		}

		if s.isClosed() {
			return ErrAlreadyClosed
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = err
		s.logger.Warn("connection attempt failed", "attempt", attempt, "error", err)
		if s.hooks.OnConnectError != nil {
			s.hooks.OnConnectError(err)
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrReconnectExhausted, attempts, lastErr)
}

// dial opens the WebSocket and completes the Engine.IO and Socket.IO
// handshakes within HandshakeTimeout.
func (s *Socket) dial(ctx context.Context) (*websocket.Conn, sio.OpenPayload, error) {
	dctx, cancel := context.WithTimeout(ctx, s.cfg.HandshakeTimeout)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	header := http.Header{}
	if s.cfg.UserAgent != "" {
		header.Set("User-Agent", s.cfg.UserAgent)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: s.cfg.HandshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(dctx, s.cfg.URL, header)
	if err != nil {
		if resp != nil {
			return nil, sio.OpenPayload{}, fmt.Errorf("dial: %w (status %d)", err, resp.StatusCode)
		}
		return nil, sio.OpenPayload{}, fmt.Errorf("dial: %w", err)
	}

	if deadline, ok := dctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	}
	stopClose := context.AfterFunc(dctx, func() { conn.Close() })

	open, err := s.handshake(conn)
	if !stopClose() {
		// The context ended mid-handshake and the conn is already closed.
		err = fmt.Errorf("handshake: %w", dctx.Err())
	}
	if err != nil {
		conn.Close()
		return nil, sio.OpenPayload{}, err
	}

	conn.SetReadDeadline(time.Time{})
	return conn, open, nil
}

// handshake reads the Engine.IO open packet, joins the default namespace and
// waits for the server to accept it.
func (s *Socket) handshake(conn *websocket.Conn) (sio.OpenPayload, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return sio.OpenPayload{}, fmt.Errorf("read open packet: %w", err)
	}
	p, err := sio.Decode(data)
	if err != nil {
		return sio.OpenPayload{}, fmt.Errorf("decode open packet: %w", err)
	}
	open, err := sio.DecodeOpen(p)
	if err != nil {
		return sio.OpenPayload{}, err
	}

	connect, err := sio.EncodeConnect(nil)
	if err != nil {
		return sio.OpenPayload{}, err
	}
	conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, connect); err != nil {
		return sio.OpenPayload{}, fmt.Errorf("send connect: %w", err)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return sio.OpenPayload{}, fmt.Errorf("await connect ack: %w", err)
		}
		p, err := sio.Decode(data)
		if err != nil {
			s.logger.Debug("ignoring frame during handshake", "error", err)
			continue
		}

		switch p.Engine {
		case sio.EnginePing:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, sio.Pong); err != nil {
				return sio.OpenPayload{}, fmt.Errorf("send pong: %w", err)
			}
			continue
		case sio.EngineClose:
			return sio.OpenPayload{}, errors.New("server closed the session during handshake")
		case sio.EngineMessage:
		default:
			continue
		}

		switch p.Type {
		case sio.Connect:
			if sid := gjson.GetBytes(p.Data, "sid").String(); sid != "" {
				open.SID = sid
			}
			return open, nil
		case sio.ConnectError:
			var ce sio.ConnectErrorPayload
			if err := json.Unmarshal(p.Data, &ce); err != nil || ce.Message == "" {
				return sio.OpenPayload{}, ErrConnectRejected
			}
			return sio.OpenPayload{}, fmt.Errorf("%w: %s", ErrConnectRejected, ce.Message)
		}
	}
}

// attach makes conn the live transport.
func (s *Socket) attach(conn *websocket.Conn, open sio.OpenPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		conn.Close()
		return ErrAlreadyClosed
	}
	s.conn = conn
	s.open = open
	s.sid = open.SID
	s.connected = true
	s.lastPingAt = time.Now()
	return nil
}

// detach drops the live transport.
func (s *Socket) detach() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.connected = false
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// run serves the live transport and reconnects after each drop.
func (s *Socket) run() {
	for {
		reason := s.serve()
		s.detach()
		if s.isClosed() {
			return
		}

		s.logger.Warn("socket disconnected", "reason", reason)
		if s.hooks.OnDisconnect != nil {
			s.hooks.OnDisconnect(reason)
		}

		// A server-initiated disconnect is deliberate; do not fight it.
		if reason == ReasonServerDisconnect {
			s.giveUp(ErrServerDisconnect)
			return
		}

		if err := s.connectWithRetry(s.ctx, s.cfg.ReconnectAttempts, true); err != nil {
			if s.isClosed() {
				return
			}
			s.giveUp(err)
			return
		}
	}
}

func (s *Socket) giveUp(err error) {
	s.mu.Lock()
	s.dead = true
	s.mu.Unlock()

	s.logger.Error("socket gave up", "error", err)
	if s.hooks.OnGiveUp != nil {
		s.hooks.OnGiveUp(err)
	}
}

// serve reads frames from the live transport until it drops and returns the
// disconnect reason.
func (s *Socket) serve() string {
	s.mu.RLock()
	conn := s.conn
	window := s.open.HeartbeatWindow()
	s.mu.RUnlock()

	var stale atomic.Bool
	done := make(chan struct{})
	defer close(done)
	if window > 0 {
		go s.heartbeatLoop(conn, window, &stale, done)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			switch {
			case s.isClosed():
				return ReasonClientDisconnect
			case stale.Load():
				return ReasonPingTimeout
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return ReasonTransportClose
			}
			s.logger.Debug("read failed", "error", err)
			return ReasonTransportError
		}

		if reason, drop := s.handleFrame(conn, data); drop {
			return reason
		}
	}
}

// handleFrame processes one frame. It reports a reason and true when the frame
// ends the session.
func (s *Socket) handleFrame(conn *websocket.Conn, data []byte) (string, bool) {
	p, err := sio.Decode(data)
	if err != nil {
		s.logger.Debug("dropping undecodable frame", "error", err)
		return "", false
	}

	switch p.Engine {
	case sio.EnginePing:
		s.mu.Lock()
		s.lastPingAt = time.Now()
		s.mu.Unlock()
		if err := s.writeFrame(conn, sio.Pong); err != nil {
			s.logger.Debug("failed to send pong", "error", err)
		}
	case sio.EngineClose:
		return ReasonTransportClose, true
	case sio.EngineMessage:
		switch p.Type {
		case sio.Event:
			if s.hooks.OnEvent != nil && !s.isClosed() {
				s.hooks.OnEvent(p.Event, p.Data)
			}
		case sio.Disconnect:
			return ReasonServerDisconnect, true
		case sio.ConnectError:
			s.logger.Warn("connect error from server", "data", string(p.Data))
		}
	}
	return "", false
}

// heartbeatLoop closes conn when the server stops pinging.
func (s *Socket) heartbeatLoop(conn *websocket.Conn, window time.Duration, stale *atomic.Bool, done <-chan struct{}) {
	interval := window / 4
	if interval > time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.mu.RLock()
			lastPing := s.lastPingAt
			s.mu.RUnlock()

			if time.Since(lastPing) > window {
				s.logger.Warn("no ping received, connection stale",
					"last_ping", lastPing,
					"timeout", window,
				)
				stale.Store(true)
				conn.Close()
				return
			}
		}
	}
}

func (s *Socket) writeFrame(conn *websocket.Conn, frame []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, frame)
}
