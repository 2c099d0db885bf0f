package connection

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rickgao/acto-client/internal/metrics"
	"github.com/rickgao/acto-client/internal/session"
)

func testConfig(fs *fakeServer) ManagerConfig {
	cfg := DefaultManagerConfig()
	cfg.URL = fs.url()
	cfg.ConnectTimeout = 2 * time.Second
	cfg.ReconnectAttempts = 3
	cfg.ReconnectDelay = 10 * time.Millisecond
	return cfg
}

func newTestManager(t *testing.T, cfg ManagerConfig, token string) (*Manager, *session.Credentials) {
	t.Helper()
	creds := session.NewCredentials(session.NewMemoryStore(), "", nil)
	if token != "" {
		if err := creds.Save(context.Background(), token); err != nil {
			t.Fatalf("save token: %v", err)
		}
	}
	m := NewManager(cfg, creds, nil)
	t.Cleanup(m.Disconnect)
	return m, creds
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateDisconnected, "disconnected"},
		{StateConnecting, "connecting"},
		{StateConnected, "connected"},
		{StateAuthenticated, "authenticated"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestDefaultManagerConfig(t *testing.T) {
	cfg := DefaultManagerConfig()
	if cfg.ReconnectAttempts != 5 {
		t.Errorf("ReconnectAttempts = %d, want 5", cfg.ReconnectAttempts)
	}
	if cfg.ReconnectDelay != time.Second {
		t.Errorf("ReconnectDelay = %v, want 1s", cfg.ReconnectDelay)
	}
	if cfg.ConnectTimeout != 20*time.Second {
		t.Errorf("ConnectTimeout = %v, want 20s", cfg.ConnectTimeout)
	}
	if cfg.URL != DefaultURL {
		t.Errorf("URL = %q, want %q", cfg.URL, DefaultURL)
	}
}

func TestManager_ConnectIsIdempotent(t *testing.T) {
	fs := newFakeServer(t)
	m, _ := newTestManager(t, testConfig(fs), "")

	first, err := m.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	second, err := m.Connect(context.Background())
	if err != nil {
		t.Fatalf("second Connect failed: %v", err)
	}

	if first != second {
		t.Error("second Connect returned a different handle")
	}
	if got := fs.attempts.Load(); got != 1 {
		t.Errorf("server saw %d connections, want 1", got)
	}
	if !m.IsConnected() {
		t.Error("expected IsConnected to return true")
	}
	if first.ID() != "sio-1" {
		t.Errorf("ID() = %q, want %q", first.ID(), "sio-1")
	}
}

func TestManager_Authenticate(t *testing.T) {
	t.Run("sends stored token", func(t *testing.T) {
		fs := newFakeServer(t)
		m, _ := newTestManager(t, testConfig(fs), "tok-123")

		if _, err := m.Connect(context.Background()); err != nil {
			t.Fatalf("Connect failed: %v", err)
		}

		if got := fs.nextFrame(t); got != `42["authenticate",{"token":"tok-123"}]` {
			t.Errorf("first frame = %s", got)
		}
		waitFor(t, "authenticated state", func() bool { return m.State() == StateAuthenticated })
	})

	t.Run("no token stays connected", func(t *testing.T) {
		fs := newFakeServer(t)
		m, _ := newTestManager(t, testConfig(fs), "")

		if _, err := m.Connect(context.Background()); err != nil {
			t.Fatalf("Connect failed: %v", err)
		}
		m.JoinChat("c1")

		if got := fs.nextFrame(t); got != `42["join-chat",{"chatId":"c1"}]` {
			t.Errorf("first frame = %s, want join-chat (no authenticate)", got)
		}
		if m.State() != StateConnected {
			t.Errorf("State() = %v, want connected", m.State())
		}
	})

	t.Run("rejection keeps connection", func(t *testing.T) {
		fs := newFakeServer(t)
		fs.authReply = `{"success":false,"message":"Invalid token"}`
		m, _ := newTestManager(t, testConfig(fs), "bad")

		if _, err := m.Connect(context.Background()); err != nil {
			t.Fatalf("Connect failed: %v", err)
		}
		fs.nextFrame(t) // authenticate

		// A later event proves the rejection was processed first.
		got := make(chan struct{})
		m.On(EventUsersOnline, func(json.RawMessage) { close(got) })
		fs.emitEvent(EventUsersOnline, `[]`)
		select {
		case <-got:
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for event")
		}

		if m.State() != StateConnected {
			t.Errorf("State() = %v, want connected", m.State())
		}
		if !m.IsConnected() {
			t.Error("rejected credential should not drop the connection")
		}
	})
}

func TestManager_Dispatch(t *testing.T) {
	fs := newFakeServer(t)
	m, _ := newTestManager(t, testConfig(fs), "")

	var mu sync.Mutex
	var calls []string
	record := func(tag string) Handler {
		return func(data json.RawMessage) {
			mu.Lock()
			calls = append(calls, tag+":"+string(data))
			mu.Unlock()
		}
	}

	m.On(EventNewMessage, record("a"))
	m.On(EventNewMessage, record("b"))
	m.On("secret-event", record("x"))
	m.On(EventUserTyping, record("typing"))

	if _, err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	fs.emitEvent("secret-event", `{"x":1}`)
	fs.emitEvent(EventNewMessage, `{"id":"m1","content":"привет"}`)
	fs.emitEvent(EventUserTyping, `{"userId":"u1","chatId":"c1","isTyping":true}`)

	waitFor(t, "handlers", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(calls) == 3
	})

	want := []string{
		`a:{"id":"m1","content":"привет"}`,
		`b:{"id":"m1","content":"привет"}`,
		`typing:{"userId":"u1","chatId":"c1","isTyping":true}`,
	}
	mu.Lock()
	defer mu.Unlock()
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %s, want %s", i, calls[i], want[i])
		}
	}
}

func TestManager_Off(t *testing.T) {
	fs := newFakeServer(t)
	m, _ := newTestManager(t, testConfig(fs), "")
	if _, err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	var mu sync.Mutex
	counts := map[string]int{}
	handler := func(tag string) Handler {
		return func(json.RawMessage) {
			mu.Lock()
			counts[tag]++
			mu.Unlock()
		}
	}
	done := make(chan struct{}, 10)

	idA := m.On(EventChatCreated, handler("a"))
	m.On(EventChatCreated, handler("b"))
	m.On(EventChatCreated, func(json.RawMessage) { done <- struct{}{} })

	m.Off(EventChatCreated, idA)
	fs.emitEvent(EventChatCreated, `{"id":"c1"}`)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}

	mu.Lock()
	if counts["a"] != 0 || counts["b"] != 1 {
		t.Errorf("after Off(a): counts = %v, want a=0 b=1", counts)
	}
	mu.Unlock()

	m.Off(EventChatCreated)
	if n := m.handlers.len(); n != 0 {
		t.Errorf("Off without ids left %d handlers", n)
	}
}

func TestManager_DisconnectClearsHandlers(t *testing.T) {
	fs := newFakeServer(t)
	m, _ := newTestManager(t, testConfig(fs), "")

	fired := make(chan string, 10)
	m.On(EventNewMessage, func(data json.RawMessage) { fired <- "old:" + string(data) })

	if _, err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	m.Disconnect()

	if m.handlers.len() != 0 {
		t.Errorf("registry has %d handlers after Disconnect", m.handlers.len())
	}
	if m.IsConnected() {
		t.Error("expected IsConnected to return false after Disconnect")
	}
	if m.State() != StateDisconnected {
		t.Errorf("State() = %v, want disconnected", m.State())
	}

	if got := fs.nextFrame(t); got != "41" {
		t.Errorf("frame on disconnect = %q, want 41", got)
	}

	// Disconnect is idempotent.
	m.Disconnect()

	if _, err := m.Connect(context.Background()); err != nil {
		t.Fatalf("reconnect failed: %v", err)
	}
	m.On(EventNewMessage, func(data json.RawMessage) { fired <- "new:" + string(data) })
	fs.emitEvent(EventNewMessage, `{"id":"m2"}`)

	select {
	case got := <-fired:
		if got != `new:{"id":"m2"}` {
			t.Errorf("fired %s, want only the new handler", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
	select {
	case got := <-fired:
		t.Errorf("stale handler fired: %s", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestManager_DisconnectWhenNeverConnected(t *testing.T) {
	m := NewManager(DefaultManagerConfig(), nil, nil)
	m.On(EventNewMessage, func(json.RawMessage) {})
	m.Disconnect()
	m.Disconnect()
	if m.handlers.len() != 0 {
		t.Error("Disconnect should clear handlers even when never connected")
	}
}

func TestManager_SendWhenDisconnected(t *testing.T) {
	fs := newFakeServer(t)
	m, _ := newTestManager(t, testConfig(fs), "")

	// No connection yet: silently dropped.
	m.JoinChat("c1")
	m.StartTyping("c1")
	m.Send("anything", map[string]int{"n": 1})

	if _, err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	m.LeaveChat("c2")
	if got := fs.nextFrame(t); got != `42["leave-chat",{"chatId":"c2"}]` {
		t.Errorf("first frame = %s, want leave-chat", got)
	}
}

func TestManager_ChatActions(t *testing.T) {
	fs := newFakeServer(t)
	m, _ := newTestManager(t, testConfig(fs), "")
	if _, err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	m.JoinChat("c1")
	m.StartTyping("c1")
	m.StopTyping("c1")
	m.LeaveChat("c1")

	want := []string{
		`42["join-chat",{"chatId":"c1"}]`,
		`42["typing",{"chatId":"c1","isTyping":true}]`,
		`42["typing",{"chatId":"c1","isTyping":false}]`,
		`42["leave-chat",{"chatId":"c1"}]`,
	}
	for i, w := range want {
		if got := fs.nextFrame(t); got != w {
			t.Errorf("frame %d = %s, want %s", i, got, w)
		}
	}
}

func TestNewManager_FillsZeroConfig(t *testing.T) {
	tests := []struct {
		name         string
		attempts     int
		wantAttempts int
	}{
		{"zero takes default", 0, 5},
		{"negative disables retries", -1, 0},
		{"explicit kept", 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(ManagerConfig{ReconnectAttempts: tt.attempts}, nil, nil)
			if m.cfg.ReconnectAttempts != tt.wantAttempts {
				t.Errorf("ReconnectAttempts = %d, want %d", m.cfg.ReconnectAttempts, tt.wantAttempts)
			}
			if m.cfg.ReconnectDelay != time.Second {
				t.Errorf("ReconnectDelay = %v, want 1s", m.cfg.ReconnectDelay)
			}
			if m.cfg.ConnectTimeout != 20*time.Second {
				t.Errorf("ConnectTimeout = %v, want 20s", m.cfg.ConnectTimeout)
			}
			if m.cfg.URL != DefaultURL {
				t.Errorf("URL = %q, want %q", m.cfg.URL, DefaultURL)
			}
		})
	}
}

func TestManager_ZeroConfigReconnects(t *testing.T) {
	fs := newFakeServer(t)
	m, _ := newTestManager(t, ManagerConfig{URL: fs.url()}, "")

	s, err := m.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	fs.drop()

	waitFor(t, "second session", func() bool { return fs.sessions.Load() == 2 })
	waitFor(t, "reconnected", func() bool { return m.IsConnected() })
	if s.Dead() {
		t.Error("socket gave up instead of reconnecting")
	}
}

func TestManager_StaleSocketEventsNotDispatched(t *testing.T) {
	m := NewManager(ManagerConfig{}, nil, nil)
	current, replaced := &Socket{}, &Socket{}

	var got []string
	m.On(EventNewMessage, func(data json.RawMessage) { got = append(got, string(data)) })

	m.mu.Lock()
	m.socket = current
	m.mu.Unlock()
	m.handleEvent(current, EventNewMessage, json.RawMessage(`{"n":1}`))

	m.mu.Lock()
	m.socket = replaced
	m.mu.Unlock()
	m.handleEvent(current, EventNewMessage, json.RawMessage(`{"n":2}`))

	if len(got) != 1 || got[0] != `{"n":1}` {
		t.Errorf("dispatched = %v, want only the event from the current socket", got)
	}
}

func TestManager_ReconnectAfterDrop(t *testing.T) {
	fs := newFakeServer(t)
	m, creds := newTestManager(t, testConfig(fs), "tok-1")

	first, err := m.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if got := fs.nextFrame(t); got != `42["authenticate",{"token":"tok-1"}]` {
		t.Fatalf("first frame = %s", got)
	}

	// The credential is re-read on reconnect.
	if err := creds.Save(context.Background(), "tok-2"); err != nil {
		t.Fatalf("save: %v", err)
	}
	fs.drop()

	if got := fs.nextFrame(t); got != `42["authenticate",{"token":"tok-2"}]` {
		t.Errorf("frame after reconnect = %s", got)
	}
	waitFor(t, "second session", func() bool { return fs.sessions.Load() == 2 })
	waitFor(t, "authenticated", func() bool { return m.State() == StateAuthenticated })

	again, err := m.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if again != first {
		t.Error("reconnect created a second handle")
	}
}

func TestManager_GivesUpAfterBudget(t *testing.T) {
	fs := newFakeServer(t)
	cfg := testConfig(fs)
	cfg.ReconnectAttempts = 2
	m, _ := newTestManager(t, cfg, "")

	var mu sync.Mutex
	var transitions []State
	m.OnStateChange(func(_, next State) {
		mu.Lock()
		transitions = append(transitions, next)
		mu.Unlock()
	})

	first, err := m.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	fs.refuse.Store(true)
	fs.drop()

	waitFor(t, "socket to give up", first.Dead)
	waitFor(t, "disconnected state", func() bool { return m.State() == StateDisconnected })

	// One initial connection plus two refused retries.
	if got := fs.attempts.Load(); got != 3 {
		t.Errorf("server saw %d attempts, want 3", got)
	}

	mu.Lock()
	if len(transitions) == 0 || transitions[len(transitions)-1] != StateDisconnected {
		t.Errorf("transitions = %v, want to end disconnected", transitions)
	}
	mu.Unlock()

	// A fresh Connect builds a new handle once the server is back.
	fs.refuse.Store(false)
	second, err := m.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect after give-up failed: %v", err)
	}
	if second == first {
		t.Error("expected a new handle after give-up")
	}
}

func TestManager_InitialConnectFailure(t *testing.T) {
	fs := newFakeServer(t)
	fs.refuse.Store(true)

	reg := prometheus.NewRegistry()
	rt := metrics.NewRealtime(reg)
	cfg := testConfig(fs)
	cfg.ReconnectAttempts = 2
	cfg.Metrics = rt
	m, _ := newTestManager(t, cfg, "")

	_, err := m.Connect(context.Background())
	if !errors.Is(err, ErrReconnectExhausted) {
		t.Fatalf("Connect error = %v, want ErrReconnectExhausted", err)
	}
	if got := fs.attempts.Load(); got != 3 {
		t.Errorf("server saw %d attempts, want 3", got)
	}
	if m.State() != StateDisconnected {
		t.Errorf("State() = %v, want disconnected", m.State())
	}
	if m.IsConnected() {
		t.Error("expected IsConnected to return false")
	}

	if got := metricValue(t, reg, "acto_client_realtime_connect_errors_total", nil); got != 3 {
		t.Errorf("connect errors = %v, want 3", got)
	}
	if got := metricValue(t, reg, "acto_client_realtime_reconnect_attempts_total", nil); got != 2 {
		t.Errorf("reconnect attempts = %v, want 2", got)
	}
}

func TestManager_ConnectRejected(t *testing.T) {
	fs := newFakeServer(t)
	fs.rejectWith = "not allowed"
	cfg := testConfig(fs)
	cfg.ReconnectAttempts = -1
	m, _ := newTestManager(t, cfg, "")

	_, err := m.Connect(context.Background())
	if !errors.Is(err, ErrConnectRejected) {
		t.Fatalf("Connect error = %v, want ErrConnectRejected", err)
	}
	if got := fs.attempts.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1 with retries disabled", got)
	}
}

func TestManager_ConnectContextCanceled(t *testing.T) {
	fs := newFakeServer(t)
	fs.refuse.Store(true)
	cfg := testConfig(fs)
	cfg.ReconnectDelay = time.Hour
	m, _ := newTestManager(t, cfg, "")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := m.Connect(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Connect error = %v, want context.DeadlineExceeded", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("Connect ignored context cancellation")
	}
}

func TestManager_ServerDisconnect(t *testing.T) {
	fs := newFakeServer(t)
	m, _ := newTestManager(t, testConfig(fs), "")

	s, err := m.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	fs.emit("41")

	waitFor(t, "socket to stop", s.Dead)
	if m.State() != StateDisconnected {
		t.Errorf("State() = %v, want disconnected", m.State())
	}
	if got := fs.attempts.Load(); got != 1 {
		t.Errorf("server saw %d attempts, want no reconnect", got)
	}
}

func TestManager_Metrics(t *testing.T) {
	fs := newFakeServer(t)
	reg := prometheus.NewRegistry()
	rt := metrics.NewRealtime(reg)
	cfg := testConfig(fs)
	cfg.Metrics = rt
	m, _ := newTestManager(t, cfg, "tok")

	done := make(chan struct{})
	m.On(EventUserJoinedChat, func(json.RawMessage) { close(done) })

	if _, err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	waitFor(t, "authenticated", func() bool { return m.State() == StateAuthenticated })

	fs.emitEvent("unknown-event", `{}`)
	fs.emitEvent(EventUserJoinedChat, `{"chatId":"c1"}`)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}

	if got := metricValue(t, reg, "acto_client_realtime_connection_state", nil); got != float64(StateAuthenticated) {
		t.Errorf("state gauge = %v, want %v", got, float64(StateAuthenticated))
	}
	dispatched := map[string]string{"event": EventUserJoinedChat, "outcome": "dispatched"}
	if got := metricValue(t, reg, "acto_client_realtime_events_total", dispatched); got != 1 {
		t.Errorf("dispatched events = %v, want 1", got)
	}
	ignored := map[string]string{"event": "unknown-event", "outcome": "ignored"}
	if got := metricValue(t, reg, "acto_client_realtime_events_total", ignored); got != 1 {
		t.Errorf("ignored events = %v, want 1", got)
	}
}

// metricValue returns the value of a counter or gauge sample whose labels
// include want.
func metricValue(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	samples:
		for _, m := range f.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue samples
				}
			}
			if c := m.GetCounter(); c != nil {
				return c.GetValue()
			}
			if g := m.GetGauge(); g != nil {
				return g.GetValue()
			}
		}
	}
	return 0
}
