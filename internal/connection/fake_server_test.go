package connection

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeServer is a minimal Socket.IO server for tests.
type fakeServer struct {
	t      *testing.T
	server *httptest.Server

	pingInterval int // milliseconds advertised in the open packet
	pingTimeout  int
	rejectWith   string // non-empty: answer CONNECT with CONNECT_ERROR
	authReply    string // JSON body of the authenticated reply; empty: no reply

	refuse   atomic.Bool  // answer upgrades with 503
	attempts atomic.Int32 // every incoming request
	sessions atomic.Int32 // completed Socket.IO handshakes

	frames chan string // frames received from clients after the handshake

	mu      sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{
		t:            t,
		pingInterval: 25000,
		pingTimeout:  20000,
		authReply:    `{"success":true}`,
		frames:       make(chan string, 256),
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	fs.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.attempts.Add(1)
		if fs.refuse.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		if r.URL.Path != "/socket.io/" || r.URL.Query().Get("EIO") != "4" {
			http.NotFound(w, r)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		fs.serve(conn)
	}))
	t.Cleanup(fs.server.Close)

	return fs
}

// url returns the base URL a Manager should be configured with.
func (fs *fakeServer) url() string {
	return fs.server.URL
}

func (fs *fakeServer) serve(conn *websocket.Conn) {
	open := fmt.Sprintf(`0{"sid":"eio-%d","upgrades":[],"pingInterval":%d,"pingTimeout":%d,"maxPayload":1000000}`,
		fs.attempts.Load(), fs.pingInterval, fs.pingTimeout)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(open)); err != nil {
		return
	}

	_, data, err := conn.ReadMessage()
	if err != nil || string(data) != "40" {
		return
	}
	if fs.rejectWith != "" {
		conn.WriteMessage(websocket.TextMessage, []byte(`44{"message":"`+fs.rejectWith+`"}`))
		time.Sleep(50 * time.Millisecond)
		return
	}

	fs.mu.Lock()
	fs.conn = conn
	fs.mu.Unlock()

	n := fs.sessions.Add(1)
	fs.emitOn(conn, fmt.Sprintf(`40{"sid":"sio-%d"}`, n))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		frame := string(data)
		if strings.HasPrefix(frame, `42["authenticate"`) && fs.authReply != "" {
			fs.emitOn(conn, `42["authenticated",`+fs.authReply+`]`)
		}
		fs.frames <- frame
	}
}

func (fs *fakeServer) emitOn(conn *websocket.Conn, frame string) {
	// Errors surface on the client side as a drop.
	fs.writeMu.Lock()
	defer fs.writeMu.Unlock()
	conn.WriteMessage(websocket.TextMessage, []byte(frame))
}

// emit writes a raw frame to the most recent client.
func (fs *fakeServer) emit(frame string) {
	fs.mu.Lock()
	conn := fs.conn
	fs.mu.Unlock()
	if conn == nil {
		fs.t.Fatal("no client connected")
	}
	fs.emitOn(conn, frame)
}

// emitEvent writes an EVENT packet to the most recent client.
func (fs *fakeServer) emitEvent(name string, data string) {
	nameJSON, _ := json.Marshal(name)
	fs.emit(fmt.Sprintf(`42[%s,%s]`, nameJSON, data))
}

// drop closes the most recent client's transport without a close handshake.
func (fs *fakeServer) drop() {
	fs.mu.Lock()
	conn := fs.conn
	fs.conn = nil
	fs.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// nextFrame waits for the next frame sent by a client.
func (fs *fakeServer) nextFrame(t *testing.T) string {
	t.Helper()
	select {
	case f := <-fs.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for client frame")
		return ""
	}
}

// expectNoFrame fails if a client sends anything within d.
func (fs *fakeServer) expectNoFrame(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case f := <-fs.frames:
		t.Fatalf("unexpected client frame %q", f)
	case <-time.After(d):
	}
}

// waitFor polls cond until it holds or fails the test.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}
