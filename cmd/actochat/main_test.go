package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rickgao/acto-client/internal/config"
)

// run executes the CLI with args and returns stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}, args...))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// useBackend points the CLI at server with a SQLite session in a temp dir.
func useBackend(t *testing.T, server *httptest.Server) {
	t.Helper()
	t.Setenv("ACTO_API_BASE_URL", server.URL)
	t.Setenv("ACTO_SESSION_DRIVER", "sqlite")
	t.Setenv("ACTO_SESSION_SQLITE_PATH", filepath.Join(t.TempDir(), "session.db"))
	t.Setenv("ACTO_LOG_LEVEL", "error")
	t.Setenv("ACTO_TIMEZONE", "UTC")
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LogConfig
		wantErr bool
	}{
		{"text info", config.LogConfig{Level: "info", Format: "text"}, false},
		{"json debug", config.LogConfig{Level: "debug", Format: "json"}, false},
		{"upper case", config.LogConfig{Level: "WARN", Format: "JSON"}, false},
		{"bad level", config.LogConfig{Level: "loud", Format: "text"}, true},
		{"bad format", config.LogConfig{Level: "info", Format: "xml"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newLogger(tt.cfg, &bytes.Buffer{})
			if (err != nil) != tt.wantErr {
				t.Errorf("newLogger() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestVersionCmd(t *testing.T) {
	out, _, err := run(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, "dev") {
		t.Errorf("output = %q, want version string", out)
	}
}

func TestLoginAndStatus(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      "u1",
		"username": "ada",
		"exp":      time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("server-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			w.Write([]byte(`{"success":true,"token":"` + token + `","user":{"id":"u1","username":"ada","displayName":"Ada Lovelace"}}`))
		case "/auth/logout":
			w.Write([]byte(`{"success":true}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()
	useBackend(t, server)

	out, _, err := run(t, "login", "-u", "ada", "-p", "pw")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !strings.Contains(out, "logged in as Ada Lovelace") {
		t.Errorf("login output = %q", out)
	}

	out, _, err = run(t, "status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out, "logged in as ada") || !strings.Contains(out, "token expires") {
		t.Errorf("status output = %q", out)
	}

	if _, _, err := run(t, "logout"); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	out, _, err = run(t, "status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out, "not logged in") {
		t.Errorf("status after logout = %q", out)
	}
}

func TestChatsCmd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chats" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"success":true,"chats":[{"id":"c1","type":"group","name":"Team Chat","unreadCount":3}]}`))
	}))
	defer server.Close()
	useBackend(t, server)

	out, _, err := run(t, "chats")
	if err != nil {
		t.Fatalf("chats failed: %v", err)
	}
	if !strings.Contains(out, "c1  TC  Team Chat (group) +3") {
		t.Errorf("chats output = %q", out)
	}

	out, _, err = run(t, "--json", "chats")
	if err != nil {
		t.Fatalf("chats --json failed: %v", err)
	}
	if !strings.Contains(out, `"name": "Team Chat"`) {
		t.Errorf("json output = %q", out)
	}
}

func TestSessionExpiredHint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Token expired"}`))
	}))
	defer server.Close()
	useBackend(t, server)

	_, errOut, err := run(t, "profile")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(errOut, `run "actochat login"`) {
		t.Errorf("stderr = %q, want login hint", errOut)
	}
}

func TestCreateChatRejectsBadType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	}))
	defer server.Close()
	useBackend(t, server)

	if _, _, err := run(t, "create-chat", "--type", "broadcast", "--name", "x"); err == nil {
		t.Fatal("expected error for invalid chat type")
	}
}
