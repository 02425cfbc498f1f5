package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/vovakirdan/wirechat-relay/internal/auth"
	"github.com/vovakirdan/wirechat-relay/internal/config"
	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/proto"
	"github.com/vovakirdan/wirechat-relay/internal/store"
	"github.com/vovakirdan/wirechat-relay/internal/store/sqlite"
)

type testEnv struct {
	server   *httptest.Server
	http     *Server
	auth     *auth.Service
	store    store.Store
	registry *core.Registry
	conns    *Connections
}

// startTestServer wires the full HTTP stack over an in-memory store.
func startTestServer(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.JWTSecret = "test-secret"
	if mutate != nil {
		mutate(&cfg)
	}

	logger := zerolog.Nop()
	authService := auth.NewService(st, &auth.JWTConfig{
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.JWTIssuer,
		TTL:    time.Hour,
	}, auth.WithBcryptCost(bcrypt.MinCost))

	registry := core.NewRegistry()
	conns := NewConnections(cfg.SendBuffer, &logger)
	router := core.NewRouter(registry, conns, store.NewMessageLog(st), core.WithLogger(&logger))

	server := NewServer(router, conns, authService, st, &cfg, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{server: ts, http: server, auth: authService, store: st, registry: registry, conns: conns}
}

func (e *testEnv) dial(ctx context.Context, t *testing.T) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(e.server.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })

	// Every connection is greeted first.
	msg := readChat(ctx, t, conn, proto.OutboundTypeMessage)
	if msg.Sender != core.SystemSender || msg.Message != core.NoticeWelcome {
		t.Fatalf("unexpected welcome: %+v", msg)
	}
	return conn
}

func send(ctx context.Context, t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s: %v", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		t.Fatalf("send %s: %v", typ, err)
	}
}

type rawOutbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readOutbound(ctx context.Context, t *testing.T, conn *websocket.Conn) rawOutbound {
	t.Helper()

	var out rawOutbound
	if err := wsjson.Read(ctx, conn, &out); err != nil {
		t.Fatalf("read outbound: %v", err)
	}
	return out
}

// readChat returns the next frame of the given type.
func readChat(ctx context.Context, t *testing.T, conn *websocket.Conn, typ string) proto.ChatMessage {
	t.Helper()
	return readChatUntil(ctx, t, conn, typ, func(proto.ChatMessage) bool { return true })
}

// readChatUntil skips frames until one of the given type satisfies want.
func readChatUntil(ctx context.Context, t *testing.T, conn *websocket.Conn, typ string, want func(proto.ChatMessage) bool) proto.ChatMessage {
	t.Helper()

	for {
		out := readOutbound(ctx, t, conn)
		if out.Type != typ {
			continue
		}
		var msg proto.ChatMessage
		if err := json.Unmarshal(out.Data, &msg); err != nil {
			t.Fatalf("unmarshal %s: %v", typ, err)
		}
		if want(msg) {
			return msg
		}
	}
}

func fromSystem(text string) func(proto.ChatMessage) bool {
	return func(m proto.ChatMessage) bool {
		return m.Sender == core.SystemSender && m.Message == text
	}
}

// readUsersUntil skips frames until a presence list satisfying want arrives.
func readUsersUntil(ctx context.Context, t *testing.T, conn *websocket.Conn, want func([]string) bool) []string {
	t.Helper()

	for {
		out := readOutbound(ctx, t, conn)
		if out.Type != proto.OutboundTypeConnectedUsers {
			continue
		}
		var users []string
		if err := json.Unmarshal(out.Data, &users); err != nil {
			t.Fatalf("unmarshal users: %v", err)
		}
		if want(users) {
			return users
		}
	}
}

// login logs conn in and waits for its own presence broadcast.
func login(ctx context.Context, t *testing.T, conn *websocket.Conn, username string) {
	t.Helper()

	send(ctx, t, conn, proto.InboundTypeLogin, proto.LoginData{Username: username})
	readUsersUntil(ctx, t, conn, func(users []string) bool {
		for _, u := range users {
			if u == username {
				return true
			}
		}
		return false
	})
}
