package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-relay/internal/config"
	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/proto"
)

func postJSON(t *testing.T, env *testEnv, path, body string) (*http.Response, map[string]string) {
	t.Helper()

	resp, err := env.server.Client().Post(env.server.URL+path, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()

	out := map[string]string{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s response: %v", path, err)
	}
	return resp, out
}

func TestRegisterAndLogin(t *testing.T) {
	env := startTestServer(t, nil)

	resp, body := postJSON(t, env, "/register", `{"username":"alice","password":"secret"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register: expected 200, got %d: %v", resp.StatusCode, body)
	}
	if body["message"] != "User registered successfully" || body["token"] == "" {
		t.Fatalf("unexpected register body: %v", body)
	}

	resp, body = postJSON(t, env, "/register", `{"username":"alice","password":"other"}`)
	if resp.StatusCode != http.StatusConflict || body["error"] != "Username already exists" {
		t.Fatalf("expected 409 conflict, got %d: %v", resp.StatusCode, body)
	}

	resp, body = postJSON(t, env, "/login", `{"username":"alice","password":"secret"}`)
	if resp.StatusCode != http.StatusOK || body["message"] != "Login successful" {
		t.Fatalf("login: expected 200, got %d: %v", resp.StatusCode, body)
	}
	if _, err := env.auth.ValidateToken(body["token"]); err != nil {
		t.Fatalf("login token invalid: %v", err)
	}

	resp, body = postJSON(t, env, "/login", `{"username":"alice","password":"wrong"}`)
	if resp.StatusCode != http.StatusUnauthorized || body["error"] != "Invalid credentials" {
		t.Fatalf("expected 401, got %d: %v", resp.StatusCode, body)
	}

	resp, body = postJSON(t, env, "/login", `{"username":"nobody","password":"secret"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown user, got %d: %v", resp.StatusCode, body)
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	env := startTestServer(t, nil)

	cases := []struct {
		name string
		body string
	}{
		{name: "missing password", body: `{"username":"alice"}`},
		{name: "not json", body: `username=alice`},
		{name: "reserved name", body: `{"username":"System","password":"x"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := postJSON(t, env, "/register", tc.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %v", resp.StatusCode, body)
			}
		})
	}
}

func TestHistoryEndpoint(t *testing.T) {
	env := startTestServer(t, nil)
	ctx := context.Background()
	base := time.Date(2024, 1, 15, 13, 45, 2, 0, time.UTC)

	for i, body := range []string{"one", "two", "three"} {
		if _, err := env.store.AppendMessage(ctx, "alice", body, base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	resp, err := env.server.Client().Get(env.server.URL + "/api/messages?limit=2")
	if err != nil {
		t.Fatalf("history request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}

	var history HistoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	want := []proto.ChatMessage{
		{Sender: "alice", Message: "two", Timestamp: "2024-01-15 13:45:03"},
		{Sender: "alice", Message: "three", Timestamp: "2024-01-15 13:45:04"},
	}
	if len(history.Messages) != len(want) {
		t.Fatalf("expected %d messages, got %+v", len(want), history.Messages)
	}
	for i := range want {
		if history.Messages[i] != want[i] {
			t.Errorf("message %d: expected %+v, got %+v", i, want[i], history.Messages[i])
		}
	}

	bad, err := env.server.Client().Get(env.server.URL + "/api/messages?limit=0")
	if err != nil {
		t.Fatalf("history request: %v", err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for limit=0, got %d", bad.StatusCode)
	}
}

func TestOnlineEndpoint(t *testing.T) {
	env := startTestServer(t, nil)
	env.registry.Put(core.ConnID("a"), "alice")
	env.registry.Put(core.ConnID("b"), "bob")

	resp, err := env.server.Client().Get(env.server.URL + "/api/users/online")
	if err != nil {
		t.Fatalf("online request: %v", err)
	}
	defer resp.Body.Close()

	var online OnlineResponse
	if err := json.NewDecoder(resp.Body).Decode(&online); err != nil {
		t.Fatalf("decode online: %v", err)
	}
	if online.Count != 2 || len(online.Users) != 2 || online.Users[0] != "alice" || online.Users[1] != "bob" {
		t.Fatalf("unexpected online response: %+v", online)
	}
}

func TestAPIRequiresTokenWhenConfigured(t *testing.T) {
	env := startTestServer(t, func(cfg *config.Config) {
		cfg.RequireToken = true
	})

	resp, err := env.server.Client().Get(env.server.URL + "/api/users/online")
	if err != nil {
		t.Fatalf("online request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	token, err := env.auth.Register(context.Background(), "alice", "secret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/api/users/online", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = env.server.Client().Do(req)
	if err != nil {
		t.Fatalf("online request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", resp.StatusCode)
	}
}
