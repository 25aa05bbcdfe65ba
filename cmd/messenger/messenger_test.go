package main

import (
	"bytes"
	chaterrors "chat-relay/errors"
	"chat-relay/presentation"
	"chat-relay/relay"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		if body["email"] == "new@example.com" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"detail":"not verified"}`)
			return
		}
		_, _ = io.WriteString(w, `{"token":"tok","user":{"id":1}}`)
	})
	mux.HandleFunc("/my_chats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("token") != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `[{"id":42,"title":"General","is_channel":false},{"id":7,"title":"News","is_channel":true}]`)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func setup(t *testing.T, apiURL, wsURL string) string {
	t.Helper()
	statePath := filepath.Join(t.TempDir(), "state.json")
	t.Setenv("API_BASE", apiURL)
	t.Setenv("WS_BASE", wsURL)
	t.Setenv("STATE_PATH", statePath)
	t.Setenv("STATE_BACKEND", "file")
	t.Setenv("COLOURS", "false")
	t.Setenv("LOG_LEVEL", "ERROR")
	return statePath
}

func execute(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewMessengerCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	err := cmd.Execute()
	return out.String(), err
}

func TestMessenger_Login_Then_Chats(t *testing.T) {
	req := require.New(t)
	api := fakeAPI(t)
	statePath := setup(t, api.URL, "ws://127.0.0.1:1")

	// When logging in
	out, err := execute(t, nil, "login", "--email", "ann@example.com", "--password", "secret")

	// Then the session is stored and chats are listed
	req.NoError(err)
	req.Contains(out, "Logged in")
	req.Contains(out, "General")
	raw, err := os.ReadFile(statePath)
	req.NoError(err)
	req.Contains(string(raw), `"token": "tok"`)

	// And a later run reuses the stored session
	out, err = execute(t, nil, "chats")
	req.NoError(err)
	req.Contains(out, "News")
	req.Contains(out, "channel")

	// And logout forgets it
	_, err = execute(t, nil, "logout")
	req.NoError(err)
	_, err = execute(t, nil, "chats")
	req.ErrorContains(err, "no active session")
}

func TestMessenger_Login_Unverified(t *testing.T) {
	api := fakeAPI(t)
	setup(t, api.URL, "ws://127.0.0.1:1")

	_, err := execute(t, nil, "login", "--email", "new@example.com", "--password", "secret")

	require.ErrorContains(t, err, "verification required")
}

func TestMessenger_Open_Sends_To_Chat(t *testing.T) {
	req := require.New(t)
	api := fakeAPI(t)
	registry := relay.NewRegistry()
	server := relay.NewServer(logs.GetLoggerFromLevel(slog.LevelError), registry, relay.DefaultConfig())
	ws := httptest.NewServer(server)
	t.Cleanup(func() {
		server.CloseAll()
		ws.Close()
	})
	wsURL := "ws" + strings.TrimPrefix(ws.URL, "http")
	setup(t, api.URL, wsURL)
	_, err := execute(t, nil, "login", "--email", "ann@example.com", "--password", "secret")
	req.NoError(err)

	// Given B already sits in chat 42
	b, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws/42?token=tokenB", nil)
	req.NoError(err)
	defer b.Close()
	req.Eventually(func() bool { return registry.Len("42") == 1 }, 2*time.Second, 10*time.Millisecond)

	// When A opens chat 42 and types a line
	stdin, typing := io.Pipe()
	go func() {
		defer typing.Close()
		req.Eventually(func() bool { return registry.Len("42") == 2 }, 2*time.Second, 10*time.Millisecond)
		// The relay may register A just before A sees its handshake complete.
		time.Sleep(100 * time.Millisecond)
		_, _ = io.WriteString(typing, "hello from the terminal\n")
		_ = b.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, got, err := b.ReadMessage()
		req.NoError(err)
		req.JSONEq(`{"type":"text","content":"hello from the terminal"}`, string(got))

		// And B answers
		req.NoError(b.WriteMessage(websocket.TextMessage, []byte(`{"type":"text","content":"hi A"}`)))
		time.Sleep(200 * time.Millisecond)
		_, _ = io.WriteString(typing, "/quit\n")
	}()
	out, err := execute(t, stdin, "open", "42", "--title", "General")

	// Then A saw B's answer, and left the chat
	req.NoError(err)
	req.Contains(out, "chat 42")
	req.Contains(out, "hi A")
	req.Eventually(func() bool { return registry.Len("42") == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestRenderer_Chats_Without_Colours(t *testing.T) {
	var out bytes.Buffer
	r := renderer{out: &out}

	r.Chats(nil)
	r.Change(presentation.Change{Kind: presentation.Failure, Err: io.ErrUnexpectedEOF})

	require.Contains(t, out.String(), "ID")
	require.Contains(t, out.String(), "✗ unexpected EOF")
}

func TestAlreadyShown(t *testing.T) {
	req := require.New(t)

	// Send and upload failures reach the screen on their own
	req.True(alreadyShown(&chaterrors.TransportError{Op: "send", ChatID: "42", Err: io.ErrClosedPipe}))
	req.True(alreadyShown(fmt.Errorf("%w: %w", chaterrors.ErrUploadFailed, io.ErrUnexpectedEOF)))

	// Anything else is reported by the conversation
	req.False(alreadyShown(chaterrors.ErrNotOpen))
	req.False(alreadyShown(chaterrors.ErrNotAnImage))
}
