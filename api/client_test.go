package api

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func newClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return New(logs.GetLoggerFromLevel(slog.LevelDebug), ts.URL, 0)
}

func TestClient_Login(t *testing.T) {
	req := require.New(t)
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if r.URL.Path != "/login" || body["email"] != "a@b.c" || body["password"] != "secret" {
			writeJSON(w, http.StatusBadRequest, `{"detail":"bad"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"token":"tok","user":{"id":1,"display_name":"Ann"}}`)
	})

	session, err := client.Login(context.Background(), "a@b.c", "secret")

	req.NoError(err)
	req.Equal("tok", session.Token)
	req.JSONEq(`{"id":1,"display_name":"Ann"}`, string(session.User))
}

func TestClient_Login_Forbidden_Means_Verification_Required(t *testing.T) {
	req := require.New(t)
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, `{"detail":"not verified"}`)
	})

	_, err := client.Login(context.Background(), "a@b.c", "secret")

	req.ErrorIs(err, errors.ErrVerificationRequired)
}

func TestClient_Login_Other_Failures(t *testing.T) {
	req := require.New(t)
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"detail":"wrong password"}`)
	})

	_, err := client.Login(context.Background(), "a@b.c", "nope")

	var httpErr *errors.HTTPError
	req.ErrorAs(err, &httpErr)
	req.Equal(http.StatusUnauthorized, httpErr.Status)
	req.Contains(httpErr.Body, "wrong password")
}

func TestClient_Account_Calls(t *testing.T) {
	req := require.New(t)
	var calls []string
	var bodies []map[string]string
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		calls = append(calls, r.Method+" "+r.URL.Path)
		bodies = append(bodies, body)
		writeJSON(w, http.StatusOK, `{"ok":true}`)
	})
	ctx := context.Background()

	req.NoError(client.Register(ctx, "a@b.c", "secret", "Ann"))
	req.NoError(client.RequestVerify(ctx, "a@b.c"))
	req.NoError(client.Verify(ctx, "a@b.c", "123456"))

	req.Equal([]string{"POST /register", "POST /request_verify", "POST /verify"}, calls)
	req.Equal(map[string]string{"email": "a@b.c", "password": "secret", "display_name": "Ann"}, bodies[0])
	req.Equal(map[string]string{"email": "a@b.c"}, bodies[1])
	req.Equal(map[string]string{"email": "a@b.c", "code": "123456"}, bodies[2])
}

func TestClient_MyChats_Keeps_Order(t *testing.T) {
	req := require.New(t)
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/my_chats" || r.URL.Query().Get("token") != "tok" {
			writeJSON(w, http.StatusNotFound, `{}`)
			return
		}
		writeJSON(w, http.StatusOK, `[{"id":42,"title":"General","is_channel":false},{"id":"7","title":"News","is_channel":true}]`)
	})

	chats, err := client.MyChats(context.Background(), "tok")

	req.NoError(err)
	req.Equal([]domain.ChatSummary{
		{ID: "42", Title: "General"},
		{ID: "7", Title: "News", IsChannel: true},
	}, chats)
}

func TestClient_CreateChat_Sends_Form(t *testing.T) {
	req := require.New(t)
	var token, payload string
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		token = r.PostForm.Get("token")
		payload = r.PostForm.Get("payload")
		writeJSON(w, http.StatusOK, `{"id":43}`)
	})

	err := client.CreateChat(context.Background(), "tok", domain.NewChat{Title: "Team", IsChannel: true, MemberIDs: []int64{2, 3}})

	req.NoError(err)
	req.Equal("tok", token)
	req.JSONEq(`{"title":"Team","is_channel":true,"member_ids":[2,3]}`, payload)
}

func TestClient_Upload(t *testing.T) {
	req := require.New(t)
	var filename, content, contentType string
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, `{}`)
			return
		}
		contentType = header.Header.Get("Content-Type")
		defer file.Close()
		data, _ := io.ReadAll(file)
		filename, content = header.Filename, string(data)
		writeJSON(w, http.StatusOK, `{"url":"/media/cat.png"}`)
	})
	path := filepath.Join(t.TempDir(), "cat.png")
	req.NoError(os.WriteFile(path, []byte("not really a png"), 0o600))

	result, err := client.Upload(context.Background(), path)

	req.NoError(err)
	req.Equal("cat.png", filename)
	req.Equal("not really a png", content)
	req.Equal("application/octet-stream", contentType)
	req.Equal(client.base+"/media/cat.png", result.URL)
	// The server did not say, the caller decides
	req.Empty(result.Type)
}

func TestClient_Upload_Keeps_Absolute_URL_And_Type(t *testing.T) {
	req := require.New(t)
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"url":"https://cdn.example/v.mp4","type":"video"}`)
	})
	path := filepath.Join(t.TempDir(), "v.mp4")
	req.NoError(os.WriteFile(path, []byte("x"), 0o600))

	result, err := client.Upload(context.Background(), path)

	req.NoError(err)
	req.Equal(domain.UploadResult{URL: "https://cdn.example/v.mp4", Type: domain.Video}, result)
}

func TestClient_Upload_Missing_File(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("nothing should be sent")
	})

	_, err := client.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.png"))

	require.ErrorIs(t, err, os.ErrNotExist)
}
