package domain

import (
	"chat-relay/errors"
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnvelope_RoundTrip(t *testing.T) {
	req := require.New(t)
	raw := []byte(`{"type":"text","content":"hi"}`)

	env, err := DecodeEnvelope(raw)
	req.NoError(err)
	req.Equal(Envelope{Type: Text, Content: "hi"}, env)

	encoded, err := env.Encode()
	req.NoError(err)
	req.JSONEq(string(raw), string(encoded))

	again, err := DecodeEnvelope(encoded)
	req.NoError(err)
	req.Equal(env, again)
}

func TestDecodeEnvelope_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"Not JSON", `hello`},
		{"Array", `[1,2]`},
		{"Null", `null`},
		{"Missing type", `{"content":"hi"}`},
		{"Unknown type", `{"type":"sticker","content":"hi"}`},
		{"Lite payload", `{"user":"bob","text":"hi"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEnvelope([]byte(tt.raw))
			var protocolErr *errors.ProtocolError
			require.True(t, stderrors.As(err, &protocolErr))
		})
	}
}

func TestNewEnvelope(t *testing.T) {
	req := require.New(t)
	for _, mt := range MessageTypes {
		env, err := NewEnvelope(mt, "https://example.org/x")
		req.NoError(err)
		req.Equal(mt, env.Type)
		req.True(mt.IsValid())
	}

	_, err := NewEnvelope("gif", "x")
	req.ErrorIs(err, errors.ErrUnknownMessageType)
}

func TestDecodeLite(t *testing.T) {
	req := require.New(t)

	msg, err := DecodeLite([]byte(`{"user":"alice","text":"hi","extra":1}`))
	req.NoError(err)
	req.JSONEq(`"alice"`, string(msg["user"]))
	req.JSONEq(`1`, string(msg["extra"]))

	// Fields are not typed: any JSON object is a lite frame
	msg, err = DecodeLite([]byte(`{"user":7,"text":["hi"]}`))
	req.NoError(err)
	req.JSONEq(`7`, string(msg["user"]))

	msg, err = DecodeLite([]byte(`{}`))
	req.NoError(err)
	req.Empty(msg)

	_, err = DecodeLite([]byte(`{broken`))
	req.Error(err)

	_, err = DecodeLite([]byte(`null`))
	req.ErrorIs(err, errors.ErrInvalidEnvelope)
}

func TestChatID_UnmarshalJSON(t *testing.T) {
	req := require.New(t)
	var chats []ChatSummary
	err := json.Unmarshal([]byte(`[{"id":42,"title":"general","is_channel":false},{"id":"news","title":"News","is_channel":true}]`), &chats)
	req.NoError(err)
	req.Equal([]ChatSummary{
		{ID: "42", Title: "general"},
		{ID: "news", Title: "News", IsChannel: true},
	}, chats)
}

func TestScopeFromPath(t *testing.T) {
	tests := []struct {
		path  string
		scope ChatID
		ok    bool
	}{
		{"/ws/42", "42", true},
		{"/ws/42/", "42", true},
		{"/ws/", LiteScope, false},
		{"/ws/42/extra", LiteScope, false},
		{"/", LiteScope, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			scope, ok := ScopeFromPath(tt.path)
			require.Equal(t, tt.scope, scope)
			require.Equal(t, tt.ok, ok)
		})
	}
}

func TestPersistedState_WithWallpaper_DoesNotMutateOriginal(t *testing.T) {
	req := require.New(t)
	original := NewPersistedState().WithWallpaper("1", "/tmp/a.png")

	updated := original.WithWallpaper("2", "/tmp/b.png")

	req.Len(original.Wallpapers, 1)
	req.Len(updated.Wallpapers, 2)
	req.Equal("/tmp/b.png", updated.Wallpaper("2"))
	req.Empty(original.Wallpaper("2"))
}

func TestPersistedState_Session(t *testing.T) {
	req := require.New(t)
	state := NewPersistedState().WithSession(Session{Token: "t0k", User: json.RawMessage(`{"id":7}`)})

	session := state.Session()
	req.False(session.IsZero())
	req.JSONEq(`{"id":7}`, string(session.User))

	state.User = json.RawMessage("null")
	req.Nil(state.Session().User)

	req.True(NewPersistedState().Session().IsZero())
}
