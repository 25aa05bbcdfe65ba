package storage

import (
	"chat-relay/domain"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newBadgerStore(t *testing.T) *BadgerStore {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.WARNING))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewBadgerStore(db, logs.GetLoggerFromLevel(slog.LevelDebug))
}

func TestBadgerStore_Load_Missing_Returns_Default(t *testing.T) {
	req := require.New(t)
	store := newBadgerStore(t)

	req.Equal(domain.NewPersistedState(), store.Load())
}

func TestBadgerStore_Load_Corrupt_Returns_Default(t *testing.T) {
	req := require.New(t)
	store := newBadgerStore(t)

	// Given a corrupt document under the state key
	req.NoError(store.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(stateKey), []byte("{not json"))
	}))

	req.Equal(domain.NewPersistedState(), store.Load())
}

func TestBadgerStore_Save_Load_Idempotent(t *testing.T) {
	req := require.New(t)
	store := newBadgerStore(t)
	state := domain.NewPersistedState().
		WithSession(domain.Session{Token: "tok", User: json.RawMessage(`{"id":3}`)}).
		WithWallpaper("42", "/sea.png")

	req.NoError(store.Save(state))
	original, err := store.read()
	req.NoError(err)

	req.NoError(store.Save(store.Load()))
	again, err := store.read()
	req.NoError(err)

	req.Equal(original, again)
	req.Equal("/sea.png", store.Load().Wallpaper("42"))
}

func TestBadgerStore_Foreign_Document_Round_Trip(t *testing.T) {
	req := require.New(t)
	store := newBadgerStore(t)

	// Given a compact document with an unknown key
	foreign := []byte(`{"token":"abc","user":null,"wallpapers":{},"theme":"dark"}`)
	req.NoError(store.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(stateKey), foreign)
	}))

	req.NoError(store.Save(store.Load()))
	again, err := store.read()
	req.NoError(err)
	req.Equal(foreign, again)

	// And a modified state keeps the unknown key
	req.NoError(SetSession(store, domain.Session{Token: "new"}))
	again, err = store.read()
	req.NoError(err)
	req.JSONEq(`{"token":"new","user":null,"wallpapers":{},"theme":"dark"}`, string(again))
}
