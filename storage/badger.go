package storage

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

var _ contract.IStateStore = (*BadgerStore)(nil)

const stateKey = "state:document"

// BadgerStore keeps the whole document under a single key, so each Save is
// one transaction and replaces the previous state atomically.
type BadgerStore struct {
	db     *badger.DB
	log    *slog.Logger
	loaded lastLoaded
}

func NewBadgerStore(db *badger.DB, log *slog.Logger) *BadgerStore {
	return &BadgerStore{db: db, log: log}
}

func (b *BadgerStore) Load() domain.PersistedState {
	raw, err := b.read()
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		b.loaded.forget()
		return domain.NewPersistedState()
	}
	if err != nil {
		b.log.Warn("State document unreadable, using defaults",
			"error", &errors.PersistenceError{Path: stateKey, Err: err})
		b.loaded.forget()
		return domain.NewPersistedState()
	}
	state, err := decodeState(raw)
	if err != nil {
		b.log.Warn("State document corrupt, using defaults",
			"error", &errors.PersistenceError{Path: stateKey, Err: err})
		b.loaded.forget()
		return domain.NewPersistedState()
	}
	return b.loaded.remember(state, raw)
}

func (b *BadgerStore) Save(state domain.PersistedState) error {
	data, err := b.loaded.encode(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(stateKey), data)
	})
}

func (b *BadgerStore) read() ([]byte, error) {
	var raw []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(stateKey))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	return raw, err
}
