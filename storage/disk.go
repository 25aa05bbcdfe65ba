package storage

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

var _ contract.IStateStore = (*FileStore)(nil)

// FileStore keeps the state as a JSON file. Writes go to a temporary file in
// the same directory which is then renamed over the document, so a reader
// never observes a half-written state. There is no cross-process lock: the
// last writer wins.
type FileStore struct {
	mu     sync.Mutex
	path   string
	log    *slog.Logger
	loaded lastLoaded
}

func NewFileStore(path string, log *slog.Logger) *FileStore {
	return &FileStore{path: path, log: log}
}

func (f *FileStore) Path() string { return f.path }

// Load never fails: a missing document is a fresh install, an unreadable or
// corrupt one is reported and replaced by the default state.
func (f *FileStore) Load() domain.PersistedState {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			f.log.Warn("State document unreadable, using defaults",
				"error", &errors.PersistenceError{Path: f.path, Err: err})
		}
		f.loaded.forget()
		return domain.NewPersistedState()
	}
	state, err := decodeState(raw)
	if err != nil {
		f.log.Warn("State document corrupt, using defaults",
			"error", &errors.PersistenceError{Path: f.path, Err: err})
		f.loaded.forget()
		return domain.NewPersistedState()
	}
	return f.loaded.remember(state, raw)
}

// Save writes back the bytes of the last loaded document when state is
// unchanged, so documents written by other clients keep their layout.
func (f *FileStore) Save(state domain.PersistedState) error {
	data, err := f.loaded.encode(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err = os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temporary state: %w", err)
	}
	// Removing after a successful rename is a no-op error we ignore.
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync state: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close state: %w", err)
	}
	if err = os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	f.log.Debug("State saved", "path", f.path, "bytes", len(data))
	return nil
}
