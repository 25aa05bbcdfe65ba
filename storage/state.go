// Package storage is the local home of the client session and wallpaper
// preferences. The state is one document: it is always loaded and saved whole.
package storage

import (
	"bytes"
	"chat-relay/contract"
	"chat-relay/domain"
	"encoding/json"
	"maps"
	"sync"
)

const (
	tokenKey      = "token"
	userKey       = "user"
	wallpapersKey = "wallpapers"
)

var jsonNull = json.RawMessage("null")

// encodeState produces a deterministic document: keys are sorted by
// encoding/json and the user record is re-indented from its raw form.
// The user key is always present, null when there is no session.
func encodeState(state domain.PersistedState) ([]byte, error) {
	doc := make(map[string]any, len(state.Extra)+3)
	for key, value := range state.Extra {
		doc[key] = value
	}
	user := state.User
	if len(bytes.TrimSpace(user)) == 0 {
		user = jsonNull
	}
	walls := state.Wallpapers
	if walls == nil {
		walls = make(map[string]string)
	}
	doc[tokenKey] = state.Token
	doc[userKey] = user
	doc[wallpapersKey] = walls

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func decodeState(raw []byte) (domain.PersistedState, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.NewPersistedState(), err
	}
	state := domain.NewPersistedState()
	if value, ok := doc[tokenKey]; ok {
		if err := json.Unmarshal(value, &state.Token); err != nil {
			return domain.NewPersistedState(), err
		}
	}
	if value, ok := doc[wallpapersKey]; ok {
		if err := json.Unmarshal(value, &state.Wallpapers); err != nil {
			return domain.NewPersistedState(), err
		}
	}
	if state.Wallpapers == nil {
		state.Wallpapers = make(map[string]string)
	}
	if value, ok := doc[userKey]; ok && !bytes.Equal(bytes.TrimSpace(value), jsonNull) {
		state.User = value
	}
	delete(doc, tokenKey)
	delete(doc, userKey)
	delete(doc, wallpapersKey)
	if len(doc) > 0 {
		state.Extra = doc
	}
	return state, nil
}

// lastLoaded remembers the document read by the previous Load. Saving a state
// equal to it writes the original bytes back, whoever produced them.
type lastLoaded struct {
	mu    sync.Mutex
	state domain.PersistedState
	raw   []byte
}

func (l *lastLoaded) remember(state domain.PersistedState, raw []byte) domain.PersistedState {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = state
	l.raw = raw
	// Callers get their own maps so the remembered state cannot drift.
	state.Wallpapers = maps.Clone(state.Wallpapers)
	state.Extra = maps.Clone(state.Extra)
	return state
}

func (l *lastLoaded) forget() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = domain.PersistedState{}
	l.raw = nil
}

func (l *lastLoaded) encode(state domain.PersistedState) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.raw != nil && sameState(l.state, state) {
		return l.raw, nil
	}
	return encodeState(state)
}

func sameState(a, b domain.PersistedState) bool {
	return a.Token == b.Token &&
		bytes.Equal(a.User, b.User) &&
		maps.Equal(a.Wallpapers, b.Wallpapers) &&
		maps.EqualFunc(a.Extra, b.Extra, func(x, y json.RawMessage) bool { return bytes.Equal(x, y) })
}

// SetSession stores the session, keeping the wallpapers untouched.
func SetSession(store contract.IStateStore, session domain.Session) error {
	return store.Save(store.Load().WithSession(session))
}

// ClearSession forgets token and user on logout. The user key stays in the
// document as null.
func ClearSession(store contract.IStateStore) error {
	return store.Save(store.Load().WithSession(domain.Session{}))
}

func SetWallpaper(store contract.IStateStore, chatID domain.ChatID, path string) error {
	return store.Save(store.Load().WithWallpaper(chatID, path))
}
