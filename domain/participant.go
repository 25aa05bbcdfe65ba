// Package domain contains core concepts of the messenger.
// This file defines the session held by a client and the state persisted for it.
package domain

import (
	"bytes"
	"encoding/json"
	"maps"
)

// Session is created on successful authentication and lives for the process.
// User is the opaque profile record returned by the API.
type Session struct {
	Token string          `json:"token"`
	User  json.RawMessage `json:"user"`
}

func (s Session) IsZero() bool {
	return s.Token == ""
}

// PersistedState is the whole local document. It is always read and written
// as one unit; there are no partial updates.
//
// Extra holds top-level keys this client does not know. They are written
// back untouched.
type PersistedState struct {
	Token      string                     `json:"token"`
	User       json.RawMessage            `json:"user"`
	Wallpapers map[string]string          `json:"wallpapers"`
	Extra      map[string]json.RawMessage `json:"-"`
}

func NewPersistedState() PersistedState {
	return PersistedState{Wallpapers: make(map[string]string)}
}

func (s PersistedState) Session() Session {
	user := s.User
	if bytes.Equal(bytes.TrimSpace(user), []byte("null")) {
		user = nil
	}
	return Session{Token: s.Token, User: user}
}

func (s PersistedState) WithSession(session Session) PersistedState {
	s.Wallpapers = maps.Clone(s.Wallpapers)
	s.Token = session.Token
	s.User = session.User
	return s
}

func (s PersistedState) WithWallpaper(chatID ChatID, path string) PersistedState {
	walls := maps.Clone(s.Wallpapers)
	if walls == nil {
		walls = make(map[string]string)
	}
	walls[string(chatID)] = path
	s.Wallpapers = walls
	return s
}

func (s PersistedState) Wallpaper(chatID ChatID) string {
	return s.Wallpapers[string(chatID)]
}
