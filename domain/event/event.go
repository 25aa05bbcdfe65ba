// Package event defines what a chat connection reports to the presentation
// context. Every event belongs to exactly one chat.
package event

import (
	"chat-relay/domain"
	"time"
)

type Event interface {
	ChatID() domain.ChatID
}

// MessageReceived is an envelope broadcast by another participant.
type MessageReceived struct {
	Chat     domain.ChatID
	Envelope domain.Envelope
	At       time.Time
}

func (m MessageReceived) ChatID() domain.ChatID { return m.Chat }

// ConnectivityChanged reports a connection state transition.
// Err is set when the transition was caused by a failure.
type ConnectivityChanged struct {
	Chat  domain.ChatID
	State domain.ConnectionState
	Err   error
}

func (c ConnectivityChanged) ChatID() domain.ChatID { return c.Chat }

// SendFailed reports an envelope that could not be transmitted.
type SendFailed struct {
	Chat     domain.ChatID
	Envelope domain.Envelope
	Err      error
}

func (s SendFailed) ChatID() domain.ChatID { return s.Chat }

// ProtocolViolation reports an inbound frame that was not a valid envelope.
type ProtocolViolation struct {
	Chat domain.ChatID
	Err  error
}

func (p ProtocolViolation) ChatID() domain.ChatID { return p.Chat }
