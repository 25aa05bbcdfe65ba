// Package domain contains core concepts of the messenger.
// This file defines the message envelope exchanged over a relay channel.
// Envelopes are immutable and validated on decode.
package domain

import (
	"chat-relay/errors"
	"encoding/json"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type MessageType string

const (
	Text  MessageType = "text"
	Image MessageType = "image"
	Video MessageType = "video"
	File  MessageType = "file"
)

// MessageTypes lists every type accepted on the wire.
var MessageTypes = []MessageType{Text, Image, Video, File}

func (t MessageType) IsValid() bool {
	switch t {
	case Text, Image, Video, File:
		return true
	}
	return false
}

// Envelope is the payload exchanged in both directions on a chat channel.
// Sender and chat are implicit: they belong to the connection carrying it.
type Envelope struct {
	Type    MessageType `json:"type" validate:"required,oneof=text image video file"`
	Content string      `json:"content"`
}

func NewEnvelope(t MessageType, content string) (Envelope, error) {
	env := Envelope{Type: t, Content: content}
	if err := env.Validate(); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

func (e Envelope) Validate() error {
	if err := validate.Struct(e); err != nil {
		return errors.ErrUnknownMessageType
	}
	return nil
}

func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEnvelope parses a raw frame. Anything that is not a JSON object
// carrying a known type is a ProtocolError.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, &errors.ProtocolError{Payload: raw, Err: errors.ErrInvalidEnvelope}
	}
	if err := env.Validate(); err != nil {
		return Envelope{}, &errors.ProtocolError{Payload: raw, Err: err}
	}
	return env, nil
}
