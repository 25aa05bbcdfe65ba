package domain

import (
	"bytes"
	"chat-relay/errors"
	"encoding/json"
)

// LiteMessage is the payload of the minimal relay: one global scope, any JSON
// object. Clients usually send {"user": ..., "text": ...} but no field is
// required or typed.
type LiteMessage map[string]json.RawMessage

// DecodeLite only checks that the frame is a JSON object.
// The relay forwards the raw bytes, so unknown fields survive.
func DecodeLite(raw []byte) (LiteMessage, error) {
	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		return nil, &errors.ProtocolError{Payload: raw, Err: errors.ErrInvalidEnvelope}
	}
	var msg LiteMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, &errors.ProtocolError{Payload: raw, Err: errors.ErrInvalidEnvelope}
	}
	return msg, nil
}
