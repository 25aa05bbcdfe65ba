package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ChatID identifies a chat. It is also the relay scope: only participants
// connected with the same ChatID receive each other's broadcasts.
type ChatID string

// LiteScope is the single scope of the minimal relay.
const LiteScope ChatID = ""

func (c ChatID) String() string { return string(c) }

// UnmarshalJSON accepts both string and numeric identifiers.
func (c *ChatID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = ChatID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = ChatID(n.String())
	return nil
}

// ChatSummary is one entry of the chat listing.
type ChatSummary struct {
	ID        ChatID `json:"id"`
	Title     string `json:"title"`
	IsChannel bool   `json:"is_channel"`
}

// NewChat is the payload of a chat creation request.
type NewChat struct {
	Title     string  `json:"title"`
	IsChannel bool    `json:"is_channel"`
	MemberIDs []int64 `json:"member_ids"`
}

// UploadResult is what the upload endpoint answers.
type UploadResult struct {
	URL  string      `json:"url"`
	Type MessageType `json:"type"`
}

// ScopeFromPath extracts the chat identifier from a relay target path
// such as "/ws/42". Any other path maps to the lite scope.
func ScopeFromPath(path string) (ChatID, bool) {
	rest, ok := strings.CutPrefix(path, "/ws/")
	if !ok {
		return LiteScope, false
	}
	rest = strings.Trim(rest, "/")
	if rest == "" || strings.Contains(rest, "/") {
		return LiteScope, false
	}
	return ChatID(rest), true
}
