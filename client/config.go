package client

import (
	"chat-relay/domain"
	"net/url"
	"time"
)

type Config struct {
	// RelayURL is the websocket base, e.g. ws://127.0.0.1:8000
	RelayURL         string
	PingInterval     time.Duration
	PongTimeout      time.Duration
	WriteTimeout     time.Duration
	HandshakeTimeout time.Duration
	// MaxRetries bounds reconnection attempts after the channel closes.
	// Zero keeps Closed terminal.
	MaxRetries     uint
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func DefaultConfig(relayURL string) Config {
	return Config{
		RelayURL:         relayURL,
		PingInterval:     20 * time.Second,
		PongTimeout:      20 * time.Second,
		WriteTimeout:     10 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		InitialBackoff:   500 * time.Millisecond,
		MaxBackoff:       30 * time.Second,
	}
}

func (c Config) reconnects() bool { return c.MaxRetries > 0 }

// Target builds the connection target {base}/ws/{chat_id}?token=...
func Target(base string, chatID domain.ChatID, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u = u.JoinPath("ws", chatID.String())
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
