package main

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	backendFile   = "file"
	backendBadger = "badger"
)

type Config struct {
	APIBase      string        `envconfig:"API_BASE" default:"http://127.0.0.1:8000"`
	WSBase       string        `envconfig:"WS_BASE" default:"ws://127.0.0.1:8000"`
	StatePath    string        `envconfig:"STATE_PATH" default:"messenger_state.json"`
	StateBackend string        `envconfig:"STATE_BACKEND" default:"file"`
	LogLevel     string        `envconfig:"LOG_LEVEL" default:"WARN"`
	HTTPTimeout  time.Duration `envconfig:"HTTP_TIMEOUT" default:"20s"`
	PingInterval time.Duration `envconfig:"PING_INTERVAL" default:"20s"`
	PongTimeout  time.Duration `envconfig:"PONG_TIMEOUT" default:"20s"`
	// MaxRetries enables reconnection after a lost channel when positive.
	MaxRetries uint `envconfig:"MAX_RETRIES" default:"0"`
	Colours    bool `envconfig:"COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
