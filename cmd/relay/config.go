package main

import (
	"chat-relay/relay"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Host                 string        `env:"HOST,default=0.0.0.0"`
	Port                 int           `env:"PORT,default=8000" validate:"min=1,max=65535"`
	HealthPort           int           `env:"HEALTH_PORT,default=8001" validate:"min=1,max=65535,nefield=Port"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64" validate:"min=1"`
	DeliveryTimeout      time.Duration `env:"DELIVERY_TIMEOUT,default=2s" validate:"gt=0"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=10s" validate:"gt=0"`
	IdleTimeout          time.Duration `env:"IDLE_TIMEOUT,default=60s" validate:"gt=0"`
	ReadLimit            int64         `env:"READ_LIMIT,default=1048576" validate:"min=1"`
	EnableLite           bool          `env:"ENABLE_LITE,default=true"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`
	StatsInterval        time.Duration `env:"STATS_INTERVAL,default=30s" validate:"gt=0"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s" validate:"gt=0"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR"`
}

func loadConfig() (Config, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := validator.New().Struct(config); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) HealthAddress() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.HealthPort))
}

func (c Config) Relay() relay.Config {
	return relay.Config{
		ConnectionBufferSize: c.ConnectionBufferSize,
		DeliveryTimeout:      c.DeliveryTimeout,
		WriteTimeout:         c.WriteTimeout,
		IdleTimeout:          c.IdleTimeout,
		ReadLimit:            c.ReadLimit,
		EnableLite:           c.EnableLite,
	}
}
