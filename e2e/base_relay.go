package e2e

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
)

type BaseRelaySuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseRelaySuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.RelayAddr == "" {
		s.T().Skip("RELAY_ADDR not set, no relay to test against")
	}
}

func (s *BaseRelaySuite) header(t *testing.T, name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)
}

// Join opens a participant channel on chat, closed with the test.
func (s *BaseRelaySuite) Join(name, chat string) *websocket.Conn {
	t := s.T()
	s.header(t, fmt.Sprintf("%s joins chat %s", name, chat))
	url := fmt.Sprintf("ws://%s/ws/%s?token=%s", s.Config.RelayAddr, chat, name)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err, "Failed to join "+url)
	t.Cleanup(func() { _ = conn.Close() })
	// Registration happens right after the handshake on the relay side.
	time.Sleep(50 * time.Millisecond)
	return conn
}

func (s *BaseRelaySuite) Receive(conn *websocket.Conn, timeout time.Duration) ([]byte, error) {
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	_, payload, err := conn.ReadMessage()
	return payload, err
}

// WithHealth provides a gRPC health client within a contextual test step
func (s *BaseRelaySuite) WithHealth(name string, fn func(ctx context.Context, client grpc_health_v1.HealthClient)) {
	if s.Config.HealthAddr == "" {
		s.T().Skip("HEALTH_ADDR not set")
	}
	s.header(s.T(), name)
	conn, err := grpc.NewClient(s.Config.HealthAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	s.Require().NoError(err, "Failed to connect to gRPC server at "+s.Config.HealthAddr)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	fn(ctx, grpc_health_v1.NewHealthClient(conn))
}
