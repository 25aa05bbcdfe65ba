package client

import (
	"chat-relay/domain"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestConnections_One_Live_Connection_Per_Chat(t *testing.T) {
	req := require.New(t)
	_, registry, base := startRelay(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	connections := NewConnections(ctx, logs.GetLoggerFromLevel(slog.LevelDebug), newRecorder(), testConfig(base))
	defer connections.CloseAll()

	// When the same chat is opened twice
	first := connections.Open("42", "token")
	second := connections.Open("42", "token")

	// Then a single connection exists
	req.Same(first, second)
	req.Equal(1, connections.Len())
	req.Eventually(func() bool { return first.State() == domain.Open }, 2*time.Second, 10*time.Millisecond)
	req.Eventually(func() bool { return registry.Len("42") == 1 }, 2*time.Second, 10*time.Millisecond)

	// And another chat gets its own
	other := connections.Open("7", "token")
	req.NotSame(first, other)
	req.Equal(2, connections.Len())
}

func TestConnections_Close_Then_Reopen(t *testing.T) {
	req := require.New(t)
	_, registry, base := startRelay(t)
	connections := NewConnections(context.Background(), logs.GetLoggerFromLevel(slog.LevelDebug), newRecorder(), testConfig(base))
	defer connections.CloseAll()

	first := connections.Open("42", "token")
	req.Eventually(func() bool { return registry.Len("42") == 1 }, 2*time.Second, 10*time.Millisecond)

	// When the chat is closed
	connections.Close("42")

	// Then its loop ends and it is forgotten
	select {
	case <-first.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("connection did not stop")
	}
	_, ok := connections.Get("42")
	req.False(ok)

	// And opening again starts a fresh connection
	second := connections.Open("42", "token")
	req.NotSame(first, second)
	got, ok := connections.Get("42")
	req.True(ok)
	req.Same(second, got)
}

func TestConnections_Forgets_Failed_Connection(t *testing.T) {
	req := require.New(t)
	connections := NewConnections(context.Background(), logs.GetLoggerFromLevel(slog.LevelDebug), newRecorder(), testConfig("ws://127.0.0.1:1"))

	conn := connections.Open("42", "")
	<-conn.Done()

	req.Eventually(func() bool { return connections.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
	connections.CloseAll()
}

func TestConnections_CloseAll_Waits(t *testing.T) {
	req := require.New(t)
	_, registry, base := startRelay(t)
	connections := NewConnections(context.Background(), logs.GetLoggerFromLevel(slog.LevelDebug), newRecorder(), testConfig(base))

	a := connections.Open("1", "")
	b := connections.Open("2", "")
	req.Eventually(func() bool { return registry.Len("1") == 1 && registry.Len("2") == 1 }, 2*time.Second, 10*time.Millisecond)

	connections.CloseAll()

	for _, conn := range []interface{ Done() <-chan struct{} }{a, b} {
		select {
		case <-conn.Done():
		default:
			t.Fatal("CloseAll returned before every loop ended")
		}
	}
	req.Equal(0, connections.Len())
}
