package dispatcher

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/mocks"
	"chat-relay/presentation"
	"chat-relay/runtime/workers"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func message(chat domain.ChatID, content string) event.MessageReceived {
	return event.MessageReceived{Chat: chat, Envelope: domain.Envelope{Type: domain.Text, Content: content}}
}

// runNow is a scheduler executing each task on the pump goroutine.
func runNow(task func()) error {
	task()
	return nil
}

func TestDispatcher_Preserves_Order(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	scheduler := mocks.NewMockScheduler(ctrl)
	applier := mocks.NewMockEventApplier(ctrl)
	d := New(logs.GetLoggerFromLevel(slog.LevelDebug), scheduler, applier)

	var mu sync.Mutex
	var applied []string
	scheduler.EXPECT().Post(gomock.Any()).DoAndReturn(runNow).Times(100)
	applier.EXPECT().Apply(gomock.Any()).Do(func(evt event.Event) {
		mu.Lock()
		defer mu.Unlock()
		applied = append(applied, evt.(event.MessageReceived).Envelope.Content)
	}).Times(100)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	// When 100 events are dispatched
	var expected []string
	for i := 0; i < 100; i++ {
		content := fmt.Sprintf("m%d", i)
		expected = append(expected, content)
		req.NoError(d.Dispatch(message("42", content)))
	}

	// Then they are applied in the same order
	req.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(applied) == 100
	}, 2*time.Second, 10*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	req.Equal(expected, applied)
}

func TestDispatcher_Never_Blocks_Producer(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	scheduler := mocks.NewMockScheduler(ctrl)
	applier := mocks.NewMockEventApplier(ctrl)
	d := New(logs.GetLoggerFromLevel(slog.LevelDebug), scheduler, applier)

	// Given a presentation context that is stuck
	release := make(chan struct{})
	scheduler.EXPECT().Post(gomock.Any()).DoAndReturn(func(task func()) error {
		<-release
		task()
		return nil
	}).AnyTimes()
	applier.EXPECT().Apply(gomock.Any()).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = d.Run(ctx)
	}()
	defer func() {
		cancel()
		close(release)
		<-stopped
	}()
	req.NoError(d.Dispatch(message("42", "first")))
	req.Eventually(func() bool { return d.Pending() == 0 }, time.Second, 5*time.Millisecond)

	// When a receive loop dispatches many events
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10_000; i++ {
			_ = d.Dispatch(message("42", "x"))
		}
	}()

	// Then every Dispatch returned anyway, and the events wait in the queue
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch blocked on the presentation context")
	}
	req.Equal(10_000, d.Pending())
}

func TestDispatcher_Closed_After_Run(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	d := New(logs.GetLoggerFromLevel(slog.LevelDebug), mocks.NewMockScheduler(ctrl), mocks.NewMockEventApplier(ctrl))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req.NoError(d.Run(ctx))

	req.ErrorIs(d.Dispatch(message("42", "late")), errors.ErrDispatcherClosed)
	req.Equal(0, d.Pending())
}

func TestDispatcher_Keeps_Pumping_When_Scheduler_Fails(t *testing.T) {
	ctrl := gomock.NewController(t)
	scheduler := mocks.NewMockScheduler(ctrl)
	applier := mocks.NewMockEventApplier(ctrl)
	d := New(logs.GetLoggerFromLevel(slog.LevelDebug), scheduler, applier)

	applied := make(chan event.Event, 1)
	gomock.InOrder(
		scheduler.EXPECT().Post(gomock.Any()).Return(errors.ErrLoopClosed),
		scheduler.EXPECT().Post(gomock.Any()).DoAndReturn(runNow),
	)
	applier.EXPECT().Apply(gomock.Any()).Do(func(evt event.Event) { applied <- evt })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	require.NoError(t, d.Dispatch(message("42", "lost")))
	require.Eventually(t, func() bool { return d.Pending() == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, d.Dispatch(message("42", "kept")))

	select {
	case evt := <-applied:
		require.Equal(t, "kept", evt.(event.MessageReceived).Envelope.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("second event never applied")
	}
}

func TestDispatcher_Restarted_After_Panic_Still_Accepts(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	scheduler := mocks.NewMockScheduler(ctrl)
	applier := mocks.NewMockEventApplier(ctrl)
	d := New(log, scheduler, applier)

	// Given the first schedule panics
	applied := make(chan event.Event, 1)
	gomock.InOrder(
		scheduler.EXPECT().Post(gomock.Any()).Do(func(func()) { panic("presentation crashed") }),
		scheduler.EXPECT().Post(gomock.Any()).DoAndReturn(runNow),
	)
	applier.EXPECT().Apply(gomock.Any()).Do(func(evt event.Event) { applied <- evt })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sup := workers.NewSupervisor(log, 10*time.Millisecond)
	sup.Add(d)
	go sup.Run(ctx)

	require.NoError(t, d.Dispatch(message("42", "lost")))
	require.Eventually(t, func() bool { return d.Pending() == 0 }, time.Second, 5*time.Millisecond)

	// When the supervisor restarts the pump, dispatching still works
	require.NoError(t, d.Dispatch(message("42", "kept")))

	select {
	case evt := <-applied:
		require.Equal(t, "kept", evt.(event.MessageReceived).Envelope.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("event never applied after restart")
	}
}

func TestDispatcher_Into_Presentation_Loop(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	loop := presentation.NewLoop(16)
	view := presentation.NewChatView(log, nil)
	d := New(log, loop, view)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()
	go func() { _ = d.Run(ctx) }()
	req.NoError(loop.Call(func() { view.Reset("42", "General", "") }))

	// When events of the open chat and of another chat arrive
	req.NoError(d.Dispatch(message("42", "hello")))
	req.NoError(d.Dispatch(message("7", "elsewhere")))
	req.NoError(d.Dispatch(event.ConnectivityChanged{Chat: "42", State: domain.Open}))
	req.NoError(d.Dispatch(message("42", "world")))

	// Then only chat 42 content is visible, in order
	req.Eventually(func() bool {
		var n int
		_ = loop.Call(func() { n = len(view.Messages()) })
		return n == 2
	}, 2*time.Second, 10*time.Millisecond)
	var contents []string
	var state domain.ConnectionState
	req.NoError(loop.Call(func() {
		contents = view.Contents(domain.Text)
		state = view.State()
	}))
	req.Equal([]string{"hello", "world"}, contents)
	req.Equal(domain.Open, state)
}
