// Package client owns the client side of relay channels: one Manager per
// open chat, each running its own receive loop and reporting everything it
// sees to the dispatcher. A Manager never touches presentation state.
package client

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
)

var (
	_ contract.IConnection = (*Manager)(nil)
	_ contract.Worker      = (*Manager)(nil)
)

// Manager is the lifecycle of one chat channel:
// Disconnected -> Connecting -> Open -> Closed.
// With a reconnect policy, Closed goes back to Connecting with exponential
// backoff until MaxRetries is exhausted.
type Manager struct {
	mu         sync.RWMutex
	writeMu    sync.Mutex
	chatID     domain.ChatID
	token      string
	config     Config
	log        *slog.Logger
	dispatcher contract.IDispatcher
	dialer     *websocket.Dialer
	state      domain.ConnectionState
	conn       *websocket.Conn
	stopped    chan struct{}
	stopOnce   sync.Once
	done       chan struct{}
	doneOnce   sync.Once
}

func NewManager(log *slog.Logger, dispatcher contract.IDispatcher, config Config,
	chatID domain.ChatID, token string) *Manager {
	return &Manager{
		chatID:     chatID,
		token:      token,
		config:     config,
		log:        log.With("chat_id", chatID.String()),
		dispatcher: dispatcher,
		dialer:     &websocket.Dialer{HandshakeTimeout: config.HandshakeTimeout, Proxy: http.ProxyFromEnvironment},
		state:      domain.Disconnected,
		stopped:    make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (m *Manager) ChatID() domain.ChatID { return m.chatID }

func (m *Manager) State() domain.ConnectionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Done is closed once the manager reached its terminal Closed state.
func (m *Manager) Done() <-chan struct{} { return m.done }

// Stop is the explicit cancellation issued when the chat screen is
// abandoned. It is idempotent and may be called before Run.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopped) })
}

// Run drives the whole lifecycle and returns once the channel is closed for
// good, either because Stop was called, ctx was canceled, or the channel
// failed and no reconnection is left.
func (m *Manager) Run(ctx context.Context) error {
	if m.isDone() {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-m.stopped:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		conn, err := m.connectWithPolicy(ctx)
		if err != nil {
			m.terminate(ctx, err)
			return nil
		}
		err = m.receive(ctx, conn)
		if ctx.Err() != nil || !m.config.reconnects() {
			m.terminate(ctx, err)
			return nil
		}
		m.log.Info("Channel lost, reconnecting", "error", err)
		m.setState(domain.Closed, err)
	}
}

func (m *Manager) connectWithPolicy(ctx context.Context) (*websocket.Conn, error) {
	if !m.config.reconnects() {
		return m.connect(ctx)
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = m.config.InitialBackoff
	policy.MaxInterval = m.config.MaxBackoff
	return backoff.Retry(ctx, func() (*websocket.Conn, error) {
		return m.connect(ctx)
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(m.config.MaxRetries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			m.log.Debug("Connection attempt failed", "error", err, "retry_in", wait)
		}))
}

func (m *Manager) connect(ctx context.Context) (*websocket.Conn, error) {
	m.setState(domain.Connecting, nil)
	target, err := Target(m.config.RelayURL, m.chatID, m.token)
	if err != nil {
		return nil, backoff.Permanent(&errors.TransportError{Op: "connect", ChatID: m.chatID.String(), Err: err})
	}
	conn, resp, err := m.dialer.DialContext(ctx, target, nil)
	if err != nil {
		transportErr := &errors.TransportError{Op: "connect", ChatID: m.chatID.String(), Err: err}
		// A refused handshake won't succeed by retrying.
		if resp != nil && resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, backoff.Permanent(transportErr)
		}
		return nil, transportErr
	}

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()
	m.setState(domain.Open, nil)
	return conn, nil
}

// receive blocks on the channel until it closes. Each frame is decoded and
// handed to the dispatcher in arrival order.
func (m *Manager) receive(ctx context.Context, conn *websocket.Conn) error {
	stopClose := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(m.config.WriteTimeout))
		_ = conn.Close()
	})
	defer stopClose()
	defer func() {
		m.mu.Lock()
		m.conn = nil
		m.mu.Unlock()
		_ = conn.Close()
	}()

	liveness := m.config.PingInterval + m.config.PongTimeout
	extend := func() { _ = conn.SetReadDeadline(time.Now().Add(liveness)) }
	extend()
	conn.SetPongHandler(func(string) error {
		extend()
		return nil
	})

	heartbeatDone := make(chan struct{})
	defer close(heartbeatDone)
	go m.heartbeat(conn, heartbeatDone)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return &errors.TransportError{Op: "receive", ChatID: m.chatID.String(), Err: err}
		}
		extend()
		env, err := domain.DecodeEnvelope(raw)
		if err != nil {
			m.log.Debug("Ignoring malformed frame", "error", err)
			m.dispatch(event.ProtocolViolation{Chat: m.chatID, Err: err})
			continue
		}
		m.dispatch(event.MessageReceived{Chat: m.chatID, Envelope: env, At: time.Now().UTC()})
	}
}

// heartbeat pings at a fixed interval. A missing pong lets the read deadline
// expire, which ends receive.
func (m *Manager) heartbeat(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(m.config.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(m.config.WriteTimeout))
			if err != nil {
				m.log.Debug("Ping failed", "error", err)
				return
			}
		}
	}
}

// Send transmits an envelope. It is only valid while Open. A transmission
// failure is returned and also reported to the dispatcher; it is not retried.
func (m *Manager) Send(t domain.MessageType, content string) error {
	env, err := domain.NewEnvelope(t, content)
	if err != nil {
		return err
	}
	payload, err := env.Encode()
	if err != nil {
		return err
	}

	m.mu.RLock()
	conn, state := m.conn, m.state
	m.mu.RUnlock()
	if state != domain.Open || conn == nil {
		return errors.ErrNotOpen
	}

	m.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(m.config.WriteTimeout))
	err = conn.WriteMessage(websocket.TextMessage, payload)
	m.writeMu.Unlock()
	if err != nil {
		sendErr := &errors.TransportError{Op: "send", ChatID: m.chatID.String(), Err: err}
		m.dispatch(event.SendFailed{Chat: m.chatID, Envelope: env, Err: sendErr})
		return sendErr
	}
	return nil
}

func (m *Manager) setState(state domain.ConnectionState, cause error) {
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
	m.log.Debug("Connection state changed", "state", state.String(), "error", cause)
	m.dispatch(event.ConnectivityChanged{Chat: m.chatID, State: state, Err: cause})
}

// terminate moves to Closed for good. A cause due to our own cancellation
// is not a failure.
func (m *Manager) terminate(ctx context.Context, cause error) {
	if ctx.Err() != nil {
		cause = nil
	}
	m.setState(domain.Closed, cause)
	m.doneOnce.Do(func() { close(m.done) })
}

func (m *Manager) isDone() bool {
	select {
	case <-m.done:
		return true
	default:
		return false
	}
}

func (m *Manager) dispatch(evt event.Event) {
	if err := m.dispatcher.Dispatch(evt); err != nil {
		m.log.Debug("Event not dispatched", "error", err)
	}
}
