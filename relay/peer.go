package relay

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var _ contract.Peer = (*Peer)(nil)

// Peer is one websocket channel. Payloads are queued in a bounded FIFO and
// written by a single goroutine (writeLoop), which is the only writer of data
// frames on the connection.
type Peer struct {
	id              string
	scope           domain.ChatID
	conn            *websocket.Conn
	log             *slog.Logger
	outbound        chan []byte
	done            chan struct{}
	closeOnce       sync.Once
	deliveryTimeout time.Duration
	writeTimeout    time.Duration
}

func NewPeer(conn *websocket.Conn, scope domain.ChatID, log *slog.Logger,
	bufferSize int, deliveryTimeout, writeTimeout time.Duration) *Peer {
	id := uuid.NewString()
	return &Peer{
		id:              id,
		scope:           scope,
		conn:            conn,
		log:             log.With("peer_id", id, "chat_id", scope.String()),
		outbound:        make(chan []byte, bufferSize),
		done:            make(chan struct{}),
		deliveryTimeout: deliveryTimeout,
		writeTimeout:    writeTimeout,
	}
}

func (p *Peer) ID() string { return p.id }

func (p *Peer) Scope() domain.ChatID { return p.scope }

// Deliver enqueues a payload. A peer whose queue stays full for longer than
// the delivery timeout is considered broken.
func (p *Peer) Deliver(payload []byte) error {
	select {
	case <-p.done:
		return errors.ErrPeerClosed
	default:
	}

	timer := time.NewTimer(p.deliveryTimeout)
	defer timer.Stop()

	select {
	case p.outbound <- payload:
		return nil
	case <-p.done:
		return errors.ErrPeerClosed
	case <-timer.C:
		return errors.ErrDeliveryTimeout
	}
}

// writeLoop drains the queue until the peer is closed or a write fails.
// A failed write closes the peer, which makes the read loop exit and the
// server unregister it.
func (p *Peer) writeLoop() {
	for {
		select {
		case <-p.done:
			return
		case payload := <-p.outbound:
			_ = p.conn.SetWriteDeadline(time.Now().Add(p.writeTimeout))
			if err := p.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				p.log.Debug("Write failed, closing peer", "error", err)
				_ = p.Close()
				return
			}
		}
	}
}

// pong answers a keep-alive ping. Control frames may be written concurrently
// with writeLoop.
func (p *Peer) pong(data string) error {
	err := p.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(p.writeTimeout))
	if err == websocket.ErrCloseSent {
		return nil
	}
	return err
}

func (p *Peer) Close() error {
	return p.closeWith(websocket.CloseNormalClosure, "")
}

func (p *Peer) closeWith(code int, reason string) error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		_ = p.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason),
			time.Now().Add(p.writeTimeout))
		err = p.conn.Close()
	})
	return err
}
