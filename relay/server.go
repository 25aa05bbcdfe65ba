// Package relay fans each event received on a chat channel out to every
// other participant of the same chat. It keeps no history: a participant
// absent at broadcast time misses the event.
package relay

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

type Config struct {
	ConnectionBufferSize int
	DeliveryTimeout      time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	ReadLimit            int64
	// EnableLite serves the minimal relay on "/": one global scope,
	// any JSON object accepted and forwarded raw.
	EnableLite bool
}

func DefaultConfig() Config {
	return Config{
		ConnectionBufferSize: 64,
		DeliveryTimeout:      2 * time.Second,
		WriteTimeout:         10 * time.Second,
		IdleTimeout:          60 * time.Second,
		ReadLimit:            1 << 20,
		EnableLite:           true,
	}
}

// Decoder validates an inbound frame before it is broadcast.
type Decoder func(raw []byte) error

func EnvelopeDecoder(raw []byte) error {
	_, err := domain.DecodeEnvelope(raw)
	return err
}

func LiteDecoder(raw []byte) error {
	_, err := domain.DecodeLite(raw)
	return err
}

type Server struct {
	log      *slog.Logger
	registry contract.IRegistry
	config   Config
	upgrader websocket.Upgrader
}

func NewServer(log *slog.Logger, registry contract.IRegistry, config Config) *Server {
	return &Server{
		log:      log,
		registry: registry,
		config:   config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Clients are native applications, there is no browser origin to check.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP accepts "/ws/{chat_id}?token=..." for chat channels and "/" for
// the lite relay.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if scope, ok := domain.ScopeFromPath(r.URL.Path); ok {
		s.serve(w, r, scope, EnvelopeDecoder)
		return
	}
	if s.config.EnableLite && r.URL.Path == "/" {
		s.serve(w, r, domain.LiteScope, LiteDecoder)
		return
	}
	http.NotFound(w, r)
}

// serve runs the read loop of one connection. It is the only reader of the
// channel, so broadcasts from one sender happen in arrival order.
func (s *Server) serve(w http.ResponseWriter, r *http.Request, scope domain.ChatID, decode Decoder) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("Websocket upgrade failed", "error", err)
		return
	}

	peer := NewPeer(conn, scope, s.log, s.config.ConnectionBufferSize,
		s.config.DeliveryTimeout, s.config.WriteTimeout)
	// The token is accepted but not verified: the relay performs no
	// authentication.
	peer.log.Debug("Token received", "present", r.URL.Query().Get("token") != "")

	s.OnConnect(peer)
	defer s.OnDisconnect(peer)
	go peer.writeLoop()

	conn.SetReadLimit(s.config.ReadLimit)
	extend := func() { _ = conn.SetReadDeadline(time.Now().Add(s.config.IdleTimeout)) }
	extend()
	conn.SetPingHandler(func(data string) error {
		extend()
		return peer.pong(data)
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				peer.log.Debug("Read failed", "error", err)
			}
			return
		}
		extend()
		if err = s.OnMessage(peer, raw, decode); err != nil {
			peer.log.Warn("Dropping connection on malformed payload", "error", err)
			_ = peer.closeWith(websocket.CloseInvalidFramePayloadData, "invalid envelope")
			return
		}
	}
}

func (s *Server) OnConnect(peer contract.Peer) {
	s.registry.Add(peer)
	s.log.Info("Participant connected",
		"peer_id", peer.ID(), "chat_id", peer.Scope().String(),
		"participants", s.registry.Len(peer.Scope()))
}

// OnMessage decodes the payload and, if valid, broadcasts it untouched.
// A decode failure is returned so the caller drops the connection; there is
// no partial-message tolerance.
func (s *Server) OnMessage(sender contract.Peer, raw []byte, decode Decoder) error {
	if err := decode(raw); err != nil {
		return err
	}
	s.Broadcast(sender, raw)
	return nil
}

// Broadcast forwards payload to every peer of the sender's scope but the
// sender itself and returns how many peers accepted it. A peer failing to
// accept is removed and closed; the remaining peers are still served.
func (s *Server) Broadcast(sender contract.Peer, payload []byte) int {
	targets := lo.Filter(s.registry.Snapshot(sender.Scope()), func(p contract.Peer, _ int) bool {
		return p.ID() != sender.ID()
	})

	delivered := 0
	for _, target := range targets {
		if err := target.Deliver(payload); err != nil {
			s.drop(target, err)
			continue
		}
		delivered++
	}
	return delivered
}

func (s *Server) drop(peer contract.Peer, cause error) {
	if s.registry.Remove(peer.ID()) {
		s.log.Warn("Participant dropped during broadcast",
			"chat_id", peer.Scope().String(),
			"error", &errors.RegistryError{PeerID: peer.ID(), Err: cause})
	}
	_ = peer.Close()
}

func (s *Server) OnDisconnect(peer contract.Peer) {
	if s.registry.Remove(peer.ID()) {
		s.log.Info("Participant disconnected",
			"peer_id", peer.ID(), "chat_id", peer.Scope().String(),
			"participants", s.registry.Len(peer.Scope()))
	}
	_ = peer.Close()
}

// CloseAll closes every open channel. Hijacked websocket connections are not
// tracked by http.Server, so shutdown has to close them here.
func (s *Server) CloseAll() {
	for _, peer := range s.registry.All() {
		s.OnDisconnect(peer)
	}
}
