package errors

import "fmt"

var (
	ErrWorkerPanic          = fmt.Errorf("worker panic")
	ErrInvalidEnvelope      = fmt.Errorf("invalid message envelope")
	ErrUnknownMessageType   = fmt.Errorf("unknown message type")
	ErrNotOpen              = fmt.Errorf("connection is not open")
	ErrPeerClosed           = fmt.Errorf("peer is closed")
	ErrDeliveryTimeout      = fmt.Errorf("delivery timeout")
	ErrDispatcherClosed     = fmt.Errorf("dispatcher closed")
	ErrVerificationRequired = fmt.Errorf("verification required")
	ErrNotAnImage           = fmt.Errorf("file is not an image")
	ErrNoSession            = fmt.Errorf("no active session")
	ErrNoOpenChat           = fmt.Errorf("no open chat")
	ErrEmptyMessage         = fmt.Errorf("empty message")
	ErrLoopClosed           = fmt.Errorf("presentation loop closed")
	ErrUploadFailed         = fmt.Errorf("upload failed")
)

// TransportError is a connect, send or receive failure on a relay channel.
type TransportError struct {
	Op     string
	ChatID string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s on chat %q: %v", e.Op, e.ChatID, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError is a payload that could not be decoded as an envelope.
type ProtocolError struct {
	Payload []byte
	Err     error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error (%d bytes): %v", len(e.Payload), e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// RegistryError is a peer dropped during a broadcast.
// It is logged by the relay and never escalated.
type RegistryError struct {
	PeerID string
	Err    error
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("peer %s removed: %v", e.PeerID, e.Err)
}

func (e *RegistryError) Unwrap() error { return e.Err }

// PersistenceError is an unreadable or corrupt local state document.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("state document %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// HTTPError is a non-success answer of the collaborator API.
type HTTPError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}
