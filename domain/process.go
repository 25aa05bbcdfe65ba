package domain

// ConnectionState is the lifecycle of one chat connection.
// Closed is terminal unless a reconnect policy moves it back to Connecting.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Open
	Closed
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}
