//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Peer is one open channel on the relay side.
type Peer interface {
	ID() string
	Scope() domain.ChatID
	// Deliver hands a payload to the peer's writer. It must not block longer
	// than the peer's delivery timeout.
	Deliver(payload []byte) error
	Close() error
}

// IRegistry is the set of currently connected peers, partitioned by scope.
type IRegistry interface {
	Add(peer Peer)
	Remove(peerID string) bool
	Snapshot(scope domain.ChatID) []Peer
	All() []Peer
	Len(scope domain.ChatID) int
}

// IStateStore never fails on Load: a missing or corrupt document yields
// the default state.
type IStateStore interface {
	Load() domain.PersistedState
	Save(state domain.PersistedState) error
}

// Scheduler runs tasks one at a time, in submission order, on the
// presentation context.
type Scheduler interface {
	Post(task func()) error
}

// EventApplier mutates presentation state. Only called from the Scheduler.
type EventApplier interface {
	Apply(evt event.Event)
}

// IDispatcher hands connection events to the presentation context without
// blocking the caller.
type IDispatcher interface {
	Dispatch(evt event.Event) error
}

// IConnection is one chat channel seen from the client.
type IConnection interface {
	ChatID() domain.ChatID
	State() domain.ConnectionState
	Send(t domain.MessageType, content string) error
	Stop()
	Done() <-chan struct{}
}

// IConnections keeps at most one live connection per chat.
type IConnections interface {
	Open(chatID domain.ChatID, token string) IConnection
	Get(chatID domain.ChatID) (IConnection, bool)
	Close(chatID domain.ChatID)
	CloseAll()
}

// IChatAPI is the collaborator service owning accounts, chats and media.
type IChatAPI interface {
	Login(ctx context.Context, email, password string) (domain.Session, error)
	Register(ctx context.Context, email, password, displayName string) error
	RequestVerify(ctx context.Context, email string) error
	Verify(ctx context.Context, email, code string) error
	MyChats(ctx context.Context, token string) ([]domain.ChatSummary, error)
	CreateChat(ctx context.Context, token string, chat domain.NewChat) error
	Upload(ctx context.Context, path string) (domain.UploadResult, error)
}
