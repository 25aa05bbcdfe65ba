package presentation

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"log/slog"
	"time"

	"github.com/samber/lo"
)

var _ contract.EventApplier = (*ChatView)(nil)

type ChangeKind int

const (
	ChatOpened ChangeKind = iota
	ChatClosed
	MessageAppended
	StatusChanged
	WallpaperChanged
	Failure
)

// Line is one visible entry of the timeline.
type Line struct {
	Envelope domain.Envelope
	At       time.Time
}

// Change describes what an update did to the view, for renderers.
type Change struct {
	Kind      ChangeKind
	Chat      domain.ChatID
	Line      Line
	State     domain.ConnectionState
	Wallpaper string
	Err       error
}

// ChatView is the state of the chat screen. It is not safe for concurrent
// use: every method must run on the Loop.
type ChatView struct {
	log       *slog.Logger
	onChange  func(Change)
	open      bool
	chat      domain.ChatID
	title     string
	messages  []Line
	wallpaper string
	state     domain.ConnectionState
	lastErr   error
}

func NewChatView(log *slog.Logger, onChange func(Change)) *ChatView {
	if onChange == nil {
		onChange = func(Change) {}
	}
	return &ChatView{log: log, onChange: onChange}
}

// Reset switches the screen to chat. Messages of the previous chat are gone.
func (v *ChatView) Reset(chat domain.ChatID, title, wallpaper string) {
	v.open = true
	v.chat = chat
	v.title = title
	v.messages = nil
	v.wallpaper = wallpaper
	v.state = domain.Disconnected
	v.lastErr = nil
	v.onChange(Change{Kind: ChatOpened, Chat: chat, Wallpaper: wallpaper})
}

// Close leaves the chat screen.
func (v *ChatView) Close() {
	if !v.open {
		return
	}
	chat := v.chat
	v.open = false
	v.chat = ""
	v.title = ""
	v.messages = nil
	v.wallpaper = ""
	v.state = domain.Disconnected
	v.lastErr = nil
	v.onChange(Change{Kind: ChatClosed, Chat: chat})
}

// Apply folds a connection event into the view. Events of any chat other
// than the open one are dropped.
func (v *ChatView) Apply(evt event.Event) {
	if !v.open || evt.ChatID() != v.chat {
		v.log.Debug("Dropping event of inactive chat", "chat_id", evt.ChatID().String())
		return
	}
	switch e := evt.(type) {
	case event.MessageReceived:
		line := Line{Envelope: e.Envelope, At: e.At}
		v.messages = append(v.messages, line)
		v.onChange(Change{Kind: MessageAppended, Chat: v.chat, Line: line})
	case event.ConnectivityChanged:
		v.state = e.State
		v.lastErr = e.Err
		v.onChange(Change{Kind: StatusChanged, Chat: v.chat, State: e.State, Err: e.Err})
	case event.SendFailed:
		v.lastErr = e.Err
		v.onChange(Change{Kind: Failure, Chat: v.chat, Line: Line{Envelope: e.Envelope}, Err: e.Err})
	case event.ProtocolViolation:
		v.lastErr = e.Err
		v.onChange(Change{Kind: Failure, Chat: v.chat, Err: e.Err})
	default:
		v.log.Warn("Unknown event", "chat_id", evt.ChatID().String())
	}
}

// SetWallpaper updates the background if chat is the open one.
func (v *ChatView) SetWallpaper(chat domain.ChatID, path string) {
	if !v.open || chat != v.chat {
		return
	}
	v.wallpaper = path
	v.onChange(Change{Kind: WallpaperChanged, Chat: chat, Wallpaper: path})
}

// Report surfaces a failure that happened outside the connection, such as
// an upload, on the open chat.
func (v *ChatView) Report(err error) {
	v.lastErr = err
	v.onChange(Change{Kind: Failure, Chat: v.chat, Err: err})
}

func (v *ChatView) IsOpen() bool { return v.open }
func (v *ChatView) Chat() domain.ChatID { return v.chat }
func (v *ChatView) Title() string { return v.title }
func (v *ChatView) Wallpaper() string { return v.wallpaper }
func (v *ChatView) State() domain.ConnectionState { return v.state }
func (v *ChatView) LastError() error { return v.lastErr }

// Messages returns a copy of the visible timeline.
func (v *ChatView) Messages() []Line {
	return append([]Line(nil), v.messages...)
}

// Contents returns the content of every visible message of type t.
func (v *ChatView) Contents(t domain.MessageType) []string {
	return lo.FilterMap(v.messages, func(line Line, _ int) (string, bool) {
		return line.Envelope.Content, line.Envelope.Type == t
	})
}
