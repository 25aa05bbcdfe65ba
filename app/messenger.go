// Package app is the messenger: it ties the local state, the collaborator
// API and the per-chat connections to the chat screen.
//
// Network calls run on the caller's goroutine, never on the presentation
// Loop; their outcome enters the view through Loop.Call. Methods must
// therefore not be called from a Loop task.
package app

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/mimetypes"
	"chat-relay/errors"
	"chat-relay/presentation"
	"chat-relay/storage"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Loop is the presentation context the messenger reports to.
type Loop interface {
	contract.Scheduler
	Call(task func()) error
}

type Messenger struct {
	log         *slog.Logger
	store       contract.IStateStore
	api         contract.IChatAPI
	connections contract.IConnections
	loop        Loop
	view        *presentation.ChatView

	// Owned by the loop.
	session domain.Session
	active  contract.IConnection
}

// New restores the session found in the state store, if any.
func New(log *slog.Logger, store contract.IStateStore, api contract.IChatAPI,
	connections contract.IConnections, loop Loop, view *presentation.ChatView) *Messenger {
	session := store.Load().Session()
	if !session.IsZero() {
		log.Info("Session restored")
	}
	return &Messenger{
		log:         log,
		store:       store,
		api:         api,
		connections: connections,
		loop:        loop,
		view:        view,
		session:     session,
	}
}

func (m *Messenger) Session() (domain.Session, error) {
	var session domain.Session
	err := m.loop.Call(func() { session = m.session })
	return session, err
}

func (m *Messenger) Login(ctx context.Context, email, password string) error {
	session, err := m.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if err := storage.SetSession(m.store, session); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return m.loop.Call(func() { m.session = session })
}

func (m *Messenger) Register(ctx context.Context, email, password, displayName string) error {
	return m.api.Register(ctx, email, password, displayName)
}

func (m *Messenger) RequestVerify(ctx context.Context, email string) error {
	return m.api.RequestVerify(ctx, email)
}

func (m *Messenger) Verify(ctx context.Context, email, code string) error {
	return m.api.Verify(ctx, email, code)
}

// Logout closes every chat and forgets the session. Wallpapers are kept.
func (m *Messenger) Logout() error {
	m.connections.CloseAll()
	if err := m.loop.Call(func() {
		m.session = domain.Session{}
		m.active = nil
		m.view.Close()
	}); err != nil {
		return err
	}
	return storage.ClearSession(m.store)
}

func (m *Messenger) Chats(ctx context.Context) ([]domain.ChatSummary, error) {
	session, err := m.requireSession()
	if err != nil {
		return nil, err
	}
	return m.api.MyChats(ctx, session.Token)
}

func (m *Messenger) CreateChat(ctx context.Context, title string, isChannel bool, memberIDs string) error {
	session, err := m.requireSession()
	if err != nil {
		return err
	}
	return m.api.CreateChat(ctx, session.Token, domain.NewChat{
		Title:     title,
		IsChannel: isChannel,
		MemberIDs: ParseMemberIDs(memberIDs),
	})
}

// OpenChat switches the screen to chatID. The connection of the chat left
// behind is stopped before the new one is opened. Opening the chat already on
// screen keeps its timeline and status: the live connection will not repeat
// its state changes.
func (m *Messenger) OpenChat(chatID domain.ChatID, title string) error {
	session, err := m.requireSession()
	if err != nil {
		return err
	}
	var previous contract.IConnection
	if err := m.loop.Call(func() { previous = m.active }); err != nil {
		return err
	}
	switch {
	case previous == nil:
	case previous.ChatID() != chatID:
		m.connections.Close(previous.ChatID())
	default:
		conn := m.connections.Open(chatID, session.Token)
		m.log.Debug("Chat already open", "chat_id", chatID.String())
		return m.loop.Call(func() { m.active = conn })
	}

	wallpaper := m.store.Load().Wallpaper(chatID)
	if err := m.loop.Call(func() { m.view.Reset(chatID, title, wallpaper) }); err != nil {
		return err
	}
	conn := m.connections.Open(chatID, session.Token)
	m.log.Info("Chat opened", "chat_id", chatID.String(), "title", title)
	return m.loop.Call(func() { m.active = conn })
}

// CloseChat leaves the chat screen and stops its connection.
func (m *Messenger) CloseChat() error {
	var active contract.IConnection
	if err := m.loop.Call(func() {
		active = m.active
		m.active = nil
		m.view.Close()
	}); err != nil {
		return err
	}
	if active != nil {
		m.connections.Close(active.ChatID())
	}
	return nil
}

// SendText sends the trimmed text on the open chat. Blank text is refused.
func (m *Messenger) SendText(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.ErrEmptyMessage
	}
	conn, err := m.requireChat()
	if err != nil {
		return err
	}
	return conn.Send(domain.Text, text)
}

// SendMedia uploads a local file and sends its URL with the type the upload
// answered. Without one the type is sniffed from the file content.
func (m *Messenger) SendMedia(ctx context.Context, path string) error {
	conn, err := m.requireChat()
	if err != nil {
		return err
	}
	result, err := m.api.Upload(ctx, path)
	if err != nil {
		err = fmt.Errorf("%w: %w", errors.ErrUploadFailed, err)
		_ = m.loop.Call(func() { m.view.Report(err) })
		return err
	}
	t := result.Type
	if t == "" {
		t = m.sniff(path)
	}
	return conn.Send(t, result.URL)
}

func (m *Messenger) sniff(path string) domain.MessageType {
	detected, err := mimetypes.Detect(path)
	if err != nil {
		m.log.Debug("Media type unknown, sending as image", "path", path, "error", err)
		return domain.Image
	}
	return mimetypes.MessageTypeOf(detected)
}

// Report shows a failure on the chat screen. It returns once the failure is
// queued on the loop.
func (m *Messenger) Report(err error) error {
	return m.loop.Post(func() { m.view.Report(err) })
}

// SetWallpaper remembers an image as the background of chatID.
func (m *Messenger) SetWallpaper(chatID domain.ChatID, path string) error {
	detected, err := mimetypes.Detect(path)
	if err != nil {
		return err
	}
	if !mimetypes.IsWallpaper(string(detected)) {
		return fmt.Errorf("%s (%s): %w", path, detected, errors.ErrNotAnImage)
	}
	if err := storage.SetWallpaper(m.store, chatID, path); err != nil {
		return fmt.Errorf("persist wallpaper: %w", err)
	}
	return m.loop.Call(func() { m.view.SetWallpaper(chatID, path) })
}

// ParseMemberIDs reads a comma separated list of user ids. Any invalid
// entry yields an empty list.
func ParseMemberIDs(csv string) []int64 {
	ids := []int64{}
	for _, field := range strings.Split(csv, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return []int64{}
		}
		ids = append(ids, id)
	}
	return ids
}

func (m *Messenger) requireSession() (domain.Session, error) {
	session, err := m.Session()
	if err != nil {
		return domain.Session{}, err
	}
	if session.IsZero() {
		return domain.Session{}, errors.ErrNoSession
	}
	return session, nil
}

func (m *Messenger) requireChat() (contract.IConnection, error) {
	var active contract.IConnection
	if err := m.loop.Call(func() { active = m.active }); err != nil {
		return nil, err
	}
	if active == nil {
		return nil, errors.ErrNoOpenChat
	}
	return active, nil
}
