package client

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/runtime/workers"
	"context"
	"log/slog"
	"sync"
)

var _ contract.IConnections = (*Connections)(nil)

// Connections keeps at most one live Manager per chat. Each manager runs
// as a supervised worker; a panic in one receive loop restarts it without
// touching the others.
type Connections struct {
	mu         sync.Mutex
	ctx        context.Context
	log        *slog.Logger
	config     Config
	dispatcher contract.IDispatcher
	supervisor *workers.Supervisor
	live       map[domain.ChatID]*Manager
}

func NewConnections(ctx context.Context, log *slog.Logger, dispatcher contract.IDispatcher, config Config) *Connections {
	return &Connections{
		ctx:        ctx,
		log:        log,
		config:     config,
		dispatcher: dispatcher,
		supervisor: workers.NewSupervisor(log, 0),
		live:       make(map[domain.ChatID]*Manager),
	}
}

// Open returns the live manager of chatID, or starts a new one.
func (c *Connections) Open(chatID domain.ChatID, token string) contract.IConnection {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.live[chatID]; ok && !m.isDone() {
		return m
	}

	m := NewManager(c.log, c.dispatcher, c.config, chatID, token)
	c.live[chatID] = m
	c.supervisor.Start(c.ctx, m)
	go c.forget(m)
	return m
}

func (c *Connections) Get(chatID domain.ChatID) (contract.IConnection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.live[chatID]
	if !ok || m.isDone() {
		return nil, false
	}
	return m, true
}

// Close stops the manager of chatID, if any.
func (c *Connections) Close(chatID domain.ChatID) {
	c.mu.Lock()
	m, ok := c.live[chatID]
	delete(c.live, chatID)
	c.mu.Unlock()
	if ok {
		m.Stop()
	}
}

// CloseAll stops every manager and waits for their loops to return.
func (c *Connections) CloseAll() {
	c.mu.Lock()
	managers := c.live
	c.live = make(map[domain.ChatID]*Manager)
	c.mu.Unlock()
	for _, m := range managers {
		m.Stop()
	}
	c.supervisor.Wait()
}

func (c *Connections) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.live)
}

func (c *Connections) forget(m *Manager) {
	select {
	case <-m.Done():
	case <-c.ctx.Done():
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.live[m.ChatID()] == m {
		delete(c.live, m.ChatID())
	}
}
