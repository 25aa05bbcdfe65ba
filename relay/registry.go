package relay

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"sync"

	"github.com/samber/lo"
)

var _ contract.IRegistry = (*Registry)(nil)

type Set map[string]struct{}

// Registry is the set of open channels of one relay instance.
// A peer is present iff its connection is open: the server removes it on
// disconnect and on any delivery failure.
type Registry struct {
	mu     sync.RWMutex
	peers  map[string]contract.Peer // map peer -> channel
	scopes map[domain.ChatID]Set    // map chat to peers
}

func NewRegistry() *Registry {
	return &Registry{
		peers:  make(map[string]contract.Peer),
		scopes: make(map[domain.ChatID]Set),
	}
}

// Add registers a peer in its scope. The scope is created on the fly.
func (r *Registry) Add(peer contract.Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.peers[peer.ID()] = peer

	scope := peer.Scope()
	if _, ok := r.scopes[scope]; !ok {
		r.scopes[scope] = make(Set)
	}
	r.scopes[scope][peer.ID()] = struct{}{}
}

// Remove is idempotent and reports whether the peer was still registered.
// Empty scopes are dropped so the map doesn't grow with abandoned chats.
func (r *Registry) Remove(peerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	peer, ok := r.peers[peerID]
	if !ok {
		return false
	}
	delete(r.peers, peerID)

	scope := peer.Scope()
	if members, ok := r.scopes[scope]; ok {
		delete(members, peerID)
		if len(members) == 0 {
			delete(r.scopes, scope)
		}
	}
	return true
}

// Snapshot copies the peers of a scope. Broadcasting iterates the copy, so
// peers may join or leave while a broadcast is in flight.
// Returns nil if the scope has no members.
func (r *Registry) Snapshot(scope domain.ChatID) []contract.Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.scopes[scope]
	if !ok {
		return nil
	}
	snapshot := make([]contract.Peer, 0, len(members))
	for peerID := range members {
		if peer, exists := r.peers[peerID]; exists {
			snapshot = append(snapshot, peer)
		}
	}
	return snapshot
}

func (r *Registry) All() []contract.Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.peers)
}

func (r *Registry) Len(scope domain.ChatID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scopes[scope])
}

type Stats struct {
	Scopes       int
	Participants int
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Stats{Scopes: len(r.scopes), Participants: len(r.peers)}
}
