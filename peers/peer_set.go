package peers

import (
	"sort"
	"strings"
	"sync"
)

// PeerSet is a mutable, keyed collection of peers. Keys are lowercase-hex
// public keys; inserting a peer with a known key replaces its address.
// All methods are safe for concurrent use.
type PeerSet struct {
	mu    sync.RWMutex
	byKey map[string]*Peer
}

// NewPeerSet builds a set from an initial list of peers. Later entries
// with a duplicate key win.
func NewPeerSet(peers []*Peer) *PeerSet {
	set := &PeerSet{byKey: make(map[string]*Peer, len(peers))}
	for _, peer := range peers {
		set.Upsert(peer)
	}
	return set
}

// Upsert adds the peer or replaces the existing entry with the same key.
func (s *PeerSet) Upsert(peer *Peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byKey[strings.ToLower(peer.PubKeyHex)] = peer
}

// Remove drops the peer with the given public key, reporting whether it
// was present.
func (s *PeerSet) Remove(pubKeyHex string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(pubKeyHex)
	_, ok := s.byKey[key]
	delete(s.byKey, key)
	return ok
}

// Get looks a peer up by public key.
func (s *PeerSet) Get(pubKeyHex string) (*Peer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	peer, ok := s.byKey[strings.ToLower(pubKeyHex)]
	return peer, ok
}

// Len returns the number of peers in the set.
func (s *PeerSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey)
}

// Peers returns the peers sorted by public key, a stable order for
// persistence and iteration.
func (s *PeerSet) Peers() []*Peer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Peer, 0, len(s.byKey))
	for _, peer := range s.byKey {
		out = append(out, peer)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PubKeyHex < out[j].PubKeyHex
	})
	return out
}
