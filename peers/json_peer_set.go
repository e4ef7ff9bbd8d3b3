package peers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const jsonPeerSetFile = "peers.json"

// JSONPeerSet persists a peer set as a JSON file in a base directory.
type JSONPeerSet struct {
	mu   sync.Mutex
	path string
}

// NewJSONPeerSet creates a store rooted at the given base directory.
func NewJSONPeerSet(base string) *JSONPeerSet {
	return &JSONPeerSet{path: filepath.Join(base, jsonPeerSetFile)}
}

// Path returns the backing file's location.
func (j *JSONPeerSet) Path() string {
	return j.path
}

// PeerSet parses the backing file into a PeerSet. A missing or empty file
// yields an empty set; a node with no recorded peers is a valid state.
func (j *JSONPeerSet) PeerSet() (*PeerSet, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	buf, err := os.ReadFile(j.path)
	if os.IsNotExist(err) {
		return NewPeerSet(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading peer set: %w", err)
	}
	if len(bytes.TrimSpace(buf)) == 0 {
		return NewPeerSet(nil), nil
	}

	var list []*Peer
	if err := json.Unmarshal(buf, &list); err != nil {
		return nil, fmt.Errorf("decoding peer set: %w", err)
	}
	for _, peer := range list {
		peer.PubKeyHex = strings.ToLower(peer.PubKeyHex)
		if _, err := peer.PublicKey(); err != nil {
			return nil, fmt.Errorf("decoding peer set: %w", err)
		}
	}
	return NewPeerSet(list), nil
}

// Write persists the set, replacing any previous contents.
func (j *JSONPeerSet) Write(set *PeerSet) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	buf, err := json.MarshalIndent(set.Peers(), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding peer set: %w", err)
	}
	if err := os.WriteFile(j.path, append(buf, '\n'), 0600); err != nil {
		return fmt.Errorf("writing peer set: %w", err)
	}
	return nil
}
