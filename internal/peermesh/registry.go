// Package peermesh implements peer discovery, gossip broadcast and chain
// catch-up sync over the node's own HTTP surface.
package peermesh

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Peer is a reachable node endpoint.
type Peer struct {
	Address string `json:"address"`
	Port    uint16 `json:"port"`
}

type registryFile struct {
	Peers []Peer `json:"peers"`
}

// Registry is the durable set of known peers, persisted as JSON. The server
// exclusively owns its registry; self is filtered out of all outgoing
// targets.
type Registry struct {
	mu          sync.Mutex
	path        string
	peers       []Peer
	selfAddress string
	selfPort    uint16
}

// Load opens (or creates empty) the peer registry at path.
func Load(path, selfAddress string, selfPort uint16) (*Registry, error) {
	r := &Registry{path: path, selfAddress: selfAddress, selfPort: selfPort}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("peermesh: read registry: %w", err)
	}
	var rf registryFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("peermesh: decode registry: %w", err)
	}
	r.peers = rf.Peers
	return r, nil
}

// Add inserts peer if not already present (deduped by address+port),
// skipping self. It returns true if the peer was newly added.
func (r *Registry) Add(peer Peer) (bool, error) {
	r.mu.Lock()
	if peer.Address == r.selfAddress && peer.Port == r.selfPort {
		r.mu.Unlock()
		return false, nil
	}
	for _, p := range r.peers {
		if p.Address == peer.Address && p.Port == peer.Port {
			r.mu.Unlock()
			return false, nil
		}
	}
	r.peers = append(r.peers, peer)
	snapshot := append([]Peer(nil), r.peers...)
	r.mu.Unlock()
	if err := r.save(snapshot); err != nil {
		return true, err
	}
	return true, nil
}

// List returns a copy of the currently known peers.
func (r *Registry) List() []Peer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Peer(nil), r.peers...)
}

func (r *Registry) save(peers []Peer) error {
	data, err := json.Marshal(registryFile{Peers: peers})
	if err != nil {
		return fmt.Errorf("peermesh: encode registry: %w", err)
	}
	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, ".peers-*.tmp")
	if err != nil {
		return fmt.Errorf("peermesh: create temp registry: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("peermesh: write temp registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("peermesh: close temp registry: %w", err)
	}
	return os.Rename(tmp.Name(), r.path)
}
