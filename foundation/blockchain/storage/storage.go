// Package storage defines the key value contract the node persists through
// and the peer book layered on top of it.
package storage

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/peer"
)

// Storage interface represents the behavior required to be implemented by
// any package providing support for reading and writing byte keys and values.
// Deleting a missing key is not an error, and Get returns exactly the bytes
// written by the last Put.
type Storage interface {
	Get(key []byte) ([]byte, bool, error)
	Put(key []byte, value []byte) error
	Delete(key []byte) error
	Close() error
}

// =============================================================================

// Key layout for the peer table family.
const (
	peerPrefix = "peer/"
	peerIndex  = "peer/index"
)

// PeerBook persists the known peers so a restarted node can reconnect to
// them. Entries are stored under the peer/ prefix with an index of ids.
type PeerBook struct {
	mu   sync.Mutex
	strg Storage
}

// NewPeerBook constructs a peer book on top of the specified storage.
func NewPeerBook(strg Storage) *PeerBook {
	return &PeerBook{
		strg: strg,
	}
}

// Save writes the peer entry, replacing any address already stored. Peers
// get a new id every time they start, so entries held under another id for
// the same address are dropped.
func (pb *PeerBook) Save(p peer.Peer) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	if err := pb.strg.Put(peerKey(p.ID), data); err != nil {
		return fmt.Errorf("put peer %s: %w", p.ID, err)
	}

	ids, err := pb.index()
	if err != nil {
		return err
	}

	keep := make([]peer.ID, 0, len(ids)+1)
	var exists bool
	for _, id := range ids {
		if id == p.ID {
			exists = true
			keep = append(keep, id)
			continue
		}

		old, ok, err := pb.get(id)
		if err != nil {
			return err
		}

		if ok && old.Addr == p.Addr {
			if err := pb.strg.Delete(peerKey(id)); err != nil {
				return fmt.Errorf("delete peer %s: %w", id, err)
			}
			continue
		}

		keep = append(keep, id)
	}

	if !exists {
		keep = append(keep, p.ID)
	}

	return pb.writeIndex(keep)
}

// Remove deletes the peer entry. Removing an unknown peer is not an error.
func (pb *PeerBook) Remove(id peer.ID) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	if err := pb.strg.Delete(peerKey(id)); err != nil {
		return fmt.Errorf("delete peer %s: %w", id, err)
	}

	ids, err := pb.index()
	if err != nil {
		return err
	}

	keep := make([]peer.ID, 0, len(ids))
	for _, known := range ids {
		if known != id {
			keep = append(keep, known)
		}
	}

	return pb.writeIndex(keep)
}

// Load returns every peer entry in the order they were first saved.
func (pb *PeerBook) Load() ([]peer.Peer, error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	ids, err := pb.index()
	if err != nil {
		return nil, err
	}

	peers := make([]peer.Peer, 0, len(ids))
	for _, id := range ids {
		p, ok, err := pb.get(id)
		if err != nil {
			return nil, err
		}
		if ok {
			peers = append(peers, p)
		}
	}

	return peers, nil
}

// get reads a single peer entry.
func (pb *PeerBook) get(id peer.ID) (peer.Peer, bool, error) {
	data, ok, err := pb.strg.Get(peerKey(id))
	if err != nil {
		return peer.Peer{}, false, fmt.Errorf("get peer %s: %w", id, err)
	}
	if !ok {
		return peer.Peer{}, false, nil
	}

	var p peer.Peer
	if err := json.Unmarshal(data, &p); err != nil {
		return peer.Peer{}, false, fmt.Errorf("decode peer %s: %w", id, err)
	}

	return p, true, nil
}

// index reads the list of stored peer ids.
func (pb *PeerBook) index() ([]peer.ID, error) {
	data, ok, err := pb.strg.Get([]byte(peerIndex))
	if err != nil {
		return nil, fmt.Errorf("get peer index: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var ids []peer.ID
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode peer index: %w", err)
	}

	return ids, nil
}

// writeIndex replaces the list of stored peer ids.
func (pb *PeerBook) writeIndex(ids []peer.ID) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}

	if err := pb.strg.Put([]byte(peerIndex), data); err != nil {
		return fmt.Errorf("put peer index: %w", err)
	}

	return nil
}

func peerKey(id peer.ID) []byte {
	return []byte(peerPrefix + id.String())
}
