// Package peer maintains the peer related information such as the set
// of known peers and the queue of frames waiting to be written to them.
package peer

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// DefaultOutboxSize is the number of frames a peer can fall behind before
// it is evicted.
const DefaultOutboxSize = 256

// Set of error variables for peer management.
var (
	ErrOutboxFull   = errors.New("peer outbox is full")
	ErrOutboxClosed = errors.New("peer outbox is closed")
	ErrUnknownPeer  = errors.New("peer is not known")
)

// ID is the process unique identity of a node.
type ID = uuid.UUID

// NewID generates an identity for this process.
func NewID() ID {
	return uuid.New()
}

// Peer represents information about a Node in the network.
type Peer struct {
	ID   ID     `json:"id"`
	Addr string `json:"addr"`
}

// New constructs a new info value.
func New(id ID, addr string) Peer {
	return Peer{
		ID:   id,
		Addr: addr,
	}
}

// Match validates if the specified id matches this node.
func (p Peer) Match(id ID) bool {
	return p.ID == id
}

// =============================================================================

// Outbox is the ordered queue of frames waiting to be written to a single
// connection. Sending never blocks.
type Outbox struct {
	frames chan []byte
	done   chan struct{}
	once   sync.Once
}

// NewOutbox constructs an outbox holding up to size frames.
func NewOutbox(size int) *Outbox {
	if size <= 0 {
		size = DefaultOutboxSize
	}

	return &Outbox{
		frames: make(chan []byte, size),
		done:   make(chan struct{}),
	}
}

// Send queues the frame for writing.
func (o *Outbox) Send(frame []byte) error {
	select {
	case <-o.done:
		return ErrOutboxClosed
	default:
	}

	select {
	case o.frames <- frame:
		return nil
	default:
		return ErrOutboxFull
	}
}

// Frames returns the channel the connection writer drains.
func (o *Outbox) Frames() <-chan []byte {
	return o.frames
}

// Done is closed once the outbox is closed.
func (o *Outbox) Done() <-chan struct{} {
	return o.done
}

// Close signals the connection writer to stop. It is safe to call more
// than once.
func (o *Outbox) Close() {
	o.once.Do(func() {
		close(o.done)
	})
}

// =============================================================================

type entry struct {
	peer   Peer
	outbox *Outbox
}

// Set represents the data representation to maintain a set of known peers
// and how to reach them.
type Set struct {
	mu  sync.RWMutex
	set map[ID]entry
}

// NewSet constructs a new set to manage node peer information.
func NewSet() *Set {
	return &Set{
		set: make(map[ID]entry),
	}
}

// Add adds a new peer to the set. The first registration of an id wins and
// false is returned for any later one.
func (s *Set) Add(peer Peer, outbox *Outbox) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.set[peer.ID]; exists {
		return false
	}

	s.set[peer.ID] = entry{peer: peer, outbox: outbox}
	return true
}

// Remove removes a peer from the set and closes its outbox.
func (s *Set) Remove(id ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.remove(id, nil)
}

// RemoveOutbox removes the peer only if it is still registered with the
// specified outbox. Connections use this when they end so they don't drop
// a registration owned by another connection.
func (s *Set) RemoveOutbox(id ID, outbox *Outbox) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.remove(id, outbox)
}

// Release removes every peer registered with the outbox and returns their
// ids. A connection calls this when it ends.
func (s *Set) Release(outbox *Outbox) []ID {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []ID
	for id, e := range s.set {
		if e.outbox == outbox {
			ids = append(ids, id)
		}
	}

	for _, id := range ids {
		s.remove(id, outbox)
	}

	return ids
}

// Known reports if the id is in the set.
func (s *Set) Known(id ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.set[id]
	return exists
}

// Len returns the number of known peers.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.set)
}

// Copy returns a list of the known peers ordered by address.
func (s *Set) Copy() []Peer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	peers := make([]Peer, 0, len(s.set))
	for _, e := range s.set {
		peers = append(peers, e.peer)
	}

	sort.Slice(peers, func(i, j int) bool {
		if peers[i].Addr != peers[j].Addr {
			return peers[i].Addr < peers[j].Addr
		}
		return peers[i].ID.String() < peers[j].ID.String()
	})

	return peers
}

// Send queues the frame for the specified peer. A peer whose outbox is
// full or closed is evicted from the set.
func (s *Set) Send(id ID, frame []byte) error {
	s.mu.RLock()
	e, exists := s.set[id]
	s.mu.RUnlock()

	if !exists {
		return ErrUnknownPeer
	}

	if err := e.outbox.Send(frame); err != nil {
		s.RemoveOutbox(id, e.outbox)
		return err
	}

	return nil
}

// Broadcast queues the frame for every known peer and returns the peers
// that were evicted because they could not keep up.
func (s *Set) Broadcast(frame []byte) []ID {
	s.mu.RLock()
	entries := make([]entry, 0, len(s.set))
	for _, e := range s.set {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	var evicted []ID
	for _, e := range entries {
		if err := e.outbox.Send(frame); err != nil {
			if s.RemoveOutbox(e.peer.ID, e.outbox) {
				evicted = append(evicted, e.peer.ID)
			}
		}
	}

	return evicted
}

// remove expects the caller to hold the write lock. A nil outbox matches
// any registration.
func (s *Set) remove(id ID, outbox *Outbox) bool {
	e, exists := s.set[id]
	if !exists {
		return false
	}

	if outbox != nil && e.outbox != outbox {
		return false
	}

	delete(s.set, id)
	e.outbox.Close()

	return true
}
