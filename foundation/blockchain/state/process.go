package state

import (
	"context"
	"fmt"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/peer"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/protocol"
)

// Process handles a single message received on the connection whose outbox
// is specified. Replies are queued on that outbox.
func (s *State[P]) Process(ctx context.Context, msg protocol.Message, reply *peer.Outbox) error {
	switch msg.Type {
	case protocol.TypePing:
		return s.processPing(msg, reply)
	case protocol.TypePong:
		return s.processPong(msg, reply)
	case protocol.TypePeerList:
		return s.processPeerList(ctx, msg)
	case protocol.TypeTransaction:
		return s.processTransaction(msg)
	}

	return fmt.Errorf("unknown message type %q", msg.Type)
}

// processPing registers an unknown peer and replies with this node's chain.
// Without a chain the reply is deferred until one is adopted.
func (s *State[P]) processPing(msg protocol.Message, reply *peer.Outbox) error {
	ping, err := protocol.DecodePing(msg)
	if err != nil {
		return err
	}

	s.evHandler("state: processPing: peer[%s]: addr[%s]", ping.ID, ping.Addr)

	if ping.ID == s.id || s.peers.Known(ping.ID) {
		return nil
	}

	s.registerPeer(peer.New(ping.ID, ping.Addr), reply)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.chain == nil {
		s.evHandler("state: processPing: peer[%s]: no chain yet: pong deferred", ping.ID)
		s.deferred = append(s.deferred, ping.ID)
		return nil
	}

	frame, err := s.pongFrame()
	if err != nil {
		return err
	}

	return s.peers.Send(ping.ID, frame)
}

// processPong compares the received chain with the accepted chain. An equal
// chain is a vote of agreement, a different one goes to the majority vote.
func (s *State[P]) processPong(msg protocol.Message, reply *peer.Outbox) error {
	pong, err := protocol.DecodePong[P](msg)
	if err != nil {
		return err
	}

	s.evHandler("state: processPong: peer[%s]: addr[%s]: blocks[%d]", pong.ID, pong.Addr, pong.Chain.Length())

	if pong.ID == s.id {
		return nil
	}

	if err := pong.Chain.Verify(); err != nil {
		return fmt.Errorf("peer[%s]: rejected chain: %w", pong.ID, err)
	}

	if err := s.acceptChain(pong); err != nil {
		return err
	}

	if !s.peers.Known(pong.ID) {
		s.registerPeer(peer.New(pong.ID, pong.Addr), reply)
	}

	return nil
}

// acceptChain applies the pong's chain to the node state.
func (s *State[P]) acceptChain(pong protocol.Pong[P]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.chain == nil:
		s.evHandler("state: acceptChain: ADOPT: peer[%s]: blocks[%d]", pong.ID, pong.Chain.Length())
		s.replaceChain(pong.Chain, 1)
		return s.flushDeferred()

	case s.chain.Equal(pong.Chain):
		s.agreement++
		s.evHandler("state: acceptChain: AGREE: peer[%s]: agreement[%d]", pong.ID, s.agreement)

	default:
		s.evHandler("state: acceptChain: DISAGREE: peer[%s]: blocks[%d]: local[%d]", pong.ID, pong.Chain.Length(), s.chain.Length())
		s.resolve(pong.Chain)
	}

	return nil
}

// flushDeferred sends the pongs held back while the node had no chain. The
// caller must hold the lock.
func (s *State[P]) flushDeferred() error {
	if len(s.deferred) == 0 {
		return nil
	}

	frame, err := s.pongFrame()
	if err != nil {
		return err
	}

	for _, id := range s.deferred {
		if err := s.peers.Send(id, frame); err != nil {
			s.evHandler("state: flushDeferred: peer[%s]: WARNING: %s", id, err)
			continue
		}
		s.evHandler("state: flushDeferred: peer[%s]: pong sent", id)
	}

	s.deferred = nil

	return nil
}

// processPeerList dials every listed peer this node doesn't know yet.
func (s *State[P]) processPeerList(ctx context.Context, msg protocol.Message) error {
	pl, err := protocol.DecodePeerList(msg)
	if err != nil {
		return err
	}

	for _, p := range pl.Peers {
		if p.Match(s.id) || s.peers.Known(p.ID) {
			continue
		}

		s.dialAsync(ctx, p.Addr)
	}

	return nil
}

// processTransaction adds a transaction from a peer to the pool. A full pool
// starts the mining worker.
func (s *State[P]) processTransaction(msg protocol.Message) error {
	tx, err := protocol.DecodeTransaction[P](msg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.chain == nil {
		s.evHandler("state: processTransaction: no chain yet: tx[%s]: ignored", tx.Tx)
		return nil
	}

	full := s.chain.Enqueue(tx.Tx)
	s.evHandler("state: processTransaction: tx[%s]: pending[%d]", tx.Tx, s.chain.PendingCount())

	if full {
		s.signalMining()
	}

	return nil
}

// =============================================================================

// registerPeer adds the peer to the peer table and the peer book.
func (s *State[P]) registerPeer(p peer.Peer, outbox *peer.Outbox) {
	if !s.peers.Add(p, outbox) {
		return
	}

	s.evHandler("state: registerPeer: peer[%s]: addr[%s]: peers[%d]", p.ID, p.Addr, s.peers.Len())

	if s.peerBook != nil && p.Addr != "" {
		if err := s.peerBook.Save(p); err != nil {
			s.evHandler("state: registerPeer: peer[%s]: WARNING: %s", p.ID, err)
		}
	}
}

// pongFrame encodes a pong carrying the accepted chain. The caller must hold
// the lock and have a chain.
func (s *State[P]) pongFrame() ([]byte, error) {
	msg, err := protocol.NewPong(s.id, s.host, s.chain)
	if err != nil {
		return nil, err
	}

	return protocol.Encode(msg)
}

// signalMining starts the mining worker when one is registered.
func (s *State[P]) signalMining() {
	if s.Worker == nil {
		s.evHandler("state: signalMining: no worker registered")
		return
	}

	s.Worker.SignalStartMining()
}
