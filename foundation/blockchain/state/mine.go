package state

import (
	"context"
	"fmt"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/database"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/protocol"
)

// MineNewBlock drains the pool into a new block and performs the work to
// mine it. The lock is only held to build the block and to append it, so
// peer messages are processed while mining. If the chain was replaced or
// changed in the meantime the transactions go back to the pool.
func (s *State[P]) MineNewBlock(ctx context.Context) (database.Block[P], error) {
	s.evHandler("state: MineNewBlock: MINING: build block")

	s.mu.Lock()
	chain := s.chain
	if chain == nil {
		s.mu.Unlock()
		return database.Block[P]{}, ErrNoChain
	}

	block, err := chain.NextBlock()
	s.mu.Unlock()

	if err != nil {
		return database.Block[P]{}, err
	}

	s.evHandler("state: MineNewBlock: MINING: perform POW: trans[%d]", block.Count)

	// Attempt to solve the POW puzzle. This can be cancelled.
	powErr := database.POW(ctx, &block.Header, s.evHandler)

	s.mu.Lock()
	defer s.mu.Unlock()

	if powErr != nil {
		s.requeue(block)
		return database.Block[P]{}, powErr
	}

	if s.chain != chain {
		s.requeue(block)
		return database.Block[P]{}, ErrChainChanged
	}

	s.evHandler("state: MineNewBlock: MINING: update local state")

	if err := chain.AppendBlock(block); err != nil {
		s.requeue(block)
		return database.Block[P]{}, fmt.Errorf("%w: %w", ErrChainChanged, err)
	}

	// The new block hasn't been seen by anyone else yet.
	s.agreement = 1

	return block, nil
}

// requeue puts the transactions of an abandoned block back into the pool of
// the accepted chain. The caller must hold the write lock.
func (s *State[P]) requeue(block database.Block[P]) {
	if s.chain == nil {
		return
	}

	s.chain.Requeue(block)
	s.evHandler("state: requeue: trans[%d]: pending[%d]", len(block.Transactions)-1, s.chain.PendingCount())
}

// =============================================================================

// BroadcastChain sends a pong carrying the accepted chain to every peer.
func (s *State[P]) BroadcastChain() error {
	s.mu.RLock()
	if s.chain == nil {
		s.mu.RUnlock()
		return ErrNoChain
	}

	frame, err := s.pongFrame()
	s.mu.RUnlock()

	if err != nil {
		return err
	}

	s.broadcast("BroadcastChain", frame)
	return nil
}

// BroadcastPeerList gossips the known peers to every peer.
func (s *State[P]) BroadcastPeerList() error {
	msg, err := protocol.NewPeerList(s.peers.Copy())
	if err != nil {
		return err
	}

	frame, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	s.broadcast("BroadcastPeerList", frame)
	return nil
}

func (s *State[P]) broadcast(op string, frame []byte) {
	for _, id := range s.peers.Broadcast(frame) {
		s.evHandler("state: %s: peer[%s]: evicted: outbox full", op, id)
	}
}
