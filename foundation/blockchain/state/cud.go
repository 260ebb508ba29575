package state

import (
	"fmt"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/database"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/protocol"
)

// SubmitTransaction accepts a transaction from a client, adds it to the pool
// and shares it with the known peers.
func (s *State[P]) SubmitTransaction(tx database.Tx[P]) error {
	msg, err := protocol.NewTransaction(tx)
	if err != nil {
		return err
	}

	frame, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.chain == nil {
		s.mu.Unlock()
		return ErrNoChain
	}

	full := s.chain.Enqueue(tx)
	s.evHandler("state: SubmitTransaction: tx[%s]: pending[%d]", tx, s.chain.PendingCount())

	if full {
		s.signalMining()
	}
	s.mu.Unlock()

	s.broadcast("SubmitTransaction", frame)

	return nil
}

// UpdateDifficulty sets the difficulty of the blocks this node mines next.
func (s *State[P]) UpdateDifficulty(difficulty uint32) error {
	if difficulty > database.MaxDifficulty {
		return fmt.Errorf("%w: got %d, max %d", database.ErrDifficultyTooHigh, difficulty, database.MaxDifficulty)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.chain == nil {
		return ErrNoChain
	}

	s.chain.UpdateDifficulty(difficulty)
	s.evHandler("state: UpdateDifficulty: difficulty[%d]", difficulty)

	return nil
}

// UpdateReward sets the reward paid for the blocks this node mines next.
func (s *State[P]) UpdateReward(reward uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.chain == nil {
		return ErrNoChain
	}

	s.chain.UpdateReward(reward)
	s.evHandler("state: UpdateReward: reward[%d]", reward)

	return nil
}

// SignalMining asks the worker to mine a block with whatever is pending.
func (s *State[P]) SignalMining() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.chain == nil {
		return ErrNoChain
	}

	s.signalMining()

	return nil
}
