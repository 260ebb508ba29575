// Package database handles the in-memory ledger: transactions, blocks, and
// the chain with its pending transaction pool.
package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/digest"
)

// Set of values that drive the ledger policy.
const (
	PoolThreshold    = 20  // A block is mined once the pool holds more than this.
	ScheduleInterval = 100 // Difficulty and reward go up every this many blocks.
	InitialReward    = 100 // Reward paid to the miner of a new chain.
)

// Chain represents the ordered history of mined blocks plus the pool of
// transactions waiting to be mined. A Chain is not safe for concurrent use;
// the caller is expected to serialize access.
type Chain[P Payload[P]] struct {
	Blocks       []Block[P] `json:"chain"`
	Pending      []Tx[P]    `json:"curr_trans"`
	Difficulty   uint32     `json:"difficulty"`
	MinerAddress string     `json:"miner_addr"`
	Reward       uint32     `json:"reward"`

	evHandler func(v string, args ...any)
}

// NewChain constructs a chain and mines its genesis block.
func NewChain[P Payload[P]](ctx context.Context, minerAddress string, difficulty uint32, evHandler func(v string, args ...any)) (*Chain[P], error) {
	c := Chain[P]{
		Difficulty:   difficulty,
		MinerAddress: minerAddress,
		Reward:       InitialReward,
		evHandler:    evHandler,
	}

	if _, err := c.AddNewBlock(ctx); err != nil {
		return nil, fmt.Errorf("mining genesis: %w", err)
	}

	return &c, nil
}

// WithEventHandler sets the handler used to report mining events. Chains
// received from the network start without one.
func (c *Chain[P]) WithEventHandler(evHandler func(v string, args ...any)) {
	c.evHandler = evHandler
}

// =============================================================================

// AddTransaction appends the transactions to the pool. Once the pool holds
// more than PoolThreshold transactions a new block is mined. The mined
// return value reports if that happened.
func (c *Chain[P]) AddTransaction(ctx context.Context, txs ...Tx[P]) (bool, error) {
	if !c.Enqueue(txs...) {
		return false, nil
	}

	if _, err := c.AddNewBlock(ctx); err != nil {
		return false, err
	}

	return true, nil
}

// Enqueue appends the transactions to the pool without mining and reports
// if the pool is now full.
func (c *Chain[P]) Enqueue(txs ...Tx[P]) bool {
	c.Pending = append(c.Pending, txs...)
	return c.PoolFull()
}

// AddNewBlock builds a block from every pending transaction, mines it, and
// appends it to the chain.
func (c *Chain[P]) AddNewBlock(ctx context.Context) (Block[P], error) {
	b, err := c.NextBlock()
	if err != nil {
		return Block[P]{}, err
	}

	if err := POW(ctx, &b.Header, c.ev); err != nil {
		c.Requeue(b)
		return Block[P]{}, err
	}

	if err := c.AppendBlock(b); err != nil {
		c.Requeue(b)
		return Block[P]{}, err
	}

	return b, nil
}

// NextBlock builds the next block to be mined from the tip of the chain and
// drains the pending pool into it. No work is performed on the block.
func (c *Chain[P]) NextBlock() (Block[P], error) {
	prevHash, err := c.LastHash()
	if err != nil {
		return Block[P]{}, err
	}

	return NewBlock(prevHash, c.Difficulty, c.MinerAddress, c.Reward, &c.Pending)
}

// AppendBlock adds a mined block to the chain and applies the difficulty
// and reward schedule.
func (c *Chain[P]) AppendBlock(b Block[P]) error {
	prevHash, err := c.LastHash()
	if err != nil {
		return err
	}

	if err := b.Validate(prevHash); err != nil {
		return err
	}

	c.Blocks = append(c.Blocks, b)
	c.ev("database: AppendBlock: blk[%d]: trans[%d]", len(c.Blocks)-1, b.Count)

	if len(c.Blocks)%ScheduleInterval == 0 {
		c.Difficulty++
		c.Reward++
		c.ev("database: AppendBlock: schedule: difficulty[%d]: reward[%d]", c.Difficulty, c.Reward)
	}

	return nil
}

// Requeue returns the transactions of a block that was not appended to the
// front of the pool. The reward transaction is dropped.
func (c *Chain[P]) Requeue(b Block[P]) {
	if len(b.Transactions) < 2 {
		return
	}

	trans := make([]Tx[P], 0, len(b.Transactions)-1+len(c.Pending))
	trans = append(trans, b.Transactions[1:]...)
	trans = append(trans, c.Pending...)
	c.Pending = trans
}

// LastHash returns the hash of the latest block header. An empty chain
// returns the zero hash.
func (c *Chain[P]) LastHash() (string, error) {
	if len(c.Blocks) == 0 {
		return digest.ZeroHash, nil
	}

	return c.Blocks[len(c.Blocks)-1].Hash()
}

// Verify walks the chain from genesis checking every block is intact and
// linked to the block before it.
func (c *Chain[P]) Verify() error {
	if len(c.Blocks) == 0 {
		return fmt.Errorf("%w: chain has no blocks", ErrBlockMismatch)
	}

	prevHash := digest.ZeroHash
	for i, b := range c.Blocks {
		if err := b.Validate(prevHash); err != nil {
			return fmt.Errorf("blk[%d]: %w", i, err)
		}

		hash, err := b.Hash()
		if err != nil {
			return err
		}
		prevHash = hash
	}

	return nil
}

// UpdateDifficulty sets the difficulty for the blocks mined next.
func (c *Chain[P]) UpdateDifficulty(difficulty uint32) {
	c.Difficulty = difficulty
}

// UpdateReward sets the reward paid for the blocks mined next.
func (c *Chain[P]) UpdateReward(reward uint32) {
	c.Reward = reward
}

// =============================================================================

// PendingCount returns the number of transactions waiting to be mined.
func (c *Chain[P]) PendingCount() int {
	return len(c.Pending)
}

// PoolFull reports if the pool holds enough transactions to mine a block.
func (c *Chain[P]) PoolFull() bool {
	return len(c.Pending) > PoolThreshold
}

// Length returns the number of blocks in the chain.
func (c *Chain[P]) Length() int {
	return len(c.Blocks)
}

// LatestBlock returns the most recent block. The boolean is false for an
// empty chain.
func (c *Chain[P]) LatestBlock() (Block[P], bool) {
	if len(c.Blocks) == 0 {
		return Block[P]{}, false
	}

	return c.Blocks[len(c.Blocks)-1], true
}

// Equal compares the full sequence of blocks of the two chains. The pool
// and settings are not considered.
func (c *Chain[P]) Equal(other *Chain[P]) bool {
	if other == nil || len(c.Blocks) != len(other.Blocks) {
		return false
	}

	for i := range c.Blocks {
		if !c.Blocks[i].Equal(other.Blocks[i]) {
			return false
		}
	}

	return true
}

// SameGenesis only compares the first block of the two chains. Chains that
// forked after genesis are reported as the same, so this must not be used
// for fork detection.
func (c *Chain[P]) SameGenesis(other *Chain[P]) bool {
	if other == nil {
		return false
	}

	switch {
	case len(c.Blocks) == 0 && len(other.Blocks) == 0:
		return true
	case len(c.Blocks) == 0 || len(other.Blocks) == 0:
		return false
	}

	return c.Blocks[0].Equal(other.Blocks[0])
}

// Clone returns a deep copy of the chain sharing the event handler.
func (c *Chain[P]) Clone() *Chain[P] {
	blocks := make([]Block[P], len(c.Blocks))
	for i, b := range c.Blocks {
		blocks[i] = b.Clone()
	}

	pending := make([]Tx[P], len(c.Pending))
	for i, tx := range c.Pending {
		pending[i] = tx.Clone()
	}

	return &Chain[P]{
		Blocks:       blocks,
		Pending:      pending,
		Difficulty:   c.Difficulty,
		MinerAddress: c.MinerAddress,
		Reward:       c.Reward,
		evHandler:    c.evHandler,
	}
}

// String implements the fmt.Stringer interface.
func (c *Chain[P]) String() string {
	var s strings.Builder

	s.WriteString("Chain [\n")
	for _, b := range c.Blocks {
		s.WriteString(b.String())
	}
	s.WriteString("    Current Transactions: [\n")
	for _, tx := range c.Pending {
		fmt.Fprintf(&s, "        %s\n", tx)
	}
	s.WriteString("    ]\n")
	fmt.Fprintf(&s, "    Difficulty:    %d\n", c.Difficulty)
	fmt.Fprintf(&s, "    Reward:        %d\n", c.Reward)
	fmt.Fprintf(&s, "    Miner address: %s\n", c.MinerAddress)
	s.WriteString("]\n")

	return s.String()
}

// ev reports an event when a handler has been set.
func (c *Chain[P]) ev(v string, args ...any) {
	if c.evHandler != nil {
		c.evHandler(v, args...)
	}
}
