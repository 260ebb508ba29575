package database

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/digest"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/merkle"
)

// MaxDifficulty is the largest difficulty a header can be mined at. A hash
// renders to at most 128 characters, but no prefix longer than this has a
// realistic chance of parsing as zero.
const MaxDifficulty = 64

// Set of error variables for block construction and validation.
var (
	ErrDifficultyTooHigh = errors.New("difficulty is too high to mine")
	ErrBlockMismatch     = errors.New("block does not match the chain")
)

// =============================================================================

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	Timestamp  int64  `json:"timestamp"`  // Time the block was built, in seconds.
	Nonce      uint32 `json:"nonce"`      // Value identified to solve the hash solution.
	PrevHash   string `json:"pre_hash"`   // Hash of the previous block header in the chain.
	Merkle     string `json:"merkle"`     // Merkle root of the transactions in this block.
	Difficulty uint32 `json:"difficulty"` // Length of the hash prefix that must parse as zero.
}

// Hash returns the unique hash for the header.
func (h BlockHeader) Hash() (string, error) {
	return digest.Hash(h)
}

// Equal compares the parts of two headers that don't depend on the mining
// work. Nonce and difficulty are not considered.
func (h BlockHeader) Equal(other BlockHeader) bool {
	return h.Timestamp == other.Timestamp &&
		h.PrevHash == other.PrevHash &&
		h.Merkle == other.Merkle
}

// String implements the fmt.Stringer interface.
func (h BlockHeader) String() string {
	var b strings.Builder

	b.WriteString("        BlockHeader: [\n")
	fmt.Fprintf(&b, "            Timestamp:     %d\n", h.Timestamp)
	fmt.Fprintf(&b, "            Nonce:         %d\n", h.Nonce)
	fmt.Fprintf(&b, "            Previous Hash: %s\n", h.PrevHash)
	fmt.Fprintf(&b, "            Merkle:        %s\n", h.Merkle)
	fmt.Fprintf(&b, "            Difficulty:    %d\n", h.Difficulty)
	b.WriteString("        ]\n")

	return b.String()
}

// =============================================================================

// Block represents a group of transactions batched together. The first
// transaction is always the reward transaction for the miner.
type Block[P Payload[P]] struct {
	Header       BlockHeader `json:"header"`
	Count        uint32      `json:"count"`
	Transactions []Tx[P]     `json:"transactions"`
}

// NewBlock constructs a block that is ready to be mined. The reward
// transaction is placed first, followed by the pending transactions in
// order. The pending slice is emptied since the block now owns them.
func NewBlock[P Payload[P]](prevHash string, difficulty uint32, minerAddress string, reward uint32, pending *[]Tx[P]) (Block[P], error) {
	trans := make([]Tx[P], 0, len(*pending)+1)
	trans = append(trans, GenesisTx[P](minerAddress, reward))
	trans = append(trans, (*pending)...)

	root, err := merkle.Root(trans)
	if err != nil {
		return Block[P]{}, err
	}

	*pending = (*pending)[:0]

	b := Block[P]{
		Header: BlockHeader{
			Timestamp:  time.Now().UTC().Unix(),
			Nonce:      0, // Will be identified by the POW algorithm.
			PrevHash:   prevHash,
			Merkle:     root,
			Difficulty: difficulty,
		},
		Count:        uint32(len(trans)),
		Transactions: trans,
	}

	return b, nil
}

// Hash returns the hash of the block header. The header carries the merkle
// root, so the transactions are committed through it.
func (b Block[P]) Hash() (string, error) {
	return b.Header.Hash()
}

// Equal delegates to header equality.
func (b Block[P]) Equal(other Block[P]) bool {
	return b.Header.Equal(other.Header)
}

// Clone returns a deep copy of the block.
func (b Block[P]) Clone() Block[P] {
	trans := make([]Tx[P], len(b.Transactions))
	for i, tx := range b.Transactions {
		trans[i] = tx.Clone()
	}

	return Block[P]{
		Header:       b.Header,
		Count:        b.Count,
		Transactions: trans,
	}
}

// Validate checks that a block received from another node is intact and
// links to the specified previous hash.
func (b Block[P]) Validate(prevHash string) error {
	if b.Header.PrevHash != prevHash {
		return fmt.Errorf("%w: previous hash doesn't match, got %s, exp %s", ErrBlockMismatch, b.Header.PrevHash, prevHash)
	}

	if int(b.Count) != len(b.Transactions) {
		return fmt.Errorf("%w: count doesn't match transactions, got %d, exp %d", ErrBlockMismatch, b.Count, len(b.Transactions))
	}

	root, err := merkle.Root(b.Transactions)
	if err != nil {
		return err
	}

	if root != b.Header.Merkle {
		return fmt.Errorf("%w: merkle root doesn't match transactions, got %s, exp %s", ErrBlockMismatch, root, b.Header.Merkle)
	}

	hash, err := b.Hash()
	if err != nil {
		return err
	}

	if !IsHashSolved(b.Header.Difficulty, hash) {
		return fmt.Errorf("%w: %s invalid block hash", ErrBlockMismatch, hash)
	}

	return nil
}

// String implements the fmt.Stringer interface.
func (b Block[P]) String() string {
	var s strings.Builder

	s.WriteString("    Block: [\n")
	s.WriteString(b.Header.String())
	fmt.Fprintf(&s, "        Number of Transactions: %d\n", b.Count)
	s.WriteString("        Transactions: [\n")
	for _, tx := range b.Transactions {
		fmt.Fprintf(&s, "            %s\n", tx)
	}
	s.WriteString("        ]\n")
	s.WriteString("    ]\n")

	return s.String()
}

// =============================================================================

// POW performs the work of mining to find a nonce that solves the header's
// hash puzzle. Pointer semantics are used since the nonce is being
// discovered. The search only stops early if the context is cancelled.
func POW(ctx context.Context, header *BlockHeader, ev func(v string, args ...any)) error {
	if header.Difficulty > MaxDifficulty {
		return fmt.Errorf("%w: got %d, max %d", ErrDifficultyTooHigh, header.Difficulty, MaxDifficulty)
	}

	ev("database: POW: MINING: started: difficulty[%d]", header.Difficulty)
	defer ev("database: POW: MINING: completed")

	var attempts uint64
	for {
		attempts++
		if attempts%1_000_000 == 0 {
			ev("database: POW: MINING: attempts[%d]", attempts)
		}

		// Did we get cancelled trying to solve the problem.
		if err := ctx.Err(); err != nil {
			ev("database: POW: MINING: CANCELLED")
			return err
		}

		hash, err := header.Hash()
		if err != nil {
			return err
		}

		if IsHashSolved(header.Difficulty, hash) {
			ev("database: POW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]: attempts[%d]", header.PrevHash, hash, attempts)
			return nil
		}

		// The whole nonce space has been searched for this timestamp so
		// move the timestamp forward to get a new search space.
		if header.Nonce == math.MaxUint32 {
			header.Timestamp = time.Now().UTC().Unix()
			header.Nonce = 0
			continue
		}

		header.Nonce++
	}
}

// IsHashSolved checks the hash complies with the POW rule. The first
// difficulty characters of the hash must parse as an unsigned 32 bit
// integer equal to zero. A prefix holding a hex letter never parses. A
// difficulty of zero is always solved.
func IsHashSolved(difficulty uint32, hash string) bool {
	if difficulty == 0 {
		return true
	}

	if int(difficulty) > len(hash) {
		return false
	}

	v, err := strconv.ParseUint(hash[:difficulty], 10, 32)
	if err != nil {
		return false
	}

	return v == 0
}
