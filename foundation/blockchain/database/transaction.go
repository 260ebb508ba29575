package database

import (
	"fmt"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/digest"
)

// Tx is a transaction stored in a block of the blockchain. Nothing changes a
// transaction after it is constructed, so it is passed around by value and
// read concurrently without a lock.
type Tx[P Payload[P]] struct {
	Sender  string `json:"sender" validate:"required"`
	Payload P      `json:"payload"`
}

// NewTx constructs a new transaction.
func NewTx[P Payload[P]](sender string, payload P) Tx[P] {
	return Tx[P]{
		Sender:  sender,
		Payload: payload,
	}
}

// GenesisTx mints the reward transaction that opens every block.
func GenesisTx[P Payload[P]](minerAddress string, reward uint32) Tx[P] {
	var zero P

	return Tx[P]{
		Sender:  GenesisSender,
		Payload: zero.Genesis(minerAddress, reward),
	}
}

// Hash implements the merkle Hashable interface.
func (tx Tx[P]) Hash() (string, error) {
	return digest.Hash(tx)
}

// Equals implements the merkle Hashable interface.
func (tx Tx[P]) Equals(other Tx[P]) bool {
	return tx.Sender == other.Sender && tx.Payload.Equals(other.Payload)
}

// Clone returns a copy of the transaction with a cloned payload.
func (tx Tx[P]) Clone() Tx[P] {
	return Tx[P]{
		Sender:  tx.Sender,
		Payload: tx.Payload.Clone(),
	}
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx[P]) String() string {
	return fmt.Sprintf("%s: %s", tx.Sender, tx.Payload)
}
