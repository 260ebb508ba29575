package database

import "fmt"

// GenesisSender is the sender recorded on the reward transaction that opens
// every block.
const GenesisSender = "Root"

// Payload represents the behavior every payload kind must provide to be
// carried by a transaction. Genesis is called on the zero value of the type
// to mint the reward payload of a new block.
type Payload[P any] interface {
	Genesis(minerAddress string, reward uint32) P
	Equals(other P) bool
	Clone() P
	fmt.Stringer
}

// =============================================================================

// CryptoPayload moves coins from the sender to the receiver.
type CryptoPayload struct {
	Receiver string `json:"receiver" validate:"required"`
	Amount   uint32 `json:"amount" validate:"gt=0"`
}

// Genesis pays the block reward to the miner.
func (CryptoPayload) Genesis(minerAddress string, reward uint32) CryptoPayload {
	return CryptoPayload{
		Receiver: minerAddress,
		Amount:   reward,
	}
}

// Equals implements the Payload interface.
func (p CryptoPayload) Equals(other CryptoPayload) bool {
	return p == other
}

// Clone implements the Payload interface.
func (p CryptoPayload) Clone() CryptoPayload {
	return p
}

// String implements the fmt.Stringer interface.
func (p CryptoPayload) String() string {
	return fmt.Sprintf("CryptoPayload { receiver: %q, amount: %d }", p.Receiver, p.Amount)
}

// =============================================================================

// VotePayload records the party the sender voted for.
type VotePayload struct {
	Vote string `json:"vote" validate:"required"`
}

// Genesis opens the block with a vote for the root party. Voting systems
// carry no reward.
func (VotePayload) Genesis(string, uint32) VotePayload {
	return VotePayload{Vote: GenesisSender}
}

// Equals implements the Payload interface.
func (p VotePayload) Equals(other VotePayload) bool {
	return p == other
}

// Clone implements the Payload interface.
func (p VotePayload) Clone() VotePayload {
	return p
}

// String implements the fmt.Stringer interface.
func (p VotePayload) String() string {
	return fmt.Sprintf("VotePayload { vote: %q }", p.Vote)
}

// =============================================================================

// CodePayload is a versioned file commit.
type CodePayload struct {
	FileName      string `json:"file_name" validate:"required"`
	Contents      string `json:"contents"`
	CommitMessage string `json:"commit_message" validate:"required"`
}

// Genesis initializes the repository with an empty readme.
func (CodePayload) Genesis(string, uint32) CodePayload {
	return CodePayload{
		FileName:      "Readme.md",
		Contents:      "",
		CommitMessage: "Initialize Repository",
	}
}

// Equals implements the Payload interface.
func (p CodePayload) Equals(other CodePayload) bool {
	return p == other
}

// Clone implements the Payload interface.
func (p CodePayload) Clone() CodePayload {
	return p
}

// String implements the fmt.Stringer interface.
func (p CodePayload) String() string {
	return fmt.Sprintf("CodePayload { file_name: %q, contents: %d bytes, commit_message: %q }", p.FileName, len(p.Contents), p.CommitMessage)
}
