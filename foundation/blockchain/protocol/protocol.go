// Package protocol defines the messages nodes exchange and how they are
// framed on the wire. Every message is a JSON object terminated by a single
// newline.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/database"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/peer"
)

// Set of message types in the vocabulary.
const (
	TypePing        = "ping"
	TypePong        = "pong"
	TypePeerList    = "peer_list"
	TypeTransaction = "transaction"
)

// Message is the envelope for every message on the wire. The payload is
// decoded based on the type.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Ping is the handshake request.
type Ping struct {
	ID   peer.ID `json:"id"`
	Addr string  `json:"addr"`
}

// Pong is the handshake response and the announcement of a chain.
type Pong[P database.Payload[P]] struct {
	ID    peer.ID            `json:"id"`
	Addr  string             `json:"addr"`
	Chain *database.Chain[P] `json:"chain"`
}

// PeerList is the gossip broadcast of the known peers.
type PeerList struct {
	Peers []peer.Peer `json:"peers"`
}

// Transaction broadcasts a new transaction.
type Transaction[P database.Payload[P]] struct {
	Tx database.Tx[P] `json:"tx"`
}

// =============================================================================

// NewPing constructs a ping message.
func NewPing(id peer.ID, addr string) (Message, error) {
	return newMessage(TypePing, Ping{ID: id, Addr: addr})
}

// NewPong constructs a pong message carrying the chain.
func NewPong[P database.Payload[P]](id peer.ID, addr string, chain *database.Chain[P]) (Message, error) {
	return newMessage(TypePong, Pong[P]{ID: id, Addr: addr, Chain: chain})
}

// NewPeerList constructs a peer list message.
func NewPeerList(peers []peer.Peer) (Message, error) {
	if peers == nil {
		peers = []peer.Peer{}
	}
	return newMessage(TypePeerList, PeerList{Peers: peers})
}

// NewTransaction constructs a transaction message.
func NewTransaction[P database.Payload[P]](tx database.Tx[P]) (Message, error) {
	return newMessage(TypeTransaction, Transaction[P]{Tx: tx})
}

func newMessage(typ string, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s: %w", typ, err)
	}

	return Message{Type: typ, Payload: data}, nil
}

// =============================================================================

// DecodePing decodes the payload of a ping message.
func DecodePing(msg Message) (Ping, error) {
	var ping Ping
	if err := decodePayload(msg, TypePing, &ping); err != nil {
		return Ping{}, err
	}
	return ping, nil
}

// DecodePong decodes the payload of a pong message.
func DecodePong[P database.Payload[P]](msg Message) (Pong[P], error) {
	var pong Pong[P]
	if err := decodePayload(msg, TypePong, &pong); err != nil {
		return Pong[P]{}, err
	}

	if pong.Chain == nil || pong.Chain.Length() == 0 {
		return Pong[P]{}, fmt.Errorf("%w: pong without a chain", ErrDecode)
	}

	return pong, nil
}

// DecodePeerList decodes the payload of a peer list message.
func DecodePeerList(msg Message) (PeerList, error) {
	var pl PeerList
	if err := decodePayload(msg, TypePeerList, &pl); err != nil {
		return PeerList{}, err
	}
	return pl, nil
}

// DecodeTransaction decodes the payload of a transaction message.
func DecodeTransaction[P database.Payload[P]](msg Message) (Transaction[P], error) {
	var tx Transaction[P]
	if err := decodePayload(msg, TypeTransaction, &tx); err != nil {
		return Transaction[P]{}, err
	}
	return tx, nil
}

func decodePayload(msg Message, typ string, v any) error {
	if msg.Type != typ {
		return fmt.Errorf("%w: got type %q, exp %q", ErrDecode, msg.Type, typ)
	}

	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrDecode, typ, err)
	}

	return nil
}
