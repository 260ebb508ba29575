package public

import (
	"github.com/ardanlabs/gossipchain/foundation/blockchain/database"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/peer"
)

type block[P database.Payload[P]] struct {
	Number       int              `json:"number"`
	Hash         string           `json:"hash"`
	PrevHash     string           `json:"prev_hash"`
	Merkle       string           `json:"merkle"`
	Timestamp    int64            `json:"timestamp"`
	Nonce        uint32           `json:"nonce"`
	Difficulty   uint32           `json:"difficulty"`
	Count        uint32           `json:"count"`
	Transactions []database.Tx[P] `json:"transactions"`
}

type altChain struct {
	Count      int    `json:"count"`
	Blocks     int    `json:"blocks"`
	LatestHash string `json:"latest_hash"`
}

type peerInfo struct {
	ID   peer.ID `json:"id"`
	Addr string  `json:"addr"`
}

type status struct {
	Status string `json:"status"`
}
