package state

import (
	"github.com/ardanlabs/gossipchain/foundation/blockchain/database"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/peer"
)

// Status represents a summary of the node.
type Status struct {
	ID         peer.ID `json:"id"`
	Host       string  `json:"host"`
	Synced     bool    `json:"synced"`
	Agreement  int     `json:"agreement"`
	Blocks     int     `json:"blocks"`
	Pending    int     `json:"pending"`
	Difficulty uint32  `json:"difficulty"`
	Reward     uint32  `json:"reward"`
	LatestHash string  `json:"latest_hash"`
	Peers      int     `json:"peers"`
	AltChains  int     `json:"alt_chains"`
}

// RetrieveStatus returns a summary of the node.
func (s *State[P]) RetrieveStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		ID:        s.id,
		Host:      s.host,
		Agreement: s.agreement,
		Peers:     s.peers.Len(),
		AltChains: s.alt.Len(),
	}

	if s.chain != nil {
		st.Synced = true
		st.Blocks = s.chain.Length()
		st.Pending = s.chain.PendingCount()
		st.Difficulty = s.chain.Difficulty
		st.Reward = s.chain.Reward
		if hash, err := s.chain.LastHash(); err == nil {
			st.LatestHash = hash
		}
	}

	return st
}

// RetrieveChain returns a copy of the accepted chain.
func (s *State[P]) RetrieveChain() (*database.Chain[P], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.chain == nil {
		return nil, ErrNoChain
	}

	return s.chain.Clone(), nil
}

// RetrieveAgreement returns the number of times the accepted chain has been
// observed.
func (s *State[P]) RetrieveAgreement() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.agreement
}

// RetrieveAltChains returns a copy of the alternate chain cache.
func (s *State[P]) RetrieveAltChains() []AltChain[P] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.alt.Copy()
}

// RetrieveKnownPeers returns a copy of the known peers.
func (s *State[P]) RetrieveKnownPeers() []peer.Peer {
	return s.peers.Copy()
}

// RetrieveID returns the identity of this node.
func (s *State[P]) RetrieveID() peer.ID {
	return s.id
}

// RetrieveHost returns the address this node listens on.
func (s *State[P]) RetrieveHost() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.host
}
