package state

import (
	"github.com/ardanlabs/gossipchain/foundation/blockchain/database"
)

// AltChain is a chain that disagrees with the accepted chain and the number
// of times it has been observed.
type AltChain[P database.Payload[P]] struct {
	Count int                `json:"count"`
	Chain *database.Chain[P] `json:"chain"`
}

// AltChains is the bounded cache of alternate chains. Entries are kept in
// the order they were added. It is not safe for concurrent use; the State
// lock guards it.
type AltChains[P database.Payload[P]] struct {
	limit   int
	entries []AltChain[P]
}

// NewAltChains constructs a cache holding at most limit chains.
func NewAltChains[P database.Payload[P]](limit int) *AltChains[P] {
	return &AltChains[P]{
		limit: limit,
	}
}

// Add records the chain with the specified count. When the cache is full
// the entry with the fewest votes is evicted, the oldest one on a tie.
func (ac *AltChains[P]) Add(chain *database.Chain[P], count int) {
	if ac.limit > 0 && len(ac.entries) >= ac.limit {
		evict := 0
		for i, e := range ac.entries {
			if e.Count < ac.entries[evict].Count {
				evict = i
			}
		}
		ac.remove(evict)
	}

	ac.entries = append(ac.entries, AltChain[P]{Count: count, Chain: chain})
}

// Find returns the index of the first entry holding a chain equal to the
// specified chain.
func (ac *AltChains[P]) Find(chain *database.Chain[P]) (int, bool) {
	for i, e := range ac.entries {
		if e.Chain.Equal(chain) {
			return i, true
		}
	}

	return -1, false
}

// Vote increments the count of the entry and returns the new count.
func (ac *AltChains[P]) Vote(i int) int {
	ac.entries[i].Count++
	return ac.entries[i].Count
}

// Take removes the entry and returns it.
func (ac *AltChains[P]) Take(i int) AltChain[P] {
	e := ac.entries[i]
	ac.remove(i)
	return e
}

// Prune drops every entry whose count is at or below the threshold and
// returns the number dropped.
func (ac *AltChains[P]) Prune(threshold int) int {
	keep := ac.entries[:0]
	for _, e := range ac.entries {
		if e.Count > threshold {
			keep = append(keep, e)
		}
	}

	dropped := len(ac.entries) - len(keep)
	for i := len(keep); i < len(ac.entries); i++ {
		ac.entries[i] = AltChain[P]{}
	}
	ac.entries = keep

	return dropped
}

// Len returns the number of cached chains.
func (ac *AltChains[P]) Len() int {
	return len(ac.entries)
}

// Copy returns a deep copy of the entries.
func (ac *AltChains[P]) Copy() []AltChain[P] {
	out := make([]AltChain[P], len(ac.entries))
	for i, e := range ac.entries {
		out[i] = AltChain[P]{Count: e.Count, Chain: e.Chain.Clone()}
	}
	return out
}

func (ac *AltChains[P]) remove(i int) {
	copy(ac.entries[i:], ac.entries[i+1:])
	ac.entries[len(ac.entries)-1] = AltChain[P]{}
	ac.entries = ac.entries[:len(ac.entries)-1]
}

// =============================================================================

// resolve runs the majority vote for a chain that disagrees with the
// accepted chain. The caller must hold the write lock and have a chain.
func (s *State[P]) resolve(chain *database.Chain[P]) {
	if s.alt.Len() == 0 {
		s.evHandler("state: resolve: first alternate chain: blocks[%d]", chain.Length())
		s.alt.Add(chain, 1)
		return
	}

	i, found := s.alt.Find(chain)
	if !found {
		s.evHandler("state: resolve: new alternate chain: blocks[%d]: cached[%d]", chain.Length(), s.alt.Len())
		s.alt.Add(chain, 1)
		return
	}

	count := s.alt.Vote(i)
	s.evHandler("state: resolve: alternate chain vote: count[%d]: agreement[%d]", count, s.agreement)

	if count <= s.agreement {
		return
	}

	promoted := s.alt.Take(i)
	prev, prevCount := s.chain, s.agreement

	s.evHandler("state: resolve: PROMOTE: blocks[%d]: count[%d]: replaced blocks[%d]: count[%d]", promoted.Chain.Length(), promoted.Count, prev.Length(), prevCount)

	s.replaceChain(promoted.Chain, promoted.Count)
	s.alt.Add(prev, prevCount)
}

// replaceChain makes the chain the accepted chain. The caller must hold the
// write lock.
func (s *State[P]) replaceChain(chain *database.Chain[P], count int) {
	chain.WithEventHandler(s.evHandler)

	// Blocks this node mines on the adopted chain pay this node's miner.
	if s.minerAddress != "" {
		chain.MinerAddress = s.minerAddress
	}

	s.chain = chain
	s.agreement = count

	if s.Worker != nil {
		s.Worker.SignalCancelMining()
	}
}

// PruneAltChains drops the alternate chains seen threshold times or less.
func (s *State[P]) PruneAltChains(threshold int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := s.alt.Prune(threshold)
	s.evHandler("state: PruneAltChains: threshold[%d]: dropped[%d]: kept[%d]", threshold, dropped, s.alt.Len())

	return dropped
}
