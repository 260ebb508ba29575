package state_test

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/database"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/peer"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/protocol"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/state"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/storage"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/worker"
	"github.com/ardanlabs/gossipchain/foundation/logger"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type payload = database.CryptoPayload

func ifErrFailNow(t *testing.T, err error) {
	if err != nil {
		t.Error(err)
		t.FailNow()
	}
}

func newState(t *testing.T, genesis bool, miner string) *state.State[payload] {
	log, err := logger.New("TEST")
	ifErrFailNow(t, err)
	t.Cleanup(func() { log.Sync() })

	strg, err := memory.New()
	ifErrFailNow(t, err)

	ev := func(v string, args ...any) {
		log.Infow(fmt.Sprintf(v, args...), "traceid", "00000000-0000-0000-0000-000000000000")
	}

	st, err := state.New[payload](context.Background(), state.Config{
		Host:          "127.0.0.1:0",
		MinerAddress:  miner,
		Difficulty:    0,
		CreateGenesis: genesis,
		Storage:       strg,
		EvHandler:     ev,
	})
	ifErrFailNow(t, err)

	return st
}

func pong(t *testing.T, id peer.ID, chain *database.Chain[payload]) protocol.Message {
	msg, err := protocol.NewPong(id, "127.0.0.1:1", chain)
	ifErrFailNow(t, err)
	return msg
}

func fork(t *testing.T, chain *database.Chain[payload]) *database.Chain[payload] {
	b := chain.Clone()
	_, err := b.AddNewBlock(context.Background())
	ifErrFailNow(t, err)
	return b
}

func readFrame(t *testing.T, ob *peer.Outbox) (protocol.Message, bool) {
	select {
	case frame := <-ob.Frames():
		msg, err := protocol.NewDecoder(bytes.NewReader(frame), 0).Decode()
		ifErrFailNow(t, err)
		return msg, true
	case <-time.After(100 * time.Millisecond):
		return protocol.Message{}, false
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("\t%s\tShould %s before the deadline.", failed, what)
}

// =============================================================================

func Test_ForkResolution(t *testing.T) {
	type table struct {
		name      string
		agreement int
		promoteOn int
	}

	tt := []table{
		{name: "agreement-1", agreement: 1, promoteOn: 2},
		// A chain must exceed the current agreement to be promoted, so with an
		// agreement of 2 the fork needs a third vote, not a second.
		{name: "agreement-2", agreement: 2, promoteOn: 3},
	}

	t.Log("Given the need to resolve a forked chain by majority vote.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen the accepted chain has an agreement of %d.", testID, tst.agreement)
			{
				f := func(t *testing.T) {
					ctx := context.Background()
					st := newState(t, true, "miner-a")
					ob := peer.NewOutbox(16)

					chainA, err := st.RetrieveChain()
					ifErrFailNow(t, err)

					for i := 1; i < tst.agreement; i++ {
						ifErrFailNow(t, st.Process(ctx, pong(t, peer.NewID(), chainA), ob))
					}

					if got := st.RetrieveAgreement(); got != tst.agreement {
						t.Fatalf("\t%s\tTest %d:\tShould have an agreement of %d, got %d.", failed, testID, tst.agreement, got)
					}
					t.Logf("\t%s\tTest %d:\tShould have an agreement of %d.", success, testID, tst.agreement)

					chainB := fork(t, chainA)

					for vote := 1; vote < tst.promoteOn; vote++ {
						ifErrFailNow(t, st.Process(ctx, pong(t, peer.NewID(), chainB), ob))

						current, _ := st.RetrieveChain()
						if !current.Equal(chainA) {
							t.Fatalf("\t%s\tTest %d:\tShould keep chain A after %d votes for B.", failed, testID, vote)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould keep chain A until B has more votes.", success, testID)

					ifErrFailNow(t, st.Process(ctx, pong(t, peer.NewID(), chainB), ob))

					current, _ := st.RetrieveChain()
					if !current.Equal(chainB) {
						t.Fatalf("\t%s\tTest %d:\tShould promote chain B on vote %d.", failed, testID, tst.promoteOn)
					}
					t.Logf("\t%s\tTest %d:\tShould promote chain B on vote %d.", success, testID, tst.promoteOn)

					if got := st.RetrieveAgreement(); got != tst.promoteOn {
						t.Fatalf("\t%s\tTest %d:\tShould take the vote count of B as the agreement, got %d.", failed, testID, got)
					}
					t.Logf("\t%s\tTest %d:\tShould take the vote count of B as the agreement.", success, testID)

					alt := st.RetrieveAltChains()
					if len(alt) != 1 || !alt[0].Chain.Equal(chainA) || alt[0].Count != tst.agreement {
						t.Fatalf("\t%s\tTest %d:\tShould push chain A into the cache with its agreement: %d entries.", failed, testID, len(alt))
					}
					t.Logf("\t%s\tTest %d:\tShould push chain A into the cache with its agreement.", success, testID)

					if current.MinerAddress != "miner-a" {
						t.Fatalf("\t%s\tTest %d:\tShould keep mining for the local miner, got %s.", failed, testID, current.MinerAddress)
					}
					t.Logf("\t%s\tTest %d:\tShould keep mining for the local miner.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_AltChainLimit(t *testing.T) {
	ctx := context.Background()

	st, err := state.New[payload](ctx, state.Config{
		Host:          "127.0.0.1:0",
		MinerAddress:  "miner",
		CreateGenesis: true,
		AltChainLimit: 2,
	})
	ifErrFailNow(t, err)

	chain, err := st.RetrieveChain()
	ifErrFailNow(t, err)

	ob := peer.NewOutbox(16)

	b := fork(t, chain)
	c := fork(t, b)
	d := fork(t, c)

	// b gets two votes, c one, then d pushes c out.
	for _, ch := range []*database.Chain[payload]{b, c, b} {
		ifErrFailNow(t, st.Process(ctx, pong(t, peer.NewID(), ch), ob))
	}

	current, _ := st.RetrieveChain()
	if !current.Equal(b) {
		t.Fatal("Should promote b with two votes over an agreement of one.")
	}

	// Cache: [c(1), genesis(1)]. Adding d evicts the oldest entry with the
	// fewest votes.
	ifErrFailNow(t, st.Process(ctx, pong(t, peer.NewID(), d), ob))

	alt := st.RetrieveAltChains()
	if len(alt) != 2 {
		t.Fatalf("Should keep at most 2 alternate chains, got %d.", len(alt))
	}

	if !alt[0].Chain.Equal(chain) || !alt[1].Chain.Equal(d) {
		t.Fatal("Should evict the oldest entry with the fewest votes.")
	}
}

func Test_PruneAltChains(t *testing.T) {
	ctx := context.Background()
	st := newState(t, true, "miner")
	ob := peer.NewOutbox(16)

	chain, err := st.RetrieveChain()
	ifErrFailNow(t, err)

	ifErrFailNow(t, st.Process(ctx, pong(t, peer.NewID(), fork(t, chain)), ob))

	if dropped := st.PruneAltChains(worker.DefaultPruneThreshold); dropped != 1 {
		t.Fatalf("Should drop the chain seen once, got %d.", dropped)
	}

	if len(st.RetrieveAltChains()) != 0 {
		t.Fatal("Should have an empty cache after pruning.")
	}
}

func Test_DeferredPong(t *testing.T) {
	t.Log("Given the need to handle a ping before the node has a chain.")
	{
		ctx := context.Background()
		st := newState(t, false, "miner")

		pinger := peer.NewOutbox(16)
		pingerID := peer.NewID()

		ping, err := protocol.NewPing(pingerID, "127.0.0.1:2")
		ifErrFailNow(t, err)

		ifErrFailNow(t, st.Process(ctx, ping, pinger))

		if len(st.RetrieveKnownPeers()) != 1 {
			t.Fatalf("\t%s\tShould register the peer that pinged.", failed)
		}
		t.Logf("\t%s\tShould register the peer that pinged.", success)

		if _, ok := readFrame(t, pinger); ok {
			t.Fatalf("\t%s\tShould not reply without a chain.", failed)
		}
		t.Logf("\t%s\tShould not reply without a chain.", success)

		if err := st.SubmitTransaction(database.NewTx("bill", payload{Receiver: "jill", Amount: 1})); err != state.ErrNoChain {
			t.Fatalf("\t%s\tShould reject transactions without a chain, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould reject transactions without a chain.", success)

		src, err := database.NewChain[payload](ctx, "other", 0, nil)
		ifErrFailNow(t, err)

		source := peer.NewOutbox(16)
		ifErrFailNow(t, st.Process(ctx, pong(t, peer.NewID(), src), source))

		if st.RetrieveAgreement() != 1 {
			t.Fatalf("\t%s\tShould adopt the chain with an agreement of 1.", failed)
		}
		t.Logf("\t%s\tShould adopt the chain with an agreement of 1.", success)

		msg, ok := readFrame(t, pinger)
		if !ok || msg.Type != protocol.TypePong {
			t.Fatalf("\t%s\tShould send the deferred pong once a chain is adopted.", failed)
		}
		t.Logf("\t%s\tShould send the deferred pong once a chain is adopted.", success)

		p, err := protocol.DecodePong[payload](msg)
		ifErrFailNow(t, err)

		if p.ID != st.RetrieveID() || !p.Chain.Equal(src) {
			t.Fatalf("\t%s\tShould carry the adopted chain in the pong.", failed)
		}
		t.Logf("\t%s\tShould carry the adopted chain in the pong.", success)
	}
}

func Test_RejectTamperedChain(t *testing.T) {
	ctx := context.Background()
	st := newState(t, false, "miner")

	src, err := database.NewChain[payload](ctx, "other", 0, nil)
	ifErrFailNow(t, err)
	src.Blocks[0].Transactions[0].Payload.Amount = 1_000_000

	if err := st.Process(ctx, pong(t, peer.NewID(), src), peer.NewOutbox(1)); err == nil {
		t.Fatal("Should reject a chain that doesn't verify.")
	}

	if _, err := st.RetrieveChain(); err != state.ErrNoChain {
		t.Fatal("Should not adopt a chain that doesn't verify.")
	}
}

func Test_Transactions(t *testing.T) {
	ctx := context.Background()
	st := newState(t, true, "miner")

	msg, err := protocol.NewTransaction(database.NewTx("bill", payload{Receiver: "jill", Amount: 5}))
	ifErrFailNow(t, err)

	ifErrFailNow(t, st.Process(ctx, msg, peer.NewOutbox(1)))

	if st.RetrieveStatus().Pending != 1 {
		t.Fatal("Should add the peer's transaction to the pool.")
	}

	// A cancelled mine puts the transactions back.
	cctx, cancel := context.WithCancel(ctx)
	cancel()

	if _, err := st.MineNewBlock(cctx); err == nil {
		t.Fatal("Should not mine with a cancelled context.")
	}

	if status := st.RetrieveStatus(); status.Pending != 1 || status.Blocks != 1 {
		t.Fatalf("Should requeue the transaction, got pending[%d] blocks[%d].", status.Pending, status.Blocks)
	}

	block, err := st.MineNewBlock(ctx)
	ifErrFailNow(t, err)

	if block.Count != 2 {
		t.Fatalf("Should mine the reward and the transaction, got %d.", block.Count)
	}

	if status := st.RetrieveStatus(); status.Pending != 0 || status.Blocks != 2 || status.Agreement != 1 {
		t.Fatalf("Should have a new block, got %+v.", status)
	}
}

func Test_UpdateSettings(t *testing.T) {
	st := newState(t, true, "miner")

	if err := st.UpdateDifficulty(database.MaxDifficulty + 1); err == nil {
		t.Fatal("Should reject a difficulty above the max.")
	}

	ifErrFailNow(t, st.UpdateDifficulty(1))
	ifErrFailNow(t, st.UpdateReward(7))

	status := st.RetrieveStatus()
	if status.Difficulty != 1 || status.Reward != 7 {
		t.Fatalf("Should update the settings, got %+v.", status)
	}
}

// =============================================================================

func Test_MineAndBroadcast(t *testing.T) {
	st := newState(t, true, "miner")

	worker.Run(st, worker.Config{})
	defer st.Shutdown()

	ob := peer.NewOutbox(64)
	ping, err := protocol.NewPing(peer.NewID(), "127.0.0.1:3")
	ifErrFailNow(t, err)
	ifErrFailNow(t, st.Process(context.Background(), ping, ob))

	if _, ok := readFrame(t, ob); !ok {
		t.Fatal("Should reply to the ping with a pong.")
	}

	for i := 0; i <= database.PoolThreshold; i++ {
		tx := database.NewTx("bill", payload{Receiver: fmt.Sprintf("r%d", i), Amount: 1})
		ifErrFailNow(t, st.SubmitTransaction(tx))
	}

	waitFor(t, "mine a block once the pool is full", func() bool {
		return st.RetrieveStatus().Blocks == 2
	})

	chain, err := st.RetrieveChain()
	ifErrFailNow(t, err)

	if b, _ := chain.LatestBlock(); b.Count != 22 {
		t.Fatalf("Should mine all 21 transactions plus the reward, got %d.", b.Count)
	}

	// The peer first sees the 21 transactions and then the new chain.
	var gotPong bool
	for i := 0; i <= database.PoolThreshold+1; i++ {
		msg, ok := readFrame(t, ob)
		if !ok {
			break
		}
		if msg.Type == protocol.TypePong {
			gotPong = true
		}
	}

	if !gotPong {
		t.Fatal("Should broadcast the new chain to the peers.")
	}
}

func Test_EndToEnd(t *testing.T) {
	t.Log("Given the need for two nodes to agree on a chain.")
	{
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		node1 := newState(t, false, "miner-1")
		node2 := newState(t, true, "miner-2")
		defer node1.Shutdown()
		defer node2.Shutdown()

		ifErrFailNow(t, node1.Listen(ctx))
		ifErrFailNow(t, node2.Listen(ctx))
		t.Logf("\t%s\tShould be able to listen on loopback.", success)

		ifErrFailNow(t, node1.Dial(ctx, node2.RetrieveHost()))
		t.Logf("\t%s\tShould be able to dial node 2.", success)

		waitFor(t, "register node 1 on node 2", func() bool {
			return len(node2.RetrieveKnownPeers()) == 1
		})
		t.Logf("\t%s\tShould register node 1 on node 2.", success)

		waitFor(t, "adopt the chain of node 2", func() bool {
			return node1.RetrieveStatus().Synced
		})

		chain1, err := node1.RetrieveChain()
		ifErrFailNow(t, err)
		chain2, err := node2.RetrieveChain()
		ifErrFailNow(t, err)

		if !chain1.Equal(chain2) || node1.RetrieveAgreement() != 1 {
			t.Fatalf("\t%s\tShould adopt the chain of node 2 with an agreement of 1.", failed)
		}
		t.Logf("\t%s\tShould adopt the chain of node 2 with an agreement of 1.", success)

		if peers := node1.RetrieveKnownPeers(); len(peers) != 1 || peers[0].ID != node2.RetrieveID() {
			t.Fatalf("\t%s\tShould register node 2 on node 1.", failed)
		}
		t.Logf("\t%s\tShould register node 2 on node 1.", success)

		ifErrFailNow(t, node2.BroadcastChain())

		waitFor(t, "raise the agreement to 2", func() bool {
			return node1.RetrieveAgreement() == 2
		})
		t.Logf("\t%s\tShould raise the agreement to 2 on an identical pong.", success)
	}
}

// =============================================================================

// acceptCounter listens on loopback and counts the connections it accepts.
// The connections are held open and never answered.
func acceptCounter(t *testing.T) (string, *atomic.Int32) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	ifErrFailNow(t, err)

	var conns []net.Conn
	done := make(chan struct{})
	var count atomic.Int32

	go func() {
		defer close(done)
		for {
			nc, err := ln.Accept()
			if err != nil {
				return
			}
			conns = append(conns, nc)
			count.Add(1)
		}
	}()

	t.Cleanup(func() {
		ln.Close()
		<-done
		for _, nc := range conns {
			nc.Close()
		}
	})

	return ln.Addr().String(), &count
}

func peerList(t *testing.T, peers ...peer.Peer) protocol.Message {
	msg, err := protocol.NewPeerList(peers)
	ifErrFailNow(t, err)
	return msg
}

func Test_PeerListDial(t *testing.T) {
	t.Log("Given the need to connect to the peers learned from a peer list.")
	{
		ctx := context.Background()

		st, err := state.New[payload](ctx, state.Config{
			Host:          "127.0.0.1:0",
			MinerAddress:  "miner",
			CreateGenesis: true,
			DialBackoff:   time.Minute,
		})
		ifErrFailNow(t, err)
		defer st.Shutdown()

		ob := peer.NewOutbox(16)

		other, otherCount := acceptCounter(t)
		selfAddr, selfCount := acceptCounter(t)

		list := peerList(t,
			peer.New(peer.NewID(), other),
			peer.New(st.RetrieveID(), selfAddr),
		)

		for i := 0; i < 2; i++ {
			ifErrFailNow(t, st.Process(ctx, list, ob))
		}

		waitFor(t, "dial the listed peer", func() bool {
			return otherCount.Load() > 0
		})
		time.Sleep(200 * time.Millisecond)

		if got := otherCount.Load(); got != 1 {
			t.Fatalf("\t%s\tShould dial the listed peer once within the backoff window, got %d.", failed, got)
		}
		t.Logf("\t%s\tShould dial the listed peer once within the backoff window.", success)

		if got := selfCount.Load(); got != 0 {
			t.Fatalf("\t%s\tShould not dial an entry carrying its own id, got %d.", failed, got)
		}
		t.Logf("\t%s\tShould not dial an entry carrying its own id.", success)
	}
}

func Test_PeerListRateLimit(t *testing.T) {
	t.Log("Given the need to limit the dials a peer list can trigger.")
	{
		ctx := context.Background()

		st, err := state.New[payload](ctx, state.Config{
			Host:          "127.0.0.1:0",
			MinerAddress:  "miner",
			CreateGenesis: true,
			DialRate:      0.1,
		})
		ifErrFailNow(t, err)
		defer st.Shutdown()

		addr1, count1 := acceptCounter(t)
		addr2, count2 := acceptCounter(t)

		list := peerList(t, peer.New(peer.NewID(), addr1), peer.New(peer.NewID(), addr2))
		ifErrFailNow(t, st.Process(ctx, list, peer.NewOutbox(16)))

		waitFor(t, "dial the first listed peer", func() bool {
			return count1.Load() > 0
		})
		time.Sleep(200 * time.Millisecond)

		if got := count1.Load() + count2.Load(); got != 1 {
			t.Fatalf("\t%s\tShould only dial once with a burst of one, got %d.", failed, got)
		}
		t.Logf("\t%s\tShould only dial once with a burst of one.", success)
	}
}

func Test_Gossip(t *testing.T) {
	t.Log("Given the need for nodes to learn about each other through a hub.")
	{
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		node1 := newState(t, false, "miner-1")
		hub := newState(t, true, "miner-hub")
		node3 := newState(t, false, "miner-3")
		defer node1.Shutdown()
		defer hub.Shutdown()
		defer node3.Shutdown()

		for _, n := range []*state.State[payload]{node1, hub, node3} {
			ifErrFailNow(t, n.Listen(ctx))
		}

		worker.Run(hub, worker.Config{GossipInterval: 50 * time.Millisecond})

		ifErrFailNow(t, node1.Dial(ctx, hub.RetrieveHost()))
		ifErrFailNow(t, node3.Dial(ctx, hub.RetrieveHost()))
		t.Logf("\t%s\tShould be able to dial the hub.", success)

		knows := func(n *state.State[payload], id peer.ID) bool {
			for _, p := range n.RetrieveKnownPeers() {
				if p.ID == id {
					return true
				}
			}
			return false
		}

		waitFor(t, "teach node 1 about node 3", func() bool {
			return knows(node1, node3.RetrieveID())
		})
		t.Logf("\t%s\tShould teach node 1 about node 3.", success)

		waitFor(t, "teach node 3 about node 1", func() bool {
			return knows(node3, node1.RetrieveID())
		})
		t.Logf("\t%s\tShould teach node 3 about node 1.", success)

		waitFor(t, "sync both nodes", func() bool {
			return node1.RetrieveStatus().Synced && node3.RetrieveStatus().Synced
		})
		t.Logf("\t%s\tShould sync both nodes with the hub chain.", success)
	}
}

func Test_PruneOperation(t *testing.T) {
	t.Log("Given the need to drop rarely seen alternate chains over time.")
	{
		st := newState(t, true, "miner")
		worker.Run(st, worker.Config{PruneInterval: 50 * time.Millisecond, PruneThreshold: 1})
		defer st.Shutdown()

		chain, err := st.RetrieveChain()
		ifErrFailNow(t, err)

		ifErrFailNow(t, st.Process(context.Background(), pong(t, peer.NewID(), fork(t, chain)), peer.NewOutbox(16)))

		waitFor(t, "prune the alternate chain", func() bool {
			return len(st.RetrieveAltChains()) == 0
		})
		t.Logf("\t%s\tShould prune the alternate chain with a single vote.", success)
	}
}

func Test_DialKnownPeersDropsStale(t *testing.T) {
	t.Log("Given the need to forget remembered peers that are gone.")
	{
		ctx := context.Background()

		strg, err := memory.New()
		ifErrFailNow(t, err)

		// Reserve a loopback port nothing listens on.
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		ifErrFailNow(t, err)
		gone := ln.Addr().String()
		ln.Close()

		pb := storage.NewPeerBook(strg)
		ifErrFailNow(t, pb.Save(peer.New(peer.NewID(), gone)))

		st, err := state.New[payload](ctx, state.Config{
			Host:          "127.0.0.1:0",
			MinerAddress:  "miner",
			CreateGenesis: true,
			Storage:       strg,
		})
		ifErrFailNow(t, err)
		defer st.Shutdown()

		st.DialKnownPeers(ctx)

		peers, err := pb.Load()
		ifErrFailNow(t, err)

		if len(peers) != 0 {
			t.Fatalf("\t%s\tShould drop the unreachable peer from the book, got %v.", failed, peers)
		}
		t.Logf("\t%s\tShould drop the unreachable peer from the book.", success)
	}
}

func Test_AdvertiseHost(t *testing.T) {
	t.Log("Given the need to advertise a routable address to peers.")
	{
		ctx := context.Background()

		st, err := state.New[payload](ctx, state.Config{
			Host:          "127.0.0.1:0",
			AdvertiseHost: "node.example:9080",
			MinerAddress:  "miner",
			CreateGenesis: true,
		})
		ifErrFailNow(t, err)
		defer st.Shutdown()

		ifErrFailNow(t, st.Listen(ctx))

		if got := st.RetrieveHost(); got != "node.example:9080" {
			t.Fatalf("\t%s\tShould keep the advertised host after binding, got %s.", failed, got)
		}
		t.Logf("\t%s\tShould keep the advertised host after binding.", success)

		ob := peer.NewOutbox(16)
		ping, err := protocol.NewPing(peer.NewID(), "127.0.0.1:1")
		ifErrFailNow(t, err)
		ifErrFailNow(t, st.Process(ctx, ping, ob))

		msg, ok := readFrame(t, ob)
		if !ok {
			t.Fatalf("\t%s\tShould reply to the ping.", failed)
		}

		pg, err := protocol.DecodePong[payload](msg)
		ifErrFailNow(t, err)

		if pg.Addr != "node.example:9080" {
			t.Fatalf("\t%s\tShould send the advertised host in the pong, got %s.", failed, pg.Addr)
		}
		t.Logf("\t%s\tShould send the advertised host in the pong.", success)
	}
}
