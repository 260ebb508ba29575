// Package state is the core API for the blockchain node and implements all
// the gossip and consensus rules.
package state

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/database"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/peer"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/storage"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Set of default values used when the config leaves them zero.
const (
	DefaultAltChainLimit = 64
	DefaultDialBackoff   = 30 * time.Second
	DefaultDialRate      = 10
)

// Set of error variables for the node.
var (
	ErrNoChain      = errors.New("node has no chain yet")
	ErrChainChanged = errors.New("chain changed while mining")
	ErrUnknownPeer  = peer.ErrUnknownPeer
)

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of the node.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining and the periodic maintenance.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining()
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	ID            peer.ID
	Host          string
	AdvertiseHost string
	MinerAddress  string
	Difficulty    uint32
	CreateGenesis bool
	Storage       storage.Storage
	KnownPeers    []string
	OutboxSize    int
	MaxFrameSize  int
	AltChainLimit int
	DialBackoff   time.Duration
	DialRate      float64
	EvHandler     EventHandler
}

// State manages the node: the accepted chain, the alternate chains it has
// seen, and the peers it talks to.
type State[P database.Payload[P]] struct {
	id           peer.ID
	minerAddress string
	difficulty   uint32
	knownPeers   []string
	outboxSize   int
	maxFrameSize int
	evHandler    EventHandler

	listenHost string
	advertised bool

	mu        sync.RWMutex
	host      string
	chain     *database.Chain[P]
	agreement int
	alt       *AltChains[P]
	deferred  []peer.ID

	peers    *peer.Set
	storage  storage.Storage
	peerBook *storage.PeerBook
	dials    *cache.Cache
	limiter  *rate.Limiter

	netMu    sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	netWG    sync.WaitGroup
	shut     chan struct{}

	Worker Worker
}

// New constructs the node state. When CreateGenesis is set a new chain is
// mined, otherwise the node waits to adopt a chain from a peer.
func New[P database.Payload[P]](ctx context.Context, cfg Config) (*State[P], error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	id := cfg.ID
	if id == (peer.ID{}) {
		id = peer.NewID()
	}

	altLimit := cfg.AltChainLimit
	if altLimit <= 0 {
		altLimit = DefaultAltChainLimit
	}

	backoff := cfg.DialBackoff
	if backoff <= 0 {
		backoff = DefaultDialBackoff
	}

	dialRate := cfg.DialRate
	if dialRate <= 0 {
		dialRate = DefaultDialRate
	}

	burst := int(dialRate)
	if burst < 1 {
		burst = 1
	}

	s := State[P]{
		id:           id,
		minerAddress: cfg.MinerAddress,
		difficulty:   cfg.Difficulty,
		knownPeers:   cfg.KnownPeers,
		outboxSize:   cfg.OutboxSize,
		maxFrameSize: cfg.MaxFrameSize,
		evHandler:    ev,

		listenHost: cfg.Host,
		advertised: cfg.AdvertiseHost != "",

		host: cfg.Host,
		alt:  NewAltChains[P](altLimit),

		peers:   peer.NewSet(),
		storage: cfg.Storage,
		dials:   cache.New(backoff, 2*backoff),
		limiter: rate.NewLimiter(rate.Limit(dialRate), burst),

		conns: make(map[net.Conn]struct{}),
		shut:  make(chan struct{}),
	}

	// Peers learn the host from Ping and Pong messages and gossip it on, so
	// it must be an address they can dial.
	if s.advertised {
		s.host = cfg.AdvertiseHost
	}

	if cfg.Storage != nil {
		s.peerBook = storage.NewPeerBook(cfg.Storage)
	}

	if cfg.CreateGenesis {
		ev("state: New: mining genesis: miner[%s]: difficulty[%d]", cfg.MinerAddress, cfg.Difficulty)

		chain, err := database.NewChain[P](ctx, cfg.MinerAddress, cfg.Difficulty, ev)
		if err != nil {
			return nil, err
		}

		s.chain = chain
		s.agreement = 1
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &s, nil
}

// Shutdown cleanly brings the node down.
func (s *State[P]) Shutdown() error {
	s.evHandler("state: Shutdown: started")
	defer s.evHandler("state: Shutdown: completed")

	// Make sure the database is properly closed.
	defer func() {
		if s.storage != nil {
			s.storage.Close()
		}
	}()

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	s.closeNetwork()

	return nil
}
