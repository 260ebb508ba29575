// Package worker implements mining, peer list gossip, and alternate chain
// pruning for the blockchain node.
package worker

import (
	"sync"
	"time"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/database"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/state"
)

// Set of default values for the periodic operations.
const (
	DefaultGossipInterval = 3 * time.Second
	DefaultPruneInterval  = 30 * time.Minute
	DefaultPruneThreshold = 50
)

// Config represents the settings for the background operations.
type Config struct {
	GossipInterval time.Duration
	PruneInterval  time.Duration
	PruneThreshold int
	EvHandler      state.EventHandler
}

// =============================================================================

// Worker manages the POW workflows and periodic maintenance for the node.
type Worker[P database.Payload[P]] struct {
	state          *state.State[P]
	wg             sync.WaitGroup
	gossipTicker   *time.Ticker
	pruneTicker    *time.Ticker
	pruneThreshold int
	shut           chan struct{}
	startMining    chan bool
	cancelMining   chan bool
	evHandler      state.EventHandler
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes.
func Run[P database.Payload[P]](st *state.State[P], cfg Config) *Worker[P] {
	gossip := cfg.GossipInterval
	if gossip <= 0 {
		gossip = DefaultGossipInterval
	}

	prune := cfg.PruneInterval
	if prune <= 0 {
		prune = DefaultPruneInterval
	}

	threshold := cfg.PruneThreshold
	if threshold <= 0 {
		threshold = DefaultPruneThreshold
	}

	ev := cfg.EvHandler
	if ev == nil {
		ev = func(string, ...any) {}
	}

	w := Worker[P]{
		state:          st,
		gossipTicker:   time.NewTicker(gossip),
		pruneTicker:    time.NewTicker(prune),
		pruneThreshold: threshold,
		shut:           make(chan struct{}),
		startMining:    make(chan bool, 1),
		cancelMining:   make(chan bool, 1),
		evHandler:      ev,
	}

	// Register this worker with the state package.
	st.Worker = &w

	// Load the set of operations we need to run.
	operations := []func(){
		w.miningOperations,
		w.gossipOperations,
		w.pruneOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}

	return &w
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutines performing work.
func (w *Worker[P]) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: stop tickers")
	w.gossipTicker.Stop()
	w.pruneTicker.Stop()

	w.evHandler("worker: shutdown: signal cancel mining")
	w.SignalCancelMining()

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// SignalStartMining starts a mining operation. If there is already a signal
// pending in the channel, just return since a mining operation will start.
// This is called with the state lock held so it must never block.
func (w *Worker[P]) SignalStartMining() {
	select {
	case w.startMining <- true:
	default:
	}
	w.evHandler("worker: SignalStartMining: mining signaled")
}

// SignalCancelMining signals the G executing the runMiningOperation function
// to stop immediately. This is called with the state lock held so it must
// never block.
func (w *Worker[P]) SignalCancelMining() {
	select {
	case w.cancelMining <- true:
	default:
	}
	w.evHandler("worker: SignalCancelMining: MINING: CANCEL: signaled")
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker[P]) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
