package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/gossipchain/app/services/node/handlers"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/database"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/state"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/storage"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/storage/badger"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/storage/leveldb"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/worker"
	"github.com/ardanlabs/gossipchain/foundation/events"
	"github.com/ardanlabs/gossipchain/foundation/logger"
	"github.com/ardanlabs/gossipchain/foundation/nameservice"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

// config is all the configuration for the application and the default values.
type config struct {
	conf.Version
	Web struct {
		ReadTimeout     time.Duration `conf:"default:5s"`
		WriteTimeout    time.Duration `conf:"default:10s"`
		IdleTimeout     time.Duration `conf:"default:120s"`
		ShutdownTimeout time.Duration `conf:"default:20s"`
		DebugHost       string        `conf:"default:0.0.0.0:7080"`
		PublicHost      string        `conf:"default:0.0.0.0:8080"`
	}
	Node struct {
		Host           string        `conf:"default:0.0.0.0:9080"`
		AdvertiseHost  string        `conf:"help:routable address sent to peers instead of the bound address"`
		KnownPeers     []string
		Genesis        bool          `conf:"default:false"`
		Payload        string        `conf:"default:crypto"`
		OutboxSize     int           `conf:"default:256"`
		MaxFrameSize   int           `conf:"default:33554432"`
		GossipInterval time.Duration `conf:"default:3s"`
		PruneInterval  time.Duration `conf:"default:30m"`
		PruneThreshold int           `conf:"default:50"`
		AltChainLimit  int           `conf:"default:64"`
		DialBackoff    time.Duration `conf:"default:30s"`
		DialRate       float64       `conf:"default:10"`
	}
	Chain struct {
		MinerAddress string `conf:"default:miner1"`
		MinerKeyFile string
		Difficulty   uint32 `conf:"default:1"`
	}
	Storage struct {
		Backend string `conf:"default:badger"`
		Path    string `conf:"default:zblock/node"`
	}
	NameService struct {
		Folder string `conf:"default:zblock/keys/"`
	}
}

func main() {

	// Construct the application logger.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := config{
		Version: conf.Version{
			Build: build,
			Desc:  "gossip blockchain node",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// The blockchain packages are generic over the payload carried by the
	// transactions, so the payload kind picks the instantiation.
	switch cfg.Node.Payload {
	case "crypto":
		return start[database.CryptoPayload](log, cfg)
	case "vote":
		return start[database.VotePayload](log, cfg)
	case "code":
		return start[database.CodePayload](log, cfg)
	}

	return fmt.Errorf("unknown payload kind %q, expecting crypto|vote|code", cfg.Node.Payload)
}

func start[P database.Payload[P]](log *zap.SugaredLogger, cfg config) error {

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build, "payload", cfg.Node.Payload)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Name Service Support

	// The nameservice package provides name resolution for miner addresses.
	// The names come from the key file names in the configured folder.
	ns, err := nameservice.New(cfg.NameService.Folder)
	if err != nil {
		return fmt.Errorf("unable to load miner name service: %w", err)
	}

	// Logging the miners for documentation in the logs.
	for address, name := range ns.Copy() {
		log.Infow("startup", "status", "nameservice", "name", name, "address", address)
	}

	// =========================================================================
	// Blockchain Support

	// When a key file is configured, the miner is credited by the address of
	// its public key.
	minerAddress := cfg.Chain.MinerAddress
	if cfg.Chain.MinerKeyFile != "" {
		privateKey, err := crypto.LoadECDSA(cfg.Chain.MinerKeyFile)
		if err != nil {
			return fmt.Errorf("unable to load private key for node: %w", err)
		}
		minerAddress = crypto.PubkeyToAddress(privateKey.PublicKey).Hex()
	}
	log.Infow("startup", "status", "miner", "name", ns.Lookup(minerAddress), "address", minerAddress)

	strg, err := openStorage(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}

	// The blockchain packages accept a function of this signature to allow the
	// application to log. These raw messages are also sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New(events.DefaultBuffer)
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The state value represents the blockchain node and manages the accepted
	// chain, the alternate chains, and the peer connections.
	st, err := state.New[P](ctx, state.Config{
		Host:          cfg.Node.Host,
		AdvertiseHost: cfg.Node.AdvertiseHost,
		MinerAddress:  minerAddress,
		Difficulty:    cfg.Chain.Difficulty,
		CreateGenesis: cfg.Node.Genesis,
		Storage:       strg,
		KnownPeers:    cfg.Node.KnownPeers,
		OutboxSize:    cfg.Node.OutboxSize,
		MaxFrameSize:  cfg.Node.MaxFrameSize,
		AltChainLimit: cfg.Node.AltChainLimit,
		DialBackoff:   cfg.Node.DialBackoff,
		DialRate:      cfg.Node.DialRate,
		EvHandler:     ev,
	})
	if err != nil {
		strg.Close()
		return err
	}
	defer st.Shutdown()

	// The worker package implements mining, peer list gossip, and the pruning
	// of alternate chains. The worker will register itself with the state.
	worker.Run(st, worker.Config{
		GossipInterval: cfg.Node.GossipInterval,
		PruneInterval:  cfg.Node.PruneInterval,
		PruneThreshold: cfg.Node.PruneThreshold,
		EvHandler:      ev,
	})

	if err := st.Listen(ctx); err != nil {
		return err
	}

	go st.DialKnownPeers(ctx)

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// Readiness reports ready once the node has a chain to serve.
	ready := func() error {
		if !st.RetrieveStatus().Synced {
			return state.ErrNoChain
		}
		return nil
	}

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, ready)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct the mux for the public API calls.
	publicMux := handlers.PublicMux(handlers.MuxConfig[P]{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		Evts:     evts,
	})

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancelPub := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPub()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}

// openStorage constructs the configured storage backend.
func openStorage(backend string, path string) (storage.Storage, error) {
	switch backend {
	case "memory":
		return memory.New()
	case "leveldb":
		return leveldb.New(path)
	case "badger":
		return badger.New(path)
	}

	return nil, fmt.Errorf("unknown storage backend %q, expecting memory|leveldb|badger", backend)
}
