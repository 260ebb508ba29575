// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/gossipchain/business/sys/validate"
	"github.com/ardanlabs/gossipchain/business/web/errs"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/database"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/state"
	"github.com/ardanlabs/gossipchain/foundation/events"
	"github.com/ardanlabs/gossipchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of node endpoints.
type Handlers[P database.Payload[P]] struct {
	Log   *zap.SugaredLogger
	State *state.State[P]
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers[P]) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Status returns a summary of the node.
func (h Handlers[P]) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveStatus(), http.StatusOK)
}

// Peers returns the set of known peers.
func (h Handlers[P]) Peers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	known := h.State.RetrieveKnownPeers()

	peers := make([]peerInfo, len(known))
	for i, p := range known {
		peers[i] = peerInfo{ID: p.ID, Addr: p.Addr}
	}

	return web.Respond(ctx, w, peers, http.StatusOK)
}

// Chain returns the accepted chain including its pending pool.
func (h Handlers[P]) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	chain, err := h.State.RetrieveChain()
	if err != nil {
		return trusted(err)
	}

	return web.Respond(ctx, w, chain, http.StatusOK)
}

// Blocks returns the blocks of the accepted chain, optionally restricted to
// the inclusive range of block numbers in the path.
func (h Handlers[P]) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	chain, err := h.State.RetrieveChain()
	if err != nil {
		return trusted(err)
	}

	from, to := 0, len(chain.Blocks)-1
	if v := web.Param(r, "from"); v != "" {
		if from, err = strconv.Atoi(v); err != nil {
			return errs.NewTrusted(fmt.Errorf("invalid from[%s]: %w", v, err), http.StatusBadRequest)
		}
	}
	if v := web.Param(r, "to"); v != "" && v != "latest" {
		if to, err = strconv.Atoi(v); err != nil {
			return errs.NewTrusted(fmt.Errorf("invalid to[%s]: %w", v, err), http.StatusBadRequest)
		}
	}

	if from < 0 || (to >= 0 && from > to) {
		return errs.NewTrusted(fmt.Errorf("invalid range from[%d] to[%d]", from, to), http.StatusBadRequest)
	}
	if to > len(chain.Blocks)-1 {
		to = len(chain.Blocks) - 1
	}

	if from > to {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	blocks := make([]block[P], 0, to-from+1)
	for i := from; i <= to; i++ {
		blk := chain.Blocks[i]

		hash, err := blk.Hash()
		if err != nil {
			return err
		}

		blocks = append(blocks, block[P]{
			Number:       i,
			Hash:         hash,
			PrevHash:     blk.Header.PrevHash,
			Merkle:       blk.Header.Merkle,
			Timestamp:    blk.Header.Timestamp,
			Nonce:        blk.Header.Nonce,
			Difficulty:   blk.Header.Difficulty,
			Count:        blk.Count,
			Transactions: blk.Transactions,
		})
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// AltChains returns a summary of the alternate chains waiting for votes.
func (h Handlers[P]) AltChains(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	entries := h.State.RetrieveAltChains()

	alts := make([]altChain, len(entries))
	for i, e := range entries {
		alts[i] = altChain{
			Count:  e.Count,
			Blocks: e.Chain.Length(),
		}
		if hash, err := e.Chain.LastHash(); err == nil {
			alts[i].LatestHash = hash
		}
	}

	return web.Respond(ctx, w, alts, http.StatusOK)
}

// SubmitTransaction adds a new transaction to the pool and shares it with the
// known peers.
func (h Handlers[P]) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var tx database.Tx[P]
	if err := web.Decode(r, &tx); err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	if err := validate.Check(tx); err != nil {
		return err
	}

	h.Log.Infow("submit tran", "traceid", v.TraceID, "sender", tx.Sender, "payload", tx.Payload)
	if err := h.State.SubmitTransaction(tx); err != nil {
		return trusted(err)
	}

	return web.Respond(ctx, w, status{Status: "transaction added to pool"}, http.StatusOK)
}

// SignalMining asks the node to mine a block with whatever is pending.
func (h Handlers[P]) SignalMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.State.SignalMining(); err != nil {
		return trusted(err)
	}

	return web.Respond(ctx, w, status{Status: "mining signaled"}, http.StatusAccepted)
}

// UpdateDifficulty sets the difficulty of the blocks this node mines next.
func (h Handlers[P]) UpdateDifficulty(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	value, err := paramUint32(r, "value")
	if err != nil {
		return err
	}

	if err := h.State.UpdateDifficulty(value); err != nil {
		return trusted(err)
	}

	return web.Respond(ctx, w, status{Status: fmt.Sprintf("difficulty set to %d", value)}, http.StatusOK)
}

// UpdateReward sets the reward paid for the blocks this node mines next.
func (h Handlers[P]) UpdateReward(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	value, err := paramUint32(r, "value")
	if err != nil {
		return err
	}

	if err := h.State.UpdateReward(value); err != nil {
		return trusted(err)
	}

	return web.Respond(ctx, w, status{Status: fmt.Sprintf("reward set to %d", value)}, http.StatusOK)
}

// =============================================================================

func paramUint32(r *http.Request, key string) (uint32, error) {
	v := web.Param(r, key)

	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, errs.NewTrusted(fmt.Errorf("invalid %s[%s]: %w", key, v, err), http.StatusBadRequest)
	}

	return uint32(n), nil
}

// trusted maps the known state errors to a status the client can act on.
func trusted(err error) error {
	switch {
	case errors.Is(err, state.ErrNoChain):
		return errs.NewTrusted(err, http.StatusServiceUnavailable)
	case errors.Is(err, database.ErrDifficultyTooHigh):
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	return err
}
