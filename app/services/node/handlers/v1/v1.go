// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/gossipchain/app/services/node/handlers/v1/public"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/database"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/state"
	"github.com/ardanlabs/gossipchain/foundation/events"
	"github.com/ardanlabs/gossipchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config[P database.Payload[P]] struct {
	Log   *zap.SugaredLogger
	State *state.State[P]
	Evts  *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes[P database.Payload[P]](app *web.App, cfg Config[P]) {
	pbl := public.Handlers[P]{
		Log:   cfg.Log,
		State: cfg.State,
		WS:    websocket.Upgrader{},
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/node/status", pbl.Status)
	app.Handle(http.MethodGet, version, "/peers", pbl.Peers)
	app.Handle(http.MethodGet, version, "/chain", pbl.Chain)
	app.Handle(http.MethodGet, version, "/chain/blocks", pbl.Blocks)
	app.Handle(http.MethodGet, version, "/chain/blocks/:from/:to", pbl.Blocks)
	app.Handle(http.MethodGet, version, "/chain/alt", pbl.AltChains)
	app.Handle(http.MethodPut, version, "/chain/difficulty/:value", pbl.UpdateDifficulty)
	app.Handle(http.MethodPut, version, "/chain/reward/:value", pbl.UpdateReward)
	app.Handle(http.MethodPost, version, "/tx/submit", pbl.SubmitTransaction)
	app.Handle(http.MethodPost, version, "/mining/signal", pbl.SignalMining)
}
