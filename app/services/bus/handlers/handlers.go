// Package handlers binds the announcement hub to the web.
package handlers

import (
	"context"
	"expvar"
	"net/http"
	"net/http/pprof"
	"os"

	"github.com/ardanlabs/powchain/business/web/mid"
	"github.com/ardanlabs/powchain/foundation/blockchain/announce/wsbus"
	"github.com/ardanlabs/powchain/foundation/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MuxConfig contains all the mandatory systems required by handlers.
type MuxConfig struct {
	Shutdown chan os.Signal
	Log      *zap.SugaredLogger
	Hub      *wsbus.Hub
}

// BusMux constructs a http.Handler with the hub and a status route.
func BusMux(cfg MuxConfig) http.Handler {
	app := web.NewApp(
		cfg.Shutdown,
		mid.Logger(cfg.Log),
		mid.Errors(cfg.Log),
		mid.Metrics(),
		mid.Panics(),
	)

	bus := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return cfg.Hub.Serve(w, r)
	}
	app.Handle(http.MethodGet, "v1", "/bus", bus)

	status := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		resp := struct {
			Connections int `json:"connections"`
		}{
			Connections: cfg.Hub.Connections(),
		}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
	app.Handle(http.MethodGet, "v1", "/status", status)

	return app
}

// DebugMux registers the standard library debug routes and the prometheus
// metrics into a new mux bypassing the use of the DefaultServerMux.
func DebugMux() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/debug/vars", expvar.Handler())
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}
