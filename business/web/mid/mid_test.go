package mid_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/ardanlabs/powchain/business/web/errs"
	"github.com/ardanlabs/powchain/business/web/mid"
	"github.com/ardanlabs/powchain/foundation/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newApp() *web.App {
	log := zap.NewNop().Sugar()
	return web.NewApp(make(chan os.Signal, 1), mid.Logger(log), mid.Errors(log), mid.Metrics(), mid.Panics())
}

func TestErrorsAndPanics(t *testing.T) {
	app := newApp()

	app.Handle(http.MethodGet, "v1", "/trusted", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return errs.NewTrusted(errors.New("no such block"), http.StatusNotFound)
	})
	app.Handle(http.MethodGet, "v1", "/panic", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		panic("boom")
	})
	app.Handle(http.MethodGet, "v1", "/ok/:name", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.Respond(ctx, w, map[string]string{"name": web.Param(r, "name")}, http.StatusOK)
	}, mid.Cors("*"))

	tt := []struct {
		path   string
		status int
		body   string
	}{
		{path: "/v1/trusted", status: http.StatusNotFound, body: "no such block"},
		{path: "/v1/panic", status: http.StatusInternalServerError, body: http.StatusText(http.StatusInternalServerError)},
	}

	for _, tst := range tt {
		w := httptest.NewRecorder()
		app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tst.path, nil))

		require.Equal(t, tst.status, w.Code, tst.path)

		var resp errs.Response
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, tst.body, resp.Error)
		assert.NotEmpty(t, resp.TraceID)
	}

	w := httptest.NewRecorder()
	app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/ok/bill", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.JSONEq(t, `{"name":"bill"}`, w.Body.String())
}
