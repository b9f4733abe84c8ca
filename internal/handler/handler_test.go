package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/hiroki-koketsu/go-todolists/internal/persistence"
	"github.com/hiroki-koketsu/go-todolists/internal/repository"
	"github.com/hiroki-koketsu/go-todolists/internal/storage/fs"
	"github.com/hiroki-koketsu/go-todolists/internal/telemetry"
	"github.com/hiroki-koketsu/go-todolists/internal/web"
)

type testServer struct {
	Router http.Handler
	Store  *repository.Store
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	g, err := persistence.NewGateway(fs.NewBackend(filepath.Join(t.TempDir(), "db.json")), logger)
	require.NoError(t, err)
	store := repository.NewStore(context.Background(), g)

	metrics, err := telemetry.NewMetrics(noop.NewMeterProvider().Meter("test"), store)
	require.NoError(t, err)

	renderer, err := web.NewRenderer()
	require.NoError(t, err)

	return &testServer{
		Router: NewRouter(store, renderer, logger, metrics),
		Store:  store,
	}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)
	return w
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}
