// internal/api/server_test.go
package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/metrics"
	"github.com/newthinker/folio/internal/session"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fetchFunc func(ctx context.Context, holdings string) (*core.Report, error)

func (f fetchFunc) Fetch(ctx context.Context, holdings string) (*core.Report, error) {
	return f(ctx, holdings)
}

func testDeps() Dependencies {
	fetcher := fetchFunc(func(context.Context, string) (*core.Report, error) {
		return &core.Report{
			Scores:  []core.Score{{Symbol: "AAPL", Value: decimal.RequireFromString("90")}},
			Average: decimal.RequireFromString("90"),
		}, nil
	})
	return Dependencies{
		Registry: session.NewRegistry(10, time.Hour, func(id string) *session.Workflow {
			return session.NewWorkflow(fetcher, session.Options{ID: id})
		}),
		Metrics: metrics.NewRegistry(),
	}
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)
	return w
}

func TestServer_Health(t *testing.T) {
	srv, err := NewServer(Config{Host: "localhost", Port: 0}, testDeps(), zap.NewNop())
	require.NoError(t, err)

	w := serve(srv, httptest.NewRequest("GET", "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestServer_RequiresRegistry(t *testing.T) {
	_, err := NewServer(Config{}, Dependencies{}, zap.NewNop())
	assert.Error(t, err)
}

func TestServer_Routes(t *testing.T) {
	srv, err := NewServer(Config{Host: "localhost", Port: 0}, testDeps(), zap.NewNop())
	require.NoError(t, err)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{"GET", "/", http.StatusOK},
		{"GET", "/panel", http.StatusOK},
		{"GET", "/missing", http.StatusNotFound},
		{"DELETE", "/api/v1/sessions/x", http.StatusMethodNotAllowed},
		{"GET", "/api/v1/sessions/unknown", http.StatusNotFound},
		{"POST", "/api/v1/sessions", http.StatusCreated},
		{"GET", "/metrics", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := serve(srv, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestServer_APIAuth(t *testing.T) {
	srv, err := NewServer(Config{Host: "localhost", Port: 0, APIKey: "test-key"}, testDeps(), zap.NewNop())
	require.NoError(t, err)

	w := serve(srv, httptest.NewRequest("POST", "/api/v1/sessions", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest("POST", "/api/v1/sessions", nil)
	req.Header.Set("X-API-Key", "test-key")
	w = serve(srv, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	// The page and health check stay open.
	assert.Equal(t, http.StatusOK, serve(srv, httptest.NewRequest("GET", "/", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(srv, httptest.NewRequest("GET", "/api/health", nil)).Code)
}

func TestServer_SubmitFlow(t *testing.T) {
	deps := testDeps()
	srv, err := NewServer(Config{Host: "localhost", Port: 0}, deps, zap.NewNop())
	require.NoError(t, err)

	wf := deps.Registry.Create()
	req := httptest.NewRequest("POST", "/api/v1/sessions/"+wf.ID()+"/submit", bytes.NewBufferString(`{"holdings":"AAPL"}`))
	w := serve(srv, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"average_health_score":"90"`)
	assert.Equal(t, session.PhaseSuccess, wf.Snapshot().Phase())
}

func TestServer_Metrics(t *testing.T) {
	srv, err := NewServer(Config{
		Host:           "localhost",
		Port:           0,
		MetricsEnabled: true,
		MetricsPath:    "/metrics",
	}, testDeps(), zap.NewNop())
	require.NoError(t, err)

	serve(srv, httptest.NewRequest("GET", "/api/health", nil))

	w := serve(srv, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `http_requests_total{method="GET",path="/api/health",status="2xx"} 1`))
}

func TestServer_ShutdownTwice(t *testing.T) {
	srv, err := NewServer(Config{Host: "localhost", Port: 0}, testDeps(), zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, srv.Shutdown(ctx))
	assert.NoError(t, srv.Shutdown(ctx))
}
