package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/juju/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certsync/internal/authority"
	"certsync/internal/config"
	"certsync/internal/db"
	"certsync/internal/db/repository"
	"certsync/internal/engine"
	"certsync/internal/models"
	"certsync/internal/poller"
)

// stubAuthority scripts authority behavior per test
type stubAuthority struct {
	createFn func(ctx context.Context, hostname string) (*models.Record, error)
	getFn    func(ctx context.Context, id string) (*models.Record, error)
	lookupFn func(ctx context.Context, hostname string) (*models.Record, error)
	patchFn  func(ctx context.Context, id string, settings json.RawMessage) (*models.Record, error)
	deleteFn func(ctx context.Context, id string) (json.RawMessage, error)
}

func (s *stubAuthority) Create(ctx context.Context, hostname string) (*models.Record, error) {
	return s.createFn(ctx, hostname)
}

func (s *stubAuthority) Get(ctx context.Context, id string) (*models.Record, error) {
	return s.getFn(ctx, id)
}

func (s *stubAuthority) Lookup(ctx context.Context, hostname string) (*models.Record, error) {
	return s.lookupFn(ctx, hostname)
}

func (s *stubAuthority) Patch(ctx context.Context, id string, settings json.RawMessage) (*models.Record, error) {
	return s.patchFn(ctx, id, settings)
}

func (s *stubAuthority) Delete(ctx context.Context, id string) (json.RawMessage, error) {
	return s.deleteFn(ctx, id)
}

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{ListenAddr: ":0"},
		Authority: config.AuthorityConfig{BaseURL: "https://authority.example", ZoneID: "zone-1", APIToken: "secret"},
		Logging:   config.LoggingConfig{Level: "error", Format: "text"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, auth *stubAuthority) (*Server, *repository.RecordRepository) {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "certsync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.RunMigrations(database))

	records := repository.NewRecordRepository(database.DB)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := poller.New(auth, 3, time.Millisecond, clock.WallClock, log)
	eng := engine.New(auth, p, records, log)

	return NewServer(cfg, log, eng), records
}

func doRequest(t *testing.T, srv *Server, method, path string, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reqBody io.Reader
	if body != "" {
		reqBody = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reqBody)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	var envelope map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	}
	return w, envelope
}

func TestCreateEndpoint(t *testing.T) {
	auth := &stubAuthority{
		createFn: func(ctx context.Context, hostname string) (*models.Record, error) {
			return &models.Record{ID: "abc", Hostname: hostname}, nil
		},
		getFn: func(ctx context.Context, id string) (*models.Record, error) {
			return &models.Record{ID: id, Hostname: "example.com", Status: "active"}, nil
		},
	}
	srv, records := newTestServer(t, testConfig(), auth)

	w, envelope := doRequest(t, srv, http.MethodPost, "/ssl", `{"hostname":"example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, true, envelope["success"])
	data := envelope["data"].(map[string]any)
	assert.Equal(t, "abc", data["id"])
	assert.Equal(t, "example.com", data["hostname"])
	assert.Equal(t, "pending", data["status"])

	// The background reconciliation may or may not have settled by now,
	// so only the row's existence is asserted here.
	stored, err := records.GetByID("abc")
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestCreateEndpointRequiresHostname(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), &stubAuthority{})

	w, envelope := doRequest(t, srv, http.MethodPost, "/ssl", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, envelope["success"])
}

func TestCreateEndpointPassesAuthorityErrorThrough(t *testing.T) {
	auth := &stubAuthority{
		createFn: func(ctx context.Context, hostname string) (*models.Record, error) {
			return nil, &authority.Error{
				StatusCode: http.StatusBadGateway,
				Body:       `{"errors":[{"message":"zone unavailable"}]}`,
			}
		},
	}
	srv, _ := newTestServer(t, testConfig(), auth)

	w, envelope := doRequest(t, srv, http.MethodPost, "/ssl", `{"hostname":"example.com"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, false, envelope["success"])

	// Upstream payload is passed through as-is.
	raw, err := json.Marshal(envelope["error"])
	require.NoError(t, err)
	assert.JSONEq(t, `{"errors":[{"message":"zone unavailable"}]}`, string(raw))
}

func TestReadEndpoint(t *testing.T) {
	srv, records := newTestServer(t, testConfig(), &stubAuthority{
		lookupFn: func(ctx context.Context, hostname string) (*models.Record, error) {
			return nil, nil
		},
	})
	require.NoError(t, records.Upsert(&models.Record{ID: "abc", Hostname: "example.com", Status: "active"}))

	w, envelope := doRequest(t, srv, http.MethodGet, "/ssl/example.com", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := envelope["data"].(map[string]any)
	assert.Equal(t, "active", data["status"])

	w, envelope = doRequest(t, srv, http.MethodGet, "/ssl/unknown.example.com", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, envelope["success"])
}

func TestRecheckEndpoint(t *testing.T) {
	srv, records := newTestServer(t, testConfig(), &stubAuthority{
		getFn: func(ctx context.Context, id string) (*models.Record, error) {
			return &models.Record{ID: id, Hostname: "example.com", Status: "active"}, nil
		},
	})
	require.NoError(t, records.Upsert(&models.Record{ID: "abc", Hostname: "example.com", Status: models.StatusPending}))

	w, envelope := doRequest(t, srv, http.MethodGet, "/ssl/example.com/recheck", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := envelope["data"].(map[string]any)
	assert.Equal(t, "active", data["status"])

	w, _ = doRequest(t, srv, http.MethodGet, "/ssl/unknown.example.com/recheck", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateSettingsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), &stubAuthority{
		patchFn: func(ctx context.Context, id string, settings json.RawMessage) (*models.Record, error) {
			assert.JSONEq(t, `{"method":"http"}`, string(settings))
			return &models.Record{ID: id, Hostname: "example.com", Status: "pending_validation"}, nil
		},
	})

	w, envelope := doRequest(t, srv, http.MethodPut, "/ssl/abc", `{"sslSettings":{"method":"http"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	data := envelope["data"].(map[string]any)
	assert.Equal(t, "pending_validation", data["status"])
}

func TestDeleteEndpoint(t *testing.T) {
	srv, records := newTestServer(t, testConfig(), &stubAuthority{
		deleteFn: func(ctx context.Context, id string) (json.RawMessage, error) {
			return json.RawMessage(`{"id":"abc"}`), nil
		},
	})
	require.NoError(t, records.Upsert(&models.Record{ID: "abc", Hostname: "example.com", Status: "active"}))

	w, envelope := doRequest(t, srv, http.MethodDelete, "/ssl/abc", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := envelope["data"].(map[string]any)
	assert.Equal(t, "abc", data["id"])

	stored, err := records.GetByID("abc")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestListEndpoint(t *testing.T) {
	srv, records := newTestServer(t, testConfig(), &stubAuthority{})
	require.NoError(t, records.Upsert(&models.Record{ID: "a", Hostname: "a.example.com", Status: "active"}))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, records.Upsert(&models.Record{ID: "b", Hostname: "b.example.com", Status: models.StatusPending}))

	w, envelope := doRequest(t, srv, http.MethodGet, "/ssl", "")
	require.Equal(t, http.StatusOK, w.Code)

	data := envelope["data"].([]any)
	require.Len(t, data, 2)
	assert.Equal(t, "b", data[0].(map[string]any)["id"])
	assert.Equal(t, "a", data[1].(map[string]any)["id"])
}

func TestRootEchoAndHealth(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), &stubAuthority{})

	w, envelope := doRequest(t, srv, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := envelope["data"].(map[string]any)
	assert.Equal(t, "zone-1", data["zone"])
	assert.NotEmpty(t, data["host"])

	w, _ = doRequest(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBearerAuthGuardsSSLRoutes(t *testing.T) {
	cfg := testConfig()
	cfg.Server.APIToken = "api-secret"
	srv, _ := newTestServer(t, cfg, &stubAuthority{})

	// Missing token
	w, _ := doRequest(t, srv, http.MethodGet, "/ssl", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Wrong token
	req := httptest.NewRequest(http.MethodGet, "/ssl", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Valid token
	req = httptest.NewRequest(http.MethodGet, "/ssl", nil)
	req.Header.Set("Authorization", "Bearer api-secret")
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Health stays open
	w, _ = doRequest(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
