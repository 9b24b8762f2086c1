package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strmforge/strmforge/internal/auth"
	"github.com/strmforge/strmforge/internal/config"
	"github.com/strmforge/strmforge/internal/database"
	"github.com/strmforge/strmforge/internal/metadata/tmdb"
	"github.com/strmforge/strmforge/internal/orchestrator"
	"github.com/strmforge/strmforge/internal/progress"
	"github.com/strmforge/strmforge/internal/session"
	"github.com/strmforge/strmforge/internal/websocket"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	authSvc, err := auth.NewService(db, "test-secret")
	require.NoError(t, err)

	cfg := &config.Config{}
	nop := zerolog.Nop()
	store := session.NewStore(nil, nop)
	tmdbClient := tmdb.NewClient(tmdb.Config{}, nop)
	orch := orchestrator.New(cfg, nop, store, nil, nil, tmdbClient)

	return NewServer(cfg, Deps{
		Hub:          websocket.NewHub(),
		Auth:         authSvc,
		Store:        store,
		Orchestrator: orch,
		Progress:     progress.NewManager(nil, nop),
	}, nop)
}

func doJSON(s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func setupAndLogin(t *testing.T, s *Server) string {
	t.Helper()
	rec := doJSON(s, http.MethodPost, "/api/v1/auth/setup", "", `{"password":"correct horse"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(s, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(s, http.MethodGet, "/api/v1/auth/status", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status struct {
		RequiresSetup bool `json:"requires_setup"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.RequiresSetup)

	// too short
	rec = doJSON(s, http.MethodPost, "/api/v1/auth/setup", "", `{"password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	token := setupAndLogin(t, s)

	// setup only works once
	rec = doJSON(s, http.MethodPost, "/api/v1/auth/setup", "", `{"password":"another pass"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// wrong password
	rec = doJSON(s, http.MethodPost, "/api/v1/auth/login", "", `{"password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// correct password
	rec = doJSON(s, http.MethodPost, "/api/v1/auth/login", "", `{"password":"correct horse"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	// protected routes demand the token
	rec = doJSON(s, http.MethodPost, "/api/v1/sessions", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(s, http.MethodPost, "/api/v1/sessions", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(s, http.MethodPost, "/api/v1/sessions", token, "")
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := setupAndLogin(t, s)

	rec := doJSON(s, http.MethodPost, "/api/v1/sessions", token, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.SessionID)

	base := "/api/v1/sessions/" + created.SessionID

	rec = doJSON(s, http.MethodGet, base, token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var state struct {
		Config struct {
			NamingLanguage string `json:"naming_language"`
			UseCopy        bool   `json:"use_copy"`
		} `json:"config"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, "zh", state.Config.NamingLanguage)
	assert.True(t, state.Config.UseCopy)

	rec = doJSON(s, http.MethodPut, base+"/config", token, `{"naming_language":"en","use_copy":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated struct {
		Message string `json:"message"`
		Config  struct {
			NamingLanguage string `json:"naming_language"`
			UseCopy        bool   `json:"use_copy"`
		} `json:"config"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.NotEmpty(t, updated.Message)
	assert.Equal(t, "en", updated.Config.NamingLanguage)
	assert.False(t, updated.Config.UseCopy)

	rec = doJSON(s, http.MethodGet, base+"/files", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	// scan without a connected source conflicts
	rec = doJSON(s, http.MethodPost, base+"/scan", token, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(s, http.MethodPost, base+"/scan", token, `{"recursive":false,"max_depth":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "malformed scan body is rejected before the pipeline runs")

	rec = doJSON(s, http.MethodDelete, base, token, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(s, http.MethodGet, base, token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownSessionIs404(t *testing.T) {
	s := newTestServer(t)
	token := setupAndLogin(t, s)

	rec := doJSON(s, http.MethodGet, "/api/v1/sessions/nope", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(s, http.MethodPost, "/api/v1/sessions/nope/scan", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoginLockout(t *testing.T) {
	s := newTestServer(t)
	setupAndLogin(t, s)

	for i := 0; i < 5; i++ {
		rec := doJSON(s, http.MethodPost, "/api/v1/auth/login", "", `{"password":"wrong"}`)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	// fifth failure locks the IP out
	rec := doJSON(s, http.MethodPost, "/api/v1/auth/login", "", `{"password":"correct horse"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestMetadataUnconfigured(t *testing.T) {
	s := newTestServer(t)
	token := setupAndLogin(t, s)

	rec := doJSON(s, http.MethodGet, "/api/v1/metadata/search?type=tv&query=frieren", token, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestClassifyRejectsInvalidRules(t *testing.T) {
	s := newTestServer(t)
	token := setupAndLogin(t, s)

	rec := doJSON(s, http.MethodPost, "/api/v1/sessions", token, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	body := `{"rules":[{"name":"bad","media_type":"tv"}]}`
	rec = doJSON(s, http.MethodPost, "/api/v1/sessions/"+created.SessionID+"/classify", token, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
