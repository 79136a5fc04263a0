package devtools

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"echocircle/internal/api"
	"echocircle/internal/featureflags"
	"echocircle/internal/models"
	"echocircle/internal/snapshot"
	"echocircle/internal/state"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SetupMiddleware registers prometheus collectors globally, so tests wire
// routes only.
func setupTestServer(t *testing.T, hydrated bool) (*fiber.App, *Server, *state.Store) {
	return setupTestServerWithBackend(t, hydrated, "http://127.0.0.1:1")
}

func setupTestServerWithBackend(t *testing.T, hydrated bool, backendURL string) (*fiber.App, *Server, *state.Store) {
	t.Helper()

	store := state.NewStore()
	snapStore := snapshot.NewMemoryStore()
	gate := snapshot.NewGate(snapStore, store, 1, time.Second)
	if hydrated {
		require.NoError(t, gate.Run(context.Background()))
	}
	writer := snapshot.NewWriter(snapStore, store, 1, 50*time.Millisecond, "memory")
	client := api.NewClient(backendURL, store)
	flags := featureflags.NewManager("dark_mode_v2=on,legacy_feed=off")

	srv := NewServer(store, gate, writer, client, flags)
	app := fiber.New()
	srv.SetupRoutes(app)
	return app, srv, store
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, out))
}

func TestLiveness(t *testing.T) {
	app, _, _ := setupTestServer(t, true)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestReadiness(t *testing.T) {
	t.Run("BeforeHydration", func(t *testing.T) {
		app, _, _ := setupTestServer(t, false)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/readyz", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

		var body map[string]string
		decodeBody(t, resp, &body)
		assert.Equal(t, "loading", body["status"])
	})

	t.Run("AfterHydration", func(t *testing.T) {
		app, _, _ := setupTestServer(t, true)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/readyz", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body map[string]string
		decodeBody(t, resp, &body)
		assert.Equal(t, "ready", body["status"])
		assert.Equal(t, "ready", body["phase"])
	})
}

func TestGetState(t *testing.T) {
	app, _, store := setupTestServer(t, true)
	store.Dispatch(state.Login(&models.User{ID: "u1", FirstName: "Ann"}, "tok-123"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/state", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body state.State
	decodeBody(t, resp, &body)
	require.NotNil(t, body.Session.User)
	assert.Equal(t, "u1", body.Session.User.ID)
	assert.Equal(t, "tok-123", body.Session.Token)
}

func TestQueryState(t *testing.T) {
	app, _, store := setupTestServer(t, true)
	store.Dispatch(state.SetPosts([]models.Post{{ID: "p1"}, {ID: "p2"}}))

	t.Run("Valid", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/state/query?q=len(feed.posts)", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body map[string]any
		decodeBody(t, resp, &body)
		assert.EqualValues(t, 2, body["result"])
	})

	t.Run("MissingQuery", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/state/query", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("BadExpression", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/state/query?q=len(", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func dispatchReq(t *testing.T, actionType string, payload any) *http.Request {
	t.Helper()
	body := map[string]any{"type": actionType}
	if payload != nil {
		body["payload"] = payload
	}
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/dispatch", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestDispatchAction(t *testing.T) {
	t.Run("ToggleTheme", func(t *testing.T) {
		app, _, store := setupTestServer(t, true)

		resp, err := app.Test(dispatchReq(t, "session/toggleTheme", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, models.ThemeLight, store.GetState().Session.Mode)
	})

	t.Run("Login", func(t *testing.T) {
		app, _, store := setupTestServer(t, true)

		payload := map[string]any{
			"user":  models.User{ID: "u1", FirstName: "Ann"},
			"token": "tok-9",
		}
		resp, err := app.Test(dispatchReq(t, "session/login", payload))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.True(t, store.GetState().LoggedIn())
	})

	t.Run("SetFriends", func(t *testing.T) {
		app, _, store := setupTestServer(t, true)

		resp, err := app.Test(dispatchReq(t, "session/setFriends", []models.FriendRef{{ID: "f1"}}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Len(t, store.GetState().CurrentFriends(), 1)
	})

	t.Run("LifecycleRejected", func(t *testing.T) {
		app, _, _ := setupTestServer(t, true)

		resp, err := app.Test(dispatchReq(t, "lifecycle/hydrate", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("UnknownType", func(t *testing.T) {
		app, _, _ := setupTestServer(t, true)

		resp, err := app.Test(dispatchReq(t, "session/selfDestruct", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		app, _, _ := setupTestServer(t, true)

		req := httptest.NewRequest(http.MethodPost, "/api/dispatch", bytes.NewReader([]byte("{not json")))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetFlags(t *testing.T) {
	app, _, store := setupTestServer(t, true)
	store.Dispatch(state.Login(&models.User{ID: "u1"}, "tok"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/flags", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		User  string          `json:"user"`
		Flags map[string]bool `json:"flags"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "u1", body.User)
	assert.True(t, body.Flags["dark_mode_v2"])
	assert.False(t, body.Flags["legacy_feed"])
}

func TestGetDiagnostics(t *testing.T) {
	app, _, _ := setupTestServer(t, true)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/diagnostics", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]any
	decodeBody(t, resp, &body)
	assert.Equal(t, "ready", body["phase"])
	// Writer never ran: no save recorded yet.
	assert.Nil(t, body["lastSaved"])
}

func TestBackendLogin(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"token": "tok-123",
				"user":  models.User{ID: "u1", FirstName: "Ann"},
			})
		}))
		defer backend.Close()

		app, _, store := setupTestServerWithBackend(t, true, backend.URL)

		body, _ := json.Marshal(map[string]string{"email": "a@b.c", "password": "pw"})
		req := httptest.NewRequest(http.MethodPost, "/api/backend/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.True(t, store.GetState().LoggedIn())
	})

	t.Run("MissingCredentials", func(t *testing.T) {
		app, _, _ := setupTestServer(t, true)

		req := httptest.NewRequest(http.MethodPost, "/api/backend/login", bytes.NewReader([]byte(`{}`)))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("BackendDown", func(t *testing.T) {
		app, _, _ := setupTestServer(t, true)

		body, _ := json.Marshal(map[string]string{"email": "a@b.c", "password": "pw"})
		req := httptest.NewRequest(http.MethodPost, "/api/backend/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req, 15000)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
	})
}

func TestBackendLogout(t *testing.T) {
	app, _, store := setupTestServer(t, true)
	store.Dispatch(state.Login(&models.User{ID: "u1"}, "tok"))

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/backend/logout", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.False(t, store.GetState().LoggedIn())
}

func TestBackendRefreshFeed(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]models.Post{{ID: "p1"}, {ID: "p2"}})
	}))
	defer backend.Close()

	app, _, store := setupTestServerWithBackend(t, true, backend.URL)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/backend/feed/refresh", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, store.GetState().Feed.Posts, 2)
}

func TestStateStreamRequiresUpgrade(t *testing.T) {
	app, _, _ := setupTestServer(t, true)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ws/state", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}
