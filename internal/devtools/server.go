// Package devtools exposes the rendering boundary over a local listener:
// state reads, dispatch, the ready signal, and a live state stream. It stands
// in for the view layer's subscription hooks during development.
package devtools

import (
	"encoding/json"
	"time"

	"echocircle/internal/api"
	"echocircle/internal/featureflags"
	"echocircle/internal/models"
	"echocircle/internal/observability"
	"echocircle/internal/selector"
	"echocircle/internal/snapshot"
	"echocircle/internal/state"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
)

// Server holds the devtools dependencies and provides handlers.
type Server struct {
	store     *state.Store
	gate      *snapshot.Gate
	writer    *snapshot.Writer
	client    *api.Client
	selectors *selector.Engine
	flags     *featureflags.Manager
	logger    *observability.StoreLogger
}

// NewServer creates a devtools server over the given core components.
func NewServer(store *state.Store, gate *snapshot.Gate, writer *snapshot.Writer, client *api.Client, flags *featureflags.Manager) *Server {
	return &Server{
		store:     store,
		gate:      gate,
		writer:    writer,
		client:    client,
		selectors: selector.NewEngine(),
		flags:     flags,
		logger:    observability.NewStoreLogger("devtools"),
	}
}

// SetupMiddleware configures middleware for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	prom := fiberprometheus.New("echocircle-devtools")
	prom.RegisterAt(app, "/metrics")
	app.Use(prom.Middleware)

	// The devtools listener is local-only; permissive CORS lets a browser
	// devpanel talk to it.
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
}

// SetupRoutes registers all devtools routes.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/healthz", s.Liveness)
	app.Get("/readyz", s.Readiness)

	api := app.Group("/api")
	api.Get("/state", s.GetStateHandler)
	api.Get("/state/query", s.QueryState)
	api.Post("/dispatch", s.DispatchAction)
	api.Get("/flags", s.GetFlags)
	api.Get("/diagnostics", s.GetDiagnostics)

	// Drive the client against the real backend from the devpanel.
	backend := api.Group("/backend")
	backend.Post("/login", s.BackendLogin)
	backend.Post("/logout", s.BackendLogout)
	backend.Post("/feed/refresh", s.BackendRefreshFeed)
	backend.Post("/posts/:id/like", s.BackendLikePost)

	app.Get("/ws/state", s.upgradeRequired, s.StateStream())
}

// Liveness always reports the process as up.
func (s *Server) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Readiness reflects the startup gate: 503 while the snapshot load is in
// flight, 200 once hydration finished. This is the "ready signal" the view
// layer awaits before mounting routes.
func (s *Server) Readiness(c *fiber.Ctx) error {
	phase := s.gate.Phase()
	if phase != snapshot.PhaseReady {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "loading",
			"phase":  string(phase),
		})
	}
	return c.JSON(fiber.Map{"status": "ready", "phase": string(phase)})
}

// GetStateHandler returns a deep copy of the current state tree.
func (s *Server) GetStateHandler(c *fiber.Ctx) error {
	return c.JSON(s.store.GetState())
}

// QueryState evaluates a selector expression against the current state.
func (s *Server) QueryState(c *fiber.Ctx) error {
	q := c.Query("q")
	if q == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("query parameter 'q' is required"))
	}
	result, err := s.selectors.Eval(s.store.GetState(), q)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(err.Error()))
	}
	return c.JSON(fiber.Map{"query": q, "result": result})
}

// dispatchRequest is the JSON shape accepted by the dispatch endpoint.
type dispatchRequest struct {
	Type    state.ActionType `json:"type"`
	Payload json.RawMessage  `json:"payload"`
}

// DispatchAction accepts the enumerated domain actions as JSON. Lifecycle
// actions are internal and rejected here.
func (s *Server) DispatchAction(c *fiber.Ctx) error {
	var req dispatchRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("invalid request body"))
	}

	action, err := decodeAction(req)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, err)
	}

	s.store.Dispatch(action)
	return c.JSON(fiber.Map{"dispatched": string(req.Type), "state": s.store.GetState()})
}

// decodeAction maps a wire dispatch request onto a typed domain action.
func decodeAction(req dispatchRequest) (state.Action, error) {
	switch req.Type {
	case state.ActionLogin:
		var p state.LoginPayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			return state.Action{}, models.NewValidationError("invalid login payload")
		}
		return state.Login(p.User, p.Token), nil
	case state.ActionLogout:
		return state.Logout(), nil
	case state.ActionSetFriends:
		var friends []models.FriendRef
		if err := json.Unmarshal(req.Payload, &friends); err != nil {
			return state.Action{}, models.NewValidationError("invalid friends payload")
		}
		return state.SetFriends(friends), nil
	case state.ActionToggleTheme:
		return state.ToggleTheme(), nil
	case state.ActionSetPosts:
		var posts []models.Post
		if err := json.Unmarshal(req.Payload, &posts); err != nil {
			return state.Action{}, models.NewValidationError("invalid posts payload")
		}
		return state.SetPosts(posts), nil
	case state.ActionSetPost:
		var post models.Post
		if err := json.Unmarshal(req.Payload, &post); err != nil {
			return state.Action{}, models.NewValidationError("invalid post payload")
		}
		return state.SetPost(post), nil
	default:
		return state.Action{}, models.NewValidationError("unknown or non-dispatchable action type")
	}
}

// GetFlags returns the evaluated feature-flag snapshot for a user.
func (s *Server) GetFlags(c *fiber.Ctx) error {
	userID := c.Query("user")
	if userID == "" {
		if u := s.store.GetState().Session.User; u != nil {
			userID = u.ID
		}
	}
	return c.JSON(fiber.Map{"user": userID, "flags": s.flags.Snapshot(userID)})
}

// GetDiagnostics reports persistence health: last successful save time and
// the gate phase.
func (s *Server) GetDiagnostics(c *fiber.Ctx) error {
	var lastSaved any
	if t := s.writer.LastSaved(); !t.IsZero() {
		lastSaved = t
	}
	return c.JSON(fiber.Map{
		"phase":     string(s.gate.Phase()),
		"lastSaved": lastSaved,
	})
}

// backendLoginRequest is the JSON body for BackendLogin.
type backendLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// BackendLogin authenticates against the external backend; the client
// dispatches the session login action on success.
func (s *Server) BackendLogin(c *fiber.Ctx) error {
	var req backendLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("invalid request body"))
	}
	if req.Email == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("email and password are required"))
	}

	user, err := s.client.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return s.respondBackendError(c, err)
	}
	return c.JSON(fiber.Map{"user": user, "state": s.store.GetState()})
}

// BackendLogout drops the session locally.
func (s *Server) BackendLogout(c *fiber.Ctx) error {
	s.client.Logout()
	return c.JSON(fiber.Map{"state": s.store.GetState()})
}

// BackendRefreshFeed reloads the global feed into the feed slice.
func (s *Server) BackendRefreshFeed(c *fiber.Ctx) error {
	posts, err := s.client.FetchFeed(c.Context())
	if err != nil {
		return s.respondBackendError(c, err)
	}
	return c.JSON(fiber.Map{"posts": len(posts)})
}

// BackendLikePost toggles the viewer's like on one post.
func (s *Server) BackendLikePost(c *fiber.Ctx) error {
	post, err := s.client.LikePost(c.Context(), c.Params("id"))
	if err != nil {
		return s.respondBackendError(c, err)
	}
	return c.JSON(post)
}

// respondBackendError translates the client's typed errors into HTTP statuses.
func (s *Server) respondBackendError(c *fiber.Ctx, err error) error {
	appErr, ok := err.(*models.AppError)
	if !ok {
		appErr = models.NewInternalError(err)
	}
	status := fiber.StatusInternalServerError
	switch appErr.Code {
	case "UNAUTHORIZED":
		status = fiber.StatusUnauthorized
	case "NOT_FOUND":
		status = fiber.StatusNotFound
	case "VALIDATION_ERROR":
		status = fiber.StatusBadRequest
	case "BACKEND_UNAVAILABLE":
		status = fiber.StatusBadGateway
	}
	return models.RespondWithError(c, status, appErr)
}

func (s *Server) upgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// stateEvent is one message on the state stream.
type stateEvent struct {
	Action string      `json:"action"`
	State  state.State `json:"state"`
}

// StateStream pushes one JSON message per store change. Slow consumers drop
// updates rather than block dispatch.
func (s *Server) StateStream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		observability.StateStreamSubscribers.Inc()
		defer observability.StateStreamSubscribers.Dec()

		events := make(chan stateEvent, 16)
		unsubscribe := s.store.Subscribe(func(a state.Action, st state.State) {
			select {
			case events <- stateEvent{Action: string(a.Type), State: st}:
			default:
				observability.StateStreamDrops.Inc()
			}
		})
		defer unsubscribe()

		// Initial frame so the client renders without waiting for a change.
		if err := conn.WriteJSON(stateEvent{Action: "stream/open", State: s.store.GetState()}); err != nil {
			return
		}

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-closed:
				return
			case ev := <-events:
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
			}
		}
	})
}
