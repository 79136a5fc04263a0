// Package api implements the REST client for the external EchoCircle backend.
// Responses are treated as opaque payloads to place into the store; schema
// validation beyond decoding is the backend's concern.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"echocircle/internal/models"
	"echocircle/internal/observability"
	"echocircle/internal/state"

	"github.com/google/uuid"
)

const defaultTimeout = 10 * time.Second

// Client calls the EchoCircle backend and dispatches results into the store.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      *state.Store
	logger     *observability.StoreLogger
}

// NewClient creates a backend client rooted at baseURL that dispatches into store.
func NewClient(baseURL string, store *state.Store) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		store:      store,
		logger:     observability.NewStoreLogger("api"),
	}
}

// RegisterRequest carries the fields the backend expects on sign-up.
type RegisterRequest struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Location   string `json:"location"`
	Occupation string `json:"occupation"`
	PictureRef string `json:"picturePath"`
}

// loginResponse is the backend's login payload.
type loginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Register creates a new account. The session is not logged in afterwards;
// the caller follows up with Login.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates against the backend and dispatches the session login
// action on success. The token is stored as an opaque credential.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	body := map[string]string{"email": email, "password": password}
	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &resp); err != nil {
		return nil, err
	}
	c.store.Dispatch(state.Login(&resp.User, resp.Token))
	return &resp.User, nil
}

// Logout clears the session. The backend keeps no server-side session for
// bearer tokens, so no call is made.
func (c *Client) Logout() {
	c.store.Dispatch(state.Logout())
}

// FetchUser returns a user profile without touching the store.
func (c *Client) FetchUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, "/users/"+userID, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// FetchFriends loads the user's friend list and dispatches it into the session.
func (c *Client) FetchFriends(ctx context.Context, userID string) ([]models.FriendRef, error) {
	var friends []models.FriendRef
	if err := c.do(ctx, http.MethodGet, "/users/"+userID+"/friends", nil, &friends); err != nil {
		return nil, err
	}
	c.store.Dispatch(state.SetFriends(friends))
	return friends, nil
}

// ToggleFriend adds or removes a friend connection and dispatches the
// refreshed list the backend returns.
func (c *Client) ToggleFriend(ctx context.Context, userID, friendID string) ([]models.FriendRef, error) {
	var friends []models.FriendRef
	if err := c.do(ctx, http.MethodPatch, "/users/"+userID+"/"+friendID, nil, &friends); err != nil {
		return nil, err
	}
	c.store.Dispatch(state.SetFriends(friends))
	return friends, nil
}

// FetchFeed loads the global feed and replaces the feed slice.
func (c *Client) FetchFeed(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if err := c.do(ctx, http.MethodGet, "/posts", nil, &posts); err != nil {
		return nil, err
	}
	c.store.Dispatch(state.SetPosts(posts))
	return posts, nil
}

// FetchUserPosts loads one profile's posts and replaces the feed slice.
func (c *Client) FetchUserPosts(ctx context.Context, userID string) ([]models.Post, error) {
	var posts []models.Post
	if err := c.do(ctx, http.MethodGet, "/posts/"+userID+"/posts", nil, &posts); err != nil {
		return nil, err
	}
	c.store.Dispatch(state.SetPosts(posts))
	return posts, nil
}

// CreatePostRequest carries the fields for a new post. PictureRef is an
// opaque reference; the client never uploads or decodes image bytes.
type CreatePostRequest struct {
	Description string          `json:"description"`
	PictureRef  string          `json:"picturePath"`
	Audience    models.Audience `json:"audience"`
}

// CreatePost submits a new post. The backend returns the full refreshed feed,
// which replaces the feed slice wholesale.
func (c *Client) CreatePost(ctx context.Context, req CreatePostRequest) ([]models.Post, error) {
	var posts []models.Post
	if err := c.do(ctx, http.MethodPost, "/posts", req, &posts); err != nil {
		return nil, err
	}
	c.store.Dispatch(state.SetPosts(posts))
	return posts, nil
}

// LikePost toggles the current user's like and dispatches the single updated
// post the backend returns. Update-only: an id the feed no longer holds
// leaves the feed unchanged.
func (c *Client) LikePost(ctx context.Context, postID string) (*models.Post, error) {
	var post models.Post
	if err := c.do(ctx, http.MethodPatch, "/posts/"+postID+"/like", nil, &post); err != nil {
		return nil, err
	}
	c.store.Dispatch(state.SetPost(post))
	return &post, nil
}

// do executes one backend round trip: marshal, bearer auth, request id,
// tracing span, latency metric, decode.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	operation := method + " " + path
	span, ctx := observability.NewSpan(ctx, "backend."+operation)
	defer span.End()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return models.NewInternalError(fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return models.NewInternalError(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.store.GetState().Session.Token; token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		observability.BackendRequestLatency.WithLabelValues(operation, "unreachable").Observe(time.Since(start).Seconds())
		return models.NewUnavailableError(err)
	}
	defer resp.Body.Close()

	observability.BackendRequestLatency.WithLabelValues(operation, fmt.Sprintf("%d", resp.StatusCode)).Observe(time.Since(start).Seconds())
	span.SetAttribute("http.status_code", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := c.statusError(resp)
		span.RecordError(err)
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		span.RecordError(err)
		return models.NewInternalError(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) statusError(resp *http.Response) error {
	var payload models.ErrorResponse
	msg := resp.Status
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&payload); err == nil && payload.Error != "" {
		msg = payload.Error
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return models.NewUnauthorizedError(msg)
	case http.StatusNotFound:
		return &models.AppError{Code: "NOT_FOUND", Message: msg}
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return models.NewValidationError(msg)
	default:
		return models.NewInternalError(fmt.Errorf("backend returned %s", resp.Status))
	}
}
