// Package state implements the EchoCircle client application state container:
// a session slice, a feed slice, and a store that applies pure reducers to
// dispatched actions in order.
package state

import (
	"echocircle/internal/models"

	"github.com/google/uuid"
)

// Scope classifies an action. Lifecycle actions are internal persistence and
// hydration bookkeeping; they may carry non-serializable payloads and are
// exempt from the serializability check.
type Scope string

const (
	// ScopeDomain marks actions originating from the UI or backend round trips.
	ScopeDomain Scope = "domain"
	// ScopeLifecycle marks internal persistence/hydration bookkeeping actions.
	ScopeLifecycle Scope = "lifecycle"
)

// ActionType enumerates every operation the store accepts.
type ActionType string

const (
	// ActionLogin replaces the session user and token.
	ActionLogin ActionType = "session/login"
	// ActionLogout clears user, token and friends. Idempotent.
	ActionLogout ActionType = "session/logout"
	// ActionSetFriends replaces the friends list.
	ActionSetFriends ActionType = "session/setFriends"
	// ActionToggleTheme flips the theme mode.
	ActionToggleTheme ActionType = "session/toggleTheme"
	// ActionSetPosts replaces the feed collection.
	ActionSetPosts ActionType = "feed/setPosts"
	// ActionSetPost replaces a single post in place by id. Not an upsert.
	ActionSetPost ActionType = "feed/setPost"

	// ActionHydrate merges a restored snapshot into state at startup.
	ActionHydrate ActionType = "lifecycle/hydrate"
	// ActionHydrateDone marks the end of startup hydration.
	ActionHydrateDone ActionType = "lifecycle/hydrateDone"
	// ActionFlush asks the persistence writer to write immediately.
	ActionFlush ActionType = "lifecycle/flush"
)

// Action is one unit of state change. Payload shape depends on Type.
type Action struct {
	ID      string
	Type    ActionType
	Scope   Scope
	Payload any
}

// LoginPayload carries the credentials result for ActionLogin.
type LoginPayload struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// HydratePayload carries restored snapshot fields for ActionHydrate.
// It is lifecycle-scoped and never persisted itself.
type HydratePayload struct {
	User  *models.User
	Token string
	Posts []models.Post
}

// Login builds a domain action replacing user and token unconditionally.
func Login(user *models.User, token string) Action {
	return Action{
		ID:      uuid.NewString(),
		Type:    ActionLogin,
		Scope:   ScopeDomain,
		Payload: LoginPayload{User: user, Token: token},
	}
}

// Logout builds a domain action clearing the session.
func Logout() Action {
	return Action{ID: uuid.NewString(), Type: ActionLogout, Scope: ScopeDomain}
}

// SetFriends builds a domain action replacing the friends list.
func SetFriends(friends []models.FriendRef) Action {
	return Action{
		ID:      uuid.NewString(),
		Type:    ActionSetFriends,
		Scope:   ScopeDomain,
		Payload: friends,
	}
}

// ToggleTheme builds a domain action flipping the theme mode.
func ToggleTheme() Action {
	return Action{ID: uuid.NewString(), Type: ActionToggleTheme, Scope: ScopeDomain}
}

// SetPosts builds a domain action replacing the feed collection.
func SetPosts(posts []models.Post) Action {
	return Action{
		ID:      uuid.NewString(),
		Type:    ActionSetPosts,
		Scope:   ScopeDomain,
		Payload: posts,
	}
}

// SetPost builds a domain action replacing one post in place by id.
func SetPost(post models.Post) Action {
	return Action{
		ID:      uuid.NewString(),
		Type:    ActionSetPost,
		Scope:   ScopeDomain,
		Payload: post,
	}
}

// Hydrate builds the lifecycle action that merges a restored snapshot.
func Hydrate(p HydratePayload) Action {
	return Action{ID: uuid.NewString(), Type: ActionHydrate, Scope: ScopeLifecycle, Payload: p}
}

// HydrateDone builds the lifecycle action closing startup hydration.
func HydrateDone() Action {
	return Action{ID: uuid.NewString(), Type: ActionHydrateDone, Scope: ScopeLifecycle}
}

// Flush builds the lifecycle action requesting an immediate snapshot write.
func Flush() Action {
	return Action{ID: uuid.NewString(), Type: ActionFlush, Scope: ScopeLifecycle}
}
