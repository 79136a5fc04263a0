package state

import "echocircle/internal/models"

// SessionState holds the authenticated identity, bearer token, theme mode and
// the friends list. Friends are stored once here; User.Friends is populated as
// a read-time projection so every reader of "current friends" sees the same
// list regardless of which field it reads.
type SessionState struct {
	Mode    models.ThemeMode   `json:"mode"`
	User    *models.User       `json:"user"`
	Token   string             `json:"token"`
	Friends []models.FriendRef `json:"friends"`
}

// FeedState holds the working set of posts currently shown to the viewer.
type FeedState struct {
	Posts []models.Post `json:"posts"`
}

// State is the full application state tree.
type State struct {
	Session SessionState `json:"session"`
	Feed    FeedState    `json:"feed"`
}

// NewState returns the code-default initial state: dark theme, logged out,
// empty feed.
func NewState() State {
	return State{
		Session: SessionState{
			Mode:    models.ThemeDark,
			Friends: []models.FriendRef{},
		},
		Feed: FeedState{Posts: []models.Post{}},
	}
}

// Clone returns a deep copy of the state tree with the friends projection
// applied to User.Friends.
func (s State) Clone() State {
	out := State{
		Session: SessionState{
			Mode:  s.Session.Mode,
			Token: s.Session.Token,
		},
		Feed: FeedState{Posts: models.ClonePosts(s.Feed.Posts)},
	}
	if s.Session.Friends != nil {
		out.Session.Friends = make([]models.FriendRef, len(s.Session.Friends))
		copy(out.Session.Friends, s.Session.Friends)
	}
	if s.Session.User != nil {
		u := s.Session.User.Clone()
		// Projection: the user's friend list mirrors the session friends list.
		u.Friends = make([]models.FriendRef, len(s.Session.Friends))
		copy(u.Friends, s.Session.Friends)
		out.Session.User = u
	}
	return out
}

// LoggedIn reports whether a user and token are present.
func (s State) LoggedIn() bool {
	return s.Session.User != nil && s.Session.Token != ""
}

// CurrentFriends returns a copy of the friends list.
func (s State) CurrentFriends() []models.FriendRef {
	out := make([]models.FriendRef, len(s.Session.Friends))
	copy(out, s.Session.Friends)
	return out
}

// PostByID returns the post with the given id and whether it was found.
func (s State) PostByID(id string) (models.Post, bool) {
	for _, p := range s.Feed.Posts {
		if p.ID == id {
			return p.Clone(), true
		}
	}
	return models.Post{}, false
}
