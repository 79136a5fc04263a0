// Package models contains data structures for the application's domain models.
package models

// ThemeMode selects the UI color scheme.
type ThemeMode string

const (
	// ThemeLight is the light color scheme.
	ThemeLight ThemeMode = "light"
	// ThemeDark is the dark color scheme and the application default.
	ThemeDark ThemeMode = "dark"
)

// Toggle returns the opposite theme mode.
func (m ThemeMode) Toggle() ThemeMode {
	if m == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}

// User represents the authenticated EchoCircle identity as returned by the
// backend. Field casing follows the backend wire format.
type User struct {
	ID            string      `json:"_id"`
	FirstName     string      `json:"firstName"`
	LastName      string      `json:"lastName"`
	Email         string      `json:"email"`
	Location      string      `json:"location"`
	Occupation    string      `json:"occupation"`
	PictureRef    string      `json:"picturePath"`
	ViewedProfile int         `json:"viewedProfile"`
	Impressions   int         `json:"impressions"`
	Friends       []FriendRef `json:"friends,omitempty"`
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	if u.Friends != nil {
		out.Friends = make([]FriendRef, len(u.Friends))
		copy(out.Friends, u.Friends)
	}
	return &out
}

// FriendRef is a lightweight reference to another user's identity, used in
// friend lists.
type FriendRef struct {
	ID         string `json:"_id"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Occupation string `json:"occupation"`
	PictureRef string `json:"picturePath"`
}
