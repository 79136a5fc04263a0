package state

import (
	"testing"

	"echocircle/internal/models"
	"echocircle/internal/seed"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_LoginThenLogoutRestoresEmptyState(t *testing.T) {
	factory := seed.NewFactory()
	st := NewStore()
	initial := st.GetState()

	st.Dispatch(Login(factory.BuildUser(3), "tok-abc"))
	require.True(t, st.GetState().LoggedIn())

	st.Dispatch(Logout())
	after := st.GetState()

	assert.Nil(t, after.Session.User)
	assert.Empty(t, after.Session.Token)
	assert.Empty(t, after.Session.Friends)
	assert.Equal(t, initial.Session, after.Session)
}

func TestSession_LogoutIsIdempotent(t *testing.T) {
	st := NewStore()
	st.Dispatch(Logout())
	first := st.GetState()
	st.Dispatch(Logout())
	assert.Equal(t, first.Session, st.GetState().Session)
}

func TestSession_LoginScenario(t *testing.T) {
	st := NewStore()
	st.Dispatch(Login(&models.User{ID: "u1", FirstName: "Ann"}, "tok-123"))

	got := st.GetState()
	require.NotNil(t, got.Session.User)
	assert.Equal(t, "u1", got.Session.User.ID)
	assert.Equal(t, "tok-123", got.Session.Token)

	st.Dispatch(Logout())
	got = st.GetState()
	assert.Nil(t, got.Session.User)
	assert.Empty(t, got.Session.Token)
}

func TestSession_SetFriendsVisibleFromEveryAccessor(t *testing.T) {
	st := NewStore()
	st.Dispatch(Login(&models.User{ID: "u1"}, "tok"))

	friends := []models.FriendRef{
		{ID: "f1", FirstName: "Mona"},
		{ID: "f2", FirstName: "Luis"},
		{ID: "f3", FirstName: "Iris"},
	}
	st.Dispatch(SetFriends(friends))

	got := st.GetState()
	assert.Equal(t, friends, got.Session.Friends)
	assert.Equal(t, friends, got.CurrentFriends())
	// Consolidated source of truth: the projection on user.friends must agree.
	require.NotNil(t, got.Session.User)
	assert.Equal(t, friends, got.Session.User.Friends)
}

func TestSession_SetFriendsDuplicateIDLastWriteWins(t *testing.T) {
	st := NewStore()
	st.Dispatch(SetFriends([]models.FriendRef{
		{ID: "f1", FirstName: "Mona"},
		{ID: "f2", FirstName: "Luis"},
		{ID: "f1", FirstName: "Monika"},
	}))

	got := st.GetState().Session.Friends
	require.Len(t, got, 2)
	// Insertion order preserved, last entry for f1 wins.
	assert.Equal(t, "f1", got[0].ID)
	assert.Equal(t, "Monika", got[0].FirstName)
	assert.Equal(t, "f2", got[1].ID)
}

func TestSession_ToggleThemeTwiceReturnsToOriginal(t *testing.T) {
	st := NewStore()
	original := st.GetState().Session.Mode
	require.Equal(t, models.ThemeDark, original)

	st.Dispatch(ToggleTheme())
	assert.Equal(t, models.ThemeLight, st.GetState().Session.Mode)

	st.Dispatch(ToggleTheme())
	assert.Equal(t, original, st.GetState().Session.Mode)
}

func TestSession_LoginLiftsEmbeddedFriends(t *testing.T) {
	user := &models.User{
		ID: "u1",
		Friends: []models.FriendRef{
			{ID: "f1"}, {ID: "f2"},
		},
	}
	st := NewStore()
	st.Dispatch(Login(user, "tok"))

	got := st.GetState()
	assert.Len(t, got.Session.Friends, 2)
	assert.Equal(t, got.Session.Friends, got.Session.User.Friends)
}

func TestSession_MalformedPayloadIsNoOp(t *testing.T) {
	st := NewStore()
	before := st.GetState()

	st.Dispatch(Action{Type: ActionSetFriends, Scope: ScopeDomain, Payload: "not-a-list"})

	assert.Equal(t, before.Session, st.GetState().Session)
}
