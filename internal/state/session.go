package state

import "echocircle/internal/models"

// reduceSession applies session actions. Reducers are pure: they never touch
// the incoming state and return a fresh SessionState.
func reduceSession(s SessionState, a Action) SessionState {
	switch a.Type {
	case ActionLogin:
		p, ok := a.Payload.(LoginPayload)
		if !ok {
			return s
		}
		return SessionState{
			Mode:    s.Mode,
			User:    p.User.Clone(),
			Token:   p.Token,
			Friends: friendsOf(p.User),
		}

	case ActionLogout:
		// Idempotent: logging out twice yields the same empty session.
		return SessionState{
			Mode:    s.Mode,
			Friends: []models.FriendRef{},
		}

	case ActionSetFriends:
		fs, ok := a.Payload.([]models.FriendRef)
		if !ok {
			return s
		}
		out := s
		out.Friends = dedupeFriends(fs)
		return out

	case ActionToggleTheme:
		out := s
		out.Mode = s.Mode.Toggle()
		return out

	case ActionHydrate:
		p, ok := a.Payload.(HydratePayload)
		if !ok {
			return s
		}
		// Only whitelisted fields come back from a snapshot; mode keeps its
		// code default.
		out := s
		out.User = p.User.Clone()
		out.Token = p.Token
		out.Friends = friendsOf(p.User)
		return out
	}

	return s
}

// friendsOf lifts the user's embedded friend list into the session's single
// source of truth. A nil user yields an empty list.
func friendsOf(u *models.User) []models.FriendRef {
	if u == nil {
		return []models.FriendRef{}
	}
	return dedupeFriends(u.Friends)
}

// dedupeFriends preserves insertion order; the last entry for a given id wins.
func dedupeFriends(fs []models.FriendRef) []models.FriendRef {
	out := make([]models.FriendRef, 0, len(fs))
	index := make(map[string]int, len(fs))
	for _, f := range fs {
		if i, seen := index[f.ID]; seen {
			out[i] = f
			continue
		}
		index[f.ID] = len(out)
		out = append(out, f)
	}
	return out
}
