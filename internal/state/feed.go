package state

import "echocircle/internal/models"

// reduceFeed applies feed actions.
func reduceFeed(s FeedState, a Action) FeedState {
	switch a.Type {
	case ActionSetPosts:
		posts, ok := a.Payload.([]models.Post)
		if !ok {
			return s
		}
		return FeedState{Posts: models.ClonePosts(posts)}

	case ActionSetPost:
		post, ok := a.Payload.(models.Post)
		if !ok {
			return s
		}
		// Update-only: an unknown id leaves the collection untouched.
		for i, existing := range s.Posts {
			if existing.ID == post.ID {
				out := FeedState{Posts: models.ClonePosts(s.Posts)}
				out.Posts[i] = post.Clone()
				return out
			}
		}
		return s

	case ActionHydrate:
		p, ok := a.Payload.(HydratePayload)
		if !ok {
			return s
		}
		if p.Posts == nil {
			return FeedState{Posts: []models.Post{}}
		}
		return FeedState{Posts: models.ClonePosts(p.Posts)}
	}

	return s
}
