package models

import "time"

// Audience defines who may see a post.
type Audience string

const (
	// AudiencePublic makes a post visible to everyone.
	AudiencePublic Audience = "public"
	// AudienceFriends restricts a post to the author's friends.
	AudienceFriends Audience = "friends"
	// AudiencePrivate restricts a post to its author.
	AudiencePrivate Audience = "private"
)

// Post represents a feed post as returned by the backend. Likes use set
// semantics: presence of a user id key means that user liked the post.
type Post struct {
	ID             string          `json:"_id"`
	UserID         string          `json:"userId"`
	FirstName      string          `json:"firstName"`
	LastName       string          `json:"lastName"`
	Description    string          `json:"description"`
	Location       string          `json:"location"`
	PictureRef     string          `json:"picturePath"`
	UserPictureRef string          `json:"userPicturePath"`
	Audience       Audience        `json:"audience"`
	Likes          map[string]bool `json:"likes"`
	Comments       []string        `json:"comments"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Clone returns a deep copy of the post.
func (p Post) Clone() Post {
	out := p
	if p.Likes != nil {
		out.Likes = make(map[string]bool, len(p.Likes))
		for k, v := range p.Likes {
			out.Likes[k] = v
		}
	}
	if p.Comments != nil {
		out.Comments = make([]string, len(p.Comments))
		copy(out.Comments, p.Comments)
	}
	return out
}

// LikedBy reports whether the given user liked the post.
func (p Post) LikedBy(userID string) bool {
	return p.Likes[userID]
}

// LikeCount returns the number of users who liked the post.
func (p Post) LikeCount() int {
	n := 0
	for _, liked := range p.Likes {
		if liked {
			n++
		}
	}
	return n
}

// ClonePosts deep-copies a post slice.
func ClonePosts(posts []Post) []Post {
	if posts == nil {
		return nil
	}
	out := make([]Post, len(posts))
	for i, p := range posts {
		out[i] = p.Clone()
	}
	return out
}
