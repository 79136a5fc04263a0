// Package seed provides helpers to create demo and test data for the
// application state. These helpers are intended for development and testing
// only.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"echocircle/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

// Factory builds domain entities with realistic fake content.
type Factory struct {
	rand *rand.Rand
}

// NewFactory creates a new Factory seeded from the current time.
func NewFactory() *Factory {
	seed := time.Now().UnixNano()
	gofakeit.Seed(seed)
	return &Factory{rand: rand.New(rand.NewSource(seed))}
}

// BuildFriend constructs a fake friend reference.
func (f *Factory) BuildFriend(overrides ...func(*models.FriendRef)) models.FriendRef {
	friend := models.FriendRef{
		ID:         gofakeit.UUID(),
		FirstName:  gofakeit.FirstName(),
		LastName:   gofakeit.LastName(),
		Occupation: gofakeit.JobTitle(),
		PictureRef: fmt.Sprintf("p%d.jpeg", f.rand.Intn(11)+1),
	}
	for _, override := range overrides {
		override(&friend)
	}
	return friend
}

// BuildUser constructs a fake user with the given number of friends.
func (f *Factory) BuildUser(friendCount int, overrides ...func(*models.User)) *models.User {
	user := &models.User{
		ID:            gofakeit.UUID(),
		FirstName:     gofakeit.FirstName(),
		LastName:      gofakeit.LastName(),
		Email:         gofakeit.Email(),
		Location:      fmt.Sprintf("%s, %s", gofakeit.City(), gofakeit.StateAbr()),
		Occupation:    gofakeit.JobTitle(),
		PictureRef:    fmt.Sprintf("p%d.jpeg", f.rand.Intn(11)+1),
		ViewedProfile: f.rand.Intn(10000),
		Impressions:   f.rand.Intn(100000),
	}
	user.Friends = make([]models.FriendRef, 0, friendCount)
	for i := 0; i < friendCount; i++ {
		user.Friends = append(user.Friends, f.BuildFriend())
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// BuildPost constructs a fake post authored by the given user.
func (f *Factory) BuildPost(author *models.User, overrides ...func(*models.Post)) models.Post {
	post := models.Post{
		ID:             gofakeit.UUID(),
		UserID:         author.ID,
		FirstName:      author.FirstName,
		LastName:       author.LastName,
		Description:    gofakeit.Sentence(8 + f.rand.Intn(10)),
		Location:       author.Location,
		PictureRef:     fmt.Sprintf("post%d.jpeg", f.rand.Intn(6)+1),
		UserPictureRef: author.PictureRef,
		Audience:       models.AudiencePublic,
		Likes:          map[string]bool{},
		Comments:       []string{},
	}

	// realistic created_at spread over the last 90 days
	daysBack := f.rand.Intn(90)
	hoursBack := f.rand.Intn(24)
	minsBack := f.rand.Intn(60)
	post.CreatedAt = time.Now().Add(-time.Duration(daysBack)*24*time.Hour -
		time.Duration(hoursBack)*time.Hour - time.Duration(minsBack)*time.Minute)

	likeCount := f.rand.Intn(20)
	for i := 0; i < likeCount; i++ {
		post.Likes[gofakeit.UUID()] = true
	}
	commentCount := f.rand.Intn(4)
	for i := 0; i < commentCount; i++ {
		post.Comments = append(post.Comments, gofakeit.Sentence(4+f.rand.Intn(8)))
	}

	for _, override := range overrides {
		override(&post)
	}
	return post
}

// BuildFeed constructs a feed of fake posts from distinct authors.
func (f *Factory) BuildFeed(postCount int) []models.Post {
	posts := make([]models.Post, 0, postCount)
	for i := 0; i < postCount; i++ {
		author := f.BuildUser(0)
		posts = append(posts, f.BuildPost(author))
	}
	return posts
}
