package user

import (
	"time"

	"snooze/internal/domain/story"
)

// User is the signed-in account together with its login token
type User struct {
	Username   string        `json:"username"`
	Name       string        `json:"name"`
	CreatedAt  time.Time     `json:"createdAt"`
	Favorites  []story.Story `json:"favorites"`
	OwnStories []story.Story `json:"ownStories"`
	LoginToken string        `json:"-"`
}

// IsFavorite reports whether any favorite has the given story id.
func (u *User) IsFavorite(storyID string) bool {
	return story.Contains(u.Favorites, storyID)
}

// IsOwn reports whether the user submitted the story with the given id.
func (u *User) IsOwn(storyID string) bool {
	return story.Contains(u.OwnStories, storyID)
}

// PrependFavorite inserts s at the front of the favorites. Duplicates are kept.
func (u *User) PrependFavorite(s story.Story) {
	u.Favorites = story.Prepend(u.Favorites, s)
}

func (u *User) DropFavorite(storyID string) {
	u.Favorites = story.Without(u.Favorites, storyID)
}

func (u *User) PrependOwn(s story.Story) {
	u.OwnStories = story.Prepend(u.OwnStories, s)
}

func (u *User) DropOwn(storyID string) {
	u.OwnStories = story.Without(u.OwnStories, storyID)
}
