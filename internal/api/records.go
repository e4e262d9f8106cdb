package api

import (
	"fmt"
	"time"

	"snooze/internal/domain/story"
)

// UserRecord is the profile shape returned by /signup, /login and /users/{username}.
// Stories holds the stories the user submitted.
type UserRecord struct {
	Username  string        `json:"username"`
	Name      string        `json:"name"`
	CreatedAt time.Time     `json:"createdAt"`
	Favorites []story.Story `json:"favorites"`
	Stories   []story.Story `json:"stories"`
}

// AuthResult is what /signup and /login hand back
type AuthResult struct {
	User  UserRecord `json:"user"`
	Token string     `json:"token"`
}

type storiesEnvelope struct {
	Stories []story.Story `json:"stories"`
}

type storyEnvelope struct {
	Story *story.Story `json:"story"`
}

type userEnvelope struct {
	User *UserRecord `json:"user"`
}

type authEnvelope struct {
	User  *UserRecord `json:"user"`
	Token string      `json:"token"`
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Status  int    `json:"status"`
		Title   string `json:"title"`
	} `json:"error"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type userPayload struct {
	User credentials `json:"user"`
}

type tokenPayload struct {
	Token string `json:"token"`
}

type newStoryPayload struct {
	Token string    `json:"token"`
	Story story.New `json:"story"`
}

func validateStory(s story.Story) error {
	if s.ID == "" {
		return fmt.Errorf("%w: story without storyId", ErrInvalidResponse)
	}
	return nil
}

func validateStories(stories []story.Story) error {
	for i, s := range stories {
		if err := validateStory(s); err != nil {
			return fmt.Errorf("story %d: %w", i, err)
		}
	}
	return nil
}

func validateUser(u *UserRecord) error {
	if u == nil {
		return fmt.Errorf("%w: missing user", ErrInvalidResponse)
	}
	if u.Username == "" {
		return fmt.Errorf("%w: user without username", ErrInvalidResponse)
	}
	if err := validateStories(u.Favorites); err != nil {
		return fmt.Errorf("favorites: %w", err)
	}
	if err := validateStories(u.Stories); err != nil {
		return fmt.Errorf("stories: %w", err)
	}
	return nil
}
