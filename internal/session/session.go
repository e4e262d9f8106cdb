// Package session holds the state of one signed-in terminal session: the
// current story list and the current user. Every operation makes at most one
// API round trip and then patches the in-memory collections so they match
// what the server now holds.
//
// A Session is not safe for concurrent use.
package session

import (
	"context"
	"errors"
	"fmt"

	"snooze/internal/api"
	"snooze/internal/domain/story"
	"snooze/internal/domain/user"

	"github.com/sirupsen/logrus"
)

// ErrNotLoggedIn is returned by operations that need a user when none is signed in
var ErrNotLoggedIn = errors.New("not logged in")

// API is the subset of the remote API a session needs
type API interface {
	GetStories(ctx context.Context) ([]story.Story, error)
	CreateStory(ctx context.Context, token string, n story.New) (story.Story, error)
	DeleteStory(ctx context.Context, token, storyID string) error
	Signup(ctx context.Context, username, password, name string) (api.AuthResult, error)
	Login(ctx context.Context, username, password string) (api.AuthResult, error)
	GetUser(ctx context.Context, token, username string) (api.UserRecord, error)
	AddFavorite(ctx context.Context, token, username, storyID string) error
	RemoveFavorite(ctx context.Context, token, username, storyID string) error
}

type Session struct {
	api     API
	stories *story.List
	user    *user.User
}

func New(client API) *Session {
	return &Session{api: client}
}

// Stories returns the current list, nil until LoadStories succeeds.
func (s *Session) Stories() *story.List {
	return s.stories
}

// User returns the signed-in user, nil when logged out.
func (s *Session) User() *user.User {
	return s.user
}

func (s *Session) LoggedIn() bool {
	return s.user != nil
}

// LoadStories fetches every story and makes it the current list.
func (s *Session) LoadStories(ctx context.Context) (*story.List, error) {
	stories, err := s.api.GetStories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stories: %w", err)
	}

	s.stories = story.NewList(stories)
	logrus.WithField("count", len(stories)).Debug("loaded stories")

	return s.stories, nil
}

// AddStory posts a story as the current user and puts it at the front of
// both the story list and the user's own stories.
func (s *Session) AddStory(ctx context.Context, n story.New) (story.Story, error) {
	if s.user == nil {
		return story.Story{}, ErrNotLoggedIn
	}

	created, err := s.api.CreateStory(ctx, s.user.LoginToken, n)
	if err != nil {
		return story.Story{}, fmt.Errorf("add story: %w", err)
	}

	s.applyAdd(created)

	logrus.WithFields(logrus.Fields{
		"story_id": created.ID,
		"username": s.user.Username,
	}).Info("story added")

	return created, nil
}

// DeleteStory deletes a story on the server. Only a 200 answer removes it
// locally; any other answer returns an *api.RejectedError and changes nothing.
func (s *Session) DeleteStory(ctx context.Context, storyID string) error {
	if s.user == nil {
		return ErrNotLoggedIn
	}

	if err := s.api.DeleteStory(ctx, s.user.LoginToken, storyID); err != nil {
		return fmt.Errorf("delete story %s: %w", storyID, err)
	}

	s.applyDelete(storyID)

	logrus.WithField("story_id", storyID).Info("story deleted")
	return nil
}

// applyAdd builds both new slices before assigning either.
func (s *Session) applyAdd(created story.Story) {
	own := story.Prepend(s.user.OwnStories, created)

	var all []story.Story
	if s.stories != nil {
		all = story.Prepend(s.stories.Stories, created)
	}

	s.user.OwnStories = own
	if s.stories != nil {
		s.stories.Stories = all
	}
}

func (s *Session) applyDelete(storyID string) {
	favorites := story.Without(s.user.Favorites, storyID)
	own := story.Without(s.user.OwnStories, storyID)

	var all []story.Story
	if s.stories != nil {
		all = story.Without(s.stories.Stories, storyID)
	}

	s.user.Favorites = favorites
	s.user.OwnStories = own
	if s.stories != nil {
		s.stories.Stories = all
	}
}

// Signup registers a new account and signs it in.
func (s *Session) Signup(ctx context.Context, username, password, name string) (*user.User, error) {
	res, err := s.api.Signup(ctx, username, password, name)
	if err != nil {
		return nil, fmt.Errorf("signup %s: %w", username, err)
	}

	s.user = fromRecord(res.User, res.Token)
	logrus.WithField("username", s.user.Username).Info("signed up")

	return s.user, nil
}

func (s *Session) Login(ctx context.Context, username, password string) (*user.User, error) {
	res, err := s.api.Login(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("login %s: %w", username, err)
	}

	s.user = fromRecord(res.User, res.Token)
	logrus.WithField("username", s.user.Username).Info("logged in")

	return s.user, nil
}

// Restore signs in with a previously issued token. It never fails: any error
// is logged and nil is returned, leaving the session logged out.
func (s *Session) Restore(ctx context.Context, token, username string) *user.User {
	rec, err := s.api.GetUser(ctx, token, username)
	if err != nil {
		logrus.WithError(err).WithField("username", username).Warn("restoring stored credentials failed")
		return nil
	}

	s.user = fromRecord(rec, token)
	return s.user
}

// Logout forgets the current user. The story list stays loaded.
func (s *Session) Logout() {
	s.user = nil
}

// AddFavorite marks st as a favorite. On success st goes to the front of the
// favorites even if it is already there.
func (s *Session) AddFavorite(ctx context.Context, st story.Story) error {
	if err := s.changeFavorite(ctx, true, st); err != nil {
		return err
	}

	s.user.PrependFavorite(st)
	return nil
}

func (s *Session) RemoveFavorite(ctx context.Context, st story.Story) error {
	if err := s.changeFavorite(ctx, false, st); err != nil {
		return err
	}

	s.user.DropFavorite(st.ID)
	return nil
}

func (s *Session) changeFavorite(ctx context.Context, add bool, st story.Story) error {
	if s.user == nil {
		return ErrNotLoggedIn
	}

	u := s.user
	if add {
		if err := s.api.AddFavorite(ctx, u.LoginToken, u.Username, st.ID); err != nil {
			return fmt.Errorf("favorite %s: %w", st.ID, err)
		}
		return nil
	}

	if err := s.api.RemoveFavorite(ctx, u.LoginToken, u.Username, st.ID); err != nil {
		return fmt.Errorf("unfavorite %s: %w", st.ID, err)
	}
	return nil
}

// IsFavorite is false when nobody is logged in.
func (s *Session) IsFavorite(storyID string) bool {
	return s.user != nil && s.user.IsFavorite(storyID)
}

// fromRecord maps the server's profile to a User; the server's "stories"
// field holds the user's own submissions.
func fromRecord(rec api.UserRecord, token string) *user.User {
	favorites := rec.Favorites
	if favorites == nil {
		favorites = []story.Story{}
	}
	own := rec.Stories
	if own == nil {
		own = []story.Story{}
	}

	return &user.User{
		Username:   rec.Username,
		Name:       rec.Name,
		CreatedAt:  rec.CreatedAt,
		Favorites:  favorites,
		OwnStories: own,
		LoginToken: token,
	}
}
