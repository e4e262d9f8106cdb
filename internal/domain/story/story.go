package story

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ErrMalformedURL is returned by HostName when a story URL is not an absolute URI
var ErrMalformedURL = errors.New("malformed story url")

// Story is a single submitted link
type Story struct {
	ID        string    `json:"storyId"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	URL       string    `json:"url"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// New holds the fields a user fills in when posting a story
type New struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	URL    string `json:"url"`
}

// HostName parses the host out of the story URL. Absolute URIs without an
// authority, such as mailto: links, have an empty host.
func (s Story) HostName() (string, error) {
	u, err := url.Parse(s.URL)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrMalformedURL, s.URL, err)
	}

	if u.Scheme == "" {
		return "", fmt.Errorf("%w: %q is not absolute", ErrMalformedURL, s.URL)
	}

	return u.Hostname(), nil
}

// List is an ordered collection of stories, newest first
type List struct {
	Stories []Story `json:"stories"`
}

func NewList(stories []Story) *List {
	return &List{Stories: stories}
}

func (l *List) Len() int {
	return len(l.Stories)
}

// Prepend inserts s at the front of the list
func (l *List) Prepend(s Story) {
	l.Stories = Prepend(l.Stories, s)
}

// Remove drops every story with the given id. It is a no-op when the id is absent.
func (l *List) Remove(id string) {
	l.Stories = Without(l.Stories, id)
}

// Find returns the first story with the given id
func (l *List) Find(id string) (Story, bool) {
	return Find(l.Stories, id)
}

// Prepend returns a new slice with s at index 0 followed by stories.
func Prepend(stories []Story, s Story) []Story {
	out := make([]Story, 0, len(stories)+1)
	out = append(out, s)
	return append(out, stories...)
}

// Without returns the stories whose id differs from id, keeping order.
func Without(stories []Story, id string) []Story {
	out := make([]Story, 0, len(stories))
	for _, s := range stories {
		if s.ID != id {
			out = append(out, s)
		}
	}
	return out
}

// Contains reports whether any story in stories has the given id.
func Contains(stories []Story, id string) bool {
	_, ok := Find(stories, id)
	return ok
}

func Find(stories []Story, id string) (Story, bool) {
	for _, s := range stories {
		if s.ID == id {
			return s, true
		}
	}
	return Story{}, false
}
