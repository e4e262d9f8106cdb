package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"snooze/internal/domain/story"

	"github.com/google/go-cmp/cmp"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
	Header http.Header
}

// newTestServer answers every request with status and body and records what it saw.
func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()

	var mu sync.Mutex
	var seen []recordedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		rec := recordedRequest{
			Method: r.Method,
			Path:   r.URL.EscapedPath(),
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &rec.Body); err != nil {
				t.Errorf("request body is not JSON: %v", err)
			}
		}
		mu.Lock()
		seen = append(seen, rec)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	return srv, &seen
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Options{BaseURL: baseURL, HTTPClient: &http.Client{Timeout: 5 * time.Second}})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

const storyJSON = `{"storyId":"s1","title":"Go 1.25","author":"gopher","url":"https://go.dev/blog","username":"alice","createdAt":"2024-03-01T12:00:00.000Z"}`

func TestNewClient_RejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"ftp://example.com", "://nope", "example.com"} {
		if _, err := NewClient(Options{BaseURL: raw}); err == nil {
			t.Errorf("NewClient(%q) returned nil error", raw)
		}
	}
}

func TestGetStories(t *testing.T) {
	srv, seen := newTestServer(t, http.StatusOK, `{"stories":[`+storyJSON+`,{"storyId":"s2","title":"t2","author":"a","url":"http://x.io","username":"bob","createdAt":"2024-02-01T00:00:00Z"}]}`)
	c := newTestClient(t, srv.URL)

	stories, err := c.GetStories(context.Background())
	if err != nil {
		t.Fatalf("GetStories: %v", err)
	}

	want := []story.Story{
		{ID: "s1", Title: "Go 1.25", Author: "gopher", URL: "https://go.dev/blog", Username: "alice", CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
		{ID: "s2", Title: "t2", Author: "a", URL: "http://x.io", Username: "bob", CreatedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
	}
	if diff := cmp.Diff(want, stories); diff != "" {
		t.Errorf("stories (-want +got):\n%s", diff)
	}

	req := (*seen)[0]
	if req.Method != http.MethodGet || req.Path != "/stories" {
		t.Errorf("request = %s %s, want GET /stories", req.Method, req.Path)
	}
	if req.Header.Get("X-Request-Id") == "" {
		t.Errorf("missing X-Request-Id header")
	}
	if req.Header.Get("User-Agent") != DefaultUserAgent {
		t.Errorf("User-Agent = %q", req.Header.Get("User-Agent"))
	}
	if req.Body != nil {
		t.Errorf("GET /stories sent a body: %v", req.Body)
	}
}

func TestGetStories_InvalidRecord(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"stories":[{"title":"no id"}]}`)
	c := newTestClient(t, srv.URL)

	_, err := c.GetStories(context.Background())
	if !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("error = %v, want ErrInvalidResponse", err)
	}
}

func TestGetStories_NotJSON(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `<html>`)
	c := newTestClient(t, srv.URL)

	_, err := c.GetStories(context.Background())
	if !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("error = %v, want ErrInvalidResponse", err)
	}
}

func TestCreateStory(t *testing.T) {
	srv, seen := newTestServer(t, http.StatusCreated, `{"story":`+storyJSON+`}`)
	c := newTestClient(t, srv.URL)

	got, err := c.CreateStory(context.Background(), "tok", story.New{Title: "Go 1.25", Author: "gopher", URL: "https://go.dev/blog"})
	if err != nil {
		t.Fatalf("CreateStory: %v", err)
	}
	if got.ID != "s1" {
		t.Errorf("story id = %q, want s1", got.ID)
	}

	req := (*seen)[0]
	if req.Method != http.MethodPost || req.Path != "/stories" {
		t.Errorf("request = %s %s, want POST /stories", req.Method, req.Path)
	}
	if req.Header.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", req.Header.Get("Content-Type"))
	}
	wantBody := map[string]any{
		"token": "tok",
		"story": map[string]any{"title": "Go 1.25", "author": "gopher", "url": "https://go.dev/blog"},
	}
	if diff := cmp.Diff(wantBody, req.Body); diff != "" {
		t.Errorf("body (-want +got):\n%s", diff)
	}
}

func TestCreateStory_MissingStory(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusCreated, `{}`)
	c := newTestClient(t, srv.URL)

	if _, err := c.CreateStory(context.Background(), "tok", story.New{}); !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("error = %v, want ErrInvalidResponse", err)
	}
}

func TestDeleteStory(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		rejected bool
	}{
		{name: "ok", status: http.StatusOK},
		{name: "no content is not ok", status: http.StatusNoContent, rejected: true},
		{name: "forbidden", status: http.StatusForbidden, rejected: true},
		{name: "server error", status: http.StatusInternalServerError, rejected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, seen := newTestServer(t, tt.status, `{"message":"ok"}`)
			c := newTestClient(t, srv.URL)

			err := c.DeleteStory(context.Background(), "tok", "abc-123")
			if IsRejected(err) != tt.rejected {
				t.Fatalf("DeleteStory error = %v, rejected want %v", err, tt.rejected)
			}
			if tt.rejected && StatusCode(err) != tt.status {
				t.Errorf("StatusCode = %d, want %d", StatusCode(err), tt.status)
			}

			req := (*seen)[0]
			if req.Method != http.MethodDelete || req.Path != "/stories/abc-123" {
				t.Errorf("request = %s %s", req.Method, req.Path)
			}
			if req.Body["token"] != "tok" {
				t.Errorf("body token = %v", req.Body["token"])
			}
		})
	}
}

func TestDeleteStory_EscapesID(t *testing.T) {
	srv, seen := newTestServer(t, http.StatusOK, `{}`)
	c := newTestClient(t, srv.URL)

	if err := c.DeleteStory(context.Background(), "tok", "a/b"); err != nil {
		t.Fatalf("DeleteStory: %v", err)
	}
	if got := (*seen)[0].Path; got != "/stories/a%2Fb" {
		t.Errorf("path = %q, want /stories/a%%2Fb", got)
	}
}

func TestRejectedError_CarriesServerMessage(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusUnauthorized, `{"error":{"status":401,"title":"Unauthorized","message":"Invalid password"}}`)
	c := newTestClient(t, srv.URL)

	_, err := c.Login(context.Background(), "alice", "wrong")
	var re *RejectedError
	if !errors.As(err, &re) {
		t.Fatalf("error = %v, want *RejectedError", err)
	}
	if re.StatusCode != http.StatusUnauthorized || re.Message != "Invalid password" {
		t.Errorf("RejectedError = %+v", re)
	}
}

func TestSignupAndLogin(t *testing.T) {
	const authJSON = `{"token":"tok-1","user":{"username":"alice","name":"Alice","createdAt":"2024-01-01T00:00:00Z","favorites":[` + storyJSON + `],"stories":[]}}`

	t.Run("signup", func(t *testing.T) {
		srv, seen := newTestServer(t, http.StatusCreated, authJSON)
		c := newTestClient(t, srv.URL)

		res, err := c.Signup(context.Background(), "alice", "pw", "Alice")
		if err != nil {
			t.Fatalf("Signup: %v", err)
		}
		if res.Token != "tok-1" || res.User.Username != "alice" || len(res.User.Favorites) != 1 {
			t.Errorf("result = %+v", res)
		}

		req := (*seen)[0]
		if req.Method != http.MethodPost || req.Path != "/signup" {
			t.Errorf("request = %s %s", req.Method, req.Path)
		}
		want := map[string]any{"user": map[string]any{"username": "alice", "password": "pw", "name": "Alice"}}
		if diff := cmp.Diff(want, req.Body); diff != "" {
			t.Errorf("body (-want +got):\n%s", diff)
		}
	})

	t.Run("login", func(t *testing.T) {
		srv, seen := newTestServer(t, http.StatusOK, authJSON)
		c := newTestClient(t, srv.URL)

		if _, err := c.Login(context.Background(), "alice", "pw"); err != nil {
			t.Fatalf("Login: %v", err)
		}

		req := (*seen)[0]
		if req.Path != "/login" {
			t.Errorf("path = %q", req.Path)
		}
		want := map[string]any{"user": map[string]any{"username": "alice", "password": "pw"}}
		if diff := cmp.Diff(want, req.Body); diff != "" {
			t.Errorf("body (-want +got):\n%s", diff)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		srv, _ := newTestServer(t, http.StatusOK, `{"user":{"username":"alice"}}`)
		c := newTestClient(t, srv.URL)

		if _, err := c.Login(context.Background(), "alice", "pw"); !errors.Is(err, ErrInvalidResponse) {
			t.Errorf("error = %v, want ErrInvalidResponse", err)
		}
	})
}

func TestGetUser(t *testing.T) {
	srv, seen := newTestServer(t, http.StatusOK, `{"user":{"username":"alice","name":"Alice","favorites":[],"stories":[`+storyJSON+`]}}`)
	c := newTestClient(t, srv.URL)

	u, err := c.GetUser(context.Background(), "tok", "alice")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if len(u.Stories) != 1 || u.Stories[0].ID != "s1" {
		t.Errorf("user stories = %+v", u.Stories)
	}

	req := (*seen)[0]
	if req.Method != http.MethodGet || req.Path != "/users/alice" || req.Query != "token=tok" {
		t.Errorf("request = %s %s?%s", req.Method, req.Path, req.Query)
	}
}

func TestFavorites(t *testing.T) {
	tests := []struct {
		name   string
		call   func(c *Client) error
		method string
	}{
		{
			name:   "add",
			call:   func(c *Client) error { return c.AddFavorite(context.Background(), "tok", "alice", "s1") },
			method: http.MethodPost,
		},
		{
			name:   "remove",
			call:   func(c *Client) error { return c.RemoveFavorite(context.Background(), "tok", "alice", "s1") },
			method: http.MethodDelete,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, seen := newTestServer(t, http.StatusOK, `{}`)
			c := newTestClient(t, srv.URL)

			if err := tt.call(c); err != nil {
				t.Fatalf("call: %v", err)
			}

			req := (*seen)[0]
			if req.Method != tt.method || req.Path != "/users/alice/favorites/s1" {
				t.Errorf("request = %s %s", req.Method, req.Path)
			}
			if req.Body["token"] != "tok" {
				t.Errorf("token = %v", req.Body["token"])
			}
		})
	}
}

func TestFavorites_CreatedIsNotOK(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusCreated, `{}`)
	c := newTestClient(t, srv.URL)

	if err := c.AddFavorite(context.Background(), "tok", "alice", "s1"); !IsRejected(err) {
		t.Errorf("error = %v, want rejected", err)
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url)
	_, err := c.GetStories(context.Background())
	if !IsTransport(err) {
		t.Fatalf("error = %v, want transport error", err)
	}
	if IsRejected(err) {
		t.Errorf("transport error also reported as rejected")
	}
}

func TestCancelledContextIsTransportError(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"stories":[]}`)
	c := newTestClient(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetStories(ctx)
	if !IsTransport(err) || !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want transport error wrapping context.Canceled", err)
	}
}

type observed struct {
	op     string
	status int
}

type fakeObserver struct {
	calls []observed
}

func (f *fakeObserver) ObserveRequest(op string, status int, _ time.Duration) {
	f.calls = append(f.calls, observed{op: op, status: status})
}

func TestObserverSeesEveryRequest(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusForbidden, `{}`)
	obs := &fakeObserver{}
	c, err := NewClient(Options{BaseURL: srv.URL, Observer: obs})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_ = c.DeleteStory(context.Background(), "tok", "s1")
	_, _ = c.GetStories(context.Background())

	want := []observed{{op: "delete story", status: 403}, {op: "get stories", status: 403}}
	if diff := cmp.Diff(want, obs.calls, cmp.AllowUnexported(observed{})); diff != "" {
		t.Errorf("observed (-want +got):\n%s", diff)
	}
}
