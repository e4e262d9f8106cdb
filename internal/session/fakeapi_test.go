package session

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"snooze/internal/api"
	"snooze/internal/domain/story"
)

// fakeAPI is an in-memory Hack or Snooze server. override forces the status
// of a single "METHOD path" route.
type fakeAPI struct {
	mu       sync.Mutex
	stories  []story.Story
	users    map[string]*fakeUser
	override map[string]int
	nextID   int
}

type fakeUser struct {
	password  string
	name      string
	token     string
	favorites []story.Story
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		users:    map[string]*fakeUser{},
		override: map[string]int{},
	}
}

func (f *fakeAPI) start(t *testing.T) *api.Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /stories", f.getStories)
	mux.HandleFunc("POST /stories", f.createStory)
	mux.HandleFunc("DELETE /stories/{id}", f.deleteStory)
	mux.HandleFunc("POST /signup", f.signup)
	mux.HandleFunc("POST /login", f.login)
	mux.HandleFunc("GET /users/{username}", f.getUser)
	mux.HandleFunc("POST /users/{username}/favorites/{id}", f.favorite)
	mux.HandleFunc("DELETE /users/{username}/favorites/{id}", f.favorite)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		status, forced := f.override[r.Method+" "+r.URL.Path]
		f.mu.Unlock()
		if forced {
			writeJSON(w, status, map[string]any{"error": map[string]any{"status": status, "message": "forced"}})
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := api.NewClient(api.Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func (f *fakeAPI) addUser(username, password string) *fakeUser {
	u := &fakeUser{password: password, name: username, token: "token-" + username}
	f.users[username] = u
	return u
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (f *fakeAPI) userByToken(token string) (string, *fakeUser) {
	for name, u := range f.users {
		if u.token == token {
			return name, u
		}
	}
	return "", nil
}

func (f *fakeAPI) profile(username string, u *fakeUser) map[string]any {
	own := []story.Story{}
	for _, s := range f.stories {
		if s.Username == username {
			own = append(own, s)
		}
	}
	return map[string]any{
		"username":  username,
		"name":      u.name,
		"createdAt": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		"favorites": u.favorites,
		"stories":   own,
	}
}

func decode(r *http.Request, v any) {
	json.NewDecoder(r.Body).Decode(v)
}

func (f *fakeAPI) getStories(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"stories": f.stories})
}

func (f *fakeAPI) createStory(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string    `json:"token"`
		Story story.New `json:"story"`
	}
	decode(r, &body)

	f.mu.Lock()
	defer f.mu.Unlock()

	name, u := f.userByToken(body.Token)
	if u == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]any{"message": "bad token"}})
		return
	}

	f.nextID++
	s := story.Story{
		ID:        fmt.Sprintf("new-%d", f.nextID),
		Title:     body.Story.Title,
		Author:    body.Story.Author,
		URL:       body.Story.URL,
		Username:  name,
		CreatedAt: time.Date(2024, 6, 1, 0, 0, f.nextID, 0, time.UTC),
	}
	f.stories = append([]story.Story{s}, f.stories...)
	writeJSON(w, http.StatusCreated, map[string]any{"story": s})
}

func (f *fakeAPI) deleteStory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stories = story.Without(f.stories, id)
	for _, u := range f.users {
		u.favorites = story.Without(u.favorites, id)
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "deleted"})
}

func (f *fakeAPI) signup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		User struct {
			Username string `json:"username"`
			Password string `json:"password"`
			Name     string `json:"name"`
		} `json:"user"`
	}
	decode(r, &body)

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, taken := f.users[body.User.Username]; taken {
		writeJSON(w, http.StatusConflict, map[string]any{"error": map[string]any{"message": "username taken"}})
		return
	}
	u := f.addUser(body.User.Username, body.User.Password)
	u.name = body.User.Name
	writeJSON(w, http.StatusCreated, map[string]any{"token": u.token, "user": f.profile(body.User.Username, u)})
}

func (f *fakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		User struct {
			Username string `json:"username"`
			Password string `json:"password"`
		} `json:"user"`
	}
	decode(r, &body)

	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[body.User.Username]
	if !ok || u.password != body.User.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]any{"message": "Invalid password"}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": u.token, "user": f.profile(body.User.Username, u)})
}

func (f *fakeAPI) getUser(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	token := r.URL.Query().Get("token")

	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[username]
	if !ok || u.token != token {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]any{"message": "bad token"}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": f.profile(username, u)})
}

func (f *fakeAPI) favorite(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	id := r.PathValue("id")

	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[username]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"message": "no user"}})
		return
	}

	if r.Method == http.MethodPost {
		if s, found := story.Find(f.stories, id); found && !story.Contains(u.favorites, id) {
			u.favorites = story.Prepend(u.favorites, s)
		}
	} else {
		u.favorites = story.Without(u.favorites, id)
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "ok", "user": f.profile(username, u)})
}
