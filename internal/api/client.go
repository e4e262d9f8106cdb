package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"snooze/internal/domain/story"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://hack-or-snooze-v3.herokuapp.com"
	DefaultUserAgent = "snooze/1.0"

	maxBodyBytes = 8 << 20
)

// Observer is told about every request the client makes. status is 0 when
// the request failed before a response arrived.
type Observer interface {
	ObserveRequest(op string, status int, elapsed time.Duration)
}

type Options struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
	// Limiter paces outgoing requests; nil means unlimited
	Limiter  *rate.Limiter
	Observer Observer
}

// Client talks to the Hack or Snooze REST API
type Client struct {
	baseURL    *url.URL
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	observer   Observer
}

func NewClient(opts Options) (*Client, error) {
	raw := opts.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}

	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", raw, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", raw)
	}

	c := &Client{
		baseURL:    base,
		userAgent:  opts.UserAgent,
		httpClient: opts.HTTPClient,
		limiter:    opts.Limiter,
		observer:   opts.Observer,
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return c, nil
}

// GetStories fetches every story the server returns in one response.
func (c *Client) GetStories(ctx context.Context) ([]story.Story, error) {
	var env storiesEnvelope
	err := c.do(ctx, call{
		op:     "get stories",
		method: http.MethodGet,
		path:   "/stories",
		accept: anySuccess,
		out:    &env,
	})
	if err != nil {
		return nil, err
	}

	if err := validateStories(env.Stories); err != nil {
		return nil, fmt.Errorf("get stories: %w", err)
	}

	return env.Stories, nil
}

// CreateStory posts a new story on behalf of the token holder.
func (c *Client) CreateStory(ctx context.Context, token string, n story.New) (story.Story, error) {
	var env storyEnvelope
	err := c.do(ctx, call{
		op:     "create story",
		method: http.MethodPost,
		path:   "/stories",
		body:   newStoryPayload{Token: token, Story: n},
		accept: anySuccess,
		out:    &env,
	})
	if err != nil {
		return story.Story{}, err
	}

	if env.Story == nil {
		return story.Story{}, fmt.Errorf("create story: %w: missing story", ErrInvalidResponse)
	}
	if err := validateStory(*env.Story); err != nil {
		return story.Story{}, fmt.Errorf("create story: %w", err)
	}

	return *env.Story, nil
}

// DeleteStory removes a story. Only status 200 counts as success.
func (c *Client) DeleteStory(ctx context.Context, token, storyID string) error {
	return c.do(ctx, call{
		op:     "delete story",
		method: http.MethodDelete,
		path:   "/stories/" + url.PathEscape(storyID),
		body:   tokenPayload{Token: token},
		accept: exactlyOK,
	})
}

func (c *Client) Signup(ctx context.Context, username, password, name string) (AuthResult, error) {
	return c.authenticate(ctx, "signup", "/signup", credentials{
		Username: username,
		Password: password,
		Name:     name,
	})
}

func (c *Client) Login(ctx context.Context, username, password string) (AuthResult, error) {
	return c.authenticate(ctx, "login", "/login", credentials{
		Username: username,
		Password: password,
	})
}

func (c *Client) authenticate(ctx context.Context, op, path string, creds credentials) (AuthResult, error) {
	var env authEnvelope
	err := c.do(ctx, call{
		op:     op,
		method: http.MethodPost,
		path:   path,
		body:   userPayload{User: creds},
		accept: anySuccess,
		out:    &env,
	})
	if err != nil {
		return AuthResult{}, err
	}

	if err := validateUser(env.User); err != nil {
		return AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if env.Token == "" {
		return AuthResult{}, fmt.Errorf("%s: %w: missing token", op, ErrInvalidResponse)
	}

	return AuthResult{User: *env.User, Token: env.Token}, nil
}

// GetUser fetches a profile with a previously issued token.
func (c *Client) GetUser(ctx context.Context, token, username string) (UserRecord, error) {
	var env userEnvelope
	err := c.do(ctx, call{
		op:     "get user",
		method: http.MethodGet,
		path:   "/users/" + url.PathEscape(username),
		query:  url.Values{"token": {token}},
		accept: anySuccess,
		out:    &env,
	})
	if err != nil {
		return UserRecord{}, err
	}

	if err := validateUser(env.User); err != nil {
		return UserRecord{}, fmt.Errorf("get user: %w", err)
	}

	return *env.User, nil
}

func (c *Client) AddFavorite(ctx context.Context, token, username, storyID string) error {
	return c.changeFavorite(ctx, "add favorite", http.MethodPost, token, username, storyID)
}

func (c *Client) RemoveFavorite(ctx context.Context, token, username, storyID string) error {
	return c.changeFavorite(ctx, "remove favorite", http.MethodDelete, token, username, storyID)
}

func (c *Client) changeFavorite(ctx context.Context, op, method, token, username, storyID string) error {
	return c.do(ctx, call{
		op:     op,
		method: method,
		path:   "/users/" + url.PathEscape(username) + "/favorites/" + url.PathEscape(storyID),
		body:   tokenPayload{Token: token},
		accept: exactlyOK,
	})
}

type call struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
	accept func(status int) bool
	out    any
}

func anySuccess(status int) bool {
	return status >= 200 && status < 300
}

func exactlyOK(status int) bool {
	return status == http.StatusOK
}

func (c *Client) do(ctx context.Context, cl call) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.observe(cl.op, 0, 0)
			return &TransportError{Op: cl.op, Err: err}
		}
	}

	target := c.baseURL.String() + cl.path
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		payload, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", cl.op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, target, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", cl.op, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := logrus.WithFields(logrus.Fields{
		"op":         cl.op,
		"method":     cl.method,
		"path":       cl.path,
		"request_id": requestID,
	})

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.observe(cl.op, 0, elapsed)
		log.WithError(err).Debug("api request failed")
		return &TransportError{Op: cl.op, Err: err}
	}
	defer resp.Body.Close()

	c.observe(cl.op, resp.StatusCode, elapsed)
	log.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": elapsed,
	}).Debug("api request")

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &TransportError{Op: cl.op, Err: fmt.Errorf("read response: %w", err)}
	}

	if !cl.accept(resp.StatusCode) {
		return &RejectedError{
			Op:         cl.op,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data),
		}
	}

	if cl.out == nil {
		return nil
	}

	if err := json.Unmarshal(data, cl.out); err != nil {
		return fmt.Errorf("%s: %w: %v", cl.op, ErrInvalidResponse, err)
	}

	return nil
}

func (c *Client) observe(op string, status int, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRequest(op, status, elapsed)
	}
}

// errorMessage pulls error.message out of a rejection body when the server sent one.
func errorMessage(data []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ""
	}
	return env.Error.Message
}
