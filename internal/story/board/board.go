package board

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"snooze/internal/api"
	"snooze/internal/cli/scheme/colours"
	"snooze/internal/config"
	"snooze/internal/domain/story"
	"snooze/internal/domain/user"
	"snooze/internal/metrics"
	"snooze/internal/preview"
	"snooze/internal/session"
	"snooze/internal/story/tts"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

// Board is the terminal front end: it owns the session and renders every command
type Board struct {
	cfg      config.Config
	session  *session.Session
	creds    *session.CredentialStore
	previews *preview.Fetcher
	metrics  *metrics.Collector
	newTTS   func(tts.Config) (tts.Engine, error)

	out     io.Writer
	input   *bufio.Reader
	// inputFd is the descriptor behind input, -1 when input is not a file
	inputFd int
	ctx     context.Context
	Cancel  context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

func NewBoard() *Board {
	return newBoard(os.Stdout, os.Stdin)
}

func newBoard(out io.Writer, in io.Reader) *Board {
	inputFd := -1
	if f, ok := in.(*os.File); ok {
		inputFd = int(f.Fd())
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Board{
		newTTS:  tts.NewEngine,
		out:     out,
		input:   bufio.NewReader(in),
		inputFd: inputFd,
		ctx:     ctx,
		Cancel:  cancel,
	}
}

// Configure builds the API client and stores from the resolved config. It
// runs once, after flags and the config file have been read.
func (b *Board) Configure(cfg config.Config) error {
	collector := metrics.NewCollector(prometheus.NewRegistry())

	var limiter *rate.Limiter
	if cfg.API.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.API.RateLimit), cfg.API.RateBurst)
	}

	client, err := api.NewClient(api.Options{
		BaseURL:    cfg.API.BaseURL,
		UserAgent:  cfg.API.UserAgent,
		HTTPClient: &http.Client{Timeout: cfg.API.Timeout},
		Limiter:    limiter,
		Observer:   collector,
	})
	if err != nil {
		return fmt.Errorf("failed to create api client: %w", err)
	}

	b.cfg = cfg
	b.session = session.New(client)
	b.creds = session.NewCredentialStore(cfg.CredentialsPath)
	b.previews = preview.NewFetcher(cfg.Preview.Timeout, cfg.Preview.MaxBytes)
	b.metrics = collector
	return nil
}

// Close flushes metrics when a textfile path is configured. Only the first
// call writes; the signal handler and main may both reach it.
func (b *Board) Close() error {
	b.closeOnce.Do(func() {
		if b.metrics == nil || b.cfg.MetricsTextfile == "" {
			return
		}
		if err := b.metrics.WriteTextfile(b.cfg.MetricsTextfile); err != nil {
			b.closeErr = fmt.Errorf("failed to write metrics: %w", err)
		}
	})
	return b.closeErr
}

func (b *Board) ShowWelcome() {
	fmt.Fprintln(b.out)
	colours.Headline.Fprintln(b.out, "📰 Hack or Snooze")
	fmt.Fprintln(b.out)
	colours.Info.Fprintln(b.out, "Available commands:")
	fmt.Fprintln(b.out, "  • snooze stories           - Browse the latest stories")
	fmt.Fprintln(b.out, "  • snooze post <text>       - Submit a story")
	fmt.Fprintln(b.out, "  • snooze favorite <id>     - Favorite a story")
	fmt.Fprintln(b.out, "  • snooze favorites         - Your favorites")
	fmt.Fprintln(b.out, "  • snooze mine              - Stories you submitted")
	fmt.Fprintln(b.out, "  • snooze login <username>  - Sign in")
	fmt.Fprintln(b.out)

	b.restore()
	if u := b.session.User(); u != nil {
		colours.Success.Fprintf(b.out, "Signed in as %s\n", u.Username)
	} else {
		colours.Prompt.Fprintln(b.out, "Not signed in. Run 'snooze login <username>' or 'snooze signup <username>'.")
	}
}

func (b *Board) ListStories(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	b.restore()
	list, err := b.session.LoadStories(b.ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(b.out)
	colours.Headline.Fprintln(b.out, "📰 Latest stories")
	fmt.Fprintln(b.out)

	stories := list.Stories
	if limit > 0 && limit < len(stories) {
		stories = stories[:limit]
	}
	b.renderStories(stories, "🔍 No stories yet.")
	return nil
}

func (b *Board) ListFavorites(cmd *cobra.Command, args []string) error {
	u, err := b.requireUser()
	if err != nil {
		return err
	}

	fmt.Fprintln(b.out)
	colours.Headline.Fprintf(b.out, "★ Favorites of %s\n", u.Username)
	fmt.Fprintln(b.out)
	b.renderStories(u.Favorites, "No favorites added!")
	return nil
}

func (b *Board) ListOwn(cmd *cobra.Command, args []string) error {
	u, err := b.requireUser()
	if err != nil {
		return err
	}

	fmt.Fprintln(b.out)
	colours.Headline.Fprintf(b.out, "✍️  Stories submitted by %s\n", u.Username)
	fmt.Fprintln(b.out)
	b.renderStories(u.OwnStories, "No stories added by user yet!")
	return nil
}

// PostStory accepts either free text containing a link or explicit flags;
// flags win over what was parsed from the text.
func (b *Board) PostStory(cmd *cobra.Command, args []string) error {
	u, err := b.requireUser()
	if err != nil {
		return err
	}

	var n story.New
	if len(args) > 0 {
		n, err = story.ParseSubmission(strings.Join(args, " "))
		if err != nil {
			return err
		}
	}
	if v, _ := cmd.Flags().GetString("title"); v != "" {
		n.Title = v
	}
	if v, _ := cmd.Flags().GetString("url"); v != "" {
		n.URL = v
	}
	n.Author, _ = cmd.Flags().GetString("author")
	if n.Author == "" {
		n.Author = u.Name
	}

	if n.Title == "" {
		return errors.New("a story needs a title")
	}
	if _, err := (story.Story{URL: n.URL}).HostName(); err != nil {
		return err
	}

	created, err := b.session.AddStory(b.ctx, n)
	if err != nil {
		return err
	}

	colours.Success.Fprintln(b.out, "✅ Story posted")
	b.renderStories([]story.Story{created}, "")
	return nil
}

func (b *Board) DeleteStory(cmd *cobra.Command, args []string) error {
	if _, err := b.requireUser(); err != nil {
		return err
	}

	storyID := args[0]
	if err := b.session.DeleteStory(b.ctx, storyID); err != nil {
		if api.IsRejected(err) {
			colours.Error.Fprintln(b.out, "❌ Failed to delete story.")
		}
		return err
	}

	colours.Success.Fprintf(b.out, "🗑️  Deleted story %s\n", storyID)
	return nil
}

func (b *Board) Favorite(cmd *cobra.Command, args []string) error {
	return b.toggleFavorite(args[0], true)
}

func (b *Board) Unfavorite(cmd *cobra.Command, args []string) error {
	return b.toggleFavorite(args[0], false)
}

func (b *Board) toggleFavorite(storyID string, add bool) error {
	u, err := b.requireUser()
	if err != nil {
		return err
	}

	st, ok := story.Find(u.Favorites, storyID)
	if !ok {
		if st, err = b.findStory(storyID); err != nil {
			return err
		}
	}

	if add {
		err = b.session.AddFavorite(b.ctx, st)
	} else {
		err = b.session.RemoveFavorite(b.ctx, st)
	}
	if err != nil {
		if api.IsRejected(err) && add {
			colours.Error.Fprintln(b.out, "❌ Failed to favorite story.")
		} else if api.IsRejected(err) {
			colours.Error.Fprintln(b.out, "❌ Failed to unfavorite story.")
		}
		return err
	}

	if add {
		colours.Favorite.Fprintf(b.out, "★ Favorited %q\n", st.Title)
	} else {
		colours.Success.Fprintf(b.out, "☆ Removed %q from favorites\n", st.Title)
	}
	return nil
}

// findStory looks in the loaded list, loading it first when needed.
func (b *Board) findStory(storyID string) (story.Story, error) {
	list := b.session.Stories()
	if list == nil {
		var err error
		if list, err = b.session.LoadStories(b.ctx); err != nil {
			return story.Story{}, err
		}
	}

	st, ok := list.Find(storyID)
	if !ok {
		return story.Story{}, fmt.Errorf("story with ID '%s' not found", storyID)
	}
	return st, nil
}

func (b *Board) Preview(cmd *cobra.Command, args []string) error {
	st, err := b.findStory(args[0])
	if err != nil {
		return err
	}

	page, err := b.previews.Fetch(b.ctx, st.URL)
	if err != nil {
		return err
	}

	fmt.Fprintln(b.out)
	b.renderStories([]story.Story{st}, "")
	if page.SiteName != "" {
		colours.Info.Fprintf(b.out, "     🌐 %s\n", page.SiteName)
	}
	if page.Title != "" {
		colours.Headline.Fprintf(b.out, "     %s\n", page.Title)
	}
	if page.Description != "" {
		fmt.Fprintf(b.out, "     %s\n", page.Description)
	}
	return nil
}

// Speak reads the newest headlines aloud.
func (b *Board) Speak(cmd *cobra.Command, args []string) error {
	if listOnly, _ := cmd.Flags().GetBool("list-engines"); listOnly {
		b.listEngines()
		return nil
	}

	count, _ := cmd.Flags().GetInt("count")

	list, err := b.session.LoadStories(b.ctx)
	if err != nil {
		return err
	}

	engine, err := b.newTTS(tts.Config{
		Type:      b.cfg.TTS.Type,
		Voice:     b.cfg.TTS.Voice,
		Speed:     b.cfg.TTS.Speed,
		Volume:    b.cfg.TTS.Volume,
		CachePath: b.cfg.TTS.CachePath,
	})
	if err != nil {
		return fmt.Errorf("failed to create tts engine: %w", err)
	}
	defer engine.Stop()
	if c, ok := engine.(io.Closer); ok {
		defer c.Close()
	}

	stories := list.Stories
	if count > 0 && count < len(stories) {
		stories = stories[:count]
	}

	colours.Success.Fprintln(b.out, "🎧 Reading headlines... press Ctrl+C to stop")
	for i, st := range stories {
		line := headline(st)
		fmt.Fprintf(b.out, "  %d. %s\n", i+1, line)
		if err := engine.Speak(b.ctx, line); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("tts error: %w", err)
		}
	}
	return nil
}

func (b *Board) listEngines() {
	colours.Info.Fprintln(b.out, "🔊 Speech engines available here:")
	for _, e := range tts.AvailableEngines() {
		line := "  • " + e.String()
		if e.String() == b.cfg.TTS.Type {
			line += " (configured)"
		}
		fmt.Fprintln(b.out, line)
	}
	colours.Muted.Fprintf(b.out, "Set tts.type to one of these, or %q to pick automatically.\n", tts.EngineTypeAuto.String())
}

// restore signs in from stored credentials. Failures leave the session logged out.
func (b *Board) restore() {
	if b.session.LoggedIn() {
		return
	}

	creds, err := b.creds.Load()
	if err != nil {
		if !errors.Is(err, session.ErrNoCredentials) {
			logrus.WithError(err).Warn("could not read stored credentials")
		}
		return
	}

	b.session.Restore(b.ctx, creds.Token, creds.Username)
}

func (b *Board) requireUser() (*user.User, error) {
	b.restore()
	u := b.session.User()
	if u == nil {
		return nil, fmt.Errorf("%w: run 'snooze login <username>' first", session.ErrNotLoggedIn)
	}
	return u, nil
}
