package board

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"snooze/internal/api"
	"snooze/internal/cli/scheme/colours"
	"snooze/internal/domain/user"
	"snooze/internal/session"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func (b *Board) Signup(cmd *cobra.Command, args []string) error {
	username := args[0]
	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		name = username
	}

	password, err := b.readPassword()
	if err != nil {
		return err
	}

	u, err := b.session.Signup(b.ctx, username, password, name)
	if err != nil {
		if api.StatusCode(err) == http.StatusConflict {
			colours.Error.Fprintf(b.out, "❌ Username '%s' is already taken.\n", username)
		}
		return err
	}

	return b.signedIn(u)
}

func (b *Board) Login(cmd *cobra.Command, args []string) error {
	password, err := b.readPassword()
	if err != nil {
		return err
	}

	u, err := b.session.Login(b.ctx, args[0], password)
	if err != nil {
		if api.IsRejected(err) {
			colours.Error.Fprintln(b.out, "❌ Wrong username or password.")
		}
		return err
	}

	return b.signedIn(u)
}

func (b *Board) signedIn(u *user.User) error {
	err := b.creds.Save(session.Credentials{
		Username: u.Username,
		Token:    u.LoginToken,
		SavedAt:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("signed in but could not store credentials: %w", err)
	}

	colours.Success.Fprintf(b.out, "👋 Welcome, %s!\n", u.Name)
	return nil
}

func (b *Board) Logout(cmd *cobra.Command, args []string) error {
	b.session.Logout()
	if err := b.creds.Clear(); err != nil {
		return err
	}

	colours.Success.Fprintln(b.out, "👋 Signed out")
	return nil
}

func (b *Board) WhoAmI(cmd *cobra.Command, args []string) error {
	u, err := b.requireUser()
	if err != nil {
		return err
	}

	colours.Headline.Fprintln(b.out, u.Username)
	fmt.Fprintf(b.out, "  Name:       %s\n", u.Name)
	if !u.CreatedAt.IsZero() {
		fmt.Fprintf(b.out, "  Joined:     %s\n", u.CreatedAt.Format("2006-01-02"))
	}
	fmt.Fprintf(b.out, "  Favorites:  %d\n", len(u.Favorites))
	fmt.Fprintf(b.out, "  Submitted:  %d\n", len(u.OwnStories))
	return nil
}

// readPassword reads the password without echo when input is a terminal,
// otherwise one line from the piped input.
func (b *Board) readPassword() (string, error) {
	colours.Prompt.Fprint(b.out, "🔑 Password: ")

	if b.inputFd >= 0 && term.IsTerminal(b.inputFd) {
		secret, err := term.ReadPassword(b.inputFd)
		fmt.Fprintln(b.out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		if len(secret) == 0 {
			return "", errors.New("a password is required")
		}
		return string(secret), nil
	}

	line, err := b.input.ReadString('\n')
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		if err != nil {
			logrus.WithError(err).Debug("password prompt ended without input")
		}
		return "", errors.New("a password is required")
	}
	return password, nil
}

// AddAccountCommands registers the commands that need or manage a signed-in user.
func (b *Board) AddAccountCommands(rootCmd *cobra.Command) {
	signupCmd := &cobra.Command{
		Use:   "signup <username>",
		Short: "🆕 Create an account",
		Long:  "Create an account and sign in. The password is read from standard input.",
		Args:  cobra.ExactArgs(1),
		RunE:  b.Signup,
	}
	signupCmd.Flags().StringP("name", "n", "", "Display name (defaults to the username)")

	loginCmd := &cobra.Command{
		Use:   "login <username>",
		Short: "🔑 Sign in",
		Long:  "Sign in and remember the session for later commands",
		Args:  cobra.ExactArgs(1),
		RunE:  b.Login,
	}

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "🚪 Sign out",
		Long:  "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE:  b.Logout,
	}

	whoamiCmd := &cobra.Command{
		Use:   "whoami",
		Short: "👤 Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE:  b.WhoAmI,
	}

	favoritesCmd := &cobra.Command{
		Use:   "favorites",
		Short: "★ List your favorite stories",
		Args:  cobra.NoArgs,
		RunE:  b.ListFavorites,
	}

	mineCmd := &cobra.Command{
		Use:   "mine",
		Short: "✍️ List stories you submitted",
		Args:  cobra.NoArgs,
		RunE:  b.ListOwn,
	}

	favoriteCmd := &cobra.Command{
		Use:   "favorite <story-id>",
		Short: "★ Add a story to your favorites",
		Args:  cobra.ExactArgs(1),
		RunE:  b.Favorite,
	}

	unfavoriteCmd := &cobra.Command{
		Use:   "unfavorite <story-id>",
		Short: "☆ Remove a story from your favorites",
		Args:  cobra.ExactArgs(1),
		RunE:  b.Unfavorite,
	}

	rootCmd.AddCommand(signupCmd, loginCmd, logoutCmd, whoamiCmd, favoritesCmd, mineCmd, favoriteCmd, unfavoriteCmd)
}
