package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"snooze/internal/cli/scheme/colours"
	"snooze/internal/config"
	"snooze/internal/story/board"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {

	config.SetDefaults()

	app := board.NewBoard()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		app.Cancel()
		fmt.Println("\n" + colours.Warning.Sprint("👋 Bye! Snooze well. 😴"))
		_ = app.Close()
		os.Exit(0)
	}()

	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "snooze",
		Short: "📰 Hack or Snooze in your terminal",
		Long: `
┌─────────────────────────────────────┐
│  📰 Hack or Snooze                  │
│  Share stories worth reading        │
└─────────────────────────────────────┘

Browse the latest stories, post your own, and keep a list of favorites.
		`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(cfgFile); err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			level, _ := logrus.ParseLevel(cfg.LogLevel)
			logrus.SetLevel(level)

			return app.Configure(cfg)
		},
		Run: func(cmd *cobra.Command, args []string) {
			app.ShowWelcome()
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default $HOME/.snooze/snooze.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("metrics-file", "", "Write request metrics to this file on exit")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("metrics.textfile", rootCmd.PersistentFlags().Lookup("metrics-file"))

	// Stories command
	storiesCmd := &cobra.Command{
		Use:   "stories",
		Short: "📋 List the latest stories",
		Long:  "Fetch every story from the server, newest first",
		Args:  cobra.NoArgs,
		RunE:  app.ListStories,
	}

	// Post command
	postCmd := &cobra.Command{
		Use:   "post [text with a link]",
		Short: "✍️ Submit a story",
		Long: `Submit a story. Either pass free text containing a link, e.g.
  snooze post "A tiny shell in Go https://example.com/sh"
or set --title and --url explicitly.`,
		RunE: app.PostStory,
	}

	// Delete command
	deleteCmd := &cobra.Command{
		Use:   "delete <story-id>",
		Short: "🗑️ Delete a story you submitted",
		Args:  cobra.ExactArgs(1),
		RunE:  app.DeleteStory,
	}

	// Preview command
	previewCmd := &cobra.Command{
		Use:   "preview <story-id>",
		Short: "🔎 Preview the page a story links to",
		Args:  cobra.ExactArgs(1),
		RunE:  app.Preview,
	}

	// Speak command
	speakCmd := &cobra.Command{
		Use:   "speak",
		Short: "🎧 Read the latest headlines aloud",
		Args:  cobra.NoArgs,
		RunE:  app.Speak,
	}

	// Add flags
	storiesCmd.Flags().IntP("limit", "l", 0, "Show at most this many stories")
	postCmd.Flags().StringP("title", "t", "", "Story title")
	postCmd.Flags().StringP("author", "a", "", "Story author (defaults to your name)")
	postCmd.Flags().StringP("url", "u", "", "Story link")
	speakCmd.Flags().IntP("count", "c", 5, "Number of headlines to read")
	speakCmd.Flags().Bool("list-engines", false, "List the speech engines usable on this machine and exit")

	rootCmd.AddCommand(storiesCmd, postCmd, deleteCmd, previewCmd, speakCmd)

	// Add account commands
	app.AddAccountCommands(rootCmd)

	err := rootCmd.Execute()
	app.Cancel()
	if cerr := app.Close(); cerr != nil {
		logrus.WithError(cerr).Warn("failed to close")
	}
	if err != nil {
		colours.Error.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(logrus.WarnLevel)
}
