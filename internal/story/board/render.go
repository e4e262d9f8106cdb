package board

import (
	"fmt"

	"snooze/internal/cli/scheme/colours"
	"snooze/internal/cli/scheme/sanitize"
	"snooze/internal/domain/story"
)

// renderStories prints one row per story with a favorite marker when someone
// is signed in. An empty message suppresses the placeholder line.
func (b *Board) renderStories(stories []story.Story, empty string) {
	if len(stories) == 0 {
		if empty != "" {
			colours.Warning.Fprintln(b.out, empty)
		}
		return
	}

	loggedIn := b.session.LoggedIn()
	for _, st := range stories {
		marker := "  "
		if loggedIn {
			marker = colours.Marker(b.session.IsFavorite(st.ID))
		}

		fmt.Fprintf(b.out, "%s%s", marker, colours.Headline.Sprint(sanitize.Text(st.Title)))
		if host, err := st.HostName(); err == nil && host != "" {
			fmt.Fprintf(b.out, " %s", colours.Muted.Sprintf("(%s)", host))
		}
		fmt.Fprintln(b.out)

		fmt.Fprintf(b.out, "     by %s", colours.Byline.Sprint(sanitize.Text(st.Author)))
		if st.Username != "" {
			fmt.Fprintf(b.out, " · posted by %s", sanitize.Text(st.Username))
		}
		fmt.Fprintf(b.out, " · %s\n", colours.Muted.Sprint(st.ID))
	}
	fmt.Fprintln(b.out)
}

// headline is the spoken form of a story.
func headline(st story.Story) string {
	line := sanitize.Text(st.Title)
	if author := sanitize.Text(st.Author); author != "" {
		line += ", by " + author
	}
	if host, err := st.HostName(); err == nil && host != "" {
		line += ", from " + host
	}
	return line
}
