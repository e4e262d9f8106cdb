package story

import (
	"errors"
	"strings"

	"mvdan.cc/xurls/v2"
)

// ErrNoURL is returned when submission text carries no http(s) link
var ErrNoURL = errors.New("no http or https url found in text")

// ParseSubmission splits free text such as
// "Show HN: a tiny shell https://example.com/sh" into a title and a URL.
// The first http(s) link wins; the rest of the text becomes the title.
func ParseSubmission(text string) (New, error) {
	re, err := xurls.StrictMatchingScheme(`https?://`)
	if err != nil {
		return New{}, err
	}

	loc := re.FindStringIndex(text)
	if loc == nil {
		return New{}, ErrNoURL
	}

	link := text[loc[0]:loc[1]]
	title := strings.Join(strings.Fields(text[:loc[0]]+" "+text[loc[1]:]), " ")
	title = strings.TrimRight(title, " -:|")

	return New{Title: title, URL: link}, nil
}
