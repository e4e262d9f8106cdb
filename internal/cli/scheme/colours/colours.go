package colours

import "github.com/fatih/color"

// Color scheme for the CLI
var (
	Headline = color.New(color.FgCyan, color.Bold)
	Byline   = color.New(color.FgMagenta)
	Muted    = color.New(color.FgHiBlack)
	Favorite = color.New(color.FgYellow, color.Bold)
	Prompt   = color.New(color.FgGreen, color.Bold)
	Error    = color.New(color.FgRed, color.Bold)
	Success  = color.New(color.FgGreen)
	Info     = color.New(color.FgBlue)
	Warning  = color.New(color.FgYellow)
)

// Marker is the favorite column of a story row.
func Marker(favorite bool) string {
	if favorite {
		return Favorite.Sprint("★ ")
	}
	return Muted.Sprint("☆ ")
}
