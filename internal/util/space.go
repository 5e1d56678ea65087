package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// PadRight left-aligns str in a column of the given display width,
// truncating with "..." when it does not fit.
func PadRight(str string, width int) string {
	w := runewidth.StringWidth(str)
	if w > width {
		return runewidth.Truncate(str, width, "...")
	}
	return str + strings.Repeat(" ", width-w)
}

// PadLeft right-aligns str in a column of the given display width. Values
// wider than the column are returned unchanged so numbers are never cut.
func PadLeft(str string, width int) string {
	w := runewidth.StringWidth(str)
	if w >= width {
		return str
	}
	return strings.Repeat(" ", width-w) + str
}
