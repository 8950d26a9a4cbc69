// Package palette maps emotion labels to display colors and emoji.
// Labels outside the table render with the defaults.
package palette

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultColor = "#fff"

	// DefaultEmoji is used on result panels.
	DefaultEmoji = "😐"

	// UnknownEmoji is used in the history listing.
	UnknownEmoji = "❓"
)

// Style is the presentation of one label.
type Style struct {
	Color string
	Emoji string
}

var styles = map[string]Style{
	"anger":    {Color: "#dc3545", Emoji: "😡"},
	"disgust":  {Color: "#6c757d", Emoji: "🤢"},
	"fear":     {Color: "#ffc107", Emoji: "😨"},
	"joy":      {Color: "#28a745", Emoji: "😊"},
	"neutral":  {Color: "#6c757d", Emoji: "😐"},
	"sadness":  {Color: "#007bff", Emoji: "😢"},
	"surprise": {Color: "#17a2b8", Emoji: "😲"},
}

// Lookup returns the style for label and whether it is a known label.
// Matching is case-insensitive.
func Lookup(label string) (Style, bool) {
	s, ok := styles[strings.ToLower(label)]
	return s, ok
}

// Color returns the color for label, or DefaultColor.
func Color(label string) string {
	if s, ok := Lookup(label); ok {
		return s.Color
	}
	return DefaultColor
}

// Emoji returns the emoji for label, or DefaultEmoji.
func Emoji(label string) string {
	if s, ok := Lookup(label); ok {
		return s.Emoji
	}
	return DefaultEmoji
}

// ListEmoji returns the emoji for label, or UnknownEmoji.
func ListEmoji(label string) string {
	if s, ok := Lookup(label); ok {
		return s.Emoji
	}
	return UnknownEmoji
}

// Labels returns the known labels in alphabetical order.
func Labels() []string {
	return []string{"anger", "disgust", "fear", "joy", "neutral", "sadness", "surprise"}
}

// Capitalize upper-cases the first rune of s.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
