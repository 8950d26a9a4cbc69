// Package overlay implements the render targets that show analysis results:
// a timed panel surface for the web UI and a terminal printer.
package overlay

import (
	"fmt"

	"github.com/hpungsan/emolens/internal/palette"
	"github.com/hpungsan/emolens/internal/sentiment"
)

// TopN is how many of the highest-scoring emotions are highlighted.
const TopN = 3

// Row is one emotion line of a result panel.
type Row struct {
	Label string
	Name  string // capitalized label
	Score float64
	Color string
	Emoji string
	Top   bool
}

// Value formats the score with two decimals.
func (r Row) Value() string {
	return fmt.Sprintf("%.2f", r.Score)
}

// Rows ranks scores in descending order and marks the top three.
// Ties keep input order.
func Rows(scores sentiment.Scores) []Row {
	ranked := scores.Ranked()
	rows := make([]Row, len(ranked))
	for i, e := range ranked {
		rows[i] = Row{
			Label: e.Label,
			Name:  palette.Capitalize(e.Label),
			Score: e.Score,
			Color: palette.Color(e.Label),
			Emoji: palette.Emoji(e.Label),
			Top:   i < TopN,
		}
	}
	return rows
}
