package overlay

import (
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/pterm/pterm"

	"github.com/hpungsan/emolens/internal/sentiment"
)

// Terminal prints panels to a writer. It implements bridge.RenderTarget.
type Terminal struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTerminal returns a terminal target writing to w.
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w}
}

// Display prints the result table with the top three rows marked.
func (t *Terminal) Display(text string, scores sentiment.Scores) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pterm.Fprintln(t.w, pterm.Bold.Sprint("Sentiment Analysis Result"))
	pterm.Fprintln(t.w, pterm.Gray(`"`+text+`"`))

	data := pterm.TableData{{"", "Emotion", "Score", ""}}
	for _, row := range Rows(scores) {
		marker := ""
		if row.Top {
			marker = "★"
		}
		data = append(data, []string{
			marker,
			hexRGB(row.Color).Sprint(row.Name),
			row.Value(),
			row.Emoji,
		})
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return
	}
	pterm.Fprintln(t.w, out)
}

// DisplayError prints an error line.
func (t *Terminal) DisplayError(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	pterm.Fprintln(t.w, pterm.Red(msg))
}

// hexRGB parses #rgb or #rrggbb. Anything else is white.
func hexRGB(hex string) pterm.RGB {
	h := strings.TrimPrefix(hex, "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return pterm.NewRGB(255, 255, 255)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return pterm.NewRGB(255, 255, 255)
	}
	return pterm.NewRGB(uint8(v>>16), uint8(v>>8), uint8(v))
}
