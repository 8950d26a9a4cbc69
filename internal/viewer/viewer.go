// Package viewer renders the history log for the popup: the latest
// record and, on demand, the whole log newest first.
package viewer

import (
	"context"
	"fmt"
	"sync"

	"github.com/samber/lo"

	"github.com/hpungsan/emolens/internal/errors"
	"github.com/hpungsan/emolens/internal/history"
	"github.com/hpungsan/emolens/internal/message"
	"github.com/hpungsan/emolens/internal/palette"
	"github.com/hpungsan/emolens/internal/sentiment"
)

// User-visible states.
const (
	MsgNoData        = "No sentiment data found."
	MsgInvalidFormat = "Invalid sentiment data format."
	MsgInvalidEntry  = "Invalid sentiment data."
	MsgLoadFailed    = "Failed to load sentiments."
	MsgNoEmotions    = "No emotions available"
	MissingText      = "N/A"

	MsgSaved      = "Sentiment saved successfully to the cloud!"
	MsgSaveFailed = "Failed to save sentiment in the cloud."
	MsgNothing    = "No sentiment available to save."

	LabelShow = "View Saved Sentiments"
	LabelHide = "Hide Saved Sentiments"
)

// Querier sends a request across the context boundary.
type Querier interface {
	Request(ctx context.Context, msg message.Message) (message.Message, error)
}

// EmotionLine is one formatted emotion.
type EmotionLine struct {
	Label string
	Name  string
	Score float64
	Value string
	Emoji string
}

// Entry is one rendered history record.
type Entry struct {
	Index    int // 1-based position in the rendered list
	Text     string
	Emotions []EmotionLine
	Valid    bool
	Record   history.Record
}

// Latest is the render of the most recent record. Message is set when
// there is nothing valid to show.
type Latest struct {
	Message string
	Entry   *Entry
}

// Viewer holds the toggle state. It keeps no copy of the log.
type Viewer struct {
	q       Querier
	mu      sync.Mutex
	showAll bool
}

// New returns a viewer that queries through q.
func New(q Querier) *Viewer {
	return &Viewer{q: q}
}

// Query fetches the current log. An absent log is empty, not an error.
func (v *Viewer) Query(ctx context.Context) (history.Log, error) {
	resp, err := v.q.Request(ctx, message.QueryHistory{})
	if err != nil {
		return nil, err
	}
	r, ok := resp.(message.QueryHistoryResponse)
	if !ok {
		return nil, errors.NewInternal(fmt.Errorf("unexpected response %T", resp))
	}
	if r.Data == nil {
		return history.Log{}, nil
	}
	return r.Data, nil
}

// Toggle flips between the latest-only and full listing and returns the new state.
func (v *Viewer) Toggle() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.showAll = !v.showAll
	return v.showAll
}

// ShowAll reports whether the full listing is visible.
func (v *Viewer) ShowAll() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.showAll
}

// Label is the toggle button text for the current state.
func (v *Viewer) Label() string {
	if v.ShowAll() {
		return LabelHide
	}
	return LabelShow
}

// View is everything the popup shows.
type View struct {
	Latest  Latest
	All     []Entry
	ShowAll bool
	Label   string
	Count   int
	Error   string
}

// Load queries the log and renders it for the current toggle state.
func (v *Viewer) Load(ctx context.Context) View {
	view := View{ShowAll: v.ShowAll(), Label: v.Label()}

	log, err := v.Query(ctx)
	if err != nil {
		view.Error = MsgLoadFailed
		return view
	}

	view.Count = len(log)
	view.Latest = RenderLatest(log)
	if view.ShowAll {
		view.All = RenderAll(log)
	}
	return view
}

// RenderLatest renders the last record of log.
func RenderLatest(log history.Log) Latest {
	rec, ok := log.Latest()
	if !ok {
		return Latest{Message: MsgNoData}
	}
	if !rec.Valid() {
		return Latest{Message: MsgInvalidFormat}
	}
	e := entry(0, rec)
	return Latest{Entry: &e}
}

// RenderAll renders every record, most recent first. log is not modified.
func RenderAll(log history.Log) []Entry {
	out := make([]Entry, 0, len(log))
	for i := len(log) - 1; i >= 0; i-- {
		out = append(out, entry(len(out)+1, log[i]))
	}
	return out
}

func entry(index int, rec history.Record) Entry {
	e := Entry{Index: index, Valid: rec.Valid(), Record: rec, Text: rec.SelectedText}
	if !rec.HasText() {
		e.Text = MissingText
	}
	if e.Valid {
		e.Emotions = Lines(*rec.Result)
	}
	return e
}

// Lines formats scores in input order with list emoji.
func Lines(scores sentiment.Scores) []EmotionLine {
	return lo.Map(scores.Emotions(), func(em sentiment.Emotion, _ int) EmotionLine {
		return EmotionLine{
			Label: em.Label,
			Name:  palette.Capitalize(em.Label),
			Score: em.Score,
			Value: fmt.Sprintf("%.2f", em.Score),
			Emoji: palette.ListEmoji(em.Label),
		}
	})
}

// String formats an entry as plain text.
func (e Entry) String() string {
	if !e.Valid {
		return fmt.Sprintf("%d. %s", e.Index, MsgInvalidEntry)
	}
	return fmt.Sprintf("%d. Text: %s", e.Index, e.Text)
}

// String formats a line as "Joy: 0.80 😊".
func (l EmotionLine) String() string {
	return fmt.Sprintf("%s: %s %s", l.Name, l.Value, l.Emoji)
}
