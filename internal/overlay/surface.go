package overlay

import (
	"sync"
	"time"

	"github.com/hpungsan/emolens/internal/sentiment"
)

// Kind identifies a panel slot. At most one panel of each kind is visible.
type Kind string

const (
	KindResult Kind = "sentiment-popup"
	KindBanner Kind = "floating-message"
)

// Tone colors a banner.
type Tone string

const (
	ToneError   Tone = "error"
	ToneSuccess Tone = "success"
)

// Phase is a panel's lifecycle stage.
type Phase string

const (
	PhaseVisible Phase = "visible"
	PhaseFading  Phase = "fading"
)

// Panel is a snapshot of one visible panel.
type Panel struct {
	ID      uint64
	Kind    Kind
	Phase   Phase
	Text    string
	Rows    []Row
	Message string
	Tone    Tone
	ShownAt time.Time
}

// Timings controls panel lifetimes.
type Timings struct {
	Result time.Duration
	Banner time.Duration
	Fade   time.Duration
}

// DefaultTimings match the browser overlay: 10s results, 5s banners, 300ms fade.
var DefaultTimings = Timings{
	Result: 10 * time.Second,
	Banner: 5 * time.Second,
	Fade:   300 * time.Millisecond,
}

// AfterFunc schedules f to run once after d.
type AfterFunc func(d time.Duration, f func())

func realAfter(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}

// Surface is the panel state of one tab. It implements bridge.RenderTarget.
//
// Timers are never cancelled. A timer that fires for a panel that was
// already replaced or dismissed finds a different ID and does nothing.
type Surface struct {
	mu      sync.Mutex
	panels  map[Kind]*Panel
	nextID  uint64
	timings Timings
	after   AfterFunc
	now     func() time.Time
}

// NewSurface returns an empty surface.
func NewSurface(timings Timings) *Surface {
	return &Surface{
		panels:  make(map[Kind]*Panel),
		timings: timings,
		after:   realAfter,
		now:     time.Now,
	}
}

// WithClock replaces the scheduler and clock. Intended for tests.
func (s *Surface) WithClock(after AfterFunc, now func() time.Time) *Surface {
	s.after = after
	s.now = now
	return s
}

// Display shows a result panel, replacing any prior one.
func (s *Surface) Display(text string, scores sentiment.Scores) {
	s.mu.Lock()
	p := s.show(&Panel{
		Kind: KindResult,
		Text: text,
		Rows: Rows(scores),
	})
	s.mu.Unlock()

	s.after(s.timings.Result, func() { s.remove(KindResult, p.ID) })
}

// DisplayError shows an error banner, replacing any prior banner.
func (s *Surface) DisplayError(msg string) {
	s.Notify(msg, ToneError)
}

// Notify shows a banner with the given tone. The banner fades after the
// banner timeout and is removed once the fade completes.
func (s *Surface) Notify(msg string, tone Tone) {
	s.mu.Lock()
	p := s.show(&Panel{Kind: KindBanner, Message: msg, Tone: tone})
	s.mu.Unlock()

	s.after(s.timings.Banner, func() {
		if !s.fade(p.ID) {
			return
		}
		s.after(s.timings.Fade, func() { s.remove(KindBanner, p.ID) })
	})
}

// Dismiss removes the panel of kind immediately. Dismissing an absent panel is a no-op.
func (s *Surface) Dismiss(kind Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.panels, kind)
}

// Panels returns copies of the visible panels, result first.
func (s *Surface) Panels() []Panel {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Panel, 0, len(s.panels))
	for _, kind := range []Kind{KindResult, KindBanner} {
		if p, ok := s.panels[kind]; ok {
			cp := *p
			cp.Rows = append([]Row(nil), p.Rows...)
			out = append(out, cp)
		}
	}
	return out
}

// Panel returns the visible panel of kind.
func (s *Surface) Panel(kind Kind) (Panel, bool) {
	for _, p := range s.Panels() {
		if p.Kind == kind {
			return p, true
		}
	}
	return Panel{}, false
}

// show must be called with mu held.
func (s *Surface) show(p *Panel) *Panel {
	s.nextID++
	p.ID = s.nextID
	p.Phase = PhaseVisible
	p.ShownAt = s.now()
	s.panels[p.Kind] = p
	return p
}

func (s *Surface) fade(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.panels[KindBanner]
	if !ok || p.ID != id {
		return false
	}
	p.Phase = PhaseFading
	return true
}

func (s *Surface) remove(kind Kind, id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.panels[kind]; ok && p.ID == id {
		delete(s.panels, kind)
	}
}
