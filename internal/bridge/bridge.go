// Package bridge hosts the execution contexts that exchange messages:
// one render context per tab and the background request/response port.
//
// Every message crosses the boundary in its encoded wire form, so a
// context never shares memory with the sender.
package bridge

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pterm/pterm"

	"github.com/hpungsan/emolens/internal/message"
	"github.com/hpungsan/emolens/internal/sentiment"
)

// NoDataMessage is shown when a display message arrives without emotions.
const NoDataMessage = "Error: No valid sentiment data received."

const inboxSize = 32

// DefaultMaxTabs caps live render contexts unless SetLimit says otherwise.
const DefaultMaxTabs = 256

var (
	ErrClosed      = stderrors.New("bridge: host closed")
	ErrNotInjected = stderrors.New("bridge: render context not injected")
	ErrNoHandler   = stderrors.New("bridge: no handler for action")
)

// RenderTarget draws results on one tab.
type RenderTarget interface {
	Display(text string, scores sentiment.Scores)
	DisplayError(msg string)
}

// TargetFactory creates the render target for a tab on injection.
type TargetFactory func(tab string) (RenderTarget, error)

// Responder answers a request on the background port.
type Responder func(ctx context.Context, msg message.Message) (message.Message, error)

type delivery struct {
	data []byte
	ack  chan struct{}
}

type tabContext struct {
	id       string
	target   RenderTarget
	inbox    chan delivery
	done     chan struct{}
	lastUsed uint64
}

// Host owns the tab contexts and the background port.
type Host struct {
	factory TargetFactory
	logger  *pterm.Logger

	mu       sync.Mutex
	tabs     map[string]*tabContext
	handlers map[message.Action]Responder
	closed   bool
	wg       sync.WaitGroup

	maxTabs int
	onEvict func(tab string)
	clock   uint64
}

// NewHost returns a host that builds render targets with factory.
func NewHost(factory TargetFactory, logger *pterm.Logger) *Host {
	return &Host{
		factory:  factory,
		logger:   logger,
		tabs:     make(map[string]*tabContext),
		handlers: make(map[message.Action]Responder),
		maxTabs:  DefaultMaxTabs,
	}
}

// SetLimit caps the number of live render contexts. Injecting a new tab
// past the cap stops the least recently used one and passes its ID to
// onEvict. max <= 0 keeps DefaultMaxTabs.
func (h *Host) SetLimit(max int, onEvict func(tab string)) {
	if max <= 0 {
		max = DefaultMaxTabs
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.maxTabs = max
	h.onEvict = onEvict
}

// Inject starts the render context for tab. Injecting an already running
// tab is a no-op.
func (h *Host) Inject(ctx context.Context, tab string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	evicted, onEvict, err := h.inject(tab)
	if err != nil {
		return err
	}
	if evicted != "" && onEvict != nil {
		onEvict(evicted)
	}
	return nil
}

func (h *Host) inject(tab string) (evicted string, onEvict func(string), err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return "", nil, ErrClosed
	}
	if tc, ok := h.tabs[tab]; ok {
		h.touch(tc)
		return "", nil, nil
	}

	target, err := h.factory(tab)
	if err != nil {
		return "", nil, fmt.Errorf("inject %s: %w", tab, err)
	}

	if len(h.tabs) >= h.maxTabs {
		evicted = h.evictOldest()
	}

	tc := &tabContext{
		id:     tab,
		target: target,
		inbox:  make(chan delivery, inboxSize),
		done:   make(chan struct{}),
	}
	h.touch(tc)
	h.tabs[tab] = tc
	h.wg.Add(1)
	go h.run(tc)

	h.logger.Debug("render context injected", h.logger.Args("tab", tab))
	return evicted, h.onEvict, nil
}

// evictOldest stops the least recently used context. Queued messages are
// still rendered. Called with h.mu held.
func (h *Host) evictOldest() string {
	var oldest *tabContext
	for _, tc := range h.tabs {
		if oldest == nil || tc.lastUsed < oldest.lastUsed {
			oldest = tc
		}
	}
	if oldest == nil {
		return ""
	}
	delete(h.tabs, oldest.id)
	close(oldest.done)
	h.logger.Debug("render context evicted", h.logger.Args("tab", oldest.id))
	return oldest.id
}

// touch marks tc as most recently used. Called with h.mu held.
func (h *Host) touch(tc *tabContext) {
	h.clock++
	tc.lastUsed = h.clock
}

// Tabs reports how many render contexts are live.
func (h *Host) Tabs() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.tabs)
}

// Injected reports whether tab has a running render context.
func (h *Host) Injected(tab string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.tabs[tab]
	return ok
}

// Send queues msg for tab. Messages to one tab are rendered in send order.
// Send returns once the message is queued, not rendered.
func (h *Host) Send(ctx context.Context, tab string, msg message.Message) error {
	data, err := message.Encode(msg)
	if err != nil {
		return err
	}
	return h.enqueue(ctx, tab, delivery{data: data})
}

// Sync blocks until every message queued for tab before the call has been rendered.
func (h *Host) Sync(ctx context.Context, tab string) error {
	ack := make(chan struct{})
	if err := h.enqueue(ctx, tab, delivery{ack: ack}); err != nil {
		return err
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Host) enqueue(ctx context.Context, tab string, d delivery) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	tc, ok := h.tabs[tab]
	if !ok {
		h.mu.Unlock()
		return ErrNotInjected
	}
	h.touch(tc)
	// Eviction and Close happen under h.mu, so a delivery queued here is
	// always drained.
	select {
	case tc.inbox <- d:
		h.mu.Unlock()
		return nil
	default:
	}
	h.mu.Unlock()

	select {
	case tc.inbox <- d:
		return nil
	case <-tc.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Host) run(tc *tabContext) {
	defer h.wg.Done()
	for {
		select {
		case d := <-tc.inbox:
			h.deliver(tc, d)
		case <-tc.done:
			// Drain what was queued before close.
			for {
				select {
				case d := <-tc.inbox:
					h.deliver(tc, d)
				default:
					return
				}
			}
		}
	}
}

func (h *Host) deliver(tc *tabContext, d delivery) {
	if d.ack != nil {
		close(d.ack)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("render context panicked", h.logger.Args("tab", tc.id, "panic", fmt.Sprint(r)))
		}
	}()

	msg, err := message.Decode(d.data)
	if err != nil {
		h.logger.Warn("render context dropped message", h.logger.Args("tab", tc.id, "error", err.Error()))
		return
	}

	switch m := msg.(type) {
	case message.DisplayResult:
		if m.Scores.Len() == 0 {
			tc.target.DisplayError(NoDataMessage)
			return
		}
		tc.target.Display(m.Text, m.Scores)
	case message.DisplayError:
		tc.target.DisplayError(m.Error)
	default:
		h.logger.Warn("render context ignored message", h.logger.Args("tab", tc.id, "type", fmt.Sprintf("%T", msg)))
	}
}

// Handle registers the background responder for action.
func (h *Host) Handle(action message.Action, r Responder) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[action] = r
}

// Request sends msg to the background port and waits for its response.
func (h *Host) Request(ctx context.Context, msg message.Message) (message.Message, error) {
	data, err := message.Encode(msg)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	handler, ok := h.handlers[msg.Action()]
	h.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrNoHandler, msg.Action())
	}

	id := uuid.NewString()
	h.logger.Debug("port request", h.logger.Args("id", id, "action", string(msg.Action())))

	type reply struct {
		data []byte
		err  error
	}
	replies := make(chan reply, 1)

	go func() {
		in, err := message.Decode(data)
		if err != nil {
			replies <- reply{err: err}
			return
		}
		out, err := handler(ctx, in)
		if err != nil {
			replies <- reply{err: err}
			return
		}
		encoded, err := message.Encode(out)
		replies <- reply{data: encoded, err: err}
	}()

	select {
	case r := <-replies:
		if r.err != nil {
			h.logger.Debug("port request failed", h.logger.Args("id", id, "error", r.err.Error()))
			return nil, r.err
		}
		return message.Decode(r.data)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops accepting messages, renders what is already queued and
// waits for every tab context to exit.
func (h *Host) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	for _, tc := range h.tabs {
		close(tc.done)
	}
	h.mu.Unlock()

	h.wg.Wait()
}
