// Package coordinator runs one analysis cycle per trigger: analyze the
// selection, record successes in history, then render on the tab.
package coordinator

import (
	"context"
	"strings"

	"github.com/pterm/pterm"

	"github.com/hpungsan/emolens/internal/analysis"
	"github.com/hpungsan/emolens/internal/bridge"
	"github.com/hpungsan/emolens/internal/errors"
	"github.com/hpungsan/emolens/internal/history"
	"github.com/hpungsan/emolens/internal/message"
)

// FailureMessage is rendered on the tab when analysis fails.
const FailureMessage = "Error fetching sentiment"

// State is a step of the per-trigger state machine.
type State string

const (
	StateIdle       State = "idle"
	StateRequesting State = "requesting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// HistoryStore is the subset of history.Store the coordinator needs.
type HistoryStore interface {
	Append(ctx context.Context, rec history.Record) error
	ReadAll(ctx context.Context) (history.Log, error)
}

// Renderer delivers messages to tab render contexts.
type Renderer interface {
	Inject(ctx context.Context, tab string) error
	Send(ctx context.Context, tab string, msg message.Message) error
}

// Outcome reports how a trigger ended.
type Outcome struct {
	State  State
	Record history.Record
	// Err is the analysis or input error. Persistence and delivery
	// failures are logged, not reported here.
	Err       error
	Persisted bool
	Delivered bool
}

// Coordinator is safe for concurrent triggers. Triggers do not wait for
// each other; their appends land in completion order.
type Coordinator struct {
	analyzer analysis.Analyzer
	store    HistoryStore
	renderer Renderer
	logger   *pterm.Logger
}

// New returns a coordinator.
func New(analyzer analysis.Analyzer, store HistoryStore, renderer Renderer, logger *pterm.Logger) *Coordinator {
	return &Coordinator{
		analyzer: analyzer,
		store:    store,
		renderer: renderer,
		logger:   logger,
	}
}

// Trigger handles one user trigger for tab. A blank selection is logged
// and ignored. Analysis errors become an error render on the tab and are
// never appended to history.
func (c *Coordinator) Trigger(ctx context.Context, tab, text string) Outcome {
	if strings.TrimSpace(text) == "" {
		c.logger.Warn("no text selected", c.logger.Args("tab", tab))
		return Outcome{State: StateIdle, Err: errors.NewBlankInput()}
	}

	c.logger.Debug("analysis requested", c.logger.Args("tab", tab, "state", string(StateRequesting), "chars", len(text)))

	scores, err := c.analyzer.Analyze(ctx, text)
	if err != nil {
		c.logger.Error("analysis failed", c.logger.Args("tab", tab, "error", err.Error()))
		out := Outcome{
			State:  StateFailed,
			Record: history.NewFailure(text, FailureMessage),
			Err:    err,
		}
		out.Delivered = c.deliver(ctx, tab, message.DisplayError{Error: FailureMessage})
		return out
	}

	rec := history.NewSuccess(text, scores)
	out := Outcome{State: StateSucceeded, Record: rec}

	// History is written before rendering so a failed render never loses it.
	if err := c.store.Append(ctx, rec); err != nil {
		c.logger.Error("history append failed", c.logger.Args("tab", tab, "error", err.Error()))
	} else {
		out.Persisted = true
	}

	out.Delivered = c.deliver(ctx, tab, message.DisplayResult{Text: text, Scores: scores})
	return out
}

// deliver injects the tab's render context and sends msg. Failures drop the message.
func (c *Coordinator) deliver(ctx context.Context, tab string, msg message.Message) bool {
	if err := c.renderer.Inject(ctx, tab); err != nil {
		c.logger.Error("render context injection failed", c.logger.Args("tab", tab, "error", err.Error()))
		return false
	}
	if err := c.renderer.Send(ctx, tab, msg); err != nil {
		c.logger.Error("render message dropped", c.logger.Args("tab", tab, "error", err.Error()))
		return false
	}
	return true
}

// ServeQuery answers a history query with the persisted log.
func (c *Coordinator) ServeQuery(ctx context.Context, msg message.Message) (message.Message, error) {
	if _, ok := msg.(message.QueryHistory); !ok {
		return nil, errors.NewInvalidRequest("unsupported query")
	}
	log, err := c.store.ReadAll(ctx)
	if err != nil {
		c.logger.Error("history read failed", c.logger.Args("error", err.Error()))
		return nil, err
	}
	return message.QueryHistoryResponse{Data: log}, nil
}

// Register installs the history query handler on host.
func (c *Coordinator) Register(host *bridge.Host) {
	host.Handle(message.ActionGetSentiments, c.ServeQuery)
}
