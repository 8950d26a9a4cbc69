package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/samber/lo"

	"github.com/hpungsan/emolens/internal/bridge"
	"github.com/hpungsan/emolens/internal/coordinator"
	"github.com/hpungsan/emolens/internal/docstore"
	"github.com/hpungsan/emolens/internal/errors"
	"github.com/hpungsan/emolens/internal/history"
	"github.com/hpungsan/emolens/internal/relay"
	"github.com/hpungsan/emolens/internal/viewer"
)

// DefaultTab is the tab analyses land on when the caller names none.
const DefaultTab = "mcp"

// Deps are the components the tools call into.
type Deps struct {
	Coordinator *coordinator.Coordinator
	Host        *bridge.Host
	Relay       *relay.Client
}

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	coord *coordinator.Coordinator
	host  *bridge.Host
	relay *relay.Client
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{coord: deps.Coordinator, host: deps.Host, relay: deps.Relay}
}

// AnalyzeRequest represents the arguments for sentiment_analyze.
type AnalyzeRequest struct {
	Text string `json:"text"`
	Tab  string `json:"tab,omitempty"`
}

// HistoryRequest represents the arguments for sentiment_history.
type HistoryRequest struct {
	All bool `json:"all,omitempty"`
}

// AnalyzeOutput is the sentiment_analyze result.
type AnalyzeOutput struct {
	Tab       string         `json:"tab"`
	State     string         `json:"state"`
	Record    history.Record `json:"record"`
	Persisted bool           `json:"persisted"`
	Delivered bool           `json:"delivered"`
}

// EmotionOutput is one formatted emotion.
type EmotionOutput struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
	Emoji string  `json:"emoji"`
}

// EntryOutput is one history record as shown in the popup.
type EntryOutput struct {
	Index    int             `json:"index"`
	Text     string          `json:"text"`
	Valid    bool            `json:"valid"`
	Emotions []EmotionOutput `json:"emotions"`
}

// HistoryOutput is the sentiment_history result.
type HistoryOutput struct {
	Count   int           `json:"count"`
	Message string        `json:"message,omitempty"`
	Latest  *EntryOutput  `json:"latest,omitempty"`
	Entries []EntryOutput `json:"entries,omitempty"`
}

// SaveOutput is the sentiment_save result.
type SaveOutput struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Message string `json:"message"`
}

// SavedOutput is the sentiment_saved result.
type SavedOutput struct {
	Items []docstore.Document `json:"items"`
	Count int                 `json:"count"`
}

// HandleAnalyze handles the sentiment_analyze tool call.
func (h *Handlers) HandleAnalyze(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AnalyzeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	tab := strings.TrimSpace(input.Tab)
	if tab == "" {
		tab = DefaultTab
	}

	out := h.coord.Trigger(ctx, tab, input.Text)
	if out.State == coordinator.StateIdle || out.State == coordinator.StateFailed {
		return errorResult(out.Err), nil
	}
	if out.Delivered {
		_ = h.host.Sync(ctx, tab)
	}

	return successResult(AnalyzeOutput{
		Tab:       tab,
		State:     string(out.State),
		Record:    out.Record,
		Persisted: out.Persisted,
		Delivered: out.Delivered,
	})
}

// HandleHistory handles the sentiment_history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	log, err := viewer.New(h.host).Query(ctx)
	if err != nil {
		return errorResult(err), nil
	}

	out := HistoryOutput{Count: len(log)}
	if input.All {
		out.Entries = lo.Map(viewer.RenderAll(log), func(e viewer.Entry, _ int) EntryOutput {
			return entryOutput(e)
		})
		if len(log) == 0 {
			out.Message = viewer.MsgNoData
		}
		return successResult(out)
	}

	latest := viewer.RenderLatest(log)
	out.Message = latest.Message
	if latest.Entry != nil {
		e := entryOutput(*latest.Entry)
		out.Latest = &e
	}
	return successResult(out)
}

// HandleSave handles the sentiment_save tool call. Only the most recent
// record is eligible, as in the popup.
func (h *Handlers) HandleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	log, err := viewer.New(h.host).Query(ctx)
	if err != nil {
		return errorResult(err), nil
	}

	rec, ok := log.Latest()
	if !ok || !rec.Valid() {
		return errorResult(errors.NewValidation(viewer.MsgNothing)), nil
	}

	id, err := h.relay.SaveRecord(ctx, rec)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(SaveOutput{
		ID:      id,
		Text:    rec.SelectedText,
		Message: viewer.MsgSaved,
	})
}

// HandleSaved handles the sentiment_saved tool call.
func (h *Handlers) HandleSaved(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := h.relay.List(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	if docs == nil {
		docs = []docstore.Document{}
	}
	return successResult(SavedOutput{Items: docs, Count: len(docs)})
}

func entryOutput(e viewer.Entry) EntryOutput {
	return EntryOutput{
		Index: e.Index,
		Text:  e.Text,
		Valid: e.Valid,
		Emotions: lo.Map(e.Emotions, func(l viewer.EmotionLine, _ int) EmotionOutput {
			return EmotionOutput{Label: l.Label, Score: l.Score, Emoji: l.Emoji}
		}),
	}
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var lErr *errors.LensError
	if stderrors.As(err, &lErr) {
		errorObj := map[string]any{
			"code":    lErr.Code,
			"message": lErr.Message,
			"status":  lErr.Status,
		}
		if lErr.Code != errors.ErrInternal && lErr.Details != nil {
			errorObj["details"] = lErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
