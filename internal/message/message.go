// Package message defines the typed payloads that cross execution-context
// boundaries, and their JSON wire form.
//
// Wire shapes:
//
//	{"action":"display-sentiment","sentiment":{"emotions":{...}},"text":"..."}
//	{"action":"display-sentiment","error":"..."}
//	{"action":"get-sentiments"}
//	{"data":[...]}
package message

import (
	"encoding/json"
	"fmt"

	"github.com/hpungsan/emolens/internal/history"
	"github.com/hpungsan/emolens/internal/sentiment"
)

// Action tags a request on the wire.
type Action string

const (
	ActionDisplaySentiment Action = "display-sentiment"
	ActionGetSentiments    Action = "get-sentiments"
)

// Message is one of DisplayResult, DisplayError, QueryHistory or QueryHistoryResponse.
type Message interface {
	Action() Action
	isMessage()
}

// DisplayResult asks a render context to show scores for text.
type DisplayResult struct {
	Text   string
	Scores sentiment.Scores
}

// DisplayError asks a render context to show an error banner.
type DisplayError struct {
	Error string
}

// QueryHistory asks the background context for the history log.
type QueryHistory struct{}

// QueryHistoryResponse answers QueryHistory.
type QueryHistoryResponse struct {
	Data history.Log
}

func (DisplayResult) Action() Action        { return ActionDisplaySentiment }
func (DisplayError) Action() Action         { return ActionDisplaySentiment }
func (QueryHistory) Action() Action         { return ActionGetSentiments }
func (QueryHistoryResponse) Action() Action { return "" }

func (DisplayResult) isMessage()        {}
func (DisplayError) isMessage()         {}
func (QueryHistory) isMessage()         {}
func (QueryHistoryResponse) isMessage() {}

type sentimentPayload struct {
	Emotions sentiment.Scores `json:"emotions"`
}

type envelope struct {
	Action    Action            `json:"action,omitempty"`
	Sentiment *sentimentPayload `json:"sentiment,omitempty"`
	Text      string            `json:"text,omitempty"`
	Error     string            `json:"error,omitempty"`
	Data      *history.Log      `json:"data,omitempty"`
}

// Encode returns the wire form of m.
func Encode(m Message) ([]byte, error) {
	var env envelope
	switch v := m.(type) {
	case DisplayResult:
		env = envelope{Action: ActionDisplaySentiment, Sentiment: &sentimentPayload{Emotions: v.Scores}, Text: v.Text}
	case DisplayError:
		env = envelope{Action: ActionDisplaySentiment, Error: v.Error}
	case QueryHistory:
		env = envelope{Action: ActionGetSentiments}
	case QueryHistoryResponse:
		data := v.Data
		if data == nil {
			data = history.Log{}
		}
		env = envelope{Data: &data}
	default:
		return nil, fmt.Errorf("unknown message type %T", m)
	}
	return json.Marshal(env)
}

// Decode parses a wire payload. A display-sentiment payload carrying an
// error decodes to DisplayError; one without a sentiment decodes to
// DisplayResult with empty scores, which render contexts reject.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}

	switch env.Action {
	case ActionDisplaySentiment:
		if env.Error != "" {
			return DisplayError{Error: env.Error}, nil
		}
		var scores sentiment.Scores
		if env.Sentiment != nil {
			scores = env.Sentiment.Emotions
		}
		return DisplayResult{Text: env.Text, Scores: scores}, nil
	case ActionGetSentiments:
		return QueryHistory{}, nil
	case "":
		if env.Data != nil {
			return QueryHistoryResponse{Data: *env.Data}, nil
		}
		return QueryHistoryResponse{Data: history.Log{}}, nil
	default:
		return nil, fmt.Errorf("unknown action %q", env.Action)
	}
}
