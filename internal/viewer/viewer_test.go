package viewer

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/emolens/internal/history"
	"github.com/hpungsan/emolens/internal/message"
	"github.com/hpungsan/emolens/internal/sentiment"
)

type fakeQuerier struct {
	resp message.Message
	err  error
}

func (f fakeQuerier) Request(context.Context, message.Message) (message.Message, error) {
	return f.resp, f.err
}

func success(text string, emotions ...sentiment.Emotion) history.Record {
	return history.NewSuccess(text, sentiment.NewScores(emotions...))
}

func TestRenderLatest(t *testing.T) {
	tests := []struct {
		name string
		log  history.Log
		msg  string
		text string
	}{
		{"empty", history.Log{}, MsgNoData, ""},
		{"nil", nil, MsgNoData, ""},
		{"latest invalid", history.Log{success("a", sentiment.Emotion{Label: "joy", Score: 1}), {SelectedText: "b"}}, MsgInvalidFormat, ""},
		{"latest valid", history.Log{{SelectedText: "a"}, success("b", sentiment.Emotion{Label: "joy", Score: 1})}, "", "b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderLatest(tt.log)
			require.Equal(t, tt.msg, got.Message)
			if tt.text == "" {
				require.Nil(t, got.Entry)
				return
			}
			require.NotNil(t, got.Entry)
			require.Equal(t, tt.text, got.Entry.Text)
		})
	}
}

func TestRenderAll_ReverseWithInvalidPlaceholder(t *testing.T) {
	log := history.Log{
		success("first", sentiment.Emotion{Label: "joy", Score: 0.8}),
		{SelectedText: "missing emotions"},
	}

	entries := RenderAll(log)
	require.Len(t, entries, 2)

	require.Equal(t, 1, entries[0].Index)
	require.False(t, entries[0].Valid)
	require.Equal(t, "1. Invalid sentiment data.", entries[0].String())

	require.Equal(t, 2, entries[1].Index)
	require.True(t, entries[1].Valid)
	require.Equal(t, "first", entries[1].Text)

	// The input is not reordered.
	require.Equal(t, "first", log[0].SelectedText)
}

func TestRenderAll_BlankTextShowsNA(t *testing.T) {
	entries := RenderAll(history.Log{success("  ", sentiment.Emotion{Label: "fear", Score: 0.1})})
	require.Equal(t, MissingText, entries[0].Text)
}

func TestLines_InputOrderAndDefaults(t *testing.T) {
	lines := Lines(sentiment.NewScores(
		sentiment.Emotion{Label: "neutral", Score: 0.2},
		sentiment.Emotion{Label: "joy", Score: 0.8},
		sentiment.Emotion{Label: "awe", Score: 0.006},
	))

	require.Len(t, lines, 3)
	require.Equal(t, "Neutral: 0.20 😐", lines[0].String())
	require.Equal(t, "Joy: 0.80 😊", lines[1].String())
	require.Equal(t, "Awe: 0.01 ❓", lines[2].String())
}

func TestToggle_TwiceRestores(t *testing.T) {
	v := New(fakeQuerier{})

	require.False(t, v.ShowAll())
	require.Equal(t, LabelShow, v.Label())

	require.True(t, v.Toggle())
	require.Equal(t, LabelHide, v.Label())

	require.False(t, v.Toggle())
	require.Equal(t, LabelShow, v.Label())
}

func TestQuery_AbsentDataIsEmpty(t *testing.T) {
	v := New(fakeQuerier{resp: message.QueryHistoryResponse{}})

	log, err := v.Query(context.Background())
	require.NoError(t, err)
	require.NotNil(t, log)
	require.Empty(t, log)
}

func TestQuery_UnexpectedResponse(t *testing.T) {
	v := New(fakeQuerier{resp: message.QueryHistory{}})

	_, err := v.Query(context.Background())
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	log := history.Log{
		success("one", sentiment.Emotion{Label: "joy", Score: 0.5}),
		success("two", sentiment.Emotion{Label: "anger", Score: 0.7}),
	}
	v := New(fakeQuerier{resp: message.QueryHistoryResponse{Data: log}})

	view := v.Load(context.Background())
	require.Empty(t, view.Error)
	require.Equal(t, 2, view.Count)
	require.Equal(t, "two", view.Latest.Entry.Text)
	require.Nil(t, view.All)

	v.Toggle()
	view = v.Load(context.Background())
	require.Len(t, view.All, 2)
	require.Equal(t, "two", view.All[0].Text)
	require.Equal(t, LabelHide, view.Label)
}

func TestLoad_QueryFailure(t *testing.T) {
	v := New(fakeQuerier{err: stderrors.New("port closed")})

	view := v.Load(context.Background())
	require.Equal(t, MsgLoadFailed, view.Error)
}

func TestSaveOutcomeMessages(t *testing.T) {
	// Shared by the web popup, the terminal popup, the CLI and MCP.
	require.Equal(t, "Sentiment saved successfully to the cloud!", MsgSaved)
	require.Equal(t, "Failed to save sentiment in the cloud.", MsgSaveFailed)
	require.Equal(t, "No sentiment available to save.", MsgNothing)
}
