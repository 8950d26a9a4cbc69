package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/emolens/internal/errors"
)

func TestAnalyze_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyze" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("unexpected content type: %s", ct)
		}
		var payload struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("failed to decode payload: %v", err)
		}
		if payload.Text != "I love this!" {
			t.Fatalf("unexpected text: %q", payload.Text)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"emotions":{"joy":0.8,"neutral":0.2}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", server.Client())

	scores, err := client.Analyze(context.Background(), "I love this!")
	require.NoError(t, err)
	require.Equal(t, 2, scores.Len())
	require.Equal(t, "joy", scores.Emotions()[0].Label)
	v, _ := scores.Get("neutral")
	require.Equal(t, 0.2, v)
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   errors.ErrorCode
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`, errors.ErrAPI},
		{"bad request", http.StatusBadRequest, ``, errors.ErrAPI},
		{"malformed body", http.StatusOK, `{"emotions":`, errors.ErrAPI},
		{"empty emotions", http.StatusOK, `{"emotions":{}}`, errors.ErrEmptyResult},
		{"missing emotions", http.StatusOK, `{"label":"joy"}`, errors.ErrEmptyResult},
		{"null body", http.StatusOK, `null`, errors.ErrEmptyResult},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL, server.Client()).Analyze(context.Background(), "text")
			require.Error(t, err)
			require.True(t, errors.Is(err, tt.code), "got %v, want code %s", err, tt.code)
		})
	}
}

func TestAnalyze_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url, nil).Analyze(context.Background(), "text")
	require.True(t, errors.Is(err, errors.ErrNetwork), "got %v", err)
}

func TestAnalyze_APIErrorMessageCarriesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, server.Client()).Analyze(context.Background(), "text")
	require.EqualError(t, err, "API: API Error: 503 Service Unavailable")
}
