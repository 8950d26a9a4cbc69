package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/emolens/internal/bridge"
	"github.com/hpungsan/emolens/internal/config"
	"github.com/hpungsan/emolens/internal/coordinator"
	"github.com/hpungsan/emolens/internal/db"
	"github.com/hpungsan/emolens/internal/docstore"
	"github.com/hpungsan/emolens/internal/errors"
	"github.com/hpungsan/emolens/internal/history"
	"github.com/hpungsan/emolens/internal/logging"
	"github.com/hpungsan/emolens/internal/overlay"
	"github.com/hpungsan/emolens/internal/web"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	return database, func() { database.Close() }
}

// analyzeServer answers POST /analyze with fixed emotions.
func analyzeServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyze" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"emotions":{"joy":0.8,"surprise":0.15,"neutral":0.05}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// relayServer serves the relay API backed by a fresh document store.
func relayServer(t *testing.T) (*httptest.Server, docstore.Store) {
	t.Helper()
	database, cleanup := setupTestDB(t)
	t.Cleanup(cleanup)

	logger := logging.Discard()
	surfaces := overlay.NewRegistry(overlay.DefaultTimings)
	host := bridge.NewHost(surfaces.Factory(), logger)
	t.Cleanup(host.Close)
	coord := coordinator.New(nil, history.NewStore(database, history.MaxHistory), host, logger)

	docs := docstore.NewSQLite(database)
	h, err := web.NewHandlers(web.Deps{
		Coordinator: coord,
		Host:        host,
		Surfaces:    surfaces,
		Docs:        docs,
		Logger:      logger,
		Version:     "test",
	})
	if err != nil {
		t.Fatalf("failed to build relay: %v", err)
	}
	srv := httptest.NewServer(h.Routes(nil))
	t.Cleanup(srv.Close)
	return srv, docs
}

// testConfig points the analysis endpoint and relay at test servers.
func testConfig(analyzeURL, relayURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.AnalyzeURL = analyzeURL
	cfg.RelayURL = relayURL
	cfg.LogLevel = "error"
	return cfg
}

// captureStdout runs fn with os.Stdout redirected and returns what it wrote.
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		done <- buf.String()
	}()

	runErr := fn()
	w.Close()
	os.Stdout = oldStdout
	return <-done, runErr
}

func TestCLIAnalyze(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	cfg := testConfig(analyzeServer(t).URL, "http://127.0.0.1:1")

	app := newCLIApp(database, cfg)
	out, err := captureStdout(t, func() error {
		return app.Run([]string{"emolens", "analyze", "I", "love", "this!"})
	})
	if err != nil {
		t.Fatalf("analyze command failed: %v", err)
	}

	for _, want := range []string{"Sentiment Analysis Result", "I love this!", "Joy", "0.80", "★"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}

	log, err := history.NewStore(database, history.MaxHistory).ReadAll(t.Context())
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(log) != 1 || log[0].SelectedText != "I love this!" {
		t.Fatalf("history = %+v", log)
	}
}

func TestCLIAnalyze_JSON(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	cfg := testConfig(analyzeServer(t).URL, "http://127.0.0.1:1")

	app := newCLIApp(database, cfg)
	out, err := captureStdout(t, func() error {
		return app.Run([]string{"emolens", "analyze", "--json", "--tab=reader", "hello"})
	})
	if err != nil {
		t.Fatalf("analyze command failed: %v", err)
	}

	var output AnalyzeOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if output.Tab != "reader" || output.State != "succeeded" || !output.Persisted {
		t.Errorf("unexpected output: %+v", output)
	}
	if v, _ := output.Record.Result.Get("joy"); v != 0.8 {
		t.Errorf("joy = %v, want 0.8", v)
	}
}

func TestCLIAnalyze_Failures(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer down.Close()

	app := newCLIApp(database, testConfig(down.URL, "http://127.0.0.1:1"))

	out, err := captureStdout(t, func() error {
		return app.Run([]string{"emolens", "analyze", "hello"})
	})
	if err == nil || !strings.Contains(err.Error(), "[API]") {
		t.Fatalf("expected API error, got %v", err)
	}
	if !strings.Contains(out, "Error fetching sentiment") {
		t.Errorf("expected error panel in output:\n%s", out)
	}

	_, err = captureStdout(t, func() error {
		return app.Run([]string{"emolens", "analyze", "   "})
	})
	if err == nil || !strings.Contains(err.Error(), "[BLANK_INPUT]") {
		t.Fatalf("expected BLANK_INPUT, got %v", err)
	}

	log, _ := history.NewStore(database, history.MaxHistory).ReadAll(t.Context())
	if len(log) != 0 {
		t.Errorf("history len = %d, want 0", len(log))
	}
}

func TestCLIHistory(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	cfg := testConfig(analyzeServer(t).URL, "http://127.0.0.1:1")
	app := newCLIApp(database, cfg)

	out, err := captureStdout(t, func() error {
		return app.Run([]string{"emolens", "history"})
	})
	if err != nil {
		t.Fatalf("history command failed: %v", err)
	}
	if !strings.Contains(out, "No sentiment data found.") {
		t.Errorf("expected empty state, got:\n%s", out)
	}

	for _, text := range []string{"first", "second"} {
		if _, err := captureStdout(t, func() error {
			return app.Run([]string{"emolens", "analyze", text})
		}); err != nil {
			t.Fatalf("analyze %q: %v", text, err)
		}
	}

	out, _ = captureStdout(t, func() error {
		return app.Run([]string{"emolens", "history"})
	})
	if !strings.Contains(out, "Text: second") || strings.Contains(out, "first") {
		t.Errorf("expected only the latest record:\n%s", out)
	}
	if !strings.Contains(out, "Joy: 0.80 😊") {
		t.Errorf("expected formatted emotion line:\n%s", out)
	}

	out, _ = captureStdout(t, func() error {
		return app.Run([]string{"emolens", "history", "--all"})
	})
	first := strings.Index(out, "1. Text: second")
	second := strings.Index(out, "2. Text: first")
	if first < 0 || second < 0 || first > second {
		t.Errorf("expected newest first listing:\n%s", out)
	}

	out, _ = captureStdout(t, func() error {
		return app.Run([]string{"emolens", "history", "--json"})
	})
	var log history.Log
	if err := json.Unmarshal([]byte(out), &log); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if len(log) != 2 || log[0].SelectedText != "first" {
		t.Errorf("expected oldest-first raw log, got %+v", log)
	}
}

func TestCLISaveAndSaved(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	relaySrv, docs := relayServer(t)
	app := newCLIApp(database, testConfig(analyzeServer(t).URL, relaySrv.URL))

	_, err := captureStdout(t, func() error {
		return app.Run([]string{"emolens", "save"})
	})
	if err == nil || !strings.Contains(err.Error(), "No sentiment available to save.") {
		t.Fatalf("expected nothing-to-save error, got %v", err)
	}

	if _, err := captureStdout(t, func() error {
		return app.Run([]string{"emolens", "analyze", "keep this"})
	}); err != nil {
		t.Fatalf("analyze: %v", err)
	}

	out, err := captureStdout(t, func() error {
		return app.Run([]string{"emolens", "save", "--json"})
	})
	if err != nil {
		t.Fatalf("save command failed: %v", err)
	}
	var saved SaveOutput
	if err := json.Unmarshal([]byte(out), &saved); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if saved.ID == "" || saved.Text != "keep this" {
		t.Errorf("unexpected output: %+v", saved)
	}

	stored, err := docs.List(t.Context())
	if err != nil || len(stored) != 1 || stored[0].ID != saved.ID {
		t.Fatalf("relay store = %+v, %v", stored, err)
	}

	out, err = captureStdout(t, func() error {
		return app.Run([]string{"emolens", "saved"})
	})
	if err != nil {
		t.Fatalf("saved command failed: %v", err)
	}
	if !strings.Contains(out, "keep this") || !strings.Contains(out, "joy 0.80") {
		t.Errorf("expected saved document in table:\n%s", out)
	}
}

func TestCLISaved_RelayDown(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	app := newCLIApp(database, testConfig("http://127.0.0.1:1", "http://127.0.0.1:1"))

	_, err := captureStdout(t, func() error {
		return app.Run([]string{"emolens", "saved"})
	})
	if err == nil || !strings.Contains(err.Error(), "[TRANSPORT]") {
		t.Fatalf("expected TRANSPORT error, got %v", err)
	}
}

func TestOutputError(t *testing.T) {
	err := outputError(errors.NewValidation("No sentiment available to save."))
	exitErr, ok := err.(cli.ExitCoder)
	if !ok {
		t.Fatalf("expected cli.ExitCoder, got %T", err)
	}
	if exitErr.ExitCode() != 1 {
		t.Errorf("exit code = %d, want 1", exitErr.ExitCode())
	}
	if err.Error() != "[VALIDATION] No sentiment available to save." {
		t.Errorf("message = %q", err.Error())
	}
}

// TestIsCLIMode tests the isCLIMode function.
func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{"no args", []string{"emolens"}, false},
		{"analyze command", []string{"emolens", "analyze"}, true},
		{"serve command", []string{"emolens", "serve"}, true},
		{"mcp command", []string{"emolens", "mcp"}, true},
		{"help flag", []string{"emolens", "--help"}, true},
		{"short version flag", []string{"emolens", "-v"}, true},
		{"unknown arg defaults to MCP", []string{"emolens", "--unknown"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			if got := isCLIMode(); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestIsHelpOrVersion(t *testing.T) {
	tests := []struct {
		args     []string
		expected bool
	}{
		{[]string{"emolens"}, false},
		{[]string{"emolens", "help"}, true},
		{[]string{"emolens", "--version"}, true},
		{[]string{"emolens", "analyze"}, false},
	}

	for _, tt := range tests {
		oldArgs := os.Args
		os.Args = tt.args
		got := isHelpOrVersion()
		os.Args = oldArgs
		if got != tt.expected {
			t.Errorf("%v: expected %v, got %v", tt.args, tt.expected, got)
		}
	}
}
