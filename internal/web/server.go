package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pterm/pterm"

	"github.com/hpungsan/emolens/internal/bridge"
	"github.com/hpungsan/emolens/internal/coordinator"
	"github.com/hpungsan/emolens/internal/docstore"
	"github.com/hpungsan/emolens/internal/overlay"
	"github.com/hpungsan/emolens/internal/palette"
	"github.com/hpungsan/emolens/internal/relay"
)

//go:embed templates/*.html templates/*.md
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Deps are the components the server routes to.
type Deps struct {
	Coordinator *coordinator.Coordinator
	Host        *bridge.Host
	Surfaces    *overlay.Registry
	Docs        docstore.Store
	Relay       *relay.Client
	Logger      *pterm.Logger
	Version     string
}

// NewHandlers wires handlers to deps.
func NewHandlers(deps Deps) (*Handlers, error) {
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("template sub-FS: %w", err)
	}

	return &Handlers{
		coord:    deps.Coordinator,
		host:     deps.Host,
		surfaces: deps.Surfaces,
		docs:     deps.Docs,
		relay:    deps.Relay,
		logger:   deps.Logger,
		renderer: NewRenderer(templateSub, deps.Version, deps.Logger),
	}, nil
}

// NewServer creates the HTTP server for the relay API and the web UI.
func NewServer(deps Deps, bind string, port int) (*http.Server, error) {
	h, err := NewHandlers(deps)
	if err != nil {
		return nil, err
	}

	// Create sub-FS for static files (strip "static/" prefix)
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static sub-FS: %w", err)
	}

	return &http.Server{
		Addr:    fmt.Sprintf("%s:%d", bind, port),
		Handler: h.Routes(staticSub),
	}, nil
}

// Routes builds the request multiplexer.
func (h *Handlers) Routes(static fs.FS) http.Handler {
	mux := http.NewServeMux()

	// Relay API
	mux.HandleFunc("POST /save-sentiment", h.HandleSaveSentiment)
	mux.HandleFunc("GET /get-sentiments", h.HandleGetSentiments)
	mux.HandleFunc("OPTIONS /save-sentiment", handlePreflight)
	mux.HandleFunc("OPTIONS /get-sentiments", handlePreflight)

	// UI
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/popup", http.StatusFound)
	})
	mux.HandleFunc("GET /popup", h.HandlePopup)
	mux.HandleFunc("POST /popup/save", h.HandlePopupSave)
	mux.HandleFunc("GET /saved", h.HandleSaved)
	mux.HandleFunc("GET /help", h.HandleHelp)
	mux.HandleFunc("GET /tabs/new", h.HandleNewTab)
	mux.HandleFunc("GET /tabs/{tab}", h.HandleTab)
	mux.HandleFunc("POST /tabs/{tab}/analyze", h.HandleAnalyze)
	mux.HandleFunc("GET /tabs/{tab}/overlay", h.HandleOverlay)
	mux.HandleFunc("POST /tabs/{tab}/overlay/{kind}/dismiss", h.HandleDismiss)
	mux.HandleFunc("GET /palette.css", handlePaletteCSS)

	if static != nil {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	}

	return cors(securityHeaders(mux))
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// cors allows any origin, like the browser-facing relay it replaces.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}

func handlePreflight(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Methods", "GET,HEAD,PUT,PATCH,POST,DELETE")
	if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
		w.Header().Set("Access-Control-Allow-Headers", reqHeaders)
		w.Header().Add("Vary", "Access-Control-Request-Headers")
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePaletteCSS serves label colors. Labels without a rule keep the
// default panel text color.
func handlePaletteCSS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	for _, label := range palette.Labels() {
		fmt.Fprintf(w, ".sentiment-popup .emotion strong.label-%s { color: %s; }\n", label, palette.Color(label))
	}
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, logger *pterm.Logger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("emolens running", logger.Args("url", "http://"+srv.Addr))

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
