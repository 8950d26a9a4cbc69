package main

import (
	"database/sql"

	"github.com/pterm/pterm"

	"github.com/hpungsan/emolens/internal/analysis"
	"github.com/hpungsan/emolens/internal/bridge"
	"github.com/hpungsan/emolens/internal/config"
	"github.com/hpungsan/emolens/internal/coordinator"
	"github.com/hpungsan/emolens/internal/history"
	"github.com/hpungsan/emolens/internal/mcp"
	"github.com/hpungsan/emolens/internal/overlay"
	"github.com/hpungsan/emolens/internal/relay"
)

// stack is the background side of the extension: history, the bridge to
// tabs and the coordinator, plus a client for the relay.
type stack struct {
	cfg    *config.Config
	logger *pterm.Logger
	store  *history.Store
	host   *bridge.Host
	coord  *coordinator.Coordinator
	relay  *relay.Client
}

// newStack wires the components. Panels go wherever factory draws them.
func newStack(database *sql.DB, cfg *config.Config, logger *pterm.Logger, factory bridge.TargetFactory) *stack {
	store := history.NewStore(database, cfg.MaxHistory)
	host := bridge.NewHost(factory, logger)
	coord := coordinator.New(analysis.NewClient(cfg.AnalyzeURL, nil), store, host, logger)
	coord.Register(host)

	return &stack{
		cfg:    cfg,
		logger: logger,
		store:  store,
		host:   host,
		coord:  coord,
		relay:  relay.NewClient(cfg.RelayURL, nil),
	}
}

// limitTabs caps live tabs at the configured maximum; evict is told which
// tab was dropped.
func (s *stack) limitTabs(evict func(tab string)) {
	s.host.SetLimit(s.cfg.MaxTabs, evict)
}

func (s *stack) mcpDeps() mcp.Deps {
	return mcp.Deps{Coordinator: s.coord, Host: s.host, Relay: s.relay}
}

// Close stops the tab contexts.
func (s *stack) Close() {
	s.host.Close()
}

func timings(cfg *config.Config) overlay.Timings {
	return overlay.Timings{
		Result: cfg.ResultPanelTTL(),
		Banner: cfg.BannerTTL(),
		Fade:   cfg.Fade(),
	}
}
