package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/emolens/internal/config"
	"github.com/hpungsan/emolens/internal/db"
	"github.com/hpungsan/emolens/internal/logging"
	"github.com/hpungsan/emolens/internal/mcp"
	"github.com/hpungsan/emolens/internal/overlay"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"analyze": true, "history": true, "save": true, "saved": true,
	"serve": true, "view": true, "mcp": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

func printBanner() {
	fmt.Println(`
  ___ _ __ ___   ___  | | ___ _ __  ___
 / _ \ '_ ' _ \ / _ \ | |/ _ \ '_ \/ __|
|  __/ | | | | | (_) || |  __/ | | \__ \
 \___|_| |_| |_|\___/ |_|\___|_| |_|___/

  Emotion analysis for selected text

  Usage: emolens <command> [options]
         emolens --help

  MCP server mode requires piped input.`)
}

func main() {
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	if isHelpOrVersion() {
		app := newCLIApp(nil, nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}

	baseDir := filepath.Join(homeDir, ".emolens")

	cfg, err := config.Load(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	database, err := db.Init(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	if isCLIMode() {
		app := newCLIApp(database, cfg)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'emolens --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default). stdout carries the protocol, so panels
	// are kept in memory and logs go to stderr.
	if err := runMCP(database, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runMCP(database *sql.DB, cfg *config.Config) error {
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn("ignoring unknown disabled tools", logger.Args("tools", unknown))
	}

	surfaces := overlay.NewRegistry(timings(cfg))
	s := newStack(database, cfg, logger, surfaces.Factory())
	defer s.Close()
	s.limitTabs(surfaces.Remove)

	return mcp.Run(s.mcpDeps(), cfg, Version)
}
