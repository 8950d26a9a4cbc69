package main

import (
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pterm/pterm"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/emolens/internal/bridge"
	"github.com/hpungsan/emolens/internal/config"
	"github.com/hpungsan/emolens/internal/coordinator"
	"github.com/hpungsan/emolens/internal/docstore"
	"github.com/hpungsan/emolens/internal/errors"
	"github.com/hpungsan/emolens/internal/history"
	"github.com/hpungsan/emolens/internal/logging"
	"github.com/hpungsan/emolens/internal/overlay"
	"github.com/hpungsan/emolens/internal/sentiment"
	"github.com/hpungsan/emolens/internal/tui"
	"github.com/hpungsan/emolens/internal/viewer"
	"github.com/hpungsan/emolens/internal/web"
)

// DefaultTab is the tab CLI analyses are drawn on.
const DefaultTab = "cli"

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "emolens",
		Usage:   "Emotion analysis for selected text",
		Version: Version,
		Commands: []*cli.Command{
			analyzeCmd(db, cfg),
			historyCmd(db, cfg),
			saveCmd(db, cfg),
			savedCmd(db, cfg),
			serveCmd(db, cfg),
			viewCmd(db, cfg),
			mcpCmd(db, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// AnalyzeOutput is the analyze --json result.
type AnalyzeOutput struct {
	Tab       string         `json:"tab"`
	State     string         `json:"state"`
	Record    history.Record `json:"record"`
	Persisted bool           `json:"persisted"`
}

// analyzeCmd creates the analyze command.
func analyzeCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Analyze text (argument or stdin) and record it in history",
		ArgsUsage: "[text]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tab", Aliases: []string{"t"}, Value: DefaultTab, Usage: "Tab to draw the result on"},
			&cli.BoolFlag{Name: "json", Usage: "Print the outcome as JSON instead of a table"},
		},
		Action: func(c *cli.Context) error {
			text := strings.Join(c.Args().Slice(), " ")
			if text == "" && stdinHasData() {
				in, err := readStdin()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				text = in
			}

			var w io.Writer = os.Stdout
			if c.Bool("json") {
				w = io.Discard
			}
			s := newStack(db, cfg, newLogger(cfg), terminalFactory(w))
			defer s.Close()

			tab := c.String("tab")
			out := s.coord.Trigger(c.Context, tab, text)
			if out.Delivered {
				_ = s.host.Sync(c.Context, tab)
			}
			if out.State != coordinator.StateSucceeded {
				return outputError(out.Err)
			}

			if c.Bool("json") {
				return outputJSON(AnalyzeOutput{
					Tab:       tab,
					State:     string(out.State),
					Record:    out.Record,
					Persisted: out.Persisted,
				})
			}
			return nil
		},
	}
}

// historyCmd creates the history command.
func historyCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show the latest analysis, or the whole log newest first",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "Show every record"},
			&cli.BoolFlag{Name: "json", Usage: "Print the raw log as JSON"},
		},
		Action: func(c *cli.Context) error {
			s := newStack(db, cfg, newLogger(cfg), terminalFactory(io.Discard))
			defer s.Close()

			log, err := viewer.New(s.host).Query(c.Context)
			if err != nil {
				return outputError(err)
			}

			if c.Bool("json") {
				return outputJSON(log)
			}

			latest := viewer.RenderLatest(log)
			if latest.Entry == nil {
				pterm.Fprintln(os.Stdout, latest.Message)
			} else {
				pterm.Fprintln(os.Stdout, pterm.Bold.Sprint("Latest Sentiment:"))
				printEntry(os.Stdout, *latest.Entry, "Text: "+latest.Entry.Text)
			}

			if c.Bool("all") && len(log) > 0 {
				pterm.Fprintln(os.Stdout)
				pterm.Fprintln(os.Stdout, pterm.Bold.Sprint("Saved Sentiments:"))
				for _, e := range viewer.RenderAll(log) {
					printEntry(os.Stdout, e, e.String())
				}
			}
			return nil
		},
	}
}

func printEntry(w io.Writer, e viewer.Entry, heading string) {
	pterm.Fprintln(w, heading)
	if !e.Valid {
		return
	}
	if len(e.Emotions) == 0 {
		pterm.Fprintln(w, "  "+viewer.MsgNoEmotions)
		return
	}
	for _, l := range e.Emotions {
		pterm.Fprintln(w, "  "+l.String())
	}
}

// SaveOutput is the save --json result.
type SaveOutput struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// saveCmd creates the save command.
func saveCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "save",
		Usage: "Save the latest analysis through the relay",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print the saved document ID as JSON"},
		},
		Action: func(c *cli.Context) error {
			s := newStack(db, cfg, newLogger(cfg), terminalFactory(io.Discard))
			defer s.Close()

			log, err := viewer.New(s.host).Query(c.Context)
			if err != nil {
				return outputError(err)
			}
			rec, ok := log.Latest()
			if !ok || !rec.Valid() {
				return outputError(errors.NewValidation(viewer.MsgNothing))
			}

			id, err := s.relay.SaveRecord(c.Context, rec)
			if err != nil {
				return outputError(err)
			}

			if c.Bool("json") {
				return outputJSON(SaveOutput{ID: id, Text: rec.SelectedText})
			}
			pterm.Fprintln(os.Stdout, pterm.Green(viewer.MsgSaved)+" "+pterm.Gray(id))
			return nil
		},
	}
}

// savedCmd creates the saved command.
func savedCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "saved",
		Usage: "List documents saved through the relay",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print documents as JSON"},
		},
		Action: func(c *cli.Context) error {
			s := newStack(db, cfg, newLogger(cfg), terminalFactory(io.Discard))
			defer s.Close()

			docs, err := s.relay.List(c.Context)
			if err != nil {
				return outputError(err)
			}
			if docs == nil {
				docs = []docstore.Document{}
			}

			if c.Bool("json") {
				return outputJSON(docs)
			}
			if len(docs) == 0 {
				pterm.Fprintln(os.Stdout, "Nothing saved yet.")
				return nil
			}

			data := pterm.TableData{{"Saved", "Text", "Emotions"}}
			for _, d := range docs {
				emotions := lo.Map(d.Emotions.Emotions(), func(e sentiment.Emotion, _ int) string {
					return fmt.Sprintf("%s %.2f", e.Label, e.Score)
				})
				data = append(data, []string{
					d.Timestamp.UTC().Format("2006-01-02 15:04:05"),
					d.Text,
					strings.Join(emotions, ", "),
				})
			}
			table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			pterm.Fprintln(os.Stdout, table)
			return nil
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the relay API, the history popup and tab overlays",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Address to bind (default from config)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Port to listen on (default from config)"},
		},
		Action: func(c *cli.Context) error {
			bind := cfg.Bind
			if c.IsSet("bind") {
				bind = c.String("bind")
			}
			port := cfg.Port
			if c.IsSet("port") {
				port = c.Int("port")
			}

			logger := newLogger(cfg)
			surfaces := overlay.NewRegistry(timings(cfg))
			s := newStack(db, cfg, logger, surfaces.Factory())
			defer s.Close()
			s.limitTabs(surfaces.Remove)

			docs, err := docstore.Open(c.Context, cfg, db)
			if err != nil {
				return outputError(err)
			}
			defer docs.Close()

			srv, err := web.NewServer(web.Deps{
				Coordinator: s.coord,
				Host:        s.host,
				Surfaces:    surfaces,
				Docs:        docs,
				Relay:       s.relay,
				Logger:      logger,
				Version:     Version,
			}, bind, port)
			if err != nil {
				return outputError(err)
			}
			return web.Run(srv, logger)
		},
	}
}

// viewCmd creates the view command.
func viewCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "view",
		Usage: "Browse history in an interactive terminal popup",
		Action: func(c *cli.Context) error {
			// Logs would tear the alternate screen.
			s := newStack(db, cfg, logging.Discard(), terminalFactory(io.Discard))
			defer s.Close()

			p := tea.NewProgram(tui.New(tui.Config{Querier: s.host, Saver: s.relay}), tea.WithAltScreen())
			_, err := p.Run()
			return err
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server on stdio",
		Action: func(c *cli.Context) error {
			return runMCP(db, cfg)
		},
	}
}

// Helper functions

func newLogger(cfg *config.Config) *pterm.Logger {
	return logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
}

// terminalFactory draws every tab's panels to w.
func terminalFactory(w io.Writer) bridge.TargetFactory {
	term := overlay.NewTerminal(w)
	return func(string) (bridge.RenderTarget, error) { return term, nil }
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var lErr *errors.LensError
	if stderrors.As(err, &lErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", lErr.Code, lErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
