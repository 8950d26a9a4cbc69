// Package tui is the terminal rendition of the history popup.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hpungsan/emolens/internal/errors"
	"github.com/hpungsan/emolens/internal/history"
	"github.com/hpungsan/emolens/internal/viewer"
)

const requestTimeout = 30 * time.Second

// Saver relays a record to the document store.
type Saver interface {
	SaveRecord(ctx context.Context, rec history.Record) (string, error)
}

// Config wires runtime options into the TUI program.
type Config struct {
	Querier viewer.Querier
	Saver   Saver
}

// New returns a tea.Model ready to be mounted into a Program.
func New(config Config) tea.Model {
	return newModel(config)
}

func newModel(config Config) *model {
	return &model{
		config:  config,
		viewer:  viewer.New(config.Querier),
		loading: true,
	}
}

type model struct {
	config Config
	viewer *viewer.Viewer

	view    viewer.View
	loading bool
	saving  bool
	status  string
	ok      bool
	width   int
}

type viewLoadedMsg struct {
	view viewer.View
}

type saveResultMsg struct {
	id  string
	msg string
}

func (m *model) Init() tea.Cmd {
	return m.loadCmd()
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case viewLoadedMsg:
		m.loading = false
		m.view = msg.view
		return m, nil
	case saveResultMsg:
		m.saving = false
		m.status = msg.msg
		m.ok = msg.msg == viewer.MsgSaved
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "v":
			m.viewer.Toggle()
			m.loading = true
			return m, m.loadCmd()
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "s":
			if m.saving {
				return m, nil
			}
			m.saving = true
			m.status = ""
			return m, m.saveCmd()
		}
	}
	return m, nil
}

// loadCmd re-queries the log. The model never holds a log between loads.
func (m *model) loadCmd() tea.Cmd {
	v := m.viewer
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return viewLoadedMsg{view: v.Load(ctx)}
	}
}

func (m *model) saveCmd() tea.Cmd {
	v := m.viewer
	saver := m.config.Saver
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return save(ctx, v, saver)
	}
}

func save(ctx context.Context, v *viewer.Viewer, saver Saver) saveResultMsg {
	log, err := v.Query(ctx)
	if err != nil {
		return saveResultMsg{msg: viewer.MsgSaveFailed}
	}
	rec, ok := log.Latest()
	if !ok || !rec.Valid() || saver == nil {
		return saveResultMsg{msg: viewer.MsgNothing}
	}
	id, err := saver.SaveRecord(ctx, rec)
	switch {
	case errors.Is(err, errors.ErrValidation):
		return saveResultMsg{msg: viewer.MsgNothing}
	case err != nil:
		return saveResultMsg{msg: viewer.MsgSaveFailed}
	}
	return saveResultMsg{id: id, msg: viewer.MsgSaved}
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	helperStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#28a745"))
	entryStyle   = lipgloss.NewStyle().PaddingLeft(2)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("81")).Padding(0, 1)
	keyStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#ffd166")).Padding(0, 1)
)
