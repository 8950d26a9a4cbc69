package mcp

import (
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/emolens/internal/config"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

var analyzeToolDef = mcp.NewTool("sentiment_analyze",
	mcp.WithDescription("Analyze the emotions in a piece of text, record the result in history and show it on a tab overlay."),
	mcp.WithString("text", mcp.Required(), mcp.Description("The selected text to analyze")),
	mcp.WithString("tab", mcp.Description("Tab to draw the result panel on (default \""+DefaultTab+"\")")),
)

var historyToolDef = mcp.NewTool("sentiment_history",
	mcp.WithDescription("Read the local analysis history. Returns the latest record, or every record newest first when all is set."),
	mcp.WithBoolean("all", mcp.Description("Return the whole log instead of the latest record")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var saveToolDef = mcp.NewTool("sentiment_save",
	mcp.WithDescription("Save the latest analysis to the relay's document store."),
)

var savedToolDef = mcp.NewTool("sentiment_saved",
	mcp.WithDescription("List documents saved through the relay, newest first."),
	mcp.WithReadOnlyHintAnnotation(true),
)

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"sentiment_analyze": {
		def:     analyzeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAnalyze },
	},
	"sentiment_history": {
		def:     historyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHistory },
	},
	"sentiment_save": {
		def:     saveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSave },
	},
	"sentiment_saved": {
		def:     savedToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSaved },
	},
}

// AllToolNames returns all valid tool names, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server with the sentiment tools registered.
// Tools listed in cfg.DisabledTools are excluded.
func NewServer(deps Deps, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"emolens",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(deps)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(deps Deps, cfg *config.Config, version string) error {
	return server.ServeStdio(NewServer(deps, cfg, version))
}
