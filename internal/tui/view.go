package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hpungsan/emolens/internal/palette"
	"github.com/hpungsan/emolens/internal/viewer"
)

func (m *model) View() string {
	parts := []string{titleStyle.Render("emolens · Sentiment History")}

	switch {
	case m.loading:
		parts = append(parts, helperStyle.Render("Loading…"))
	case m.view.Error != "":
		parts = append(parts, errorStyle.Render(m.view.Error))
	default:
		parts = append(parts, m.latestView())
		if m.view.ShowAll {
			parts = append(parts, m.allView())
		}
	}

	if m.saving {
		parts = append(parts, helperStyle.Render("Saving…"))
	} else if m.status != "" {
		style := errorStyle
		if m.ok {
			style = successStyle
		}
		parts = append(parts, style.Render(m.status))
	}

	parts = append(parts, m.keysView())
	return strings.Join(parts, "\n\n") + "\n"
}

func (m *model) latestView() string {
	latest := m.view.Latest
	if latest.Entry == nil {
		return latest.Message
	}
	body := []string{
		headerStyle.Render("Latest Sentiment:"),
		"Text: " + latest.Entry.Text,
		"Emotions:",
	}
	body = append(body, emotionLines(latest.Entry.Emotions)...)
	return boxStyle.Render(strings.Join(body, "\n"))
}

func (m *model) allView() string {
	lines := []string{headerStyle.Render("Saved Sentiments:")}
	for _, e := range m.view.All {
		if !e.Valid {
			lines = append(lines, fmt.Sprintf("%d. %s", e.Index, viewer.MsgInvalidEntry))
			continue
		}
		lines = append(lines, fmt.Sprintf("%d. Text: %s", e.Index, e.Text))
		for _, l := range emotionLines(e.Emotions) {
			lines = append(lines, entryStyle.Render(l))
		}
	}
	return strings.Join(lines, "\n")
}

func emotionLines(lines []viewer.EmotionLine) []string {
	if len(lines) == 0 {
		return []string{viewer.MsgNoEmotions}
	}
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		name := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(palette.Color(l.Label))).Render(l.Name + ":")
		out = append(out, fmt.Sprintf("• %s %s %s", name, l.Value, l.Emoji))
	}
	return out
}

func (m *model) keysView() string {
	keys := []struct{ key, desc string }{
		{"v", m.view.Label},
		{"s", "Save to Cloud"},
		{"r", "Reload"},
		{"q", "Quit"},
	}
	if m.view.Label == "" {
		keys[0].desc = m.viewer.Label()
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, keyStyle.Render(k.key)+" "+helperStyle.Render(k.desc))
	}
	return strings.Join(parts, "  ")
}
