package console

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/koscakluka/foundry-core/core/protocols"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
)

func (m Model) View() string {
	if !m.ready {
		return "loading…"
	}

	leftWidth, rightWidth := m.paneWidths()
	left := paneStyle.Width(leftWidth - 2).Render(m.renderDirectory(leftWidth - 4))
	right := paneStyle.Width(rightWidth - 2).Render(m.renderSession(rightWidth - 4))

	sections := []string{
		titleStyle.Render("foundry"),
		lipgloss.JoinHorizontal(lipgloss.Top, left, right),
		m.renderStatusBar(),
	}
	if m.focus == focusIntent {
		sections = append(sections, m.intent.View())
	}
	if m.showHelp {
		sections = append(sections, m.help.FullHelpView(m.keys.FullHelp()))
	} else {
		sections = append(sections, m.help.ShortHelpView(m.keys.ShortHelp()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderDirectory(width int) string {
	if len(m.view.Sessions) == 0 {
		return labelStyle.Render("no sessions, press n to create one")
	}

	selected := m.selectedIndex()
	lines := make([]string, 0, len(m.view.Sessions))
	for i, session := range m.view.Sessions {
		marker := "  "
		if i == m.cursor {
			marker = cursorStyle.Render("› ")
		}
		status := statusStyle(session.Status).Render(fmt.Sprintf("%-16s", session.Status))
		intent := truncate.StringWithTail(session.Intent, uint(max(width-20, 8)), "…")
		if i == selected {
			intent = selectedStyle.Render(intent)
		}
		lines = append(lines, marker+status+" "+intent)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderSession(width int) string {
	view := m.view
	if view.SelectedID.IsZero() {
		return labelStyle.Render("select a session with enter")
	}

	var b strings.Builder
	intent := ""
	status := protocols.Status("")
	if view.Session != nil {
		intent = view.Session.Intent
		status = view.Session.Status
	} else if summary, ok := view.Selected(); ok {
		intent = summary.Intent
		status = summary.Status
	}
	b.WriteString(titleStyle.Render(wordwrap.String(intent, width)))
	b.WriteString("\n")

	fmt.Fprintf(&b, "%s %s  %s %s",
		labelStyle.Render("status"), statusStyle(status).Render(string(status)),
		labelStyle.Render("run"), runStateStyle(view.State).Render(view.State.String()))
	if view.Loading {
		b.WriteString(labelStyle.Render("  loading…"))
	}
	b.WriteString("\n")
	b.WriteString(m.renderMetrics())
	b.WriteString("\n\n")

	label := "draft"
	if view.EditorUnlocked() {
		label = "draft awaiting review"
	}
	b.WriteString(labelStyle.Render(label))
	if view.HasLocalEdits {
		b.WriteString(" " + editedStyle.Render("(edited locally)"))
	}
	b.WriteString("\n")
	if m.focus == focusEditor {
		b.WriteString(m.editor.View())
	} else if view.Draft == "" {
		b.WriteString(labelStyle.Render("no draft yet"))
	} else {
		b.WriteString(wordwrap.String(view.Draft, width))
	}
	if final, ok := view.Blackboard.FinalProtocol(); ok {
		b.WriteString("\n\n" + labelStyle.Render("final protocol") + "\n")
		b.WriteString(wordwrap.String(final, width))
	}
	if len(view.Interrupts) > 0 {
		fmt.Fprintf(&b, "\n%s %d", labelStyle.Render("interrupts"), len(view.Interrupts))
	}

	b.WriteString("\n\n" + labelStyle.Render("activity") + "\n")
	b.WriteString(m.activity.View())
	return b.String()
}

func (m Model) renderMetrics() string {
	view := m.view
	safety, empathy := view.Scores()
	parts := []string{
		labelStyle.Render("safety") + " " + formatScore(safety),
		labelStyle.Render("empathy") + " " + formatScore(empathy),
	}
	if iteration, ok := view.Blackboard.Iteration(); ok {
		parts = append(parts, labelStyle.Render("iteration")+" "+fmt.Sprint(iteration))
	} else if view.Session != nil {
		parts = append(parts, labelStyle.Render("iteration")+" "+fmt.Sprint(view.Session.Iteration))
	}
	if view.StreamID != "" {
		stream := string(view.StreamMode)
		if view.StreamEnded {
			stream += " (closed)"
		} else if !view.LastFrameAt.IsZero() {
			stream += " · last frame " + view.LastFrameAt.Format(time.TimeOnly)
		}
		parts = append(parts, labelStyle.Render("stream")+" "+stream)
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderStatusBar() string {
	switch {
	case m.err != "":
		return errorStyle.Render(m.err)
	case m.view.LastError != "":
		return errorStyle.Render(m.view.LastError)
	case m.notice != "":
		return noticeStyle.Render(m.notice)
	default:
		return ""
	}
}

func formatScore(score *float64) string {
	if score == nil {
		return "–"
	}
	return fmt.Sprintf("%.2f", *score)
}

// renderActivity lists entries newest first.
func renderActivity(entries []protocols.ActivityEntry, width int) string {
	if len(entries) == 0 {
		return labelStyle.Render("no activity in this run")
	}
	lines := make([]string, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		line := fmt.Sprintf("%s %s: %s", entry.ReceivedAt.Format(time.TimeOnly), entry.Agent, entry.Message)
		if width > 0 {
			line = wordwrap.String(line, width)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
