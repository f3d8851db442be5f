package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/drag"
	"github.com/gosuda/taskboard/internal/syncclient"
)

const columnWidth = 24

type styles struct {
	title       lipgloss.Style
	column      lipgloss.Style
	header      lipgloss.Style
	task        lipgloss.Style
	cursor      lipgloss.Style
	held        lipgloss.Style
	placeholder lipgloss.Style
	barrel      lipgloss.Style
	barrelArmed lipgloss.Style
	info        lipgloss.Style
	warn        lipgloss.Style
	failure     lipgloss.Style
}

func defaultStyles() styles {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1).
		Width(columnWidth)

	return styles{
		title:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")),
		column:      box,
		header:      lipgloss.NewStyle().Bold(true).Underline(true),
		task:        lipgloss.NewStyle(),
		cursor:      lipgloss.NewStyle().Reverse(true),
		held:        lipgloss.NewStyle().Faint(true).Strikethrough(true),
		placeholder: lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true),
		barrel:      box.Width(12),
		barrelArmed: box.Width(12).BorderForeground(lipgloss.Color("196")).Foreground(lipgloss.Color("196")).Bold(true),
		info:        lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		warn:        lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		failure:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

var columnTitles = map[domain.Status]string{
	domain.StatusBacklog: "Backlog",
	domain.StatusTodo:    "To do",
	domain.StatusDoing:   "Doing",
	domain.StatusDone:    "Done",
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.title.Render("taskboard"))
	b.WriteString("\n")

	if banner := m.banner(); banner != "" {
		b.WriteString(banner)
		b.WriteString("\n")
	}

	if m.view.Phase == syncclient.PhaseLoading {
		b.WriteString(m.styles.info.Render("Loading board..."))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(m.renderBoard())
	b.WriteString("\n")

	if len(m.view.Tasks) == 0 {
		b.WriteString(m.styles.info.Render("No tasks yet. Press n to add one."))
		b.WriteString("\n")
	}
	if m.adding {
		fmt.Fprintf(&b, "New task in %s: %s\n", columnTitles[m.cursorStatus()], m.input.View())
	}
	if m.notice != "" {
		b.WriteString(m.styles.warn.Render(m.notice))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) banner() string {
	var parts []string
	switch m.view.Phase {
	case syncclient.PhaseStale:
		parts = append(parts, m.styles.warn.Render("Connection lost, reconnecting. Changes are paused."))
	case syncclient.PhaseLive:
		if !m.view.Editable {
			parts = append(parts, m.styles.info.Render("Read-only view"))
		}
	}
	if m.view.Pending > 0 {
		parts = append(parts, m.styles.info.Render(fmt.Sprintf("saving %d change(s)...", m.view.Pending)))
	}
	if m.view.Failure != nil {
		parts = append(parts, m.styles.failure.Render("Change rejected: "+m.view.Failure.Error()))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderBoard() string {
	b := m.controller.Board()
	session, dragging := m.drag.Session()

	cols := make([]string, 0, len(b.Columns)+1)
	for i, col := range b.Columns {
		focused := i == m.col
		lines := []string{m.styles.header.Render(fmt.Sprintf("%s (%d)", columnTitles[col.Status], len(col.Tasks)))}

		slot := 0
		for _, t := range col.Tasks {
			if dragging && t.ID == session.DraggedTaskID {
				lines = append(lines, m.styles.held.Render(truncate(t.Title)))
				continue
			}
			if dragging && focused && slot == m.row {
				lines = append(lines, m.styles.placeholder.Render("> drop here"))
			}
			style := m.styles.task
			if !dragging && focused && slot == m.row {
				style = m.styles.cursor
			}
			lines = append(lines, style.Render(truncate(t.Title)))
			slot++
		}
		if dragging && focused && slot == m.row {
			lines = append(lines, m.styles.placeholder.Render("> drop here"))
		}
		if len(col.Tasks) == 0 && !(dragging && focused) {
			lines = append(lines, m.styles.info.Render("(empty)"))
		}

		style := m.styles.column
		if focused {
			style = style.BorderForeground(lipgloss.Color("63"))
		}
		cols = append(cols, style.Render(strings.Join(lines, "\n")))
	}

	cols = append(cols, m.renderBarrel())
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func (m Model) renderBarrel() string {
	if m.drag.Barrel().Armed() {
		return m.styles.barrelArmed.Render("BURN\nrelease to\ndelete")
	}
	label := "Burn barrel"
	if m.drag.State() == drag.StateDragging {
		label += "\n→ drag here"
	}
	return m.styles.barrel.Render(label)
}

func truncate(s string) string {
	limit := columnWidth - 2
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
