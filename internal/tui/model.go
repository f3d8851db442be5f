// Package tui is the terminal board: four columns and a burn barrel, with a
// keyboard-driven drag gesture.
package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskboard/internal/board"
	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/drag"
	"github.com/gosuda/taskboard/internal/syncclient"
)

// barrelColumn is the cursor column of the burn barrel, right of "done".
var barrelColumn = len(domain.Statuses())

// Client is the synced board the model renders and mutates.
type Client interface {
	board.Source
	board.Gate
	board.Dispatcher
	View() syncclient.View
	Updates() <-chan struct{}
	DismissFailure()
}

type updateMsg struct{}

type Model struct {
	client  Client
	boardID uuid.UUID
	ownerID uuid.UUID

	controller *board.Controller
	drag       *drag.Controller

	keys   keyMap
	help   help.Model
	input  textinput.Model
	styles styles

	view   syncclient.View
	col    int
	row    int
	adding bool
	notice string
	width  int
}

func New(client Client, boardID, ownerID uuid.UUID) Model {
	ctl := board.NewController(client, client, client)
	input := textinput.New()
	input.Placeholder = "task title"
	input.CharLimit = 500

	return Model{
		client:     client,
		boardID:    boardID,
		ownerID:    ownerID,
		controller: ctl,
		drag:       drag.NewController(ctl, drag.NewBurnBarrel(ctl)),
		keys:       defaultKeys(),
		help:       help.New(),
		input:      input,
		styles:     defaultStyles(),
		view:       client.View(),
	}
}

// Run shows the board until the user quits or ctx is done.
func Run(ctx context.Context, client Client, boardID, ownerID uuid.UUID, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	if _, err := tea.NewProgram(New(client, boardID, ownerID), opts...).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("tui.Run: %w", err)
	}
	return nil
}

func (m Model) Init() tea.Cmd {
	return waitForUpdate(m.client.Updates())
}

func waitForUpdate(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return updateMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil
	case updateMsg:
		m.refresh()
		return m, waitForUpdate(m.client.Updates())
	case tea.KeyMsg:
		if m.adding {
			return m.handleInputKeys(msg)
		}
		return m.handleBoardKeys(msg)
	}
	return m, nil
}

func (m *Model) refresh() {
	m.view = m.client.View()
	if s, ok := m.drag.Session(); ok {
		if _, _, found := m.controller.Board().Find(s.DraggedTaskID); !found {
			m.drag.Cancel()
			m.notice = "the task you were holding was burned"
		}
	}
	m.clampCursor()
}

func (m Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.adding = false
		m.input.Blur()
		m.input.Reset()
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		title := m.input.Value()
		m.adding = false
		m.input.Blur()
		m.input.Reset()
		if _, err := m.controller.Create(m.boardID, m.ownerID, title, m.cursorStatus()); err != nil {
			m.report(err)
		}
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleBoardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	dragging := m.drag.State() == drag.StateDragging

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Left):
		m.col--
	case key.Matches(msg, m.keys.Right):
		m.col++
	case key.Matches(msg, m.keys.Up):
		m.row--
	case key.Matches(msg, m.keys.Down):
		m.row++
	case key.Matches(msg, m.keys.Grab):
		if dragging {
			m.drop()
		} else {
			m.grab()
		}
		m.refresh()
		return m, nil
	case key.Matches(msg, m.keys.Cancel):
		if dragging {
			m.drag.Cancel()
			m.notice = ""
		} else {
			m.client.DismissFailure()
		}
		m.refresh()
		return m, nil
	case key.Matches(msg, m.keys.Dismiss):
		m.notice = ""
		m.client.DismissFailure()
		m.refresh()
		return m, nil
	case key.Matches(msg, m.keys.New):
		if !m.controller.CanEdit() {
			m.notice = "read-only board"
			return m, nil
		}
		m.adding = true
		return m, m.input.Focus()
	default:
		return m, nil
	}

	m.clampCursor()
	if m.drag.State() == drag.StateDragging {
		m.drag.Hover(m.target())
	}
	return m, nil
}

func (m *Model) grab() {
	if m.col == barrelColumn {
		return
	}
	col := m.controller.Board().Column(m.cursorStatus())
	if m.row >= len(col.Tasks) {
		return
	}
	if _, err := m.drag.Start(col.Tasks[m.row].ID); err != nil {
		m.report(err)
		return
	}
	m.notice = ""
	m.drag.Hover(m.target())
}

func (m *Model) drop() {
	outcome, err := m.drag.Drop(m.target())
	if err != nil {
		m.report(err)
		return
	}
	log.Debug().Str("outcome", outcome.String()).Msg("drop")
}

func (m *Model) report(err error) {
	switch {
	case errors.Is(err, board.ErrReadOnly):
		m.notice = "read-only board"
	case errors.Is(err, syncclient.ErrStale):
		m.notice = "not connected, change not sent"
	case errors.Is(err, domain.ErrInvalidTask):
		m.notice = "a task needs a title"
	default:
		m.notice = err.Error()
	}
	log.Warn().Err(err).Msg("board action failed")
}

// target maps the cursor to a drop target. While dragging, the row counts
// positions with the dragged task removed.
func (m Model) target() drag.Target {
	if m.col == barrelColumn {
		return drag.BarrelTarget()
	}
	return drag.ColumnTarget(m.cursorStatus(), m.row)
}

func (m Model) cursorStatus() domain.Status {
	statuses := domain.Statuses()
	if m.col >= 0 && m.col < len(statuses) {
		return statuses[m.col]
	}
	return domain.StatusBacklog
}

// slots is how many cursor rows the current column offers.
func (m Model) slots() int {
	if m.col == barrelColumn {
		return 1
	}
	col := m.controller.Board().Column(m.cursorStatus())
	s, dragging := m.drag.Session()
	if !dragging {
		return len(col.Tasks)
	}
	n := len(col.Tasks)
	for _, t := range col.Tasks {
		if t.ID == s.DraggedTaskID {
			n--
		}
	}
	return n + 1
}

func (m *Model) clampCursor() {
	last := barrelColumn - 1
	if m.drag.State() == drag.StateDragging {
		last = barrelColumn
	}
	m.col = max(0, min(m.col, last))
	m.row = max(0, min(m.row, m.slots()-1))
}
