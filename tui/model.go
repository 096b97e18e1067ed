// tui is a terminal front-end to the calendar: a grid of boxes opened with the keyboard or
// the mouse, whose snowflakes are drawn with half-block characters.
package tui

import (
	"context"
	"errors"
	"fmt"

	"advent/calendar"
	"advent/canvas"
	appLog "advent/log"
	"advent/snowflake"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	// Columns and rows of the box grid.
	Columns = 6
	Rows    = calendar.Days / Columns
)

// Model is the bubbletea model of one calendar.
type Model struct {
	cells    []calendar.Cell
	canvases map[int]*canvas.Canvas
	rng      snowflake.Rand
	opts     []calendar.ClickOption
	keys     KeyMap

	selected int // index of the selected box
	status   string
}

// New returns a model with every box closed and a canvas mounted on each.
func New(rng snowflake.Rand, opts ...calendar.ClickOption) Model {
	m := Model{
		cells:    calendar.Initialize(),
		canvases: make(map[int]*canvas.Canvas, calendar.Days),
		rng:      rng,
		opts:     opts,
		keys:     DefaultKeyMap(),
	}
	calendar.Mount(m.cells, func(day int) snowflake.Canvas {
		c := canvas.New(snowflake.SurfaceWidth, snowflake.SurfaceHeight)
		m.canvases[day] = c
		return c
	})
	return m
}

// Cells returns a copy of the model's cells.
func (m Model) Cells() []calendar.Cell {
	return calendar.Snapshot(m.cells)
}

// Selected returns the day of the selected box.
func (m Model) Selected() int {
	return m.cells[m.selected].Day
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.MouseMsg:
		if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		if index, ok := boxAt(msg.X, msg.Y); ok {
			m.selected = index
			m.open()
		}
	}
	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	row, col := m.selected/Columns, m.selected%Columns
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		row = (row + Rows - 1) % Rows
	case key.Matches(msg, m.keys.Down):
		row = (row + 1) % Rows
	case key.Matches(msg, m.keys.Left):
		col = (col + Columns - 1) % Columns
	case key.Matches(msg, m.keys.Right):
		col = (col + 1) % Columns
	case key.Matches(msg, m.keys.Open):
		m.open()
		return m, nil
	}
	m.selected = row*Columns + col
	return m, nil
}

// open clicks the selected box.
func (m *Model) open() {
	day := m.cells[m.selected].Day
	click, err := calendar.HandleClick(m.cells, m.selected, m.rng, m.opts...)
	switch {
	case err != nil:
		appLog.Error("click rejected", err, "day", day)
		m.status = fmt.Sprintf("day %d: %v", day, err)
	case click.AlreadyOpen:
		m.status = fmt.Sprintf("day %d is already open", day)
	case click.Skipped():
		appLog.Debug("snowflake draw skipped", "day", day, "reason", click.DrawErr, "opened", click.Opened)
		m.status = fmt.Sprintf("day %d: no snowflakes drawn", day)
	default:
		m.status = fmt.Sprintf("day %d: %d snowflakes", day, len(click.Drawn))
	}
}

// Run shows the calendar in the terminal until the user quits or ctx is cancelled.
func Run(ctx context.Context, rng snowflake.Rand, opts ...calendar.ClickOption) error {
	p := tea.NewProgram(
		New(rng, opts...),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
