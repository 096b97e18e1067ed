package tui

import (
	"fmt"
	"image"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"
)

const (
	// Inner size of a box in terminal cells. Each cell shows two pixels stacked.
	boxWidth  = 20
	boxHeight = 10
	// Outer size, with the border.
	boxOuterWidth  = boxWidth + 2
	boxOuterHeight = boxHeight + 2
	// Lines above the grid.
	headerHeight = 1
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#87ceeb"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Width(boxWidth).
			Height(boxHeight)

	selectedBoxStyle = boxStyle.BorderForeground(lipgloss.Color("#ffffff"))

	// Closed boxes show their day on the overlay color.
	closedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#2f4f6f")).
			Foreground(lipgloss.Color("#ffffff")).
			Bold(true).
			Width(boxWidth).
			Height(boxHeight).
			Padding(0, 1)
)

func (m Model) View() string {
	var rows []string
	for r := 0; r < Rows; r++ {
		var boxes []string
		for c := 0; c < Columns; c++ {
			boxes = append(boxes, m.renderBox(r*Columns+c))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Advent calendar"))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinVertical(lipgloss.Left, rows...))
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.status))
	b.WriteString("\n")
	b.WriteString(help.New().ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

func (m Model) renderBox(index int) string {
	cell := m.cells[index]
	style := boxStyle
	if index == m.selected {
		style = selectedBoxStyle
	}

	var content string
	if cell.IsOpen {
		content = halfBlocks(m.canvases[cell.Day].Image(), boxWidth, boxHeight)
	} else {
		content = closedStyle.Render(fmt.Sprintf("%d", cell.Day))
	}
	return style.Render(content)
}

// halfBlocks renders img in cols x rows terminal cells, each an upper half block whose
// foreground is the upper pixel and background the lower one.
func halfBlocks(img image.Image, cols, rows int) string {
	bounds := img.Bounds()
	sample := func(x, y int) lipgloss.Color {
		px := bounds.Min.X + x*bounds.Dx()/cols
		py := bounds.Min.Y + y*bounds.Dy()/(rows*2)
		r, g, b, _ := img.At(px, py).RGBA()
		return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8))
	}

	lines := make([]string, rows)
	for y := 0; y < rows; y++ {
		var line strings.Builder
		for x := 0; x < cols; x++ {
			line.WriteString(lipgloss.NewStyle().
				Foreground(sample(x, 2*y)).
				Background(sample(x, 2*y+1)).
				Render("▀"))
		}
		lines[y] = line.String()
	}
	return strings.Join(lines, "\n")
}

// boxAt returns the index of the box at terminal position x, y.
func boxAt(x, y int) (int, bool) {
	y -= headerHeight
	if x < 0 || y < 0 {
		return 0, false
	}
	col, row := x/boxOuterWidth, y/boxOuterHeight
	if col >= Columns || row >= Rows {
		return 0, false
	}
	return row*Columns + col, true
}
