// calendar holds the advent calendar grid: 24 cells, each of which is opened at most once.
package calendar

import (
	"errors"
	"fmt"
	"sync"

	"advent/snowflake"
)

// Days is the number of cells in the calendar.
const Days = 24

// Cell is one box of the calendar.
// The grid owns the cells; each cell owns its open flag and its surface exclusively.
type Cell struct {
	Day    int
	IsOpen bool
	// Surface is bound when the grid is mounted and nil otherwise.
	Surface snowflake.Canvas
	// Version counts successful draws onto Surface.
	Version int
}

// LabelVisible reports whether the day number is shown.
func (c Cell) LabelVisible() bool { return !c.IsOpen }

// OverlayVisible reports whether the clickable overlay is shown.
func (c Cell) OverlayVisible() bool { return !c.IsOpen }

// CanvasVisible reports whether the drawing surface is shown; it always is.
func (c Cell) CanvasVisible() bool { return true }

// Initialize returns the closed cells for days 1 through 24, in order.
func Initialize() []Cell {
	cells := make([]Cell, Days)
	for i := range cells {
		cells[i] = Cell{Day: i + 1}
	}
	return cells
}

// Mount binds a surface to every cell, as returned by surfaceFor(day).
func Mount(cells []Cell, surfaceFor func(day int) snowflake.Canvas) {
	for i := range cells {
		cells[i].Surface = surfaceFor(cells[i].Day)
	}
}

// Unmount releases every surface. Cell state is left untouched.
func Unmount(cells []Cell) {
	for i := range cells {
		cells[i].Surface = nil
	}
}

// Snapshot copies the cells so they may be handed to other goroutines.
// Surfaces are shared, not copied.
func Snapshot(cells []Cell) []Cell {
	snap := make([]Cell, len(cells))
	copy(snap, cells)
	return snap
}

// Index returns the index of the cell for day, or -1.
func Index(cells []Cell, day int) int {
	for i := range cells {
		if cells[i].Day == day {
			return i
		}
	}
	return -1
}

// ErrNoSuchCell is returned when a click targets a cell that does not exist.
var ErrNoSuchCell = errors.New("no such cell")

// Click describes the outcome of a click on a cell.
type Click struct {
	Day int
	// AlreadyOpen is set when the cell was open before the click; nothing was done.
	AlreadyOpen bool
	// Opened is set when this click transitioned the cell to open.
	Opened bool
	// Drawn holds the snowflakes painted by this click, in order.
	Drawn []snowflake.Spec
	// DrawErr is set when the draw was skipped, e.g. snowflake.ErrNotMounted.
	DrawErr error
}

// Skipped reports whether the draw step was skipped.
func (c Click) Skipped() bool {
	return c.DrawErr != nil
}

type clickOptions struct {
	requireDraw bool
}

// ClickOption adjusts how HandleClick treats a skipped draw.
type ClickOption func(*clickOptions)

// RequireDraw keeps a cell closed when its draw was skipped, so that the click may be retried.
// Without it a click always opens the cell.
func RequireDraw() ClickOption {
	return func(opts *clickOptions) {
		opts.requireDraw = true
	}
}

// HandleClick opens cells[index]: it paints the cell's snowflakes onto its surface and then
// marks the cell open. A cell that is already open is left as is. Failing to acquire the
// surface is not an error; it is reported in Click.DrawErr.
func HandleClick(
	cells []Cell,
	index int,
	rng snowflake.Rand,
	opts ...ClickOption,
) (click Click, err error) {
	if index < 0 || index >= len(cells) {
		err = fmt.Errorf("click index %d: %w", index, ErrNoSuchCell)
		return
	}

	var options clickOptions
	for _, opt := range opts {
		opt(&options)
	}

	cell := &cells[index]
	click.Day = cell.Day
	if cell.IsOpen {
		click.AlreadyOpen = true
		return
	}

	click.Drawn, click.DrawErr = snowflake.DrawCell(cell.Surface, cell.Day, rng)
	if click.DrawErr == nil {
		cell.Version++
	} else if options.requireDraw {
		return
	}

	cell.IsOpen = true
	click.Opened = true
	return
}

// Grid guards a set of cells for callers that share them between goroutines.
type Grid struct {
	mu    sync.RWMutex
	cells []Cell
	opts  []ClickOption
}

// NewGrid returns a grid of freshly initialized cells.
func NewGrid(opts ...ClickOption) *Grid {
	return &Grid{
		cells: Initialize(),
		opts:  opts,
	}
}

// Mount binds surfaces to the grid's cells.
func (g *Grid) Mount(surfaceFor func(day int) snowflake.Canvas) {
	g.mu.Lock()
	defer g.mu.Unlock()
	Mount(g.cells, surfaceFor)
}

// Unmount releases the grid's surfaces.
func (g *Grid) Unmount() {
	g.mu.Lock()
	defer g.mu.Unlock()
	Unmount(g.cells)
}

// Click opens the cell for day.
func (g *Grid) Click(day int, rng snowflake.Rand) (Click, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return HandleClick(g.cells, Index(g.cells, day), rng, g.opts...)
}

// Cells returns a snapshot of the grid.
func (g *Grid) Cells() []Cell {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return Snapshot(g.cells)
}
