// snowflake paints procedurally varied snowflakes onto a canvas-like 2D context.
// Randomness is always passed in, so every draw is reproducible given the same source.
package snowflake

import (
	"errors"
	"image/color"
)

// Rand is a uniform source of values in [0, 1). *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// Context is the subset of a 2D canvas api needed to paint snowflakes.
// Transforms are relative to the current frame, as with html canvas.
type Context interface {
	Save()
	Restore()
	Translate(x, y float64)
	Rotate(angle float64)

	BeginPath()
	MoveTo(x, y float64)
	LineTo(x, y float64)
	Stroke()

	// Reset resizes the surface to width x height and resets all state (transform, colors, path).
	Reset(width, height int)
	Clear()
	FillRect(x, y, w, h float64)
	SetFillColor(c color.Color)
	SetStrokeColor(c color.Color)
	SetLineWidth(w float64)
}

// Canvas is a drawing surface from which a Context may be acquired.
type Canvas interface {
	Context2D() (Context, error)
}

var (
	// ErrNotMounted is returned when there is no surface to draw on.
	ErrNotMounted = errors.New("drawing surface not mounted")
	// ErrNoContext is returned when the surface cannot provide a 2d context.
	ErrNoContext = errors.New("drawing surface has no 2d context")
)
