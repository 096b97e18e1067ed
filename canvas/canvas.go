// canvas is a raster drawing surface backed by gg, exposing the 2d context snowflakes paint on.
package canvas

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"io"
	"sync"

	"advent/snowflake"

	"github.com/fogleman/gg"
)

// ErrDetached is returned by Context2D once the canvas has been unmounted.
var ErrDetached = errors.New("canvas detached")

// Canvas is a mutex-guarded gg context. Drawing happens through the context returned by
// Context2D; encoding may happen concurrently from other goroutines.
type Canvas struct {
	mu       sync.Mutex
	dc       *gg.Context
	fill     color.Color
	stroke   color.Color
	detached bool
}

// New returns a transparent canvas of the given size.
func New(width, height int) *Canvas {
	return &Canvas{
		dc:     gg.NewContext(width, height),
		fill:   color.Black,
		stroke: color.Black,
	}
}

// Context2D returns the canvas' drawing context.
func (c *Canvas) Context2D() (snowflake.Context, error) {
	if c == nil {
		return nil, snowflake.ErrNotMounted
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detached {
		return nil, ErrDetached
	}
	return &context2D{c}, nil
}

// Detach unmounts the canvas; further Context2D calls fail.
func (c *Canvas) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detached = true
}

// Size returns the canvas dimensions in pixels.
func (c *Canvas) Size() (width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dc.Width(), c.dc.Height()
}

// Image returns a copy of the current pixels.
func (c *Canvas) Image() image.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	src := c.dc.Image()
	dst := image.NewRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	return dst
}

// EncodePNG writes the current pixels as a PNG.
func (c *Canvas) EncodePNG(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dc.EncodePNG(w)
}

// do runs fn against the gg context under the canvas lock. Calls made through a
// context acquired before Detach are dropped.
func (c *Canvas) do(fn func(dc *gg.Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detached {
		return
	}
	fn(c.dc)
}

// context2D adapts canvas-style calls to gg. gg keeps one current color for fills and
// strokes, so the two are kept on the canvas and applied as patterns.
type context2D struct {
	c *Canvas
}

func (ctx *context2D) Save()    { ctx.c.do(func(dc *gg.Context) { dc.Push() }) }
func (ctx *context2D) Restore() { ctx.c.do(func(dc *gg.Context) { dc.Pop() }) }

func (ctx *context2D) Translate(x, y float64) {
	ctx.c.do(func(dc *gg.Context) { dc.Translate(x, y) })
}

func (ctx *context2D) Rotate(angle float64) {
	ctx.c.do(func(dc *gg.Context) { dc.Rotate(angle) })
}

func (ctx *context2D) BeginPath() { ctx.c.do(func(dc *gg.Context) { dc.ClearPath() }) }

func (ctx *context2D) MoveTo(x, y float64) {
	ctx.c.do(func(dc *gg.Context) { dc.MoveTo(x, y) })
}

func (ctx *context2D) LineTo(x, y float64) {
	ctx.c.do(func(dc *gg.Context) { dc.LineTo(x, y) })
}

func (ctx *context2D) Stroke() { ctx.c.do(func(dc *gg.Context) { dc.Stroke() }) }

func (ctx *context2D) Reset(width, height int) {
	c := ctx.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detached {
		return
	}
	c.dc = gg.NewContext(width, height)
	c.fill, c.stroke = color.Black, color.Black
}

// Clear makes every pixel transparent, like clearRect over the whole surface.
func (ctx *context2D) Clear() {
	c := ctx.c
	c.do(func(dc *gg.Context) {
		dc.SetColor(color.Transparent)
		dc.Clear()
		dc.SetFillStyle(gg.NewSolidPattern(c.fill))
		dc.SetStrokeStyle(gg.NewSolidPattern(c.stroke))
	})
}

func (ctx *context2D) FillRect(x, y, w, h float64) {
	ctx.c.do(func(dc *gg.Context) {
		dc.DrawRectangle(x, y, w, h)
		dc.Fill()
	})
}

func (ctx *context2D) SetFillColor(col color.Color) {
	c := ctx.c
	c.do(func(dc *gg.Context) {
		c.fill = col
		dc.SetFillStyle(gg.NewSolidPattern(col))
	})
}

func (ctx *context2D) SetStrokeColor(col color.Color) {
	c := ctx.c
	c.do(func(dc *gg.Context) {
		c.stroke = col
		dc.SetStrokeStyle(gg.NewSolidPattern(col))
	})
}

func (ctx *context2D) SetLineWidth(w float64) {
	ctx.c.do(func(dc *gg.Context) { dc.SetLineWidth(w) })
}
