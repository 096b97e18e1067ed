package snowflake

import (
	"errors"
	"fmt"
	"image/color"
)

// Surface geometry and palette for a calendar cell.
const (
	SurfaceWidth  = 125
	SurfaceHeight = 125
	LineWidth     = 2
)

var (
	SkyBlue = color.NRGBA{R: 0x87, G: 0xce, B: 0xeb, A: 0xff}
	White   = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// placement is a fixed snowflake position and base size.
type placement struct {
	x, y, size float64
}

// dayOneLayout is the fixed composition for day one: a centerpiece and four corner accents.
var dayOneLayout = []placement{
	{62.5, 62.5, 30},
	{31.25, 31.25, 15},
	{93.75, 93.75, 15},
	{31.25, 93.75, 15},
	{93.75, 31.25, 15},
}

const (
	mainJitter     = 10.0 // main center is +/- this many pixels from the middle
	mainBaseSize   = 25.0
	mainSizeJitter = 5.0
)

// extra is one rung of the independent probability ladder for additional snowflakes.
type extra struct {
	chance float64 // probability the extra is drawn
	margin float64 // inset from every edge of the surface
	scale  float64 // base size relative to the main snowflake
}

var extras = []extra{
	{chance: 0.50, margin: 25, scale: 0.60},
	{chance: 0.25, margin: 20, scale: 0.50},
	{chance: 0.10, margin: 15, scale: 0.45},
	{chance: 0.03, margin: 10, scale: 0.40},
}

// DrawCell paints the composite for one calendar day and returns the specs it drew, in order.
// A nil canvas yields ErrNotMounted; a canvas that cannot provide a context yields ErrNoContext.
// Neither case touches the random source.
func DrawCell(canvas Canvas, day int, rng Rand) ([]Spec, error) {
	if canvas == nil {
		return nil, ErrNotMounted
	}
	ctx, err := canvas.Context2D()
	if errors.Is(err, ErrNotMounted) {
		// A typed nil canvas lands here rather than in the nil check above.
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoContext, err)
	}
	if ctx == nil {
		return nil, ErrNoContext
	}

	prepare(ctx)

	specs := Plan(day, rng)
	for _, spec := range specs {
		Draw(ctx, spec)
	}
	return specs, nil
}

// Plan decides how many snowflakes a day gets and where, without drawing anything.
func Plan(day int, rng Rand) []Spec {
	if day == specialSeed {
		specs := make([]Spec, 0, len(dayOneLayout))
		for _, p := range dayOneLayout {
			specs = append(specs, NewSpec(p.x, p.y, p.size, specialSeed, rng))
		}
		return specs
	}

	cx, cy := SurfaceWidth/2.0, SurfaceHeight/2.0
	x := cx + (rng.Float64()*2*mainJitter - mainJitter)
	y := cy + (rng.Float64()*2*mainJitter - mainJitter)
	mainSize := mainBaseSize + (rng.Float64()*2*mainSizeJitter - mainSizeJitter)

	specs := []Spec{NewSpec(x, y, mainSize, day, rng)}
	for _, e := range extras {
		if rng.Float64() >= e.chance {
			continue
		}
		ex := e.margin + rng.Float64()*(SurfaceWidth-2*e.margin)
		ey := e.margin + rng.Float64()*(SurfaceHeight-2*e.margin)
		specs = append(specs, NewSpec(ex, ey, mainSize*e.scale, day, rng))
	}
	return specs
}

func prepare(ctx Context) {
	ctx.Reset(SurfaceWidth, SurfaceHeight)
	ctx.Clear()
	ctx.SetFillColor(SkyBlue)
	ctx.FillRect(0, 0, SurfaceWidth, SurfaceHeight)
	ctx.SetStrokeColor(White)
	ctx.SetLineWidth(LineWidth)
}
