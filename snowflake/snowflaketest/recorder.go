// snowflaketest provides drawing doubles for tests of code that paints snowflakes.
package snowflaketest

import (
	"fmt"
	"image/color"

	"advent/snowflake"
)

// Op is a single recorded context call, e.g. {Name: "LineTo", Args: [10 0]}.
type Op struct {
	Name string
	Args []float64
}

func (op Op) String() string {
	return fmt.Sprintf("%s%v", op.Name, op.Args)
}

// Recorder is a snowflake.Context that records calls instead of painting. It tracks the
// transform depth so callers can check that saves and restores are balanced.
type Recorder struct {
	Ops   []Op
	Depth int
}

// Count returns the number of recorded ops with the given name.
func (rec *Recorder) Count(name string) (n int) {
	for _, op := range rec.Ops {
		if op.Name == name {
			n++
		}
	}
	return
}

func (rec *Recorder) record(name string, args ...float64) {
	rec.Ops = append(rec.Ops, Op{Name: name, Args: args})
}

func (rec *Recorder) Save() {
	rec.Depth++
	rec.record("Save")
}

func (rec *Recorder) Restore() {
	rec.Depth--
	rec.record("Restore")
}

func (rec *Recorder) Translate(x, y float64)      { rec.record("Translate", x, y) }
func (rec *Recorder) Rotate(angle float64)        { rec.record("Rotate", angle) }
func (rec *Recorder) BeginPath()                  { rec.record("BeginPath") }
func (rec *Recorder) MoveTo(x, y float64)         { rec.record("MoveTo", x, y) }
func (rec *Recorder) LineTo(x, y float64)         { rec.record("LineTo", x, y) }
func (rec *Recorder) Stroke()                     { rec.record("Stroke") }
func (rec *Recorder) Clear()                      { rec.record("Clear") }
func (rec *Recorder) FillRect(x, y, w, h float64) { rec.record("FillRect", x, y, w, h) }
func (rec *Recorder) SetLineWidth(w float64)      { rec.record("SetLineWidth", w) }

func (rec *Recorder) Reset(width, height int) {
	rec.record("Reset", float64(width), float64(height))
}

func (rec *Recorder) SetFillColor(c color.Color) {
	rec.record("SetFillColor", rgba(c)...)
}

func (rec *Recorder) SetStrokeColor(c color.Color) {
	rec.record("SetStrokeColor", rgba(c)...)
}

func rgba(c color.Color) []float64 {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return []float64{float64(n.R), float64(n.G), float64(n.B), float64(n.A)}
}

// RecordingCanvas hands out a shared Recorder, or Err when set.
type RecordingCanvas struct {
	Recorder Recorder
	Err      error
}

func (rc *RecordingCanvas) Context2D() (snowflake.Context, error) {
	if rc.Err != nil {
		return nil, rc.Err
	}
	return &rc.Recorder, nil
}

var (
	_ snowflake.Context = (*Recorder)(nil)
	_ snowflake.Canvas  = (*RecordingCanvas)(nil)
)
