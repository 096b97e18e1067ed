package snowflake_test

import (
	"errors"
	"math/rand"
	"testing"

	"advent/snowflake"
	"advent/snowflake/snowflaketest"

	. "github.com/smartystreets/goconvey/convey"
)

// constRand always returns the same value.
type constRand float64

func (c constRand) Float64() float64 { return float64(c) }

// countingRand wraps a source and counts how many values were consumed.
type countingRand struct {
	src   snowflake.Rand
	calls int
}

func (cr *countingRand) Float64() float64 {
	cr.calls++
	return cr.src.Float64()
}

func TestNewSpec(t *testing.T) {
	Convey("When computing a snowflake spec", t, func() {
		Convey("Day one always has eight arms and never draws for the arm count", func() {
			rng := &countingRand{src: constRand(0.99)}
			spec := snowflake.NewSpec(10, 20, 30, 1, rng)
			So(spec.Arms, ShouldEqual, 8)
			So(len(spec.Secondary), ShouldEqual, 8)
			// size, branch pos, branch size, one check per arm
			So(rng.calls, ShouldEqual, 3+8)
		})

		Convey("Other days have between six and nine arms", func() {
			So(snowflake.NewSpec(0, 0, 25, 2, constRand(0)).Arms, ShouldEqual, 6)
			So(snowflake.NewSpec(0, 0, 25, 2, constRand(0.999)).Arms, ShouldEqual, 9)
			So(snowflake.NewSpec(0, 0, 25, 2, constRand(1)).Arms, ShouldEqual, 9)

			src := rand.New(rand.NewSource(7))
			for i := 0; i < 500; i++ {
				arms := snowflake.NewSpec(0, 0, 25, 2+i%23, src).Arms
				So(arms, ShouldBeBetweenOrEqual, 6, 9)
			}
		})

		Convey("Size, branch position and branch size stay in their jitter bands", func() {
			src := rand.New(rand.NewSource(11))
			for i := 0; i < 500; i++ {
				spec := snowflake.NewSpec(0, 0, 25, 3, src)
				So(spec.Size, ShouldBeBetweenOrEqual, 25*0.8, 25*1.2)
				So(spec.BranchPos, ShouldBeBetweenOrEqual, 0.3, 0.6)
				So(spec.BranchSize, ShouldBeBetweenOrEqual, spec.Size*0.15, spec.Size*0.3)
			}
		})

		Convey("Secondary branches follow the per-arm coin flip", func() {
			low := snowflake.NewSpec(0, 0, 25, 4, constRand(0.1))
			for _, s := range low.Secondary {
				So(s, ShouldBeTrue)
			}
			high := snowflake.NewSpec(0, 0, 25, 4, constRand(0.9))
			for _, s := range high.Secondary {
				So(s, ShouldBeFalse)
			}
		})
	})
}

func TestDraw(t *testing.T) {
	Convey("When drawing a single snowflake", t, func() {
		rec := &snowflaketest.Recorder{}

		Convey("The transform is scoped and each arm is rotated into place", func() {
			spec := snowflake.NewSpec(40, 50, 20, 5, constRand(0.9))
			snowflake.Draw(rec, spec)

			So(rec.Depth, ShouldEqual, 0)
			So(rec.Ops[0].Name, ShouldEqual, "Save")
			So(rec.Ops[1], ShouldResemble, snowflaketest.Op{Name: "Translate", Args: []float64{40, 50}})
			So(rec.Ops[len(rec.Ops)-1].Name, ShouldEqual, "Restore")
			So(rec.Count("Rotate"), ShouldEqual, spec.Arms)
			// one arm line and two branch lines per arm, no secondaries at 0.9
			So(rec.Count("Stroke"), ShouldEqual, 3*spec.Arms)
		})

		Convey("Secondary branches add a pair of lines per flagged arm", func() {
			spec := snowflake.NewSpec(0, 0, 20, 5, constRand(0.1))
			snowflake.Draw(rec, spec)
			So(rec.Count("Stroke"), ShouldEqual, 5*spec.Arms)
		})

		Convey("Each arm starts at the center and reaches the effective size", func() {
			spec := snowflake.NewSpec(0, 0, 20, 1, constRand(0.5))
			snowflake.Draw(rec, spec)
			So(rec.Ops, ShouldContain, snowflaketest.Op{Name: "LineTo", Args: []float64{spec.Size, 0}})
		})

		Convey("A spec without arms draws nothing", func() {
			snowflake.Draw(rec, snowflake.Spec{})
			So(rec.Ops, ShouldBeEmpty)
		})
	})
}

func TestDrawCell(t *testing.T) {
	Convey("When drawing a calendar cell", t, func() {
		canvas := &snowflaketest.RecordingCanvas{}

		Convey("Day one draws the fixed five snowflake layout with eight arms each", func() {
			specs, err := snowflake.DrawCell(canvas, 1, rand.New(rand.NewSource(1)))
			So(err, ShouldBeNil)
			So(len(specs), ShouldEqual, 5)

			want := [][2]float64{
				{62.5, 62.5},
				{31.25, 31.25},
				{93.75, 93.75},
				{31.25, 93.75},
				{93.75, 31.25},
			}
			sizes := []float64{30, 15, 15, 15, 15}
			for i, spec := range specs {
				So(spec.Arms, ShouldEqual, 8)
				So(spec.X, ShouldEqual, want[i][0])
				So(spec.Y, ShouldEqual, want[i][1])
				So(spec.BaseSize, ShouldEqual, sizes[i])
			}

			var translations []snowflaketest.Op
			for _, op := range canvas.Recorder.Ops {
				if op.Name == "Translate" {
					translations = append(translations, op)
				}
			}
			So(len(translations), ShouldEqual, 5)
			for i, op := range translations {
				So(op.Args, ShouldResemble, []float64{want[i][0], want[i][1]})
			}
		})

		Convey("The surface is reset, cleared and painted sky blue before any snowflake", func() {
			_, err := snowflake.DrawCell(canvas, 9, constRand(0.5))
			So(err, ShouldBeNil)

			ops := canvas.Recorder.Ops
			So(ops[0], ShouldResemble, snowflaketest.Op{Name: "Reset", Args: []float64{125, 125}})
			So(ops[1].Name, ShouldEqual, "Clear")
			So(ops[2], ShouldResemble, snowflaketest.Op{Name: "SetFillColor", Args: []float64{0x87, 0xce, 0xeb, 0xff}})
			So(ops[3], ShouldResemble, snowflaketest.Op{Name: "FillRect", Args: []float64{0, 0, 125, 125}})
			So(ops[4], ShouldResemble, snowflaketest.Op{Name: "SetStrokeColor", Args: []float64{255, 255, 255, 255}})
			So(ops[5], ShouldResemble, snowflaketest.Op{Name: "SetLineWidth", Args: []float64{2}})
			So(canvas.Recorder.Depth, ShouldEqual, 0)
		})

		Convey("Other days draw between one and five snowflakes", func() {
			src := rand.New(rand.NewSource(42))
			for i := 0; i < 1000; i++ {
				day := 2 + i%23
				specs, err := snowflake.DrawCell(&snowflaketest.RecordingCanvas{}, day, src)
				So(err, ShouldBeNil)
				So(len(specs), ShouldBeBetweenOrEqual, 1, 5)
				So(specs[0].BaseSize, ShouldBeBetweenOrEqual, 20.0, 30.0)
				So(specs[0].X, ShouldBeBetweenOrEqual, 52.5, 72.5)
				So(specs[0].Y, ShouldBeBetweenOrEqual, 52.5, 72.5)
				for _, spec := range specs {
					So(spec.Arms, ShouldBeBetweenOrEqual, 6, 9)
					So(spec.Seed, ShouldEqual, day)
				}
			}
		})

		Convey("Extra snowflakes are independent trials, not an exclusive ladder", func() {
			// 0.2 passes the 50% and 25% checks but not the 10% and 3% ones.
			specs, err := snowflake.DrawCell(canvas, 5, constRand(0.2))
			So(err, ShouldBeNil)
			So(len(specs), ShouldEqual, 3)

			specs, err = snowflake.DrawCell(&snowflaketest.RecordingCanvas{}, 5, constRand(0.07))
			So(err, ShouldBeNil)
			So(len(specs), ShouldEqual, 4)

			specs, err = snowflake.DrawCell(&snowflaketest.RecordingCanvas{}, 5, constRand(0))
			So(err, ShouldBeNil)
			So(len(specs), ShouldEqual, 5)
			So(specs[0].BaseSize, ShouldEqual, 20.0)
			So(specs[1].BaseSize, ShouldAlmostEqual, 12.0)

			specs, err = snowflake.DrawCell(&snowflaketest.RecordingCanvas{}, 5, constRand(0.99))
			So(err, ShouldBeNil)
			So(len(specs), ShouldEqual, 1)
		})

		Convey("Extras stay inside their margins", func() {
			specs := snowflake.Plan(6, constRand(0))
			So(specs[1].X, ShouldEqual, 25.0)
			So(specs[4].Y, ShouldEqual, 10.0)

			src := rand.New(rand.NewSource(3))
			for i := 0; i < 300; i++ {
				for _, spec := range snowflake.Plan(12, src)[1:] {
					So(spec.X, ShouldBeBetweenOrEqual, 10.0, 115.0)
					So(spec.Y, ShouldBeBetweenOrEqual, 10.0, 115.0)
				}
			}
		})

		Convey("A missing surface is reported and consumes no randomness", func() {
			rng := &countingRand{src: constRand(0.5)}
			specs, err := snowflake.DrawCell(nil, 3, rng)
			So(errors.Is(err, snowflake.ErrNotMounted), ShouldBeTrue)
			So(specs, ShouldBeNil)
			So(rng.calls, ShouldEqual, 0)
		})

		Convey("A surface without a 2d context is reported", func() {
			cause := errors.New("unsupported")
			canvas.Err = cause
			specs, err := snowflake.DrawCell(canvas, 3, constRand(0.5))
			So(errors.Is(err, snowflake.ErrNoContext), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(specs, ShouldBeNil)
			So(canvas.Recorder.Ops, ShouldBeEmpty)
		})

		Convey("A surface reporting itself unmounted stays unmounted", func() {
			canvas.Err = snowflake.ErrNotMounted
			rng := &countingRand{src: constRand(0.5)}
			_, err := snowflake.DrawCell(canvas, 3, rng)
			So(errors.Is(err, snowflake.ErrNotMounted), ShouldBeTrue)
			So(errors.Is(err, snowflake.ErrNoContext), ShouldBeFalse)
			So(rng.calls, ShouldEqual, 0)
		})
	})
}
