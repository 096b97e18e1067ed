package snowflake

import "math"

const (
	// Day one is the special variant: a fixed number of arms.
	specialSeed = 1
	specialArms = 8

	minArms   = 6
	armsRange = 4 // arms fall in [minArms, minArms+armsRange)

	secondaryOffset = 0.2
	secondaryScale  = 0.6
	secondaryChance = 0.5
)

// Spec holds the parameters of a single snowflake. Specs are ephemeral: they are
// recomputed on every draw and never stored by the grid.
type Spec struct {
	X, Y float64 // center, in surface coordinates
	// BaseSize is the requested arm length before jitter; Size is the effective arm length.
	BaseSize float64
	Size     float64
	Arms     int
	// BranchPos is the fraction along each arm where the main branch pair sits.
	BranchPos float64
	// BranchSize is the length of each branch line.
	BranchSize float64
	// Secondary has one entry per arm: whether that arm carries a smaller second branch pair.
	Secondary []bool
	Seed      int
}

// NewSpec draws the jittered parameters of a snowflake centered at (x, y).
// The random source is consumed in a fixed order: arms (unless seed is the special
// variant), size, branch position, branch size, then one check per arm.
func NewSpec(x, y, baseSize float64, seed int, rng Rand) Spec {
	arms := specialArms
	if seed != specialSeed {
		arms = minArms + int(rng.Float64()*armsRange)
		// Guard against sources that return exactly 1.
		if arms >= minArms+armsRange {
			arms = minArms + armsRange - 1
		}
	}

	size := baseSize * (0.8 + rng.Float64()*0.4)
	branchPos := 0.3 + rng.Float64()*0.3
	branchSize := size * (0.15 + rng.Float64()*0.15)

	secondary := make([]bool, arms)
	for i := range secondary {
		secondary[i] = rng.Float64() < secondaryChance
	}

	return Spec{
		X:          x,
		Y:          y,
		BaseSize:   baseSize,
		Size:       size,
		Arms:       arms,
		BranchPos:  branchPos,
		BranchSize: branchSize,
		Secondary:  secondary,
		Seed:       seed,
	}
}

// Draw paints the snowflake described by spec. It is a pure function of its inputs:
// the arm motif is drawn once per arm, rotating the frame between arms.
func Draw(ctx Context, spec Spec) {
	if spec.Arms <= 0 {
		return
	}

	ctx.Save()
	defer ctx.Restore()

	ctx.Translate(spec.X, spec.Y)
	step := 2 * math.Pi / float64(spec.Arms)
	for arm := 0; arm < spec.Arms; arm++ {
		ctx.BeginPath()
		ctx.MoveTo(0, 0)
		ctx.LineTo(spec.Size, 0)
		ctx.Stroke()

		drawBranches(ctx, spec.Size*spec.BranchPos, spec.BranchSize)
		if arm < len(spec.Secondary) && spec.Secondary[arm] {
			drawBranches(
				ctx,
				spec.Size*(spec.BranchPos+secondaryOffset),
				spec.BranchSize*secondaryScale)
		}

		ctx.Rotate(step)
	}
}

// drawBranches draws a pair of diagonal lines leaving the arm at pos, one on each side.
func drawBranches(ctx Context, pos, length float64) {
	d := length * math.Sqrt2 / 2

	ctx.BeginPath()
	ctx.MoveTo(pos, 0)
	ctx.LineTo(pos+d, -d)
	ctx.Stroke()

	ctx.BeginPath()
	ctx.MoveTo(pos, 0)
	ctx.LineTo(pos+d, d)
	ctx.Stroke()
}
