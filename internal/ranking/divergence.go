package ranking

import (
	"math"

	"github.com/onnwee/newsbias/internal/cluster"
)

// Axis positions of each side.
const (
	LeftPosition   = 0.0
	CenterPosition = 0.5
	RightPosition  = 1.0

	// Midpoint is the neutral point of the axis.
	Midpoint = 0.5

	// MaxDivergence is the largest score Divergence can return.
	MaxDivergence = 0.5
)

// Band is the placeholder colour band derived from a bias ratio.
type Band string

// Colour bands.
const (
	BandWarm    Band = "warm"    // right-dominant
	BandCool    Band = "cool"    // left-dominant
	BandNeutral Band = "neutral" // center-dominant
	BandDefault Band = "default"
)

// DominanceThreshold is the share a side needs before it colours a placeholder.
const DominanceThreshold = 0.4

// Divergence computes how far a bias ratio sits from neutral.
//
// Formula: |(0*left + 0.5*center + 1*right) - 0.5|
//
// Returns a value in [0, 0.5]. Ratios that drift above a sum of 1 are clamped
// so the range holds for every input.
func Divergence(r cluster.BiasRatio) float64 {
	position := r.Left*LeftPosition + r.Center*CenterPosition + r.Right*RightPosition
	score := math.Abs(position - Midpoint)
	if math.IsNaN(score) {
		return 0
	}
	if score > MaxDivergence {
		return MaxDivergence
	}
	return score
}

// BandFor selects the placeholder colour band for a bias ratio.
// Right dominance is checked first, then left, then center.
func BandFor(r cluster.BiasRatio) Band {
	switch {
	case r.Right > r.Left && r.Right > DominanceThreshold:
		return BandWarm
	case r.Left > r.Right && r.Left > DominanceThreshold:
		return BandCool
	case r.Center >= DominanceThreshold:
		return BandNeutral
	default:
		return BandDefault
	}
}
