// Package ranking provides the bias-divergence score used for "hot" ordering
// and for choosing placeholder colour bands.
//
// Basic Usage:
//
//	score := ranking.Divergence(c.BiasRatio) // 0 for a centrist split, 0.5 for one-sided
//	ranking.SortHot(clusters)                 // divergence desc, then newest first
//	band := ranking.BandFor(c.BiasRatio)      // warm, cool, neutral or default
//
// Position Weights:
//
// Each side is placed on a single left-to-right axis (left=0, center=0.5,
// right=1). The weighted position of a ratio is compared against the axis
// midpoint, so the score measures distance from neutral regardless of which
// side dominates.
//
// Band Thresholds:
//
// The colour-band thresholds are fixed constants and are not derived from the
// divergence score or from data.
package ranking
