// Package color maps colour bands to placeholder palettes and picks a text
// colour with enough contrast against each background (WCAG AA, 4.5:1).
package color
