package color

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/onnwee/newsbias/internal/ranking"
)

// hexPattern matches RRGGBB with an optional leading '#'.
var hexPattern = regexp.MustCompile(`^#?[0-9A-Fa-f]{6}$`)

// ErrInvalidHex is returned for colours not in RRGGBB form.
var ErrInvalidHex = errors.New("invalid hex color, expected RRGGBB")

// MinContrast is the WCAG AA ratio required for normal text.
const MinContrast = 4.5

// Text colours tried in order for placeholder labels.
const (
	White = "ffffff"
	Black = "000000"
)

// Background colours per band, without the leading '#'.
var palette = map[ranking.Band]string{
	ranking.BandCool:    "007bff",
	ranking.BandWarm:    "dc3545",
	ranking.BandNeutral: "28a745",
	ranking.BandDefault: "6c757d",
}

// Swatch is a background/text colour pair.
type Swatch struct {
	Background string
	Text       string
}

// Background returns the background colour for band.
// Unknown bands use the default colour.
func Background(band ranking.Band) string {
	if bg, ok := palette[band]; ok {
		return bg
	}
	return palette[ranking.BandDefault]
}

// ForBand returns the swatch used for placeholders of band.
func ForBand(band ranking.Band) Swatch {
	bg := Background(band)
	return Swatch{Background: bg, Text: TextFor(bg)}
}

// TextFor picks white text when it meets MinContrast against bg and black
// otherwise.
func TextFor(bg string) string {
	ratio, err := Contrast(White, bg)
	if err == nil && ratio >= MinContrast {
		return White
	}
	return Black
}

// RGB is a colour with 0-255 channels.
type RGB struct {
	R, G, B uint8
}

// ParseHex parses "RRGGBB" or "#RRGGBB".
func ParseHex(s string) (RGB, error) {
	if !hexPattern.MatchString(s) {
		return RGB{}, fmt.Errorf("%w: got %q", ErrInvalidHex, s)
	}
	s = strings.TrimPrefix(s, "#")

	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("parse %q: %w", s, err)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// channel converts an sRGB channel to linear light.
func channel(c uint8) float64 {
	v := float64(c) / 255.0
	if v <= 0.03928 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

// Luminance is the WCAG 2.1 relative luminance of c.
func Luminance(c RGB) float64 {
	return 0.2126*channel(c.R) + 0.7152*channel(c.G) + 0.0722*channel(c.B)
}

// Contrast returns the contrast ratio between two hex colours, 1 to 21.
func Contrast(a, b string) (float64, error) {
	ca, err := ParseHex(a)
	if err != nil {
		return 0, err
	}
	cb, err := ParseHex(b)
	if err != nil {
		return 0, err
	}

	l1, l2 := Luminance(ca), Luminance(cb)
	if l1 < l2 {
		l1, l2 = l2, l1
	}
	return (l1 + 0.05) / (l2 + 0.05), nil
}
