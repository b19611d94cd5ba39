// Package pixel holds the normalized colour sample shared by the packed
// source, the depth decoder and the output surfaces.
package pixel

import (
	"image/color"
	"strings"

	"dibr-renderer/internal/mathutil"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// Sample is one colour sample with channels nominally in [0,1].
type Sample struct {
	R, G, B float64
}

// Named samples.
var (
	Black  = Sample{0, 0, 0}
	White  = Sample{1, 1, 1}
	Gray   = Sample{0.5, 0.5, 0.5}
	Red    = Sample{1, 0, 0}
	Green  = Sample{0, 1, 0}
	Blue   = Sample{0, 0, 1}
	Yellow = Sample{1, 0.92, 0.016}
)

// Vec returns the sample as (r, g, b).
func (s Sample) Vec() mathutil.Vec3 {
	return mathutil.Vec3{s.R, s.G, s.B}
}

// NRGBA quantizes the sample to 8 bits per channel, fully opaque.
func (s Sample) NRGBA() color.NRGBA {
	return color.NRGBA{R: to8(s.R), G: to8(s.G), B: to8(s.B), A: 255}
}

// FromNRGBA converts an 8-bit colour. Alpha is ignored.
func FromNRGBA(c color.NRGBA) Sample {
	return Sample{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
}

// Parse reads "#rrggbb", "#rgb" or one of the named samples.
func Parse(s string) (Sample, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gray", "grey":
		return Gray, nil
	case "black":
		return Black, nil
	case "white":
		return White, nil
	case "red":
		return Red, nil
	case "green":
		return Green, nil
	case "blue":
		return Blue, nil
	case "yellow":
		return Yellow, nil
	}
	c, err := colorful.Hex(strings.TrimSpace(s))
	if err != nil {
		return Sample{}, errors.Wrapf(err, "pixel: parse colour %q", s)
	}
	return Sample{R: c.R, G: c.G, B: c.B}, nil
}

// Hex formats the sample as "#rrggbb".
func (s Sample) Hex() string {
	return colorful.Color{R: mathutil.Clamp01(s.R), G: mathutil.Clamp01(s.G), B: mathutil.Clamp01(s.B)}.Hex()
}

func to8(v float64) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
