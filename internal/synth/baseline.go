package synth

import (
	"math"
	"time"
)

// Baseline returns the horizontal displacement scale at elapsed time:
// cos(seconds) * maxPixelBaseline. A zero maximum disables parallax.
func Baseline(elapsed time.Duration, maxPixelBaseline float64) float64 {
	return math.Cos(elapsed.Seconds()) * maxPixelBaseline
}
