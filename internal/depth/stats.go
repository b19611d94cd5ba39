package depth

import (
	"dibr-renderer/internal/packed"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

// Stats summarizes the decoded depth region of a packed image.
type Stats struct {
	Pixels     int
	Min, Max   float64
	Mean       float64
	Median     float64
	P5, P95    float64
	StdDev     float64
	Violations int // depths at or below the sentinel
}

// Analyze decodes every depth sample of src and summarizes the result.
// Violations counts samples that would lose every depth test against an
// empty buffer cell initialised to sentinel.
func Analyze(src packed.Source, dec Decoder, sentinel float64) (Stats, error) {
	b := src.Bounds()
	w, h := b.Dx()/2, b.Dy()
	if w <= 0 || h <= 0 {
		return Stats{}, errors.Errorf("depth: no depth region in %dx%d image", b.Dx(), b.Dy())
	}

	data := make(stats.Float64Data, 0, w*h)
	var st Stats
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := dec.Decode(src.Sample(w+x, y))
			if !(d > sentinel) {
				st.Violations++
			}
			data = append(data, d)
		}
	}
	st.Pixels = len(data)

	var err error
	if st.Min, err = data.Min(); err != nil {
		return Stats{}, errors.Wrap(err, "depth: min")
	}
	if st.Max, err = data.Max(); err != nil {
		return Stats{}, errors.Wrap(err, "depth: max")
	}
	if st.Mean, err = data.Mean(); err != nil {
		return Stats{}, errors.Wrap(err, "depth: mean")
	}
	if st.Median, err = data.Median(); err != nil {
		return Stats{}, errors.Wrap(err, "depth: median")
	}
	if st.P5, err = stats.PercentileNearestRank(data, 5); err != nil {
		return Stats{}, errors.Wrap(err, "depth: p5")
	}
	if st.P95, err = stats.PercentileNearestRank(data, 95); err != nil {
		return Stats{}, errors.Wrap(err, "depth: p95")
	}
	if st.StdDev, err = data.StandardDeviation(); err != nil {
		return Stats{}, errors.Wrap(err, "depth: stddev")
	}
	return st, nil
}
