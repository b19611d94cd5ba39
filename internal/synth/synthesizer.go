// Package synth implements depth-image-based view synthesis: every albedo
// pixel of a packed RGB-D image is displaced horizontally by its decoded
// depth times a baseline, and collisions are settled by a depth test.
package synth

import (
	"fmt"
	"math"
	"strings"

	"dibr-renderer/internal/depth"
	"dibr-renderer/internal/mathutil"
	"dibr-renderer/internal/packed"
	"dibr-renderer/internal/pixel"
	"dibr-renderer/internal/surface"

	"github.com/pkg/errors"
)

// Sign selects the displacement direction applied to depth*baseline.
type Sign int

const (
	// SignAway moves pixels to i - depth*baseline.
	SignAway Sign = iota
	// SignToward moves pixels to i + depth*baseline.
	SignToward
)

func (s Sign) String() string {
	switch s {
	case SignAway:
		return "away"
	case SignToward:
		return "toward"
	}
	return "unknown"
}

// ParseSign accepts "away"/"-" and "toward"/"+".
func ParseSign(s string) (Sign, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "away", "-", "minus", "":
		return SignAway, nil
	case "toward", "+", "plus":
		return SignToward, nil
	}
	return 0, errors.Errorf("synth: unknown sign %q", s)
}

func (s Sign) factor() float64 {
	if s == SignToward {
		return 1
	}
	return -1
}

// Config holds the variant points of the algorithm.
type Config struct {
	Decoder    depth.Decoder
	Sign       Sign
	Sentinel   float64      // initial depth buffer value
	Background pixel.Sample // colour of output pixels nothing maps to
}

// DefaultConfig is the weighted-dot decoder moving pixels away by
// depth*baseline, with a sentinel one unit below the decoder range and a
// mid-gray background.
func DefaultConfig() Config {
	dec := depth.NewDotDecoder(mathutil.Vec3{})
	return Config{
		Decoder:    dec,
		Sign:       SignAway,
		Sentinel:   dec.DefaultSentinel(),
		Background: pixel.Gray,
	}
}

// Validate checks that the sentinel lies strictly below every depth the
// decoder can produce for in-range samples.
func (c Config) Validate() error {
	if c.Sign != SignAway && c.Sign != SignToward {
		return errors.Errorf("synth: invalid sign %d", c.Sign)
	}
	if c.Decoder.Policy != depth.PolicyWeightedDot && c.Decoder.Policy != depth.PolicyFixedLinear {
		return errors.Errorf("synth: invalid decoder policy %d", c.Decoder.Policy)
	}
	lo, _ := c.Decoder.Range()
	if !(c.Sentinel < lo) {
		return errors.Wrapf(ErrSentinel, "sentinel %g, lowest depth %g", c.Sentinel, lo)
	}
	return nil
}

// Synthesizer runs synthesis passes. The depth buffer and the scratch
// frame are reused across calls. A Synthesizer must not be used by more
// than one goroutine at a time.
type Synthesizer struct {
	cfg   Config
	alloc surface.Allocator

	depth DepthBuffer
	frame []pixel.Sample
}

// New validates cfg and returns a Synthesizer. alloc creates the
// destination on the first pass that is given none; nil selects
// surface.Allocate.
func New(cfg Config, alloc surface.Allocator) (*Synthesizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if alloc == nil {
		alloc = surface.Allocate
	}
	return &Synthesizer{cfg: cfg, alloc: alloc}, nil
}

// Config returns the configuration the synthesizer was built with.
func (s *Synthesizer) Config() Config {
	return s.cfg
}

// Synthesize renders the view of src displaced by baseline into dst and
// commits it. A nil dst is allocated and returned; callers keep the
// returned surface and pass it back on the next call.
//
// The pass is built in a scratch frame and copied to dst only once it is
// complete, so on error dst is left exactly as it was.
func (s *Synthesizer) Synthesize(src packed.Source, baseline float64, dst surface.Surface) (surface.Surface, error) {
	b := src.Bounds()
	srcW, h := b.Dx(), b.Dy()
	if srcW%2 != 0 {
		return dst, &DimensionError{Width: srcW, Height: h, Reason: "packed width is odd"}
	}
	w := srcW / 2
	if w <= 0 || h <= 0 {
		return dst, &DimensionError{Width: srcW, Height: h, Reason: "empty albedo region"}
	}
	if dst != nil {
		db := dst.Bounds()
		if db.Dx() != w || db.Dy() != h {
			return dst, &DimensionError{
				Width:  db.Dx(),
				Height: db.Dy(),
				Reason: fmt.Sprintf("destination must be %dx%d", w, h),
			}
		}
	}

	s.depth.Reset(w, h, s.cfg.Sentinel)
	s.clearFrame(w * h)

	dec := s.cfg.Decoder
	sign := s.cfg.Sign.factor()
	for i := 0; i < w; i++ {
		for j := 0; j < h; j++ {
			d := dec.Decode(src.Sample(w+i, j))
			x := targetColumn(i, sign*d*baseline, w)
			if s.depth.TestAndSet(x, j, d) {
				s.frame[j*w+x] = src.Sample(i, j)
			}
		}
	}

	if dst == nil {
		if dst = s.alloc(w, h); dst == nil {
			return nil, errors.New("synth: allocator returned nil surface")
		}
	}
	for j := 0; j < h; j++ {
		row := s.frame[j*w : (j+1)*w]
		for x, c := range row {
			dst.Set(x, j, c)
		}
	}
	if err := dst.Commit(); err != nil {
		return dst, errors.Wrap(err, "synth: commit")
	}
	return dst, nil
}

// Depth returns the depth recorded at (x, y) by the last pass; the
// sentinel means no source pixel landed there.
func (s *Synthesizer) Depth(x, y int) float64 {
	return s.depth.At(x, y)
}

func (s *Synthesizer) clearFrame(n int) {
	if cap(s.frame) < n {
		s.frame = make([]pixel.Sample, n)
	}
	s.frame = s.frame[:n]
	for i := range s.frame {
		s.frame[i] = s.cfg.Background
	}
}

// targetColumn clamps i+offset into [0, w) and rounds half to even. A NaN
// offset (zero depth times infinite baseline) leaves the pixel in place.
func targetColumn(i int, offset float64, w int) int {
	x := float64(i) + offset
	if math.IsNaN(x) {
		return i
	}
	return int(math.RoundToEven(mathutil.Clamp(x, 0, float64(w-1))))
}
