// Package depth decodes scalar depth from the colour-encoded half of a
// packed RGB-D image.
//
// The encoding packs depth into non-overlapping channel bands: red carries
// the far background, green the neutral midpoint and blue the near
// foreground. A fixed weighted sum of the three channels recovers depth.
// Larger values are nearer to the viewer.
package depth

import (
	"strings"

	"dibr-renderer/internal/mathutil"
	"dibr-renderer/internal/pixel"

	"github.com/pkg/errors"
)

// Policy selects how the weighted channel sum becomes a depth value.
type Policy int

const (
	// PolicyWeightedDot treats dot(weights, sample) as a [0,1] depth and
	// remaps it to [-1,+1] around the neutral plane.
	PolicyWeightedDot Policy = iota
	// PolicyFixedLinear uses the weighted sum directly; its weights are
	// already centered near zero.
	PolicyFixedLinear
)

var policyNames = map[Policy]string{
	PolicyWeightedDot: "weighted-dot",
	PolicyFixedLinear: "fixed-linear",
}

func (p Policy) String() string {
	if s, ok := policyNames[p]; ok {
		return s
	}
	return "unknown"
}

// ParsePolicy accepts the names printed by Policy.String plus the short
// forms "dot" and "linear".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weighted-dot", "dot", "":
		return PolicyWeightedDot, nil
	case "fixed-linear", "linear":
		return PolicyFixedLinear, nil
	}
	return 0, errors.Errorf("depth: unknown policy %q", s)
}

var (
	// DotWeights map pure red to 0, pure green to 0.5 and pure blue to 1
	// before the [-1,+1] remap.
	DotWeights = mathutil.Vec3{0, 0.5, 1}
	// LinearWeights are the fixed band coefficients of the linear encoding.
	LinearWeights = mathutil.Vec3{-0.33, 0.165, 0.33}
)

// Decoder converts one depth-region sample to a depth value.
type Decoder struct {
	Policy  Policy
	Weights mathutil.Vec3
}

// NewDotDecoder returns a weighted-dot decoder. Zero weights select DotWeights.
func NewDotDecoder(weights mathutil.Vec3) Decoder {
	if weights == (mathutil.Vec3{}) {
		weights = DotWeights
	}
	return Decoder{Policy: PolicyWeightedDot, Weights: weights}
}

// NewLinearDecoder returns a fixed-linear decoder using LinearWeights.
func NewLinearDecoder() Decoder {
	return Decoder{Policy: PolicyFixedLinear, Weights: LinearWeights}
}

// Decode returns the depth encoded by s.
func (d Decoder) Decode(s pixel.Sample) float64 {
	raw := d.Weights.Dot(s.Vec())
	if d.Policy == PolicyWeightedDot {
		return (raw - 0.5) * 2
	}
	return raw
}

// Range returns the smallest and largest depth Decode can produce for
// samples whose channels lie in [0,1].
func (d Decoder) Range() (lo, hi float64) {
	lo, hi = d.Weights.Extent()
	if d.Policy == PolicyWeightedDot {
		return (lo - 0.5) * 2, (hi - 0.5) * 2
	}
	return lo, hi
}

// DefaultSentinel is one unit below the lowest reachable depth. No decoded
// depth can equal or fall below it, so far-background pixels still win
// against an empty depth buffer cell.
func (d Decoder) DefaultSentinel() float64 {
	lo, _ := d.Range()
	return lo - 1
}
