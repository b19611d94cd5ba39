package synth

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrSentinel is returned by Config.Validate when the depth buffer
// sentinel is not strictly below every depth the decoder can produce.
// Such a sentinel silently drops legitimate far-background pixels.
var ErrSentinel = errors.New("synth: sentinel not below decoder range")

// DimensionError reports a packed source or destination whose size
// cannot take part in a synthesis pass.
type DimensionError struct {
	Width, Height int
	Reason        string
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("synth: bad dimensions %dx%d: %s", e.Width, e.Height, e.Reason)
}
