// Package surface provides the mutable image sinks the view synthesizer
// writes into.
package surface

import (
	"image"
	"sync"

	"dibr-renderer/internal/pixel"

	"github.com/pkg/errors"
)

// ErrReleased is returned when committing a surface after Release.
var ErrReleased = errors.New("surface: released")

// Surface is a writable image. Writes become visible to readers only
// after Commit.
type Surface interface {
	Bounds() image.Rectangle
	Set(x, y int, s pixel.Sample)
	Commit() error
}

// Allocator creates a surface of the given size.
type Allocator func(width, height int) Surface

// Image is a point-sampled, double-buffered NRGBA surface. Set writes the
// back buffer, Commit copies it to the front buffer read by Snapshot.
type Image struct {
	back *image.NRGBA

	mu      sync.RWMutex
	front   *image.NRGBA
	commits int
}

// NewImage allocates a width×height surface. Both buffers start transparent.
func NewImage(width, height int) *Image {
	r := image.Rect(0, 0, width, height)
	return &Image{
		back:  image.NewNRGBA(r),
		front: image.NewNRGBA(r),
	}
}

// Allocate is an Allocator returning *Image surfaces.
func Allocate(width, height int) Surface {
	return NewImage(width, height)
}

func (m *Image) Bounds() image.Rectangle {
	if m.back == nil {
		return image.Rectangle{}
	}
	return m.back.Rect
}

// Set writes one opaque pixel to the back buffer. Out-of-range writes and
// writes after Release are ignored.
func (m *Image) Set(x, y int, s pixel.Sample) {
	if m.back == nil || !(image.Point{X: x, Y: y}).In(m.back.Rect) {
		return
	}
	c := s.NRGBA()
	i := y*m.back.Stride + x*4
	p := m.back.Pix[i : i+4 : i+4]
	p[0] = c.R
	p[1] = c.G
	p[2] = c.B
	p[3] = c.A
}

// Commit publishes the back buffer.
func (m *Image) Commit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.back == nil || m.front == nil {
		return ErrReleased
	}
	copy(m.front.Pix, m.back.Pix)
	m.commits++
	return nil
}

// Snapshot returns a copy of the last committed image, or nil after Release.
func (m *Image) Snapshot() *image.NRGBA {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.front == nil {
		return nil
	}
	dst := image.NewNRGBA(m.front.Rect)
	copy(dst.Pix, m.front.Pix)
	return dst
}

// Commits returns how many times Commit has succeeded.
func (m *Image) Commits() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.commits
}

// Release frees both buffers.
func (m *Image) Release() {
	m.mu.Lock()
	m.back = nil
	m.front = nil
	m.mu.Unlock()
}

// Release frees s if it holds releasable buffers.
func Release(s Surface) {
	if r, ok := s.(interface{ Release() }); ok {
		r.Release()
	}
}
