package surface

import (
	"image"
	"image/color"
	"testing"

	"dibr-renderer/internal/pixel"

	"go.viam.com/test"
)

func TestImageCommit(t *testing.T) {
	m := NewImage(3, 2)
	test.That(t, m.Bounds(), test.ShouldResemble, image.Rect(0, 0, 3, 2))

	m.Set(1, 1, pixel.Red)
	m.Set(-1, 0, pixel.Red)
	m.Set(3, 0, pixel.Red)

	// Nothing is visible before the commit.
	test.That(t, m.Snapshot().NRGBAAt(1, 1), test.ShouldResemble, color.NRGBA{})
	test.That(t, m.Commit(), test.ShouldBeNil)
	test.That(t, m.Commits(), test.ShouldEqual, 1)

	snap := m.Snapshot()
	test.That(t, snap.NRGBAAt(1, 1), test.ShouldResemble, color.NRGBA{255, 0, 0, 255})
	test.That(t, snap.NRGBAAt(0, 0), test.ShouldResemble, color.NRGBA{})

	// Snapshots are copies.
	snap.SetNRGBA(0, 0, color.NRGBA{1, 2, 3, 4})
	test.That(t, m.Snapshot().NRGBAAt(0, 0), test.ShouldResemble, color.NRGBA{})
}

func TestImageRelease(t *testing.T) {
	var s Surface = Allocate(2, 2)
	s.Set(0, 0, pixel.White)
	test.That(t, s.Commit(), test.ShouldBeNil)

	Release(s)
	m := s.(*Image)
	test.That(t, m.Snapshot(), test.ShouldBeNil)
	test.That(t, m.Bounds().Empty(), test.ShouldBeTrue)
	m.Set(0, 0, pixel.White)
	test.That(t, m.Commit(), test.ShouldEqual, ErrReleased)
	test.That(t, m.Commits(), test.ShouldEqual, 1)

	// Surfaces without buffers are left alone.
	Release(nil)
}
