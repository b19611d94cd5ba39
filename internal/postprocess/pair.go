package postprocess

import (
	"image"

	"golang.org/x/image/draw"
)

// StereoPair places left and right side by side, separated by gap
// transparent columns. The canvas is as tall as the taller view.
func StereoPair(left, right image.Image, gap int) *image.NRGBA {
	lb, rb := left.Bounds(), right.Bounds()
	if gap < 0 {
		gap = 0
	}
	h := lb.Dy()
	if rb.Dy() > h {
		h = rb.Dy()
	}

	pair := image.NewNRGBA(image.Rect(0, 0, lb.Dx()+gap+rb.Dx(), h))
	// Left = first view
	draw.Copy(pair, image.Pt(0, 0), left, lb, draw.Src, nil)
	// Right = second view
	draw.Copy(pair, image.Pt(lb.Dx()+gap, 0), right, rb, draw.Src, nil)
	return pair
}
