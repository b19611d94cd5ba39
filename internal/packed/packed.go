// Package packed reads packed RGB-D images: albedo in the left half,
// colour-encoded depth in the right half.
package packed

import (
	"image"
	"image/color"
	"image/draw"

	"dibr-renderer/internal/pixel"
)

// Source is read-only access to a packed image. Bounds().Min is always
// the origin.
type Source interface {
	Bounds() image.Rectangle
	Sample(x, y int) pixel.Sample
}

// Image adapts a decoded image to Source.
type Image struct {
	img *image.NRGBA
}

// NewImage wraps src, converting it to NRGBA when needed.
func NewImage(src image.Image) *Image {
	return &Image{img: toNRGBA(src)}
}

// Bounds returns the zero-origin bounds of the image.
func (m *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.img.Rect.Dx(), m.img.Rect.Dy())
}

// Sample returns the normalized colour at (x, y). Accesses Pix directly.
func (m *Image) Sample(x, y int) pixel.Sample {
	i := y*m.img.Stride + x*4
	p := m.img.Pix[i : i+3 : i+3]
	return pixel.FromNRGBA(color.NRGBA{R: p[0], G: p[1], B: p[2], A: 255})
}

// NRGBA exposes the underlying pixels.
func (m *Image) NRGBA() *image.NRGBA {
	return m.img
}

// Grid is an in-memory packed image holding exact float samples.
type Grid struct {
	width, height int
	data          []pixel.Sample
}

// NewGrid allocates a width×height grid of black samples.
func NewGrid(width, height int) *Grid {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Grid{width: width, height: height, data: make([]pixel.Sample, width*height)}
}

// Compose builds a grid from equally sized albedo and depth rows
// (indexed [row][column]).
func Compose(albedo, depth [][]pixel.Sample) *Grid {
	h := len(albedo)
	w := 0
	if h > 0 {
		w = len(albedo[0])
	}
	g := NewGrid(2*w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g.Set(x, y, albedo[y][x])
			g.Set(w+x, y, depth[y][x])
		}
	}
	return g
}

func (g *Grid) Bounds() image.Rectangle {
	return image.Rect(0, 0, g.width, g.height)
}

func (g *Grid) Sample(x, y int) pixel.Sample {
	return g.data[y*g.width+x]
}

func (g *Grid) Set(x, y int, s pixel.Sample) {
	g.data[y*g.width+x] = s
}

// Split copies the albedo and depth halves of src into two images. An odd
// trailing column is ignored.
func Split(src Source) (albedo, depth *image.NRGBA) {
	b := src.Bounds()
	w, h := b.Dx()/2, b.Dy()
	albedo = image.NewNRGBA(image.Rect(0, 0, w, h))
	depth = image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			albedo.SetNRGBA(x, y, src.Sample(x, y).NRGBA())
			depth.SetNRGBA(x, y, src.Sample(w+x, y).NRGBA())
		}
	}
	return albedo, depth
}

// toNRGBA converts any image to a zero-origin NRGBA image.
func toNRGBA(src image.Image) *image.NRGBA {
	b := src.Bounds()
	if n, ok := src.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	switch src.(type) {
	case *image.YCbCr, *image.Gray, *image.RGBA:
		// Opaque sources: a plain draw keeps colour exact.
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	default:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				c := color.NRGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				i := dst.PixOffset(x, y)
				dst.Pix[i] = c.R
				dst.Pix[i+1] = c.G
				dst.Pix[i+2] = c.B
				dst.Pix[i+3] = c.A
			}
		}
	}
	return dst
}
