package surface

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"testing"

	"dibr-renderer/internal/packed"
	"dibr-renderer/internal/pixel"

	"go.viam.com/test"
)

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"png":   FormatPNG,
		".JPG":  FormatJPEG,
		"jpeg":  FormatJPEG,
		" webp": FormatWebP,
		"qoi":   FormatQOI,
		".ppm":  FormatPPM,
	} {
		f, err := ParseFormat(in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, f, test.ShouldEqual, want)
	}
	_, err := ParseFormat("exr")
	test.That(t, err, test.ShouldNotBeNil)

	f, err := FormatFromPath("out/view.webp")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f, test.ShouldEqual, FormatWebP)
	test.That(t, FormatJPEG.Ext(), test.ShouldEqual, ".jpg")
	test.That(t, FormatQOI.Ext(), test.ShouldEqual, ".qoi")

	test.That(t, Encode(&bytes.Buffer{}, image.NewNRGBA(image.Rect(0, 0, 1, 1)), Format("exr")), test.ShouldNotBeNil)
}

func TestEncodePPMFromNRGBA(t *testing.T) {
	img := NewImage(3, 2)
	fill(img)
	test.That(t, img.Commit(), test.ShouldBeNil)
	want := img.Snapshot()

	var buf bytes.Buffer
	test.That(t, Encode(&buf, want, FormatPPM), test.ShouldBeNil)
	got, err := packed.Decode(buf.Bytes(), "view.ppm")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.Bounds(), test.ShouldResemble, want.Bounds())
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			test.That(t, got.Sample(x, y).NRGBA(), test.ShouldResemble, want.NRGBAAt(x, y))
		}
	}
}

func fill(s Surface) {
	b := s.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			s.Set(x, y, pixel.Sample{R: float64(x) / float64(b.Dx()), G: 0.5, B: float64(y) / float64(b.Dy())})
		}
	}
}

func TestFileCommit(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []Format{FormatPNG, FormatQOI, FormatPPM, FormatWebP, FormatJPEG} {
		path := filepath.Join(dir, "nested", "view"+f.Ext())
		s, err := NewFile(path, 6, 4)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, s.Format, test.ShouldEqual, f)

		fill(s)
		_, err = os.Stat(path)
		test.That(t, os.IsNotExist(err), test.ShouldBeTrue)

		test.That(t, s.Commit(), test.ShouldBeNil)
		got, err := packed.Load(path)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got.Bounds(), test.ShouldResemble, image.Rect(0, 0, 6, 4))

		if f == FormatJPEG {
			continue
		}
		want := s.Snapshot()
		for y := 0; y < 4; y++ {
			for x := 0; x < 6; x++ {
				test.That(t, got.Sample(x, y).NRGBA(), test.ShouldResemble, want.NRGBAAt(x, y))
			}
		}
		s.Release()
	}

	// No temp files are left behind.
	entries, err := os.ReadDir(filepath.Join(dir, "nested"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(entries), test.ShouldEqual, 5)
}

func TestFileAllocator(t *testing.T) {
	dir := t.TempDir()

	s := FileAllocator(filepath.Join(dir, "view.png"))(2, 2)
	test.That(t, s.Bounds(), test.ShouldResemble, image.Rect(0, 0, 2, 2))
	test.That(t, s.Commit(), test.ShouldBeNil)

	bad := FileAllocator(filepath.Join(dir, "view.exr"))(2, 2)
	test.That(t, bad.Bounds(), test.ShouldResemble, image.Rect(0, 0, 2, 2))
	test.That(t, bad.Commit(), test.ShouldNotBeNil)

	f, err := NewFile(filepath.Join(dir, "view.png"), 1, 1)
	test.That(t, err, test.ShouldBeNil)
	f.Release()
	test.That(t, f.Commit(), test.ShouldEqual, ErrReleased)
}
