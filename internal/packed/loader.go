package packed

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	"github.com/xfmoulet/qoi"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// Decoders are chosen by extension. TGA has no magic number, so content
// sniffing through image.Decode cannot be trusted once it is registered.
var decoders = map[string]func(io.Reader) (image.Image, error){
	".png":  png.Decode,
	".jpg":  jpeg.Decode,
	".jpeg": jpeg.Decode,
	".gif":  gif.Decode,
	".tga":  tga.Decode,
	".webp": webp.Decode,
	".bmp":  bmp.Decode,
	".tif":  tiff.Decode,
	".tiff": tiff.Decode,
	".qoi":  qoi.Decode,
	".ppm":  ppm.Decode,
}

// Extensions returns the file extensions Load understands, sorted.
func Extensions() []string {
	exts := make([]string, 0, len(decoders))
	for e := range decoders {
		exts = append(exts, e)
	}
	sort.Strings(exts)
	return exts
}

// Supported reports whether path has a loadable extension.
func Supported(path string) bool {
	_, ok := decoders[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Load reads and decodes a packed image file.
func Load(path string) (*Image, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "packed: read %s", path)
	}
	return Decode(raw, path)
}

// Decode decodes a packed image from memory. The extension of name picks
// the decoder.
func Decode(raw []byte, name string) (*Image, error) {
	ext := strings.ToLower(filepath.Ext(name))
	dec, ok := decoders[ext]
	if !ok {
		return nil, errors.Errorf("packed: unsupported extension %q: %s (want one of %s)",
			ext, name, strings.Join(Extensions(), " "))
	}

	img, err := dec(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrapf(err, "packed: decode %s", name)
	}

	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, errors.Errorf("packed: %s is empty", name)
	}
	return NewImage(img), nil
}
