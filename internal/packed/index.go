package packed

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Index maps lowercase file stems to packed image paths.
type Index struct {
	entries map[string]string // stem.lower() → full path
}

// extRank orders duplicate stems: lossless formats win over lossy ones
// since JPEG/WebP artefacts corrupt the depth half.
var extRank = map[string]int{
	".png": 0, ".qoi": 0, ".tga": 1, ".bmp": 1, ".tif": 1, ".tiff": 1, ".ppm": 1,
	".gif": 2, ".webp": 3, ".jpg": 4, ".jpeg": 4,
}

// BuildIndex scans dir (recursively) for loadable packed images.
func BuildIndex(dir string) (*Index, error) {
	idx := &Index{entries: make(map[string]string)}

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !Supported(path) {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		stem := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))

		existing, exists := idx.entries[stem]
		if !exists || extRank[ext] < extRank[strings.ToLower(filepath.Ext(existing))] {
			idx.entries[stem] = path
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// ResolvePath returns the path indexed for name, or ("", false). name may
// carry a directory and extension; only the stem is used.
func (idx *Index) ResolvePath(name string) (string, bool) {
	name = strings.ReplaceAll(name, "\\", "/")
	base := filepath.Base(name)
	stem := strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))

	path, ok := idx.entries[stem]
	return path, ok
}

// Stems returns the indexed stems in sorted order.
func (idx *Index) Stems() []string {
	stems := make([]string, 0, len(idx.entries))
	for s := range idx.entries {
		stems = append(stems, s)
	}
	sort.Strings(stems)
	return stems
}

// Len returns the number of indexed images.
func (idx *Index) Len() int {
	return len(idx.entries)
}
