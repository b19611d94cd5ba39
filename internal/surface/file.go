package surface

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// File is an Image surface that also writes every commit to disk.
type File struct {
	*Image
	Path   string
	Format Format
}

// NewFile allocates a width×height surface persisted to path. The format
// comes from the path extension.
func NewFile(path string, width, height int) (*File, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	return &File{Image: NewImage(width, height), Path: path, Format: f}, nil
}

// FileAllocator returns an Allocator producing File surfaces at path.
// Allocation errors surface on the first Commit.
func FileAllocator(path string) Allocator {
	return func(width, height int) Surface {
		f, err := NewFile(path, width, height)
		if err != nil {
			return &failed{Image: NewImage(width, height), err: err}
		}
		return f
	}
}

// Commit publishes the back buffer and writes it atomically
// (temp file + rename) so readers never see a partial image.
func (f *File) Commit() error {
	if err := f.Image.Commit(); err != nil {
		return err
	}
	img := f.Snapshot()
	if img == nil {
		return ErrReleased
	}

	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "surface: mkdir %s", dir)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.Path)+".*")
	if err != nil {
		return errors.Wrapf(err, "surface: create temp for %s", f.Path)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, img, f.Format); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "surface: close %s", tmp.Name())
	}
	return errors.Wrapf(os.Rename(tmp.Name(), f.Path), "surface: rename to %s", f.Path)
}

type failed struct {
	*Image
	err error
}

func (f *failed) Commit() error {
	return f.err
}
