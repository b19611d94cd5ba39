package batch

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"dibr-renderer/internal/packed"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Manifest describes one batch run.
type Manifest struct {
	RunID            string          `json:"run_id"`
	Created          time.Time       `json:"created"`
	MaxPixelBaseline float64         `json:"max_pixel_baseline"`
	FPS              float64         `json:"fps"`
	Frames           []ManifestEntry `json:"frames"`
}

// ManifestEntry represents one frame in the output manifest.
type ManifestEntry struct {
	Source   string  `json:"source"`
	Frame    int     `json:"frame"`
	Seconds  float64 `json:"seconds"`
	Baseline float64 `json:"baseline"`
	Image    string  `json:"image,omitempty"` // relative to the manifest
	Error    string  `json:"error,omitempty"`
}

// ItemsFromIndex turns every indexed packed image into a batch item named
// after its stem.
func ItemsFromIndex(idx *packed.Index) []Item {
	stems := idx.Stems()
	items := make([]Item, 0, len(stems))
	for _, stem := range stems {
		path, _ := idx.ResolvePath(stem)
		items = append(items, Item{Name: stem, Path: path})
	}
	return items
}

// WriteManifest writes the manifest for results to path. Image paths are
// stored relative to the manifest's directory.
func WriteManifest(path string, cfg Config, results []Result) error {
	m := Manifest{
		RunID:            uuid.NewString(),
		Created:          time.Now().UTC(),
		MaxPixelBaseline: cfg.MaxPixelBaseline,
		FPS:              cfg.FPS,
		Frames:           make([]ManifestEntry, len(results)),
	}
	dir := filepath.Dir(path)
	for i, r := range results {
		e := ManifestEntry{
			Source:   r.Name,
			Frame:    r.Frame,
			Seconds:  r.Elapsed.Seconds(),
			Baseline: r.Baseline,
			Error:    r.Error,
		}
		if r.Success {
			rel, err := filepath.Rel(dir, r.Output)
			if err != nil {
				rel = r.Output
			}
			e.Image = filepath.ToSlash(rel)
		}
		m.Frames[i] = e
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "batch: marshal manifest")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "batch: mkdir %s", dir)
	}
	return errors.Wrapf(os.WriteFile(path, data, 0644), "batch: write %s", path)
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, errors.Wrapf(err, "batch: read %s", path)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, errors.Wrapf(err, "batch: parse %s", path)
	}
	return m, nil
}
