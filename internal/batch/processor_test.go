package batch

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dibr-renderer/internal/packed"
	"dibr-renderer/internal/pixel"
	"dibr-renderer/internal/surface"
	"dibr-renderer/internal/synth"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

func testProvider() packed.Provider {
	good := packed.Compose(
		[][]pixel.Sample{{pixel.Red, pixel.Green}, {pixel.Blue, pixel.White}},
		[][]pixel.Sample{{{B: 0.5}, {B: 1}}, {{R: 1}, {G: 1}}},
	)
	return packed.ProviderFunc(func(path string) (packed.Source, error) {
		switch path {
		case "good.png":
			return good, nil
		case "odd.png":
			return packed.NewGrid(3, 2), nil
		}
		return nil, errors.Errorf("no such source %s", path)
	})
}

func testConfig(t *testing.T) Config {
	return Config{
		Synth:            synth.DefaultConfig(),
		Provider:         testProvider(),
		OutputDir:        t.TempDir(),
		Format:           surface.FormatPNG,
		MaxPixelBaseline: 1,
		Frames:           3,
		FPS:              10,
		Workers:          2,
		Logger:           golog.NewTestLogger(t),
	}
}

func TestFrameTime(t *testing.T) {
	cfg := Config{FPS: 4}
	test.That(t, cfg.FrameTime(0), test.ShouldEqual, time.Duration(0))
	test.That(t, cfg.FrameTime(2), test.ShouldEqual, 500*time.Millisecond)
	test.That(t, Config{}.FrameTime(30), test.ShouldEqual, time.Second)
}

func TestOutputPath(t *testing.T) {
	test.That(t, OutputPath("out", "room", 7, surface.FormatJPEG), test.ShouldEqual, filepath.Join("out", "room", "0007.jpg"))
}

func TestRun(t *testing.T) {
	cfg := testConfig(t)
	items := []Item{
		{Name: "good", Path: "good.png"},
		{Name: "odd", Path: "odd.png"},
		{Name: "missing", Path: "missing.png"},
	}
	results := Run(cfg, items)
	test.That(t, len(results), test.ShouldEqual, 9)

	for i, r := range results {
		test.That(t, r.Name, test.ShouldEqual, items[i/3].Name)
		test.That(t, r.Frame, test.ShouldEqual, i%3)
		test.That(t, r.Elapsed, test.ShouldEqual, cfg.FrameTime(i%3))
		test.That(t, r.Baseline, test.ShouldEqual, synth.Baseline(r.Elapsed, 1))
		if r.Name != "good" {
			test.That(t, r.Success, test.ShouldBeFalse)
			test.That(t, r.Error, test.ShouldNotBeEmpty)
			continue
		}
		test.That(t, r.Success, test.ShouldBeTrue)
		test.That(t, r.Output, test.ShouldEqual, OutputPath(cfg.OutputDir, "good", r.Frame, surface.FormatPNG))
		img, err := packed.Load(r.Output)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, img.Bounds(), test.ShouldResemble, image.Rect(0, 0, 2, 2))
	}
	test.That(t, results[3].Error, test.ShouldContainSubstring, "odd")

	// Failed frames leave no files behind.
	_, err := os.Stat(filepath.Join(cfg.OutputDir, "odd"))
	test.That(t, os.IsNotExist(err), test.ShouldBeTrue)
}

func TestRunDefaults(t *testing.T) {
	cfg := testConfig(t)
	cfg.Frames, cfg.Workers, cfg.Logger = 0, 0, nil
	results := Run(cfg, []Item{{Name: "good", Path: "good.png"}})
	test.That(t, len(results), test.ShouldEqual, 1)
	test.That(t, results[0].Success, test.ShouldBeTrue)
	test.That(t, Run(cfg, nil), test.ShouldBeEmpty)
}

func TestRunInvalidSynthConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Synth.Sentinel = 5
	results := Run(cfg, []Item{{Name: "good", Path: "good.png"}})
	for _, r := range results {
		test.That(t, r.Success, test.ShouldBeFalse)
		test.That(t, r.Error, test.ShouldContainSubstring, "sentinel")
	}
}

func TestManifest(t *testing.T) {
	cfg := testConfig(t)
	cfg.Frames = 2
	results := Run(cfg, []Item{{Name: "good", Path: "good.png"}, {Name: "missing", Path: "missing.png"}})

	path := filepath.Join(cfg.OutputDir, "manifest.json")
	test.That(t, WriteManifest(path, cfg, results), test.ShouldBeNil)

	m, err := ReadManifest(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.RunID, test.ShouldNotBeEmpty)
	test.That(t, m.FPS, test.ShouldEqual, 10.0)
	test.That(t, m.MaxPixelBaseline, test.ShouldEqual, 1.0)
	test.That(t, len(m.Frames), test.ShouldEqual, 4)
	test.That(t, m.Frames[1].Image, test.ShouldEqual, "good/0001.png")
	test.That(t, m.Frames[1].Seconds, test.ShouldAlmostEqual, 0.1, 1e-9)
	test.That(t, m.Frames[2].Image, test.ShouldBeEmpty)
	test.That(t, m.Frames[2].Error, test.ShouldContainSubstring, "no such source")

	_, err = ReadManifest(filepath.Join(cfg.OutputDir, "nope.json"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestItemsFromIndex(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.jpg", "a.png", "skip.txt"} {
		test.That(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644), test.ShouldBeNil)
	}
	idx, err := packed.BuildIndex(dir)
	test.That(t, err, test.ShouldBeNil)
	items := ItemsFromIndex(idx)
	test.That(t, items, test.ShouldResemble, []Item{
		{Name: "a", Path: filepath.Join(dir, "a.png")},
		{Name: "b", Path: filepath.Join(dir, "b.png")},
	})
}
