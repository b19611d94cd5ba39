package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"dibr-renderer/internal/batch"
	"dibr-renderer/internal/config"
	"dibr-renderer/internal/depth"
	"dibr-renderer/internal/packed"
	"dibr-renderer/internal/surface"
	"dibr-renderer/internal/synth"
)

func main() {
	preset := flag.String("preset", "dot", "algorithm variant: dot|linear|static")
	split := flag.String("split", "", "write <dir>/<stem>_albedo.png and _depth.png")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: inspect [-preset dot] [-split dir] <packed image | manifest.json>...")
		fmt.Fprintln(os.Stderr, "formats:", strings.Join(packed.Extensions(), " "))
		os.Exit(2)
	}

	cfg := config.Config{}
	cfg.Resolve(config.Flags{Preset: *preset})
	sc, err := cfg.SynthConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	lo, hi := sc.Decoder.Range()
	fmt.Printf("Decoder: %s weights=%v range=[%.3f, %.3f] sentinel=%.3f background=%s\n",
		sc.Decoder.Policy, sc.Decoder.Weights, lo, hi, sc.Sentinel, sc.Background.Hex())

	s, err := synth.New(sc, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	failed := false
	for _, path := range flag.Args() {
		if strings.EqualFold(filepath.Ext(path), ".json") {
			if err := printManifest(path); err != nil {
				fmt.Printf("%s: %v\n", path, err)
				failed = true
			}
			continue
		}

		src, err := packed.Load(path)
		if err != nil {
			fmt.Printf("%s: %v\n", path, err)
			failed = true
			continue
		}
		b := src.Bounds()
		fmt.Printf("%s: %dx%d", path, b.Dx(), b.Dy())
		if b.Dx()%2 != 0 {
			fmt.Printf(" (odd width, cannot be synthesized)\n")
			failed = true
			continue
		}
		fmt.Printf(" -> view %dx%d\n", b.Dx()/2, b.Dy())

		st, err := depth.Analyze(src, sc.Decoder, sc.Sentinel)
		if err != nil {
			fmt.Printf("  depth: %v\n", err)
			failed = true
			continue
		}
		fmt.Printf("  Depth: min=%.3f max=%.3f mean=%.3f median=%.3f sd=%.3f\n",
			st.Min, st.Max, st.Mean, st.Median, st.StdDev)
		fmt.Printf("  P5..P95: %.3f .. %.3f\n", st.P5, st.P95)
		if st.Violations > 0 {
			fmt.Printf("  WARNING: %d/%d samples at or below sentinel\n", st.Violations, st.Pixels)
		}

		holes, err := countHoles(s, src, cfg.Baseline())
		if err != nil {
			fmt.Printf("  synth: %v\n", err)
			failed = true
			continue
		}
		fmt.Printf("  Holes at baseline %.1f: %d/%d\n", cfg.Baseline(), holes, st.Pixels)

		if *split != "" {
			if err := writeSplit(*split, path, src); err != nil {
				fmt.Printf("  split: %v\n", err)
				failed = true
			}
		}
	}

	if failed {
		os.Exit(1)
	}
}

func writeSplit(dir, path string, src packed.Source) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	albedo, dep := packed.Split(src)
	for suffix, img := range map[string]*image.NRGBA{"_albedo.png": albedo, "_depth.png": dep} {
		out := filepath.Join(dir, stem+suffix)
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		err = surface.Encode(f, img, surface.FormatPNG)
		f.Close()
		if err != nil {
			return err
		}
		fmt.Printf("  Wrote %s\n", out)
	}
	return nil
}

// countHoles synthesizes src at baseline and counts output pixels no
// source pixel reached.
func countHoles(s *synth.Synthesizer, src packed.Source, baseline float64) (int, error) {
	dst, err := s.Synthesize(src, baseline, nil)
	if err != nil {
		return 0, err
	}
	defer surface.Release(dst)

	sentinel := s.Config().Sentinel
	b := dst.Bounds()
	holes := 0
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			if s.Depth(x, y) == sentinel {
				holes++
			}
		}
	}
	return holes, nil
}

func printManifest(path string) error {
	m, err := batch.ReadManifest(path)
	if err != nil {
		return err
	}
	failed := 0
	sources := make(map[string]bool)
	for _, f := range m.Frames {
		sources[f.Source] = true
		if f.Error != "" {
			failed++
		}
	}
	fmt.Printf("%s: run %s at %s\n", path, m.RunID, m.Created.Format("2006-01-02 15:04:05"))
	fmt.Printf("  %d frames from %d sources, %d failed (fps=%.1f max baseline=%.1f)\n",
		len(m.Frames), len(sources), failed, m.FPS, m.MaxPixelBaseline)
	return nil
}
