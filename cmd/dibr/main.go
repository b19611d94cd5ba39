package main

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"dibr-renderer/internal/batch"
	"dibr-renderer/internal/config"
	"dibr-renderer/internal/driver"
	"dibr-renderer/internal/packed"
	"dibr-renderer/internal/postprocess"
	"dibr-renderer/internal/surface"
	"dibr-renderer/internal/synth"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

var logger = golog.NewDevelopmentLogger("dibr")

func main() {
	app := &cli.App{
		Name:  "dibr",
		Usage: "synthesize shifted views from packed RGB-D images",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to config.json"},
			&cli.StringFlag{Name: "preset", Usage: "algorithm variant: dot|linear|static"},
			&cli.StringFlag{Name: "sign", Usage: "displacement direction: away|toward"},
			&cli.Float64Flag{Name: "max-baseline", Usage: "maximum pixel baseline (overrides preset)"},
		},
		Commands: []*cli.Command{
			{
				Name:      "render",
				Usage:     "render a single view",
				ArgsUsage: "<packed image>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "view.png", Usage: "output image (format from extension)"},
					&cli.DurationFlag{Name: "time", Usage: "elapsed time the baseline is sampled at"},
					&cli.BoolFlag{Name: "stereo", Usage: "write left (-baseline) and right (+baseline) views side by side"},
					&cli.IntFlag{Name: "scale", Value: 1, Usage: "nearest-neighbour preview upscale factor"},
					&cli.IntFlag{Name: "width", Usage: "downscale the result to at most this many columns"},
				},
				Action: render,
			},
			{
				Name:      "frames",
				Usage:     "render an animation for a packed image or a directory of them",
				ArgsUsage: "<packed image or directory>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output directory"},
					&cli.StringFlag{Name: "format", Usage: "webp|png|jpeg|qoi|ppm"},
					&cli.IntFlag{Name: "frames", Usage: "frames per source"},
					&cli.Float64Flag{Name: "fps", Usage: "frames per second of clock time"},
					&cli.IntFlag{Name: "workers", Usage: "worker goroutines (default: NumCPU)"},
				},
				Action: frames,
			},
			{
				Name:      "watch",
				Usage:     "re-render periodically and whenever the source changes",
				ArgsUsage: "<packed image>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "view.png", Usage: "output image rewritten on every frame"},
					&cli.DurationFlag{Name: "for", Usage: "stop after this long (default: until interrupted)"},
					&cli.StringFlag{Name: "interval", Usage: "frame interval, e.g. 100ms"},
				},
				Action: watch,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context, flags config.Flags) (config.Config, error) {
	var cfg config.Config
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}
	if c.Args().Len() > 0 {
		flags.Input = c.Args().First()
	}
	flags.Preset = c.String("preset")
	flags.Sign = c.String("sign")
	if c.IsSet("max-baseline") {
		v := c.Float64("max-baseline")
		flags.MaxPixelBaseline = &v
	}
	cfg.Resolve(flags)
	if cfg.Input == "" {
		return cfg, errors.New("no input given")
	}
	return cfg, nil
}

func render(c *cli.Context) error {
	cfg, err := loadConfig(c, config.Flags{})
	if err != nil {
		return err
	}
	sc, err := cfg.SynthConfig()
	if err != nil {
		return err
	}
	s, err := synth.New(sc, nil)
	if err != nil {
		return err
	}
	src, err := packed.Load(cfg.Input)
	if err != nil {
		return err
	}

	baseline := synth.Baseline(c.Duration("time"), cfg.Baseline())
	view, err := renderView(s, src, baseline)
	if err != nil {
		return err
	}
	out := view
	if c.Bool("stereo") {
		left, err := renderView(s, src, -baseline)
		if err != nil {
			return err
		}
		out = postprocess.StereoPair(left, view, 0)
	}
	if scale := c.Int("scale"); scale > 1 {
		out = postprocess.Upscale(out, scale)
	}
	if width := c.Int("width"); width > 0 {
		out = postprocess.FitWidth(out, width)
	}

	path := c.String("out")
	format, err := surface.FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()
	if err := surface.Encode(f, out, format); err != nil {
		return err
	}

	b := src.Bounds()
	logger.Infow("wrote view", "path", path, "source", fmt.Sprintf("%dx%d", b.Dx(), b.Dy()),
		"baseline", baseline, "background", sc.Background.Hex(), "stereo", c.Bool("stereo"))
	return nil
}

func renderView(s *synth.Synthesizer, src packed.Source, baseline float64) (*image.NRGBA, error) {
	dst, err := s.Synthesize(src, baseline, nil)
	if err != nil {
		return nil, err
	}
	defer surface.Release(dst)
	return dst.(*surface.Image).Snapshot(), nil
}

func frames(c *cli.Context) error {
	cfg, err := loadConfig(c, config.Flags{
		OutputDir: c.String("out"),
		Format:    c.String("format"),
		Frames:    c.Int("frames"),
		FPS:       c.Float64("fps"),
		Workers:   c.Int("workers"),
	})
	if err != nil {
		return err
	}
	sc, err := cfg.SynthConfig()
	if err != nil {
		return err
	}
	format, err := cfg.OutputFormat()
	if err != nil {
		return err
	}

	var items []batch.Item
	if info, err := os.Stat(cfg.Input); err == nil && info.IsDir() {
		idx, err := packed.BuildIndex(cfg.Input)
		if err != nil {
			return errors.Wrapf(err, "index %s", cfg.Input)
		}
		items = batch.ItemsFromIndex(idx)
	} else {
		stem := strings.TrimSuffix(filepath.Base(cfg.Input), filepath.Ext(cfg.Input))
		items = []batch.Item{{Name: strings.ToLower(stem), Path: cfg.Input}}
	}
	if len(items) == 0 {
		logger.Info("no packed images to render")
		return nil
	}

	bc := batch.Config{
		Synth:            sc,
		Provider:         packed.NewCache(),
		OutputDir:        cfg.OutputDir,
		Format:           format,
		MaxPixelBaseline: cfg.Baseline(),
		Frames:           cfg.Frames,
		FPS:              cfg.FPS,
		Workers:          cfg.Workers,
		Logger:           logger,
	}
	logger.Infow("rendering", "sources", len(items), "frames", cfg.Frames, "workers", cfg.Workers,
		"output", cfg.OutputDir)

	start := time.Now()
	results := batch.Run(bc, items)

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
			if failed <= 20 {
				logger.Warnw("frame failed", "source", r.Name, "frame", r.Frame, "error", r.Error)
			}
		}
	}
	logger.Infow("done", "rendered", len(results)-failed, "total", len(results),
		"seconds", time.Since(start).Seconds())

	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	if err := batch.WriteManifest(manifestPath, bc, results); err != nil {
		logger.Warnw("manifest write failed", "error", err)
	} else {
		logger.Infow("manifest written", "path", manifestPath)
	}

	if failed > 0 {
		return errors.Errorf("%d of %d frames failed", failed, len(results))
	}
	return nil
}

func watch(c *cli.Context) error {
	cfg, err := loadConfig(c, config.Flags{})
	if err != nil {
		return err
	}
	if v := c.String("interval"); v != "" {
		cfg.Interval = v
	}
	interval, err := cfg.FrameInterval()
	if err != nil {
		return err
	}
	sc, err := cfg.SynthConfig()
	if err != nil {
		return err
	}
	s, err := synth.New(sc, surface.FileAllocator(c.String("out")))
	if err != nil {
		return err
	}

	d, err := driver.New(driver.Config{
		Synthesizer:      s,
		Provider:         packed.NewCache(),
		Path:             cfg.Input,
		MaxPixelBaseline: cfg.Baseline(),
		Logger:           logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := d.Close(); err != nil {
			logger.Warnw("close", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if limit := c.Duration("for"); limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}

	if err := d.Watch(ctx); err != nil {
		return err
	}
	if err := d.Start(ctx, interval); err != nil {
		return err
	}
	logger.Infow("watching", "source", cfg.Input, "output", c.String("out"), "interval", interval)

	<-ctx.Done()
	commits := 0
	if f, ok := d.Destination().(*surface.File); ok {
		commits = f.Commits()
	}
	logger.Infow("stopped", "frames", d.Frames(), "failures", d.Failures(), "commits", commits)
	return nil
}
