package batch

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"dibr-renderer/internal/packed"
	"dibr-renderer/internal/surface"
	"dibr-renderer/internal/synth"

	"github.com/edaniels/golog"
	"go.uber.org/zap"
)

// Config holds all shared resources for a batch run.
type Config struct {
	Synth            synth.Config
	Provider         packed.Provider
	OutputDir        string
	Format           surface.Format
	MaxPixelBaseline float64
	Frames           int     // frames per source
	FPS              float64 // frame k is sampled at k/FPS seconds
	Workers          int
	Logger           golog.Logger
}

// Item is one packed source to animate.
type Item struct {
	Name string // output subdirectory
	Path string
}

// Result holds the outcome of rendering one frame.
type Result struct {
	Name     string
	Frame    int
	Elapsed  time.Duration
	Baseline float64
	Output   string
	Success  bool
	Error    string
}

type job struct {
	item  Item
	frame int
	slot  int
}

// FrameTime returns the clock reading of frame k.
func (cfg Config) FrameTime(k int) time.Duration {
	fps := cfg.FPS
	if fps <= 0 {
		fps = 30
	}
	return time.Duration(float64(k) / fps * float64(time.Second))
}

// Run renders cfg.Frames frames of every item using a worker pool. Each
// worker owns its own Synthesizer, so depth buffers are never shared.
func Run(cfg Config, items []Item) []Result {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	frames := cfg.Frames
	if frames <= 0 {
		frames = 1
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	total := len(items) * frames
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					elapsed := time.Since(start).Seconds()
					logger.Infow("progress", "done", p, "total", total, "frames_per_sec", float64(p)/elapsed)
				}
			}
		}
	}()

	// Worker pool
	jobs := make(chan job, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := synth.New(cfg.Synth, nil)
			for j := range jobs {
				if err != nil {
					results[j.slot] = failure(j, cfg, err)
				} else {
					results[j.slot] = renderFrame(cfg, s, j)
				}
				processed.Add(1)
			}
		}()
	}

	// Send work
	for i, it := range items {
		for k := 0; k < frames; k++ {
			jobs <- job{item: it, frame: k, slot: i*frames + k}
		}
	}
	close(jobs)

	wg.Wait()
	close(done)

	return results
}

func renderFrame(cfg Config, s *synth.Synthesizer, j job) Result {
	src, err := cfg.Provider.Resolve(j.item.Path)
	if err != nil {
		return failure(j, cfg, err)
	}

	elapsed := cfg.FrameTime(j.frame)
	baseline := synth.Baseline(elapsed, cfg.MaxPixelBaseline)
	out := OutputPath(cfg.OutputDir, j.item.Name, j.frame, cfg.Format)

	// Each frame is its own file surface; committing it writes the file.
	b := src.Bounds()
	dst, err := surface.NewFile(out, b.Dx()/2, b.Dy())
	if err != nil {
		return failure(j, cfg, err)
	}
	defer dst.Release()

	if _, err := s.Synthesize(src, baseline, dst); err != nil {
		return failure(j, cfg, err)
	}

	return Result{
		Name:     j.item.Name,
		Frame:    j.frame,
		Elapsed:  elapsed,
		Baseline: baseline,
		Output:   out,
		Success:  true,
	}
}

func failure(j job, cfg Config, err error) Result {
	return Result{
		Name:     j.item.Name,
		Frame:    j.frame,
		Elapsed:  cfg.FrameTime(j.frame),
		Baseline: synth.Baseline(cfg.FrameTime(j.frame), cfg.MaxPixelBaseline),
		Error:    err.Error(),
	}
}

// OutputPath returns <dir>/<name>/<frame><ext>, zero padded.
func OutputPath(dir, name string, frame int, f surface.Format) string {
	return filepath.Join(dir, name, fmt.Sprintf("%04d%s", frame, f.Ext()))
}
