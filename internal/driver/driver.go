// Package driver decides when to re-run view synthesis: periodically like
// a render loop, on demand, or when the packed source changes on disk. It
// owns the destination surface between runs and releases it on Close.
package driver

import (
	"context"
	"image"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"dibr-renderer/internal/packed"
	"dibr-renderer/internal/surface"
	"dibr-renderer/internal/synth"

	"github.com/benbjohnson/clock"
	"github.com/bep/debounce"
	"github.com/edaniels/golog"
	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrClosed is returned by Trigger after Close.
var ErrClosed = errors.New("driver: closed")

// Config holds the collaborators of a Driver.
type Config struct {
	Synthesizer      *synth.Synthesizer
	Provider         packed.Provider
	Path             string  // packed source resolved through Provider
	MaxPixelBaseline float64 // baseline = cos(elapsed) * MaxPixelBaseline
	Clock            clock.Clock
	Logger           golog.Logger
	Debounce         time.Duration // coalescing window for file changes
	OnFrame          func(surface.Surface)
}

// Driver serializes synthesis passes into one retained destination.
type Driver struct {
	cfg    Config
	logger golog.Logger
	start  time.Time

	mu     sync.Mutex
	dst    surface.Surface
	closed bool

	frames   atomic.Int64
	failures atomic.Int64

	bgMu      sync.Mutex
	scheduler gocron.Scheduler
	watcher   *fsnotify.Watcher
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New returns a Driver whose clock starts now.
func New(cfg Config) (*Driver, error) {
	if cfg.Synthesizer == nil {
		return nil, errors.New("driver: nil synthesizer")
	}
	if cfg.Provider == nil {
		return nil, errors.New("driver: nil provider")
	}
	if cfg.Path == "" {
		return nil, errors.New("driver: empty source path")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 100 * time.Millisecond
	}
	return &Driver{
		cfg:    cfg,
		logger: cfg.Logger,
		start:  cfg.Clock.Now(),
		done:   make(chan struct{}),
	}, nil
}

// Baseline returns the baseline for the current clock reading.
func (d *Driver) Baseline() float64 {
	return synth.Baseline(d.cfg.Clock.Since(d.start), d.cfg.MaxPixelBaseline)
}

// Trigger runs one synthesis pass. On failure the previous destination
// stays as it was and the error is returned; the caller may treat it as
// a skipped frame.
func (d *Driver) Trigger() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}

	src, err := d.cfg.Provider.Resolve(d.cfg.Path)
	if err != nil {
		d.failures.Add(1)
		return errors.Wrap(err, "driver: resolve source")
	}

	d.resize(src.Bounds())

	baseline := d.Baseline()
	dst, err := d.cfg.Synthesizer.Synthesize(src, baseline, d.dst)
	d.dst = dst
	if err != nil {
		d.failures.Add(1)
		return errors.Wrap(err, "driver: synthesize")
	}
	n := d.frames.Add(1)
	d.logger.Debugw("frame synthesized", "frame", n, "baseline", baseline)
	if d.cfg.OnFrame != nil {
		d.cfg.OnFrame(dst)
	}
	return nil
}

// resize drops the retained destination when a well-formed source no
// longer matches its size, so the next pass allocates a new one. Odd or
// empty sources keep it; the pass fails and the last frame stays.
func (d *Driver) resize(b image.Rectangle) {
	if d.dst == nil || b.Dx()%2 != 0 || b.Dx() == 0 || b.Dy() == 0 {
		return
	}
	w, h := b.Dx()/2, b.Dy()
	if db := d.dst.Bounds(); db.Dx() == w && db.Dy() == h {
		return
	}
	d.logger.Infow("source resized", "width", w, "height", h)
	surface.Release(d.dst)
	d.dst = nil
}

// trigger logs instead of returning, for background callers.
func (d *Driver) trigger() {
	if err := d.Trigger(); err != nil && !errors.Is(err, ErrClosed) {
		d.logger.Warnw("skipping frame", "error", err)
	}
}

// Destination returns the retained surface, nil before the first
// successful pass.
func (d *Driver) Destination() surface.Surface {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dst
}

// Frames returns the number of successful passes.
func (d *Driver) Frames() int64 {
	return d.frames.Load()
}

// Failures returns the number of failed passes.
func (d *Driver) Failures() int64 {
	return d.failures.Load()
}

// Start triggers a pass every interval until ctx is done or Close is
// called. A pass still running when the next one is due delays it rather
// than overlapping it.
func (d *Driver) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.Errorf("driver: interval %v must be positive", interval)
	}

	d.bgMu.Lock()
	defer d.bgMu.Unlock()
	if d.scheduler != nil {
		return errors.New("driver: already started")
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return errors.Wrap(err, "driver: scheduler")
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(d.trigger),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return multierr.Combine(errors.Wrap(err, "driver: schedule"), s.Shutdown())
	}
	s.Start()
	d.scheduler = s
	d.logger.Infow("render loop started", "interval", interval)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		select {
		case <-ctx.Done():
		case <-d.done:
		}
		d.bgMu.Lock()
		defer d.bgMu.Unlock()
		if d.scheduler == s {
			if err := s.Shutdown(); err != nil {
				d.logger.Warnw("scheduler shutdown", "error", err)
			}
			d.scheduler = nil
		}
	}()
	return nil
}

// Watch re-runs synthesis when the source file is written, created or
// renamed over. Bursts of events within the debounce window coalesce into
// one pass. The directory is watched since editors often replace files.
func (d *Driver) Watch(ctx context.Context) error {
	d.bgMu.Lock()
	defer d.bgMu.Unlock()
	if d.watcher != nil {
		return errors.New("driver: already watching")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "driver: watcher")
	}
	target := filepath.Clean(d.cfg.Path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return multierr.Combine(errors.Wrapf(err, "driver: watch %s", target), w.Close())
	}
	d.watcher = w

	debounced := debounce.New(d.cfg.Debounce)
	reload := func() {
		select {
		case <-d.done:
			return
		default:
		}
		if inv, ok := d.cfg.Provider.(interface{ Invalidate(string) }); ok {
			inv.Invalidate(target)
		}
		d.logger.Infow("source changed", "path", target)
		d.trigger()
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-d.done:
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
					debounced(reload)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				d.logger.Warnw("watch error", "error", err)
			}
		}
	}()
	return nil
}

// Close stops the render loop and the watcher, waits for background
// goroutines and releases the destination.
func (d *Driver) Close() error {
	d.closeOnce.Do(func() { close(d.done) })

	var err error
	d.bgMu.Lock()
	if d.scheduler != nil {
		err = multierr.Append(err, d.scheduler.Shutdown())
		d.scheduler = nil
	}
	if d.watcher != nil {
		err = multierr.Append(err, d.watcher.Close())
		d.watcher = nil
	}
	d.bgMu.Unlock()
	d.wg.Wait()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	if d.dst != nil {
		surface.Release(d.dst)
		d.dst = nil
	}
	return errors.Wrap(err, "driver: close")
}
