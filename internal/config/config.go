package config

import (
	"encoding/json"
	"os"
	"runtime"
	"strings"
	"time"

	"dibr-renderer/internal/depth"
	"dibr-renderer/internal/mathutil"
	"dibr-renderer/internal/pixel"
	"dibr-renderer/internal/surface"
	"dibr-renderer/internal/synth"

	"github.com/pkg/errors"
)

// Preset names one of the observed algorithm variants.
type Preset string

const (
	// PresetDot: weighted-dot decoder, pixels move away, baseline 10.
	PresetDot Preset = "dot"
	// PresetLinear: fixed-linear decoder, pixels move toward, baseline 50.
	PresetLinear Preset = "linear"
	// PresetStatic: weighted-dot decoder with parallax disabled.
	PresetStatic Preset = "static"
)

// Config holds all configurable paths and synthesis settings.
type Config struct {
	// Paths
	Input     string `json:"input"`
	OutputDir string `json:"output_dir"`

	// Algorithm
	Preset           Preset      `json:"preset"`
	Policy           string      `json:"policy"`
	Weights          *[3]float64 `json:"weights,omitempty"`
	Sign             string      `json:"sign"`
	Sentinel         *float64    `json:"sentinel,omitempty"`
	Background       string      `json:"background"`
	MaxPixelBaseline *float64    `json:"max_pixel_baseline,omitempty"`

	// Output settings
	Format   string  `json:"format"`
	Frames   int     `json:"frames"`
	FPS      float64 `json:"fps"`
	Interval string  `json:"interval"`
	Workers  int     `json:"workers"`
}

// Load reads a JSON config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config: read %s", path)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "config: parse %s", path)
	}

	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
// Pointer fields are nil when the flag was not given.
type Flags struct {
	Input            string
	OutputDir        string
	Preset           string
	Sign             string
	Format           string
	MaxPixelBaseline *float64
	Frames           int
	FPS              float64
	Workers          int
}

// Resolve applies CLI overrides, then fills empty fields from the preset
// and the built-in defaults.
func (c *Config) Resolve(flags Flags) {
	// CLI flags override config file
	if flags.Input != "" {
		c.Input = flags.Input
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Preset != "" {
		c.Preset = Preset(strings.ToLower(flags.Preset))
	}
	if flags.Sign != "" {
		c.Sign = flags.Sign
	}
	if flags.Format != "" {
		c.Format = flags.Format
	}
	if flags.MaxPixelBaseline != nil {
		v := *flags.MaxPixelBaseline
		c.MaxPixelBaseline = &v
	}
	if flags.Frames > 0 {
		c.Frames = flags.Frames
	}
	if flags.FPS > 0 {
		c.FPS = flags.FPS
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}

	if c.Preset == "" {
		c.Preset = PresetDot
	}

	// Preset defaults
	var policy, sign string
	var baseline float64
	switch c.Preset {
	case PresetLinear:
		policy, sign, baseline = "fixed-linear", "toward", 50
	case PresetStatic:
		policy, sign, baseline = "weighted-dot", "away", 0
	default:
		policy, sign, baseline = "weighted-dot", "away", 10
	}
	if c.Policy == "" {
		c.Policy = policy
	}
	if c.Sign == "" {
		c.Sign = sign
	}
	if c.MaxPixelBaseline == nil {
		c.MaxPixelBaseline = &baseline
	}

	// Defaults for output settings
	if c.Background == "" {
		c.Background = "gray"
	}
	if c.OutputDir == "" {
		c.OutputDir = "out"
	}
	if c.Format == "" {
		c.Format = string(surface.FormatPNG)
	}
	if c.Frames <= 0 {
		c.Frames = 1
	}
	if c.FPS <= 0 {
		c.FPS = 30
	}
	if c.Interval == "" {
		c.Interval = "33ms"
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
}

// SynthConfig builds the synthesizer configuration. The sentinel defaults
// to one unit below the decoder's range.
func (c *Config) SynthConfig() (synth.Config, error) {
	switch c.Preset {
	case PresetDot, PresetLinear, PresetStatic, "":
	default:
		return synth.Config{}, errors.Errorf("config: unknown preset %q", c.Preset)
	}

	policy, err := depth.ParsePolicy(c.Policy)
	if err != nil {
		return synth.Config{}, errors.Wrap(err, "config")
	}
	var dec depth.Decoder
	switch policy {
	case depth.PolicyFixedLinear:
		dec = depth.NewLinearDecoder()
		if c.Weights != nil {
			dec.Weights = mathutil.Vec3(*c.Weights)
		}
	default:
		var w mathutil.Vec3
		if c.Weights != nil {
			w = mathutil.Vec3(*c.Weights)
		}
		dec = depth.NewDotDecoder(w)
	}

	sign, err := synth.ParseSign(c.Sign)
	if err != nil {
		return synth.Config{}, errors.Wrap(err, "config")
	}
	bg, err := pixel.Parse(c.Background)
	if err != nil {
		return synth.Config{}, errors.Wrap(err, "config")
	}

	sc := synth.Config{
		Decoder:    dec,
		Sign:       sign,
		Sentinel:   dec.DefaultSentinel(),
		Background: bg,
	}
	if c.Sentinel != nil {
		sc.Sentinel = *c.Sentinel
	}
	if err := sc.Validate(); err != nil {
		return synth.Config{}, errors.Wrap(err, "config")
	}
	return sc, nil
}

// Baseline returns the maximum pixel baseline, zero when unset.
func (c *Config) Baseline() float64 {
	if c.MaxPixelBaseline == nil {
		return 0
	}
	return *c.MaxPixelBaseline
}

// OutputFormat parses Format.
func (c *Config) OutputFormat() (surface.Format, error) {
	f, err := surface.ParseFormat(c.Format)
	return f, errors.Wrap(err, "config")
}

// FrameInterval parses Interval as a Go duration.
func (c *Config) FrameInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Interval)
	if err != nil {
		return 0, errors.Wrapf(err, "config: interval %q", c.Interval)
	}
	if d <= 0 {
		return 0, errors.Errorf("config: interval %q must be positive", c.Interval)
	}
	return d, nil
}
