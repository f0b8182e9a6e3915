// Package config holds the runtime configuration of arcam. Values may be
// loaded from a JSON file and overridden by command-line flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ayusman/arcam/internal/bench"
	"github.com/ayusman/arcam/internal/calib"
	"github.com/ayusman/arcam/internal/interact"
)

// Frame sources besides a video file path.
const (
	SourceCamera    = "camera"
	SourceSynthetic = "synthetic"
)

// Overlay choices.
const (
	OverlayCube = "cube"
	OverlayAxes = "axes"
	OverlayBoth = "both"
	OverlayNone = "none"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds runtime configuration for capture, rendering and benchmarks.
type Config struct {
	// Capture
	Camera     int    `json:"camera"`
	Source     string `json:"source"`
	Resolution string `json:"resolution"`

	// Marker
	Grid   string  `json:"grid"`
	Square float64 `json:"square"`

	// Rendering
	ShaderDir string `json:"shader_dir"`
	Overlay   string `json:"overlay"`
	VSync     bool   `json:"vsync"`

	// Initial view
	Filter     string  `json:"filter"`
	Backend    string  `json:"backend"`
	Transforms string  `json:"transforms"`
	TranslateU float64 `json:"translate_u"`
	TranslateV float64 `json:"translate_v"`
	Scale      float64 `json:"scale"`
	Rotation   float64 `json:"rotation"`

	// Benchmark
	Benchmark bool   `json:"benchmark"`
	Out       string `json:"out"`
	Frames    int    `json:"frames"`
	Detailed  bool   `json:"detailed"`

	// Persistence and monitoring; empty disables them.
	DB      string `json:"db"`
	Monitor string `json:"monitor"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Camera:     0,
		Source:     SourceCamera,
		Grid:       fmt.Sprintf("%dx%d", calib.DefaultCols, calib.DefaultRows),
		Square:     calib.DefaultSquare,
		ShaderDir:  "shaders",
		Overlay:    OverlayCube,
		VSync:      true,
		Filter:     "none",
		Backend:    "gpu",
		Transforms: interact.TransformsOff,
		Scale:      1,
		Out:        bench.DefaultOut,
		Frames:     bench.DefaultFrames,
	}
}

// Validate normalizes names and rejects values the program cannot run with.
func (c *Config) Validate() error {
	c.Filter = strings.ToLower(strings.TrimSpace(c.Filter))
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	c.Transforms = strings.ToLower(strings.TrimSpace(c.Transforms))
	c.Overlay = strings.ToLower(strings.TrimSpace(c.Overlay))

	if c.Filter == "" {
		c.Filter = "none"
	}
	if c.Backend == "" {
		c.Backend = "gpu"
	}
	if c.Transforms == "" {
		c.Transforms = interact.TransformsOff
	}
	if c.Overlay == "" {
		c.Overlay = OverlayCube
	}
	if c.Source == "" {
		c.Source = SourceCamera
	}
	if c.Scale == 0 {
		c.Scale = 1
	}
	if c.Frames <= 0 {
		c.Frames = bench.DefaultFrames
	}
	if c.Out == "" {
		c.Out = bench.DefaultOut
	}

	if c.Camera < 0 {
		return fmt.Errorf("%w: camera index %d", ErrInvalidConfig, c.Camera)
	}
	if _, err := interact.ParseFilter(c.Filter, c.Backend); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	switch c.Transforms {
	case interact.TransformsOff, interact.TransformsCPU, interact.TransformsGPU:
	default:
		return fmt.Errorf("%w: transforms %q", ErrInvalidConfig, c.Transforms)
	}
	switch c.Overlay {
	case OverlayCube, OverlayAxes, OverlayBoth, OverlayNone:
	default:
		return fmt.Errorf("%w: overlay %q", ErrInvalidConfig, c.Overlay)
	}
	if _, _, err := ParseResolution(c.Resolution); err != nil {
		return err
	}
	if _, err := c.Marker(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Scale < interact.MinScale || c.Scale > interact.MaxScale {
		return fmt.Errorf("%w: scale %g", ErrInvalidConfig, c.Scale)
	}
	return nil
}

// ParseResolution parses "WxH". An empty string means the native size and
// returns zeros.
func ParseResolution(s string) (int, int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, nil
	}
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("%w: resolution %q", ErrInvalidConfig, s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil || w <= 0 {
		return 0, 0, fmt.Errorf("%w: resolution %q", ErrInvalidConfig, s)
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h <= 0 {
		return 0, 0, fmt.Errorf("%w: resolution %q", ErrInvalidConfig, s)
	}
	return w, h, nil
}

// Marker returns the checkerboard described by Grid and Square.
func (c *Config) Marker() (calib.Marker, error) {
	m, err := calib.ParseGrid(c.Grid)
	if err != nil {
		return calib.Marker{}, err
	}
	m.Square = c.Square
	return m, m.Validate()
}

// FilterMode returns the filter selected by Filter and Backend.
func (c *Config) FilterMode() interact.FilterMode {
	mode, _ := interact.ParseFilter(c.Filter, c.Backend)
	return mode
}

// InitialState returns the transform preset.
func (c *Config) InitialState() interact.TransformState {
	s := interact.IdentityState()
	s.TranslateU = c.TranslateU
	s.TranslateV = c.TranslateV
	s.Scale = c.Scale
	s.Rotation = c.Rotation
	return s
}

// DrawCube reports whether the GL cube overlay is enabled.
func (c *Config) DrawCube() bool {
	return c.Overlay == OverlayCube || c.Overlay == OverlayBoth
}

// DrawAxes reports whether the CPU axes overlay is enabled.
func (c *Config) DrawAxes() bool {
	return c.Overlay == OverlayAxes || c.Overlay == OverlayBoth
}

// Load attempts to read configuration from the given JSON file path. If the file does not
// exist it returns DefaultConfig(). On JSON error it returns defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to the given path in JSON format.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
