package config

import (
	"flag"
	"io"
)

// bind registers a flag for every field of c, using its current values as
// defaults.
func (c *Config) bind(fs *flag.FlagSet) {
	fs.IntVar(&c.Camera, "camera", c.Camera, "camera device index")
	fs.StringVar(&c.Source, "source", c.Source, `frame source: "camera", "synthetic" or a video file`)
	fs.StringVar(&c.Resolution, "resolution", c.Resolution, "requested capture size WxH (empty for native)")

	fs.StringVar(&c.Grid, "grid", c.Grid, "inner corners of the checkerboard, COLSxROWS")
	fs.Float64Var(&c.Square, "square", c.Square, "checkerboard square size in meters")

	fs.StringVar(&c.ShaderDir, "shaders", c.ShaderDir, "directory holding the GLSL shaders")
	fs.StringVar(&c.Overlay, "overlay", c.Overlay, "overlay: cube, axes, both or none")
	fs.BoolVar(&c.VSync, "vsync", c.VSync, "wait for vertical sync on swap")

	fs.StringVar(&c.Filter, "filter", c.Filter, "filter: none, gray, edge or pixelate")
	fs.StringVar(&c.Backend, "backend", c.Backend, "filter backend: cpu or gpu")
	fs.StringVar(&c.Transforms, "transforms", c.Transforms, "transforms: off, cpu or gpu")
	fs.Float64Var(&c.TranslateU, "translateU", c.TranslateU, "preset horizontal translation (fraction of width)")
	fs.Float64Var(&c.TranslateV, "translateV", c.TranslateV, "preset vertical translation (fraction of height)")
	fs.Float64Var(&c.Scale, "scale", c.Scale, "preset scale")
	fs.Float64Var(&c.Rotation, "rotation", c.Rotation, "preset rotation in degrees")

	fs.BoolVar(&c.Benchmark, "benchmark", c.Benchmark, "record frame timings and exit after -frames")
	fs.StringVar(&c.Out, "out", c.Out, "benchmark CSV path")
	fs.IntVar(&c.Frames, "frames", c.Frames, "benchmark frame budget")
	fs.BoolVar(&c.Detailed, "detailed", c.Detailed, "also write per-stage timings to <out>.detailed.csv")

	fs.StringVar(&c.DB, "db", c.DB, "SQLite database for benchmark runs (empty disables)")
	fs.StringVar(&c.Monitor, "monitor", c.Monitor, "monitor server address, e.g. :8080 (empty disables)")
}

// Parse builds the configuration from args. Defaults come first, then the
// JSON file named by -config, then the remaining flags. The result is
// validated.
func Parse(name string, args []string) (*Config, error) {
	var path string

	// First pass only locates -config.
	probe := flag.NewFlagSet(name, flag.ContinueOnError)
	probe.SetOutput(io.Discard)
	probe.StringVar(&path, "config", "", "JSON configuration file")
	DefaultConfig().bind(probe)
	if err := probe.Parse(args); err != nil {
		// Report the error with usage from the real set below.
		path = ""
	}

	cfg := DefaultConfig()
	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&path, "config", path, "JSON configuration file")
	cfg.bind(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
