package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/ayusman/arcam/internal/app"
	"github.com/ayusman/arcam/internal/bench"
	"github.com/ayusman/arcam/internal/calib"
	"github.com/ayusman/arcam/internal/capture"
	"github.com/ayusman/arcam/internal/config"
	"github.com/ayusman/arcam/internal/detector"
	"github.com/ayusman/arcam/internal/interact"
	"github.com/ayusman/arcam/internal/render"
	"github.com/ayusman/arcam/internal/server"
	"github.com/ayusman/arcam/internal/store"
)

// buildType is recorded in benchmark rows. Set with
// -ldflags "-X main.buildType=debug".
var buildType = "release"

func init() {
	// GLFW and GL must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	fmt.Println("arcam - checkerboard AR")

	cfg, err := config.Parse(os.Args[0], os.Args[1:])
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	calibration := calib.Default()
	marker, _ := cfg.Marker()
	width, height, _ := config.ParseResolution(cfg.Resolution)

	camera := newSource(cfg, calibration, marker)
	if cfg.Source == config.SourceSynthetic {
		calibration = calibration.WithoutDistortion()
	}

	detectorCfg := detector.DefaultConfig()
	detectorCfg.Marker = marker
	det, err := detector.NewChessboard(detectorCfg)
	if err != nil {
		log.Fatalf("Failed to create detector: %v", err)
	}

	var st *store.Store
	if cfg.DB != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.DB), 0755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
		st, err = store.New(cfg.DB)
		if err != nil {
			log.Fatalf("Failed to initialize store: %v", err)
		}
		defer st.Close()
	}

	var recorder *bench.Recorder
	if cfg.Benchmark {
		recorder, err = bench.Open(bench.Options{
			Out:      cfg.Out,
			Detailed: cfg.Detailed,
			Frames:   cfg.Frames,
			Settings: bench.Settings{
				Filter:     cfg.FilterMode().Name(),
				Backend:    cfg.Backend,
				Transforms: cfg.Transforms,
				Build:      buildType,
			},
			Store: st,
		})
		if err != nil {
			log.Fatalf("Failed to open benchmark output: %v", err)
		}
	}

	var feed *server.Feed
	if cfg.Monitor != "" {
		feed = server.NewFeed(server.DefaultFeedInterval)
		srv := server.New(server.Config{
			StaticDir: findWebDir(),
			Store:     st,
			Feed:      feed,
		})
		defer srv.Close()
		go func() {
			log.Printf("monitor listening on %s", cfg.Monitor)
			if err := srv.ListenAndServe(cfg.Monitor); err != nil {
				log.Printf("monitor server: %v", err)
			}
		}()
	}

	ctrl := interact.NewController()
	renderer := render.NewRenderer(render.Options{
		ShaderDir: cfg.ShaderDir,
		VSync:     cfg.VSync,
	}, ctrl)

	a, err := app.New(app.Config{
		Calibration: calibration,
		Marker:      marker,
		Width:       width,
		Height:      height,
		Filter:      cfg.FilterMode(),
		Transforms:  cfg.Transforms,
		Preset:      cfg.InitialState(),
		DrawCube:    cfg.DrawCube(),
		DrawAxes:    cfg.DrawAxes(),
	}, app.Deps{
		Camera:     camera,
		Detector:   det,
		Display:    renderer,
		Controller: ctrl,
		Recorder:   recorder,
		Feed:       feed,
	})
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}

	if err := a.Start(); err != nil {
		a.Close()
		log.Fatalf("Failed to start: %v", err)
	}

	if err := a.Run(); err != nil {
		log.Printf("render loop stopped: %v", err)
	}
	if err := a.Close(); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// newSource returns the frame source named by the configuration: the
// camera, the synthetic board, or a video file path.
func newSource(cfg *config.Config, c calib.Calibration, m calib.Marker) capture.Camera {
	switch cfg.Source {
	case config.SourceCamera:
		return capture.NewCamera(cfg.Camera)
	case config.SourceSynthetic:
		return capture.NewSyntheticCamera(c, m, nil)
	default:
		return capture.NewVideoSource(cfg.Source)
	}
}

// findWebDir searches for a monitor page in "web", "../web" and
// ~/.arcam/web. It returns an empty string if none exists.
func findWebDir() string {
	for _, p := range []string{"web", "../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(homeDir, ".arcam", "web")
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir
	}
	return ""
}
