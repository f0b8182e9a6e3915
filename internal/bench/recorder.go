// Package bench records per-frame timings of a benchmark run as CSV and
// optionally persists them to the run store.
package bench

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/arcam/internal/store"
)

// DefaultOut is the summary CSV path used when none is given.
const DefaultOut = "benchmark.csv"

// DefaultFrames is the default frame budget of a run.
const DefaultFrames = 300

// DetailedSuffix is appended to the summary path for the detailed CSV.
const DetailedSuffix = ".detailed.csv"

var (
	summaryHeader  = []string{"frame_ms", "frame_index", "filter", "backend", "resolution", "transforms", "build"}
	detailedHeader = []string{"frame_index", "total_ms", "capture_ms", "process_ms", "transform_ms", "upload_ms", "draw_ms", "filter", "backend", "resolution", "transforms", "build"}
)

// Settings are the run-wide columns written on every row.
type Settings struct {
	Filter     string
	Backend    string
	Transforms string
	Build      string
}

// Frame is the timing of one loop iteration.
type Frame struct {
	Width, Height int
	Capture       time.Duration
	Process       time.Duration
	Transform     time.Duration
	Upload        time.Duration
	Draw          time.Duration
	Total         time.Duration
}

// Resolution formats the frame size as WxH.
func (f Frame) Resolution() string {
	return fmt.Sprintf("%dx%d", f.Width, f.Height)
}

// Summary holds the frame time statistics of a run.
type Summary struct {
	Frames   int
	MeanMs   float64
	StdDevMs float64
}

func (s Summary) String() string {
	return fmt.Sprintf("Benchmark summary: frames=%d, mean_ms=%s, std_ms=%s",
		s.Frames, formatMs(s.MeanMs), formatMs(s.StdDevMs))
}

// Options configures Open.
type Options struct {
	// Out is the summary CSV path.
	Out string
	// Detailed also writes per-stage timings to Out + DetailedSuffix.
	Detailed bool
	// Frames is the frame budget; zero means unlimited.
	Frames   int
	Settings Settings
	// Store, if set, receives the run on Close.
	Store *store.Store
	// Stdout receives rows when Out cannot be opened, and the summary.
	Stdout io.Writer
}

// Recorder writes benchmark rows and accumulates frame times.
type Recorder struct {
	id       string
	settings Settings
	budget   int

	summary  *csv.Writer
	detailed *csv.Writer
	files    []*os.File
	stdout   io.Writer
	// rows go straight to stdout when the summary file is unavailable
	unbuffered bool

	store      *store.Store
	started    time.Time
	resolution string
	times      []float64
	timings    []store.FrameTiming
}

// Open creates the output files and writes their headers. When Out cannot
// be created, summary rows go to Stdout instead; a detailed file that
// cannot be created is skipped.
func Open(opts Options) (*Recorder, error) {
	if opts.Out == "" {
		opts.Out = DefaultOut
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	r := newRecorder(opts.Settings, opts.Stdout)
	r.budget = opts.Frames
	r.store = opts.Store

	if f, err := os.Create(opts.Out); err != nil {
		log.Printf("could not open output CSV %q, writing to stdout: %v", opts.Out, err)
		r.summary = csv.NewWriter(opts.Stdout)
		r.unbuffered = true
	} else {
		r.files = append(r.files, f)
		r.summary = csv.NewWriter(f)
		if err := r.summary.Write(summaryHeader); err != nil {
			r.closeFiles()
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	if opts.Detailed {
		path := opts.Out + DetailedSuffix
		if f, err := os.Create(path); err != nil {
			log.Printf("could not open detailed CSV %q: %v", path, err)
		} else {
			r.files = append(r.files, f)
			r.detailed = csv.NewWriter(f)
			if err := r.detailed.Write(detailedHeader); err != nil {
				r.closeFiles()
				return nil, fmt.Errorf("write detailed header: %w", err)
			}
		}
	}

	log.Printf("benchmark run %s -> %s", r.id, opts.Out)
	return r, nil
}

// NewRecorder creates a recorder writing to the given writers. Headers are
// written immediately; detailed may be nil.
func NewRecorder(summary, detailed io.Writer, settings Settings) *Recorder {
	r := newRecorder(settings, io.Discard)
	r.summary = csv.NewWriter(summary)
	r.summary.Write(summaryHeader)
	if detailed != nil {
		r.detailed = csv.NewWriter(detailed)
		r.detailed.Write(detailedHeader)
	}
	return r
}

func newRecorder(settings Settings, stdout io.Writer) *Recorder {
	return &Recorder{
		id:       uuid.New().String(),
		settings: settings,
		stdout:   stdout,
		started:  time.Now(),
	}
}

// ID returns the run identifier.
func (r *Recorder) ID() string {
	return r.id
}

// Count returns the number of recorded frames.
func (r *Recorder) Count() int {
	return len(r.times)
}

// Done reports whether the frame budget has been reached.
func (r *Recorder) Done() bool {
	return r.budget > 0 && len(r.times) >= r.budget
}

// Record writes the rows for one frame. The frame index is the number of
// frames recorded before it.
func (r *Recorder) Record(f Frame) error {
	index := len(r.times)
	total := ms(f.Total)
	res := f.Resolution()
	if r.resolution == "" {
		r.resolution = res
	}

	s := r.settings
	err := r.summary.Write([]string{
		formatMs(total), strconv.Itoa(index), s.Filter, s.Backend, res, s.Transforms, s.Build,
	})
	if err != nil {
		return fmt.Errorf("write row %d: %w", index, err)
	}
	if r.unbuffered {
		r.summary.Flush()
	}

	t := store.FrameTiming{
		Index:       index,
		TotalMs:     total,
		CaptureMs:   ms(f.Capture),
		ProcessMs:   ms(f.Process),
		TransformMs: ms(f.Transform),
		UploadMs:    ms(f.Upload),
		DrawMs:      ms(f.Draw),
	}
	if r.detailed != nil {
		err := r.detailed.Write([]string{
			strconv.Itoa(index), formatMs(t.TotalMs), formatMs(t.CaptureMs), formatMs(t.ProcessMs),
			formatMs(t.TransformMs), formatMs(t.UploadMs), formatMs(t.DrawMs),
			s.Filter, s.Backend, res, s.Transforms, s.Build,
		})
		if err != nil {
			return fmt.Errorf("write detailed row %d: %w", index, err)
		}
	}

	r.times = append(r.times, total)
	if r.store != nil {
		r.timings = append(r.timings, t)
	}
	return nil
}

// Summary returns the mean and sample standard deviation of the recorded
// frame times.
func (r *Recorder) Summary() Summary {
	s := Summary{Frames: len(r.times)}
	switch {
	case s.Frames == 0:
	case s.Frames == 1:
		s.MeanMs = r.times[0]
	default:
		s.MeanMs, s.StdDevMs = stat.MeanStdDev(r.times, nil)
	}
	return s
}

// Close flushes the CSV output, prints the summary and persists the run.
func (r *Recorder) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	r.summary.Flush()
	keep(r.summary.Error())
	if r.detailed != nil {
		r.detailed.Flush()
		keep(r.detailed.Error())
	}
	keep(r.closeFiles())

	summary := r.Summary()
	fmt.Fprintln(r.stdout, summary)

	if r.store != nil {
		keep(r.persist(summary))
	}
	return firstErr
}

func (r *Recorder) persist(summary Summary) error {
	resolution := r.resolution
	if resolution == "" {
		resolution = "0x0"
	}
	runs := r.store.Runs()
	run := &store.Run{
		ID:         r.id,
		Filter:     r.settings.Filter,
		Backend:    r.settings.Backend,
		Resolution: resolution,
		Transforms: r.settings.Transforms,
		Build:      r.settings.Build,
		StartedAt:  r.started,
	}
	if err := runs.Create(run); err != nil {
		return fmt.Errorf("store run: %w", err)
	}
	if err := runs.AddFrames(r.id, r.timings); err != nil {
		return fmt.Errorf("store frames: %w", err)
	}
	if err := runs.Finish(r.id, summary.Frames, summary.MeanMs, summary.StdDevMs); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

func (r *Recorder) closeFiles() error {
	var firstErr error
	for _, f := range r.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.files = nil
	return firstErr
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// formatMs keeps six significant digits and drops trailing zeros.
func formatMs(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
