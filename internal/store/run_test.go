package store

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newRun(filter, backend string) *Run {
	return &Run{
		ID:         uuid.New().String(),
		Filter:     filter,
		Backend:    backend,
		Resolution: "1280x720",
		Transforms: "off",
		Build:      "release",
	}
}

func timings(totals ...float64) []FrameTiming {
	frames := make([]FrameTiming, len(totals))
	for i, total := range totals {
		frames[i] = FrameTiming{Index: i, TotalMs: total, CaptureMs: total / 2}
	}
	return frames
}

func TestRunRepository_CreateAndGet(t *testing.T) {
	runs := newTestStore(t).Runs()

	run := newRun("edge", "gpu")
	if err := runs.Create(run); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if run.StartedAt.IsZero() {
		t.Error("Create() should set StartedAt")
	}

	got, err := runs.GetByID(run.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Filter != "edge" || got.Backend != "gpu" || got.Resolution != "1280x720" {
		t.Errorf("GetByID() = %+v", got)
	}
	if got.FinishedAt != nil {
		t.Error("unfinished run should have no FinishedAt")
	}
}

func TestRunRepository_GetByID_NotFound(t *testing.T) {
	runs := newTestStore(t).Runs()

	if _, err := runs.GetByID("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestRunRepository_Finish(t *testing.T) {
	runs := newTestStore(t).Runs()

	run := newRun("none", "cpu")
	if err := runs.Create(run); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := runs.Finish(run.ID, 300, 16.5, 1.25); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	got, err := runs.GetByID(run.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Frames != 300 || got.MeanMs != 16.5 || got.StdDevMs != 1.25 {
		t.Errorf("finished run = %+v", got)
	}
	if got.FinishedAt == nil {
		t.Error("finished run should have FinishedAt")
	}

	if err := runs.Finish("missing", 1, 1, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("Finish(missing) error = %v, want ErrNotFound", err)
	}
}

func TestRunRepository_Frames(t *testing.T) {
	runs := newTestStore(t).Runs()

	run := newRun("pixelate", "cpu")
	if err := runs.Create(run); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	want := timings(10, 12, 14)
	if err := runs.AddFrames(run.ID, want); err != nil {
		t.Fatalf("AddFrames() error = %v", err)
	}

	got, err := runs.Frames(run.ID)
	if err != nil {
		t.Fatalf("Frames() error = %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Frames() returned %d rows, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("frame %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestRunRepository_AddFrames_UnknownRun(t *testing.T) {
	runs := newTestStore(t).Runs()

	if err := runs.AddFrames("missing", timings(1)); err == nil {
		t.Error("AddFrames() for an unknown run should violate the foreign key")
	}
}

func TestRunRepository_List(t *testing.T) {
	runs := newTestStore(t).Runs()

	older := newRun("none", "gpu")
	older.StartedAt = time.Now().Add(-time.Hour)
	newer := newRun("gray", "gpu")
	for _, r := range []*Run{older, newer} {
		if err := runs.Create(r); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	list, err := runs.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List() returned %d runs, want 2", len(list))
	}
	if list[0].ID != newer.ID {
		t.Error("List() should return the newest run first")
	}
}

func TestRunRepository_Delete(t *testing.T) {
	s := newTestStore(t)
	runs := s.Runs()

	run := newRun("edge", "cpu")
	if err := runs.Create(run); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := runs.AddFrames(run.ID, timings(5, 6)); err != nil {
		t.Fatalf("AddFrames() error = %v", err)
	}

	if err := runs.Delete(run.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := runs.GetByID(run.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() after Delete() error = %v, want ErrNotFound", err)
	}

	var count int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM frame_timings WHERE run_id = ?`, run.ID).Scan(&count); err != nil {
		t.Fatalf("count frames: %v", err)
	}
	if count != 0 {
		t.Errorf("%d frame timings survived Delete(), want cascade", count)
	}

	if err := runs.Delete(run.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestRunRepository_Summaries(t *testing.T) {
	runs := newTestStore(t).Runs()

	a := newRun("edge", "gpu")
	b := newRun("edge", "gpu")
	c := newRun("edge", "cpu")
	for _, r := range []*Run{a, b, c} {
		if err := runs.Create(r); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	if err := runs.AddFrames(a.ID, timings(2, 4)); err != nil {
		t.Fatal(err)
	}
	if err := runs.AddFrames(b.ID, timings(4, 4, 5, 5, 7, 9)); err != nil {
		t.Fatal(err)
	}
	if err := runs.AddFrames(c.ID, timings(20)); err != nil {
		t.Fatal(err)
	}

	summaries, err := runs.Summaries()
	if err != nil {
		t.Fatalf("Summaries() error = %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("Summaries() returned %d groups, want 2", len(summaries))
	}

	// Ordered by backend within the same filter/build/resolution.
	cpu, gpu := summaries[0], summaries[1]
	if cpu.Backend != "cpu" || gpu.Backend != "gpu" {
		t.Fatalf("unexpected order: %s, %s", cpu.Backend, gpu.Backend)
	}

	if cpu.Runs != 1 || cpu.Frames != 1 || cpu.MeanMs != 20 || cpu.StdDevMs != 0 {
		t.Errorf("cpu summary = %+v", cpu)
	}

	// 2,4,4,4,5,5,7,9: mean 5, sample variance 32/7.
	if gpu.Runs != 2 || gpu.Frames != 8 {
		t.Errorf("gpu summary counts = %+v", gpu)
	}
	if math.Abs(gpu.MeanMs-5) > 1e-9 {
		t.Errorf("gpu MeanMs = %v, want 5", gpu.MeanMs)
	}
	if want := math.Sqrt(32.0 / 7.0); math.Abs(gpu.StdDevMs-want) > 1e-9 {
		t.Errorf("gpu StdDevMs = %v, want %v", gpu.StdDevMs, want)
	}
}

func TestSampleStdDev(t *testing.T) {
	tests := []struct {
		name   string
		n      int
		mean   float64
		meanSq float64
		want   float64
	}{
		{name: "no frames", n: 0, want: 0},
		{name: "one frame", n: 1, mean: 3, meanSq: 9, want: 0},
		{name: "two frames", n: 2, mean: 2, meanSq: 5, want: math.Sqrt2},
		{name: "rounding below zero", n: 3, mean: 1, meanSq: 1 - 1e-18, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sampleStdDev(tt.n, tt.mean, tt.meanSq); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("sampleStdDev() = %v, want %v", got, tt.want)
			}
		})
	}
}
