package store

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Run is one benchmark run and its settings.
type Run struct {
	ID         string     `json:"id"`
	Filter     string     `json:"filter"`
	Backend    string     `json:"backend"`
	Resolution string     `json:"resolution"`
	Transforms string     `json:"transforms"`
	Build      string     `json:"build"`
	Frames     int        `json:"frames"`
	MeanMs     float64    `json:"mean_ms"`
	StdDevMs   float64    `json:"stddev_ms"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// FrameTiming holds the stage durations of one frame in milliseconds.
type FrameTiming struct {
	Index       int     `json:"frame_index"`
	TotalMs     float64 `json:"total_ms"`
	CaptureMs   float64 `json:"capture_ms"`
	ProcessMs   float64 `json:"process_ms"`
	TransformMs float64 `json:"transform_ms"`
	UploadMs    float64 `json:"upload_ms"`
	DrawMs      float64 `json:"draw_ms"`
}

// Summary aggregates the frame times of all runs sharing the same settings.
type Summary struct {
	Filter     string  `json:"filter"`
	Backend    string  `json:"backend"`
	Resolution string  `json:"resolution"`
	Transforms string  `json:"transforms"`
	Build      string  `json:"build"`
	Runs       int     `json:"runs"`
	Frames     int     `json:"frames"`
	MeanMs     float64 `json:"mean_ms"`
	StdDevMs   float64 `json:"stddev_ms"`
}

// RunRepository provides operations for benchmark runs.
type RunRepository struct {
	db *sql.DB
}

// Runs returns the run repository for this store.
func (s *Store) Runs() *RunRepository {
	return &RunRepository{db: s.db}
}

// Create inserts a new run.
func (r *RunRepository) Create(run *Run) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO runs (id, filter, backend, resolution, transforms, build, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Filter, run.Backend, run.Resolution, run.Transforms, run.Build, run.StartedAt,
	)
	return err
}

// AddFrames appends frame timings to a run in one transaction.
func (r *RunRepository) AddFrames(runID string, frames []FrameTiming) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO frame_timings (run_id, frame_index, total_ms, capture_ms, process_ms, transform_ms, upload_ms, draw_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range frames {
		if _, err := stmt.Exec(runID, f.Index, f.TotalMs, f.CaptureMs, f.ProcessMs, f.TransformMs, f.UploadMs, f.DrawMs); err != nil {
			return fmt.Errorf("insert frame %d: %w", f.Index, err)
		}
	}

	return tx.Commit()
}

// Finish records the final statistics of a run.
func (r *RunRepository) Finish(id string, frames int, meanMs, stdDevMs float64) error {
	result, err := r.db.Exec(
		`UPDATE runs SET frames = ?, mean_ms = ?, stddev_ms = ?, finished_at = ? WHERE id = ?`,
		frames, meanMs, stdDevMs, time.Now(), id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

const runColumns = `id, filter, backend, resolution, transforms, build, frames, mean_ms, stddev_ms, started_at, finished_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	run := &Run{}
	var finished sql.NullTime
	err := s.Scan(&run.ID, &run.Filter, &run.Backend, &run.Resolution, &run.Transforms, &run.Build,
		&run.Frames, &run.MeanMs, &run.StdDevMs, &run.StartedAt, &finished)
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	return run, nil
}

// GetByID retrieves a run by its ID.
func (r *RunRepository) GetByID(id string) (*Run, error) {
	run, err := scanRun(r.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return run, nil
}

// List retrieves all runs, newest first.
func (r *RunRepository) List() ([]*Run, error) {
	rows, err := r.db.Query(`SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// Frames returns the frame timings of a run ordered by frame index.
func (r *RunRepository) Frames(runID string) ([]FrameTiming, error) {
	rows, err := r.db.Query(
		`SELECT frame_index, total_ms, capture_ms, process_ms, transform_ms, upload_ms, draw_ms
		 FROM frame_timings WHERE run_id = ? ORDER BY frame_index`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []FrameTiming
	for rows.Next() {
		var f FrameTiming
		if err := rows.Scan(&f.Index, &f.TotalMs, &f.CaptureMs, &f.ProcessMs, &f.TransformMs, &f.UploadMs, &f.DrawMs); err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return frames, nil
}

// Summaries aggregates frame times across runs grouped by filter, build,
// resolution, backend and transforms.
func (r *RunRepository) Summaries() ([]Summary, error) {
	rows, err := r.db.Query(
		`SELECT r.filter, r.backend, r.resolution, r.transforms, r.build,
		        COUNT(DISTINCT r.id), COUNT(f.id), AVG(f.total_ms), AVG(f.total_ms * f.total_ms)
		 FROM runs r JOIN frame_timings f ON f.run_id = r.id
		 GROUP BY r.filter, r.build, r.resolution, r.backend, r.transforms
		 ORDER BY r.filter, r.build, r.resolution, r.backend, r.transforms`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		var meanSq float64
		if err := rows.Scan(&s.Filter, &s.Backend, &s.Resolution, &s.Transforms, &s.Build,
			&s.Runs, &s.Frames, &s.MeanMs, &meanSq); err != nil {
			return nil, err
		}
		s.StdDevMs = sampleStdDev(s.Frames, s.MeanMs, meanSq)
		out = append(out, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// sampleStdDev derives the n-1 standard deviation from E[x] and E[x^2].
func sampleStdDev(n int, mean, meanSq float64) float64 {
	if n < 2 {
		return 0
	}
	variance := (meanSq - mean*mean) * float64(n) / float64(n-1)
	if variance < 0 {
		return 0
	}
	return math.Sqrt(variance)
}

// Delete removes a run and its frame timings.
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
