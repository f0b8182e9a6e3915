package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Runs table - one row per benchmark run
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			filter TEXT NOT NULL,
			backend TEXT NOT NULL CHECK(backend IN ('cpu', 'gpu')),
			resolution TEXT NOT NULL,
			transforms TEXT NOT NULL CHECK(transforms IN ('off', 'cpu', 'gpu')),
			build TEXT NOT NULL,
			frames INTEGER NOT NULL DEFAULT 0,
			mean_ms REAL NOT NULL DEFAULT 0,
			stddev_ms REAL NOT NULL DEFAULT 0,
			started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			finished_at DATETIME
		)`,

		// Frame timings table - per-frame stage durations of a run
		`CREATE TABLE IF NOT EXISTS frame_timings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			frame_index INTEGER NOT NULL,
			total_ms REAL NOT NULL,
			capture_ms REAL NOT NULL DEFAULT 0,
			process_ms REAL NOT NULL DEFAULT 0,
			transform_ms REAL NOT NULL DEFAULT 0,
			upload_ms REAL NOT NULL DEFAULT 0,
			draw_ms REAL NOT NULL DEFAULT 0
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_frame_timings_run_id ON frame_timings(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_settings ON runs(filter, build, resolution, backend)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
