// Package persistence provides SQLite-based storage of simulation runs.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/ivle-sim/internal/agents"
	"github.com/talgya/ivle-sim/internal/metrics"
	"github.com/talgya/ivle-sim/internal/world"
)

// ErrRunNotFound is returned when a run ID has no stored run.
var ErrRunNotFound = errors.New("run not found")

// timeNow returns the current time (replaced in tests).
var timeNow = time.Now

// DB wraps a SQLite connection for run persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
// ":memory:" gives a private in-memory database.
func Open(path string) (*DB, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}

	conn, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite has a single writer; one connection also keeps :memory: databases
	// from splitting across the pool.
	conn.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		start_date TEXT NOT NULL,
		days INTEGER NOT NULL,
		actors INTEGER NOT NULL,
		seed INTEGER NOT NULL,
		login_policy TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS locations (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		objects_json TEXT NOT NULL,
		width REAL NOT NULL,
		length REAL NOT NULL,
		PRIMARY KEY (run_id, name)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		actor_id INTEGER NOT NULL,
		username TEXT NOT NULL,
		engagement_level INTEGER NOT NULL,
		timestamp TEXT NOT NULL,
		activity_type TEXT NOT NULL,
		room TEXT NOT NULL,
		object TEXT,
		duration_s INTEGER NOT NULL,
		details TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS metrics (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		normalised INTEGER NOT NULL,
		actor_id INTEGER NOT NULL,
		username TEXT NOT NULL,
		total_interaction_time REAL NOT NULL,
		interaction_frequency REAL NOT NULL,
		interaction_diversity REAL NOT NULL,
		interaction_depth REAL NOT NULL,
		engagement_score REAL NOT NULL,
		engagement_level INTEGER NOT NULL,
		PRIMARY KEY (run_id, normalised, actor_id)
	);

	CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, seq);
	CREATE INDEX IF NOT EXISTS idx_events_actor ON events(run_id, actor_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Run describes one stored simulation run.
type Run struct {
	ID          string `db:"id" json:"id"`
	StartDate   string `db:"start_date" json:"start_date"`
	Days        int    `db:"days" json:"days"`
	Actors      int    `db:"actors" json:"actors"`
	Seed        int64  `db:"seed" json:"seed"`
	LoginPolicy string `db:"login_policy" json:"login_policy"`
	CreatedAt   string `db:"created_at" json:"created_at"`
}

// Snapshot is everything saved for one run.
type Snapshot struct {
	Run        Run
	Catalog    *world.Catalog
	Events     []agents.Event
	Metrics    []metrics.Row
	Normalised []metrics.Row
}

// SaveRun writes a run and its catalog, events and metrics in a single
// transaction. A run without an ID gets a fresh UUID. Returns the run ID.
func (db *DB) SaveRun(s Snapshot) (string, error) {
	run := s.Run
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt == "" {
		run.CreatedAt = timeNow().UTC().Format(time.RFC3339)
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.NamedExec(`INSERT INTO runs
		(id, start_date, days, actors, seed, login_policy, created_at)
		VALUES (:id, :start_date, :days, :actors, :seed, :login_policy, :created_at)`, run); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	if s.Catalog != nil {
		if err := saveLocations(tx, run.ID, s.Catalog); err != nil {
			return "", err
		}
	}
	if err := saveEvents(tx, run.ID, s.Events); err != nil {
		return "", err
	}
	if err := saveMetrics(tx, run.ID, false, s.Metrics); err != nil {
		return "", err
	}
	if err := saveMetrics(tx, run.ID, true, s.Normalised); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	slog.Info("run saved", "run_id", run.ID, "events", len(s.Events), "actors", len(s.Metrics))
	return run.ID, nil
}

func saveLocations(tx *sqlx.Tx, runID string, c *world.Catalog) error {
	for i, loc := range c.Locations {
		names := make([]string, 0, len(loc.Objects))
		for _, obj := range loc.Objects {
			names = append(names, obj.Name)
		}
		objectsJSON, err := json.Marshal(names)
		if err != nil {
			return fmt.Errorf("encode objects for location %q: %w", loc.Name, err)
		}

		_, err = tx.Exec(`INSERT INTO locations
			(run_id, position, name, objects_json, width, length)
			VALUES (?, ?, ?, ?, ?, ?)`,
			runID, i, loc.Name, string(objectsJSON), loc.Size.Width, loc.Size.Length,
		)
		if err != nil {
			return fmt.Errorf("insert location %q: %w", loc.Name, err)
		}
	}
	return nil
}

func saveEvents(tx *sqlx.Tx, runID string, events []agents.Event) error {
	if len(events) == 0 {
		return nil
	}

	stmt, err := tx.Preparex(`INSERT INTO events
		(run_id, seq, actor_id, username, engagement_level, timestamp,
		 activity_type, room, object, duration_s, details)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range events {
		object := sql.NullString{String: e.Object, Valid: e.Object != ""}
		_, err := stmt.Exec(
			runID, i, uint64(e.ActorID), e.ActorName, int(e.Level),
			e.Timestamp.Format(time.RFC3339Nano), string(e.Activity),
			e.Location, object, int64(e.Duration/time.Second), e.Detail,
		)
		if err != nil {
			return fmt.Errorf("insert event %d: %w", i, err)
		}
	}
	return nil
}

func saveMetrics(tx *sqlx.Tx, runID string, normalised bool, rows []metrics.Row) error {
	flag := 0
	if normalised {
		flag = 1
	}
	for _, r := range rows {
		_, err := tx.Exec(`INSERT INTO metrics
			(run_id, normalised, actor_id, username, total_interaction_time,
			 interaction_frequency, interaction_diversity, interaction_depth,
			 engagement_score, engagement_level)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, flag, uint64(r.ActorID), r.ActorName, r.TotalInteractionTime,
			r.InteractionFrequency, r.InteractionDiversity, r.InteractionDepth,
			r.EngagementScore, int(r.Level),
		)
		if err != nil {
			return fmt.Errorf("insert metrics for actor %d: %w", r.ActorID, err)
		}
	}
	return nil
}

// GetRun returns a stored run by ID.
func (db *DB) GetRun(id string) (Run, error) {
	var run Run
	err := db.conn.Get(&run, "SELECT * FROM runs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return run, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// ListRuns returns every stored run, newest first.
func (db *DB) ListRuns() ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs, "SELECT * FROM runs ORDER BY created_at DESC, id")
	return runs, err
}

type locationRow struct {
	Name        string  `db:"name"`
	ObjectsJSON string  `db:"objects_json"`
	Width       float64 `db:"width"`
	Length      float64 `db:"length"`
}

// LoadCatalog rebuilds the catalog a run was simulated with, in its
// original location order.
func (db *DB) LoadCatalog(runID string) (*world.Catalog, error) {
	var rows []locationRow
	err := db.conn.Select(&rows, `SELECT name, objects_json, width, length
		FROM locations WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}

	specs := make([]world.LocationSpec, 0, len(rows))
	for _, r := range rows {
		var objects []string
		if err := json.Unmarshal([]byte(r.ObjectsJSON), &objects); err != nil {
			return nil, fmt.Errorf("decode objects for location %q: %w", r.Name, err)
		}
		specs = append(specs, world.LocationSpec{
			Name:    r.Name,
			Objects: objects,
			Width:   r.Width,
			Length:  r.Length,
		})
	}

	cat, err := world.NewCatalog(specs)
	if err != nil {
		return nil, fmt.Errorf("rebuild catalog for run %s: %w", runID, err)
	}
	return cat, nil
}

type eventRow struct {
	ActorID   uint64         `db:"actor_id"`
	Username  string         `db:"username"`
	Level     int            `db:"engagement_level"`
	Timestamp string         `db:"timestamp"`
	Activity  string         `db:"activity_type"`
	Room      string         `db:"room"`
	Object    sql.NullString `db:"object"`
	DurationS int64          `db:"duration_s"`
	Details   string         `db:"details"`
}

// LoadEvents returns a run's event log in its original order.
func (db *DB) LoadEvents(runID string) ([]agents.Event, error) {
	var rows []eventRow
	err := db.conn.Select(&rows, `SELECT actor_id, username, engagement_level, timestamp,
		activity_type, room, object, duration_s, details
		FROM events WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}

	events := make([]agents.Event, 0, len(rows))
	for _, r := range rows {
		ts, err := time.Parse(time.RFC3339Nano, r.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", r.Timestamp, err)
		}
		events = append(events, agents.Event{
			ActorID:   agents.ActorID(r.ActorID),
			ActorName: r.Username,
			Level:     agents.Level(r.Level),
			Timestamp: ts,
			Activity:  agents.Activity(r.Activity),
			Location:  r.Room,
			Object:    r.Object.String,
			Duration:  time.Duration(r.DurationS) * time.Second,
			Detail:    r.Details,
		})
	}
	return events, nil
}

type metricsRow struct {
	ActorID   uint64  `db:"actor_id"`
	Username  string  `db:"username"`
	Time      float64 `db:"total_interaction_time"`
	Frequency float64 `db:"interaction_frequency"`
	Diversity float64 `db:"interaction_diversity"`
	Depth     float64 `db:"interaction_depth"`
	Score     float64 `db:"engagement_score"`
	Level     int     `db:"engagement_level"`
}

// LoadMetrics returns a run's metrics table, raw or normalised, ordered by
// actor ID.
func (db *DB) LoadMetrics(runID string, normalised bool) ([]metrics.Row, error) {
	flag := 0
	if normalised {
		flag = 1
	}

	var rows []metricsRow
	err := db.conn.Select(&rows, `SELECT actor_id, username, total_interaction_time,
		interaction_frequency, interaction_diversity, interaction_depth,
		engagement_score, engagement_level
		FROM metrics WHERE run_id = ? AND normalised = ? ORDER BY actor_id`, runID, flag)
	if err != nil {
		return nil, err
	}

	out := make([]metrics.Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, metrics.Row{
			ActorID:              agents.ActorID(r.ActorID),
			ActorName:            r.Username,
			TotalInteractionTime: r.Time,
			InteractionFrequency: r.Frequency,
			InteractionDiversity: r.Diversity,
			InteractionDepth:     r.Depth,
			EngagementScore:      r.Score,
			Level:                agents.Level(r.Level),
		})
	}
	return out, nil
}

// DeleteRun removes a run and everything stored with it.
func (db *DB) DeleteRun(id string) error {
	res, err := db.conn.Exec("DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}
