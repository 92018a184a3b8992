// Package persistence stores terrain, scouts, and step trails in SQLite or
// PostgreSQL.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/talgya/ridgewalk/internal/agents"
	"github.com/talgya/ridgewalk/internal/engine"
	"github.com/talgya/ridgewalk/internal/world"
)

// DB wraps a database connection for expedition persistence.
type DB struct {
	conn   *sqlx.DB
	driver string
}

// Open opens or creates the database named by dsn. postgres:// and
// postgresql:// URLs use PostgreSQL; anything else is a SQLite file path.
func Open(dsn string) (*DB, error) {
	driver, source := "sqlite", dsn+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver, source = "postgres", dsn
	}

	conn, err := sqlx.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	db := &DB{conn: conn, driver: driver}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Driver returns the database driver name in use.
func (db *DB) Driver() string {
	return db.driver
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS terrain (
			pos_row INTEGER NOT NULL,
			pos_col INTEGER NOT NULL,
			height REAL NOT NULL,
			submerged INTEGER NOT NULL,
			blocks INTEGER NOT NULL,
			PRIMARY KEY (pos_row, pos_col)
		)`,
		`CREATE TABLE IF NOT EXISTS scouts (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			pos_row INTEGER NOT NULL,
			pos_col INTEGER NOT NULL,
			orientation INTEGER NOT NULL,
			steps BIGINT NOT NULL,
			leaps BIGINT NOT NULL,
			looping INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS trail (
			run_id TEXT NOT NULL,
			tick BIGINT NOT NULL,
			scout_id BIGINT NOT NULL,
			action INTEGER NOT NULL,
			from_row INTEGER NOT NULL,
			from_col INTEGER NOT NULL,
			pos_row INTEGER NOT NULL,
			pos_col INTEGER NOT NULL,
			orientation INTEGER NOT NULL,
			PRIMARY KEY (run_id, tick, scout_id)
		)`,
		`CREATE TABLE IF NOT EXISTS world_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trail_scout ON trail(run_id, scout_id)`,
	}
	for _, stmt := range schema {
		if _, err := db.conn.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// SaveTerrain writes the classified columns of f (full replace) along with
// its shape.
func (db *DB) SaveTerrain(f *world.Field) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM terrain"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(tx.Rebind(`INSERT INTO terrain
		(pos_row, pos_col, height, submerged, blocks) VALUES (?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range world.Columns(f) {
		if _, err := stmt.Exec(c.Coord.Row, c.Coord.Col, c.Height, boolInt(c.Submerged), c.Blocks); err != nil {
			return fmt.Errorf("insert terrain %s: %w", c.Coord, err)
		}
	}

	meta := map[string]string{
		"terrain_rows":    strconv.Itoa(f.Rows()),
		"terrain_columns": strconv.Itoa(f.Columns()),
		"terrain_backing": f.Backing().String(),
		"terrain_seed":    strconv.FormatInt(f.Seed(), 10),
	}
	for k, v := range meta {
		if _, err := tx.Exec(tx.Rebind(upsertMeta), k, v); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}

	return tx.Commit()
}

type columnRow struct {
	Row       int     `db:"pos_row"`
	Col       int     `db:"pos_col"`
	Height    float64 `db:"height"`
	Submerged int     `db:"submerged"`
	Blocks    int     `db:"blocks"`
}

// LoadColumns returns the stored terrain in row-major order.
func (db *DB) LoadColumns() ([]world.Column, error) {
	var rows []columnRow
	err := db.conn.Select(&rows,
		"SELECT pos_row, pos_col, height, submerged, blocks FROM terrain ORDER BY pos_row, pos_col")
	if err != nil {
		return nil, err
	}
	out := make([]world.Column, 0, len(rows))
	for _, r := range rows {
		out = append(out, world.Column{
			Coord:     world.Coord{Row: r.Row, Col: r.Col},
			Height:    r.Height,
			Submerged: r.Submerged != 0,
			Blocks:    r.Blocks,
		})
	}
	return out, nil
}

// SaveScouts writes all scouts to the database (full replace).
func (db *DB) SaveScouts(scouts []engine.ScoutView) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := writeScouts(tx, scouts); err != nil {
		return err
	}
	return tx.Commit()
}

func writeScouts(tx *sqlx.Tx, scouts []engine.ScoutView) error {
	if _, err := tx.Exec("DELETE FROM scouts"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(tx.Rebind(`INSERT INTO scouts
		(id, name, pos_row, pos_col, orientation, steps, leaps, looping)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range scouts {
		_, err := stmt.Exec(
			int64(s.ID), s.Name, s.Position.Row, s.Position.Col,
			int(s.Orientation), int64(s.Steps), int64(s.Leaps), boolInt(s.Looping),
		)
		if err != nil {
			return fmt.Errorf("insert scout %d: %w", s.ID, err)
		}
	}
	return nil
}

type scoutRow struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	Row         int    `db:"pos_row"`
	Col         int    `db:"pos_col"`
	Orientation int    `db:"orientation"`
	Steps       int64  `db:"steps"`
	Leaps       int64  `db:"leaps"`
	Looping     int    `db:"looping"`
}

// LoadScouts rebuilds saved scouts on terrain. A saved position that is no
// longer on the terrain is an error.
func (db *DB) LoadScouts(terrain agents.Terrain) ([]*agents.Scout, error) {
	var rows []scoutRow
	err := db.conn.Select(&rows,
		"SELECT id, name, pos_row, pos_col, orientation, steps, leaps, looping FROM scouts ORDER BY id")
	if err != nil {
		return nil, err
	}

	scouts := make([]*agents.Scout, 0, len(rows))
	for _, r := range rows {
		s, err := agents.NewScout(
			agents.ScoutID(r.ID), r.Name,
			world.Coord{Row: r.Row, Col: r.Col}, world.Direction(r.Orientation),
			terrain,
		)
		if err != nil {
			return nil, fmt.Errorf("load scout %d: %w", r.ID, err)
		}
		s.Restore(uint64(r.Steps), uint64(r.Leaps))
		scouts = append(scouts, s)
	}
	return scouts, nil
}

// SaveTrail appends step events for a run.
func (db *DB) SaveTrail(runID string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := writeTrail(tx, runID, events); err != nil {
		return err
	}
	return tx.Commit()
}

func writeTrail(tx *sqlx.Tx, runID string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	stmt, err := tx.Preparex(tx.Rebind(`INSERT INTO trail
		(run_id, tick, scout_id, action, from_row, from_col, pos_row, pos_col, orientation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		_, err := stmt.Exec(
			runID, int64(e.Tick), int64(e.ScoutID), int(e.Kind),
			e.From.Row, e.From.Col, e.To.Row, e.To.Col, int(e.Facing),
		)
		if err != nil {
			return fmt.Errorf("insert trail tick %d scout %d: %w", e.Tick, e.ScoutID, err)
		}
	}
	return nil
}

type trailRow struct {
	Tick        int64 `db:"tick"`
	ScoutID     int64 `db:"scout_id"`
	Action      int   `db:"action"`
	FromRow     int   `db:"from_row"`
	FromCol     int   `db:"from_col"`
	Row         int   `db:"pos_row"`
	Col         int   `db:"pos_col"`
	Orientation int   `db:"orientation"`
}

// Trail returns the most recent limit steps of one scout in a run, oldest
// first.
func (db *DB) Trail(runID string, scoutID agents.ScoutID, limit int) ([]engine.Event, error) {
	var rows []trailRow
	err := db.conn.Select(&rows, db.conn.Rebind(`SELECT tick, scout_id, action, from_row, from_col, pos_row, pos_col, orientation
		FROM trail WHERE run_id = ? AND scout_id = ? ORDER BY tick DESC LIMIT ?`),
		runID, int64(scoutID), limit,
	)
	if err != nil {
		return nil, err
	}

	out := make([]engine.Event, len(rows))
	for i, r := range rows {
		out[len(rows)-1-i] = engine.Event{
			Tick:    uint64(r.Tick),
			ScoutID: agents.ScoutID(r.ScoutID),
			Kind:    agents.ActionKind(r.Action),
			From:    world.Coord{Row: r.FromRow, Col: r.FromCol},
			To:      world.Coord{Row: r.Row, Col: r.Col},
			Facing:  world.Direction(r.Orientation),
		}
	}
	return out, nil
}

const upsertMeta = `INSERT INTO world_meta (key, value) VALUES (?, ?)
	ON CONFLICT (key) DO UPDATE SET value = excluded.value`

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(db.conn.Rebind(upsertMeta), key, value)
	return err
}

// GetMeta retrieves a metadata value. A missing key returns sql.ErrNoRows.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, db.conn.Rebind("SELECT value FROM world_meta WHERE key = ?"), key)
	return value, err
}

// HasWorldState reports whether scouts have been saved before.
func (db *DB) HasWorldState() bool {
	var n int
	if err := db.conn.Get(&n, "SELECT COUNT(*) FROM scouts"); err != nil {
		slog.Warn("world state check failed", "error", err)
		return false
	}
	return n > 0
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// ResumeRunID returns the saved run identifier, or a new one if none was
// saved.
func (db *DB) ResumeRunID() (string, error) {
	id, err := db.GetMeta("run_id")
	switch {
	case err == nil && id != "":
		return id, nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return "", err
	}
	return NewRunID(), nil
}

// SaveExpedition performs a full save of scouts, new trail steps, the last
// tick, and the run id in one transaction. If the save fails the drained
// steps are handed back to x for the next attempt.
func (db *DB) SaveExpedition(runID string, x *engine.Expedition) error {
	scouts := x.Scouts()
	tick := x.CurrentTick()
	events := x.DrainPending()
	slog.Info("saving expedition", "run", runID, "scouts", len(scouts), "steps", len(events))

	if err := db.saveExpedition(runID, tick, scouts, events); err != nil {
		x.Requeue(events)
		return err
	}

	slog.Info("expedition saved")
	return nil
}

func (db *DB) saveExpedition(runID string, tick uint64, scouts []engine.ScoutView, events []engine.Event) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := writeScouts(tx, scouts); err != nil {
		return fmt.Errorf("save scouts: %w", err)
	}
	if err := writeTrail(tx, runID, events); err != nil {
		return fmt.Errorf("save trail: %w", err)
	}
	meta := [][2]string{
		{"last_tick", strconv.FormatUint(tick, 10)},
		{"run_id", runID},
	}
	for _, kv := range meta {
		if _, err := tx.Exec(tx.Rebind(upsertMeta), kv[0], kv[1]); err != nil {
			return fmt.Errorf("save meta %s: %w", kv[0], err)
		}
	}
	return tx.Commit()
}
