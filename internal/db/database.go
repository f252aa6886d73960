package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// Database keeps room activity metadata. File contents are never stored.
type Database struct {
	db *sql.DB
}

type RoomActivity struct {
	ID           string
	Opened       int
	Joins        int
	PeakMembers  int
	LastOpenedAt time.Time
	LastClosedAt time.Time
}

type Stats struct {
	TotalRooms    int `json:"total_rooms"`
	TotalSessions int `json:"total_sessions"`
	TotalJoins    int `json:"total_joins"`
}

func New(dbPath string) (*Database, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// Writes come from a single recorder goroutine.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	log.Info().Str("module", "db").Str("path", dbPath).Msg("journal initialized")
	return &Database{db: db}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS room_activity (
		id TEXT PRIMARY KEY,
		opened INTEGER NOT NULL DEFAULT 0,
		joins INTEGER NOT NULL DEFAULT 0,
		peak_members INTEGER NOT NULL DEFAULT 0,
		last_opened_at INTEGER NOT NULL DEFAULT 0,
		last_closed_at INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_room_activity_opened_at ON room_activity(last_opened_at DESC);
	`
	_, err := db.Exec(schema)
	return err
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) RoomOpened(id string, at time.Time) error {
	_, err := d.db.Exec(`
		INSERT INTO room_activity (id, opened, last_opened_at)
		VALUES (?, 1, ?)
		ON CONFLICT(id) DO UPDATE SET
			opened = opened + 1,
			last_opened_at = excluded.last_opened_at
	`, id, at.Unix())
	return err
}

func (d *Database) MemberJoined(id string, members int) error {
	_, err := d.db.Exec(`
		INSERT INTO room_activity (id, joins, peak_members)
		VALUES (?, 1, ?)
		ON CONFLICT(id) DO UPDATE SET
			joins = joins + 1,
			peak_members = MAX(peak_members, excluded.peak_members)
	`, id, members)
	return err
}

func (d *Database) RoomClosed(id string, at time.Time) error {
	_, err := d.db.Exec(
		"UPDATE room_activity SET last_closed_at = ? WHERE id = ?",
		at.Unix(), id,
	)
	return err
}

// GetRoomActivity returns nil when the room was never seen.
func (d *Database) GetRoomActivity(id string) (*RoomActivity, error) {
	row := d.db.QueryRow(`
		SELECT id, opened, joins, peak_members, last_opened_at, last_closed_at
		FROM room_activity WHERE id = ?
	`, id)

	var a RoomActivity
	var opened, closed int64
	err := row.Scan(&a.ID, &a.Opened, &a.Joins, &a.PeakMembers, &opened, &closed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if opened > 0 {
		a.LastOpenedAt = time.Unix(opened, 0).UTC()
	}
	if closed > 0 {
		a.LastClosedAt = time.Unix(closed, 0).UTC()
	}
	return &a, nil
}

func (d *Database) GetStats() (Stats, error) {
	var s Stats
	err := d.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(opened), 0), COALESCE(SUM(joins), 0)
		FROM room_activity
	`).Scan(&s.TotalRooms, &s.TotalSessions, &s.TotalJoins)
	return s, err
}
