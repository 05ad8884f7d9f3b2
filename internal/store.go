package internal

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go sqlite
)

// Store persists per-frame pipeline results for the monitoring API.
type Store struct {
	db *sql.DB
}

// FrameRecord is one persisted pipeline result.
type FrameRecord struct {
	ID             int64   `json:"id"`
	Camera         string  `json:"camera"`
	ImageFile      string  `json:"imageFile"`
	Success        bool    `json:"success"`
	Skipped        bool    `json:"skipped"`
	SkipReason     string  `json:"skipReason,omitempty"`
	Classification string  `json:"classification,omitempty"`
	ThreatLevel    string  `json:"threatLevel,omitempty"`
	ThreatScore    int     `json:"threatScore"`
	AlertSent      bool    `json:"alertSent"`
	AlertDebounced bool    `json:"alertDebounced"`
	ProcessingMs   float64 `json:"processingMs"`
	CreatedAt      int64   `json:"createdAt"`
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS frames (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	camera TEXT NOT NULL,
	image_file TEXT NOT NULL,
	success INTEGER NOT NULL,
	skipped INTEGER NOT NULL DEFAULT 0,
	skip_reason TEXT DEFAULT '',
	classification TEXT DEFAULT '',
	threat_level TEXT DEFAULT '',
	threat_score INTEGER DEFAULT 0,
	alert_sent INTEGER NOT NULL DEFAULT 0,
	alert_debounced INTEGER NOT NULL DEFAULT 0,
	processing_ms REAL DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_frames_created ON frames(created_at);
CREATE INDEX IF NOT EXISTS idx_frames_level ON frames(threat_level);
`

// OpenStore opens (and if needed creates) the result database.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=memory",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA journal_mode=WAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to configure database pragma: %w", err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// RecordResult inserts one pipeline result.
func (s *Store) RecordResult(camera string, r *Result) error {
	level := ""
	score := 0
	if r.ThreatAnalysis != nil {
		level = string(r.ThreatAnalysis.Level)
		score = r.ThreatAnalysis.Score
	}

	_, err := s.db.Exec(`
INSERT INTO frames (camera, image_file, success, skipped, skip_reason, classification,
	threat_level, threat_score, alert_sent, alert_debounced, processing_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		camera, r.ImageFile, boolInt(r.Success), boolInt(r.Skipped), r.SkipReason,
		r.Classification, level, score, boolInt(r.AlertSent), boolInt(r.AlertDebounced),
		r.ProcessingMs, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to record frame result: %w", err)
	}
	return nil
}

// RecentResults returns the newest records, most recent first.
func (s *Store) RecentResults(limit int) ([]FrameRecord, error) {
	rows, err := s.db.Query(`
SELECT id, camera, image_file, success, skipped, skip_reason, classification,
	threat_level, threat_score, alert_sent, alert_debounced, processing_ms, created_at
FROM frames ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []FrameRecord
	for rows.Next() {
		var rec FrameRecord
		var success, skipped, alertSent, alertDebounced int
		if err := rows.Scan(&rec.ID, &rec.Camera, &rec.ImageFile, &success, &skipped,
			&rec.SkipReason, &rec.Classification, &rec.ThreatLevel, &rec.ThreatScore,
			&alertSent, &alertDebounced, &rec.ProcessingMs, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Success = success != 0
		rec.Skipped = skipped != 0
		rec.AlertSent = alertSent != 0
		rec.AlertDebounced = alertDebounced != 0
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountByLevel returns how many frames landed at each threat level.
func (s *Store) CountByLevel() (map[string]int64, error) {
	rows, err := s.db.Query(`
SELECT threat_level, COUNT(*) FROM frames
WHERE threat_level != '' GROUP BY threat_level`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var level string
		var n int64
		if err := rows.Scan(&level, &n); err != nil {
			return nil, err
		}
		counts[level] = n
	}
	return counts, rows.Err()
}

// TotalFrames returns the number of recorded frames.
func (s *Store) TotalFrames() (int64, error) {
	var n int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM frames").Scan(&n)
	return n, err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
