// internal/database/sqlite.go
package database

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/sstent/garmin-token/internal/garmin"
)

const timeLayout = "2006-01-02 15:04:05"

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(dbPath string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "database ping failed")
	}

	sqlite := &SQLiteDB{db: db}
	if err := sqlite.createTables(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create tables")
	}

	return sqlite, nil
}

func (s *SQLiteDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS activities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		activity_id INTEGER UNIQUE NOT NULL,
		name TEXT,
		start_time DATETIME NOT NULL,
		activity_type TEXT,
		duration INTEGER,
		distance REAL,
		max_heart_rate INTEGER,
		avg_heart_rate INTEGER,
		calories INTEGER,
		recorded_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_activities_start_time ON activities(start_time);
	CREATE INDEX IF NOT EXISTS idx_activities_activity_type ON activities(activity_type);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveActivities upserts activities by activity_id in one transaction and
// returns how many rows were written.
func (s *SQLiteDB) SaveActivities(activities []garmin.Activity) (int, error) {
	if len(activities) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
	INSERT INTO activities (
		activity_id, name, start_time, activity_type, duration, distance,
		max_heart_rate, avg_heart_rate, calories
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(activity_id) DO UPDATE SET
		name = excluded.name,
		start_time = excluded.start_time,
		activity_type = excluded.activity_type,
		duration = excluded.duration,
		distance = excluded.distance,
		max_heart_rate = excluded.max_heart_rate,
		avg_heart_rate = excluded.avg_heart_rate,
		calories = excluded.calories,
		recorded_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, errors.Wrap(err, "failed to prepare upsert")
	}
	defer stmt.Close()

	for _, a := range activities {
		startTime, err := parseStartTime(a.StartTimeLocal)
		if err != nil {
			return 0, errors.Wrapf(err, "activity %d", a.ActivityID)
		}
		_, err = stmt.Exec(
			a.ActivityID, a.ActivityName, startTime.Format(timeLayout),
			a.ActivityType.TypeKey, int(a.Duration), a.Distance,
			int(a.MaxHR), int(a.AvgHR), int(a.Calories),
		)
		if err != nil {
			return 0, errors.Wrapf(err, "failed to save activity %d", a.ActivityID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit")
	}
	return len(activities), nil
}

func (s *SQLiteDB) ActivityExists(activityID int64) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM activities WHERE activity_id = ?`, activityID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Garmin time format: "2023-08-15 12:30:45"
func parseStartTime(timeStr string) (time.Time, error) {
	t, err := time.Parse(timeLayout, timeStr)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid start time %q", timeStr)
	}
	return t, nil
}
