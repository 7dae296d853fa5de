package sqlite

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"certdash/internal/pipeline"
)

// Snapshot is the headline state of one dashboard computation.
type Snapshot struct {
	ID              int64     `json:"id"`
	TakenAt         time.Time `json:"taken_at"`
	Source          string    `json:"source"`
	Total           int       `json:"total"`
	Years           int       `json:"years"`
	Months          int       `json:"months"`
	Topics          int       `json:"topics"`
	Organizations   int       `json:"organizations"`
	TopTopic        string    `json:"top_topic"`
	TopOrganization string    `json:"top_organization"`
}

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		taken_at         DATETIME NOT NULL,
		source           TEXT NOT NULL DEFAULT '',
		total            INTEGER NOT NULL,
		years            INTEGER NOT NULL DEFAULT 0,
		months           INTEGER NOT NULL DEFAULT 0,
		topics           INTEGER NOT NULL DEFAULT 0,
		organizations    INTEGER NOT NULL DEFAULT 0,
		top_topic        TEXT NOT NULL DEFAULT '',
		top_organization TEXT NOT NULL DEFAULT '',
		created_at       DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_taken_at ON snapshots(taken_at);
	`
	_, err = db.Exec(schema)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// SnapshotFromDashboard captures d's headline numbers. The top categories are
// the last entries of the ascending groupings.
func SnapshotFromDashboard(d *pipeline.Dashboard, takenAt time.Time) Snapshot {
	s := Snapshot{
		TakenAt:       takenAt,
		Source:        d.Source,
		Total:         d.Summary.Total,
		Years:         d.Summary.Years,
		Months:        d.Summary.Months,
		Topics:        len(d.Topics),
		Organizations: len(d.Organizations),
	}
	if n := len(d.Topics); n > 0 {
		s.TopTopic = d.Topics[n-1].Label
	}
	if n := len(d.Organizations); n > 0 {
		s.TopOrganization = d.Organizations[n-1].Label
	}
	return s
}

func InsertSnapshot(db *sql.DB, s Snapshot) (int64, error) {
	res, err := db.Exec(
		`INSERT INTO snapshots (taken_at, source, total, years, months, topics, organizations, top_topic, top_organization)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.TakenAt, s.Source, s.Total, s.Years, s.Months, s.Topics, s.Organizations, s.TopTopic, s.TopOrganization,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecentSnapshots returns up to limit snapshots, newest first.
func RecentSnapshots(db *sql.DB, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := db.Query(
		`SELECT id, taken_at, source, total, years, months, topics, organizations, top_topic, top_organization
		 FROM snapshots ORDER BY taken_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var s Snapshot
		err := rows.Scan(
			&s.ID, &s.TakenAt, &s.Source, &s.Total, &s.Years, &s.Months,
			&s.Topics, &s.Organizations, &s.TopTopic, &s.TopOrganization,
		)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

// LatestSnapshot returns the most recent snapshot; ok is false when none exist.
func LatestSnapshot(db *sql.DB) (Snapshot, bool, error) {
	snapshots, err := RecentSnapshots(db, 1)
	if err != nil || len(snapshots) == 0 {
		return Snapshot{}, false, err
	}
	return snapshots[0], true, nil
}

// PruneSnapshots deletes snapshots taken before cutoff.
func PruneSnapshots(db *sql.DB, cutoff time.Time) (int64, error) {
	res, err := db.Exec(`DELETE FROM snapshots WHERE taken_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
