package db

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var database *sql.DB

// InitDB opens the SQLite prediction log and creates its schema.
func InitDB(path string) error {
	var err error
	database, err = sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        row_index INTEGER NOT NULL,
        label INTEGER NOT NULL,
        confidence REAL NOT NULL,
        exoplanet_probability REAL NOT NULL,
        false_positive_probability REAL NOT NULL,
        source TEXT NOT NULL,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_created_at
        ON predictions (created_at DESC);
    `

	_, err = database.Exec(query)
	return err
}

// Close releases the database handle. Safe to call when InitDB failed.
func Close() error {
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	return err
}

// PredictionRecord is one logged per-row model output.
type PredictionRecord struct {
	RowIndex                 int       `json:"row_index"`
	Label                    int       `json:"label"`
	Confidence               float64   `json:"confidence"`
	ExoplanetProbability     float64   `json:"exoplanet_probability"`
	FalsePositiveProbability float64   `json:"false_positive_probability"`
	Source                   string    `json:"source"`
	CreatedAt                time.Time `json:"created_at"`
}

// SavePredictions appends one batch to the log in a single transaction.
func SavePredictions(records []PredictionRecord) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := database.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
        INSERT INTO predictions (
            row_index, label, confidence,
            exoplanet_probability, false_positive_probability,
            source, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, r := range records {
		createdAt := r.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		if _, err := stmt.Exec(r.RowIndex, r.Label, r.Confidence,
			r.ExoplanetProbability, r.FalsePositiveProbability,
			r.Source, createdAt); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// QueryRecentPredictions returns the newest logged rows, newest first.
func QueryRecentPredictions(limit int) ([]PredictionRecord, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}

	rows, err := database.Query(`
        SELECT row_index, label, confidence,
               exoplanet_probability, false_positive_probability,
               source, created_at
        FROM predictions
        ORDER BY created_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]PredictionRecord, 0)
	for rows.Next() {
		var r PredictionRecord
		if err := rows.Scan(&r.RowIndex, &r.Label, &r.Confidence,
			&r.ExoplanetProbability, &r.FalsePositiveProbability,
			&r.Source, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
