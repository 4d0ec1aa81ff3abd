package db

import (
	"database/sql"
	"errors"
	"time"

	"cargoquant/freight"
	_ "github.com/mattn/go-sqlite3"
)

var database *sql.DB

// InitDB initializes the SQLite database
func InitDB(path string) error {
	var err error
	database, err = sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS shipments (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        distance_km REAL NOT NULL,
        weight_kg REAL NOT NULL,
        cargo_type TEXT NOT NULL,
        urgency_days REAL NOT NULL,
        price_usd REAL NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        request_id TEXT NOT NULL,
        distance_km REAL NOT NULL,
        weight_kg REAL NOT NULL,
        cargo_type TEXT NOT NULL,
        urgency_days REAL NOT NULL,
        predicted_price REAL NOT NULL,
        cached INTEGER DEFAULT 0,
        latency_ms REAL DEFAULT 0,
        created_at DATETIME NOT NULL,
        UNIQUE(request_id)
    );
    CREATE TABLE IF NOT EXISTS training_runs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_path TEXT NOT NULL,
        samples INTEGER NOT NULL,
        trees INTEGER NOT NULL,
        max_depth INTEGER NOT NULL,
        mae REAL,
        rmse REAL,
        r2 REAL,
        duration_ms INTEGER,
        trained_at DATETIME NOT NULL
    );
    `

	_, err = database.Exec(query)
	return err
}

// CloseDB closes the database handle
func CloseDB() error {
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	return err
}

// SaveShipments stores generated training records in one transaction
func SaveShipments(records []freight.Record) error {
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
        INSERT INTO shipments (distance_km, weight_kg, cargo_type, urgency_days, price_usd)
        VALUES (?, ?, ?, ?, ?)
    `)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, record := range records {
		if _, err := stmt.Exec(record.DistanceKM, record.WeightKG, string(record.CargoType), record.UrgencyDays, record.PriceUSD); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// QueryShipments returns stored training records, newest first
func QueryShipments(limit int) ([]freight.Record, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	rows, err := database.Query(`
        SELECT distance_km, weight_kg, cargo_type, urgency_days, price_usd
        FROM shipments
        ORDER BY id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []freight.Record
	for rows.Next() {
		var record freight.Record
		var cargo string
		if err := rows.Scan(&record.DistanceKM, &record.WeightKG, &cargo, &record.UrgencyDays, &record.PriceUSD); err != nil {
			return nil, err
		}
		record.CargoType = freight.CargoType(cargo)
		records = append(records, record)
	}
	return records, rows.Err()
}

type PredictionRow struct {
	RequestID      string    `json:"request_id"`
	DistanceKM     float64   `json:"distance_km"`
	WeightKG       float64   `json:"weight_kg"`
	CargoType      string    `json:"cargo_type"`
	UrgencyDays    float64   `json:"urgency_days"`
	PredictedPrice float64   `json:"predicted_price"`
	Cached         bool      `json:"cached"`
	LatencyMS      float64   `json:"latency_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// SavePrediction appends one served quote to the audit log
func SavePrediction(row PredictionRow) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	if row.RequestID == "" {
		return errors.New("request id required")
	}
	_, err := database.Exec(`
        INSERT OR REPLACE INTO predictions (
            request_id, distance_km, weight_kg, cargo_type, urgency_days,
            predicted_price, cached, latency_ms, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		row.RequestID,
		row.DistanceKM,
		row.WeightKG,
		row.CargoType,
		row.UrgencyDays,
		row.PredictedPrice,
		row.Cached,
		row.LatencyMS,
		row.CreatedAt,
	)
	return err
}

// RecentPredictions returns the newest audit rows
func RecentPredictions(limit int) ([]PredictionRow, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	rows, err := database.Query(`
        SELECT request_id, distance_km, weight_kg, cargo_type, urgency_days,
               predicted_price, cached, latency_ms, created_at
        FROM predictions
        ORDER BY id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]PredictionRow, 0, limit)
	for rows.Next() {
		var row PredictionRow
		if err := rows.Scan(&row.RequestID, &row.DistanceKM, &row.WeightKG, &row.CargoType,
			&row.UrgencyDays, &row.PredictedPrice, &row.Cached, &row.LatencyMS, &row.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

type TrainingRun struct {
	ModelPath  string    `json:"model_path"`
	Samples    int       `json:"samples"`
	Trees      int       `json:"trees"`
	MaxDepth   int       `json:"max_depth"`
	MAE        float64   `json:"mae"`
	RMSE       float64   `json:"rmse"`
	R2         float64   `json:"r2"`
	DurationMS int64     `json:"duration_ms"`
	TrainedAt  time.Time `json:"trained_at"`
}

// SaveTrainingRun records one completed training
func SaveTrainingRun(run TrainingRun) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	_, err := database.Exec(`
        INSERT INTO training_runs (
            model_path, samples, trees, max_depth, mae, rmse, r2, duration_ms, trained_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		run.ModelPath,
		run.Samples,
		run.Trees,
		run.MaxDepth,
		run.MAE,
		run.RMSE,
		run.R2,
		run.DurationMS,
		run.TrainedAt,
	)
	return err
}

// LatestTrainingRun returns the most recent run, or nil when none exist
func LatestTrainingRun() (*TrainingRun, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	var run TrainingRun
	err := database.QueryRow(`
        SELECT model_path, samples, trees, max_depth, mae, rmse, r2, duration_ms, trained_at
        FROM training_runs
        ORDER BY trained_at DESC
        LIMIT 1`).Scan(&run.ModelPath, &run.Samples, &run.Trees, &run.MaxDepth,
		&run.MAE, &run.RMSE, &run.R2, &run.DurationMS, &run.TrainedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}
