// Package sqlite mirrors samples into a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/chrissnell/volcanomonitor/internal/log"
	"github.com/chrissnell/volcanomonitor/internal/storage"
	"github.com/chrissnell/volcanomonitor/internal/types"
)

// StorageType names this backend in health reports.
const StorageType = "sqlite"

const createTableSQL = `
CREATE TABLE IF NOT EXISTS samples (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	time         TEXT    NOT NULL,
	session_id   TEXT    NOT NULL,
	water_temp   REAL    NOT NULL,
	flow_rate    REAL    NOT NULL,
	so2          REAL    NOT NULL,
	h2s          REAL    NOT NULL,
	risk_score   REAL    NOT NULL,
	alert_status TEXT    NOT NULL
)`

const insertSQL = `
INSERT INTO samples (time, session_id, water_temp, flow_rate, so2, h2s, risk_score, alert_status)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// Storage holds the connection to the SQLite mirror
type Storage struct {
	db     *sql.DB
	health *storage.HealthManager
}

// New opens (creating if needed) the database at path.
func New(ctx context.Context, path string, health *storage.HealthManager) (*Storage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// modernc's driver serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create samples table: %w", err)
	}

	log.Infof("SQLite mirror ready at %s", path)
	return &Storage{db: db, health: health}, nil
}

// StartStorageEngine creates a goroutine loop to receive samples and write
// them to SQLite
func (s *Storage) StartStorageEngine(ctx context.Context, wg *sync.WaitGroup) chan<- types.Sample {
	log.Info("starting SQLite storage engine...")
	sampleChan := make(chan types.Sample, 10)
	wg.Add(1)
	go s.processSamples(ctx, wg, sampleChan)
	return sampleChan
}

func (s *Storage) processSamples(ctx context.Context, wg *sync.WaitGroup, schan <-chan types.Sample) {
	defer wg.Done()
	defer s.db.Close()

	for {
		select {
		case sample := <-schan:
			if err := s.StoreSample(ctx, sample); err != nil {
				log.Errorf("could not store sample in SQLite: %v", err)
			}
		case <-ctx.Done():
			log.Info("cancellation request received. Stopping SQLite storage engine.")
			return
		}
	}
}

// StoreSample inserts one sample.
func (s *Storage) StoreSample(ctx context.Context, sample types.Sample) error {
	_, err := s.db.ExecContext(ctx, insertSQL,
		sample.Timestamp.UTC().Format(time.RFC3339Nano),
		sample.SessionID,
		sample.WaterTemp,
		sample.FlowRate,
		sample.SO2,
		sample.H2S,
		sample.RiskScore,
		sample.Status,
	)
	if err != nil {
		s.health.RecordFailure(StorageType, err)
		return err
	}
	s.health.RecordSuccess(StorageType)
	return nil
}

// Recent returns up to limit samples, newest first.
func (s *Storage) Recent(ctx context.Context, limit int) ([]types.Sample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT time, session_id, water_temp, flow_rate, so2, h2s, risk_score, alert_status
		FROM samples ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var samples []types.Sample
	for rows.Next() {
		var ts string
		var sample types.Sample
		if err := rows.Scan(&ts, &sample.SessionID, &sample.WaterTemp, &sample.FlowRate,
			&sample.SO2, &sample.H2S, &sample.RiskScore, &sample.Status); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		sample.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("bad timestamp %q: %w", ts, err)
		}
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}

// Close releases the database. Only needed when the engine was never started.
func (s *Storage) Close() error {
	return s.db.Close()
}
