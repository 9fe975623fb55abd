// Package timescaledb mirrors samples into a TimescaleDB hypertable.
package timescaledb

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/chrissnell/volcanomonitor/internal/database"
	"github.com/chrissnell/volcanomonitor/internal/log"
	"github.com/chrissnell/volcanomonitor/internal/storage"
	"github.com/chrissnell/volcanomonitor/internal/types"
)

// StorageType names this backend in health reports.
const StorageType = "timescaledb"

// Storage holds the configuration for a TimescaleDB storage backend
type Storage struct {
	TimescaleDBConn *gorm.DB
	health          *storage.HealthManager
}

// sampleRow maps types.Sample onto the hypertable.
type sampleRow types.Sample

// TableName customizes the table name for gorm
func (sampleRow) TableName() string {
	return "volcano_samples"
}

// StartStorageEngine creates a goroutine loop to receive samples and send
// them off to TimescaleDB
func (t *Storage) StartStorageEngine(ctx context.Context, wg *sync.WaitGroup) chan<- types.Sample {
	log.Info("starting TimescaleDB storage engine...")
	sampleChan := make(chan types.Sample, 10)
	wg.Add(1)
	go t.processSamples(ctx, wg, sampleChan)
	return sampleChan
}

func (t *Storage) processSamples(ctx context.Context, wg *sync.WaitGroup, schan <-chan types.Sample) {
	defer wg.Done()

	for {
		select {
		case s := <-schan:
			if err := t.StoreSample(ctx, s); err != nil {
				log.Errorf("could not store sample in TimescaleDB: %v", err)
			}
		case <-ctx.Done():
			log.Info("cancellation request received. Stopping TimescaleDB storage engine.")
			return
		}
	}
}

// StoreSample stores a sample in TimescaleDB
func (t *Storage) StoreSample(ctx context.Context, s types.Sample) error {
	row := sampleRow(s)
	err := t.TimescaleDBConn.WithContext(ctx).Create(&row).Error
	if err != nil {
		t.health.RecordFailure(StorageType, err)
		return err
	}
	t.health.RecordSuccess(StorageType)
	return nil
}

// New sets up a new TimescaleDB storage backend
func New(ctx context.Context, connectionString string, health *storage.HealthManager) (*Storage, error) {
	conn, err := database.CreateConnection(connectionString)
	if err != nil {
		return nil, err
	}
	return bootstrap(ctx, &Storage{TimescaleDBConn: conn, health: health})
}

// bootstrap creates the schema, closing the connection if any step fails.
func bootstrap(ctx context.Context, t *Storage) (*Storage, error) {
	conn := t.TimescaleDBConn

	steps := []struct {
		desc string
		sql  string
	}{
		{"creating database table", createTableSQL},
		{"creating TimescaleDB extension", createExtensionSQL},
		{"creating hypertable", createHypertableSQL},
		{"creating session index", createSessionIndexSQL},
	}
	for _, step := range steps {
		log.Infof("%s...", step.desc)
		if err := conn.WithContext(ctx).Exec(step.sql).Error; err != nil {
			log.Warnf("warning: %s failed: %v", step.desc, err)
			if cerr := t.Close(); cerr != nil {
				log.Warnf("could not close TimescaleDB connection: %v", cerr)
			}
			return nil, fmt.Errorf("%s: %w", step.desc, err)
		}
	}

	return t, nil
}

// Close releases the underlying connection pool.
func (t *Storage) Close() error {
	sqlDB, err := t.TimescaleDBConn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
