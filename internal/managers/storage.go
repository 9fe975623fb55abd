// Package managers wires optional backends around the monitor loop.
package managers

import (
	"context"
	"fmt"
	"sync"

	"github.com/chrissnell/volcanomonitor/internal/log"
	"github.com/chrissnell/volcanomonitor/internal/storage"
	"github.com/chrissnell/volcanomonitor/internal/storage/sqlite"
	"github.com/chrissnell/volcanomonitor/internal/storage/timescaledb"
	"github.com/chrissnell/volcanomonitor/internal/types"
	"github.com/chrissnell/volcanomonitor/pkg/config"
)

// StorageManager holds our active mirror storage backends
type StorageManager struct {
	Engines            []StorageEngine
	ReadingDistributor chan types.Sample
	Health             *storage.HealthManager
	// History is the SQLite mirror when one is running, for recent-sample queries.
	History *sqlite.Storage
}

// StorageEngine holds a backend storage engine's interface as well as
// a channel for passing samples to the engine
type StorageEngine struct {
	Name   string
	Engine storage.StorageEngineInterface
	C      chan<- types.Sample
}

// NewStorageManager creates a StorageManager object, populated with all
// configured StorageEngines. A backend that cannot be opened is logged, marked
// unhealthy and skipped; mirrors never keep the monitor from booting.
func NewStorageManager(ctx context.Context, wg *sync.WaitGroup, c config.StorageData) *StorageManager {
	s := &StorageManager{
		ReadingDistributor: make(chan types.Sample, 20),
		Health:             storage.NewHealthManager(),
	}

	if c.SQLite != nil {
		engine, err := sqlite.New(ctx, c.SQLite.Path, s.Health)
		if err != nil {
			s.skipEngine(sqlite.StorageType, err)
		} else {
			s.History = engine
			s.AddEngine(ctx, wg, sqlite.StorageType, engine)
		}
	}

	if c.TimescaleDB != nil {
		engine, err := timescaledb.New(ctx, c.TimescaleDB.ConnectionString, s.Health)
		if err != nil {
			s.skipEngine(timescaledb.StorageType, err)
		} else {
			s.AddEngine(ctx, wg, timescaledb.StorageType, engine)
		}
	}

	wg.Add(1)
	go s.startReadingDistributor(ctx, wg)

	return s
}

func (s *StorageManager) skipEngine(name string, err error) {
	log.Errorf("could not add %s storage backend, continuing without it: %v", name, err)
	s.Health.RecordFailure(name, fmt.Errorf("backend unavailable: %w", err))
}

// AddEngine starts engine and registers its input channel.
func (s *StorageManager) AddEngine(ctx context.Context, wg *sync.WaitGroup, name string, engine storage.StorageEngineInterface) {
	s.Engines = append(s.Engines, StorageEngine{
		Name:   name,
		Engine: engine,
		C:      engine.StartStorageEngine(ctx, wg),
	})
}

// Publish hands a sample to the distributor without blocking the caller. A
// full queue drops the sample; mirrors are best-effort.
func (s *StorageManager) Publish(sample types.Sample) {
	select {
	case s.ReadingDistributor <- sample:
	default:
		log.Warn("mirror queue full, dropping sample")
	}
}

// startReadingDistributor receives samples from the monitor and fans them out
// to the various storage backends
func (s *StorageManager) startReadingDistributor(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case r := <-s.ReadingDistributor:
			for _, e := range s.Engines {
				select {
				case e.C <- r:
				case <-ctx.Done():
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}
