package managers

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrissnell/volcanomonitor/internal/storage/sqlite"
	"github.com/chrissnell/volcanomonitor/internal/types"
	"github.com/chrissnell/volcanomonitor/pkg/config"
)

type captureEngine struct {
	mu      sync.Mutex
	samples []types.Sample
}

func (c *captureEngine) StartStorageEngine(ctx context.Context, wg *sync.WaitGroup) chan<- types.Sample {
	ch := make(chan types.Sample, 10)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case s := <-ch:
				c.mu.Lock()
				c.samples = append(c.samples, s)
				c.mu.Unlock()
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func (c *captureEngine) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.samples)
}

func TestDistributorFansOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	sm := NewStorageManager(ctx, &wg, config.StorageData{})

	a, b := &captureEngine{}, &captureEngine{}
	sm.AddEngine(ctx, &wg, "a", a)
	sm.AddEngine(ctx, &wg, "b", b)

	for i := 0; i < 5; i++ {
		sm.Publish(types.Sample{WaterTemp: float64(i)})
	}

	require.Eventually(t, func() bool {
		return a.count() == 5 && b.count() == 5
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	wg.Wait()
}

func TestSQLiteMirrorConfigured(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	sm := NewStorageManager(ctx, &wg, config.StorageData{
		SQLite: &config.SQLiteData{Path: filepath.Join(t.TempDir(), "mirror.db")},
	})
	require.Len(t, sm.Engines, 1)
	require.NotNil(t, sm.History)
	assert.Equal(t, sqlite.StorageType, sm.Engines[0].Name)

	sm.Publish(types.NewSample(time.Now(), "s", types.NewRecord(types.Reading{50, 1, 1, 1}, 0.2)))

	require.Eventually(t, func() bool {
		return sm.Health.IsHealthy(sqlite.StorageType, time.Minute)
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	wg.Wait()
}

func TestUnavailableMirrorIsSkipped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	sm := NewStorageManager(ctx, &wg, config.StorageData{
		SQLite: &config.SQLiteData{Path: filepath.Join(t.TempDir(), "missing", "dir", "samples.db")},
	})
	require.NotNil(t, sm)
	assert.Empty(t, sm.Engines)
	assert.Nil(t, sm.History)

	h, ok := sm.Health.GetHealth(sqlite.StorageType)
	require.True(t, ok)
	assert.Equal(t, "unhealthy", h.Status)
	assert.Contains(t, h.Error, "backend unavailable")

	// Publishing with no engines still drains the queue.
	for i := 0; i < 50; i++ {
		sm.Publish(types.Sample{})
	}

	cancel()
	wg.Wait()
}
