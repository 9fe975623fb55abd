package storage

import (
	"sync"
	"time"
)

// Health is the last known state of one storage backend.
type Health struct {
	LastCheck time.Time `json:"last_check"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	Stored    int64     `json:"stored"`
	Failed    int64     `json:"failed"`
}

// HealthManager manages storage health status in memory
type HealthManager struct {
	mu     sync.RWMutex
	health map[string]*Health
}

// NewHealthManager creates a new health manager
func NewHealthManager() *HealthManager {
	return &HealthManager{
		health: make(map[string]*Health),
	}
}

// RecordSuccess marks a successful store for storageType.
func (hm *HealthManager) RecordSuccess(storageType string) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	h := hm.entry(storageType)
	h.LastCheck = time.Now()
	h.Status = "healthy"
	h.Message = "last write succeeded"
	h.Error = ""
	h.Stored++
}

// RecordFailure marks a failed store for storageType.
func (hm *HealthManager) RecordFailure(storageType string, err error) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	h := hm.entry(storageType)
	h.LastCheck = time.Now()
	h.Status = "unhealthy"
	h.Message = "last write failed"
	h.Error = err.Error()
	h.Failed++
}

func (hm *HealthManager) entry(storageType string) *Health {
	h, ok := hm.health[storageType]
	if !ok {
		h = &Health{}
		hm.health[storageType] = h
	}
	return h
}

// GetHealth retrieves the health status for a specific storage backend
func (hm *HealthManager) GetHealth(storageType string) (Health, bool) {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	health, exists := hm.health[storageType]
	if !exists {
		return Health{}, false
	}
	return *health, true
}

// GetAllHealth retrieves all storage health statuses
func (hm *HealthManager) GetAllHealth() map[string]Health {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	result := make(map[string]Health, len(hm.health))
	for k, v := range hm.health {
		result[k] = *v
	}
	return result
}

// IsHealthy checks if a storage backend is healthy
func (hm *HealthManager) IsHealthy(storageType string, maxAge time.Duration) bool {
	health, exists := hm.GetHealth(storageType)
	if !exists {
		return false
	}

	// Check if health data is stale
	if time.Since(health.LastCheck) > maxAge {
		return false
	}

	return health.Status == "healthy"
}
