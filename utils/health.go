package utils

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// HealthStatus represents current status of storage roots and Redis.
type HealthStatus struct {
	Storage   map[string]bool `json:"storage"`
	Redis     *bool           `json:"redis,omitempty"`
	CheckedAt time.Time       `json:"checkedAt"`
}

// Healthy reports whether every checked dependency is up.
func (h HealthStatus) Healthy() bool {
	for _, ok := range h.Storage {
		if !ok {
			return false
		}
	}
	return h.Redis == nil || *h.Redis
}

var (
	currentHealth HealthStatus
	mu            sync.RWMutex
)

// GetHealthStatus returns latest stored health snapshot.
func GetHealthStatus() HealthStatus {
	mu.RLock()
	defer mu.RUnlock()
	return currentHealth
}

// CheckHealth probes each storage root for writability and pings Redis when
// a client is given.
func CheckHealth(ctx context.Context, roots []string, redisClient *redis.Client) HealthStatus {
	status := HealthStatus{Storage: make(map[string]bool, len(roots)), CheckedAt: time.Now()}
	for _, root := range roots {
		status.Storage[root] = writable(root)
	}
	if redisClient != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		ok := redisClient.Ping(pingCtx).Err() == nil
		cancel()
		status.Redis = &ok
	}
	return status
}

// StartHealthMonitor performs periodic health checks and updates in-memory
// state until ctx is done. roots is re-read on every check so a changed save
// path is picked up.
func StartHealthMonitor(ctx context.Context, interval time.Duration, roots func() []string, redisClient *redis.Client) {
	update := func() {
		status := CheckHealth(ctx, roots(), redisClient)
		mu.Lock()
		currentHealth = status
		mu.Unlock()
	}
	update()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				update()
			}
		}
	}()
}

func writable(dir string) bool {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false
	}
	f, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	return os.Remove(filepath.Clean(name)) == nil
}
