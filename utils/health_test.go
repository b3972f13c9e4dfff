package utils

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCheckHealth(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "new", "root")
	blocker := filepath.Join(dir, "file")
	assert.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	status := CheckHealth(context.Background(), []string{dir, missing, filepath.Join(blocker, "sub")}, nil)
	assert.True(t, status.Storage[dir])
	assert.True(t, status.Storage[missing], "missing roots are created")
	assert.False(t, status.Storage[filepath.Join(blocker, "sub")])
	assert.Nil(t, status.Redis)
	assert.False(t, status.Healthy())

	entries, err := os.ReadDir(dir)
	assert.NoError(t, err)
	assert.Len(t, entries, 2, "probe files are cleaned up")
}

func TestStartHealthMonitor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dir := t.TempDir()

	StartHealthMonitor(ctx, time.Hour, func() []string { return []string{dir} }, nil)
	status := GetHealthStatus()
	assert.True(t, status.Healthy())
	assert.False(t, status.CheckedAt.IsZero())
}
