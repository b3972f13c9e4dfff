package janitor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"turbotransfer/services/paths"
	"turbotransfer/services/transfer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const sessionID = "3f2b8c1e-9d4a-4c6b-8e7f-1a2b3c4d5e6f"

type staticSavePath string

func (s staticSavePath) SavePath() string { return string(s) }

type layout struct {
	saveRoot     string
	outgoingRoot string
	bundleRoot   string
	now          time.Time
	janitor      *DefaultJanitor
}

func newLayout(t *testing.T) *layout {
	t.Helper()
	base := t.TempDir()
	l := &layout{
		saveRoot:     filepath.Join(base, "received"),
		outgoingRoot: filepath.Join(base, "sessions"),
		bundleRoot:   filepath.Join(base, "bundles"),
		now:          time.Now(),
	}
	resolver := paths.NewResolver(staticSavePath(l.saveRoot), l.outgoingRoot, l.bundleRoot)
	l.janitor = NewJanitor(Options{
		Resolver: resolver,
		Logger:   zaptest.NewLogger(t),
		Now:      func() time.Time { return l.now },
	})
	return l
}

func writeAged(t *testing.T, path string, age time.Duration, now time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
	mtime := now.Add(-age)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func mkdirAged(t *testing.T, path string, age time.Duration, now time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(path, 0o755))
	mtime := now.Add(-age)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func TestSweep_RemovesOnlyStalePlaceholders(t *testing.T) {
	l := newLayout(t)
	incoming := filepath.Join(l.saveRoot, "Laptop")
	outgoing := filepath.Join(l.outgoingRoot, sessionID, paths.OutgoingSegment)

	stale := filepath.Join(incoming, transfer.PlaceholderPrefix+"stale"+transfer.PlaceholderSuffix)
	fresh := filepath.Join(incoming, transfer.PlaceholderPrefix+"fresh"+transfer.PlaceholderSuffix)
	staleOut := filepath.Join(outgoing, transfer.PlaceholderPrefix+"old"+transfer.PlaceholderSuffix)
	oldArtifact := filepath.Join(incoming, "holiday.jpg")

	writeAged(t, stale, 2*time.Minute, l.now)
	writeAged(t, fresh, 10*time.Second, l.now)
	writeAged(t, staleOut, 5*time.Minute, l.now)
	writeAged(t, oldArtifact, 48*time.Hour, l.now)

	res := l.janitor.Sweep(context.Background())
	assert.Equal(t, 2, res.Placeholders)
	assert.Equal(t, 0, res.Failures)

	assert.False(t, exists(stale))
	assert.False(t, exists(staleOut))
	assert.True(t, exists(fresh))
	assert.True(t, exists(oldArtifact), "regular artifacts are never swept")
}

func TestSweep_RemovesExpiredBundlesAndStaging(t *testing.T) {
	l := newLayout(t)
	oldZip := filepath.Join(l.bundleRoot, transfer.BundlePrefix+"old.zip")
	newZip := filepath.Join(l.bundleRoot, transfer.BundlePrefix+"new.zip")
	unrelated := filepath.Join(l.bundleRoot, "keep.zip")
	oldStaging := filepath.Join(l.bundleRoot, transfer.StagingPrefix+"123")

	writeAged(t, oldZip, 2*time.Hour, l.now)
	writeAged(t, newZip, 10*time.Minute, l.now)
	writeAged(t, unrelated, 3*time.Hour, l.now)
	writeAged(t, filepath.Join(oldStaging, "file.txt"), 2*time.Hour, l.now)
	mkdirAged(t, oldStaging, 2*time.Hour, l.now)

	res := l.janitor.Sweep(context.Background())
	assert.Equal(t, 2, res.Bundles)

	assert.False(t, exists(oldZip))
	assert.False(t, exists(oldStaging))
	assert.True(t, exists(newZip))
	assert.True(t, exists(unrelated))
}

func TestSweep_MissingRootsAreNotFailures(t *testing.T) {
	l := newLayout(t)

	res := l.janitor.Sweep(context.Background())
	assert.Equal(t, SweepResult{}, res)
}

func TestSweep_IsIdempotent(t *testing.T) {
	l := newLayout(t)
	stale := filepath.Join(l.saveRoot, "Phone", transfer.PlaceholderPrefix+"x"+transfer.PlaceholderSuffix)
	writeAged(t, stale, time.Hour, l.now)

	first := l.janitor.Sweep(context.Background())
	second := l.janitor.Sweep(context.Background())
	assert.Equal(t, 1, first.Placeholders)
	assert.Equal(t, SweepResult{}, second)
}

func TestPurgeOlderThan(t *testing.T) {
	l := newLayout(t)
	oldIn := filepath.Join(l.saveRoot, "Laptop", "old.txt")
	newIn := filepath.Join(l.saveRoot, "Laptop", "new.txt")
	oldOut := filepath.Join(l.outgoingRoot, sessionID, paths.OutgoingSegment, "offer.pdf")
	oldDir := filepath.Join(l.saveRoot, "Phone", "album")
	bundle := filepath.Join(l.bundleRoot, transfer.BundlePrefix+"a.zip")

	writeAged(t, oldIn, 3*time.Hour, l.now)
	writeAged(t, newIn, time.Minute, l.now)
	writeAged(t, oldOut, 3*time.Hour, l.now)
	writeAged(t, filepath.Join(oldDir, "pic.jpg"), 3*time.Hour, l.now)
	mkdirAged(t, oldDir, 3*time.Hour, l.now)
	writeAged(t, bundle, 3*time.Hour, l.now)

	removed := l.janitor.PurgeOlderThan(context.Background(), time.Hour)
	assert.Equal(t, 3, removed)

	assert.False(t, exists(oldIn))
	assert.False(t, exists(oldOut))
	assert.False(t, exists(oldDir))
	assert.True(t, exists(newIn))
	assert.True(t, exists(bundle), "bundles are left to the sweep")
}

func TestPurgeOlderThan_ZeroAgeClearsEverything(t *testing.T) {
	l := newLayout(t)
	writeAged(t, filepath.Join(l.saveRoot, "Laptop", "a.txt"), time.Second, l.now)
	writeAged(t, filepath.Join(l.saveRoot, "Laptop", "b.txt"), time.Second, l.now)

	assert.Equal(t, 2, l.janitor.PurgeOlderThan(context.Background(), 0))
	assert.Equal(t, 0, l.janitor.PurgeOlderThan(context.Background(), 0))
}

func TestNewJanitor_Defaults(t *testing.T) {
	j := NewJanitor(Options{Resolver: paths.NewResolver(staticSavePath(t.TempDir()), t.TempDir(), t.TempDir())})
	assert.Equal(t, DefaultPlaceholderMaxAge, j.placeholderMaxAge)
	assert.Equal(t, DefaultBundleMaxAge, j.bundleMaxAge)
	assert.NotNil(t, j.logger)
	assert.NotNil(t, j.now)
}
