package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_SeededFromConfig(t *testing.T) {
	s := NewSettings(Config{SavePath: "incoming", SafetyFilter: true, OverwriteDuplicates: false})

	snap := s.Snapshot()
	assert.Equal(t, "incoming", snap.SavePath)
	assert.True(t, snap.SafetyFilter)
	assert.False(t, snap.OverwriteDuplicates)
}

func TestSettings_SetSavePath_CreatesDirectory(t *testing.T) {
	s := NewSettings(Config{SavePath: "unused"})
	target := filepath.Join(t.TempDir(), "nested", "store")

	require.NoError(t, s.SetSavePath(target))
	assert.Equal(t, target, s.SavePath())

	fi, err := os.Stat(target)
	require.NoError(t, err)
	assert.True(t, fi.IsDir())
}

func TestSettings_SetSavePath_RejectsEmpty(t *testing.T) {
	s := NewSettings(Config{SavePath: "keep"})

	require.Error(t, s.SetSavePath("   "))
	assert.Equal(t, "keep", s.SavePath())
}

func TestSettings_TogglesTakeEffectImmediately(t *testing.T) {
	s := NewSettings(Config{})

	s.SetSafetyFilter(true)
	s.SetOverwriteDuplicates(true)
	assert.True(t, s.SafetyFilter())
	assert.True(t, s.OverwriteDuplicates())

	s.SetSafetyFilter(false)
	assert.False(t, s.SafetyFilter())
}

func TestSettings_ApplyFrom(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "from-viper")
	v := viper.New()
	v.Set("SAVE_PATH", dir)
	v.Set("SAFETY_FILTER", false)
	v.Set("OVERWRITE_DUPLICATES", true)

	s := NewSettings(Config{SavePath: "old", SafetyFilter: true})
	require.NoError(t, s.ApplyFrom(v))

	assert.Equal(t, SettingsSnapshot{SavePath: dir, SafetyFilter: false, OverwriteDuplicates: true}, s.Snapshot())
}
