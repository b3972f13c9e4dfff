package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// SettingsSnapshot is the JSON view of the live transfer settings.
type SettingsSnapshot struct {
	SavePath            string `json:"save_path"`
	SafetyFilter        bool   `json:"safety_filter"`
	OverwriteDuplicates bool   `json:"overwrite_duplicates"`
}

// Settings holds the values that can change while the server runs. Readers
// always see the latest value, so a change applies to the next transfer.
type Settings struct {
	mu                  sync.RWMutex
	savePath            string
	safetyFilter        bool
	overwriteDuplicates bool
}

// NewSettings seeds live settings from the loaded configuration.
func NewSettings(cfg Config) *Settings {
	return &Settings{
		savePath:            cfg.SavePath,
		safetyFilter:        cfg.SafetyFilter,
		overwriteDuplicates: cfg.OverwriteDuplicates,
	}
}

func (s *Settings) SavePath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.savePath
}

// SetSavePath switches the incoming store root. The directory is created if
// it does not exist yet.
func (s *Settings) SetSavePath(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("Settings: save path must not be empty")
	}
	path = filepath.Clean(path)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("Settings: failed to create save path %s: %w", path, err)
	}

	s.mu.Lock()
	s.savePath = path
	s.mu.Unlock()
	return nil
}

func (s *Settings) SafetyFilter() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.safetyFilter
}

func (s *Settings) SetSafetyFilter(enabled bool) {
	s.mu.Lock()
	s.safetyFilter = enabled
	s.mu.Unlock()
}

func (s *Settings) OverwriteDuplicates() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overwriteDuplicates
}

func (s *Settings) SetOverwriteDuplicates(enabled bool) {
	s.mu.Lock()
	s.overwriteDuplicates = enabled
	s.mu.Unlock()
}

// Snapshot returns a consistent copy of all live settings.
func (s *Settings) Snapshot() SettingsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SettingsSnapshot{
		SavePath:            s.savePath,
		SafetyFilter:        s.safetyFilter,
		OverwriteDuplicates: s.overwriteDuplicates,
	}
}

// ApplyFrom copies the live keys from v. An empty save path is ignored.
func (s *Settings) ApplyFrom(v *viper.Viper) error {
	if p := v.GetString("SAVE_PATH"); p != "" && p != s.SavePath() {
		if err := s.SetSavePath(p); err != nil {
			return err
		}
	}
	s.SetSafetyFilter(v.GetBool("SAFETY_FILTER"))
	s.SetOverwriteDuplicates(v.GetBool("OVERWRITE_DUPLICATES"))
	return nil
}

// Watch re-applies the config file to the live settings whenever it changes
// on disk. It is a no-op when no config file was found at startup.
func (s *Settings) Watch(logger *zap.Logger) {
	if viper.ConfigFileUsed() == "" {
		return
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		if err := s.ApplyFrom(viper.GetViper()); err != nil {
			logger.Warn("Settings: failed to apply config change", zap.String("file", e.Name), zap.Error(err))
			return
		}
		logger.Info("Settings: reloaded from config file", zap.String("file", e.Name), zap.String("op", e.Op.String()))
	})
	viper.WatchConfig()
}
