package transfer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"turbotransfer/models"
	"turbotransfer/services/paths"

	"go.uber.org/zap"
)

// List enumerates the artifacts visible to scope, newest first. Placeholders
// and hidden entries are skipped.
func (e *Engine) List(scope paths.Scope) ([]models.Artifact, error) {
	sources, err := e.resolver.Sources(scope)
	if err != nil {
		return nil, err
	}

	out := []models.Artifact{}
	for _, src := range sources {
		entries, err := os.ReadDir(src.Dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("Transfer: failed to list %s: %w", src.Dir, err)
		}
		for _, entry := range entries {
			if strings.HasPrefix(entry.Name(), ".") || IsPlaceholder(entry.Name()) {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				// Removed between ReadDir and Info.
				continue
			}
			full := filepath.Join(src.Dir, entry.Name())
			a := models.Artifact{
				Name:      entry.Name(),
				Size:      info.Size(),
				Modified:  info.ModTime(),
				Direction: src.Direction,
				Tag:       src.Tag,
				IsDir:     info.IsDir(),
			}
			if a.IsDir {
				a.Size = treeSize(full)
			} else if e.thumbnails != nil {
				a.HasThumbnail = e.thumbnails.Available(full)
			}
			out = append(out, a)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Modified.After(out[j].Modified)
	})
	return out, nil
}

// Locate resolves name to the first existing artifact within scope.
func (e *Engine) Locate(name string, scope paths.Scope) (Located, error) {
	for _, candidate := range e.existing(name, scope) {
		info, err := os.Stat(candidate)
		if err != nil {
			continue
		}
		return Located{Path: candidate, IsDir: info.IsDir()}, nil
	}
	return Located{}, &NotFoundError{Name: name}
}

// DeleteMany removes every location each name resolves to within scope.
// Missing paths are skipped. It returns how many paths were removed.
func (e *Engine) DeleteMany(names []string, scope paths.Scope) int {
	removed := 0
	for _, name := range names {
		for _, candidate := range e.existing(name, scope) {
			if err := os.RemoveAll(candidate); err != nil {
				e.logger.Warn("Transfer: failed to delete", zap.String("path", candidate), zap.Error(err))
				continue
			}
			removed++
			e.logger.Info("Transfer: deleted", zap.String("path", candidate))
		}
	}
	return removed
}

// existing returns the candidates for name that are present on disk. In host
// scope an untagged name spans every store, so it only resolves when exactly
// one artifact matches; otherwise the caller must use "tag/name".
func (e *Engine) existing(name string, scope paths.Scope) []string {
	var found []string
	for _, candidate := range e.resolver.Candidates(name, scope) {
		if IsPlaceholder(candidate) {
			continue
		}
		if _, err := os.Lstat(candidate); err != nil {
			continue
		}
		found = append(found, candidate)
	}
	if scope.IsHost() && !paths.IsTagged(name) && len(found) > 1 {
		e.logger.Warn("Transfer: ambiguous untagged name in host scope",
			zap.String("name", name), zap.Int("matches", len(found)))
		return nil
	}
	return found
}

// HandleSessionRemoved deletes the staging area of a session that left the
// registry. It is registered as a registry removal listener.
func (e *Engine) HandleSessionRemoved(sessionID string) {
	root, err := e.resolver.SessionRoot(sessionID)
	if err != nil {
		e.logger.Debug("Transfer: ignoring removal of unusable session id", zap.String("sessionID", sessionID))
		return
	}
	if err := os.RemoveAll(root); err != nil {
		e.logger.Warn("Transfer: failed to remove session store", zap.String("sessionID", sessionID), zap.Error(err))
		return
	}
	e.logger.Debug("Transfer: session store removed", zap.String("sessionID", sessionID))
}

func treeSize(root string) int64 {
	var total int64
	_ = filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	return total
}
