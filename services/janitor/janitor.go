package janitor

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"turbotransfer/services/paths"
	"turbotransfer/services/transfer"

	"go.uber.org/zap"
)

const (
	DefaultPlaceholderMaxAge = 60 * time.Second
	DefaultBundleMaxAge      = time.Hour
)

// JanitorService removes stale transfer leftovers.
type JanitorService interface {
	Sweep(ctx context.Context) SweepResult
	PurgeOlderThan(ctx context.Context, age time.Duration) int
}

// SweepResult counts what one sweep removed.
type SweepResult struct {
	Placeholders int `json:"placeholders"`
	Bundles      int `json:"bundles"`
	Failures     int `json:"failures"`
}

type Options struct {
	Resolver          *paths.Resolver
	PlaceholderMaxAge time.Duration
	BundleMaxAge      time.Duration
	Logger            *zap.Logger
	Now               func() time.Time
}

// DefaultJanitor sweeps the save root, the outgoing root and the bundle root.
type DefaultJanitor struct {
	resolver          *paths.Resolver
	placeholderMaxAge time.Duration
	bundleMaxAge      time.Duration
	logger            *zap.Logger
	now               func() time.Time
}

func NewJanitor(opts Options) *DefaultJanitor {
	j := &DefaultJanitor{
		resolver:          opts.Resolver,
		placeholderMaxAge: opts.PlaceholderMaxAge,
		bundleMaxAge:      opts.BundleMaxAge,
		logger:            opts.Logger,
		now:               opts.Now,
	}
	if j.placeholderMaxAge <= 0 {
		j.placeholderMaxAge = DefaultPlaceholderMaxAge
	}
	if j.bundleMaxAge <= 0 {
		j.bundleMaxAge = DefaultBundleMaxAge
	}
	if j.logger == nil {
		j.logger = zap.NewNop()
	}
	if j.now == nil {
		j.now = time.Now
	}
	return j
}

// Sweep removes abandoned placeholders and expired bundles. Errors are
// logged and counted; they never stop the rest of the sweep.
func (j *DefaultJanitor) Sweep(ctx context.Context) SweepResult {
	var res SweepResult
	now := j.now()

	for _, root := range []string{j.resolver.SaveRoot(), j.resolver.OutgoingRoot()} {
		j.sweepPlaceholders(ctx, root, now.Add(-j.placeholderMaxAge), &res)
	}
	j.sweepBundles(ctx, now.Add(-j.bundleMaxAge), &res)

	if res.Placeholders > 0 || res.Bundles > 0 || res.Failures > 0 {
		j.logger.Info("Janitor: sweep finished",
			zap.Int("placeholders", res.Placeholders),
			zap.Int("bundles", res.Bundles),
			zap.Int("failures", res.Failures))
	}
	return res
}

func (j *DefaultJanitor) sweepPlaceholders(ctx context.Context, root string, cutoff time.Time, res *SweepResult) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				j.logger.Warn("Janitor: cannot read", zap.String("path", path), zap.Error(err))
				res.Failures++
			}
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !transfer.IsPlaceholder(d.Name()) {
			return nil
		}
		if j.removeIfOlder(path, d, cutoff, res) {
			res.Placeholders++
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		j.logger.Warn("Janitor: placeholder sweep interrupted", zap.String("root", root), zap.Error(err))
	}
}

func (j *DefaultJanitor) sweepBundles(ctx context.Context, cutoff time.Time, res *SweepResult) {
	root := j.resolver.BundleRoot()
	entries, err := os.ReadDir(root)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			j.logger.Warn("Janitor: cannot read bundle root", zap.String("root", root), zap.Error(err))
			res.Failures++
		}
		return
	}
	for _, e := range entries {
		if ctx.Err() != nil {
			return
		}
		name := e.Name()
		bundle := !e.IsDir() && strings.HasPrefix(name, transfer.BundlePrefix) && strings.HasSuffix(name, ".zip")
		staging := e.IsDir() && strings.HasPrefix(name, transfer.StagingPrefix)
		if !bundle && !staging {
			continue
		}
		if j.removeIfOlder(filepath.Join(root, name), e, cutoff, res) {
			res.Bundles++
		}
	}
}

// removeIfOlder deletes path when it was last modified before cutoff. A path
// that is already gone counts as neither removal nor failure.
func (j *DefaultJanitor) removeIfOlder(path string, d fs.DirEntry, cutoff time.Time, res *SweepResult) bool {
	info, err := d.Info()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			res.Failures++
			j.logger.Warn("Janitor: cannot stat", zap.String("path", path), zap.Error(err))
		}
		return false
	}
	if !info.ModTime().Before(cutoff) {
		return false
	}
	if err := os.RemoveAll(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false
		}
		res.Failures++
		j.logger.Warn("Janitor: failed to remove", zap.String("path", path), zap.Error(err))
		return false
	}
	j.logger.Debug("Janitor: removed", zap.String("path", path))
	return true
}

// PurgeOlderThan removes every artifact in the incoming and outgoing stores
// last modified more than age ago, and returns how many were removed.
func (j *DefaultJanitor) PurgeOlderThan(ctx context.Context, age time.Duration) int {
	if age < 0 {
		age = 0
	}
	sources, err := j.resolver.Sources(paths.Scope{})
	if err != nil {
		j.logger.Warn("Janitor: cannot enumerate stores", zap.Error(err))
		return 0
	}

	cutoff := j.now().Add(-age)
	var res SweepResult
	removed := 0
	for _, src := range sources {
		entries, err := os.ReadDir(src.Dir)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				j.logger.Warn("Janitor: cannot read store", zap.String("dir", src.Dir), zap.Error(err))
			}
			continue
		}
		for _, e := range entries {
			if ctx.Err() != nil {
				return removed
			}
			if j.removeIfOlder(filepath.Join(src.Dir, e.Name()), e, cutoff, &res) {
				removed++
			}
		}
	}
	j.logger.Info("Janitor: purge finished",
		zap.Duration("maxAge", age),
		zap.Int("removed", removed),
		zap.Int("failures", res.Failures))
	return removed
}
