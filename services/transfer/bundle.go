package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"turbotransfer/services/paths"
)

const (
	// BundlePrefix starts every archive written to the bundle root.
	BundlePrefix = "bundle_"
	// StagingPrefix starts every staging directory in the bundle root.
	StagingPrefix = ".staging-"

	batchDownloadName = "turbotransfer_bundle.zip"
	maxCopyWorkers    = 4
)

// Zip copies every named artifact into a private staging directory and
// archives it into a new zip under the bundle root.
func (e *Engine) Zip(ctx context.Context, names []string, scope paths.Scope) (Bundle, error) {
	if len(names) == 0 {
		return Bundle{}, &NotFoundError{Name: ""}
	}
	sources := make([]string, 0, len(names))
	for _, name := range names {
		loc, err := e.Locate(name, scope)
		if err != nil {
			return Bundle{}, err
		}
		sources = append(sources, loc.Path)
	}

	return e.offload(ctx, func() (Bundle, error) {
		return e.bundle(sources)
	})
}

// ZipDirectory archives a single directory; the download is named after it.
func (e *Engine) ZipDirectory(ctx context.Context, dir string) (Bundle, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return Bundle{}, &NotFoundError{Name: filepath.Base(dir)}
	}

	base := filepath.Base(dir)
	return e.offload(ctx, func() (Bundle, error) {
		if err := os.MkdirAll(e.resolver.BundleRoot(), 0o755); err != nil {
			return Bundle{}, fmt.Errorf("Transfer: failed to create bundle root: %w", err)
		}
		out := filepath.Join(e.resolver.BundleRoot(), BundlePrefix+base+"_"+shortID()+".zip")
		if err := archiveDir(dir, out); err != nil {
			_ = os.Remove(out)
			return Bundle{}, err
		}
		return Bundle{Path: out, DownloadName: base + ".zip"}, nil
	})
}

type bundleResult struct {
	bundle Bundle
	err    error
}

// offload runs fn on a bundle worker so archiving never occupies the
// goroutine serving the request. The result is handed over on an unbuffered
// channel: if ctx ends before the caller takes it, the worker removes the
// archive it produced.
func (e *Engine) offload(ctx context.Context, fn func() (Bundle, error)) (Bundle, error) {
	select {
	case e.bundleSlots <- struct{}{}:
	case <-ctx.Done():
		return Bundle{}, ctx.Err()
	}

	done := make(chan bundleResult)
	go func() {
		defer func() { <-e.bundleSlots }()
		res := runBundleJob(fn)
		select {
		case done <- res:
		case <-ctx.Done():
			if res.err == nil && res.bundle.Path != "" {
				if err := os.Remove(res.bundle.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
					e.logger.Warn("Transfer: failed to remove abandoned bundle", zap.String("path", res.bundle.Path), zap.Error(err))
				} else {
					e.logger.Debug("Transfer: abandoned bundle removed", zap.String("path", res.bundle.Path))
				}
			}
		}
	}()

	select {
	case res := <-done:
		return res.bundle, res.err
	case <-ctx.Done():
		return Bundle{}, ctx.Err()
	}
}

func runBundleJob(fn func() (Bundle, error)) (res bundleResult) {
	defer func() {
		if r := recover(); r != nil {
			res = bundleResult{err: fmt.Errorf("Transfer: bundle job panicked: %v", r)}
		}
	}()
	b, err := fn()
	return bundleResult{bundle: b, err: err}
}

func (e *Engine) bundle(sources []string) (Bundle, error) {
	root := e.resolver.BundleRoot()
	if err := os.MkdirAll(root, 0o755); err != nil {
		return Bundle{}, fmt.Errorf("Transfer: failed to create bundle root: %w", err)
	}
	staging, err := os.MkdirTemp(root, StagingPrefix+"*")
	if err != nil {
		return Bundle{}, fmt.Errorf("Transfer: failed to create staging dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(staging); err != nil {
			e.logger.Warn("Transfer: failed to remove staging dir", zap.String("path", staging), zap.Error(err))
		}
	}()

	p := pool.New().WithErrors().WithMaxGoroutines(maxCopyWorkers)
	used := map[string]bool{}
	for _, src := range sources {
		src := src
		dst := filepath.Join(staging, uniqueEntryName(used, filepath.Base(src)))
		p.Go(func() error {
			return copyTree(src, dst)
		})
	}
	if err := p.Wait(); err != nil {
		return Bundle{}, fmt.Errorf("Transfer: failed to stage bundle: %w", err)
	}

	out := filepath.Join(root, BundlePrefix+uuid.NewString()+".zip")
	if err := archiveDir(staging, out); err != nil {
		_ = os.Remove(out)
		return Bundle{}, err
	}
	e.logger.Info("Transfer: bundle created", zap.String("path", out), zap.Int("items", len(sources)))
	return Bundle{Path: out, DownloadName: batchDownloadName}, nil
}

// uniqueEntryName keeps two sources with the same basename apart.
func uniqueEntryName(used map[string]bool, name string) string {
	candidate := name
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; used[candidate]; i++ {
		candidate = stem + "_" + strconv.Itoa(i) + ext
	}
	used[candidate] = true
	return candidate
}

// copyTree copies a file or a directory recursively from src to dst.
func copyTree(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return copyFile(src, dst, info.Mode())
	}
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() || IsPlaceholder(d.Name()) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		return copyFile(path, target, fi.Mode())
	})
}

func copyFile(src, dst string, mode fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode.Perm()|0o200)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// archiveDir writes every entry below root into a zip at out, with paths
// relative to root.
func archiveDir(root, out string) (err error) {
	f, err := os.OpenFile(out, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("Transfer: failed to create archive: %w", err)
	}
	zw := zip.NewWriter(f)
	defer func() {
		if cerr := zw.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("Transfer: failed to finish archive: %w", cerr)
		}
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("Transfer: failed to close archive: %w", cerr)
		}
	}()

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if !d.IsDir() && !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			hdr.Name += "/"
			_, err = zw.CreateHeader(hdr)
			return err
		}
		hdr.Method = zip.Deflate
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(w, src)
		return err
	})
	if walkErr != nil {
		if errors.Is(walkErr, fs.ErrNotExist) {
			return &NotFoundError{Name: filepath.Base(root)}
		}
		return fmt.Errorf("Transfer: failed to archive %s: %w", filepath.Base(root), walkErr)
	}
	return nil
}
