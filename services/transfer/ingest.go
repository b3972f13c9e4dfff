package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"turbotransfer/models"
	"turbotransfer/services/paths"

	"go.uber.org/zap"
)

// Ingest streams req.Body into the target store and returns the final
// basename. On any failure the placeholder is removed, so nothing half
// written ever becomes visible.
func (e *Engine) Ingest(ctx context.Context, req IngestRequest) (_ string, err error) {
	name := paths.SanitizeFilename(req.Name)
	if e.policy != nil && e.policy.SafetyFilter() {
		if ext := strings.ToLower(filepath.Ext(name)); ext != "" && blockedExtensions[ext] {
			return "", &BlockedTypeError{Ext: ext}
		}
	}

	device, direction, err := e.describeTarget(req.Target)
	if err != nil {
		return "", err
	}

	dir, err := e.resolver.UploadDir(req.Target)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("Transfer: failed to create %s: %w", dir, err)
	}

	tmp := placeholderPath(dir)
	defer func() {
		if err == nil {
			return
		}
		if rmErr := os.Remove(tmp); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			e.logger.Warn("Transfer: failed to remove placeholder", zap.String("path", tmp), zap.Error(rmErr))
		}
		e.record(device, name, req.DeclaredSize, direction, models.TransferFailed)
	}()

	written, err := e.writePlaceholder(ctx, tmp, req.Body)
	if err != nil {
		return "", err
	}
	if req.DeclaredSize > 0 && written != req.DeclaredSize {
		return "", &SizeMismatchError{Declared: req.DeclaredSize, Actual: written}
	}

	final, err := e.promote(tmp, dir, name)
	if err != nil {
		return "", err
	}
	finalName := filepath.Base(final)

	e.logger.Info("Transfer: file stored",
		zap.String("file", finalName),
		zap.String("device", device),
		zap.String("direction", string(direction)),
		zap.Int64("bytes", written))

	e.record(device, finalName, written, direction, models.TransferSuccess)
	go e.generateThumbnail(final)

	return finalName, nil
}

// describeTarget validates the caller and picks the analytics label.
func (e *Engine) describeTarget(t paths.Target) (string, models.Direction, error) {
	switch t := t.(type) {
	case paths.HostPush:
		if t.SessionID == "" || e.sessions == nil {
			return "", "", ErrMissingSession
		}
		s, ok := e.sessions.GetSession(t.SessionID)
		if !ok {
			return "", "", fmt.Errorf("%w: unknown session %q", ErrMissingSession, t.SessionID)
		}
		if s.Status != models.StatusAuthenticated {
			return "", "", fmt.Errorf("%w: session %q is not verified", ErrMissingSession, t.SessionID)
		}
		return s.DeviceName, models.DirectionSent, nil
	case paths.PeerUpload:
		device := t.DeviceName
		if strings.TrimSpace(device) == "" {
			device = paths.UnknownDevice
		}
		return device, models.DirectionReceived, nil
	default:
		return "", "", fmt.Errorf("Transfer: unsupported target %T", t)
	}
}

func (e *Engine) writePlaceholder(ctx context.Context, path string, body io.Reader) (int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("Transfer: failed to create placeholder: %w", err)
	}

	written, copyErr := copyChunks(ctx, f, body)
	closeErr := f.Close()
	if copyErr != nil {
		return written, fmt.Errorf("Transfer: stream interrupted after %d bytes: %w", written, copyErr)
	}
	if closeErr != nil {
		return written, fmt.Errorf("Transfer: failed to close placeholder: %w", closeErr)
	}
	return written, nil
}

// copyChunks writes each chunk as it arrives and stops when ctx is done.
func copyChunks(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	if src == nil {
		return 0, nil
	}
	buf := make([]byte, chunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, rerr := src.Read(buf)
		if n > 0 {
			w, werr := dst.Write(buf[:n])
			written += int64(w)
			if werr != nil {
				return written, werr
			}
			if w != n {
				return written, io.ErrShortWrite
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}

// promote renames the placeholder onto its final name. The existence check
// and the rename run under one lock per final path.
func (e *Engine) promote(tmp, dir, name string) (string, error) {
	final := filepath.Join(dir, name)
	unlock := e.locks.Lock(final)
	defer unlock()

	if _, err := os.Lstat(final); err == nil {
		if e.policy == nil || !e.policy.OverwriteDuplicates() {
			final = filepath.Join(dir, dedupeName(name))
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("Transfer: failed to check %s: %w", final, err)
	}

	if err := os.Rename(tmp, final); err != nil {
		return "", fmt.Errorf("Transfer: failed to finalize %s: %w", filepath.Base(final), err)
	}
	return final, nil
}

func (e *Engine) record(device, name string, size int64, direction models.Direction, status string) {
	if e.analytics == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	rec := models.TransferRecord{
		Timestamp: time.Now(),
		Device:    device,
		Filename:  name,
		Size:      size,
		Direction: direction,
		Status:    status,
	}
	if err := e.analytics.Record(ctx, rec); err != nil {
		e.logger.Warn("Transfer: failed to record analytics", zap.String("file", name), zap.Error(err))
	}
}

func (e *Engine) generateThumbnail(path string) {
	if e.thumbnails == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Transfer: thumbnail generation panicked", zap.String("path", path), zap.Any("panic", r))
		}
	}()
	e.thumbnails.Generate(path)
}
