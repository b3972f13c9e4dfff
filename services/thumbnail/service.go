package thumbnail

import (
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// MaxEdge bounds both sides of a generated thumbnail.
const MaxEdge = 128

var supportedTypes = []string{"image/jpeg", "image/png", "image/webp", "image/bmp"}

// ThumbnailService renders small previews of received images.
type ThumbnailService interface {
	Generate(path string) bool
	PathFor(path string) string
	Available(path string) bool
}

// DefaultThumbnailService caches PNG previews under a single directory.
type DefaultThumbnailService struct {
	dir    string
	logger *zap.Logger
}

func NewThumbnailService(dir string, logger *zap.Logger) *DefaultThumbnailService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultThumbnailService{dir: dir, logger: logger}
}

// PathFor is the cache location for path. It depends only on the cleaned
// absolute source path, so files with equal basenames never share a preview.
func (s *DefaultThumbnailService) PathFor(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	sum := blake2b.Sum256([]byte(abs))
	return filepath.Join(s.dir, "thumb_"+hex.EncodeToString(sum[:16])+".png")
}

func (s *DefaultThumbnailService) Available(path string) bool {
	_, err := os.Stat(s.PathFor(path))
	return err == nil
}

// Generate writes a preview for an image and reports whether one exists
// afterwards. A cached preview newer than the source is kept as is.
func (s *DefaultThumbnailService) Generate(path string) bool {
	src, err := os.Stat(path)
	if err != nil || src.IsDir() {
		return false
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil || !mimetype.EqualsAny(mt.String(), supportedTypes...) {
		return false
	}

	out := s.PathFor(path)
	if cached, err := os.Stat(out); err == nil && !cached.ModTime().Before(src.ModTime()) {
		return true
	}

	if err := s.render(path, out); err != nil {
		s.logger.Warn("Thumbnail: generation failed", zap.String("path", path), zap.Error(err))
		return false
	}
	s.logger.Debug("Thumbnail: generated", zap.String("file", filepath.Base(path)))
	return true
}

func (s *DefaultThumbnailService) render(path, out string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	b := img.Bounds()
	if b.Empty() {
		return errors.New("empty image")
	}
	w, h := fit(b.Dx(), b.Dy(), MaxEdge)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".thumb-*")
	if err != nil {
		return err
	}
	if err := png.Encode(tmp, dst); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), out)
}

// fit scales w x h down to fit within edge x edge, keeping the aspect ratio.
// Images already small enough keep their size.
func fit(w, h, edge int) (int, int) {
	if w <= edge && h <= edge {
		return w, h
	}
	if w >= h {
		nh := h * edge / w
		if nh < 1 {
			nh = 1
		}
		return edge, nh
	}
	nw := w * edge / h
	if nw < 1 {
		nw = 1
	}
	return nw, edge
}
