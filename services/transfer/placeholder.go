package transfer

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	// PlaceholderPrefix starts every in-flight upload name. The leading dot
	// keeps it out of listings and no sanitized name can start with it.
	PlaceholderPrefix = ".turbo-"
	// PlaceholderSuffix is the reserved suffix of in-flight uploads.
	PlaceholderSuffix = ".tmp"
)

// IsPlaceholder reports whether name is an in-flight upload.
func IsPlaceholder(name string) bool {
	name = filepath.Base(name)
	return strings.HasPrefix(name, PlaceholderPrefix) && strings.HasSuffix(name, PlaceholderSuffix)
}

func placeholderPath(dir string) string {
	return filepath.Join(dir, PlaceholderPrefix+uuid.NewString()+PlaceholderSuffix)
}

// shortID is appended to a duplicate name when overwriting is disabled.
func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// dedupeName turns "photo.png" into "photo_1a2b3c4d.png".
func dedupeName(name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		stem, ext = ext, ""
	}
	return stem + "_" + shortID() + ext
}
