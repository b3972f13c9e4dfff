package paths

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const (
	// UnnamedFile replaces a filename that sanitizes to nothing.
	UnnamedFile = "unnamed_file"
	// UnknownDevice namespaces uploads from peers that sent no device name.
	UnknownDevice = "Unknown_Device"
)

// SanitizeFilename reduces name to a safe basename: directory components are
// stripped, characters other than letters, digits, space, '.', '_', '-', '('
// and ')' become '_', and a leading dot gets an '_' prefix.
func SanitizeFilename(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return UnnamedFile
	}

	var b strings.Builder
	b.Grow(len(name) + 1)
	if strings.HasPrefix(name, ".") {
		b.WriteByte('_')
	}
	for _, r := range name {
		if allowedRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// SanitizeDeviceName turns a device label into a directory name.
func SanitizeDeviceName(name string) string {
	if strings.TrimSpace(name) == "" {
		return UnknownDevice
	}
	return SanitizeFilename(name)
}

// ValidSessionID reports whether id is safe to use as a directory name.
// Session ids are always UUIDs.
func ValidSessionID(id string) bool {
	if id == "" {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil && !strings.ContainsAny(id, `/\{}:`)
}

func allowedRune(r rune) bool {
	switch r {
	case ' ', '.', '_', '-', '(', ')':
		return true
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
