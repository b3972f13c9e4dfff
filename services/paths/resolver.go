package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"turbotransfer/models"
)

// OutgoingSegment is the fixed directory under a session root that holds
// what the host offers to that peer.
const OutgoingSegment = "outgoing"

var (
	// ErrMissingSession is returned for a host push without a usable session id.
	ErrMissingSession = errors.New("Resolver: host upload requires a session id")
	// ErrInvalidSessionID is returned when a session id cannot name a directory.
	ErrInvalidSessionID = errors.New("Resolver: invalid session id")
)

// SavePathSource provides the live incoming store root.
type SavePathSource interface {
	SavePath() string
}

// Source is one directory contributing to a listing.
type Source struct {
	Dir       string
	Direction models.Direction
	Tag       string
}

// Resolver maps sessions, devices and directions to storage directories.
// It holds no state besides the roots.
type Resolver struct {
	settings     SavePathSource
	outgoingRoot string
	bundleRoot   string
}

func NewResolver(settings SavePathSource, outgoingRoot, bundleRoot string) *Resolver {
	return &Resolver{
		settings:     settings,
		outgoingRoot: filepath.Clean(outgoingRoot),
		bundleRoot:   filepath.Clean(bundleRoot),
	}
}

// SaveRoot is read on every call so a changed save path applies immediately.
func (r *Resolver) SaveRoot() string {
	return filepath.Clean(r.settings.SavePath())
}

func (r *Resolver) OutgoingRoot() string { return r.outgoingRoot }

// BundleRoot is the scratch location for zip bundles.
func (r *Resolver) BundleRoot() string { return r.bundleRoot }

// SessionRoot is the per-session staging area, parent of the outgoing store.
func (r *Resolver) SessionRoot(sessionID string) (string, error) {
	if !ValidSessionID(sessionID) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSessionID, sessionID)
	}
	return filepath.Join(r.outgoingRoot, sessionID), nil
}

// OutgoingDir is outgoing_root/<session>/outgoing.
func (r *Resolver) OutgoingDir(sessionID string) (string, error) {
	root, err := r.SessionRoot(sessionID)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, OutgoingSegment), nil
}

// IncomingDir is save_root/<sanitized device name>.
func (r *Resolver) IncomingDir(deviceName string) string {
	return filepath.Join(r.SaveRoot(), SanitizeDeviceName(deviceName))
}

// UploadDir picks the directory an ingestion writes into.
func (r *Resolver) UploadDir(t Target) (string, error) {
	switch t := t.(type) {
	case HostPush:
		if t.SessionID == "" {
			return "", ErrMissingSession
		}
		dir, err := r.OutgoingDir(t.SessionID)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrMissingSession, err)
		}
		return dir, nil
	case PeerUpload:
		return r.IncomingDir(t.DeviceName), nil
	default:
		return "", fmt.Errorf("Resolver: unsupported target %T", t)
	}
}

// Sources lists the directories visible to scope. A session sees what it sent
// and what the host offers it; the host sees every device and every session.
func (r *Resolver) Sources(scope Scope) ([]Source, error) {
	if scope.IsHost() {
		return r.hostSources()
	}

	var out []Source
	out = append(out, Source{
		Dir:       r.IncomingDir(scope.DeviceName),
		Direction: models.DirectionReceived,
		Tag:       SanitizeDeviceName(scope.DeviceName),
	})
	if dir, err := r.OutgoingDir(scope.SessionID); err == nil {
		out = append(out, Source{Dir: dir, Direction: models.DirectionSent, Tag: scope.SessionID})
	}
	return out, nil
}

func (r *Resolver) hostSources() ([]Source, error) {
	var out []Source

	saveRoot := r.SaveRoot()
	entries, err := os.ReadDir(saveRoot)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("Resolver: failed to read save root: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out = append(out, Source{
			Dir:       filepath.Join(saveRoot, e.Name()),
			Direction: models.DirectionReceived,
			Tag:       e.Name(),
		})
	}

	entries, err = os.ReadDir(r.outgoingRoot)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("Resolver: failed to read outgoing root: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dir := filepath.Join(r.outgoingRoot, e.Name(), OutgoingSegment)
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			continue
		}
		out = append(out, Source{Dir: dir, Direction: models.DirectionSent, Tag: e.Name()})
	}
	return out, nil
}

// Candidates returns the paths name may refer to within scope, most specific
// first. name is either a bare item name or "tag/name" where tag is a device
// directory or session id as reported by a listing. Every segment is
// sanitized, so a candidate never escapes its store.
func (r *Resolver) Candidates(name string, scope Scope) []string {
	segments := splitName(name)
	switch len(segments) {
	case 1:
		item := SanitizeFilename(segments[0])
		var out []string
		sources, err := r.Sources(scope)
		if err != nil {
			return nil
		}
		// Sent items come first for a session so its own offer wins.
		for i := len(sources) - 1; i >= 0; i-- {
			out = append(out, filepath.Join(sources[i].Dir, item))
		}
		return out
	case 2:
		tag, item := segments[0], SanitizeFilename(segments[1])
		return r.taggedCandidates(tag, item, scope)
	default:
		return nil
	}
}

func (r *Resolver) taggedCandidates(tag, item string, scope Scope) []string {
	var out []string
	if ValidSessionID(tag) && (scope.IsHost() || tag == scope.SessionID) {
		if dir, err := r.OutgoingDir(tag); err == nil {
			out = append(out, filepath.Join(dir, item))
		}
	}
	device := SanitizeDeviceName(tag)
	if scope.IsHost() || device == SanitizeDeviceName(scope.DeviceName) {
		out = append(out, filepath.Join(r.SaveRoot(), device, item))
	}
	return out
}

// IsTagged reports whether name carries a "tag/" prefix naming its store.
func IsTagged(name string) bool {
	return len(splitName(name)) == 2
}

// Roots lists every storage root the janitor sweeps.
func (r *Resolver) Roots() []string {
	return []string{r.SaveRoot(), r.outgoingRoot, r.bundleRoot}
}

func splitName(name string) []string {
	parts := strings.FieldsFunc(name, func(c rune) bool { return c == '/' || c == '\\' })
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || p == "." {
			continue
		}
		out = append(out, p)
	}
	return out
}
