package transfer

import (
	"context"
	"io"

	"turbotransfer/models"
	"turbotransfer/services/paths"

	"go.uber.org/zap"
)

// chunkSize is the copy buffer used while streaming uploads to disk.
const chunkSize = 1024 * 1024

// defaultBundleWorkers bounds concurrent zip jobs.
const defaultBundleWorkers = 2

// blockedExtensions are rejected when the safety filter is on.
var blockedExtensions = map[string]bool{
	".exe": true,
	".bat": true,
	".cmd": true,
	".msi": true,
	".sh":  true,
	".vbs": true,
	".scr": true,
}

// TransferService streams uploads into storage and manages stored artifacts.
type TransferService interface {
	Ingest(ctx context.Context, req IngestRequest) (string, error)
	List(scope paths.Scope) ([]models.Artifact, error)
	Locate(name string, scope paths.Scope) (Located, error)
	DeleteMany(names []string, scope paths.Scope) int
	Zip(ctx context.Context, names []string, scope paths.Scope) (Bundle, error)
	ZipDirectory(ctx context.Context, dir string) (Bundle, error)
	HandleSessionRemoved(sessionID string)
}

// IngestRequest is one upload as handed over by the transport. Name and
// DeclaredSize come from the client and are verified here.
type IngestRequest struct {
	Body         io.Reader
	Name         string
	DeclaredSize int64
	Target       paths.Target
}

// Located is a resolved artifact on disk.
type Located struct {
	Path  string
	IsDir bool
}

// Bundle is a zip archive ready to be served.
type Bundle struct {
	Path         string
	DownloadName string
}

// AnalyticsRecorder receives a record after each transfer.
type AnalyticsRecorder interface {
	Record(ctx context.Context, rec models.TransferRecord) error
}

// ThumbnailProvider renders and looks up cached previews.
type ThumbnailProvider interface {
	Generate(path string) bool
	Available(path string) bool
}

// SessionLookup validates session ids.
type SessionLookup interface {
	GetSession(id string) (models.Session, bool)
}

// Policy exposes the live transfer toggles.
type Policy interface {
	SafetyFilter() bool
	OverwriteDuplicates() bool
}

// Options wires an Engine.
type Options struct {
	Resolver      *paths.Resolver
	Sessions      SessionLookup
	Policy        Policy
	Analytics     AnalyticsRecorder
	Thumbnails    ThumbnailProvider
	Logger        *zap.Logger
	BundleWorkers int
}

// Engine is the default TransferService.
type Engine struct {
	resolver   *paths.Resolver
	sessions   SessionLookup
	policy     Policy
	analytics  AnalyticsRecorder
	thumbnails ThumbnailProvider
	logger     *zap.Logger

	locks       *pathLocks
	bundleSlots chan struct{}
}

func NewEngine(opts Options) *Engine {
	workers := opts.BundleWorkers
	if workers <= 0 {
		workers = defaultBundleWorkers
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		resolver:    opts.Resolver,
		sessions:    opts.Sessions,
		policy:      opts.Policy,
		analytics:   opts.Analytics,
		thumbnails:  opts.Thumbnails,
		logger:      logger,
		locks:       newPathLocks(),
		bundleSlots: make(chan struct{}, workers),
	}
}
