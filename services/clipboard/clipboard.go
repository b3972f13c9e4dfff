package clipboard

import (
	"sync"
	"time"

	"turbotransfer/models"
)

// HostSource labels content set from the host machine.
const HostSource = "Host"

// ClipboardService mirrors one piece of text between host and peers.
type ClipboardService interface {
	Set(content, source string) models.ClipboardContent
	Get() models.ClipboardContent
}

type DefaultClipboardService struct {
	mu      sync.RWMutex
	current models.ClipboardContent
	now     func() time.Time
}

func NewClipboardService() *DefaultClipboardService {
	return &DefaultClipboardService{
		current: models.ClipboardContent{DeviceSource: HostSource},
		now:     time.Now,
	}
}

// Set replaces the mirrored content. An empty source is attributed to the host.
func (s *DefaultClipboardService) Set(content, source string) models.ClipboardContent {
	if source == "" {
		source = HostSource
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = models.ClipboardContent{
		Content:      content,
		LastUpdated:  s.now(),
		DeviceSource: source,
	}
	return s.current
}

func (s *DefaultClipboardService) Get() models.ClipboardContent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}
