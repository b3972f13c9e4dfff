package session

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"turbotransfer/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTTL is how long a pending session waits for its PIN.
const DefaultTTL = 120 * time.Second

// maxRandomPINDraws bounds the random redraws before falling back to a scan.
const maxRandomPINDraws = 32

// RemovalListener is told about every session that leaves the registry,
// whether by disconnect, block, reset or expiry.
type RemovalListener func(sessionID string)

// Registry owns the pairing handshake and the authoritative session map.
type Registry interface {
	InitSession(requestedName string) (models.Session, error)
	VerifyPIN(pin string) (models.Session, bool)
	GetSession(id string) (models.Session, bool)
	ListSessions() []models.Session
	RemoveSession(id string) bool
	BlockSession(id string) bool
	Reset() int
	OnRemove(fn RemovalListener)
}

// Options tune a DefaultRegistry. Zero values pick production defaults.
type Options struct {
	TTL    time.Duration
	Logger *zap.Logger

	// Now and PIN are overridable for tests.
	Now func() time.Time
	PIN func() (string, error)
}

// DefaultRegistry is the in-memory Registry. One instance is created at
// startup and shared by reference.
type DefaultRegistry struct {
	mu        sync.Mutex
	sessions  map[string]*models.Session
	blocked   map[string]struct{}
	listeners []RemovalListener

	ttl    time.Duration
	now    func() time.Time
	pin    func() (string, error)
	logger *zap.Logger
}

// NewRegistry builds an empty registry.
func NewRegistry(opts Options) *DefaultRegistry {
	r := &DefaultRegistry{
		sessions: make(map[string]*models.Session),
		blocked:  make(map[string]struct{}),
		ttl:      opts.TTL,
		now:      opts.Now,
		pin:      opts.PIN,
		logger:   opts.Logger,
	}
	if r.ttl <= 0 {
		r.ttl = DefaultTTL
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.pin == nil {
		r.pin = generatePIN
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

// OnRemove subscribes fn to session removals. Listeners run after the
// registry lock is released.
func (r *DefaultRegistry) OnRemove(fn RemovalListener) {
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// InitSession creates a pending session with a PIN that no other pending
// session holds. The uniqueness check and the insert share one critical section.
func (r *DefaultRegistry) InitSession(requestedName string) (models.Session, error) {
	name := normalizeDeviceName(requestedName)
	if name == "" {
		name = randomDeviceName()
	}

	r.mu.Lock()
	expired := r.evictExpiredLocked()

	pin, err := r.allocatePINLocked()
	if err != nil {
		r.mu.Unlock()
		r.notify(expired)
		return models.Session{}, err
	}

	now := r.now()
	s := &models.Session{
		ID:         uuid.NewString(),
		Status:     models.StatusPendingVerification,
		PIN:        pin,
		DeviceName: name,
		CreatedAt:  now,
		ExpiresAt:  now.Add(r.ttl),
	}
	r.sessions[s.ID] = s
	out := *s
	r.mu.Unlock()

	r.notify(expired)
	r.logger.Info("Registry: pairing requested", zap.String("sessionID", out.ID), zap.String("device", out.DeviceName))
	return out, nil
}

// VerifyPIN authenticates the pending session holding pin. An expired match
// is deleted and reported as a miss.
func (r *DefaultRegistry) VerifyPIN(pin string) (models.Session, bool) {
	if pin == "" {
		return models.Session{}, false
	}

	r.mu.Lock()
	now := r.now()
	var match *models.Session
	for _, s := range r.sessions {
		if s.Pending() && s.PIN == pin {
			match = s
			break
		}
	}
	if match == nil {
		r.mu.Unlock()
		return models.Session{}, false
	}
	if match.Expired(now) {
		delete(r.sessions, match.ID)
		r.mu.Unlock()
		r.logger.Info("Registry: PIN matched an expired session", zap.String("sessionID", match.ID), zap.Error(ErrSessionExpired))
		r.notify([]string{match.ID})
		return models.Session{}, false
	}
	match.Status = models.StatusAuthenticated
	out := *match
	r.mu.Unlock()

	r.logger.Info("Registry: session authenticated", zap.String("sessionID", out.ID), zap.String("device", out.DeviceName))
	return out, true
}

// GetSession resolves id unless it is blocked or absent.
func (r *DefaultRegistry) GetSession(id string) (models.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, blocked := r.blocked[id]; blocked {
		return models.Session{}, false
	}
	s, ok := r.sessions[id]
	if !ok {
		return models.Session{}, false
	}
	return *s, true
}

// ListSessions evicts expired pending sessions and returns the rest, oldest first.
func (r *DefaultRegistry) ListSessions() []models.Session {
	r.mu.Lock()
	expired := r.evictExpiredLocked()
	out := make([]models.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, *s)
	}
	r.mu.Unlock()

	r.notify(expired)
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// RemoveSession disconnects id. It reports whether the session existed.
func (r *DefaultRegistry) RemoveSession(id string) bool {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	// Cleanup runs even for unknown ids so stale outgoing stores do not linger.
	r.notify([]string{id})
	if ok {
		r.logger.Info("Registry: session disconnected", zap.String("sessionID", id))
	}
	return ok
}

// BlockSession removes id and bans it for the lifetime of the process.
func (r *DefaultRegistry) BlockSession(id string) bool {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	r.blocked[id] = struct{}{}
	r.mu.Unlock()

	r.notify([]string{id})
	r.logger.Warn("Registry: session blocked", zap.String("sessionID", id), zap.Bool("existed", ok))
	return ok
}

// Reset drops all sessions. The blocklist survives.
func (r *DefaultRegistry) Reset() int {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.sessions = make(map[string]*models.Session)
	r.mu.Unlock()

	r.notify(ids)
	r.logger.Info("Registry: reset", zap.Int("removed", len(ids)))
	return len(ids)
}

func (r *DefaultRegistry) evictExpiredLocked() []string {
	now := r.now()
	var ids []string
	for id, s := range r.sessions {
		if s.Expired(now) {
			delete(r.sessions, id)
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *DefaultRegistry) allocatePINLocked() (string, error) {
	taken := make(map[string]struct{}, len(r.sessions))
	for _, s := range r.sessions {
		if s.Pending() {
			taken[s.PIN] = struct{}{}
		}
	}
	if len(taken) >= pinSpace {
		return "", ErrPinSpaceExhausted
	}

	var last string
	for i := 0; i < maxRandomPINDraws; i++ {
		pin, err := r.pin()
		if err != nil {
			return "", err
		}
		if _, clash := taken[pin]; !clash {
			return pin, nil
		}
		last = pin
	}

	// Heavily loaded PIN space: walk forward from the last draw.
	start, err := strconv.Atoi(last)
	if err != nil || start < pinMin {
		start = pinMin
	}
	for i := 0; i < pinSpace; i++ {
		pin := strconv.Itoa(pinMin + (start-pinMin+i)%pinSpace)
		if _, clash := taken[pin]; !clash {
			return pin, nil
		}
	}
	return "", ErrPinSpaceExhausted
}

func (r *DefaultRegistry) notify(ids []string) {
	if len(ids) == 0 {
		return
	}
	r.mu.Lock()
	listeners := append([]RemovalListener(nil), r.listeners...)
	r.mu.Unlock()

	for _, id := range ids {
		for _, fn := range listeners {
			fn(id)
		}
	}
}
