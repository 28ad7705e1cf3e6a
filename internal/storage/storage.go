package storage

import (
	"errors"
	"sync"
	"time"

	"github.com/eugenenazirov/siteconfig/internal/siteconfig"
)

var (
	// ErrNotLoaded indicates no configuration has been stored yet.
	ErrNotLoaded = errors.New("site configuration has not been loaded")
)

// Snapshot is one immutable generation of the site configuration.
type Snapshot struct {
	Config    siteconfig.SiteConfig
	Version   uint64
	Source    string
	UpdatedAt time.Time
}

// UpdateFunc derives the next configuration from the current snapshot, which
// is nil when nothing has been stored yet.
type UpdateFunc func(current *Snapshot) (siteconfig.SiteConfig, error)

// Storage provides access to the current site configuration snapshot.
type Storage interface {
	Current() (Snapshot, error)
	Swap(cfg siteconfig.SiteConfig, source string) (Snapshot, error)
	Update(source string, fn UpdateFunc) (Snapshot, error)
}

// MemoryStorage keeps the current snapshot in-memory and guards access with a RWMutex.
// Readers always observe either the whole previous or the whole next snapshot.
type MemoryStorage struct {
	mu       sync.RWMutex
	snapshot *Snapshot
	clock    func() time.Time
}

// Option configures MemoryStorage.
type Option func(*MemoryStorage)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *MemoryStorage) {
		s.clock = clock
	}
}

// NewMemoryStorage initialises an empty storage.
func NewMemoryStorage(opts ...Option) *MemoryStorage {
	s := &MemoryStorage{
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns a defensive copy of the current snapshot.
func (s *MemoryStorage) Current() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snapshot == nil {
		return Snapshot{}, ErrNotLoaded
	}
	return cloneSnapshot(*s.snapshot), nil
}

// Swap replaces the current snapshot wholesale with cfg and returns the new
// generation. cfg must already be validated.
func (s *MemoryStorage) Swap(cfg siteconfig.SiteConfig, source string) (Snapshot, error) {
	return s.Update(source, func(*Snapshot) (siteconfig.SiteConfig, error) {
		return cfg, nil
	})
}

// Update computes the next configuration from the current snapshot and swaps
// it in as one step: fn runs under the write lock, so concurrent updates are
// applied one after another and none is lost. If fn fails the current
// snapshot is left unchanged.
func (s *MemoryStorage) Update(source string, fn UpdateFunc) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current *Snapshot
	if s.snapshot != nil {
		snap := cloneSnapshot(*s.snapshot)
		current = &snap
	}

	cfg, err := fn(current)
	if err != nil {
		return Snapshot{}, err
	}

	next := Snapshot{
		Config:    cfg.Clone(),
		Source:    source,
		UpdatedAt: s.clock(),
		Version:   1,
	}
	if s.snapshot != nil {
		next.Version = s.snapshot.Version + 1
	}
	s.snapshot = &next

	return cloneSnapshot(next), nil
}

func cloneSnapshot(src Snapshot) Snapshot {
	out := src
	out.Config = src.Config.Clone()
	return out
}
