// Package theme holds the user's light/dark/system appearance preference.
//
// The store is process-wide state with init-on-first-use and no teardown:
// its lifetime is the whole session. Persistence sits behind the [Storage]
// interface; [FileStorage] keeps the preference in a YAML file.
package theme

import (
	"sync"

	"github.com/tickdown/tickdown/internal/errorutil"
	"github.com/tickdown/tickdown/internal/types"
)

// Mode is the configured appearance preference.
type Mode string

const (
	// ModeLight forces the light appearance.
	ModeLight Mode = "light"
	// ModeDark forces the dark appearance.
	ModeDark Mode = "dark"
	// ModeSystem follows the host system preference.
	ModeSystem Mode = "system"
)

func (m Mode) String() string { return string(m) }

func (m Mode) IsValid() bool {
	switch m {
	case ModeLight, ModeDark, ModeSystem:
		return true
	}
	return false
}

// ParseMode parses a mode string.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.IsValid() {
		return "", errorutil.NewWrapperError(ErrInvalidMode, "%q", s)
	}
	return m, nil
}

// Appearance is the effective appearance after resolving [ModeSystem].
type Appearance string

const (
	Light Appearance = "light"
	Dark  Appearance = "dark"
)

// Resolve maps the mode to a concrete appearance, using the host system
// preference for [ModeSystem].
func (m Mode) Resolve(systemDark bool) Appearance {
	switch m {
	case ModeLight:
		return Light
	case ModeDark:
		return Dark
	default:
		if systemDark {
			return Dark
		}
		return Light
	}
}

// Error represents a theme error.
// See [errorutil.Error].
type Error = errorutil.Error

const (
	// ErrInvalidMode is returned for an unknown mode string.
	ErrInvalidMode Error = "invalid theme mode"
	// ErrNotStored is returned by [Storage.Load] when no preference has
	// been persisted yet.
	ErrNotStored Error = "no stored theme preference"
)

// Storage persists the theme preference.
type Storage interface {
	// Load returns the stored mode, or [ErrNotStored].
	Load() (Mode, error)
	// Save persists the mode.
	Save(m Mode) error
}

// Store holds the current theme mode and notifies subscribers on changes.
type Store struct {
	mu       sync.Mutex
	mode     Mode
	storage  Storage
	onChange types.CallbackManager[func(m Mode)]
}

// NewStore creates a theme store. When storage is non-nil the stored
// preference is loaded; a missing or unreadable preference falls back to
// [ModeSystem].
func NewStore(storage Storage) *Store {
	s := &Store{mode: ModeSystem, storage: storage}
	if storage != nil {
		if m, err := storage.Load(); err == nil && m.IsValid() {
			s.mode = m
		}
	}
	return s
}

// Mode returns the current mode.
func (s *Store) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode updates the mode, persists it when storage is configured and
// notifies subscribers. Invalid modes are rejected with [ErrInvalidMode].
// The in-memory value is updated even when persisting fails.
func (s *Store) SetMode(m Mode) error {
	if !m.IsValid() {
		return errorutil.NewWrapperError(ErrInvalidMode, "%q", m)
	}

	s.mu.Lock()
	if s.mode == m {
		s.mu.Unlock()
		return nil
	}
	s.mode = m
	storage := s.storage
	s.mu.Unlock()

	for fn := range s.onChange.All() {
		fn(m)
	}

	if storage != nil {
		return storage.Save(m)
	}
	return nil
}

// OnChange registers a callback invoked on every mode change.
// The returned function removes the callback.
func (s *Store) OnChange(fn func(m Mode)) (remove func()) {
	return s.onChange.Add(fn)
}

var (
	defStore     *Store
	defStoreOnce sync.Once
)

// Default returns the process-wide theme store, created without persistence
// on first use. Applications that want a persistent store should construct
// their own with [NewStore].
func Default() *Store {
	defStoreOnce.Do(func() {
		defStore = NewStore(nil)
	})
	return defStore
}
