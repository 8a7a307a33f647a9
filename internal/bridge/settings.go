package bridge

import (
	"sync"
	"time"

	"github.com/happypartner/voicelink/domain"
	"github.com/happypartner/voicelink/internal/safety"
)

// SettingsStore keeps parental-control settings in memory and keeps
// the outgoing safety filter in sync with them. Durable storage lives
// in the backend; the bridge only mirrors the active settings.
type SettingsStore struct {
	mu       sync.RWMutex
	settings domain.ParentControlSettings
	filter   *safety.Filter
}

// NewSettingsStore creates a store seeded with defaults for userID.
func NewSettingsStore(userID string, filter *safety.Filter) *SettingsStore {
	s := &SettingsStore{
		settings: domain.DefaultParentControlSettings(userID),
		filter:   filter,
	}
	s.apply()
	return s
}

// Get returns a copy of the current settings.
func (s *SettingsStore) Get() domain.ParentControlSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Update validates and replaces the settings, then re-syncs the
// safety filter.
func (s *SettingsStore) Update(settings domain.ParentControlSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	settings.UpdatedAt = time.Now()

	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()

	s.apply()
	return nil
}

func (s *SettingsStore) apply() {
	s.mu.RLock()
	settings := s.settings
	s.mu.RUnlock()

	if s.filter == nil {
		return
	}
	s.filter.SetEnabled(settings.SafetyFilterOn)
	if len(settings.BlockedKeywords) > 0 {
		s.filter.SetKeywords(settings.BlockedKeywords)
	} else {
		s.filter.SetKeywords(safety.DefaultKeywords)
	}
}
