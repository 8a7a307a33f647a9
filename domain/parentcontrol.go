package domain

import (
	"errors"
	"fmt"
	"time"
)

// TimeWindow is a daily usage window in "HH:MM" form.
type TimeWindow struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// Validate checks that both bounds parse as clock times.
func (w TimeWindow) Validate() error {
	for _, v := range []string{w.Start, w.End} {
		if _, err := time.Parse("15:04", v); err != nil {
			return fmt.Errorf("invalid time %q: %w", v, err)
		}
	}
	return nil
}

// UsageLimits caps how long a child may use the assistant.
type UsageLimits struct {
	UserID              string     `json:"user_id"`
	DailyLimitMinutes   int        `json:"daily_limit_minutes"`
	WeeklyLimitMinutes  int        `json:"weekly_limit_minutes"`
	SessionLimitMinutes int        `json:"session_limit_minutes"`
	Weekdays            TimeWindow `json:"weekdays"`
	Weekends            TimeWindow `json:"weekends"`
}

// ParentControlSettings mirrors the active parental-control state for
// the UI session. Durable storage belongs to the backend; this entity
// only carries what the conversation view needs to render and enforce
// locally.
type ParentControlSettings struct {
	UserID          string      `json:"user_id"`
	SafetyFilterOn  bool        `json:"safety_filter_enabled"`
	BlockedKeywords []string    `json:"blocked_keywords"`
	Limits          UsageLimits `json:"usage_limits"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// DefaultParentControlSettings returns the settings applied before a
// parent has configured anything.
func DefaultParentControlSettings(userID string) ParentControlSettings {
	return ParentControlSettings{
		UserID:         userID,
		SafetyFilterOn: true,
		Limits: UsageLimits{
			UserID:              userID,
			DailyLimitMinutes:   60,
			WeeklyLimitMinutes:  300,
			SessionLimitMinutes: 30,
			Weekdays:            TimeWindow{Start: "16:00", End: "20:00"},
			Weekends:            TimeWindow{Start: "09:00", End: "20:00"},
		},
		UpdatedAt: time.Now(),
	}
}

// Validate checks limit ranges and time windows.
func (s ParentControlSettings) Validate() error {
	if s.UserID == "" {
		return errors.New("user id is required")
	}
	l := s.Limits
	if l.DailyLimitMinutes < 0 || l.WeeklyLimitMinutes < 0 || l.SessionLimitMinutes < 0 {
		return errors.New("usage limits must not be negative")
	}
	if l.SessionLimitMinutes > 0 && l.DailyLimitMinutes > 0 && l.SessionLimitMinutes > l.DailyLimitMinutes {
		return fmt.Errorf("session limit %d exceeds daily limit %d", l.SessionLimitMinutes, l.DailyLimitMinutes)
	}
	if err := l.Weekdays.Validate(); err != nil {
		return fmt.Errorf("weekday window: %w", err)
	}
	if err := l.Weekends.Validate(); err != nil {
		return fmt.Errorf("weekend window: %w", err)
	}
	return nil
}
