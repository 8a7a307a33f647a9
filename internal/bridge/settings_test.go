package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happypartner/voicelink/domain"
	"github.com/happypartner/voicelink/internal/safety"
)

func TestSettingsStoreDefaults(t *testing.T) {
	filter := safety.NewFilter(nil)
	store := NewSettingsStore("child-1", filter)

	settings := store.Get()
	assert.Equal(t, "child-1", settings.UserID)
	assert.True(t, settings.SafetyFilterOn)
	assert.True(t, filter.Enabled())
}

func TestSettingsStoreUpdateSyncsFilter(t *testing.T) {
	filter := safety.NewFilter(nil)
	store := NewSettingsStore("child-1", filter)

	updated := store.Get()
	updated.BlockedKeywords = []string{"homework"}
	require.NoError(t, store.Update(updated))

	assert.False(t, filter.Check("I hate homework").Safe)
	assert.True(t, filter.Check("gambling").Safe)

	updated.SafetyFilterOn = false
	require.NoError(t, store.Update(updated))
	assert.False(t, filter.Enabled())
	assert.True(t, filter.Check("I hate homework").Safe)
}

func TestSettingsStoreUpdateValidates(t *testing.T) {
	store := NewSettingsStore("child-1", safety.NewFilter(nil))

	bad := store.Get()
	bad.Limits.DailyLimitMinutes = -5
	require.Error(t, store.Update(bad))

	bad = store.Get()
	bad.Limits.Weekdays = domain.TimeWindow{Start: "25:99", End: "20:00"}
	require.Error(t, store.Update(bad))

	// A failed update leaves the stored settings untouched.
	assert.Equal(t, 60, store.Get().Limits.DailyLimitMinutes)
}

func TestSettingsStoreEmptyKeywordsRestoreDefaults(t *testing.T) {
	filter := safety.NewFilter(nil)
	store := NewSettingsStore("child-1", filter)

	updated := store.Get()
	updated.BlockedKeywords = []string{"homework"}
	require.NoError(t, store.Update(updated))

	updated.BlockedKeywords = nil
	require.NoError(t, store.Update(updated))
	assert.False(t, filter.Check("gambling").Safe)
}
