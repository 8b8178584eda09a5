package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRatingConfigIsValid(t *testing.T) {
	cfg := DefaultRatingConfig()
	require.NoError(t, validateRatingConfig(cfg))
	assert.True(t, cfg.IsFailedStatus(5))
	assert.False(t, cfg.IsFailedStatus(3))
	assert.True(t, cfg.StrictFilters)
}

func TestValidateRatingConfigRejectsCollidingServiceIDs(t *testing.T) {
	cfg := DefaultRatingConfig()
	cfg.BiometricServiceID = cfg.LegalEntityServiceID
	assert.Error(t, validateRatingConfig(cfg))
}

func TestRatingConfigHolderFallsBackToDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	holder, err := NewRatingConfigHolder()
	require.NoError(t, err)
	assert.Equal(t, DefaultRatingConfig(), holder.Get())
}

func TestRatingConfigHolderReadsEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SIGNBILLING_RATING_STRICTFILTERS", "false")

	holder, err := NewRatingConfigHolder()
	require.NoError(t, err)
	assert.False(t, holder.Get().StrictFilters)
}

func TestParseIDsSkipsInvalidEntries(t *testing.T) {
	assert.Equal(t, []int64{1, 3}, parseIDs("1, x,3,,"))
	assert.Empty(t, parseIDs(""))
}
