package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	p, err := Parse("2024-02")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), p.Start())
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), p.End())
	assert.Equal(t, p.Start(), p.ChargeDate())
	assert.Equal(t, "2024-02", p.String())
}

func TestParseRejectsMalformedLabels(t *testing.T) {
	for _, raw := range []string{"", "2024-13", "2024-00", "24-01", "2024-1", "2024/01", "2024-01-01", " 2024-01"} {
		_, err := Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidPeriod, raw)
	}
}

func TestContainsIsHalfOpen(t *testing.T) {
	p, err := Parse("2023-12")
	require.NoError(t, err)
	assert.True(t, p.Contains(time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, p.Contains(time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC)))
	assert.False(t, p.Contains(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-01", p.AddMonths(1).String())
}

func TestPrevious(t *testing.T) {
	assert.Equal(t, "2023-12", Previous(time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)).String())
}
