package utils_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modguard/utils"
)

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"90m": 90 * time.Minute,
		"3h":  3 * time.Hour,
		"1d":  24 * time.Hour,
		"30d": 30 * 24 * time.Hour,
		"2w":  14 * 24 * time.Hour,
	}
	for in, want := range cases {
		got, err := utils.ParseDuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseDurationRejectsGarbage(t *testing.T) {
	for _, in := range []string{"xd", "w", "3 days", ""} {
		_, err := utils.ParseDuration(in)
		assert.Error(t, err, in)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "15m", utils.FormatDuration(15*time.Minute))
	assert.Equal(t, "3h", utils.FormatDuration(3*time.Hour))
	assert.Equal(t, "7d", utils.FormatDuration(7*24*time.Hour))
	assert.Equal(t, "90m", utils.FormatDuration(90*time.Minute))
}
