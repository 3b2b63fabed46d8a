package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUTCNowRFC3339(t *testing.T) {
	parsed, err := time.Parse(time.RFC3339, UTCNowRFC3339())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), parsed, 2*time.Second)
	assert.Equal(t, time.UTC, parsed.Location())
}

func TestFormatRFC3339Ptr(t *testing.T) {
	assert.Nil(t, FormatRFC3339Ptr(time.Time{}))

	ist := time.FixedZone("IST", 5*3600+1800)
	got := FormatRFC3339Ptr(time.Date(2026, 1, 26, 10, 30, 0, 123456789, ist))
	require.NotNil(t, got)
	assert.Equal(t, "2026-01-26T05:00:00.123Z", *got)
}
