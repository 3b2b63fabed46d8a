package utils

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestGenerateRegNo(t *testing.T) {
	assert.Equal(t, "RBG-6A7B8", GenerateRegNo("RBG-", "650c1f2e9d3a4b5c66a7b8"))
	assert.Equal(t, "RBG-AB", GenerateRegNo("RBG-", "ab"))
	assert.Equal(t, "RBG-", GenerateRegNo("RBG-", ""))
}

func TestGenerateRegNoIsDeterministic(t *testing.T) {
	id := uuid.New().String()
	first := GenerateRegNo(DefaultRegNoPrefix, id)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, GenerateRegNo(DefaultRegNoPrefix, id))
	}
	assert.Len(t, first, len(DefaultRegNoPrefix)+RegNoSuffixLength)
}

func TestClampRating(t *testing.T) {
	assert.Equal(t, 5.0, ClampRating(7))
	assert.Equal(t, 0.0, ClampRating(-2))
	assert.Equal(t, 3.5, ClampRating(3.5))
	assert.Equal(t, 0.0, ClampRating(0))
	assert.Equal(t, 5.0, ClampRating(5))
}

func TestFormatRFC3339Ptr(t *testing.T) {
	assert.Nil(t, FormatRFC3339Ptr(time.Time{}))

	ts := time.Date(2025, 9, 21, 4, 0, 0, 123000000, time.FixedZone("IST", 5*3600+1800))
	got := FormatRFC3339Ptr(ts)
	if assert.NotNil(t, got) {
		assert.Equal(t, "2025-09-20T22:30:00.123Z", *got)
	}
}
