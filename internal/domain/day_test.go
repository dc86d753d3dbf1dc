package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayOf_UsesCallerLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	// 2025-03-09 23:30 UTC is already 2025-03-10 in Tokyo.
	instant := time.Date(2025, 3, 9, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, Day("2025-03-09"), DayOf(instant))
	assert.Equal(t, Day("2025-03-10"), DayOf(instant.In(tokyo)))
}

func TestDay_AddDays(t *testing.T) {
	assert.Equal(t, Day("2025-03-17"), Day("2025-03-10").AddDays(7))
	assert.Equal(t, Day("2025-03-03"), Day("2025-03-10").AddDays(-7))
	assert.Equal(t, Day("2025-03-01"), Day("2025-02-28").AddDays(1))
	assert.Equal(t, Day("2024-02-29"), Day("2024-02-28").AddDays(1))
	assert.Equal(t, Day("2024-12-31"), Day("2025-01-01").AddDays(-1))
}

func TestDay_LexicalOrderMatchesDateOrder(t *testing.T) {
	day := Day("2025-01-01")
	prev := day
	for i := 0; i < 400; i++ {
		next := prev.AddDays(1)
		assert.True(t, prev < next, "%s should sort before %s", prev, next)
		prev = next
	}
}
