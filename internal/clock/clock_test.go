package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMockClock_AdvanceAndSince(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	assert.Equal(t, start, c.Now())

	c.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), c.Now())
	assert.Equal(t, 90*time.Second, c.Since(start))
}

func TestMockClock_SetBackwards(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	earlier := start.Add(-time.Hour)
	c.Set(earlier)

	assert.Equal(t, earlier, c.Now())
	assert.Equal(t, -time.Hour, c.Since(start))
}

func TestRealClock_Now(t *testing.T) {
	c := NewRealClock()
	before := time.Now()
	now := c.Now()

	assert.False(t, now.Before(before))
	assert.GreaterOrEqual(t, c.Since(before), time.Duration(0))
}
