package budget

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCrossed(t *testing.T) {
	tests := []struct {
		name   string
		before float64
		after  float64
		limit  float64
		want   []Threshold
	}{
		{"no limit", 0, 5_000_000, 0, nil},
		{"negative limit", 0, 100, -1, nil},
		{"below warning", 100_000, 700_000, 1_000_000, nil},
		{"hits warning exactly", 700_000, 800_000, 1_000_000, []Threshold{Warning}},
		{"warning to critical", 850_000, 950_000, 1_000_000, []Threshold{Critical}},
		{"jumps all three", 0, 1_200_000, 1_000_000, []Threshold{Warning, Critical, Exhausted}},
		{"already over does not refire", 1_100_000, 1_300_000, 1_000_000, nil},
		{"already at warning stays quiet", 800_000, 850_000, 1_000_000, nil},
		{"reaches limit exactly", 950_000, 1_000_000, 1_000_000, []Threshold{Exhausted}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Crossed(tt.before, tt.after, tt.limit))
		})
	}
}

func TestReached(t *testing.T) {
	assert.False(t, Reached(100, 0))
	assert.False(t, Reached(99, 100))
	assert.True(t, Reached(100, 100))
	assert.True(t, Reached(150, 100))
}

func TestUsagePercent(t *testing.T) {
	assert.Zero(t, UsagePercent(500, 0))
	assert.InDelta(t, 50.0, UsagePercent(500, 1000), 1e-9)
}

func TestHighest(t *testing.T) {
	assert.Equal(t, Threshold(0), Highest(nil))
	assert.Equal(t, Exhausted, Highest([]Threshold{Warning, Exhausted, Critical}))
}
