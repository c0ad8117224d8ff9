package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounters_ApplyClamps(t *testing.T) {
	c := Counters{Total: 2, Completed: 1}

	assert.Equal(t, Counters{Total: 3, Completed: 1}, c.Apply(1, 0))
	assert.Equal(t, Counters{Total: 2, Completed: 2}, c.Apply(0, 1))
	assert.Equal(t, Counters{Total: 0, Completed: 0}, c.Apply(-5, -5))
	// Completed never exceeds Total.
	assert.Equal(t, Counters{Total: 1, Completed: 1}, c.Apply(-1, 3))
}

func TestCounters_IsComplete(t *testing.T) {
	assert.False(t, Counters{}.IsComplete(), "empty chapter is not complete")
	assert.False(t, Counters{Total: 3, Completed: 2}.IsComplete())
	assert.True(t, Counters{Total: 3, Completed: 3}.IsComplete())
}

func TestCounters_Percent(t *testing.T) {
	assert.Equal(t, 0, Counters{}.Percent())
	assert.Equal(t, 33, Counters{Total: 3, Completed: 1}.Percent())
	assert.Equal(t, 100, Counters{Total: 4, Completed: 4}.Percent())
}

func TestCompletionDelta(t *testing.T) {
	tests := []struct {
		name       string
		prev, next Counters
		want       int
	}{
		{"becomes complete", Counters{2, 1}, Counters{2, 2}, 1},
		{"stops being complete", Counters{2, 2}, Counters{2, 1}, -1},
		{"new topic breaks completion", Counters{1, 1}, Counters{2, 1}, -1},
		{"deleting last open topic completes", Counters{2, 1}, Counters{1, 1}, 1},
		{"emptied chapter is incomplete", Counters{1, 1}, Counters{0, 0}, -1},
		{"no change", Counters{3, 1}, Counters{3, 2}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompletionDelta(tt.prev, tt.next))
		})
	}
}

func TestTopic_Toggle(t *testing.T) {
	now := FixedClock{}.Now()
	topic := &Topic{}

	assert.Equal(t, 1, topic.Toggle(now))
	assert.True(t, topic.IsCompleted)
	assert.NotNil(t, topic.CompletedAt)

	assert.Equal(t, -1, topic.Toggle(now))
	assert.False(t, topic.IsCompleted)
	assert.Nil(t, topic.CompletedAt)
}
