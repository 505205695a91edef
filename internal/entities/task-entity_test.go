package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to TaskStatus
		allowed  bool
	}{
		{TaskStatusPending, TaskStatusAccepted, true},
		{TaskStatusAccepted, TaskStatusInProgress, true},
		{TaskStatusInProgress, TaskStatusCompleted, true},
		{TaskStatusPending, TaskStatusInProgress, false},
		{TaskStatusPending, TaskStatusCompleted, false},
		{TaskStatusAccepted, TaskStatusPending, false},
		{TaskStatusCompleted, TaskStatusInProgress, false},
		{TaskStatusCompleted, TaskStatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}

	_, ok := TaskStatusCompleted.Next()
	assert.False(t, ok)
}

func TestParseTaskStatus(t *testing.T) {
	st, err := ParseTaskStatus("in_progress")
	require.NoError(t, err)
	assert.Equal(t, TaskStatusInProgress, st)

	_, err = ParseTaskStatus("cancelled")
	assert.Error(t, err)
}

func TestCompletionDuration(t *testing.T) {
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	task := &Task{StartedAt: &started}

	assert.Equal(t, 0, task.CompletionDuration(started.Add(59*time.Second)))
	assert.Equal(t, 90, task.CompletionDuration(started.Add(90*time.Minute+30*time.Second)))
	assert.Equal(t, 0, task.CompletionDuration(started.Add(-time.Minute)))

	assert.Equal(t, 0, (&Task{}).CompletionDuration(started))
}
