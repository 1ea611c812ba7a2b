package queue_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ridedesk/internal/queue"
)

func TestDecodeTask(t *testing.T) {
	task, err := queue.DecodeTask(map[string]interface{}{
		"type":   queue.TaskMediaPurge,
		"userId": "2abc",
	})
	require.NoError(t, err)
	require.Equal(t, queue.Task{Type: queue.TaskMediaPurge, UserID: "2abc"}, task)

	_, err = queue.DecodeTask(map[string]interface{}{"userId": "2abc"})
	require.Error(t, err)
}
