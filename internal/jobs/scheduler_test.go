package jobs_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"ridedesk/internal/jobs"
	"ridedesk/internal/queue"
)

type recordingQueue struct {
	tasks []queue.Task
}

func (q *recordingQueue) Enqueue(_ context.Context, task queue.Task) (string, error) {
	q.tasks = append(q.tasks, task)
	return "1-0", nil
}

func TestSchedulerStartsAndStops(t *testing.T) {
	q := &recordingQueue{}
	s := jobs.NewScheduler(q, zerolog.Nop())
	require.NoError(t, s.Start())
	s.Stop()
	require.Empty(t, q.tasks)
}

func TestSchedulerWithoutQueueIsNoop(t *testing.T) {
	s := jobs.NewScheduler(nil, zerolog.Nop())
	require.NoError(t, s.Start())
}
