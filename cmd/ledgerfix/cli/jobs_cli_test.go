package cli

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type stubEnqueuer struct {
	name string
}

func (s *stubEnqueuer) Enqueue(ctx context.Context, name, trigger string) (*asynq.TaskInfo, error) {
	s.name = name
	if name != "fix-piggies" {
		return nil, fmt.Errorf("jobs: unsupported job %q", name)
	}
	return &asynq.TaskInfo{ID: "abc", Type: "ledger:fix-piggies", Queue: "default"}, nil
}

type stubQueue struct{}

func (stubQueue) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return &asynq.QueueInfo{Queue: queue, Pending: 2}, nil
}

func TestJobsTriggerCommand(t *testing.T) {
	enq := &stubEnqueuer{}
	jobsCLI := NewJobsCLIWith(enq, stubQueue{})

	stdout := new(bytes.Buffer)
	code := jobsCLI.TriggerCommand(context.Background(), TriggerOptions{Name: "fix-piggies", Stdout: stdout, Stderr: new(bytes.Buffer)})
	require.Zero(t, code)
	require.Equal(t, "enqueued ledger:fix-piggies as abc on queue default\n", stdout.String())

	stderr := new(bytes.Buffer)
	code = jobsCLI.TriggerCommand(context.Background(), TriggerOptions{Name: "nope", Stdout: new(bytes.Buffer), Stderr: stderr})
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "unsupported job")

	stdout.Reset()
	require.Zero(t, jobsCLI.StatusCommand(context.Background(), stdout, new(bytes.Buffer)))
	require.Equal(t, "queue default: pending=2 active=0 scheduled=0 retry=0\n", stdout.String())
	require.NoError(t, jobsCLI.Close())
}
