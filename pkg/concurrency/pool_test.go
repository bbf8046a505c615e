package concurrency

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type intTask struct {
	id string
	n  int
}

func (t intTask) ID() string { return t.id }
func (t intTask) Execute(context.Context) (interface{}, error) { return t.n * t.n, nil }

func TestExecuteAllReturnsResultsInSubmissionOrder(t *testing.T) {
	pool := NewPool(Config{WorkerCount: 4, BufferSize: 2})
	require.NoError(t, pool.Start())
	defer pool.Shutdown()

	tasks := make([]Task, 10)
	for i := range tasks {
		tasks[i] = intTask{id: fmt.Sprintf("t%d", i), n: i}
	}

	results, err := pool.ExecuteAll(context.Background(), tasks)
	require.NoError(t, err)
	require.Len(t, results, len(tasks))
	for i, r := range results {
		assert.Equal(t, i*i, r.Value)
	}
}

// TestExecuteAllDoesNotDeadlockWhenTaskCountExceedsBuffers submits far more
// tasks than the pool's task/result channel capacity. With a small buffer
// and few workers, every worker blocks trying to hand back a result before
// the submission loop has finished feeding the task channel unless
// submission and collection run concurrently.
func TestExecuteAllDoesNotDeadlockWhenTaskCountExceedsBuffers(t *testing.T) {
	pool := NewPool(Config{WorkerCount: 2, BufferSize: 2})
	require.NoError(t, pool.Start())
	defer pool.Shutdown()

	const taskCount = 500
	tasks := make([]Task, taskCount)
	for i := range tasks {
		tasks[i] = intTask{id: fmt.Sprintf("t%d", i), n: i}
	}

	done := make(chan struct{})
	var results []*Result
	var err error
	go func() {
		results, err = pool.ExecuteAll(context.Background(), tasks)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ExecuteAll did not return before the test timeout; likely deadlocked")
	}

	require.NoError(t, err)
	require.Len(t, results, taskCount)
}

func TestExecuteAllOnEmptyTaskListReturnsImmediately(t *testing.T) {
	pool := NewPool(Config{})
	require.NoError(t, pool.Start())
	defer pool.Shutdown()

	results, err := pool.ExecuteAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestExecuteAllBeforeStartReturnsError(t *testing.T) {
	pool := NewPool(Config{})
	_, err := pool.ExecuteAll(context.Background(), []Task{intTask{id: "a", n: 1}})
	assert.Error(t, err)
}

func TestStartTwiceReturnsError(t *testing.T) {
	pool := NewPool(Config{})
	require.NoError(t, pool.Start())
	defer pool.Shutdown()
	assert.Error(t, pool.Start())
}
