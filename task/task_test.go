package task

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/storage/errors"
)

func waitResult[T any](t *testing.T, tk *Task[T]) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := tk.Result(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "task did not settle")
	return v, err
}

func TestTask_Settles(t *testing.T) {
	errBoom := stderrors.New("boom")

	tests := []struct {
		name      string
		job       Job[string]
		wantValue string
		wantErr   error
		wantState State
	}{
		{
			name:      "success",
			job:       func(context.Context) (string, error) { return "ok", nil },
			wantValue: "ok",
			wantState: StateSucceeded,
		},
		{
			name:      "failure keeps the job error",
			job:       func(context.Context) (string, error) { return "", errBoom },
			wantErr:   errBoom,
			wantState: StateFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := New(context.Background(), tt.job, nil)
			v, err := waitResult(t, tk)

			assert.Equal(t, tt.wantState, tk.State())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.False(t, errors.IsCanceled(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantValue, v)
			assert.NotEmpty(t, tk.ID())
		})
	}
}

func TestTask_CancelIsIdempotent(t *testing.T) {
	var onCancelCalls atomic.Int32
	var jobCalls atomic.Int32

	tk := New(context.Background(), func(ctx context.Context) (int, error) {
		jobCalls.Add(1)
		<-ctx.Done()
		return 0, ctx.Err()
	}, func(error) {
		onCancelCalls.Add(1)
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tk.Cancel(nil)
		}()
	}
	wg.Wait()
	tk.Cancel(stderrors.New("late"))

	_, err := waitResult(t, tk)
	require.Error(t, err)
	assert.True(t, errors.IsCanceled(err))
	assert.ErrorIs(t, err, errors.ErrCanceled)
	assert.Equal(t, StateCanceled, tk.State())
	assert.Equal(t, int32(1), onCancelCalls.Load())
	assert.LessOrEqual(t, jobCalls.Load(), int32(1))
}

func TestTask_CancelBeforeFirstCheckpointNeverSucceeds(t *testing.T) {
	gate := make(chan struct{})
	entered := make(chan struct{})

	// The job ignores its context entirely and reports success once released.
	tk := New(context.Background(), func(context.Context) (string, error) {
		close(entered)
		<-gate
		return "too late", nil
	}, nil)

	<-entered
	tk.Cancel(nil)
	close(gate)

	v, err := waitResult(t, tk)
	assert.Empty(t, v)
	assert.True(t, errors.IsCanceled(err))
	assert.Equal(t, StateCanceled, tk.State())
}

func TestTask_CancelAfterSuccessKeepsResult(t *testing.T) {
	var onCancelCalls atomic.Int32
	tk := New(context.Background(), func(context.Context) (string, error) {
		return "done", nil
	}, func(error) { onCancelCalls.Add(1) })

	v, err := waitResult(t, tk)
	require.NoError(t, err)

	tk.Cancel(nil)
	tk.Cancel(nil)

	v2, err2 := waitResult(t, tk)
	require.NoError(t, err2)
	assert.Equal(t, "done", v)
	assert.Equal(t, v, v2)
	assert.Equal(t, StateSucceeded, tk.State())
	assert.Zero(t, onCancelCalls.Load())
}

func TestTask_CancelReasonReachesJobAndResult(t *testing.T) {
	reason := stderrors.New("user aborted")
	started := make(chan struct{})
	seen := make(chan error, 1)

	tk := New(context.Background(), func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		seen <- context.Cause(ctx)
		return 0, ctx.Err()
	}, nil)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("job never started")
	}
	tk.Cancel(reason)

	_, err := waitResult(t, tk)
	assert.ErrorIs(t, err, reason)
	assert.ErrorIs(t, err, errors.ErrCanceled)

	select {
	case got := <-seen:
		assert.ErrorIs(t, got, reason)
	case <-time.After(5 * time.Second):
		t.Fatal("job did not observe the cancel reason")
	}
}

func TestTask_ParentCanceledBeforeStart(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	cancel()

	var called atomic.Bool
	tk := New(parent, func(context.Context) (int, error) {
		called.Store(true)
		return 1, nil
	}, nil)

	_, err := waitResult(t, tk)
	assert.True(t, errors.IsCanceled(err))
	assert.False(t, called.Load())
	assert.Equal(t, StateCanceled, tk.State())
}

func TestTask_ResultHonoursWaitContext(t *testing.T) {
	release := make(chan struct{})
	tk := New(context.Background(), func(ctx context.Context) (int, error) {
		select {
		case <-release:
			return 7, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := tk.Result(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StatePending, tk.State())

	close(release)
	v, err := waitResult(t, tk)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestTask_IndependentTasks(t *testing.T) {
	block := func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	a := New(context.Background(), block, nil)
	b := New(context.Background(), func(context.Context) (int, error) { return 2, nil }, nil)

	a.Cancel(nil)

	_, errA := waitResult(t, a)
	vB, errB := waitResult(t, b)
	assert.True(t, errors.IsCanceled(errA))
	require.NoError(t, errB)
	assert.Equal(t, 2, vB)
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestIDFromContext(t *testing.T) {
	seen := make(chan string, 1)
	tk := New(context.Background(), func(ctx context.Context) (int, error) {
		id, ok := IDFromContext(ctx)
		assert.True(t, ok)
		seen <- id
		return 0, nil
	}, nil)

	_, err := waitResult(t, tk)
	require.NoError(t, err)
	assert.Equal(t, tk.ID(), <-seen)

	_, ok := IDFromContext(context.Background())
	assert.False(t, ok)
}
