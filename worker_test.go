package asyncprim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAsyncWorkerStartAsyncCompletes(t *testing.T) {
	w := NewAsyncWorker[int]()
	require.Equal(t, WorkerInitial, w.State())

	err := w.StartAsync(context.Background(), func(context.Context) (int, error) {
		return 21, nil
	})
	require.NoError(t, err)

	v, err := w.GetResult(0)
	require.NoError(t, err)
	require.Equal(t, 21, v)
	require.Equal(t, WorkerCompleted, w.State())
	require.True(t, w.IsDone())
}

func TestAsyncWorkerStartAsyncTwiceFails(t *testing.T) {
	w := NewAsyncWorker[int]()
	fn := func(context.Context) (int, error) { return 0, nil }
	require.NoError(t, w.StartAsync(context.Background(), fn))
	require.ErrorIs(t, w.StartAsync(context.Background(), fn), ErrAlreadyStarted)
}

func TestAsyncWorkerFailurePath(t *testing.T) {
	w := NewAsyncWorker[int]()
	want := errors.New("failed")
	require.NoError(t, w.StartAsync(context.Background(), func(context.Context) (int, error) {
		return 0, want
	}))

	_, err := w.GetResult(0)
	require.ErrorIs(t, err, want)
	require.Equal(t, WorkerFailed, w.State())
}

func TestAsyncWorkerPanicIsRecovered(t *testing.T) {
	w := NewAsyncWorker[int]()
	require.NoError(t, w.StartAsync(context.Background(), func(context.Context) (int, error) {
		panic("kaboom")
	}))

	_, err := w.GetResult(0)
	require.ErrorIs(t, err, ErrUserPanic)
}

func TestAsyncWorkerGetResultTimeoutDoesNotCancel(t *testing.T) {
	w := NewAsyncWorker[int]()
	release := make(chan struct{})
	require.NoError(t, w.StartAsync(context.Background(), func(context.Context) (int, error) {
		<-release
		return 1, nil
	}))

	_, err := w.GetResult(10 * time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
	require.True(t, w.IsActive())

	close(release)
	v, err := w.GetResult(0)
	require.NoError(t, err)
	require.Equal(t, 1, v)
}

func TestAsyncWorkerCancelInitial(t *testing.T) {
	w := NewAsyncWorker[int]()
	w.Cancel()
	require.Equal(t, WorkerCancelled, w.State())
	require.True(t, w.IsDone())
}

func TestAsyncWorkerSetCallbackRejectsNil(t *testing.T) {
	w := NewAsyncWorker[int]()
	require.ErrorIs(t, w.SetCallback(nil), ErrInvalidArgument)
}

func TestAsyncWorkerSetTimeoutRejectsNegative(t *testing.T) {
	w := NewAsyncWorker[int]()
	require.ErrorIs(t, w.SetTimeout(-time.Second), ErrInvalidArgument)
}

func TestAsyncWorkerWaitForCompletionFiresCallback(t *testing.T) {
	w := NewAsyncWorker[int]()
	got := make(chan int, 1)
	require.NoError(t, w.SetCallback(func(v int) { got <- v }))
	require.NoError(t, w.StartAsync(context.Background(), func(context.Context) (int, error) {
		return 7, nil
	}))

	require.NoError(t, w.WaitForCompletion())
	require.Equal(t, 7, <-got)
}

func TestAsyncWorkerWaitForCompletionTimesOutAndCancels(t *testing.T) {
	w := NewAsyncWorker[int]()
	require.NoError(t, w.SetTimeout(10*time.Millisecond))
	require.NoError(t, w.StartAsync(context.Background(), func(context.Context) (int, error) {
		time.Sleep(50 * time.Millisecond)
		return 0, nil
	}))

	err := w.WaitForCompletion()
	require.ErrorIs(t, err, ErrTimeout)
	require.Equal(t, WorkerCancelled, w.State())
}

func TestAsyncWorkerValidate(t *testing.T) {
	w := NewAsyncWorker[int]()
	require.False(t, w.Validate(func(int) bool { return true }))

	require.NoError(t, w.StartAsync(context.Background(), func(context.Context) (int, error) {
		return 3, nil
	}))
	_, _ = w.GetResult(0)
	require.True(t, w.Validate(func(v int) bool { return v == 3 }))
}
