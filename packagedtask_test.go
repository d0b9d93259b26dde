package asyncprim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPackagedTaskRejectsNilFunc(t *testing.T) {
	_, err := NewPackagedTask[int, int](nil)
	require.ErrorIs(t, err, ErrInvalidTask)
}

func TestPackagedTaskInvokeResolves(t *testing.T) {
	task, err := NewPackagedTask(func(n int) (int, error) { return n * n, nil })
	require.NoError(t, err)

	fut, err := task.Future()
	require.NoError(t, err)

	task.Invoke(6)
	v, err := fut.Wait()
	require.NoError(t, err)
	require.Equal(t, 36, v)
}

func TestPackagedTaskInvokeOnlyOnce(t *testing.T) {
	calls := 0
	task, err := NewPackagedTask(func(int) (int, error) {
		calls++
		return calls, nil
	})
	require.NoError(t, err)

	task.Invoke(1)
	task.Invoke(1)
	require.Equal(t, 1, calls)
}

func TestPackagedTaskCancelBeforeInvoke(t *testing.T) {
	task, err := NewPackagedTask(func(int) (int, error) { return 1, nil })
	require.NoError(t, err)
	require.True(t, task.Cancel())
	require.False(t, task.Cancel())

	fut, _ := task.Future()
	task.Invoke(0)

	_, err = fut.Wait()
	require.ErrorIs(t, err, ErrCancelled)
	id, ok := ExtractTaskID(err)
	require.True(t, ok)
	require.Equal(t, task.ID(), id)
}

func TestPackagedTaskInvokePropagatesError(t *testing.T) {
	want := errors.New("explode")
	task, err := NewPackagedTask(func(int) (int, error) { return 0, want })
	require.NoError(t, err)
	fut, _ := task.Future()

	task.Invoke(0)
	_, err = fut.Wait()
	require.ErrorIs(t, err, want)
}

func TestPackagedTaskInvokeRecoversPanic(t *testing.T) {
	task, err := NewPackagedTask(func(int) (int, error) { panic("nope") })
	require.NoError(t, err)
	fut, _ := task.Future()

	task.Invoke(0)
	_, err = fut.Wait()
	require.ErrorIs(t, err, ErrUserPanic)
}

func TestPackagedTaskValidate(t *testing.T) {
	task, err := NewPackagedTask(func(int) (int, error) { return 10, nil })
	require.NoError(t, err)

	require.False(t, task.Validate(func(int) bool { return true }))
	task.Invoke(0)
	require.True(t, task.Validate(func(v int) bool { return v == 10 }))
	require.False(t, task.Validate(func(v int) bool { return v == 99 }))
}

func TestPackagedTaskOnComplete(t *testing.T) {
	task, err := NewPackagedTask(func(int) (string, error) { return "done", nil })
	require.NoError(t, err)

	got := make(chan string, 1)
	task.OnComplete(func(v string) { got <- v })
	task.Invoke(0)

	require.Equal(t, "done", <-got)
}
