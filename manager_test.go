package asyncprim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arcveil/asyncprim/metrics"
)

func TestManagerCreateWorkerAndWaitForAll(t *testing.T) {
	m := NewAsyncWorkerManager[int]()
	for i := 0; i < 5; i++ {
		v := i
		_, err := m.CreateWorker(context.Background(), func(context.Context) (int, error) {
			return v, nil
		})
		require.NoError(t, err)
	}

	require.NoError(t, m.WaitForAll(time.Second))
	require.True(t, m.AllDone())
	require.Equal(t, 5, m.Size())
}

func TestManagerWaitForAllReturnsFirstError(t *testing.T) {
	m := NewAsyncWorkerManager[int]()
	want := errors.New("bad")
	_, err := m.CreateWorker(context.Background(), func(context.Context) (int, error) {
		return 0, want
	})
	require.NoError(t, err)

	err = m.WaitForAll(time.Second)
	require.Error(t, err)
}

func TestManagerCancelAll(t *testing.T) {
	m := NewAsyncWorkerManager[int]()
	release := make(chan struct{})
	w, err := m.CreateWorker(context.Background(), func(context.Context) (int, error) {
		<-release
		return 0, nil
	})
	require.NoError(t, err)

	// CancelAll waits for the running function to return, so it runs on its
	// own goroutine while the worker is released.
	cancelled := make(chan struct{})
	go func() { m.CancelAll(); close(cancelled) }()
	close(release)
	<-cancelled
	require.Eventually(t, func() bool { return m.IsDone(w) }, time.Second, time.Millisecond)
}

func TestManagerPruneCompletedWorkers(t *testing.T) {
	m := NewAsyncWorkerManager[int]()
	_, err := m.CreateWorker(context.Background(), func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)
	require.NoError(t, m.WaitForAll(time.Second))

	pruned := m.PruneCompletedWorkers()
	require.Equal(t, 1, pruned)
	require.Equal(t, 0, m.Size())
}

func TestManagerMaxConcurrencyBlocksAdmission(t *testing.T) {
	m := NewAsyncWorkerManager[int](WithMaxConcurrency(1))
	release := make(chan struct{})
	_, err := m.CreateWorker(context.Background(), func(context.Context) (int, error) {
		<-release
		return 0, nil
	})
	require.NoError(t, err)

	started := make(chan struct{})
	go func() {
		close(started)
		_, err := m.CreateWorker(context.Background(), func(context.Context) (int, error) { return 2, nil })
		require.NoError(t, err)
	}()
	<-started
	time.Sleep(30 * time.Millisecond) // second CreateWorker should still be blocked on admission

	close(release)
	require.Eventually(t, func() bool { return m.Size() == 2 }, time.Second, time.Millisecond)
}

func TestManagerWithMutexContainer(t *testing.T) {
	m := NewAsyncWorkerManager[int](WithMutexContainer())
	_, err := m.CreateWorker(context.Background(), func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)
	require.NoError(t, m.WaitForAll(time.Second))
	require.Equal(t, 1, m.Size())
}

func TestManagerWithManagerMetricsRecordsCounts(t *testing.T) {
	provider := metrics.NewBasicProvider()
	m := NewAsyncWorkerManager[int](WithManagerMetrics(provider))

	for i := 0; i < 3; i++ {
		_, err := m.CreateWorker(context.Background(), func(context.Context) (int, error) { return 0, nil })
		require.NoError(t, err)
	}
	require.NoError(t, m.WaitForAll(time.Second))

	report := provider.Report()
	require.Equal(t, int64(3), report["asyncprim_manager_workers_created_total"])
	require.Equal(t, int64(0), report["asyncprim_manager_insert_failures_total"])
	require.Equal(t, int64(3), report["asyncprim_manager_active_workers"])

	require.Equal(t, 3, m.PruneCompletedWorkers())
	require.Equal(t, int64(0), provider.Report()["asyncprim_manager_active_workers"])
}
