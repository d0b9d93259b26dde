package asyncprim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDebouncerFiresOnceAfterBurst(t *testing.T) {
	timer := NewTimer()
	defer timer.Stop()

	d := NewDebouncer(timer, func() {}, 20*time.Millisecond)
	for i := 0; i < 5; i++ {
		d.Call()
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return d.CallCount() == 1 }, time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, int64(1), d.CallCount())
}

func TestDebouncerLeadingFiresImmediately(t *testing.T) {
	timer := NewTimer()
	defer timer.Stop()

	d := NewDebouncer(timer, func() {}, 30*time.Millisecond, WithLeading())
	d.Call()
	require.Equal(t, int64(1), d.CallCount())

	d.Call() // still within the burst, should not fire again yet
	require.Equal(t, int64(1), d.CallCount())

	require.Eventually(t, func() bool { return d.CallCount() == 2 }, time.Second, time.Millisecond)
}

func TestDebouncerFlush(t *testing.T) {
	timer := NewTimer()
	defer timer.Stop()

	d := NewDebouncer(timer, func() {}, time.Hour)
	d.Call()
	require.Equal(t, int64(0), d.CallCount())

	d.Flush()
	require.Equal(t, int64(1), d.CallCount())
}

func TestDebouncerCancel(t *testing.T) {
	timer := NewTimer()
	defer timer.Stop()

	d := NewDebouncer(timer, func() {}, 20*time.Millisecond)
	d.Call()
	d.Cancel()

	time.Sleep(40 * time.Millisecond)
	require.Equal(t, int64(0), d.CallCount())
}

func TestDebouncerReset(t *testing.T) {
	timer := NewTimer()
	defer timer.Stop()

	d := NewDebouncer(timer, func() {}, 10*time.Millisecond)
	d.Call()
	require.Eventually(t, func() bool { return d.CallCount() == 1 }, time.Second, time.Millisecond)

	d.Reset()
	require.Equal(t, int64(0), d.CallCount())
}
