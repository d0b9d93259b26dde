package asyncprim

import "time"

// Default poll cadences shared across components. These are polling
// fallbacks for operations that must observe state transitions without a
// dedicated wakeup channel (AsyncWorker.WaitForCompletion, Timer's
// paused-state check, Timer.Wait's empty-queue check), not tuning knobs
// exposed to callers.
const (
	defaultWorkerPollInterval     = 10 * time.Millisecond
	defaultTimerPausePollInterval = 100 * time.Millisecond
	defaultQueueDrainPollInterval = 5 * time.Millisecond
)
