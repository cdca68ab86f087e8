package client

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestActivityWatcher_ProactiveRefreshFires(t *testing.T) {
	t.Parallel()

	var refreshed atomic.Int32
	w := NewActivityWatcher(
		func() { refreshed.Add(1) },
		func() { t.Errorf("unexpected logout") },
		WithIntervals(20*time.Millisecond, time.Hour, time.Hour),
	)

	w.Start()
	defer w.Stop()

	require.Eventually(t, func() bool { return refreshed.Load() >= 1 }, time.Second, 5*time.Millisecond)
}

func TestActivityWatcher_TouchRearmsTimer(t *testing.T) {
	t.Parallel()

	var refreshed atomic.Int32
	w := NewActivityWatcher(
		func() { refreshed.Add(1) },
		func() {},
		WithIntervals(60*time.Millisecond, time.Hour, time.Hour),
	)

	w.Start()
	defer w.Stop()

	// Keep touching more often than the refresh interval; the timer should
	// never fire.
	for i := 0; i < 5; i++ {
		time.Sleep(20 * time.Millisecond)
		w.Touch()
	}
	require.Equal(t, int32(0), refreshed.Load())

	// Once activity stops, the timer fires.
	require.Eventually(t, func() bool { return refreshed.Load() >= 1 }, time.Second, 5*time.Millisecond)
}

func TestActivityWatcher_IdleLimitForcesLogout(t *testing.T) {
	t.Parallel()

	var loggedOut atomic.Int32
	w := NewActivityWatcher(
		func() {},
		func() { loggedOut.Add(1) },
		WithIntervals(time.Hour, 10*time.Millisecond, 30*time.Millisecond),
	)

	w.Start()
	defer w.Stop()

	require.Eventually(t, func() bool { return loggedOut.Load() == 1 }, time.Second, 5*time.Millisecond)

	// The sweep stops after forcing logout; no repeat.
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, int32(1), loggedOut.Load())
}

func TestActivityWatcher_StopTearsDownTimers(t *testing.T) {
	t.Parallel()

	var refreshed atomic.Int32
	w := NewActivityWatcher(
		func() { refreshed.Add(1) },
		func() {},
		WithIntervals(30*time.Millisecond, time.Hour, time.Hour),
	)

	w.Start()
	w.Stop()

	time.Sleep(80 * time.Millisecond)
	require.Equal(t, int32(0), refreshed.Load())

	// Stop is idempotent and Touch after Stop is a no-op.
	w.Stop()
	w.Touch()
}
