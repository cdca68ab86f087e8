package client

import (
	"sync"
	"time"

	"github.com/barre-app/barre/internal/logger"
)

// Sliding-session defaults. Activity re-arms the proactive refresh timer;
// the idle sweep force-ends sessions that have seen no activity for the
// idle limit.
const (
	defaultRefreshInterval   = time.Hour
	defaultIdleCheckInterval = time.Hour
	defaultIdleLimit         = 14 * 24 * time.Hour
)

// ActivityWatcher extends the session's effective lifetime based on observed
// user interaction. While the user is active it refreshes the access token
// on a fixed cadence; after a prolonged idle window it forces logout without
// a server round trip (the token would be long expired regardless).
//
// The watcher is owned by whatever constructs the session and must be
// stopped on logout so no timers leak across session boundaries.
type ActivityWatcher struct {
	refreshInterval   time.Duration
	idleCheckInterval time.Duration
	idleLimit         time.Duration

	refreshFn func()
	logoutFn  func()
	now       func() time.Time

	mu           sync.Mutex
	lastActivity time.Time
	refreshTimer *time.Timer
	stopCh       chan struct{}
	started      bool
}

// WatcherOption customizes an ActivityWatcher.
type WatcherOption func(*ActivityWatcher)

// WithIntervals overrides the refresh cadence, idle sweep cadence and idle
// limit. Tests use short values here.
func WithIntervals(refresh, idleCheck, idleLimit time.Duration) WatcherOption {
	return func(w *ActivityWatcher) {
		w.refreshInterval = refresh
		w.idleCheckInterval = idleCheck
		w.idleLimit = idleLimit
	}
}

// WithClock overrides the clock.
func WithClock(now func() time.Time) WatcherOption {
	return func(w *ActivityWatcher) {
		w.now = now
	}
}

// NewActivityWatcher creates a watcher that calls refreshFn on the activity
// cadence and logoutFn when the idle limit is exceeded.
func NewActivityWatcher(refreshFn, logoutFn func(), opts ...WatcherOption) *ActivityWatcher {
	w := &ActivityWatcher{
		refreshInterval:   defaultRefreshInterval,
		idleCheckInterval: defaultIdleCheckInterval,
		idleLimit:         defaultIdleLimit,
		refreshFn:         refreshFn,
		logoutFn:          logoutFn,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start arms the refresh timer and the idle sweep. Calling Start on a
// running watcher is a no-op.
func (w *ActivityWatcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return
	}
	w.started = true
	w.lastActivity = w.now()
	w.stopCh = make(chan struct{})
	w.refreshTimer = time.AfterFunc(w.refreshInterval, w.onRefreshTimer)

	go w.idleSweep(w.stopCh)
}

// Touch records user activity and re-arms the proactive refresh timer.
func (w *ActivityWatcher) Touch() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}
	w.lastActivity = w.now()
	w.refreshTimer.Stop()
	w.refreshTimer.Reset(w.refreshInterval)
}

// Stop tears down all timers. Idempotent; safe to call on a never-started
// watcher.
func (w *ActivityWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}
	w.started = false
	w.refreshTimer.Stop()
	close(w.stopCh)
}

func (w *ActivityWatcher) onRefreshTimer() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	// Re-arm for the next cycle while the session stays active.
	w.refreshTimer.Reset(w.refreshInterval)
	w.mu.Unlock()

	logger.Debugf("Sliding session: proactive token refresh")
	w.refreshFn()
}

func (w *ActivityWatcher) idleSweep(stopCh chan struct{}) {
	ticker := time.NewTicker(w.idleCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			w.mu.Lock()
			idle := w.now().Sub(w.lastActivity)
			w.mu.Unlock()

			if idle > w.idleLimit {
				logger.Infof("Sliding session: idle for %s, forcing logout", idle)
				w.Stop()
				w.logoutFn()
				return
			}
		}
	}
}
