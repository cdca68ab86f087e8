package session

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/barre-app/barre/internal/wire"
	"github.com/stretchr/testify/require"
)

func TestRefreshGate_ConcurrentTriggersCoalesce(t *testing.T) {
	t.Parallel()

	g := NewRefreshGate()

	var calls atomic.Int32
	inFlight := make(chan struct{})
	release := make(chan struct{})

	var inFlightOnce sync.Once
	fn := func() (wire.TokenResponse, error) {
		calls.Add(1)
		inFlightOnce.Do(func() { close(inFlight) })
		<-release
		return wire.TokenResponse{AccessToken: "fresh"}, nil
	}

	firstDone := make(chan struct{})
	var firstResp wire.TokenResponse
	go func() {
		defer close(firstDone)
		firstResp, _ = g.Do(fn)
	}()
	<-inFlight

	// Triggers arriving while the first attempt is pending must attach to
	// it instead of issuing a second call.
	const n = 7
	results := make([]wire.TokenResponse, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = g.Do(fn)
		}(i)
	}

	// Give the late triggers time to reach the gate before resolving.
	time.Sleep(50 * time.Millisecond)
	close(release)
	<-firstDone
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
	require.Equal(t, "fresh", firstResp.AccessToken)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, "fresh", results[i].AccessToken)
	}
}

func TestRefreshGate_ClearedAfterResolution(t *testing.T) {
	t.Parallel()

	g := NewRefreshGate()

	var calls atomic.Int32
	fn := func() (wire.TokenResponse, error) {
		calls.Add(1)
		return wire.TokenResponse{}, nil
	}

	_, err := g.Do(fn)
	require.NoError(t, err)
	_, err = g.Do(fn)
	require.NoError(t, err)

	// A trigger after resolution is a fresh attempt, not a stale waiter.
	require.Equal(t, int32(2), calls.Load())
	require.False(t, g.Pending())
}

func TestRefreshGate_FailurePropagatesToAllWaiters(t *testing.T) {
	t.Parallel()

	g := NewRefreshGate()
	wantErr := errors.New("issuer rejected")

	inFlight := make(chan struct{})
	release := make(chan struct{})
	var inFlightOnce sync.Once
	fn := func() (wire.TokenResponse, error) {
		inFlightOnce.Do(func() { close(inFlight) })
		<-release
		return wire.TokenResponse{}, wantErr
	}

	var firstErr error
	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_, firstErr = g.Do(fn)
	}()
	<-inFlight

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = g.Do(fn)
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	<-firstDone
	wg.Wait()

	require.ErrorIs(t, firstErr, wantErr)
	for i := 0; i < 3; i++ {
		require.ErrorIs(t, errs[i], wantErr)
	}
}
